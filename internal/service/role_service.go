package service

import (
	"context"
	"fmt"

	"ideaportal/internal/model"
	"ideaportal/internal/repository"

	"github.com/rs/zerolog"
)

// --- DTOs ---

type RoleResponse struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	ApprovalLevel       int             `json:"approval_level"`
	CanApproveStandard  bool            `json:"can_approve_standard"`
	CanApproveHighValue bool            `json:"can_approve_high_value"`
	Scope               model.RoleScope `json:"scope"`
}

// DefaultRoles is the built-in approval hierarchy
var DefaultRoles = []model.Role{
	{ID: model.RoleEmployee, Name: "Employee", ApprovalLevel: model.ApprovalLevelNone, Scope: model.ScopeCompany},
	{ID: model.RoleWorkstreamLeader, Name: "Workstream Leader", ApprovalLevel: 1, CanApproveStandard: true, CanApproveHighValue: true, Scope: model.ScopeDepartment},
	{ID: model.RoleDepartmentManager, Name: "Department Manager", ApprovalLevel: 2, CanApproveStandard: true, Scope: model.ScopeDepartment},
	{ID: model.RoleSeniorManager, Name: "Senior Manager", ApprovalLevel: 2, CanApproveHighValue: true, Scope: model.ScopeDepartment},
	{ID: model.RoleDivisionGM, Name: "Division General Manager", ApprovalLevel: 3, CanApproveStandard: true, CanApproveHighValue: true, Scope: model.ScopeDivision},
	{ID: model.RoleFinanceController, Name: "Finance Controller", ApprovalLevel: 4, CanApproveHighValue: true, Scope: model.ScopeCompany},
	{ID: model.RoleFinanceDirector, Name: "Finance Director", ApprovalLevel: 5, CanApproveHighValue: true, Scope: model.ScopeCompany},
	{ID: model.RoleExecutiveDirector, Name: "Executive Director", ApprovalLevel: 6, CanApproveHighValue: true, Scope: model.ScopeCompany},
	{ID: model.RoleSystemAdministrator, Name: "System Administrator", ApprovalLevel: model.ApprovalLevelSuperAdmin, Scope: model.ScopeCompany},
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	SeedDefaultRoles(ctx context.Context) error
}

type roleService struct {
	txManager repository.TransactionManager
	repo      repository.RoleRepository
	log       zerolog.Logger
}

func NewRoleService(txManager repository.TransactionManager, repo repository.RoleRepository, log zerolog.Logger) RoleService {
	return &roleService{txManager: txManager, repo: repo, log: log}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

// SeedDefaultRoles makes the role table match DefaultRoles. Safe to run repeatedly.
func (s *roleService) SeedDefaultRoles(ctx context.Context) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for i := range DefaultRoles {
			role := DefaultRoles[i]
			if err := s.repo.Upsert(txCtx, &role); err != nil {
				return fmt.Errorf("failed to seed role %s: %w", role.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Int("roles", len(DefaultRoles)).Msg("default roles seeded")
	return nil
}

// --- Helpers ---

func toRoleResponse(r model.Role) RoleResponse {
	return RoleResponse{
		ID:                  r.ID,
		Name:                r.Name,
		ApprovalLevel:       r.ApprovalLevel,
		CanApproveStandard:  r.CanApproveStandard,
		CanApproveHighValue: r.CanApproveHighValue,
		Scope:               r.Scope,
	}
}
