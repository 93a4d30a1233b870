package service

import (
	"context"
	"errors"
	"fmt"

	"ideaportal/internal/model"
	"ideaportal/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ApproverResolver finds the concrete person holding a role for a part of the organization.
// A nil employee with a nil error means nobody is eligible; callers must handle it.
type ApproverResolver interface {
	ResolveApprover(ctx context.Context, roleID string, divisionID, departmentID *uuid.UUID) (*model.Employee, error)
	GetNextApprover(ctx context.Context, ideaID uuid.UUID, targetStage int) (*model.Employee, error)
	NextApproverFor(ctx context.Context, idea *model.Idea, targetStage int) (*model.Employee, error)
	GetWorkstreamLeader(ctx context.Context, divisionID, departmentID *uuid.UUID) (*model.Employee, error)
}

type approverResolver struct {
	roles repository.RoleRepository
	users repository.UserRepository
	ideas repository.IdeaRepository
	log   zerolog.Logger
}

func NewApproverResolver(roles repository.RoleRepository, users repository.UserRepository, ideas repository.IdeaRepository, log zerolog.Logger) ApproverResolver {
	return &approverResolver{roles: roles, users: users, ideas: ideas, log: log}
}

// ResolveApprover searches department, then division, then the whole company,
// stopping at the first level that has a candidate.
func (r *approverResolver) ResolveApprover(ctx context.Context, roleID string, divisionID, departmentID *uuid.UUID) (*model.Employee, error) {
	role, err := r.roles.FindByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn().Str("role_id", roleID).Msg("unknown role, no approver resolved")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load role %s: %w", roleID, err)
	}

	for _, filter := range searchLevels(role.Scope, divisionID, departmentID) {
		holders, err := r.users.FindRoleHolders(ctx, role.ID, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to search holders of %s: %w", role.ID, err)
		}
		if len(holders) > 0 && holders[0].Employee != nil {
			return holders[0].Employee, nil
		}
	}

	r.log.Warn().
		Str("role_id", role.ID).
		Str("division_id", uuidString(divisionID)).
		Str("department_id", uuidString(departmentID)).
		Msg("no active holder for role at any scope")
	return nil, nil
}

func (r *approverResolver) GetNextApprover(ctx context.Context, ideaID uuid.UUID, targetStage int) (*model.Employee, error) {
	idea, err := r.ideas.FindByID(ctx, ideaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdeaNotFound
		}
		return nil, fmt.Errorf("failed to load idea: %w", err)
	}
	return r.NextApproverFor(ctx, idea, targetStage)
}

// NextApproverFor resolves the approver of targetStage for an idea the caller already holds
func (r *approverResolver) NextApproverFor(ctx context.Context, idea *model.Idea, targetStage int) (*model.Employee, error) {
	role, err := r.roles.FindForStage(ctx, idea.WorkflowType, targetStage)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn().
				Str("idea_id", idea.ID.String()).
				Str("workflow_type", string(idea.WorkflowType)).
				Int("stage", targetStage).
				Msg("no role approves this stage")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find role for stage %d: %w", targetStage, err)
	}
	return r.ResolveApprover(ctx, role.ID, idea.TargetDivisionID, idea.TargetDepartmentID)
}

func (r *approverResolver) GetWorkstreamLeader(ctx context.Context, divisionID, departmentID *uuid.UUID) (*model.Employee, error) {
	return r.ResolveApprover(ctx, model.RoleWorkstreamLeader, divisionID, departmentID)
}

// --- Helpers ---

// searchLevels lists the filters to try, most specific first
func searchLevels(scope model.RoleScope, divisionID, departmentID *uuid.UUID) []repository.CandidateFilter {
	levels := make([]repository.CandidateFilter, 0, 3)
	if scope == model.ScopeDepartment && departmentID != nil {
		levels = append(levels, repository.CandidateFilter{DivisionID: divisionID, DepartmentID: departmentID})
	}
	if (scope == model.ScopeDepartment || scope == model.ScopeDivision) && divisionID != nil {
		levels = append(levels, repository.CandidateFilter{DivisionID: divisionID})
	}
	return append(levels, repository.CandidateFilter{})
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
