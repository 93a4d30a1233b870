package repository

import (
	"context"

	"ideaportal/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRepository interface {
	Upsert(ctx context.Context, role *model.Role) error
	FindByID(ctx context.Context, id string) (*model.Role, error)
	ListAll(ctx context.Context) ([]model.Role, error)
	FindForStage(ctx context.Context, workflowType model.WorkflowType, stage int) (*model.Role, error)
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

// Upsert inserts the role or refreshes its definition when the code already exists
func (r *roleRepository) Upsert(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "approval_level", "can_approve_standard", "can_approve_high_value", "scope", "updated_at"}),
	}).Create(role).Error
}

func (r *roleRepository) FindByID(ctx context.Context, id string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).First(&role, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) ListAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := GetDB(ctx, r.db).Order("approval_level asc, id asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// FindForStage returns the role that approves stage on the given track.
// It returns gorm.ErrRecordNotFound when no role qualifies.
func (r *roleRepository) FindForStage(ctx context.Context, workflowType model.WorkflowType, stage int) (*model.Role, error) {
	query := GetDB(ctx, r.db).Where("approval_level = ?", stage)
	switch workflowType {
	case model.WorkflowStandard:
		query = query.Where("can_approve_standard = ?", true)
	case model.WorkflowHighValue:
		query = query.Where("can_approve_high_value = ?", true)
	default:
		return nil, gorm.ErrRecordNotFound
	}

	var role model.Role
	if err := query.Order("id asc").First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}
