package repository

import (
	"context"

	"ideaportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CandidateFilter is the geographic filter applied when searching role holders.
// Nil fields are not filtered on.
type CandidateFilter struct {
	DivisionID   *uuid.UUID
	DepartmentID *uuid.UUID
}

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	FindActiveByEmployeeID(ctx context.Context, employeeID uuid.UUID) (*model.User, error)
	FindRoleHolders(ctx context.Context, roleID string, filter CandidateFilter) ([]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Preload("Role").Preload("Employee").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Preload("Role").Preload("Employee").First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindActiveByEmployeeID returns the active user account bound to an employee, with role and employee loaded
func (r *userRepository) FindActiveByEmployeeID(ctx context.Context, employeeID uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).
		Preload("Role").
		Preload("Employee").
		Where("employee_id = ? AND is_active = ?", employeeID, true).
		Order("is_acting ASC, created_at DESC").
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindRoleHolders lists active users of an active employee holding roleID,
// permanent holders before acting ones, newest user record first.
func (r *userRepository) FindRoleHolders(ctx context.Context, roleID string, filter CandidateFilter) ([]model.User, error) {
	query := GetDB(ctx, r.db).
		Preload("Employee").
		Joins("JOIN employees ON employees.id = users.employee_id").
		Where("users.role_id = ? AND users.is_active = ?", roleID, true).
		Where("employees.employment_status = ?", model.EmploymentActive)

	if filter.DivisionID != nil {
		query = query.Where("employees.division_id = ?", *filter.DivisionID)
	}
	if filter.DepartmentID != nil {
		query = query.Where("employees.department_id = ?", *filter.DepartmentID)
	}

	var users []model.User
	if err := query.Order("users.is_acting ASC, users.created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
