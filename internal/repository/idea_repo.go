package repository

import (
	"context"

	"ideaportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PendingFilter narrows the set of ideas waiting for a decision
type PendingFilter struct {
	Statuses      []string
	Stage         *int // CurrentStage the idea must be at
	WorkflowTypes []model.WorkflowType
	DivisionID    *uuid.UUID
	DepartmentID  *uuid.UUID
}

type IdeaRepository interface {
	Create(ctx context.Context, idea *model.Idea) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Idea, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Idea, error)
	FindByIDWithInitiator(ctx context.Context, id uuid.UUID) (*model.Idea, error)
	ListByInitiator(ctx context.Context, initiatorID uuid.UUID, page, limit int) ([]model.Idea, int64, error)
	ListPending(ctx context.Context, filter PendingFilter) ([]model.Idea, error)
	ApplyTransition(ctx context.Context, id uuid.UUID, fromStage int, fromStatus string, updates map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ideaRepository struct {
	db *gorm.DB
}

func NewIdeaRepository(db *gorm.DB) IdeaRepository {
	return &ideaRepository{db: db}
}

func (r *ideaRepository) Create(ctx context.Context, idea *model.Idea) error {
	return GetDB(ctx, r.db).Create(idea).Error
}

func (r *ideaRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Idea, error) {
	var idea model.Idea
	if err := GetDB(ctx, r.db).First(&idea, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &idea, nil
}

// FindByIDForUpdate row-locks the idea for the rest of the surrounding transaction
func (r *ideaRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Idea, error) {
	var idea model.Idea
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Initiator").
		First(&idea, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &idea, nil
}

func (r *ideaRepository) FindByIDWithInitiator(ctx context.Context, id uuid.UUID) (*model.Idea, error) {
	var idea model.Idea
	if err := GetDB(ctx, r.db).Preload("Initiator").First(&idea, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &idea, nil
}

func (r *ideaRepository) ListByInitiator(ctx context.Context, initiatorID uuid.UUID, page, limit int) ([]model.Idea, int64, error) {
	var ideas []model.Idea
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Idea{}).Where("initiator_id = ?", initiatorID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("initiator_id = ?", initiatorID).
		Order("submitted_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&ideas).Error; err != nil {
		return nil, 0, err
	}

	return ideas, total, nil
}

// ListPending returns matching ideas oldest submission first
func (r *ideaRepository) ListPending(ctx context.Context, filter PendingFilter) ([]model.Idea, error) {
	query := GetDB(ctx, r.db).Preload("Initiator")

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Stage != nil {
		query = query.Where("current_stage = ?", *filter.Stage)
	}
	if len(filter.WorkflowTypes) > 0 {
		query = query.Where("workflow_type IN ?", filter.WorkflowTypes)
	}
	if filter.DivisionID != nil {
		query = query.Where("target_division_id = ?", *filter.DivisionID)
	}
	if filter.DepartmentID != nil {
		query = query.Where("target_department_id = ?", *filter.DepartmentID)
	}

	var ideas []model.Idea
	if err := query.Order("submitted_at ASC").Find(&ideas).Error; err != nil {
		return nil, err
	}
	return ideas, nil
}

// ApplyTransition updates the idea only if it is still at fromStage/fromStatus.
// A concurrent transition from the same base makes it return ErrConcurrentUpdate.
func (r *ideaRepository) ApplyTransition(ctx context.Context, id uuid.UUID, fromStage int, fromStatus string, updates map[string]interface{}) error {
	result := GetDB(ctx, r.db).Model(&model.Idea{}).
		Where("id = ? AND current_stage = ? AND status = ?", id, fromStage, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (r *ideaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Idea{}).Error
}
