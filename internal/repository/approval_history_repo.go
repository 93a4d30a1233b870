package repository

import (
	"context"

	"ideaportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalHistoryRepository is append-only: there is no update or delete.
type ApprovalHistoryRepository interface {
	Create(ctx context.Context, entry *model.ApprovalHistory) error
	ListByIdea(ctx context.Context, ideaID uuid.UUID) ([]model.ApprovalHistory, error)
	CountByIdea(ctx context.Context, ideaID uuid.UUID) (int64, error)
}

type approvalHistoryRepository struct {
	db *gorm.DB
}

func NewApprovalHistoryRepository(db *gorm.DB) ApprovalHistoryRepository {
	return &approvalHistoryRepository{db: db}
}

func (r *approvalHistoryRepository) Create(ctx context.Context, entry *model.ApprovalHistory) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *approvalHistoryRepository) ListByIdea(ctx context.Context, ideaID uuid.UUID) ([]model.ApprovalHistory, error) {
	var entries []model.ApprovalHistory
	if err := GetDB(ctx, r.db).
		Preload("ActorEmployee").
		Where("idea_id = ?", ideaID).
		Order("created_at asc, stage asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *approvalHistoryRepository) CountByIdea(ctx context.Context, ideaID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ApprovalHistory{}).Where("idea_id = ?", ideaID).Count(&count).Error
	return count, err
}
