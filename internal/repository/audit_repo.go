package repository

import (
	"context"

	"ideaportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditFilter narrows an audit listing. Zero values match everything.
type AuditFilter struct {
	Action          string
	ActorEmployeeID *uuid.UUID
	SystemOnly      bool // entries written without an acting employee
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	Find(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

// Find pages through matching entries, newest first, with the acting employee loaded
func (r *auditRepository) Find(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	scoped := func(db *gorm.DB) *gorm.DB {
		if filter.Action != "" {
			db = db.Where("action = ?", filter.Action)
		}
		switch {
		case filter.SystemOnly:
			db = db.Where("actor_employee_id IS NULL")
		case filter.ActorEmployeeID != nil:
			db = db.Where("actor_employee_id = ?", *filter.ActorEmployeeID)
		}
		return db
	}

	var total int64
	if err := GetDB(ctx, r.db).Model(&model.AuditLog{}).Scopes(scoped).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.AuditLog{}, 0, nil
	}

	var entries []model.AuditLog
	err := GetDB(ctx, r.db).
		Scopes(scoped).
		Preload("ActorEmployee").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
