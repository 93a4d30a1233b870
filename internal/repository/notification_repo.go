package repository

import (
	"context"
	"time"

	"ideaportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []model.Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
	MarkEmailSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	DeleteByIdea(ctx context.Context, ideaID uuid.UUID) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&notifications).Error
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	var notifications []model.Notification
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Notification{}).Where("recipient_employee_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Where("recipient_employee_id = ?", recipientID)
	if unreadOnly {
		fetchQuery = fetchQuery.Where("is_read = ?", false)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkRead flags a notification as read; only its recipient may do so
func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	result := GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("id = ? AND recipient_employee_id = ?", id, recipientID).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *notificationRepository) MarkEmailSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	return GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"email_sent": true, "email_sent_at": sentAt}).Error
}

func (r *notificationRepository) DeleteByIdea(ctx context.Context, ideaID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("idea_id = ?", ideaID).Delete(&model.Notification{}).Error
}
