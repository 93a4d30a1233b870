package service

import (
	"context"
	"errors"
	"fmt"

	"ideaportal/internal/model"
	"ideaportal/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService is the recipient's inbox over the rows the dispatcher writes
type NotificationService interface {
	ListMine(ctx context.Context, employeeID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id, employeeID uuid.UUID) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) ListMine(ctx context.Context, employeeID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	items, total, err := s.repo.ListByRecipient(ctx, employeeID, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, employeeID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, employeeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
