package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ideaportal/internal/model"
	"ideaportal/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

type AuditLogResponse struct {
	ID        string          `json:"id"`
	ActorID   string          `json:"actor_id"`
	ActorName string          `json:"actor_name"`
	Action    string          `json:"action"`
	EntityID  string          `json:"entity_id"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditLogQuery selects entries by action and by who made the change.
// A nil ActorID with System set selects changes made without an acting employee.
type AuditLogQuery struct {
	Action  string
	ActorID *uuid.UUID
	System  bool
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, query AuditLogQuery, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) GetAuditLogs(ctx context.Context, query AuditLogQuery, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.repo.Find(ctx, repository.AuditFilter{
		Action:          strings.ToUpper(strings.TrimSpace(query.Action)),
		ActorEmployeeID: query.ActorID,
		SystemOnly:      query.System,
	}, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		entry := AuditLogResponse{
			ID:        l.ID.String(),
			ActorName: "System",
			Action:    l.Action,
			EntityID:  l.EntityID,
			Details:   json.RawMessage(l.Details),
			CreatedAt: l.CreatedAt,
		}
		if l.ActorEmployeeID != nil {
			entry.ActorID = l.ActorEmployeeID.String()
		}
		if l.ActorEmployee != nil {
			entry.ActorName = l.ActorEmployee.Name
		}
		res = append(res, entry)
	}
	return res, total, nil
}

// auditWriter records administrative changes. Failures are logged, never returned.
type auditWriter struct {
	repo repository.AuditRepository
	log  zerolog.Logger
}

func (w auditWriter) write(ctx context.Context, actorID uuid.UUID, action, entityID string, details interface{}) {
	if w.repo == nil {
		return
	}
	raw, err := json.Marshal(details)
	if err != nil {
		raw = nil
	}

	entry := model.AuditLog{Action: action, EntityID: entityID, Details: datatypes.JSON(raw)}
	if actorID != uuid.Nil {
		entry.ActorEmployeeID = &actorID
	}
	if err := w.repo.Log(ctx, &entry); err != nil {
		w.log.Warn().Err(err).Str("action", action).Msg("failed to write audit log")
	}
}
