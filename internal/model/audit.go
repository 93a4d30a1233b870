package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActionUpdateThreshold is logged when an administrator changes the HIGH_VALUE threshold
const ActionUpdateThreshold = "UPDATE_HIGH_VALUE_THRESHOLD"

// AuditLog tracks who changed portal configuration and when.
// Idea decisions live in ApprovalHistory, not here.
type AuditLog struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ActorEmployeeID *uuid.UUID     `gorm:"type:uuid;index" json:"actor_employee_id"` // Nil for CLI and startup jobs
	ActorEmployee   *Employee      `gorm:"foreignKey:ActorEmployeeID" json:"actor_employee,omitempty"`
	Action          string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID        string         `gorm:"type:varchar(100);index" json:"entity_id"`
	Details         datatypes.JSON `json:"details"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
