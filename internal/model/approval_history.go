package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ApprovalAction enum constants
const (
	ActionApprove     = "APPROVE"
	ActionReject      = "REJECT"
	ActionRequestInfo = "REQUEST_INFO"
)

// ApprovalHistory is the append-only audit trail of approval decisions.
// Rows are never updated or deleted.
type ApprovalHistory struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	IdeaID              uuid.UUID        `gorm:"type:uuid;not null;index" json:"idea_id"`
	Stage               int              `gorm:"type:int;not null" json:"stage"` // CurrentStage at the time of the action
	Action              string           `gorm:"type:varchar(20);not null;index" json:"action"`
	ActorUserID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"actor_user_id"`
	ActorEmployeeID     uuid.UUID        `gorm:"type:uuid;not null" json:"actor_employee_id"`
	ActorEmployee       *Employee        `gorm:"foreignKey:ActorEmployeeID" json:"actor_employee,omitempty"`
	Comments            string           `gorm:"type:text" json:"comments"`
	ValidatedSavingCost *decimal.Decimal `gorm:"type:decimal(18,2)" json:"validated_saving_cost"`
	CreatedAt           time.Time        `gorm:"index" json:"created_at"`
}

func (h *ApprovalHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	return nil
}
