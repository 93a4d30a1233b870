package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WorkflowType selects the approval track; it is fixed when the idea is created
type WorkflowType string

const (
	WorkflowStandard  WorkflowType = "STANDARD"
	WorkflowHighValue WorkflowType = "HIGH_VALUE"
)

// Stage counts per track
const (
	StandardMaxStage  = 3
	HighValueMaxStage = 6
)

// MaxStage returns the completion stage of the track, 0 for an unknown type
func (w WorkflowType) MaxStage() int {
	switch w {
	case WorkflowStandard:
		return StandardMaxStage
	case WorkflowHighValue:
		return HighValueMaxStage
	default:
		return 0
	}
}

// IdeaStatus constants
const (
	IdeaStatusSubmitted        = "Submitted"
	IdeaStatusUnderReview      = "Under Review"
	IdeaStatusMoreInfoRequired = "More Info Required"
	IdeaStatusRejected         = "Rejected"
	IdeaStatusCompleted        = "Completed"
)

// Idea is the subject of the approval workflow
type Idea struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Title               string           `gorm:"type:varchar(255);not null" json:"title"`
	Description         string           `gorm:"type:text" json:"description"`
	InitiatorID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"initiator_id"` // FK to employees.id
	Initiator           *Employee        `gorm:"foreignKey:InitiatorID" json:"initiator,omitempty"`
	TargetDivisionID    *uuid.UUID       `gorm:"type:uuid;index" json:"target_division_id"`
	TargetDepartmentID  *uuid.UUID       `gorm:"type:uuid;index" json:"target_department_id"`
	SavingCost          decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"saving_cost"`
	ValidatedSavingCost *decimal.Decimal `gorm:"type:decimal(18,2)" json:"validated_saving_cost"`
	WorkflowType        WorkflowType     `gorm:"type:varchar(20);not null;index" json:"workflow_type"`
	MaxStage            int              `gorm:"type:int;not null" json:"max_stage"`
	CurrentStage        int              `gorm:"type:int;not null;default:0" json:"current_stage"`
	Status              string           `gorm:"type:varchar(30);not null;default:'Submitted';index" json:"status"`
	RejectReason        *string          `gorm:"type:text" json:"reject_reason"`
	InfoRequest         *string          `gorm:"type:text" json:"info_request"` // Last "more info" request text
	SubmittedAt         time.Time        `gorm:"not null;index" json:"submitted_at"`
	CompletedAt         *time.Time       `json:"completed_at"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func (i *Idea) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.SubmittedAt.IsZero() {
		i.SubmittedAt = time.Now().UTC()
	}
	return nil
}

// IsTerminal reports whether no further transitions are allowed
func (i Idea) IsTerminal() bool {
	return i.Status == IdeaStatusRejected || i.Status == IdeaStatusCompleted
}

// AwaitingDecision reports whether an approver currently holds the idea
func (i Idea) AwaitingDecision() bool {
	return i.Status == IdeaStatusUnderReview || i.Status == IdeaStatusSubmitted
}
