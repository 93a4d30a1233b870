package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType enum constants
const (
	NotifyApprovalRequired              = "APPROVAL_REQUIRED"
	NotifyStageApproved                 = "STAGE_APPROVED"
	NotifyStageUpdate                   = "STAGE_UPDATE"
	NotifyMilestoneRequired             = "MILESTONE_REQUIRED"
	NotifyMilestoneSavingRequired       = "MILESTONE_SAVING_REQUIRED"
	NotifyMilestoneSavingReportRequired = "MILESTONE_SAVING_REPORT_REQUIRED"
	NotifyCompletionReportRequired      = "COMPLETION_REPORT_REQUIRED"
	NotifyIdeaCompleted                 = "IDEA_COMPLETED"
	NotifyIdeaRejected                  = "IDEA_REJECTED"
	NotifyMoreInfoRequired              = "MORE_INFO_REQUIRED"
	NotifyIdeaResubmitted               = "IDEA_RESUBMITTED"
)

// NotificationPriority enum constants
const (
	PriorityHigh   = "HIGH"
	PriorityNormal = "NORMAL"
)

// Notification is a stakeholder communication generated by a workflow transition.
// The engine creates it; the inbox and the mailer later flip the read/sent flags.
type Notification struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	IdeaID              uuid.UUID      `gorm:"type:uuid;not null;index" json:"idea_id"`
	RecipientEmployeeID uuid.UUID      `gorm:"type:uuid;not null;index" json:"recipient_employee_id"`
	RecipientEmail      string         `gorm:"type:varchar(255)" json:"-"`
	Type                string         `gorm:"type:varchar(50);not null;index" json:"type"`
	Priority            string         `gorm:"type:varchar(10);not null;default:'NORMAL'" json:"priority"`
	Title               string         `gorm:"type:varchar(255);not null" json:"title"`
	Message             string         `gorm:"type:text" json:"message"`
	Payload             datatypes.JSON `json:"payload,omitempty"` // Template data for the email body
	IsRead              bool           `gorm:"default:false;index" json:"is_read"`
	ReadAt              *time.Time     `json:"read_at"`
	EmailSent           bool           `gorm:"default:false" json:"email_sent"`
	EmailSentAt         *time.Time     `json:"email_sent_at"`
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
