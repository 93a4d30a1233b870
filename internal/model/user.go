package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User binds one Employee to one Role. It is how an employee participates in approvals.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"employee_id"`
	Employee     *Employee      `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	RoleID       string         `gorm:"type:varchar(10);not null;index" json:"role_id"`
	Role         *Role          `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Username     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"type:varchar(255)" json:"-"` // Omit password hash from JSON responses
	IsActive     bool           `gorm:"not null;index" json:"is_active"`
	IsActing     bool           `gorm:"default:false" json:"is_acting"` // Deputy holder, loses tie-breaks to a permanent holder
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
