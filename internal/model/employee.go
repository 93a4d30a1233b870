package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmploymentStatus values
const (
	EmploymentActive     = "Active"
	EmploymentInactive   = "Inactive"
	EmploymentTerminated = "Terminated"
)

// Division is the top level of the organization structure
type Division struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Division) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Department belongs to exactly one Division
type Department struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DivisionID uuid.UUID `gorm:"type:uuid;not null;index" json:"division_id"`
	Division   *Division `gorm:"foreignKey:DivisionID" json:"division,omitempty"`
	Code       string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Employee is owned by the external HR directory; the workflow engine only reads it.
type Employee struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeNo       string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"employee_no"`
	Name             string     `gorm:"type:varchar(255);not null" json:"name"`
	Email            string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	DivisionID       *uuid.UUID `gorm:"type:uuid;index" json:"division_id"`
	DepartmentID     *uuid.UUID `gorm:"type:uuid;index" json:"department_id"`
	EmploymentStatus string     `gorm:"type:varchar(20);not null;default:'Active';index" json:"employment_status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the employee may currently act in the workflow
func (e Employee) IsActive() bool {
	return e.EmploymentStatus == EmploymentActive
}
