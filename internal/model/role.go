package model

import (
	"time"
)

// RoleScope tells the approver resolver which geographic filter applies to a role
type RoleScope string

const (
	ScopeDepartment RoleScope = "DEPARTMENT"
	ScopeDivision   RoleScope = "DIVISION"
	ScopeCompany    RoleScope = "COMPANY"
)

// Approval levels with special meaning
const (
	ApprovalLevelNone       = 0
	ApprovalLevelSuperAdmin = 99
)

// Built-in role codes
const (
	RoleEmployee            = "R01"
	RoleWorkstreamLeader    = "R02"
	RoleDepartmentManager   = "R03"
	RoleSeniorManager       = "R04"
	RoleDivisionGM          = "R05"
	RoleFinanceController   = "R06"
	RoleFinanceDirector     = "R07"
	RoleExecutiveDirector   = "R08"
	RoleSystemAdministrator = "R99"
)

// Role is immutable reference data describing who may approve which stage of which track.
type Role struct {
	ID                  string    `gorm:"type:varchar(10);primaryKey" json:"id"`
	Name                string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	ApprovalLevel       int       `gorm:"type:int;not null;default:0;index" json:"approval_level"` // 0 = never approves, 99 = super-privileged
	CanApproveStandard  bool      `gorm:"default:false" json:"can_approve_standard"`
	CanApproveHighValue bool      `gorm:"default:false" json:"can_approve_high_value"`
	Scope               RoleScope `gorm:"type:varchar(20);not null;default:'COMPANY'" json:"scope"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// IsApprover reports whether the role takes part in approvals at all
func (r Role) IsApprover() bool {
	return r.ApprovalLevel != ApprovalLevelNone
}

// IsSuperPrivileged reports whether the role bypasses stage, track and scope filters
func (r Role) IsSuperPrivileged() bool {
	return r.ApprovalLevel == ApprovalLevelSuperAdmin
}

// CanApprove reports whether the role carries the capability flag for the given workflow type
func (r Role) CanApprove(workflowType WorkflowType) bool {
	switch workflowType {
	case WorkflowStandard:
		return r.CanApproveStandard
	case WorkflowHighValue:
		return r.CanApproveHighValue
	default:
		return false
	}
}

// QualifiesForStage reports whether the role approves targetStage on the given track
func (r Role) QualifiesForStage(workflowType WorkflowType, targetStage int) bool {
	return r.ApprovalLevel == targetStage && r.CanApprove(workflowType)
}
