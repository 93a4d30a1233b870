package service

import "errors"

// Workflow outcomes that callers translate into user-facing messages
var (
	ErrIdeaNotFound     = errors.New("idea not found")
	ErrApproverNotFound = errors.New("approver not found")
	ErrUnauthorizedTurn = errors.New("not this approver's turn")
	ErrInvalidState     = errors.New("idea is not in a state that allows this action")
	ErrStageConflict    = errors.New("idea was changed by another approval")
	ErrReasonRequired   = errors.New("a reason is required")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotOwner         = errors.New("only the initiator may do this")
)
