package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ideaportal/internal/model"
	"ideaportal/internal/obs"
	"ideaportal/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type AdvanceInput struct {
	IdeaID              uuid.UUID
	ApproverEmployeeID  uuid.UUID
	Comments            string
	ValidatedSavingCost *decimal.Decimal
}

type RejectInput struct {
	IdeaID             uuid.UUID
	ApproverEmployeeID uuid.UUID
	Reason             string
}

type RequestInfoInput struct {
	IdeaID             uuid.UUID
	ApproverEmployeeID uuid.UUID
	InfoRequest        string
}

// ApproveRequest is the HTTP body of an approval
type ApproveRequest struct {
	Comments            string  `json:"comments"`
	ValidatedSavingCost *string `json:"validated_saving_cost"` // decimal string
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type RequestInfoRequest struct {
	InfoRequest string `json:"info_request" binding:"required"`
}

// WorkflowOptions tune how much the engine trusts its caller
type WorkflowOptions struct {
	// StrictAuthorization re-checks the caller's role, track and scope against the idea's
	// current stage and refuses out-of-turn actions.
	StrictAuthorization bool
}

// --- Interface ---

// WorkflowService is the idea state machine. Every transition runs in one transaction:
// row lock, audit row, guarded stage update and notification rows commit or roll back together.
type WorkflowService interface {
	Advance(ctx context.Context, in AdvanceInput) (*model.Idea, error)
	Reject(ctx context.Context, in RejectInput) (*model.Idea, error)
	RequestMoreInfo(ctx context.Context, in RequestInfoInput) (*model.Idea, error)
	GetPendingApprovalsForUser(ctx context.Context, employeeID uuid.UUID) ([]model.Idea, error)
}

type workflowService struct {
	txManager  repository.TransactionManager
	ideas      repository.IdeaRepository
	history    repository.ApprovalHistoryRepository
	users      repository.UserRepository
	resolver   ApproverResolver
	dispatcher NotificationDispatcher
	opts       WorkflowOptions
	log        zerolog.Logger
}

func NewWorkflowService(
	txManager repository.TransactionManager,
	ideas repository.IdeaRepository,
	history repository.ApprovalHistoryRepository,
	users repository.UserRepository,
	resolver ApproverResolver,
	dispatcher NotificationDispatcher,
	opts WorkflowOptions,
	log zerolog.Logger,
) WorkflowService {
	return &workflowService{
		txManager:  txManager,
		ideas:      ideas,
		history:    history,
		users:      users,
		resolver:   resolver,
		dispatcher: dispatcher,
		opts:       opts,
		log:        log.With().Str("component", "workflow").Logger(),
	}
}

// transition describes one state machine step. apply mutates the locked idea in memory
// and returns the column updates plus the notification rules to plan.
type transition struct {
	action     string
	ideaID     uuid.UUID
	approverID uuid.UUID
	comments   string
	validated  *decimal.Decimal
	apply      func(idea *model.Idea, now time.Time) (map[string]interface{}, []NotificationRule, error)
}

// --- Implementation ---

func (s *workflowService) Advance(ctx context.Context, in AdvanceInput) (*model.Idea, error) {
	if in.ValidatedSavingCost != nil && in.ValidatedSavingCost.IsNegative() {
		return nil, s.refuse(model.ActionApprove, in.IdeaID, fmt.Errorf("%w: validated saving cost must not be negative", ErrInvalidInput))
	}

	return s.run(ctx, transition{
		action:     model.ActionApprove,
		ideaID:     in.IdeaID,
		approverID: in.ApproverEmployeeID,
		comments:   strings.TrimSpace(in.Comments),
		validated:  in.ValidatedSavingCost,
		apply: func(idea *model.Idea, now time.Time) (map[string]interface{}, []NotificationRule, error) {
			newStage := idea.CurrentStage + 1
			if newStage > idea.MaxStage {
				return nil, nil, fmt.Errorf("%w: idea is already at its final stage %d", ErrInvalidState, idea.MaxStage)
			}

			updates := map[string]interface{}{"current_stage": newStage}
			if in.ValidatedSavingCost != nil {
				updates["validated_saving_cost"] = *in.ValidatedSavingCost
				idea.ValidatedSavingCost = in.ValidatedSavingCost
			}

			idea.CurrentStage = newStage
			if newStage >= idea.MaxStage {
				idea.Status = model.IdeaStatusCompleted
				idea.CompletedAt = &now
				updates["completed_at"] = now
			} else {
				idea.Status = model.IdeaStatusUnderReview
			}
			updates["status"] = idea.Status

			return updates, AdvanceRules(idea.WorkflowType, newStage, idea.MaxStage), nil
		},
	})
}

func (s *workflowService) Reject(ctx context.Context, in RejectInput) (*model.Idea, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, s.refuse(model.ActionReject, in.IdeaID, ErrReasonRequired)
	}

	return s.run(ctx, transition{
		action:     model.ActionReject,
		ideaID:     in.IdeaID,
		approverID: in.ApproverEmployeeID,
		comments:   reason,
		apply: func(idea *model.Idea, _ time.Time) (map[string]interface{}, []NotificationRule, error) {
			idea.Status = model.IdeaStatusRejected
			idea.RejectReason = &reason
			return map[string]interface{}{
				"status":        idea.Status,
				"reject_reason": reason,
			}, rejectRules, nil
		},
	})
}

func (s *workflowService) RequestMoreInfo(ctx context.Context, in RequestInfoInput) (*model.Idea, error) {
	request := strings.TrimSpace(in.InfoRequest)
	if request == "" {
		return nil, s.refuse(model.ActionRequestInfo, in.IdeaID, fmt.Errorf("%w: the information request text is empty", ErrInvalidInput))
	}

	return s.run(ctx, transition{
		action:     model.ActionRequestInfo,
		ideaID:     in.IdeaID,
		approverID: in.ApproverEmployeeID,
		comments:   request,
		apply: func(idea *model.Idea, _ time.Time) (map[string]interface{}, []NotificationRule, error) {
			idea.Status = model.IdeaStatusMoreInfoRequired
			idea.InfoRequest = &request
			return map[string]interface{}{
				"status":       idea.Status,
				"info_request": request,
			}, moreInfoRules, nil
		},
	})
}

// GetPendingApprovalsForUser lists ideas whose next stage the user's role approves,
// restricted to the user's part of the organization, oldest submission first.
func (s *workflowService) GetPendingApprovalsForUser(ctx context.Context, employeeID uuid.UUID) ([]model.Idea, error) {
	user, err := s.users.FindActiveByEmployeeID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn().Str("employee_id", employeeID.String()).Msg("pending approvals requested for unknown user")
			return nil, ErrApproverNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	filter, ok := pendingFilterFor(user)
	if !ok {
		return []model.Idea{}, nil
	}

	ideas, err := s.ideas.ListPending(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending ideas: %w", err)
	}
	return ideas, nil
}

// --- Helpers ---

func (s *workflowService) run(ctx context.Context, t transition) (*model.Idea, error) {
	var (
		result  *model.Idea
		planned []model.Notification
	)

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		idea, err := s.ideas.FindByIDForUpdate(txCtx, t.ideaID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrIdeaNotFound
			}
			return fmt.Errorf("failed to load idea: %w", err)
		}

		actor, err := s.users.FindActiveByEmployeeID(txCtx, t.approverID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApproverNotFound
			}
			return fmt.Errorf("failed to load approver: %w", err)
		}

		if err := s.authorize(txCtx, idea, actor, t.action); err != nil {
			return err
		}

		fromStage, fromStatus := idea.CurrentStage, idea.Status
		now := time.Now().UTC()

		entry := model.ApprovalHistory{
			IdeaID:              idea.ID,
			Stage:               fromStage,
			Action:              t.action,
			ActorUserID:         actor.ID,
			ActorEmployeeID:     actor.EmployeeID,
			Comments:            t.comments,
			ValidatedSavingCost: t.validated,
			CreatedAt:           now,
		}
		if err := s.history.Create(txCtx, &entry); err != nil {
			return fmt.Errorf("failed to write approval history: %w", err)
		}

		updates, rules, err := t.apply(idea, now)
		if err != nil {
			return err
		}
		if err := s.ideas.ApplyTransition(txCtx, idea.ID, fromStage, fromStatus, updates); err != nil {
			if errors.Is(err, repository.ErrConcurrentUpdate) {
				return ErrStageConflict
			}
			return fmt.Errorf("failed to update idea: %w", err)
		}

		planned, err = s.dispatcher.Plan(txCtx, idea, rules, NoticeContext{Actor: actor.Employee, Note: t.comments})
		if err != nil {
			return err
		}

		result = idea
		return nil
	})
	if err != nil {
		return nil, s.refuse(t.action, t.ideaID, err)
	}

	obs.IdeaTransitions.WithLabelValues(t.action, "ok").Inc()
	s.log.Info().
		Str("idea_id", result.ID.String()).
		Str("action", t.action).
		Int("stage", result.CurrentStage).
		Str("status", result.Status).
		Str("approver_id", t.approverID.String()).
		Msg("workflow transition committed")

	s.dispatcher.Deliver(ctx, result, planned)
	return result, nil
}

// authorize refuses actions that would break the state machine, and in strict mode
// actions by anyone other than a legitimate approver of the idea's next stage.
func (s *workflowService) authorize(ctx context.Context, idea *model.Idea, actor *model.User, action string) error {
	if idea.IsTerminal() {
		return fmt.Errorf("%w: idea is %s", ErrInvalidState, idea.Status)
	}
	if action == model.ActionApprove && idea.CurrentStage >= idea.MaxStage {
		return fmt.Errorf("%w: idea is already at its final stage %d", ErrInvalidState, idea.MaxStage)
	}
	if !s.opts.StrictAuthorization {
		return nil
	}

	if !idea.AwaitingDecision() {
		return fmt.Errorf("%w: idea is %s", ErrInvalidState, idea.Status)
	}
	if actor.Role == nil || !actor.Role.IsApprover() {
		return ErrUnauthorizedTurn
	}
	if actor.Role.IsSuperPrivileged() {
		return nil
	}

	nextStage := idea.CurrentStage + 1
	if !actor.Role.QualifiesForStage(idea.WorkflowType, nextStage) {
		return fmt.Errorf("%w: role %s does not approve stage %d of %s ideas", ErrUnauthorizedTurn, actor.Role.ID, nextStage, idea.WorkflowType)
	}
	if scopeMatches(actor.Role.Scope, actor.Employee, idea) {
		return nil
	}

	// The resolver may have fallen back to a wider scope; its choice is legitimate too
	resolved, err := s.resolver.NextApproverFor(ctx, idea, nextStage)
	if err != nil {
		return fmt.Errorf("failed to resolve approver: %w", err)
	}
	if resolved != nil && resolved.ID == actor.EmployeeID {
		return nil
	}
	return fmt.Errorf("%w: idea belongs to another part of the organization", ErrUnauthorizedTurn)
}

func (s *workflowService) refuse(action string, ideaID uuid.UUID, err error) error {
	obs.IdeaTransitions.WithLabelValues(action, "refused").Inc()

	event := s.log.Warn()
	if !isExpectedOutcome(err) {
		event = s.log.Error()
	}
	event.Err(err).Str("idea_id", ideaID.String()).Str("action", action).Msg("workflow transition not applied")
	return err
}

func isExpectedOutcome(err error) bool {
	for _, expected := range []error{
		ErrIdeaNotFound, ErrApproverNotFound, ErrUnauthorizedTurn, ErrInvalidState,
		ErrStageConflict, ErrReasonRequired, ErrInvalidInput, ErrNotOwner,
	} {
		if errors.Is(err, expected) {
			return true
		}
	}
	return false
}

// scopeMatches compares the idea's target organization with the approver's own
func scopeMatches(scope model.RoleScope, employee *model.Employee, idea *model.Idea) bool {
	switch scope {
	case model.ScopeCompany:
		return true
	case model.ScopeDivision:
		return employee != nil && sameID(employee.DivisionID, idea.TargetDivisionID)
	case model.ScopeDepartment:
		if employee == nil || !sameID(employee.DepartmentID, idea.TargetDepartmentID) {
			return false
		}
		if employee.DivisionID != nil && idea.TargetDivisionID != nil {
			return *employee.DivisionID == *idea.TargetDivisionID
		}
		return true
	default:
		return false
	}
}

// pendingFilterFor builds the pending-approval query for a user; ok is false when
// the user can never see anything.
func pendingFilterFor(user *model.User) (repository.PendingFilter, bool) {
	filter := repository.PendingFilter{
		Statuses: []string{model.IdeaStatusSubmitted, model.IdeaStatusUnderReview},
	}
	role := user.Role
	if role == nil || !role.IsApprover() {
		return filter, false
	}
	if role.IsSuperPrivileged() {
		return filter, true
	}

	stage := role.ApprovalLevel - 1
	filter.Stage = &stage
	if role.CanApproveStandard {
		filter.WorkflowTypes = append(filter.WorkflowTypes, model.WorkflowStandard)
	}
	if role.CanApproveHighValue {
		filter.WorkflowTypes = append(filter.WorkflowTypes, model.WorkflowHighValue)
	}
	if len(filter.WorkflowTypes) == 0 {
		return filter, false
	}

	employee := user.Employee
	switch role.Scope {
	case model.ScopeDepartment:
		if employee == nil || employee.DepartmentID == nil {
			return filter, false
		}
		filter.DepartmentID = employee.DepartmentID
		filter.DivisionID = employee.DivisionID
	case model.ScopeDivision:
		if employee == nil || employee.DivisionID == nil {
			return filter, false
		}
		filter.DivisionID = employee.DivisionID
	}
	return filter, true
}

func sameID(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}
