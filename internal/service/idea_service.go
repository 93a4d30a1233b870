package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ideaportal/internal/model"
	"ideaportal/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateIdeaRequest struct {
	Title              string `json:"title" binding:"required,max=255"`
	Description        string `json:"description"`
	SavingCost         string `json:"saving_cost" binding:"required"` // decimal string, e.g. "12500.50"
	TargetDepartmentID string `json:"target_department_id"`           // defaults to the initiator's department
}

type ResubmitRequest struct {
	Response string `json:"response" binding:"required"`
}

// --- Interface ---

// IdeaService owns the parts of an idea's life outside the approval decisions:
// submission, the initiator's answer to a request for information, and withdrawal.
type IdeaService interface {
	CreateIdea(ctx context.Context, initiatorID uuid.UUID, req CreateIdeaRequest) (*model.Idea, error)
	GetIdea(ctx context.Context, id uuid.UUID) (*model.Idea, error)
	ListMyIdeas(ctx context.Context, initiatorID uuid.UUID, page, limit int) ([]model.Idea, int64, error)
	DeleteIdea(ctx context.Context, id, initiatorID uuid.UUID) error
	Resubmit(ctx context.Context, id, initiatorID uuid.UUID, response string) (*model.Idea, error)
	GetHistory(ctx context.Context, id uuid.UUID) ([]model.ApprovalHistory, error)
}

type ideaService struct {
	txManager     repository.TransactionManager
	ideas         repository.IdeaRepository
	history       repository.ApprovalHistoryRepository
	employees     repository.EmployeeRepository
	notifications repository.NotificationRepository
	classifier    WorkflowClassifier
	dispatcher    NotificationDispatcher
	log           zerolog.Logger
}

func NewIdeaService(
	txManager repository.TransactionManager,
	ideas repository.IdeaRepository,
	history repository.ApprovalHistoryRepository,
	employees repository.EmployeeRepository,
	notifications repository.NotificationRepository,
	classifier WorkflowClassifier,
	dispatcher NotificationDispatcher,
	log zerolog.Logger,
) IdeaService {
	return &ideaService{
		txManager:     txManager,
		ideas:         ideas,
		history:       history,
		employees:     employees,
		notifications: notifications,
		classifier:    classifier,
		dispatcher:    dispatcher,
		log:           log.With().Str("component", "ideas").Logger(),
	}
}

// --- Implementation ---

// CreateIdea classifies the idea once, stores it at stage 0 and tells the stage 1 approver
func (s *ideaService) CreateIdea(ctx context.Context, initiatorID uuid.UUID, req CreateIdeaRequest) (*model.Idea, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	savingCost, err := decimal.NewFromString(strings.TrimSpace(req.SavingCost))
	if err != nil {
		return nil, fmt.Errorf("%w: saving_cost %q is not a number", ErrInvalidInput, req.SavingCost)
	}
	if savingCost.IsNegative() {
		return nil, fmt.Errorf("%w: saving_cost must not be negative", ErrInvalidInput)
	}

	initiator, err := s.employees.FindByID(ctx, initiatorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown initiator", ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to load initiator: %w", err)
	}

	divisionID, departmentID := initiator.DivisionID, initiator.DepartmentID
	if req.TargetDepartmentID != "" {
		deptID, err := uuid.Parse(req.TargetDepartmentID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid target_department_id", ErrInvalidInput)
		}
		dept, err := s.employees.FindDepartment(ctx, deptID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: unknown target department", ErrInvalidInput)
			}
			return nil, fmt.Errorf("failed to load department: %w", err)
		}
		divisionID, departmentID = &dept.DivisionID, &dept.ID
	}

	class := s.classifier.ClassifyWorkflow(ctx, savingCost)
	idea := &model.Idea{
		Title:              title,
		Description:        req.Description,
		InitiatorID:        initiator.ID,
		TargetDivisionID:   divisionID,
		TargetDepartmentID: departmentID,
		SavingCost:         savingCost,
		WorkflowType:       class.WorkflowType,
		MaxStage:           class.MaxStage,
		CurrentStage:       0,
		Status:             model.IdeaStatusSubmitted,
	}

	var planned []model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ideas.Create(txCtx, idea); err != nil {
			return fmt.Errorf("failed to create idea: %w", err)
		}
		idea.Initiator = initiator

		var planErr error
		planned, planErr = s.dispatcher.Plan(txCtx, idea, submissionRules, NoticeContext{Actor: initiator})
		return planErr
	})
	if err != nil {
		s.log.Error().Err(err).Str("initiator_id", initiatorID.String()).Msg("idea submission failed")
		return nil, err
	}

	s.log.Info().
		Str("idea_id", idea.ID.String()).
		Str("workflow_type", string(idea.WorkflowType)).
		Str("saving_cost", savingCost.String()).
		Str("threshold", class.Threshold.String()).
		Msg("idea submitted")

	s.dispatcher.Deliver(ctx, idea, planned)
	return idea, nil
}

func (s *ideaService) GetIdea(ctx context.Context, id uuid.UUID) (*model.Idea, error) {
	idea, err := s.ideas.FindByIDWithInitiator(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdeaNotFound
		}
		return nil, fmt.Errorf("failed to load idea: %w", err)
	}
	return idea, nil
}

func (s *ideaService) ListMyIdeas(ctx context.Context, initiatorID uuid.UUID, page, limit int) ([]model.Idea, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	ideas, total, err := s.ideas.ListByInitiator(ctx, initiatorID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ideas: %w", err)
	}
	return ideas, total, nil
}

// DeleteIdea withdraws an idea nobody has acted on yet. Ideas with any audit entry are kept.
func (s *ideaService) DeleteIdea(ctx context.Context, id, initiatorID uuid.UUID) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		idea, err := s.lockOwned(txCtx, id, initiatorID)
		if err != nil {
			return err
		}
		if idea.Status != model.IdeaStatusSubmitted || idea.CurrentStage != 0 {
			return fmt.Errorf("%w: only submitted ideas can be deleted", ErrInvalidState)
		}

		actions, err := s.history.CountByIdea(txCtx, idea.ID)
		if err != nil {
			return fmt.Errorf("failed to count approval history: %w", err)
		}
		if actions > 0 {
			return fmt.Errorf("%w: idea already has approval history", ErrInvalidState)
		}

		if err := s.notifications.DeleteByIdea(txCtx, idea.ID); err != nil {
			return fmt.Errorf("failed to delete notifications: %w", err)
		}
		if err := s.ideas.Delete(txCtx, idea.ID); err != nil {
			return fmt.Errorf("failed to delete idea: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("idea_id", id.String()).Msg("idea not deleted")
		return err
	}

	s.log.Info().Str("idea_id", id.String()).Msg("idea deleted by initiator")
	return nil
}

// Resubmit returns an idea from More Info Required to the approver of the same stage
func (s *ideaService) Resubmit(ctx context.Context, id, initiatorID uuid.UUID, response string) (*model.Idea, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, fmt.Errorf("%w: a response to the request is required", ErrInvalidInput)
	}

	var (
		result  *model.Idea
		planned []model.Notification
	)
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		idea, err := s.lockOwned(txCtx, id, initiatorID)
		if err != nil {
			return err
		}
		if idea.Status != model.IdeaStatusMoreInfoRequired {
			return fmt.Errorf("%w: idea is %s", ErrInvalidState, idea.Status)
		}

		fromStatus := idea.Status
		idea.Status = model.IdeaStatusUnderReview
		if idea.CurrentStage == 0 {
			idea.Status = model.IdeaStatusSubmitted
		}
		if err := s.ideas.ApplyTransition(txCtx, idea.ID, idea.CurrentStage, fromStatus, map[string]interface{}{"status": idea.Status}); err != nil {
			if errors.Is(err, repository.ErrConcurrentUpdate) {
				return ErrStageConflict
			}
			return fmt.Errorf("failed to update idea: %w", err)
		}

		planned, err = s.dispatcher.Plan(txCtx, idea, resubmitRules, NoticeContext{Actor: idea.Initiator, Note: response})
		if err != nil {
			return err
		}
		result = idea
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("idea_id", id.String()).Msg("idea not resubmitted")
		return nil, err
	}

	s.log.Info().Str("idea_id", id.String()).Int("stage", result.CurrentStage).Msg("idea resubmitted")
	s.dispatcher.Deliver(ctx, result, planned)
	return result, nil
}

func (s *ideaService) GetHistory(ctx context.Context, id uuid.UUID) ([]model.ApprovalHistory, error) {
	if _, err := s.GetIdea(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByIdea(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval history: %w", err)
	}
	return entries, nil
}

// --- Helpers ---

func (s *ideaService) lockOwned(ctx context.Context, id, initiatorID uuid.UUID) (*model.Idea, error) {
	idea, err := s.ideas.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdeaNotFound
		}
		return nil, fmt.Errorf("failed to load idea: %w", err)
	}
	if idea.InitiatorID != initiatorID {
		return nil, ErrNotOwner
	}
	return idea, nil
}
