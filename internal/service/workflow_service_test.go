package service

import (
	"context"
	"errors"
	"testing"

	"ideaportal/internal/model"
	"ideaportal/internal/obs"
	"ideaportal/internal/repository"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestStandardIdeaCompletesAfterThreeStages(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")

	assert.Equal(t, model.WorkflowStandard, idea.WorkflowType)
	assert.Equal(t, 3, idea.MaxStage)
	assert.Equal(t, 0, idea.CurrentStage)
	assert.Equal(t, model.IdeaStatusSubmitted, idea.Status)

	for i, approver := range []model.Employee{f.leaderA1, f.deptManagerA1, f.divisionGMA} {
		updated, err := f.approve(idea.ID, approver)
		require.NoError(t, err, "stage %d", i+1)
		assert.Equal(t, i+1, updated.CurrentStage)
	}

	final := f.reload(idea.ID)
	assert.Equal(t, 3, final.CurrentStage)
	assert.Equal(t, model.IdeaStatusCompleted, final.Status)
	assert.NotNil(t, final.CompletedAt)
	assert.Equal(t, int64(3), f.historyCount(idea.ID))

	rows := f.notificationsFor(idea.ID)
	assert.Len(t, rows, 9)
	assert.ElementsMatch(t, []string{
		model.NotifyApprovalRequired,
		model.NotifyStageUpdate,
		model.NotifyMilestoneRequired,
		model.NotifyMilestoneSavingReportRequired,
	}, typesFor(rows, f.leaderA1.ID))
	assert.ElementsMatch(t, []string{
		model.NotifyStageApproved,
		model.NotifyStageApproved,
		model.NotifyIdeaCompleted,
	}, typesFor(rows, f.initiator.ID))
	assert.Equal(t, []string{model.NotifyApprovalRequired}, typesFor(rows, f.deptManagerA1.ID))
	assert.Equal(t, []string{model.NotifyApprovalRequired}, typesFor(rows, f.divisionGMA.ID))
}

func TestHighValueIdeaCompletesAfterSixStages(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("25000")

	assert.Equal(t, model.WorkflowHighValue, idea.WorkflowType)
	assert.Equal(t, 6, idea.MaxStage)

	approvers := []model.Employee{f.leaderA1, f.seniorMgrA1, f.divisionGMA, f.finController, f.finDirector, f.executive}
	for i, approver := range approvers {
		updated, err := f.approve(idea.ID, approver)
		require.NoError(t, err, "stage %d", i+1)
		if i < len(approvers)-1 {
			assert.Equal(t, model.IdeaStatusUnderReview, updated.Status)
		}
	}

	final := f.reload(idea.ID)
	assert.Equal(t, 6, final.CurrentStage)
	assert.Equal(t, model.IdeaStatusCompleted, final.Status)

	_, err := f.approve(idea.ID, f.admin)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, int64(6), f.historyCount(idea.ID))

	rows := f.notificationsFor(idea.ID)
	leader := typesFor(rows, f.leaderA1.ID)
	assert.Contains(t, leader, model.NotifyMilestoneSavingRequired)
	assert.Contains(t, leader, model.NotifyCompletionReportRequired)
	assert.Contains(t, leader, model.NotifyIdeaCompleted)
	assert.Contains(t, typesFor(rows, f.initiator.ID), model.NotifyIdeaCompleted)
}

func TestAdvanceRecordsValidatedSavingCost(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")

	validated := dec("4200.50")
	updated, err := f.workflow.Advance(f.ctx, AdvanceInput{
		IdeaID:              idea.ID,
		ApproverEmployeeID:  f.leaderA1.ID,
		Comments:            "  numbers checked  ",
		ValidatedSavingCost: &validated,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ValidatedSavingCost)
	assert.True(t, validated.Equal(*updated.ValidatedSavingCost))

	stored := f.reload(idea.ID)
	require.NotNil(t, stored.ValidatedSavingCost)
	assert.True(t, validated.Equal(*stored.ValidatedSavingCost))

	history, err := f.historyRepo.ListByIdea(f.ctx, idea.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.ActionApprove, history[0].Action)
	assert.Equal(t, 0, history[0].Stage)
	assert.Equal(t, "numbers checked", history[0].Comments)
	require.NotNil(t, history[0].ActorEmployee)
	assert.Equal(t, f.leaderA1.Name, history[0].ActorEmployee.Name)
}

func TestAdvanceRejectsNegativeValidatedSaving(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")

	negative := dec("-1")
	_, err := f.workflow.Advance(f.ctx, AdvanceInput{IdeaID: idea.ID, ApproverEmployeeID: f.leaderA1.ID, ValidatedSavingCost: &negative})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, int64(0), f.historyCount(idea.ID))
}

func TestRejectRequiresReasonAndIsTerminal(t *testing.T) {
	f := newFixture(t, false)
	idea := f.submit("5000")

	_, err := f.workflow.Reject(f.ctx, RejectInput{IdeaID: idea.ID, ApproverEmployeeID: f.leaderA1.ID, Reason: "   "})
	assert.ErrorIs(t, err, ErrReasonRequired)
	assert.Equal(t, int64(0), f.historyCount(idea.ID))

	rejected, err := f.workflow.Reject(f.ctx, RejectInput{IdeaID: idea.ID, ApproverEmployeeID: f.leaderA1.ID, Reason: "No budget this year"})
	require.NoError(t, err)
	assert.Equal(t, model.IdeaStatusRejected, rejected.Status)
	assert.Equal(t, 0, rejected.CurrentStage)
	require.NotNil(t, rejected.RejectReason)
	assert.Equal(t, "No budget this year", *rejected.RejectReason)

	assert.Contains(t, typesFor(f.notificationsFor(idea.ID), f.initiator.ID), model.NotifyIdeaRejected)

	// terminal even without strict authorization
	_, err = f.approve(idea.ID, f.leaderA1)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.workflow.Reject(f.ctx, RejectInput{IdeaID: idea.ID, ApproverEmployeeID: f.leaderA1.ID, Reason: "again"})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, int64(1), f.historyCount(idea.ID))
}

func TestHighValueRejectFreezesStage(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("50000")
	require.Equal(t, model.WorkflowHighValue, idea.WorkflowType)

	_, err := f.approve(idea.ID, f.leaderA1)
	require.NoError(t, err)
	_, err = f.approve(idea.ID, f.seniorMgrA1)
	require.NoError(t, err)

	rejected, err := f.workflow.Reject(f.ctx, RejectInput{IdeaID: idea.ID, ApproverEmployeeID: f.divisionGMA.ID, Reason: "Overlaps with the 2027 capex plan"})
	require.NoError(t, err)
	assert.Equal(t, model.IdeaStatusRejected, rejected.Status)
	assert.Equal(t, 2, rejected.CurrentStage)

	stored := f.reload(idea.ID)
	assert.Equal(t, 2, stored.CurrentStage)
	assert.Equal(t, model.IdeaStatusRejected, stored.Status)
	require.NotNil(t, stored.RejectReason)
	assert.Equal(t, "Overlaps with the 2027 capex plan", *stored.RejectReason)

	history, err := f.historyRepo.ListByIdea(f.ctx, idea.ID)
	require.NoError(t, err)
	var rejects []model.ApprovalHistory
	for _, h := range history {
		if h.Action == model.ActionReject {
			rejects = append(rejects, h)
		}
	}
	require.Len(t, rejects, 1)
	assert.Equal(t, 2, rejects[0].Stage)
	assert.Equal(t, int64(3), f.historyCount(idea.ID))
}

func TestRequestMoreInfoThenResubmitReturnsToSameStage(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")
	_, err := f.approve(idea.ID, f.leaderA1)
	require.NoError(t, err)

	_, err = f.workflow.RequestMoreInfo(f.ctx, RequestInfoInput{IdeaID: idea.ID, ApproverEmployeeID: f.deptManagerA1.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	paused, err := f.workflow.RequestMoreInfo(f.ctx, RequestInfoInput{
		IdeaID:             idea.ID,
		ApproverEmployeeID: f.deptManagerA1.ID,
		InfoRequest:        "Which supplier quoted the wrap?",
	})
	require.NoError(t, err)
	assert.Equal(t, model.IdeaStatusMoreInfoRequired, paused.Status)
	assert.Equal(t, 1, paused.CurrentStage)
	assert.Contains(t, typesFor(f.notificationsFor(idea.ID), f.initiator.ID), model.NotifyMoreInfoRequired)

	_, err = f.approve(idea.ID, f.deptManagerA1)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.ideas.Resubmit(f.ctx, idea.ID, f.leaderA1.ID, "not mine")
	assert.ErrorIs(t, err, ErrNotOwner)

	resumed, err := f.ideas.Resubmit(f.ctx, idea.ID, f.initiator.ID, "Supplier X, quote attached")
	require.NoError(t, err)
	assert.Equal(t, model.IdeaStatusUnderReview, resumed.Status)
	assert.Equal(t, 1, resumed.CurrentStage)
	assert.Equal(t, int64(2), f.historyCount(idea.ID))
	assert.Contains(t, typesFor(f.notificationsFor(idea.ID), f.deptManagerA1.ID), model.NotifyIdeaResubmitted)

	updated, err := f.approve(idea.ID, f.deptManagerA1)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentStage)
}

func TestResubmitAtStageZeroReturnsToSubmitted(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")

	_, err := f.workflow.RequestMoreInfo(f.ctx, RequestInfoInput{IdeaID: idea.ID, ApproverEmployeeID: f.leaderA1.ID, InfoRequest: "Add a cost breakdown"})
	require.NoError(t, err)

	_, err = f.ideas.Resubmit(f.ctx, idea.ID, f.initiator.ID, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	resumed, err := f.ideas.Resubmit(f.ctx, idea.ID, f.initiator.ID, "Breakdown attached")
	require.NoError(t, err)
	assert.Equal(t, model.IdeaStatusSubmitted, resumed.Status)
	assert.Equal(t, 0, resumed.CurrentStage)

	_, err = f.ideas.Resubmit(f.ctx, idea.ID, f.initiator.ID, "twice")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStrictAuthorizationRefusesOutOfTurnApprovers(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")

	refused := testutil.ToFloat64(obs.IdeaTransitions.WithLabelValues(model.ActionApprove, "refused"))

	cases := map[string]model.Employee{
		"later stage role":     f.deptManagerA1,
		"other department":     f.leaderB1,
		"non approving role":   f.initiator,
		"company scoped level": f.finController,
	}
	for name, approver := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.approve(idea.ID, approver)
			assert.ErrorIs(t, err, ErrUnauthorizedTurn)
		})
	}

	assert.Equal(t, refused+float64(len(cases)), testutil.ToFloat64(obs.IdeaTransitions.WithLabelValues(model.ActionApprove, "refused")))
	assert.Equal(t, int64(0), f.historyCount(idea.ID))
	assert.Equal(t, 0, f.reload(idea.ID).CurrentStage)

	updated, err := f.approve(idea.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentStage)
}

func TestStrictAuthorizationAcceptsResolverFallback(t *testing.T) {
	f := newFixture(t, true)

	// department A2 has no workstream leader, so the division-level leader from A1 is resolved
	idea, err := f.ideas.CreateIdea(f.ctx, f.initiator.ID, CreateIdeaRequest{
		Title:              "Consolidate carriers",
		SavingCost:         "1200",
		TargetDepartmentID: f.deptA2.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, f.deptA2, *idea.TargetDepartmentID)
	assert.Equal(t, f.divA, *idea.TargetDivisionID)
	assert.Equal(t, []string{model.NotifyApprovalRequired}, typesFor(f.notificationsFor(idea.ID), f.leaderA1.ID))

	_, err = f.approve(idea.ID, f.leaderB1)
	assert.ErrorIs(t, err, ErrUnauthorizedTurn)

	updated, err := f.approve(idea.ID, f.leaderA1)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentStage)
}

func TestLenientModeOnlyGuardsTheStateMachine(t *testing.T) {
	f := newFixture(t, false)
	idea := f.submit("5000")

	updated, err := f.approve(idea.ID, f.deptManagerA1)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentStage)

	_, err = f.approve(uuid.New(), f.deptManagerA1)
	assert.ErrorIs(t, err, ErrIdeaNotFound)

	_, err = f.workflow.Advance(f.ctx, AdvanceInput{IdeaID: idea.ID, ApproverEmployeeID: uuid.New()})
	assert.ErrorIs(t, err, ErrApproverNotFound)
}

func TestPendingApprovalsFollowRoleStageAndScope(t *testing.T) {
	f := newFixture(t, true)
	standard := f.submit("5000")
	highValue := f.submit("90000")

	pendingIDs := func(employee model.Employee) []uuid.UUID {
		ideas, err := f.workflow.GetPendingApprovalsForUser(f.ctx, employee.ID)
		require.NoError(t, err)
		ids := make([]uuid.UUID, 0, len(ideas))
		for _, idea := range ideas {
			ids = append(ids, idea.ID)
		}
		return ids
	}

	assert.Equal(t, []uuid.UUID{standard.ID, highValue.ID}, pendingIDs(f.leaderA1))
	assert.Empty(t, pendingIDs(f.leaderB1))
	assert.Empty(t, pendingIDs(f.deptManagerA1))
	assert.Empty(t, pendingIDs(f.initiator))
	assert.ElementsMatch(t, []uuid.UUID{standard.ID, highValue.ID}, pendingIDs(f.admin))

	_, err := f.approve(standard.ID, f.leaderA1)
	require.NoError(t, err)
	_, err = f.approve(highValue.ID, f.leaderA1)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{standard.ID}, pendingIDs(f.deptManagerA1))
	assert.Equal(t, []uuid.UUID{highValue.ID}, pendingIDs(f.seniorMgrA1))
	assert.Empty(t, pendingIDs(f.leaderA1))

	_, err = f.workflow.RequestMoreInfo(f.ctx, RequestInfoInput{IdeaID: standard.ID, ApproverEmployeeID: f.deptManagerA1.ID, InfoRequest: "why?"})
	require.NoError(t, err)
	assert.Empty(t, pendingIDs(f.deptManagerA1))

	_, err = f.workflow.GetPendingApprovalsForUser(f.ctx, uuid.New())
	assert.ErrorIs(t, err, ErrApproverNotFound)
}

func TestTransitionRollsBackWhenNotificationsCannotBeStored(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")
	before := len(f.notificationsFor(idea.ID))

	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_notifications", func(tx *gorm.DB) {
		if tx.Statement.Table == "notifications" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	_, err := f.approve(idea.ID, f.leaderA1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStageConflict)

	require.NoError(t, f.db.Callback().Create().Remove("test:fail_notifications"))

	stored := f.reload(idea.ID)
	assert.Equal(t, 0, stored.CurrentStage)
	assert.Equal(t, model.IdeaStatusSubmitted, stored.Status)
	assert.Equal(t, int64(0), f.historyCount(idea.ID))
	assert.Len(t, f.notificationsFor(idea.ID), before)
}

// racingIdeaRepo moves the idea forward right before the guarded update, as a
// concurrent approver would.
type racingIdeaRepo struct {
	repository.IdeaRepository
	db *gorm.DB
}

func (r racingIdeaRepo) ApplyTransition(ctx context.Context, id uuid.UUID, fromStage int, fromStatus string, updates map[string]interface{}) error {
	if err := repository.GetDB(ctx, r.db).Model(&model.Idea{}).
		Where("id = ?", id).
		Update("current_stage", gorm.Expr("current_stage + 1")).Error; err != nil {
		return err
	}
	return r.IdeaRepository.ApplyTransition(ctx, id, fromStage, fromStatus, updates)
}

func TestConcurrentTransitionIsReportedAsStageConflict(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")
	before := len(f.notificationsFor(idea.ID))

	racing := f.newWorkflow(racingIdeaRepo{IdeaRepository: f.ideaRepo, db: f.db}, true)
	_, err := racing.Advance(f.ctx, AdvanceInput{IdeaID: idea.ID, ApproverEmployeeID: f.leaderA1.ID})
	assert.ErrorIs(t, err, ErrStageConflict)

	stored := f.reload(idea.ID)
	assert.Equal(t, 0, stored.CurrentStage)
	assert.Equal(t, int64(0), f.historyCount(idea.ID))
	assert.Len(t, f.notificationsFor(idea.ID), before)
}
