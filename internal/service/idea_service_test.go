package service

import (
	"testing"
	"time"

	"ideaportal/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIdeaValidatesInput(t *testing.T) {
	f := newFixture(t, true)

	cases := map[string]CreateIdeaRequest{
		"blank title":        {Title: "  ", SavingCost: "10"},
		"cost not a number":  {Title: "x", SavingCost: "ten"},
		"negative cost":      {Title: "x", SavingCost: "-5"},
		"bad department id":  {Title: "x", SavingCost: "10", TargetDepartmentID: "nope"},
		"unknown department": {Title: "x", SavingCost: "10", TargetDepartmentID: uuid.NewString()},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.ideas.CreateIdea(f.ctx, f.initiator.ID, req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := f.ideas.CreateIdea(f.ctx, uuid.New(), CreateIdeaRequest{Title: "x", SavingCost: "10"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateIdeaSnapshotsTheThreshold(t *testing.T) {
	f := newFixture(t, true)

	atDefault := f.submit("20000")
	assert.Equal(t, model.WorkflowHighValue, atDefault.WorkflowType)

	_, err := f.settings.UpdateHighValueThreshold(f.ctx, f.admin.ID, "50000")
	require.NoError(t, err)

	below := f.submit("20000")
	assert.Equal(t, model.WorkflowStandard, below.WorkflowType)
	assert.Equal(t, 3, below.MaxStage)

	// the earlier idea keeps its track
	assert.Equal(t, model.WorkflowHighValue, f.reload(atDefault.ID).WorkflowType)
}

func TestCreateIdeaNotifiesFirstApprover(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")

	rows := f.notificationsFor(idea.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, f.leaderA1.ID, rows[0].RecipientEmployeeID)
	assert.Equal(t, model.NotifyApprovalRequired, rows[0].Type)
	assert.Equal(t, model.PriorityHigh, rows[0].Priority)
	assert.Equal(t, f.leaderA1.Email, rows[0].RecipientEmail)
	assert.Contains(t, string(rows[0].Payload), idea.ID.String())
}

func TestCreateIdeaWithoutAnyApproverStillSucceeds(t *testing.T) {
	f := newFixture(t, true)
	f.deactivateUsers(f.leaderA1.ID)
	f.deactivateUsers(f.leaderB1.ID)

	idea := f.submit("5000")
	assert.Equal(t, model.IdeaStatusSubmitted, idea.Status)
	assert.Empty(t, f.notificationsFor(idea.ID))
	assert.Empty(t, f.mail.Jobs())
}

func TestListMyIdeasPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t, true)
	first := f.submit("100")
	time.Sleep(2 * time.Millisecond)
	second := f.submit("200")

	ideas, total, err := f.ideas.ListMyIdeas(f.ctx, f.initiator.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, ideas, 1)
	assert.Equal(t, second.ID, ideas[0].ID)

	ideas, _, err = f.ideas.ListMyIdeas(f.ctx, f.initiator.ID, 2, 1)
	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, first.ID, ideas[0].ID)

	ideas, total, err = f.ideas.ListMyIdeas(f.ctx, f.leaderA1.ID, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, ideas)
}

func TestGetIdeaAndHistory(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")
	_, err := f.approve(idea.ID, f.leaderA1)
	require.NoError(t, err)

	loaded, err := f.ideas.GetIdea(f.ctx, idea.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Initiator)
	assert.Equal(t, f.initiator.Name, loaded.Initiator.Name)

	history, err := f.ideas.GetHistory(f.ctx, idea.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, f.leaderA1.ID, history[0].ActorEmployeeID)

	_, err = f.ideas.GetIdea(f.ctx, uuid.New())
	assert.ErrorIs(t, err, ErrIdeaNotFound)
	_, err = f.ideas.GetHistory(f.ctx, uuid.New())
	assert.ErrorIs(t, err, ErrIdeaNotFound)
}

func TestDeleteIdeaOnlyBeforeAnyDecision(t *testing.T) {
	f := newFixture(t, true)
	fresh := f.submit("5000")
	decided := f.submit("5000")
	_, err := f.approve(decided.ID, f.leaderA1)
	require.NoError(t, err)

	assert.ErrorIs(t, f.ideas.DeleteIdea(f.ctx, fresh.ID, f.leaderA1.ID), ErrNotOwner)
	assert.ErrorIs(t, f.ideas.DeleteIdea(f.ctx, decided.ID, f.initiator.ID), ErrInvalidState)
	assert.ErrorIs(t, f.ideas.DeleteIdea(f.ctx, uuid.New(), f.initiator.ID), ErrIdeaNotFound)

	require.NoError(t, f.ideas.DeleteIdea(f.ctx, fresh.ID, f.initiator.ID))
	_, err = f.ideas.GetIdea(f.ctx, fresh.ID)
	assert.ErrorIs(t, err, ErrIdeaNotFound)
	assert.Empty(t, f.notificationsFor(fresh.ID))
}

func TestDeleteIdeaRefusesIdeaWithInfoRequestHistory(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")
	_, err := f.workflow.RequestMoreInfo(f.ctx, RequestInfoInput{IdeaID: idea.ID, ApproverEmployeeID: f.leaderA1.ID, InfoRequest: "scope?"})
	require.NoError(t, err)
	_, err = f.ideas.Resubmit(f.ctx, idea.ID, f.initiator.ID, "scope is line 3")
	require.NoError(t, err)

	// back to Submitted at stage 0, but the audit trail must survive
	assert.ErrorIs(t, f.ideas.DeleteIdea(f.ctx, idea.ID, f.initiator.ID), ErrInvalidState)
}
