package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ideaportal/internal/mailer"
	"ideaportal/internal/model"
	"ideaportal/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverQueuesEmailAndPublishesEvents(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")

	jobs := f.mail.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, f.leaderA1.Email, jobs[0].To)
	assert.Equal(t, "Approval required: Reuse pallet wrap", jobs[0].Subject)
	assert.Contains(t, jobs[0].HTMLBody, "https://ideas.example.com/ideas/"+idea.ID.String())
	assert.Contains(t, jobs[0].HTMLBody, "0 / 3")

	events := f.events.Events()
	require.Len(t, events, 2)
	assert.Equal(t, f.leaderA1.ID, events[0].to)
	assert.Equal(t, "notification.created", events[0].event)
	assert.Equal(t, "idea.updated", events[1].event)
	assert.Equal(t, idea.ID, events[1].data.(map[string]interface{})["idea_id"])
}

func TestEmailSentFlagsTheNotification(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")
	job := f.mail.Jobs()[0]

	f.dispatcher.EmailSent(f.ctx, job, time.Now().UTC())

	rows := f.notificationsFor(idea.ID)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].EmailSent)
	assert.NotNil(t, rows[0].EmailSentAt)

	// jobs not tied to a notification are ignored
	f.dispatcher.EmailSent(f.ctx, mailer.Job{To: "ops@example.com"}, time.Now())
}

func TestPlanResolvesEachRecipientKind(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")
	idea.Initiator = nil

	rules := []NotificationRule{
		{RecipientInitiator, model.NotifyStageApproved, model.PriorityNormal},
		{RecipientWorkstreamLeader, model.NotifyStageUpdate, model.PriorityNormal},
		{RecipientWorkstreamLeader, model.NotifyMilestoneRequired, model.PriorityHigh},
		{RecipientNextApprover, model.NotifyApprovalRequired, model.PriorityHigh},
	}
	rows, err := f.dispatcher.Plan(f.ctx, idea, rules, NoticeContext{Actor: &f.deptManagerA1, Note: "fine"})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, f.initiator.ID, rows[0].RecipientEmployeeID)
	assert.Contains(t, rows[0].Message, f.deptManagerA1.Name)
	assert.Equal(t, f.leaderA1.ID, rows[1].RecipientEmployeeID)
	assert.Equal(t, f.leaderA1.ID, rows[2].RecipientEmployeeID)
	assert.Equal(t, f.leaderA1.ID, rows[3].RecipientEmployeeID)
	for _, row := range rows {
		assert.Equal(t, idea.ID, row.IdeaID)
		assert.NotEmpty(t, row.Title)
	}
}

type failingEmployees struct {
	repository.EmployeeRepository
}

func (failingEmployees) FindByID(context.Context, uuid.UUID) (*model.Employee, error) {
	return nil, errors.New("relation \"employees\" is unavailable")
}

func TestPlanSkipsRecipientWhoseLookupFails(t *testing.T) {
	f := newFixture(t, true)
	idea := f.submit("5000")
	idea.Initiator = nil

	dispatcher := NewNotificationDispatcher(f.resolver, failingEmployees{f.employeeRepo}, f.notificationRepo, nil, nil, "", f.log)
	rules := []NotificationRule{
		{RecipientInitiator, model.NotifyStageApproved, model.PriorityNormal},
		{RecipientWorkstreamLeader, model.NotifyStageUpdate, model.PriorityNormal},
	}

	var rows []model.Notification
	err := f.txManager.RunInTx(f.ctx, func(txCtx context.Context) error {
		var planErr error
		rows, planErr = dispatcher.Plan(txCtx, idea, rules, NoticeContext{Actor: &f.leaderA1})
		return planErr
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, f.leaderA1.ID, rows[0].RecipientEmployeeID)

	stored := typesFor(f.notificationsFor(idea.ID), f.leaderA1.ID)
	assert.Contains(t, stored, model.NotifyStageUpdate)
}

func TestComposeNoticeIncludesReason(t *testing.T) {
	idea := &model.Idea{Title: "Solar roof", CurrentStage: 2, MaxStage: 6}
	actor := &model.Employee{Name: "Dana"}

	title, message := composeNotice(model.NotifyIdeaRejected, idea, NoticeContext{Actor: actor, Note: "Payback too long"})
	assert.Equal(t, "Idea rejected: Solar roof", title)
	assert.Contains(t, message, "Dana")
	assert.Contains(t, message, "Payback too long")

	_, message = composeNotice(model.NotifyMoreInfoRequired, idea, NoticeContext{})
	assert.Contains(t, message, "An approver")
}

func TestRenderEmailEscapesContent(t *testing.T) {
	n := model.Notification{Title: "Idea <b>", Message: "<script>alert(1)</script>"}
	body, err := renderEmail(n, &model.Idea{Title: "x", WorkflowType: model.WorkflowStandard, MaxStage: 3}, "")
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "Open the idea")
}
