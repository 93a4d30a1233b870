package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"ideaportal/internal/mailer"
	"ideaportal/internal/model"
	"ideaportal/internal/obs"
	"ideaportal/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

// MailEnqueuer hands an email to the async delivery queue
type MailEnqueuer interface {
	Enqueue(job mailer.Job) (string, error)
}

// EventPublisher pushes realtime events to connected clients
type EventPublisher interface {
	PublishTo(employeeID uuid.UUID, event string, data interface{})
	PublishAll(event string, data interface{})
}

// NoticeContext carries the transition details shown in notifications
type NoticeContext struct {
	Actor *model.Employee
	Note  string // comment, reject reason, info request or resubmission answer
}

type noticePayload struct {
	IdeaID       uuid.UUID          `json:"idea_id"`
	IdeaTitle    string             `json:"idea_title"`
	WorkflowType model.WorkflowType `json:"workflow_type"`
	Stage        int                `json:"stage"`
	MaxStage     int                `json:"max_stage"`
	Status       string             `json:"status"`
	ActorName    string             `json:"actor_name,omitempty"`
	Note         string             `json:"note,omitempty"`
	Link         string             `json:"link,omitempty"`
}

// NotificationDispatcher plans notification rows inside the workflow transaction
// and delivers them after commit. Delivery problems never reach the caller.
type NotificationDispatcher interface {
	Plan(ctx context.Context, idea *model.Idea, rules []NotificationRule, nc NoticeContext) ([]model.Notification, error)
	Deliver(ctx context.Context, idea *model.Idea, notifications []model.Notification)
	EmailSent(ctx context.Context, job mailer.Job, sentAt time.Time)
}

type notificationDispatcher struct {
	resolver      ApproverResolver
	employees     repository.EmployeeRepository
	notifications repository.NotificationRepository
	mail          MailEnqueuer
	events        EventPublisher
	baseURL       string
	log           zerolog.Logger
}

// NewNotificationDispatcher wires the dispatcher. mail and events may be nil.
func NewNotificationDispatcher(
	resolver ApproverResolver,
	employees repository.EmployeeRepository,
	notifications repository.NotificationRepository,
	mail MailEnqueuer,
	events EventPublisher,
	baseURL string,
	log zerolog.Logger,
) NotificationDispatcher {
	return &notificationDispatcher{
		resolver:      resolver,
		employees:     employees,
		notifications: notifications,
		mail:          mail,
		events:        events,
		baseURL:       strings.TrimRight(baseURL, "/"),
		log:           log.With().Str("component", "dispatcher").Logger(),
	}
}

// Plan resolves each rule's recipient against the idea's current state and inserts
// the resulting rows. Unresolvable recipients are skipped; only a failed insert is an error.
func (d *notificationDispatcher) Plan(ctx context.Context, idea *model.Idea, rules []NotificationRule, nc NoticeContext) ([]model.Notification, error) {
	if len(rules) == 0 {
		return nil, nil
	}

	resolved := make(map[RecipientKind]*model.Employee, 3)
	payload := d.payload(idea, nc)
	rows := make([]model.Notification, 0, len(rules))

	for _, rule := range rules {
		recipient, ok := resolved[rule.Recipient]
		if !ok {
			// a failed lookup must not abort the workflow transaction
			err := repository.Savepoint(ctx, func(spCtx context.Context) error {
				var lookupErr error
				recipient, lookupErr = d.recipient(spCtx, idea, rule.Recipient)
				return lookupErr
			})
			if err != nil {
				recipient = nil
				d.log.Warn().Err(err).Str("idea_id", idea.ID.String()).Str("recipient", string(rule.Recipient)).Msg("recipient lookup failed, skipping notification")
			}
			resolved[rule.Recipient] = recipient
		}
		if recipient == nil {
			d.log.Warn().
				Str("idea_id", idea.ID.String()).
				Str("recipient", string(rule.Recipient)).
				Str("type", rule.Type).
				Msg("no recipient resolved, skipping notification")
			continue
		}

		title, message := composeNotice(rule.Type, idea, nc)
		rows = append(rows, model.Notification{
			IdeaID:              idea.ID,
			RecipientEmployeeID: recipient.ID,
			RecipientEmail:      recipient.Email,
			Type:                rule.Type,
			Priority:            rule.Priority,
			Title:               title,
			Message:             message,
			Payload:             payload,
		})
	}

	if err := d.notifications.CreateBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to store notifications: %w", err)
	}
	for _, n := range rows {
		obs.NotificationsPlanned.WithLabelValues(n.Type).Inc()
	}
	return rows, nil
}

// Deliver queues emails and pushes realtime events for committed notifications
func (d *notificationDispatcher) Deliver(ctx context.Context, idea *model.Idea, notifications []model.Notification) {
	for _, n := range notifications {
		if d.mail != nil && n.RecipientEmail != "" {
			body, err := renderEmail(n, idea, d.link(idea))
			if err != nil {
				d.log.Error().Err(err).Str("notification_id", n.ID.String()).Msg("failed to render email")
			} else if _, err := d.mail.Enqueue(mailer.Job{
				NotificationID: n.ID,
				To:             n.RecipientEmail,
				Subject:        n.Title,
				HTMLBody:       body,
			}); err != nil {
				d.log.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("email not queued")
			}
		}
		if d.events != nil {
			d.events.PublishTo(n.RecipientEmployeeID, "notification.created", n)
		}
	}

	if d.events != nil && idea != nil {
		d.events.PublishAll("idea.updated", map[string]interface{}{
			"idea_id":       idea.ID,
			"status":        idea.Status,
			"current_stage": idea.CurrentStage,
			"max_stage":     idea.MaxStage,
		})
	}
}

// EmailSent records a successful delivery; used as the mail queue callback
func (d *notificationDispatcher) EmailSent(ctx context.Context, job mailer.Job, sentAt time.Time) {
	if job.NotificationID == uuid.Nil {
		return
	}
	if err := d.notifications.MarkEmailSent(ctx, job.NotificationID, sentAt); err != nil {
		d.log.Warn().Err(err).Str("notification_id", job.NotificationID.String()).Msg("failed to flag email as sent")
	}
}

// --- Helpers ---

func (d *notificationDispatcher) recipient(ctx context.Context, idea *model.Idea, kind RecipientKind) (*model.Employee, error) {
	switch kind {
	case RecipientInitiator:
		if idea.Initiator != nil {
			return idea.Initiator, nil
		}
		return d.employees.FindByID(ctx, idea.InitiatorID)
	case RecipientNextApprover:
		return d.resolver.NextApproverFor(ctx, idea, idea.CurrentStage+1)
	case RecipientWorkstreamLeader:
		return d.resolver.GetWorkstreamLeader(ctx, idea.TargetDivisionID, idea.TargetDepartmentID)
	default:
		return nil, fmt.Errorf("unknown recipient kind %q", kind)
	}
}

func (d *notificationDispatcher) payload(idea *model.Idea, nc NoticeContext) datatypes.JSON {
	p := noticePayload{
		IdeaID:       idea.ID,
		IdeaTitle:    idea.Title,
		WorkflowType: idea.WorkflowType,
		Stage:        idea.CurrentStage,
		MaxStage:     idea.MaxStage,
		Status:       idea.Status,
		Note:         nc.Note,
		Link:         d.link(idea),
	}
	if nc.Actor != nil {
		p.ActorName = nc.Actor.Name
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func (d *notificationDispatcher) link(idea *model.Idea) string {
	if d.baseURL == "" || idea == nil {
		return ""
	}
	return d.baseURL + "/ideas/" + idea.ID.String()
}

func composeNotice(notificationType string, idea *model.Idea, nc NoticeContext) (string, string) {
	actor := "An approver"
	if nc.Actor != nil && nc.Actor.Name != "" {
		actor = nc.Actor.Name
	}

	switch notificationType {
	case model.NotifyApprovalRequired:
		return "Approval required: " + idea.Title,
			fmt.Sprintf("The idea %q is waiting for your stage %d approval.", idea.Title, idea.CurrentStage+1)
	case model.NotifyStageApproved:
		return "Stage approved: " + idea.Title,
			fmt.Sprintf("%s approved stage %d of %d for your idea %q.", actor, idea.CurrentStage, idea.MaxStage, idea.Title)
	case model.NotifyStageUpdate:
		return "Workflow update: " + idea.Title,
			fmt.Sprintf("The idea %q moved to stage %d of %d.", idea.Title, idea.CurrentStage, idea.MaxStage)
	case model.NotifyMilestoneRequired:
		return "Milestone required: " + idea.Title,
			fmt.Sprintf("Please create the implementation milestones for %q.", idea.Title)
	case model.NotifyMilestoneSavingRequired:
		return "Milestone and saving input required: " + idea.Title,
			fmt.Sprintf("Please update the milestones and the realised saving for %q.", idea.Title)
	case model.NotifyMilestoneSavingReportRequired:
		return "Milestone and saving report required: " + idea.Title,
			fmt.Sprintf("The idea %q is approved. Please submit the milestone and saving report.", idea.Title)
	case model.NotifyCompletionReportRequired:
		return "Completion report required: " + idea.Title,
			fmt.Sprintf("Please prepare the completion readiness report for %q.", idea.Title)
	case model.NotifyIdeaCompleted:
		return "Idea completed: " + idea.Title,
			fmt.Sprintf("The idea %q has completed all %d approval stages.", idea.Title, idea.MaxStage)
	case model.NotifyIdeaRejected:
		return "Idea rejected: " + idea.Title,
			fmt.Sprintf("%s rejected your idea %q at stage %d. Reason: %s", actor, idea.Title, idea.CurrentStage, nc.Note)
	case model.NotifyMoreInfoRequired:
		return "More information required: " + idea.Title,
			fmt.Sprintf("%s needs more information about your idea %q: %s", actor, idea.Title, nc.Note)
	case model.NotifyIdeaResubmitted:
		return "Idea resubmitted: " + idea.Title,
			fmt.Sprintf("The initiator answered your request on %q and it is waiting for your stage %d approval.", idea.Title, idea.CurrentStage+1)
	default:
		return idea.Title, ""
	}
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>{{.Title}}</h2>
  <p>{{.Message}}</p>
  <table cellpadding="4">
    <tr><td>Idea</td><td><strong>{{.IdeaTitle}}</strong></td></tr>
    <tr><td>Track</td><td>{{.WorkflowType}}</td></tr>
    <tr><td>Stage</td><td>{{.Stage}} / {{.MaxStage}}</td></tr>
    <tr><td>Status</td><td>{{.Status}}</td></tr>
  </table>
  {{if .Link}}<p><a href="{{.Link}}">Open the idea</a></p>{{end}}
</body>
</html>`))

func renderEmail(n model.Notification, idea *model.Idea, link string) (string, error) {
	data := map[string]interface{}{
		"Title":   n.Title,
		"Message": n.Message,
		"Link":    link,
	}
	if idea != nil {
		data["IdeaTitle"] = idea.Title
		data["WorkflowType"] = idea.WorkflowType
		data["Stage"] = idea.CurrentStage
		data["MaxStage"] = idea.MaxStage
		data["Status"] = idea.Status
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
