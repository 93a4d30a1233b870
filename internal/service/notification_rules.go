package service

import (
	"ideaportal/internal/model"
)

// RecipientKind names a stakeholder relative to an idea
type RecipientKind string

const (
	RecipientNextApprover     RecipientKind = "NEXT_APPROVER"
	RecipientInitiator        RecipientKind = "INITIATOR"
	RecipientWorkstreamLeader RecipientKind = "WORKSTREAM_LEADER"
)

// NotificationRule says who receives which notification
type NotificationRule struct {
	Recipient RecipientKind
	Type      string
	Priority  string
}

type ruleKey struct {
	workflowType model.WorkflowType
	stage        int
}

var (
	notifyNextApprover   = NotificationRule{RecipientNextApprover, model.NotifyApprovalRequired, model.PriorityHigh}
	notifyInitiator      = NotificationRule{RecipientInitiator, model.NotifyStageApproved, model.PriorityNormal}
	notifyLeaderUpdate   = NotificationRule{RecipientWorkstreamLeader, model.NotifyStageUpdate, model.PriorityNormal}
	notifyLeaderComplete = NotificationRule{RecipientWorkstreamLeader, model.NotifyIdeaCompleted, model.PriorityNormal}

	leaderMilestone           = NotificationRule{RecipientWorkstreamLeader, model.NotifyMilestoneRequired, model.PriorityHigh}
	leaderMilestoneSaving     = NotificationRule{RecipientWorkstreamLeader, model.NotifyMilestoneSavingRequired, model.PriorityHigh}
	leaderMilestoneReport     = NotificationRule{RecipientWorkstreamLeader, model.NotifyMilestoneSavingReportRequired, model.PriorityHigh}
	leaderCompletionReadiness = NotificationRule{RecipientWorkstreamLeader, model.NotifyCompletionReportRequired, model.PriorityHigh}

	initiatorCompleted = NotificationRule{RecipientInitiator, model.NotifyIdeaCompleted, model.PriorityNormal}
)

// advanceRules is the fan-out after a successful approval, keyed by track and the stage just reached
var advanceRules = map[ruleKey][]NotificationRule{
	{model.WorkflowStandard, 1}: {notifyNextApprover, notifyInitiator},
	{model.WorkflowStandard, 2}: {notifyNextApprover, notifyInitiator, notifyLeaderUpdate, leaderMilestone},
	{model.WorkflowStandard, 3}: {leaderMilestoneReport},

	{model.WorkflowHighValue, 1}: {notifyNextApprover, notifyInitiator, notifyLeaderUpdate},
	{model.WorkflowHighValue, 2}: {notifyNextApprover, notifyInitiator, notifyLeaderUpdate, leaderMilestone},
	{model.WorkflowHighValue, 3}: {notifyNextApprover, notifyInitiator, notifyLeaderUpdate, leaderMilestoneSaving},
	{model.WorkflowHighValue, 4}: {notifyNextApprover, notifyInitiator, notifyLeaderUpdate, leaderMilestone},
	{model.WorkflowHighValue, 5}: {notifyNextApprover, notifyInitiator, notifyLeaderUpdate, leaderCompletionReadiness},
	{model.WorkflowHighValue, 6}: {notifyInitiator, notifyLeaderComplete},
}

var (
	submissionRules = []NotificationRule{notifyNextApprover}
	rejectRules     = []NotificationRule{{RecipientInitiator, model.NotifyIdeaRejected, model.PriorityHigh}}
	moreInfoRules   = []NotificationRule{{RecipientInitiator, model.NotifyMoreInfoRequired, model.PriorityHigh}}
	resubmitRules   = []NotificationRule{{RecipientNextApprover, model.NotifyIdeaResubmitted, model.PriorityHigh}}
)

// AdvanceRules returns the notifications owed once an idea reaches stage.
// Reaching maxStage always adds the completion notice to the initiator.
func AdvanceRules(workflowType model.WorkflowType, stage, maxStage int) []NotificationRule {
	base := advanceRules[ruleKey{workflowType, stage}]
	rules := make([]NotificationRule, 0, len(base)+1)
	rules = append(rules, base...)
	if stage >= maxStage {
		rules = append(rules, initiatorCompleted)
	}
	return rules
}
