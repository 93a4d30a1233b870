package service

import (
	"context"

	"ideaportal/internal/model"

	"github.com/shopspring/decimal"
)

// Classification is the track an idea follows for its whole life
type Classification struct {
	WorkflowType model.WorkflowType `json:"workflow_type"`
	MaxStage     int                `json:"max_stage"`
	Threshold    decimal.Decimal    `json:"threshold"`
}

// WorkflowClassifier picks the approval track from the declared saving cost
type WorkflowClassifier interface {
	ClassifyWorkflow(ctx context.Context, savingCost decimal.Decimal) Classification
}

type workflowClassifier struct {
	thresholds ThresholdProvider
}

func NewWorkflowClassifier(thresholds ThresholdProvider) WorkflowClassifier {
	return &workflowClassifier{thresholds: thresholds}
}

// ClassifyWorkflow snapshots the current threshold and classifies against it.
// It is meant to be called once, when the idea is created.
func (c *workflowClassifier) ClassifyWorkflow(ctx context.Context, savingCost decimal.Decimal) Classification {
	return Classify(savingCost, c.thresholds.HighValueThreshold(ctx))
}

// Classify returns HIGH_VALUE when savingCost >= threshold, STANDARD otherwise.
// A non-positive threshold is replaced by the default.
func Classify(savingCost, threshold decimal.Decimal) Classification {
	if !threshold.IsPositive() {
		threshold = DefaultHighValueThreshold
	}
	workflowType := model.WorkflowStandard
	if savingCost.GreaterThanOrEqual(threshold) {
		workflowType = model.WorkflowHighValue
	}
	return Classification{
		WorkflowType: workflowType,
		MaxStage:     workflowType.MaxStage(),
		Threshold:    threshold,
	}
}
