package temporal

import (
	"time"

	"signup/internal/enrichment"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const DefaultActivityTimeout = 30 * time.Second

// EnrichParticipantWorkflow runs the enrichment activity exactly once. A
// failed activity is logged and reported as a skip; the workflow itself
// never fails.
func EnrichParticipantWorkflow(ctx workflow.Context, req enrichment.Request, timeout time.Duration) (enrichment.Outcome, error) {
	if timeout <= 0 {
		timeout = DefaultActivityTimeout
	}
	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)
	logger := workflow.GetLogger(ctx)

	var a *Activities
	var out enrichment.Outcome
	err := workflow.ExecuteActivity(ctx, a.EnrichParticipant, req).Get(ctx, &out)
	if err != nil {
		logger.Error("Enrichment activity failed", "ParticipantID", req.ParticipantID, "Error", err)
		return enrichment.Outcome{ParticipantID: req.ParticipantID, Skipped: enrichment.SkipActivityFailed}, nil
	}
	return out, nil
}
