package temporal

import (
	"context"

	"signup/internal/enrichment"

	"go.temporal.io/sdk/activity"
)

type Enricher interface {
	Run(ctx context.Context, req enrichment.Request) enrichment.Outcome
}

// Activities is registered as a struct so the worker resolves activity names
// from its methods.
type Activities struct {
	Enricher Enricher
}

func (a *Activities) EnrichParticipant(ctx context.Context, req enrichment.Request) (enrichment.Outcome, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Enriching participant", "ParticipantID", req.ParticipantID, "Handle", req.Handle)

	out := a.Enricher.Run(ctx, req)
	if out.Skipped != "" {
		logger.Info("Enrichment skipped", "ParticipantID", req.ParticipantID, "Reason", string(out.Skipped))
	}
	return out, nil
}
