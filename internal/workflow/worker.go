package temporal

import (
	"fmt"

	"signup/config"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func Dial(cfg *config.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Temporal client: %w", err)
	}
	return c, nil
}

func NewWorker(c client.Client, cfg *config.TemporalConfig, acts *Activities) worker.Worker {
	w := worker.New(c, cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflow(EnrichParticipantWorkflow)
	w.RegisterActivity(acts)
	return w
}

// StartWorker starts polling in the background. Call Stop on the returned
// worker during shutdown.
func StartWorker(c client.Client, cfg *config.TemporalConfig, acts *Activities) (worker.Worker, error) {
	w := NewWorker(c, cfg, acts)
	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return w, nil
}
