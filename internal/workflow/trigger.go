package temporal

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"signup/config"
	"signup/internal/enrichment"
	"signup/internal/events"
	"signup/internal/registry"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// DurableSubscriber is implemented by buses that can deliver each message to
// one member of a named consumer group, like the JetStream bus.
type DurableSubscriber interface {
	SubscribeDurable(subject, consumer string, handler events.Handler) (events.Subscription, error)
}

func WorkflowID(participantID string) string {
	return "enrich-" + participantID
}

// Trigger starts one enrichment per participant insert. With a Temporal
// client it starts EnrichParticipantWorkflow; without one it runs the job in
// a goroutine.
type Trigger struct {
	client    client.Client
	taskQueue string
	timeout   time.Duration
	enricher  Enricher

	wg sync.WaitGroup
}

func NewTrigger(c client.Client, cfg *config.TemporalConfig, enricher Enricher) *Trigger {
	t := &Trigger{client: c, enricher: enricher, timeout: DefaultActivityTimeout}
	if cfg != nil {
		t.taskQueue = cfg.TaskQueue
		if cfg.ActivityTimeout > 0 {
			t.timeout = cfg.ActivityTimeout
		}
	}
	return t
}

// Subscribe attaches the trigger to insert events. consumer names the durable
// consumer when the bus supports one.
func (t *Trigger) Subscribe(bus events.Bus, consumer string) (events.Subscription, error) {
	if d, ok := bus.(DurableSubscriber); ok && consumer != "" {
		return d.SubscribeDurable(events.InsertSubject(), consumer, t.Handle)
	}
	return bus.Subscribe(events.InsertSubject(), t.Handle)
}

func (t *Trigger) Handle(change events.Change) {
	if change.Type != events.Insert || change.Table != registry.ParticipantsTable {
		return
	}
	if change.ParticipantID == "" {
		log.Printf("[Trigger] Ignoring insert without participant id: %+v", change)
		return
	}
	req := enrichment.Request{
		ParticipantID:  change.ParticipantID,
		Handle:         change.Handle,
		TournamentType: change.TournamentType,
	}
	if err := t.Dispatch(context.Background(), req); err != nil {
		log.Printf("[Trigger] Failed to dispatch enrichment for %s: %v", req.ParticipantID, err)
	}
}

// Dispatch starts enrichment for req. A second dispatch for the same
// participant is a no-op when Temporal is in use.
func (t *Trigger) Dispatch(ctx context.Context, req enrichment.Request) error {
	if t.client == nil {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			runCtx, cancel := context.WithTimeout(context.Background(), t.timeout)
			defer cancel()
			t.enricher.Run(runCtx, req)
		}()
		return nil
	}

	options := client.StartWorkflowOptions{
		ID:        WorkflowID(req.ParticipantID),
		TaskQueue: t.taskQueue,
	}
	options.WorkflowIDReusePolicy = enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE
	options.WorkflowExecutionErrorWhenAlreadyStarted = true
	_, err := t.client.ExecuteWorkflow(ctx, options, EnrichParticipantWorkflow, req, t.timeout)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			log.Printf("[Trigger] Enrichment for %s already started", req.ParticipantID)
			return nil
		}
		return err
	}
	log.Printf("[Trigger] Started workflow %s", options.ID)
	return nil
}

// Wait blocks until in-process runs have finished.
func (t *Trigger) Wait() {
	t.wg.Wait()
}
