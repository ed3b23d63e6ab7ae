package signup

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultDebounceDelay = 800 * time.Millisecond

// Pending is one scheduled task. Exactly one of Done or Superseded closes,
// unless the caller's context ends first.
type Pending struct {
	seq        uint64
	done       chan struct{}
	superseded chan struct{}
	once       sync.Once
}

func newPending(seq uint64) *Pending {
	return &Pending{seq: seq, done: make(chan struct{}), superseded: make(chan struct{})}
}

func (p *Pending) Seq() uint64 { return p.seq }
func (p *Pending) Done() <-chan struct{} { return p.done }
func (p *Pending) Superseded() <-chan struct{} { return p.superseded }
func (p *Pending) finish(ch chan struct{}) { p.once.Do(func() { close(ch) }) }

// Debouncer runs only the most recently scheduled task. Scheduling a new task
// stops the pending timer and cancels the context of a task already running;
// a task's commit step runs only if nothing newer was scheduled before the
// task finished.
type Debouncer struct {
	clock clockwork.Clock
	delay time.Duration

	mu      sync.Mutex
	seq     uint64
	current *Pending
	timer   clockwork.Timer
	cancel  context.CancelFunc
}

func NewDebouncer(clock clockwork.Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Schedule runs task after the debounce delay. task does the slow work with
// ctx and returns a commit func (may be nil) that publishes its result; seq
// identifies the request.
func (d *Debouncer) Schedule(ctx context.Context, task func(ctx context.Context, seq uint64) func()) *Pending {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.seq++
	p := newPending(d.seq)
	taskCtx, cancel := context.WithCancel(ctx)
	d.current = p
	d.cancel = cancel
	d.timer = d.clock.AfterFunc(d.delay, func() {
		go d.run(p, taskCtx, cancel, task)
	})
	return p
}

// Stop drops the pending task, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.current != nil {
		d.current.finish(d.current.superseded)
		d.current = nil
	}
}

func (d *Debouncer) run(p *Pending, ctx context.Context, cancel context.CancelFunc, task func(ctx context.Context, seq uint64) func()) {
	defer cancel()
	if !d.isCurrent(p) {
		return
	}

	commit := task(ctx, p.seq)

	d.mu.Lock()
	if d.current != p || ctx.Err() != nil {
		d.mu.Unlock()
		return
	}
	d.current = nil
	d.timer = nil
	d.cancel = nil
	d.mu.Unlock()

	// commit may schedule or stop on this debouncer.
	if commit != nil {
		commit()
	}
	p.finish(p.done)
}

func (d *Debouncer) isCurrent(p *Pending) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current == p
}
