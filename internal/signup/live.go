package signup

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"signup/internal/identity"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

type FeedbackStatus string

const (
	FeedbackEmpty         FeedbackStatus = "empty"
	FeedbackInvalid       FeedbackStatus = "invalid"
	FeedbackConfirmed     FeedbackStatus = "confirmed"
	FeedbackNotFound      FeedbackStatus = "not-found"
	FeedbackIndeterminate FeedbackStatus = "indeterminate"
	FeedbackSuperseded    FeedbackStatus = "superseded"
)

// Feedback is the live result shown next to the handle field.
type Feedback struct {
	Handle string         `json:"handle"`
	Status FeedbackStatus `json:"status"`
	Key    string         `json:"-"`
	Seq    uint64         `json:"seq,omitempty"`
}

// CheckHandle validates the format and, when it is valid, asks the provider.
func CheckHandle(ctx context.Context, v Verifier, raw string) Feedback {
	handle := strings.TrimSpace(raw)
	if handle == "" {
		return Feedback{Handle: handle, Status: FeedbackEmpty}
	}
	if !ValidHandle(handle) {
		return Feedback{Handle: handle, Status: FeedbackInvalid, Key: "signup.errorInvalidUsername"}
	}
	switch v.Verify(ctx, handle).Status {
	case identity.Confirmed:
		return Feedback{Handle: handle, Status: FeedbackConfirmed, Key: "common.success"}
	case identity.NotFound:
		return Feedback{Handle: handle, Status: FeedbackNotFound, Key: "signup.errorUserNotFound"}
	default:
		return Feedback{Handle: handle, Status: FeedbackIndeterminate, Key: "signup.validationWarning"}
	}
}

// LiveVerifier debounces keystrokes and reports only the latest check.
type LiveVerifier struct {
	verifier  Verifier
	debouncer *Debouncer
	onResult  func(Feedback)
}

func NewLiveVerifier(v Verifier, d *Debouncer, onResult func(Feedback)) *LiveVerifier {
	return &LiveVerifier{verifier: v, debouncer: d, onResult: onResult}
}

// Input is called after every keystroke with the whole field value.
func (l *LiveVerifier) Input(ctx context.Context, value string) *Pending {
	return l.debouncer.Schedule(ctx, func(ctx context.Context, seq uint64) func() {
		fb := CheckHandle(ctx, l.verifier, value)
		fb.Seq = seq
		return func() { l.onResult(fb) }
	})
}

func (l *LiveVerifier) Stop() {
	l.debouncer.Stop()
}

// Sessions keeps one debouncer per browser form so that HTTP live checks
// from the same form supersede each other.
type Sessions struct {
	verifier Verifier
	clock    clockwork.Clock
	delay    time.Duration
	idle     time.Duration

	mu    sync.Mutex
	items map[string]*liveSession
}

type liveSession struct {
	debouncer *Debouncer
	lastSeen  time.Time
}

func NewSessions(v Verifier, clock clockwork.Clock, delay, idle time.Duration) *Sessions {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if idle <= 0 {
		idle = 15 * time.Minute
	}
	return &Sessions{verifier: v, clock: clock, delay: delay, idle: idle, items: make(map[string]*liveSession)}
}

func (s *Sessions) session(id string) *liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[id]
	if !ok {
		sess = &liveSession{debouncer: NewDebouncer(s.clock, s.delay)}
		s.items[id] = sess
	}
	sess.lastSeen = s.clock.Now()
	return sess
}

// Check blocks until the debounced check for this session completes. A newer
// Check on the same session makes this one return FeedbackSuperseded.
func (s *Sessions) Check(ctx context.Context, sessionID, value string) (Feedback, error) {
	sess := s.session(sessionID)
	result := make(chan Feedback, 1)

	p := sess.debouncer.Schedule(ctx, func(ctx context.Context, seq uint64) func() {
		fb := CheckHandle(ctx, s.verifier, value)
		fb.Seq = seq
		return func() { result <- fb }
	})

	select {
	case fb := <-result:
		return fb, nil
	case <-p.Superseded():
		return Feedback{Handle: strings.TrimSpace(value), Status: FeedbackSuperseded, Seq: p.Seq()}, nil
	case <-ctx.Done():
		return Feedback{}, ctx.Err()
	}
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep drops sessions idle for longer than the idle timeout.
func (s *Sessions) Sweep() int {
	cutoff := s.clock.Now().Add(-s.idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.items {
		if sess.lastSeen.Before(cutoff) {
			sess.debouncer.Stop()
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// StartSweeper evicts idle sessions every interval. Shut the returned
// scheduler down on exit.
func (s *Sessions) StartSweeper(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(s.clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create session sweeper: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := s.Sweep(); n > 0 {
				log.Printf("[Sweeper] Evicted %d idle verification session(s)", n)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule session sweeper: %w", err)
	}
	sched.Start()
	return sched, nil
}
