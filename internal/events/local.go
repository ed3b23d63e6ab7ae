package events

import (
	"context"
	"strings"
	"sync"
)

// LocalBus delivers changes in-process, synchronously and in publish order.
// It backs demo mode and tests when no NATS server is configured.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]localSub
}

type localSub struct {
	subject string
	handler Handler
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]localSub)}
}

func (b *LocalBus) Publish(ctx context.Context, change Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := change.Subject()

	b.mu.RLock()
	var handlers []Handler
	for _, sub := range b.subs {
		if Match(sub.subject, subject) {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(change)
	}
	return nil
}

func (b *LocalBus) Subscribe(subject string, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = localSub{subject: subject, handler: handler}
	return &localSubscription{bus: b, id: id}, nil
}

// Subscribers returns the number of live subscriptions.
func (b *LocalBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

type localSubscription struct {
	bus  *LocalBus
	id   int
	once sync.Once
}

func (s *localSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
	})
	return nil
}

// Match reports whether subject matches pattern using NATS wildcard rules:
// "*" matches one token and a trailing ">" matches one or more.
func Match(pattern, subject string) bool {
	p := strings.Split(pattern, ".")
	s := strings.Split(subject, ".")
	for i, tok := range p {
		if tok == ">" {
			return i == len(p)-1 && len(s) > i
		}
		if i >= len(s) {
			return false
		}
		if tok != "*" && tok != s[i] {
			return false
		}
	}
	return len(p) == len(s)
}
