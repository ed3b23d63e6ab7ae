// Package events is the participant change notification channel. Publishers
// emit a Change after every write; subscribers register a callback and must
// call Unsubscribe on teardown.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const (
	Insert = "INSERT"
	Update = "UPDATE"
)

const SubjectPrefix = "signup.participants"

type Change struct {
	Type           string    `json:"type"`
	Table          string    `json:"table"`
	ParticipantID  string    `json:"participant_id"`
	Handle         string    `json:"handle"`
	TournamentType string    `json:"tournament_type"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Subject is the routing key of a change, e.g. signup.participants.pvp.insert.
func (c Change) Subject() string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, token(c.TournamentType), strings.ToLower(c.Type))
}

// TournamentSubject matches every change for one tournament.
func TournamentSubject(tournamentType string) string {
	return fmt.Sprintf("%s.%s.*", SubjectPrefix, token(tournamentType))
}

// InsertSubject matches inserts across all tournaments.
func InsertSubject() string {
	return SubjectPrefix + ".*.insert"
}

// AllSubject matches every change.
func AllSubject() string {
	return SubjectPrefix + ".>"
}

// token keeps subject tokens free of the separators NATS reserves.
func token(s string) string {
	if t := slug.Make(s); t != "" {
		return t
	}
	return "_"
}

type Handler func(Change)

type Subscription interface {
	Unsubscribe() error
}

type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

type Bus interface {
	Publisher
	Subscribe(subject string, handler Handler) (Subscription, error)
}
