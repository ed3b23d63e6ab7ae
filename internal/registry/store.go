// Package registry is the participant datastore gateway.
package registry

import (
	"context"
	"errors"
	"fmt"

	"signup/internal/db/models"
)

var (
	ErrDuplicateRegistration = errors.New("user already registered for this tournament")
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrTournamentNotFound    = errors.New("tournament not found")
)

// PersistenceError wraps any datastore failure other than a duplicate.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("registry %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Profile is the identity provider data written back by enrichment.
type Profile struct {
	UserID      int64   `json:"externalUserId"`
	DisplayName string  `json:"externalDisplayName"`
	AvatarURL   *string `json:"externalAvatarUrl"`
}

type Store interface {
	// FindExisting returns nil, nil when no participant has both values.
	FindExisting(ctx context.Context, handle, tournamentType string) (*models.Participant, error)
	// Insert creates the participant with a generated id and verified=false.
	// It returns ErrDuplicateRegistration on a uniqueness conflict.
	Insert(ctx context.Context, handle, tournamentType string) (*models.Participant, error)
	Get(ctx context.Context, id string) (*models.Participant, error)
	// List returns participants ordered by signup timestamp, oldest first.
	List(ctx context.Context, tournamentType string) ([]models.Participant, error)
	UpdateProfile(ctx context.Context, id string, profile Profile) error
	Tournament(ctx context.Context, tournamentType string) (*models.Tournament, error)
}
