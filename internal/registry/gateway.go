package registry

import (
	"context"
	"errors"
	"log"
	"time"

	"signup/internal/db/models"
	"signup/internal/events"
)

const ParticipantsTable = "participants"

// Gateway guards inserts with an existence check and announces every write
// on the notification channel. The check and the insert are not atomic; the
// store's uniqueness constraint catches the race.
type Gateway struct {
	store     Store
	publisher events.Publisher
}

func NewGateway(store Store, publisher events.Publisher) *Gateway {
	return &Gateway{store: store, publisher: publisher}
}

func (g *Gateway) Store() Store {
	return g.store
}

func (g *Gateway) Register(ctx context.Context, handle, tournamentType string) (*models.Participant, error) {
	existing, err := g.store.FindExisting(ctx, handle, tournamentType)
	if err != nil {
		return nil, asPersistence("find", err)
	}
	if existing != nil {
		return nil, ErrDuplicateRegistration
	}

	p, err := g.store.Insert(ctx, handle, tournamentType)
	if err != nil {
		if errors.Is(err, ErrDuplicateRegistration) {
			return nil, ErrDuplicateRegistration
		}
		return nil, asPersistence("insert", err)
	}

	g.publish(ctx, events.Insert, p)
	return p, nil
}

// SaveProfile writes enrichment data onto participant id. Writing the same
// profile twice leaves the same stored values.
func (g *Gateway) SaveProfile(ctx context.Context, id string, profile Profile) error {
	if err := g.store.UpdateProfile(ctx, id, profile); err != nil {
		return err
	}
	p, err := g.store.Get(ctx, id)
	if err != nil {
		log.Printf("Profile saved for %s but reload failed: %v", id, err)
		return nil
	}
	g.publish(ctx, events.Update, p)
	return nil
}

func (g *Gateway) Get(ctx context.Context, id string) (*models.Participant, error) {
	return g.store.Get(ctx, id)
}

func (g *Gateway) List(ctx context.Context, tournamentType string) ([]models.Participant, error) {
	return g.store.List(ctx, tournamentType)
}

func (g *Gateway) Tournament(ctx context.Context, tournamentType string) (*models.Tournament, error) {
	return g.store.Tournament(ctx, tournamentType)
}

// publish never fails the write it reports on.
func (g *Gateway) publish(ctx context.Context, kind string, p *models.Participant) {
	if g.publisher == nil {
		return
	}
	change := events.Change{
		Type:           kind,
		Table:          ParticipantsTable,
		ParticipantID:  p.ID,
		Handle:         p.RobloxUsername,
		TournamentType: p.TournamentType,
		OccurredAt:     time.Now().UTC(),
	}
	if err := g.publisher.Publish(ctx, change); err != nil {
		log.Printf("Error publishing %s for participant %s: %v", kind, p.ID, err)
	}
}

func asPersistence(op string, err error) error {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
