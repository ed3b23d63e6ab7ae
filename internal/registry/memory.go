package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"signup/internal/db/models"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process. It enforces the same
// (handle, tournament) uniqueness as the database index.
type MemoryStore struct {
	mu           sync.RWMutex
	participants map[string]models.Participant
	tournaments  map[string]models.Tournament
	now          func() time.Time
	last         time.Time
}

func NewMemoryStore(tournaments ...models.Tournament) *MemoryStore {
	s := &MemoryStore{
		participants: make(map[string]models.Participant),
		tournaments:  make(map[string]models.Tournament),
		now:          time.Now,
	}
	for _, t := range tournaments {
		s.tournaments[t.TournamentType] = t
	}
	return s
}

// SetTournament creates or replaces a tournament.
func (s *MemoryStore) SetTournament(t models.Tournament) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournaments[t.TournamentType] = t
}

func (s *MemoryStore) FindExisting(ctx context.Context, handle, tournamentType string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.find(handle, tournamentType); ok {
		return &p, nil
	}
	return nil, nil
}

func (s *MemoryStore) find(handle, tournamentType string) (models.Participant, bool) {
	for _, p := range s.participants {
		if p.RobloxUsername == handle && p.TournamentType == tournamentType {
			return p, true
		}
	}
	return models.Participant{}, false
}

func (s *MemoryStore) Insert(ctx context.Context, handle, tournamentType string) (*models.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, &PersistenceError{Op: "insert", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.find(handle, tournamentType); ok {
		return nil, ErrDuplicateRegistration
	}
	now := s.stamp()
	p := models.Participant{
		ID:              uuid.NewString(),
		RobloxUsername:  handle,
		TournamentType:  tournamentType,
		Verified:        false,
		SignupTimestamp: now,
		UpdatedAt:       now,
	}
	s.participants[p.ID] = p
	return &p, nil
}

// stamp returns strictly increasing signup times so List order is stable.
func (s *MemoryStore) stamp() time.Time {
	now := s.now()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return &p, nil
}

func (s *MemoryStore) List(ctx context.Context, tournamentType string) ([]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Participant, 0)
	for _, p := range s.participants {
		if p.TournamentType == tournamentType {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SignupTimestamp.Equal(out[j].SignupTimestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].SignupTimestamp.Before(out[j].SignupTimestamp)
	})
	return out, nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, id string, profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return ErrParticipantNotFound
	}
	userID := profile.UserID
	displayName := profile.DisplayName
	p.RobloxUserID = &userID
	p.RobloxDisplayName = &displayName
	p.RobloxAvatarURL = nil
	if profile.AvatarURL != nil {
		avatar := *profile.AvatarURL
		p.RobloxAvatarURL = &avatar
	}
	p.UpdatedAt = s.now()
	s.participants[id] = p
	return nil
}

func (s *MemoryStore) Tournament(ctx context.Context, tournamentType string) (*models.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[tournamentType]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return &t, nil
}

// SeedDemo fills the store with the sample roster shown when no database is
// configured.
func (s *MemoryStore) SeedDemo(tournamentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := s.now()
	for i, name := range []string{"ProGamer123", "NinjaWarrior", "SpeedRunner42", "CoolPlayer99", "EpicGamer777"} {
		if _, ok := s.find(name, tournamentType); ok {
			continue
		}
		p := models.Participant{
			ID:              uuid.NewString(),
			RobloxUsername:  name,
			TournamentType:  tournamentType,
			Verified:        i != 2 && i != 4,
			SignupTimestamp: base.Add(time.Duration(i-5) * time.Second),
		}
		p.UpdatedAt = p.SignupTimestamp
		s.participants[p.ID] = p
	}
}
