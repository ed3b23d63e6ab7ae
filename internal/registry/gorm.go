package registry

import (
	"context"
	"errors"

	"signup/internal/db/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) FindExisting(ctx context.Context, handle, tournamentType string) (*models.Participant, error) {
	var p models.Participant
	err := s.DB.WithContext(ctx).
		Where("roblox_username = ? AND tournament_type = ?", handle, tournamentType).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find", Err: err}
	}
	return &p, nil
}

func (s *GormStore) Insert(ctx context.Context, handle, tournamentType string) (*models.Participant, error) {
	p := models.Participant{
		ID:             uuid.NewString(),
		RobloxUsername: handle,
		TournamentType: tournamentType,
		Verified:       false,
	}
	err := s.DB.WithContext(ctx).Create(&p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrDuplicateRegistration
	}
	if err != nil {
		return nil, &PersistenceError{Op: "insert", Err: err}
	}
	return &p, nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.Participant, error) {
	var p models.Participant
	err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get", Err: err}
	}
	return &p, nil
}

func (s *GormStore) List(ctx context.Context, tournamentType string) ([]models.Participant, error) {
	var participants []models.Participant
	err := s.DB.WithContext(ctx).
		Where("tournament_type = ?", tournamentType).
		Order("signup_timestamp ASC").
		Order("id ASC").
		Find(&participants).Error
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return participants, nil
}

func (s *GormStore) UpdateProfile(ctx context.Context, id string, profile Profile) error {
	res := s.DB.WithContext(ctx).
		Model(&models.Participant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"roblox_user_id":      profile.UserID,
			"roblox_display_name": profile.DisplayName,
			"roblox_avatar_url":   profile.AvatarURL,
		})
	if res.Error != nil {
		return &PersistenceError{Op: "update", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

func (s *GormStore) Tournament(ctx context.Context, tournamentType string) (*models.Tournament, error) {
	var t models.Tournament
	err := s.DB.WithContext(ctx).First(&t, "tournament_type = ?", tournamentType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTournamentNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "tournament", Err: err}
	}
	return &t, nil
}
