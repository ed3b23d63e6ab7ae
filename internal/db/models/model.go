package models

import (
	"time"
)

const (
	TournamentStatusOpen       = "open"
	TournamentStatusInProgress = "in-progress"
	TournamentStatusAtCapacity = "at_capacity"
)

type Participant struct {
	ID                string    `gorm:"primaryKey;type:uuid" json:"id"`
	RobloxUsername    string    `gorm:"size:20;not null;uniqueIndex:idx_participant_handle_tournament" json:"roblox_username"`
	TournamentType    string    `gorm:"size:50;not null;uniqueIndex:idx_participant_handle_tournament;index" json:"tournament_type"`
	Verified          bool      `gorm:"not null;default:false" json:"verified"`
	RobloxUserID      *int64    `json:"roblox_user_id"`
	RobloxDisplayName *string   `gorm:"size:100" json:"roblox_display_name"`
	RobloxAvatarURL   *string   `json:"roblox_avatar_url"`
	SignupTimestamp   time.Time `gorm:"autoCreateTime;index" json:"signup_timestamp"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Tournament struct {
	TournamentType string    `gorm:"primaryKey;size:50" json:"tournament_type"`
	Status         string    `gorm:"size:20;not null;default:'open'" json:"status"`
	Platform       string    `gorm:"size:30;not null" json:"platform"`
	NameFR         string    `gorm:"column:name_fr;size:100" json:"name_fr"`
	NameEN         string    `gorm:"column:name_en;size:100" json:"name_en"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// RegistrationClosed reports whether signups are no longer accepted.
func (t Tournament) RegistrationClosed() bool {
	return t.Status == TournamentStatusInProgress || t.Status == TournamentStatusAtCapacity
}
