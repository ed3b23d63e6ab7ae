// Package enrichment resolves a freshly registered handle into a provider
// profile and writes it back onto the participant.
package enrichment

import (
	"context"
	"errors"
	"log"
	"strings"

	"signup/internal/db/models"
	"signup/internal/registry"
	"signup/internal/roblox"
)

type SkipReason string

const (
	SkipUnsupportedPlatform SkipReason = "unsupported-platform"
	SkipTournamentLookup    SkipReason = "tournament-lookup-failed"
	SkipUnknownParticipant  SkipReason = "unknown-participant"
	SkipParticipantLookup   SkipReason = "participant-lookup-failed"
	SkipMissingHandle       SkipReason = "missing-handle"
	SkipNotFound            SkipReason = "not-found"
	SkipProviderError       SkipReason = "provider-error"
	SkipActivityFailed      SkipReason = "activity-failed"
)

type Request struct {
	ParticipantID  string `json:"participantId,omitempty"`
	Handle         string `json:"handle"`
	TournamentType string `json:"tournamentType,omitempty"`
}

// Outcome carries either a Profile or a Skipped reason. UpdateError is set
// when the profile was resolved but writing it back failed.
type Outcome struct {
	ParticipantID string            `json:"participantId,omitempty"`
	Profile       *registry.Profile `json:"profile,omitempty"`
	Skipped       SkipReason        `json:"skipped,omitempty"`
	UpdateError   string            `json:"updateError,omitempty"`
}

func (o Outcome) Found() bool {
	return o.Profile != nil
}

type Provider interface {
	LookupUsername(ctx context.Context, username string) (*roblox.User, error)
	AvatarHeadshot(ctx context.Context, userID int64) (string, error)
}

// Directory resolves which tournament, and so which platform, a participant
// belongs to.
type Directory interface {
	Get(ctx context.Context, id string) (*models.Participant, error)
	Tournament(ctx context.Context, tournamentType string) (*models.Tournament, error)
}

type ProfileSaver interface {
	SaveProfile(ctx context.Context, id string, profile registry.Profile) error
}

type Job struct {
	directory   Directory
	provider    Provider
	saver       ProfileSaver
	platform    string
}

// NewJob builds a job that only enriches tournaments on platform. saver may
// be nil, in which case profiles are resolved but never persisted. Without a
// directory the platform is not checked at all.
func NewJob(directory Directory, provider Provider, saver ProfileSaver, platform string) *Job {
	if platform == "" {
		platform = roblox.Platform
	}
	return &Job{directory: directory, provider: provider, saver: saver, platform: platform}
}

// Run never returns an error: every failure becomes a skip or a partial
// result, and nothing is retried.
func (j *Job) Run(ctx context.Context, req Request) Outcome {
	out := Outcome{ParticipantID: req.ParticipantID}
	handle := strings.TrimSpace(req.Handle)

	if req.TournamentType == "" && req.ParticipantID != "" {
		tournamentType, reason := j.participantTournament(ctx, req.ParticipantID)
		if reason != "" {
			return j.skip(out, req, reason)
		}
		req.TournamentType = tournamentType
	}
	if req.TournamentType != "" {
		if reason, ok := j.checkPlatform(ctx, req.TournamentType); !ok {
			return j.skip(out, req, reason)
		}
	}
	if handle == "" {
		return j.skip(out, req, SkipMissingHandle)
	}

	user, err := j.provider.LookupUsername(ctx, handle)
	if err != nil {
		if errors.Is(err, roblox.ErrNotFound) {
			return j.skip(out, req, SkipNotFound)
		}
		log.Printf("[Enrichment] Lookup of %q failed: %v", handle, err)
		return j.skip(out, req, SkipProviderError)
	}

	profile := registry.Profile{UserID: user.ID, DisplayName: displayName(user, handle)}
	avatar, err := j.provider.AvatarHeadshot(ctx, user.ID)
	if err != nil {
		log.Printf("[Enrichment] Avatar for user %d unavailable: %v", user.ID, err)
	} else if avatar != "" {
		profile.AvatarURL = &avatar
	}
	out.Profile = &profile

	if req.ParticipantID != "" && j.saver != nil {
		if err := j.saver.SaveProfile(ctx, req.ParticipantID, profile); err != nil {
			log.Printf("[Enrichment] Saving profile for participant %s failed: %v", req.ParticipantID, err)
			out.UpdateError = err.Error()
		}
	}
	return out
}

// participantTournament reads the tournament of a stored participant so the
// platform check applies to callers that only know the participant id.
func (j *Job) participantTournament(ctx context.Context, id string) (string, SkipReason) {
	if j.directory == nil {
		return "", ""
	}
	p, err := j.directory.Get(ctx, id)
	if err != nil {
		if errors.Is(err, registry.ErrParticipantNotFound) {
			return "", SkipUnknownParticipant
		}
		log.Printf("[Enrichment] Participant lookup for %s failed: %v", id, err)
		return "", SkipParticipantLookup
	}
	return p.TournamentType, ""
}

func (j *Job) checkPlatform(ctx context.Context, tournamentType string) (SkipReason, bool) {
	if j.directory == nil {
		return "", true
	}
	t, err := j.directory.Tournament(ctx, tournamentType)
	if err != nil {
		if errors.Is(err, registry.ErrTournamentNotFound) {
			return SkipUnsupportedPlatform, false
		}
		log.Printf("[Enrichment] Tournament lookup for %s failed: %v", tournamentType, err)
		return SkipTournamentLookup, false
	}
	if !strings.EqualFold(t.Platform, j.platform) {
		return SkipUnsupportedPlatform, false
	}
	return "", true
}

func (j *Job) skip(out Outcome, req Request, reason SkipReason) Outcome {
	log.Printf("[Enrichment] Skipped participant %q (%q in %q): %s", req.ParticipantID, req.Handle, req.TournamentType, reason)
	out.Skipped = reason
	return out
}

func displayName(u *roblox.User, handle string) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Name != "" {
		return u.Name
	}
	return handle
}
