// Package bracket builds the localized view models of the participant board
// and the tournament info page.
package bracket

import (
	"net/url"
	"time"

	"signup/internal/db/models"
	"signup/internal/i18n"
)

const featuredTournament = "pvp"

type Card struct {
	Number      int     `json:"number"`
	ID          string  `json:"id"`
	Handle      string  `json:"handle"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	Verified    bool    `json:"verified"`
	Status      string  `json:"status"`
}

type Board struct {
	TournamentType string `json:"tournamentType"`
	Name           string `json:"name"`
	Count          int    `json:"count"`
	Cards          []Card `json:"cards"`
	UpdatedAt      string `json:"updatedAt"`
}

// BuildBoard numbers participants from 1 in the order given, which callers
// keep as signup order. t may be nil.
func BuildBoard(l i18n.Localizer, tournamentType string, t *models.Tournament, participants []models.Participant, now time.Time) Board {
	b := Board{
		TournamentType: tournamentType,
		Name:           boardName(l, tournamentType, t),
		Count:          len(participants),
		Cards:          make([]Card, 0, len(participants)),
		UpdatedAt:      FormatTime(l, now),
	}
	for i, p := range participants {
		c := Card{
			Number:      i + 1,
			ID:          p.ID,
			Handle:      p.RobloxUsername,
			DisplayName: p.RobloxUsername,
			AvatarURL:   p.RobloxAvatarURL,
			Verified:    p.Verified,
			Status:      l.T("bracket.statusUpcoming"),
		}
		if p.RobloxDisplayName != nil && *p.RobloxDisplayName != "" {
			c.DisplayName = *p.RobloxDisplayName
		}
		if p.Verified {
			c.Status = l.T("common.confirmed")
		}
		b.Cards = append(b.Cards, c)
	}
	return b
}

func boardName(l i18n.Localizer, tournamentType string, t *models.Tournament) string {
	if tournamentType == featuredTournament {
		return "RIVALS (13-18)"
	}
	if name := LocalizedName(l, t); name != "" {
		return name
	}
	return l.T("landing.tournament2Title")
}

// FormatTime renders an hour and minute the way fr-CA and en-US clocks do.
func FormatTime(l i18n.Localizer, t time.Time) string {
	if l.IsEnglish() {
		return t.Format("03:04 PM")
	}
	return t.Format("15 h 04")
}

// LocalizedName prefers the name in the reader's language and falls back to
// the other one.
func LocalizedName(l i18n.Localizer, t *models.Tournament) string {
	if t == nil {
		return ""
	}
	if l.IsEnglish() {
		return firstNonEmpty(t.NameEN, t.NameFR)
	}
	return firstNonEmpty(t.NameFR, t.NameEN)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type Info struct {
	TournamentType   string `json:"tournamentType"`
	Title            string `json:"title"`
	Subtitle         string `json:"subtitle,omitempty"`
	PageTitle        string `json:"pageTitle"`
	Message          string `json:"message,omitempty"`
	Status           string `json:"status,omitempty"`
	Featured         bool   `json:"featured"`
	RegistrationOpen bool   `json:"registrationOpen"`
	Banner           string `json:"banner,omitempty"`
	SignupLink       string `json:"signupLink,omitempty"`
}

// BuildInfo builds the info page for tournamentType. t is nil when the
// tournament is unknown or could not be loaded.
func BuildInfo(l i18n.Localizer, tournamentType string, t *models.Tournament) Info {
	info := Info{TournamentType: tournamentType}
	if tournamentType == "" {
		info.Title = l.T("tournamentInfo.noTournament")
		info.Message = l.T("tournamentInfo.selectFromHome")
		info.PageTitle = l.T("tournamentInfo.pageTitle")
		return info
	}

	if tournamentType == featuredTournament {
		info.Featured = true
		info.Title = "RIVALS"
		info.Subtitle = l.T("tournamentInfo.rivalsSubtitle")
	} else {
		info.Title = firstNonEmpty(LocalizedName(l, t), tournamentType)
		info.Message = l.T("tournamentInfo.moreInfoSoon")
	}
	info.PageTitle = l.T("tournamentInfo.pageTitle") + " – " + info.Title

	info.RegistrationOpen = true
	if t != nil {
		info.Status = t.Status
		if t.RegistrationClosed() {
			info.RegistrationOpen = false
			info.Banner = l.T("tournamentInfo.registrationClosed")
		}
	}
	if info.RegistrationOpen {
		info.SignupLink = "signup.html?tournament=" + url.QueryEscape(tournamentType)
	}
	return info
}
