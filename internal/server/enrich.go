package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"signup/internal/enrichment"
	"signup/internal/events"
	"signup/internal/registry"
)

type webhookRecord struct {
	ID             string `json:"id"`
	Handle         string `json:"handle"`
	TournamentID   string `json:"tournament_id"`
	RobloxUsername string `json:"roblox_username"`
	TournamentType string `json:"tournament_type"`
}

// profileEnvelope accepts both the datastore webhook body and the direct
// {username, participant_id} call.
type profileEnvelope struct {
	Type   string         `json:"type"`
	Table  string         `json:"table"`
	Record *webhookRecord `json:"record"`

	Username      interface{} `json:"username"`
	ParticipantID interface{} `json:"participant_id"`
}

func (e profileEnvelope) isWebhook() bool {
	return e.Type != "" || e.Table != "" || e.Record != nil
}

type profileResponse struct {
	registry.Profile
	UpdateError string `json:"updateError,omitempty"`
}

type skippedResponse struct {
	OK      bool                  `json:"ok"`
	Skipped enrichment.SkipReason `json:"skipped"`
}

type notFoundResponse struct {
	Found bool `json:"found"`
}

const (
	skipNotInsert  enrichment.SkipReason = "not-insert"
	skipWrongTable enrichment.SkipReason = "wrong-table"
	skipMissingID  enrichment.SkipReason = "missing-record-id"
	skipNoTourney  enrichment.SkipReason = "missing-tournament"
)

func cors(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
}

func (s *Server) handleFetchProfile(w http.ResponseWriter, r *http.Request) {
	cors(w)
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusOK)
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[Enrichment] Unexpected failure: %v", rec)
			writeError(w, http.StatusInternalServerError, fmt.Sprint(rec))
		}
	}()

	var env profileEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var req enrichment.Request
	if env.isWebhook() {
		var reason enrichment.SkipReason
		req, reason = webhookRequest(env)
		if reason != "" {
			log.Printf("[Enrichment] Webhook skipped: %s", reason)
			writeJSON(w, http.StatusOK, skippedResponse{OK: true, Skipped: reason})
			return
		}
	} else {
		username, ok := env.Username.(string)
		if !ok || username == "" {
			writeError(w, http.StatusBadRequest, "username required")
			return
		}
		username = strings.TrimSpace(username)
		if len(username) < 3 {
			writeError(w, http.StatusBadRequest, "username too short")
			return
		}
		pid, _ := env.ParticipantID.(string)
		req = enrichment.Request{ParticipantID: pid, Handle: username}
	}

	out := s.enricher.Run(r.Context(), req)
	switch {
	case out.Found():
		writeJSON(w, http.StatusOK, profileResponse{Profile: *out.Profile, UpdateError: out.UpdateError})
	case out.Skipped == enrichment.SkipNotFound || out.Skipped == enrichment.SkipProviderError:
		writeJSON(w, http.StatusOK, notFoundResponse{Found: false})
	default:
		writeJSON(w, http.StatusOK, skippedResponse{OK: true, Skipped: out.Skipped})
	}
}

func webhookRequest(env profileEnvelope) (enrichment.Request, enrichment.SkipReason) {
	if !strings.EqualFold(env.Type, events.Insert) {
		return enrichment.Request{}, skipNotInsert
	}
	if env.Table != registry.ParticipantsTable {
		return enrichment.Request{}, skipWrongTable
	}
	if env.Record == nil || env.Record.ID == "" {
		return enrichment.Request{}, skipMissingID
	}
	rec := env.Record
	handle := firstNonEmpty(rec.Handle, rec.RobloxUsername)
	if strings.TrimSpace(handle) == "" {
		return enrichment.Request{}, enrichment.SkipMissingHandle
	}
	tournamentType := strings.TrimSpace(firstNonEmpty(rec.TournamentID, rec.TournamentType))
	if tournamentType == "" {
		return enrichment.Request{}, skipNoTourney
	}
	return enrichment.Request{
		ParticipantID:  rec.ID,
		Handle:         handle,
		TournamentType: tournamentType,
	}, ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
