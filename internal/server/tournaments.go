package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"signup/internal/bracket"
	"signup/internal/db/models"
	"signup/internal/events"
	"signup/internal/i18n"
	"signup/internal/registry"

	"github.com/gorilla/mux"
)

const keepAliveInterval = 15 * time.Second

func tournamentType(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(mux.Vars(r)["type"]))
}

// lookupTournament returns nil when the tournament is unknown or the lookup
// fails; pages render without status in that case.
func (s *Server) lookupTournament(r *http.Request, tournamentType string) *models.Tournament {
	t, err := s.gateway.Tournament(r.Context(), tournamentType)
	if err != nil {
		if !errors.Is(err, registry.ErrTournamentNotFound) {
			log.Printf("Error loading tournament %s: %v", tournamentType, err)
		}
		return nil
	}
	return t
}

func (s *Server) handleTournamentInfo(w http.ResponseWriter, r *http.Request) {
	l := i18n.FromRequest(r, s.defaultLang)
	tt := tournamentType(r)
	writeJSON(w, http.StatusOK, bracket.BuildInfo(l, tt, s.lookupTournament(r, tt)))
}

func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request) {
	l := i18n.FromRequest(r, s.defaultLang)
	tt := tournamentType(r)

	participants, err := s.gateway.List(r.Context(), tt)
	if err != nil {
		log.Printf("Error fetching participants for %s: %v", tt, err)
		writeError(w, http.StatusInternalServerError, l.T("signup.errorServerError"))
		return
	}
	writeJSON(w, http.StatusOK, bracket.BuildBoard(l, tt, s.lookupTournament(r, tt), participants, s.now()))
}

// handleEvents relays participant changes of one tournament as server-sent
// events until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok || s.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "live updates unavailable")
		return
	}
	tt := tournamentType(r)

	changes := make(chan events.Change, 16)
	sub, err := s.bus.Subscribe(events.TournamentSubject(tt), func(c events.Change) {
		select {
		case changes <- c:
		default:
			log.Printf("[SSE] Dropping %s event for slow client on %s", c.Type, tt)
		}
	})
	if err != nil {
		log.Printf("[SSE] Subscribe failed for %s: %v", tt, err)
		writeError(w, http.StatusServiceUnavailable, "live updates unavailable")
		return
	}
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, ":\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case c := <-changes:
			payload, err := json.Marshal(c)
			if err != nil {
				log.Printf("[SSE] Error encoding change: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", strings.ToLower(c.Type), payload)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ":\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
