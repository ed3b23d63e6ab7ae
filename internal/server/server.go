package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"signup/config"
	"signup/internal/enrichment"
	"signup/internal/events"
	"signup/internal/i18n"
	"signup/internal/registry"
	"signup/internal/signup"

	"github.com/gorilla/mux"
)

type Enricher interface {
	Run(ctx context.Context, req enrichment.Request) enrichment.Outcome
}

type Options struct {
	Gateway     *registry.Gateway
	Verifier    signup.Verifier
	Sessions    *signup.Sessions
	Enricher    Enricher
	Bus         events.Bus
	DefaultLang string
}

type Server struct {
	router      *mux.Router
	gateway     *registry.Gateway
	verifier    signup.Verifier
	sessions    *signup.Sessions
	enricher    Enricher
	bus         events.Bus
	defaultLang string
	now         func() time.Time

	mu       sync.Mutex
	inflight map[string]*signup.Controller
}

func New(opts Options) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		gateway:     opts.Gateway,
		verifier:    opts.Verifier,
		sessions:    opts.Sessions,
		enricher:    opts.Enricher,
		bus:         opts.Bus,
		defaultLang: i18n.Normalize(opts.DefaultLang, i18n.French),
		now:         time.Now,
		inflight:    make(map[string]*signup.Controller),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/verify", s.handleVerify).Methods(http.MethodGet)
	api.HandleFunc("/lang", s.handleLang).Methods(http.MethodPost)
	api.HandleFunc("/tournaments/{type}", s.handleTournamentInfo).Methods(http.MethodGet)
	api.HandleFunc("/tournaments/{type}/participants", s.handleParticipants).Methods(http.MethodGet)
	api.HandleFunc("/tournaments/{type}/events", s.handleEvents).Methods(http.MethodGet)

	s.router.HandleFunc("/functions/v1/fetch-roblox-profile", s.handleFetchProfile).Methods(http.MethodPost, http.MethodOptions)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StartServer serves h until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.ServerConfig, h http.Handler) error {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server is listening on port %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
