package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"signup/config"
	"signup/internal/db/models"
	"signup/internal/enrichment"
	"signup/internal/events"
	"signup/internal/i18n"
	"signup/internal/identity"
	"signup/internal/registry"
	"signup/internal/roblox"
	"signup/internal/signup"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	results map[string]identity.Status
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (v *stubVerifier) Verify(ctx context.Context, handle string) identity.Result {
	if handle == "Slow_One" && v.release != nil {
		v.once.Do(func() { close(v.entered) })
		<-v.release
	}
	if st, ok := v.results[handle]; ok {
		return identity.Result{Status: st}
	}
	return identity.Result{Status: identity.Confirmed}
}

type stubEnricher struct {
	mu   sync.Mutex
	reqs []enrichment.Request
}

func (e *stubEnricher) Run(ctx context.Context, req enrichment.Request) enrichment.Outcome {
	e.mu.Lock()
	e.reqs = append(e.reqs, req)
	e.mu.Unlock()
	switch req.Handle {
	case "ProGamer123":
		return enrichment.Outcome{ParticipantID: req.ParticipantID, Profile: &registry.Profile{UserID: 42, DisplayName: "Pro"}}
	case "quizwhiz":
		return enrichment.Outcome{ParticipantID: req.ParticipantID, Skipped: enrichment.SkipUnsupportedPlatform}
	default:
		return enrichment.Outcome{ParticipantID: req.ParticipantID, Skipped: enrichment.SkipNotFound}
	}
}

type fixture struct {
	srv      *Server
	store    *registry.MemoryStore
	gateway  *registry.Gateway
	bus      *events.LocalBus
	verifier *stubVerifier
	enricher *stubEnricher
}

func newFixture() *fixture {
	store := registry.NewMemoryStore(
		models.Tournament{TournamentType: "pvp", Platform: "roblox", Status: models.TournamentStatusOpen, NameFR: "Rivals", NameEN: "Rivals"},
		models.Tournament{TournamentType: "kahoot", Platform: "kahoot", Status: models.TournamentStatusAtCapacity, NameFR: "Quiz", NameEN: "Trivia"},
	)
	bus := events.NewLocalBus()
	gw := registry.NewGateway(store, bus)
	v := &stubVerifier{results: map[string]identity.Status{"Ghost_404": identity.NotFound}}
	e := &stubEnricher{}
	srv := New(Options{
		Gateway:     gw,
		Verifier:    v,
		Sessions:    signup.NewSessions(v, clockwork.NewRealClock(), 10*time.Millisecond, time.Minute),
		Enricher:    e,
		Bus:         bus,
		DefaultLang: "fr",
	})
	srv.now = func() time.Time { return time.Date(2026, 3, 14, 15, 4, 0, 0, time.UTC) }
	return &fixture{srv: srv, store: store, gateway: gw, bus: bus, verifier: v, enricher: e}
}

func (f *fixture) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const validSignup = `{"robloxUsername":"ProGamer123","tournament":"pvp","ageConfirm":true,"rulesAccept":true}`

func TestSignupCreated(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/signup", validSignup)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Len(t, body["registrationId"], 8)
	assert.Equal(t, "ProGamer123", body["username"])
	assert.Equal(t, "pvp", body["tournament"])
	assert.NotContains(t, body, "warning")

	list, _ := f.store.List(context.Background(), "pvp")
	require.Len(t, list, 1)
	assert.Equal(t, strings.ToUpper(list[0].ID[:8]), body["registrationId"])
}

func TestSignupValidationErrors(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/signup", `{"robloxUsername":"ab"}`, "Accept-Language", "en-US,en;q=0.9")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body validationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Errors, 4)
	assert.Equal(t, signup.FieldHandle, body.Errors[0].Field)
	assert.Equal(t, i18n.New(i18n.English).T("signup.errorInvalidUsername"), body.Errors[0].Message)
}

func TestSignupUnknownHandle(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/signup", `{"robloxUsername":"Ghost_404","tournament":"pvp","ageConfirm":true,"rulesAccept":true}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "introuvable")
}

func TestSignupDuplicate(t *testing.T) {
	f := newFixture()
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/signup", validSignup).Code)

	rec := f.do(http.MethodPost, "/api/signup", validSignup, "Cookie", "preferredLang=en")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "This player is already registered for this tournament", decode(t, rec)["error"])
}

func TestSignupClosedTournament(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/signup", `{"robloxUsername":"ProGamer123","tournament":"kahoot","ageConfirm":true,"rulesAccept":true}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, i18n.New(i18n.French).T("tournamentInfo.registrationClosed"), decode(t, rec)["error"])
}

func TestSignupBadJSON(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/signup", `{`).Code)
}

func TestSignupInProgressForSession(t *testing.T) {
	f := newFixture()
	f.verifier.entered = make(chan struct{})
	f.verifier.release = make(chan struct{})
	slow := `{"robloxUsername":"Slow_One","tournament":"pvp","ageConfirm":true,"rulesAccept":true}`

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- f.do(http.MethodPost, "/api/signup?session=form-1", slow)
	}()
	select {
	case <-f.verifier.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first submission never started")
	}

	rec := f.do(http.MethodPost, "/api/signup?session=form-1", slow)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	close(f.verifier.release)
	assert.Equal(t, http.StatusCreated, (<-first).Code)

	list, _ := f.store.List(context.Background(), "pvp")
	assert.Len(t, list, 1)
}

func TestVerify(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/api/verify?handle=ProGamer123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "confirmed", body["status"])
	assert.Equal(t, "Succès", body["message"])

	body = decode(t, f.do(http.MethodGet, "/api/verify?handle=a-b", ""))
	assert.Equal(t, "invalid", body["status"])

	body = decode(t, f.do(http.MethodGet, "/api/verify?handle=Ghost_404&session=form-1", ""))
	assert.Equal(t, "not-found", body["status"])
	assert.Equal(t, float64(1), body["seq"])
}

func TestLangCookie(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/lang", `{"lang":"en-CA"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, i18n.CookieName, cookies[0].Name)
	assert.Equal(t, "en", cookies[0].Value)
}

func TestTournamentInfo(t *testing.T) {
	f := newFixture()

	body := decode(t, f.do(http.MethodGet, "/api/tournaments/pvp", ""))
	assert.Equal(t, "RIVALS", body["title"])
	assert.Equal(t, true, body["registrationOpen"])
	assert.Equal(t, "signup.html?tournament=pvp", body["signupLink"])

	body = decode(t, f.do(http.MethodGet, "/api/tournaments/kahoot", "", "Cookie", "preferredLang=en"))
	assert.Equal(t, "Trivia", body["title"])
	assert.Equal(t, false, body["registrationOpen"])
	assert.NotContains(t, body, "signupLink")
	assert.Equal(t, "Tournament full – Registration closed", body["banner"])
}

func TestParticipantsBoard(t *testing.T) {
	f := newFixture()
	f.store.SeedDemo("pvp")

	rec := f.do(http.MethodGet, "/api/tournaments/pvp/participants", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var board struct {
		Name      string `json:"name"`
		Count     int    `json:"count"`
		UpdatedAt string `json:"updatedAt"`
		Cards     []struct {
			Number int    `json:"number"`
			Handle string `json:"handle"`
			Status string `json:"status"`
		} `json:"cards"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	assert.Equal(t, "RIVALS (13-18)", board.Name)
	assert.Equal(t, 5, board.Count)
	assert.Equal(t, "15 h 04", board.UpdatedAt)
	require.Len(t, board.Cards, 5)
	assert.Equal(t, 1, board.Cards[0].Number)
	assert.Equal(t, "ProGamer123", board.Cards[0].Handle)
	assert.Equal(t, "Confirmé", board.Cards[0].Status)
	assert.Equal(t, "En attente", board.Cards[2].Status)
}

func TestFetchProfilePreflight(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodOptions, "/functions/v1/fetch-roblox-profile", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Authorization, Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestFetchProfileWebhook(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/functions/v1/fetch-roblox-profile",
		`{"type":"INSERT","table":"participants","record":{"id":"p-1","handle":"ProGamer123","tournament_id":"pvp"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	body := decode(t, rec)
	assert.Equal(t, float64(42), body["externalUserId"])
	assert.Equal(t, "Pro", body["externalDisplayName"])
	assert.Contains(t, body, "externalAvatarUrl")
	assert.Nil(t, body["externalAvatarUrl"])
	assert.Equal(t, []enrichment.Request{{ParticipantID: "p-1", Handle: "ProGamer123", TournamentType: "pvp"}}, f.enricher.reqs)
}

func TestFetchProfileWebhookSkips(t *testing.T) {
	f := newFixture()
	tests := []struct {
		body   string
		reason string
	}{
		{`{"type":"UPDATE","table":"participants","record":{"id":"p-1","handle":"ProGamer123"}}`, "not-insert"},
		{`{"type":"INSERT","table":"tournaments","record":{"id":"p-1","handle":"ProGamer123"}}`, "wrong-table"},
		{`{"type":"INSERT","table":"participants"}`, "missing-record-id"},
		{`{"type":"INSERT","table":"participants","record":{"id":"p-1"}}`, "missing-handle"},
		{`{"type":"INSERT","table":"participants","record":{"id":"p-1","handle":"ProGamer123"}}`, "missing-tournament"},
		{`{"type":"INSERT","table":"participants","record":{"id":"p-1","handle":"quizwhiz","tournament_id":"kahoot"}}`, "unsupported-platform"},
	}
	for _, tt := range tests {
		rec := f.do(http.MethodPost, "/functions/v1/fetch-roblox-profile", tt.body)
		require.Equal(t, http.StatusOK, rec.Code, tt.body)
		body := decode(t, rec)
		assert.Equal(t, true, body["ok"], tt.body)
		assert.Equal(t, tt.reason, body["skipped"], tt.body)
	}
}

func TestFetchProfileDirect(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/functions/v1/fetch-roblox-profile", `{"participant_id":"p-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username required", decode(t, rec)["error"])

	rec = f.do(http.MethodPost, "/functions/v1/fetch-roblox-profile", `{"username":42}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/functions/v1/fetch-roblox-profile", `{"username":"  ab  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username too short", decode(t, rec)["error"])

	rec = f.do(http.MethodPost, "/functions/v1/fetch-roblox-profile", `{"username":"Nobody_Home"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"found": false}, decode(t, rec))

	rec = f.do(http.MethodPost, "/functions/v1/fetch-roblox-profile", `{"username":" ProGamer123 ","participant_id":"p-9"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(42), decode(t, rec)["externalUserId"])
	assert.Equal(t, enrichment.Request{ParticipantID: "p-9", Handle: "ProGamer123"}, f.enricher.reqs[len(f.enricher.reqs)-1])
}

func TestEventsStream(t *testing.T) {
	f := newFixture()
	ts := httptest.NewServer(f.srv)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/tournaments/pvp/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ":\n", line)
	_, _ = reader.ReadString('\n')

	_, err = f.gateway.Register(context.Background(), "NewPlayer_1", "kahoot")
	require.NoError(t, err)
	p, err := f.gateway.Register(context.Background(), "NewPlayer_1", "pvp")
	require.NoError(t, err)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: insert\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var change events.Change
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &change))
	assert.Equal(t, p.ID, change.ParticipantID)
	assert.Equal(t, "pvp", change.TournamentType)

	cancel()
	assert.Eventually(t, func() bool { return f.bus.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond,
		"Closing the stream removes the subscription")
}

// newEnrichingFixture serves the profile endpoint with the real enrichment
// job talking to a fake Roblox API that counts its calls.
func newEnrichingFixture(t *testing.T) (*fixture, *int32) {
	t.Helper()
	var calls int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		switch r.URL.Path {
		case "/v1/usernames/users":
			w.Write([]byte(`{"data":[{"id":7,"name":"quizwhiz","displayName":"Quiz"}]}`))
		default:
			w.Write([]byte(`{"data":[{"targetId":7,"state":"Completed","imageUrl":"https://cdn.example/7.png"}]}`))
		}
	}))
	t.Cleanup(api.Close)

	f := newFixture()
	client := roblox.NewClient(&config.RobloxConfig{
		UsersURL:      api.URL + "/v1/usernames/users",
		ThumbnailsURL: api.URL + "/v1/users/avatar-headshot",
		AvatarSize:    "150x150",
		AvatarFormat:  "Png",
	})
	f.srv.enricher = enrichment.NewJob(f.gateway, client, f.gateway, roblox.Platform)
	return f, &calls
}

func TestFetchProfileDirectRespectsParticipantPlatform(t *testing.T) {
	f, calls := newEnrichingFixture(t)
	p, err := f.store.Insert(context.Background(), "quizwhiz", "kahoot")
	require.NoError(t, err)

	rec := f.do(http.MethodPost, "/functions/v1/fetch-roblox-profile", `{"username":"quizwhiz","participant_id":"`+p.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "unsupported-platform", body["skipped"])
	assert.NotContains(t, body, "externalUserId")

	assert.Zero(t, atomic.LoadInt32(calls), "A Kahoot participant never reaches the Roblox API")
	stored, err := f.store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RobloxUserID)
	assert.Nil(t, stored.RobloxDisplayName)
	assert.Nil(t, stored.RobloxAvatarURL)
}

func TestFetchProfileWebhookWithoutTournament(t *testing.T) {
	f, calls := newEnrichingFixture(t)
	p, err := f.store.Insert(context.Background(), "quizwhiz", "kahoot")
	require.NoError(t, err)

	rec := f.do(http.MethodPost, "/functions/v1/fetch-roblox-profile",
		`{"type":"INSERT","table":"participants","record":{"id":"`+p.ID+`","handle":"quizwhiz"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "missing-tournament", body["skipped"])

	assert.Zero(t, atomic.LoadInt32(calls))
	stored, err := f.store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RobloxUserID)
}

func TestFetchProfileDirectEnrichesRobloxParticipant(t *testing.T) {
	f, calls := newEnrichingFixture(t)
	p, err := f.store.Insert(context.Background(), "quizwhiz", "pvp")
	require.NoError(t, err)

	rec := f.do(http.MethodPost, "/functions/v1/fetch-roblox-profile", `{"username":"quizwhiz","participant_id":"`+p.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(7), body["externalUserId"])
	assert.Equal(t, "Quiz", body["externalDisplayName"])
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))

	stored, err := f.store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RobloxUserID)
	assert.Equal(t, int64(7), *stored.RobloxUserID)
}
