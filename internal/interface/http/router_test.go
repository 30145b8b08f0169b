package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/drive-value/internal/domain/auth"
	"github.com/yanqian/drive-value/internal/domain/user"
	"github.com/yanqian/drive-value/internal/domain/valuation"
	"github.com/yanqian/drive-value/internal/domain/workspace"
	"github.com/yanqian/drive-value/internal/infra/config"
	"github.com/yanqian/drive-value/internal/infra/historyrepo"
	"github.com/yanqian/drive-value/internal/infra/reportarchive"
	"github.com/yanqian/drive-value/internal/infra/sessionstore"
	"github.com/yanqian/drive-value/pkg/metrics"
)

const (
	testVIN        = "JF1GR8H6XBL831881"
	cookieName     = "dv_session"
	valuationReply = `{
  "vehicle": {"year": 2011, "make": "Subaru", "model": "Impreza", "vin": "JF1GR8H6XBL831881"},
  "ai_valuation": {
    "market_values": {
      "private_party_value": {"min": 18000, "max": 22000, "suggested_ai_price": 20000}
    }
  }
}`
)

func TestRouter_GuardedRoutesRequireSession(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"unauthenticated"`)
	require.NotNil(t, h.cookie)

	for _, path := range []string{"/api/v1/valuations/state", "/api/v1/valuations/history", "/api/v1/account"} {
		rec := h.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		errBody := decodeErrorBody(t, rec.Body.Bytes())
		require.Equal(t, "unauthorized", errBody["error"]["code"])
	}
	require.Zero(t, h.valuations.callCount())
}

func TestRouter_LoginThenValuate(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	rec := h.do(t, http.MethodPost, "/api/v1/valuations", `{"vin":"jf1gr8h6xbl831881","condition":"Excellent"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var state struct {
		Status string `json:"status"`
		Value  struct {
			Vehicle struct {
				Make string `json:"make"`
			} `json:"vehicle"`
			Summary struct {
				RecommendedPrice float64 `json:"recommendedPrice"`
			} `json:"summary"`
		} `json:"value"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Equal(t, "succeeded", state.Status)
	require.Equal(t, "Subaru", state.Value.Vehicle.Make)
	require.Equal(t, testVIN, h.valuations.lastRequest().VIN)
	require.Equal(t, "excellent", h.valuations.lastRequest().Condition)

	rec = h.do(t, http.MethodGet, "/api/v1/valuations/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		History []valuation.HistoryEntry `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.History, 1)
	require.Equal(t, testVIN, history.History[0].VIN)

	require.Len(t, h.archive.Keys(), 1)
	require.Equal(t, []string{testVIN}, h.accounts.searchedVINs())

	rec = h.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"succeeded":1`)

	rec = h.do(t, http.MethodDelete, "/api/v1/valuations/history", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(t, http.MethodDelete, "/api/v1/valuations/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"idle"`)
}

func TestRouter_ValuationFailuresBecomeFailedState(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	rec := h.do(t, http.MethodPost, "/api/v1/valuations", `{"vin":"SHORT"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "VIN must be exactly 17 characters")
	require.Zero(t, h.valuations.callCount())

	h.valuations.setError(&valuation.StatusError{StatusCode: http.StatusBadGateway})
	rec = h.do(t, http.MethodPost, "/api/v1/valuations", `{"vin":"`+testVIN+`"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"failed"`)
	require.Contains(t, rec.Body.String(), "API request failed: 502")
}

func TestRouter_InvalidJSON(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	rec := h.do(t, http.MethodPost, "/api/v1/valuations", `{"vin":123}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
}

func TestRouter_LoginRejected(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"not-an-email","password":"secret123"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, auth.CodeInvalidInput, errBody["error"]["code"])
}

func TestRouter_LogoutClearsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/v1/valuations", `{"vin":"`+testVIN+`"}`).Code)

	rec := h.do(t, http.MethodPost, "/api/v1/auth/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"unauthenticated"`)
	require.Equal(t, []string{"tok-1"}, h.remote.loggedOut)

	rec = h.do(t, http.MethodGet, "/api/v1/valuations/state", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	h.login(t)
	rec = h.do(t, http.MethodGet, "/api/v1/valuations/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"history":[]`)
}

func TestRouter_GoogleCredentialSignIn(t *testing.T) {
	h := newHarness(t)
	credential, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "google-123",
		"email": "driver@example.com",
		"name":  "Dana Driver",
	}).SignedString([]byte("unverified"))
	require.NoError(t, err)

	rec := h.do(t, http.MethodPost, "/api/v1/auth/google", `{"credential":"`+credential+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"authenticated"`)
	require.Contains(t, rec.Body.String(), "driver@example.com")

	rec = h.do(t, http.MethodPost, "/api/v1/auth/google", `{"credential":"not-a-jwt"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "credential_decode_error", errBody["error"]["code"])
}

func TestRouter_GoogleCodeFlowNotConfigured(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/auth/google/start", "")
	require.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/auth/google/callback?state=abc&code=xyz", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_oauth_state", errBody["error"]["code"])
}

func TestRouter_AccountFavorites(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	rec := h.do(t, http.MethodPost, "/api/v1/account/favorites", `{"vin":"`+testVIN+`","make":"Subaru"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp accountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Account.Favorites, 1)
	require.Equal(t, 1, resp.Account.Stats.FavoriteVehicles)

	rec = h.do(t, http.MethodDelete, "/api/v1/account/favorites/"+testVIN, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Account.Favorites)

	rec = h.do(t, http.MethodPut, "/api/v1/account/preferences", `{"theme":"light"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "light", resp.Account.Preferences.Theme)
	require.Equal(t, "USD", resp.Account.Preferences.Currency)
}

func TestRouter_ForgedCookieStartsNewSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   h.sessionID(t),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("someone-elses-secret-someone-elses"))
	require.NoError(t, err)
	h.cookie = &http.Cookie{Name: cookieName, Value: forged}

	rec := h.do(t, http.MethodGet, "/api/v1/valuations/state", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEqual(t, forged, h.cookie.Value)
}

func TestRouter_ValuationEventsStreamsCurrentState(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/valuations/events", nil).WithContext(ctx)
	req.AddCookie(h.cookie)
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	frames := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.NotEmpty(t, frames)
	require.True(t, strings.HasPrefix(frames[0], "data: "))
	var state valuation.RequestState
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &state))
	require.Equal(t, "idle", string(state.Status))
}

func TestRouter_Health(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

type harness struct {
	server     *http.Server
	cookies    *sessionCookies
	valuations *stubValuationClient
	accounts   *stubAccounts
	remote     *stubRemote
	archive    *reportarchive.MemoryArchive
	cookie     *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := newTestLogger()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			Cookie:       config.CookieConfig{Name: cookieName, Secret: strings.Repeat("k", 32)},
		},
	}
	h := &harness{
		valuations: &stubValuationClient{reply: []byte(valuationReply)},
		accounts:   &stubAccounts{},
		remote:     &stubRemote{},
		archive:    reportarchive.NewMemoryArchive(),
	}
	outcomes := metrics.NewOutcomes()
	registry := workspace.NewRegistry(workspace.Config{}, workspace.Dependencies{
		Storage: sessionstore.NewMemoryStore(),
		Valuation: valuation.Dependencies{
			Client:   h.valuations,
			History:  historyrepo.NewMemoryRepository(),
			Archive:  h.archive,
			Outcomes: outcomes,
		},
		Accounts: h.accounts,
	}, logger)
	handler, err := NewHandler(cfg, registry, auth.NewService(auth.Config{}, h.remote, logger), outcomes, logger)
	require.NoError(t, err)
	h.cookies = handler.cookies
	h.server = NewRouter(cfg, handler, registry)
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			h.cookie = c
		}
	}
	return rec
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"Driver@Example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"status":"authenticated"`)
	require.NotContains(t, rec.Body.String(), "tok-1")
}

func (h *harness) sessionID(t *testing.T) string {
	t.Helper()
	require.NotNil(t, h.cookie)
	id, ok := h.cookies.parse(h.cookie.Value)
	require.True(t, ok)
	return id
}

type stubValuationClient struct {
	mu       sync.Mutex
	reply    []byte
	err      error
	requests []valuation.Request
}

func (s *stubValuationClient) Valuate(_ context.Context, req valuation.Request) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.reply, nil
}

func (s *stubValuationClient) setError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *stubValuationClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubValuationClient) lastRequest() valuation.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type stubAccounts struct {
	mu       sync.Mutex
	searches []user.SearchRecord
}

func (s *stubAccounts) Profile(context.Context, string) (user.Identity, error) {
	return user.Identity{ID: "u-1", Email: "driver@example.com"}, nil
}

func (s *stubAccounts) UpdateProfile(_ context.Context, _ string, profile user.Profile) (user.Profile, error) {
	return profile, nil
}

func (s *stubAccounts) UpdatePreferences(_ context.Context, _ string, prefs user.Preferences) (user.Preferences, error) {
	return prefs, nil
}

func (s *stubAccounts) AddFavorite(_ context.Context, _ string, fav user.Favorite) (user.Favorite, error) {
	return fav, nil
}

func (s *stubAccounts) RemoveFavorite(context.Context, string, string) error {
	return nil
}

func (s *stubAccounts) RecordSearch(_ context.Context, _ string, search user.SearchRecord) (user.SearchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = append(s.searches, search)
	return search, nil
}

func (s *stubAccounts) searchedVINs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.searches))
	for _, search := range s.searches {
		out = append(out, search.VIN)
	}
	return out
}

type stubRemote struct {
	loggedOut []string
}

func (s *stubRemote) Login(_ context.Context, req auth.LoginRequest) (auth.RemoteSession, error) {
	return auth.RemoteSession{Token: "tok-1", User: user.Identity{ID: "u-1", Email: req.Email}}, nil
}

func (s *stubRemote) Register(_ context.Context, req auth.RegisterRequest) (auth.RemoteSession, error) {
	return auth.RemoteSession{Token: "tok-1", User: user.Identity{ID: "u-1", Email: req.Email}}, nil
}

func (s *stubRemote) Google(context.Context, string) (auth.RemoteSession, error) {
	return auth.RemoteSession{}, nil
}

func (s *stubRemote) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return nil
}

func decodeErrorBody(t *testing.T, body []byte) map[string]map[string]string {
	t.Helper()
	var payload map[string]map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}
