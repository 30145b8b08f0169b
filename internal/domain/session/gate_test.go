package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/drive-value/internal/domain/user"
	apperrors "github.com/yanqian/drive-value/pkg/errors"
)

func TestGateInitialize(t *testing.T) {
	cases := []struct {
		name    string
		entries map[string]string
		status  Status
		kept    int
	}{
		{name: "empty", entries: map[string]string{}, status: StatusUnauthenticated},
		{name: "token only", entries: map[string]string{KeyAccessToken: "tok"}, status: StatusUnauthenticated},
		{name: "user only", entries: map[string]string{KeyUser: `{"id":"u1"}`}, status: StatusUnauthenticated},
		{name: "corrupt user", entries: map[string]string{KeyAccessToken: "tok", KeyUser: "{not json"}, status: StatusUnauthenticated},
		{name: "null user", entries: map[string]string{KeyAccessToken: "tok", KeyUser: "null"}, status: StatusUnauthenticated},
		{name: "user without id", entries: map[string]string{KeyAccessToken: "tok", KeyUser: `{"email":"a@b.co"}`}, status: StatusUnauthenticated},
		{name: "valid", entries: map[string]string{KeyAccessToken: "tok", KeyUser: `{"id":"u1","email":"a@b.co"}`}, status: StatusAuthenticated, kept: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			storage := newMapStorage(tc.entries)
			gate := NewGate(storage, nil, discardLogger())
			require.Equal(t, StatusDetermining, gate.State().Status)
			require.Equal(t, AccessPending, Guard(gate.State()))

			state := gate.Initialize(context.Background())
			require.Equal(t, tc.status, state.Status)
			require.Equal(t, tc.status, gate.State().Status)
			require.Len(t, storage.snapshot(), tc.kept)
		})
	}
}

func TestGateInitializeRestoresIdentity(t *testing.T) {
	storage := newMapStorage(map[string]string{
		KeyAccessToken: "tok",
		KeyUser:        `{"id":"u1","email":"a@b.co","profile":{"name":"Ada"}}`,
	})
	gate := NewGate(storage, nil, discardLogger())

	state := gate.Initialize(context.Background())
	require.True(t, state.Authenticated())
	require.Equal(t, "u1", state.Identity.ID)
	require.Equal(t, "tok", state.Token)
	require.Equal(t, user.DefaultPreferences(), state.Identity.Preferences)
	require.NotNil(t, state.Identity.Favorites)
	require.Equal(t, AccessGranted, Guard(state))
}

func TestGateLoginLogout(t *testing.T) {
	storage := newMapStorage(nil)
	gate := NewGate(storage, nil, discardLogger())
	gate.Initialize(context.Background())
	require.Equal(t, AccessDenied, Guard(gate.State()))

	state, err := gate.Login(context.Background(), user.Identity{ID: "u1", Email: "a@b.co"}, "tok")
	require.NoError(t, err)
	require.Equal(t, StatusAuthenticated, state.Status)
	stored := storage.snapshot()
	require.Equal(t, "tok", stored[KeyAccessToken])
	require.Contains(t, stored[KeyUser], `"email":"a@b.co"`)

	restored := NewGate(storage, nil, discardLogger()).Initialize(context.Background())
	require.Equal(t, StatusAuthenticated, restored.Status)

	require.NoError(t, gate.Logout(context.Background()))
	require.Equal(t, StatusUnauthenticated, gate.State().Status)
	require.Empty(t, storage.snapshot())

	afterLogout := NewGate(storage, nil, discardLogger()).Initialize(context.Background())
	require.Equal(t, StatusUnauthenticated, afterLogout.Status)
	require.Equal(t, AccessDenied, Guard(afterLogout))
}

func TestGateLoginRequiresToken(t *testing.T) {
	gate := NewGate(newMapStorage(nil), nil, discardLogger())
	_, err := gate.Login(context.Background(), user.Identity{ID: "u1"}, "  ")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestGateLoginWithExternalCredential(t *testing.T) {
	credential := signedCredential(t, jwt.MapClaims{
		"sub":         "google-123",
		"email":       "ada@example.com",
		"given_name":  "Ada",
		"family_name": "Lovelace",
		"picture":     "https://example.com/ada.png",
	})
	storage := newMapStorage(nil)
	gate := NewGate(storage, nil, discardLogger())

	state, err := gate.LoginWithExternalCredential(context.Background(), credential)
	require.NoError(t, err)
	require.Equal(t, StatusAuthenticated, state.Status)
	require.Equal(t, "google-123", state.Identity.ID)
	require.Equal(t, "Ada Lovelace", state.Identity.Profile.Name)
	require.Equal(t, ProviderGoogle, state.Identity.AuthProvider)
	require.Equal(t, credential, storage.snapshot()[KeyAccessToken])
}

func TestGateLoginWithMalformedCredential(t *testing.T) {
	gate := NewGate(newMapStorage(nil), nil, discardLogger())
	gate.Initialize(context.Background())

	for _, credential := range []string{"", "abc", "a.b", "a.b.c"} {
		_, err := gate.LoginWithExternalCredential(context.Background(), credential)
		require.Error(t, err, credential)
		require.True(t, apperrors.IsCode(err, CodeCredentialDecode), credential)
	}
	require.Equal(t, StatusUnauthenticated, gate.State().Status)
}

func TestGateUsesVerifier(t *testing.T) {
	verifier := &stubVerifier{err: apperrors.Wrap(CodeCredentialDecode, "bad signature", errors.New("sig"))}
	gate := NewGate(newMapStorage(nil), verifier, discardLogger())

	_, err := gate.LoginWithExternalCredential(context.Background(), "x.y.z")
	require.True(t, apperrors.IsCode(err, CodeCredentialDecode))
	require.Equal(t, 1, verifier.calls)
}

func signedCredential(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mapStorage struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMapStorage(entries map[string]string) *mapStorage {
	copied := make(map[string]string, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	return &mapStorage{entries: copied}
}

func (m *mapStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *mapStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *mapStorage) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *mapStorage) snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

type stubVerifier struct {
	calls int
	err   error
}

func (s *stubVerifier) Verify(context.Context, string) (ExternalClaims, error) {
	s.calls++
	return ExternalClaims{}, s.err
}
