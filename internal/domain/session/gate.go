package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/yanqian/drive-value/internal/domain/user"
	apperrors "github.com/yanqian/drive-value/pkg/errors"
)

// Persisted storage keys.
const (
	KeyAccessToken = "accessToken"
	KeyUser        = "user"
)

// CodeSessionStorage marks failures of the persisted session storage.
const CodeSessionStorage = "session_storage_error"

// Status is the authentication status of a session.
type Status string

const (
	StatusDetermining     Status = "determining"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// State is the gate's view of the session. Token never leaves the server.
type State struct {
	Status   Status         `json:"status"`
	Identity *user.Identity `json:"user,omitempty"`
	Token    string         `json:"-"`
}

// Authenticated reports whether the state carries a usable identity.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Identity != nil && s.Token != ""
}

// Storage is the string key-value store a session persists into.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, keys ...string) error
}

// CredentialVerifier checks the signature of an external credential.
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (ExternalClaims, error)
}

// Gate decides whether a session is authenticated. It starts in
// determining and settles on Initialize.
type Gate struct {
	mu       sync.RWMutex
	storage  Storage
	verifier CredentialVerifier
	state    State
	logger   *slog.Logger
}

// NewGate builds a gate over storage. verifier may be nil, in which case
// external credentials are decoded without signature checks.
func NewGate(storage Storage, verifier CredentialVerifier, logger *slog.Logger) *Gate {
	return &Gate{
		storage:  storage,
		verifier: verifier,
		state:    State{Status: StatusDetermining},
		logger:   logger.With("component", "session.gate"),
	}
}

// Initialize restores the session from storage. A missing or corrupt entry
// clears both keys and leaves the session unauthenticated.
func (g *Gate) Initialize(ctx context.Context) State {
	token, identity, ok := g.restore(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if !ok {
		g.state = State{Status: StatusUnauthenticated}
		return g.state
	}
	g.state = State{Status: StatusAuthenticated, Identity: &identity, Token: token}
	return g.state
}

func (g *Gate) restore(ctx context.Context) (string, user.Identity, bool) {
	token, hasToken, err := g.storage.Get(ctx, KeyAccessToken)
	if err != nil {
		g.logger.Warn("read access token failed", "error", err)
	}
	rawUser, hasUser, userErr := g.storage.Get(ctx, KeyUser)
	if userErr != nil {
		g.logger.Warn("read user failed", "error", userErr)
	}

	var identity user.Identity
	valid := err == nil && userErr == nil && hasToken && hasUser && strings.TrimSpace(token) != ""
	if valid {
		if jsonErr := json.Unmarshal([]byte(rawUser), &identity); jsonErr != nil {
			g.logger.Warn("persisted user is corrupt", "error", jsonErr)
			valid = false
		} else if strings.TrimSpace(identity.ID) == "" {
			g.logger.Warn("persisted user has no id")
			valid = false
		}
	}
	if !valid {
		if hasToken || hasUser {
			if rmErr := g.storage.Remove(ctx, KeyAccessToken, KeyUser); rmErr != nil {
				g.logger.Warn("clear persisted session failed", "error", rmErr)
			}
		}
		return "", user.Identity{}, false
	}
	return token, identity.Normalize(), true
}

// Login persists identity and token and marks the session authenticated.
func (g *Gate) Login(ctx context.Context, identity user.Identity, token string) (State, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return g.State(), apperrors.Wrap("invalid_input", "access token is required", nil)
	}
	identity = identity.Normalize()
	payload, err := json.Marshal(identity)
	if err != nil {
		return g.State(), apperrors.Wrap(CodeSessionStorage, "failed to encode user", err)
	}
	if err := g.storage.Set(ctx, KeyUser, string(payload)); err != nil {
		return g.State(), apperrors.Wrap(CodeSessionStorage, "failed to persist user", err)
	}
	if err := g.storage.Set(ctx, KeyAccessToken, token); err != nil {
		return g.State(), apperrors.Wrap(CodeSessionStorage, "failed to persist access token", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = State{Status: StatusAuthenticated, Identity: &identity, Token: token}
	g.logger.Info("session authenticated", "user_id", identity.ID, "provider", identity.AuthProvider)
	return g.state, nil
}

// LoginWithExternalCredential signs in with a provider-issued JWT such as a
// Google ID token. The credential itself becomes the access token.
func (g *Gate) LoginWithExternalCredential(ctx context.Context, credential string) (State, error) {
	var (
		claims ExternalClaims
		err    error
	)
	if g.verifier != nil {
		claims, err = g.verifier.Verify(ctx, credential)
	} else {
		claims, err = DecodeCredential(credential)
	}
	if err != nil {
		return g.State(), err
	}
	return g.Login(ctx, claims.Identity(), credential)
}

// Logout forgets the persisted session.
func (g *Gate) Logout(ctx context.Context) error {
	err := g.storage.Remove(ctx, KeyAccessToken, KeyUser)

	g.mu.Lock()
	g.state = State{Status: StatusUnauthenticated}
	g.mu.Unlock()

	if err != nil {
		return apperrors.Wrap(CodeSessionStorage, "failed to clear session", err)
	}
	return nil
}

// State returns the current session state.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Access is what a protected view should do for a given state.
type Access string

const (
	AccessPending Access = "pending"
	AccessDenied  Access = "denied"
	AccessGranted Access = "granted"
)

// Guard maps a session state to the access decision for protected views.
func Guard(state State) Access {
	switch state.Status {
	case StatusAuthenticated:
		return AccessGranted
	case StatusUnauthenticated:
		return AccessDenied
	default:
		return AccessPending
	}
}
