// Package workspace holds the per-browser-session state: the session gate,
// the valuation coordinator and the account store.
package workspace

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yanqian/drive-value/internal/domain/account"
	"github.com/yanqian/drive-value/internal/domain/session"
	"github.com/yanqian/drive-value/internal/domain/valuation"
	"github.com/yanqian/drive-value/pkg/util"
)

// DefaultIdleTTL evicts workspaces nobody touched for this long.
const DefaultIdleTTL = 30 * time.Minute

// StorageProvider scopes persisted session storage to one session ID.
type StorageProvider interface {
	For(sessionID string) session.Storage
}

// Config tunes the registry.
type Config struct {
	IdleTTL       time.Duration
	PruneInterval time.Duration
	Valuation     valuation.Config
}

// Dependencies are shared by all workspaces.
type Dependencies struct {
	Storage   StorageProvider
	Verifier  session.CredentialVerifier
	Valuation valuation.Dependencies
	Accounts  account.Client
}

// Workspace is the state of one browser session.
type Workspace struct {
	ID          string
	Gate        *session.Gate
	Coordinator *valuation.Coordinator
	Account     *account.Store

	mu       sync.Mutex
	lastSeen time.Time
}

// Logout clears the session and every piece of session-scoped state.
func (w *Workspace) Logout(ctx context.Context) error {
	gateErr := w.Gate.Logout(ctx)
	historyErr := w.Coordinator.Reset(ctx)
	w.Account.Reset()
	return errors.Join(gateErr, historyErr)
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// Registry creates workspaces lazily and evicts idle ones. Evicted sessions
// come back from persisted storage on their next request.
type Registry struct {
	cfg    Config
	deps   Dependencies
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewRegistry builds an empty registry.
func NewRegistry(cfg Config, deps Dependencies, logger *slog.Logger) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = cfg.IdleTTL / 2
	}
	return &Registry{
		cfg:        cfg,
		deps:       deps,
		logger:     logger.With("component", "workspace.registry"),
		now:        util.NowUTC,
		workspaces: make(map[string]*Workspace),
	}
}

// Get returns the workspace for id, creating it and restoring its session
// from storage on first use.
func (r *Registry) Get(ctx context.Context, id string) *Workspace {
	now := r.now()
	r.mu.Lock()
	ws, ok := r.workspaces[id]
	r.mu.Unlock()
	if ok {
		ws.touch(now)
		return ws
	}

	created := r.build(ctx, id)
	created.touch(now)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.workspaces[id]; ok {
		existing.touch(now)
		return existing
	}
	r.workspaces[id] = created
	return created
}

func (r *Registry) build(ctx context.Context, id string) *Workspace {
	ws := &Workspace{
		ID:          id,
		Gate:        session.NewGate(r.deps.Storage.For(id), r.deps.Verifier, r.logger),
		Coordinator: valuation.NewCoordinator(id, r.cfg.Valuation, r.deps.Valuation, r.logger),
		Account:     account.NewStore(r.deps.Accounts, r.logger),
	}
	state := ws.Gate.Initialize(ctx)
	if state.Authenticated() {
		ws.Account.Seed(*state.Identity)
	}
	r.logger.Debug("workspace created", "session_status", state.Status)
	return ws
}

// Len reports how many workspaces are live.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Prune evicts workspaces idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Prune() int {
	cutoff := r.now().Add(-r.cfg.IdleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, ws := range r.workspaces {
		if ws.idleSince().Before(cutoff) {
			ws.Coordinator.Clear()
			delete(r.workspaces, id)
			removed++
		}
	}
	return removed
}

// Run prunes periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := r.Prune(); removed > 0 {
				r.logger.Info("idle workspaces evicted", "count", removed, "live", r.Len())
			}
		}
	}
}
