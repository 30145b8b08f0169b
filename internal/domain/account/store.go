package account

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/yanqian/drive-value/internal/domain/user"
	apperrors "github.com/yanqian/drive-value/pkg/errors"
	"github.com/yanqian/drive-value/pkg/lifecycle"
)

// MaxRecentSearches bounds the recent search list.
const MaxRecentSearches = 20

// Error codes and failure reasons of account operations.
const (
	CodeAccount    = "account_error"
	CodeValidation = "validation_error"

	ReasonFetchProfile      = "Failed to fetch profile"
	ReasonUpdateProfile     = "Failed to update profile"
	ReasonUpdatePreferences = "Failed to update preferences"
	ReasonAddFavorite       = "Failed to add to favorites"
	ReasonRemoveFavorite    = "Failed to remove from favorites"
	ReasonRecordSearch      = "Failed to record search"
)

// Client is the remote account API. Every call carries the bearer token of
// the signed-in user.
type Client interface {
	Profile(ctx context.Context, token string) (user.Identity, error)
	UpdateProfile(ctx context.Context, token string, profile user.Profile) (user.Profile, error)
	UpdatePreferences(ctx context.Context, token string, prefs user.Preferences) (user.Preferences, error)
	AddFavorite(ctx context.Context, token string, fav user.Favorite) (user.Favorite, error)
	RemoveFavorite(ctx context.Context, token, vin string) error
	RecordSearch(ctx context.Context, token string, search user.SearchRecord) (user.SearchRecord, error)
}

// State is the lifecycle of the latest account operation together with the
// account as it stood when the operation settled.
type State = lifecycle.State[user.Identity]

// Store keeps the account of one session. Mutations from the API are applied
// even when a newer operation has since started; only the reported status
// follows last-request-wins.
type Store struct {
	client  Client
	mu      sync.RWMutex
	account user.Identity
	tracker *lifecycle.Tracker[user.Identity]
	logger  *slog.Logger
}

// NewStore returns an empty account store.
func NewStore(client Client, logger *slog.Logger) *Store {
	return &Store{
		client:  client,
		account: user.Identity{}.Normalize(),
		tracker: lifecycle.NewTracker[user.Identity](),
		logger:  logger.With("component", "account.store"),
	}
}

// Account returns a copy of the current account.
func (s *Store) Account() user.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneIdentity(s.account)
}

// State returns the status of the latest operation.
func (s *Store) State() State {
	return s.tracker.Snapshot()
}

// Seed replaces the account with the identity restored by the session gate.
func (s *Store) Seed(identity user.Identity) {
	s.mu.Lock()
	s.account = cloneIdentity(identity.Normalize())
	s.account.Stats.FavoriteVehicles = len(s.account.Favorites)
	s.mu.Unlock()
}

// Reset empties the account, used on logout.
func (s *Store) Reset() {
	s.mu.Lock()
	s.account = user.Identity{}.Normalize()
	s.mu.Unlock()
	s.tracker.Reset()
}

// Load fetches the full account from the API.
func (s *Store) Load(ctx context.Context, token string) (user.Identity, error) {
	return s.run(ReasonFetchProfile, func() error {
		remote, err := s.client.Profile(ctx, token)
		if err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.account = remote.Normalize()
		return nil
	})
}

// UpdateProfile saves profile and merges the API's answer into the account.
func (s *Store) UpdateProfile(ctx context.Context, token string, profile user.Profile) (user.Identity, error) {
	return s.run(ReasonUpdateProfile, func() error {
		saved, err := s.client.UpdateProfile(ctx, token, profile)
		if err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.account.Profile = mergeProfile(s.account.Profile, saved)
		return nil
	})
}

// UpdatePreferences saves preferences and merges the result.
func (s *Store) UpdatePreferences(ctx context.Context, token string, prefs user.Preferences) (user.Identity, error) {
	return s.run(ReasonUpdatePreferences, func() error {
		saved, err := s.client.UpdatePreferences(ctx, token, prefs)
		if err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.account.Preferences = mergePreferences(s.account.Preferences, saved)
		return nil
	})
}

// AddFavorite saves a vehicle. An existing favorite with the same VIN is
// replaced and the new one moves to the front.
func (s *Store) AddFavorite(ctx context.Context, token string, fav user.Favorite) (user.Identity, error) {
	fav.VIN = strings.ToUpper(strings.TrimSpace(fav.VIN))
	if len(fav.VIN) != 17 {
		return s.Account(), apperrors.Wrap(CodeValidation, "VIN must be exactly 17 characters", nil)
	}
	return s.run(ReasonAddFavorite, func() error {
		saved, err := s.client.AddFavorite(ctx, token, fav)
		if err != nil {
			return err
		}
		if saved.VIN == "" {
			saved = fav
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		favorites := make([]user.Favorite, 0, len(s.account.Favorites)+1)
		favorites = append(favorites, saved)
		for _, existing := range s.account.Favorites {
			if !strings.EqualFold(existing.VIN, saved.VIN) {
				favorites = append(favorites, existing)
			}
		}
		s.account.Favorites = favorites
		s.account.Stats.FavoriteVehicles = len(favorites)
		return nil
	})
}

// RemoveFavorite deletes the favorite with vin.
func (s *Store) RemoveFavorite(ctx context.Context, token, vin string) (user.Identity, error) {
	vin = strings.TrimSpace(vin)
	return s.run(ReasonRemoveFavorite, func() error {
		if err := s.client.RemoveFavorite(ctx, token, vin); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		favorites := make([]user.Favorite, 0, len(s.account.Favorites))
		for _, existing := range s.account.Favorites {
			if !strings.EqualFold(existing.VIN, vin) {
				favorites = append(favorites, existing)
			}
		}
		s.account.Favorites = favorites
		s.account.Stats.FavoriteVehicles = len(favorites)
		return nil
	})
}

// RecordSearch adds a search to the front of the recent list.
func (s *Store) RecordSearch(ctx context.Context, token string, search user.SearchRecord) (user.Identity, error) {
	search.VIN = strings.ToUpper(strings.TrimSpace(search.VIN))
	if search.VIN == "" {
		return s.Account(), apperrors.Wrap(CodeValidation, "VIN is required", nil)
	}
	return s.run(ReasonRecordSearch, func() error {
		saved, err := s.client.RecordSearch(ctx, token, search)
		if err != nil {
			return err
		}
		if saved.VIN == "" {
			saved = search
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		searches := make([]user.SearchRecord, 0, min(len(s.account.RecentSearches)+1, MaxRecentSearches))
		searches = append(searches, saved)
		for _, existing := range s.account.RecentSearches {
			if len(searches) == MaxRecentSearches {
				break
			}
			searches = append(searches, existing)
		}
		s.account.RecentSearches = searches
		s.account.Stats.TotalSearches++
		return nil
	})
}

func (s *Store) run(reason string, call func() error) (user.Identity, error) {
	seq := s.tracker.Begin()
	if err := call(); err != nil {
		s.tracker.Reject(seq, reason, err)
		s.logger.Warn("account operation failed", "reason", reason, "error", err)
		return s.Account(), apperrors.Wrap(CodeAccount, reason, err)
	}
	account := s.Account()
	s.tracker.Resolve(seq, account)
	return account, nil
}

func mergeProfile(current, update user.Profile) user.Profile {
	current.FirstName = pick(update.FirstName, current.FirstName)
	current.LastName = pick(update.LastName, current.LastName)
	current.Name = pick(update.Name, current.Name)
	current.Avatar = pick(update.Avatar, current.Avatar)
	current.City = pick(update.City, current.City)
	current.State = pick(update.State, current.State)
	return current
}

func mergePreferences(current, update user.Preferences) user.Preferences {
	current.Theme = pick(update.Theme, current.Theme)
	current.Currency = pick(update.Currency, current.Currency)
	current.Units = pick(update.Units, current.Units)
	return current
}

func pick(update, current string) string {
	if strings.TrimSpace(update) != "" {
		return update
	}
	return current
}

func cloneIdentity(in user.Identity) user.Identity {
	out := in
	out.Favorites = append([]user.Favorite{}, in.Favorites...)
	out.RecentSearches = append([]user.SearchRecord{}, in.RecentSearches...)
	return out
}
