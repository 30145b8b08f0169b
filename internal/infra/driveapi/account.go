package driveapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/yanqian/drive-value/internal/domain/account"
	"github.com/yanqian/drive-value/internal/domain/user"
)

// remoteUser is the account document as the API stores it.
type remoteUser struct {
	MongoID        string              `json:"_id"`
	ID             string              `json:"id"`
	Email          string              `json:"email"`
	Profile        user.Profile        `json:"profile"`
	CreatedAt      string              `json:"createdAt"`
	Preferences    user.Preferences    `json:"preferences"`
	Stats          user.Stats          `json:"stats"`
	Subscription   user.Subscription   `json:"subscription"`
	RecentSearches []user.SearchRecord `json:"recentSearches"`
	Favorites      []user.Favorite     `json:"favorites"`
	AuthProvider   string              `json:"authProvider"`
}

func (r remoteUser) identity() user.Identity {
	id := r.MongoID
	if id == "" {
		id = r.ID
	}
	return user.Identity{
		ID:             id,
		Email:          r.Email,
		Profile:        r.Profile,
		CreatedAt:      r.CreatedAt,
		Preferences:    r.Preferences,
		Stats:          r.Stats,
		Subscription:   r.Subscription,
		RecentSearches: r.RecentSearches,
		Favorites:      r.Favorites,
		AuthProvider:   r.AuthProvider,
	}.Normalize()
}

// Profile loads the signed-in user's account.
func (c *Client) Profile(ctx context.Context, token string) (user.Identity, error) {
	var out remoteUser
	if err := c.decode(ctx, http.MethodGet, "/user/profile", token, nil, &out); err != nil {
		return user.Identity{}, err
	}
	return out.identity(), nil
}

// UpdateProfile saves profile fields.
func (c *Client) UpdateProfile(ctx context.Context, token string, profile user.Profile) (user.Profile, error) {
	var out struct {
		Profile user.Profile `json:"profile"`
	}
	if err := c.decode(ctx, http.MethodPut, "/user/profile", token, profile, &out); err != nil {
		return user.Profile{}, err
	}
	return out.Profile, nil
}

// UpdatePreferences saves UI preferences.
func (c *Client) UpdatePreferences(ctx context.Context, token string, prefs user.Preferences) (user.Preferences, error) {
	var out struct {
		Preferences user.Preferences `json:"preferences"`
	}
	if err := c.decode(ctx, http.MethodPut, "/user/preferences", token, prefs, &out); err != nil {
		return user.Preferences{}, err
	}
	return out.Preferences, nil
}

// AddFavorite saves a vehicle to favorites.
func (c *Client) AddFavorite(ctx context.Context, token string, fav user.Favorite) (user.Favorite, error) {
	var out struct {
		Favorite user.Favorite `json:"favorite"`
	}
	if err := c.decode(ctx, http.MethodPost, "/user/favorites", token, fav, &out); err != nil {
		return user.Favorite{}, err
	}
	return out.Favorite, nil
}

// RemoveFavorite deletes a favorite by VIN.
func (c *Client) RemoveFavorite(ctx context.Context, token, vin string) error {
	_, err := c.do(ctx, http.MethodDelete, "/user/favorites/"+url.PathEscape(vin), token, nil)
	return err
}

// RecordSearch appends a search to the account history.
func (c *Client) RecordSearch(ctx context.Context, token string, search user.SearchRecord) (user.SearchRecord, error) {
	var out struct {
		Search user.SearchRecord `json:"search"`
	}
	if err := c.decode(ctx, http.MethodPost, "/user/searches", token, search, &out); err != nil {
		return user.SearchRecord{}, err
	}
	return out.Search, nil
}

var _ account.Client = (*Client)(nil)
