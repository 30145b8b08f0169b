package user

import "strings"

// Identity is the persisted identity record of a signed-in user. It is
// stored as JSON next to the bearer token and mirrors the account payload
// returned by the remote API.
type Identity struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	Profile        Profile        `json:"profile"`
	CreatedAt      string         `json:"createdAt,omitempty"`
	Preferences    Preferences    `json:"preferences"`
	Stats          Stats          `json:"stats"`
	Subscription   Subscription   `json:"subscription"`
	RecentSearches []SearchRecord `json:"recentSearches"`
	Favorites      []Favorite     `json:"favorites"`
	AuthProvider   string         `json:"authProvider,omitempty"`
}

// Profile holds display details.
type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
}

// DisplayName picks the best available name for the profile.
func (p Profile) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// Preferences are UI settings kept per account.
type Preferences struct {
	Theme    string `json:"theme" binding:"omitempty,oneof=dark light system"`
	Currency string `json:"currency" binding:"omitempty,len=3"`
	Units    string `json:"units" binding:"omitempty,oneof=imperial metric"`
}

// Stats are account counters.
type Stats struct {
	TotalSearches    int `json:"totalSearches"`
	FavoriteVehicles int `json:"favoriteVehicles"`
	SearchStreak     int `json:"searchStreak"`
}

// Subscription describes the billing plan.
type Subscription struct {
	Plan        string  `json:"plan"`
	Status      string  `json:"status"`
	Price       float64 `json:"price"`
	NextBilling string  `json:"nextBilling,omitempty"`
}

// Favorite is a saved vehicle.
type Favorite struct {
	VIN     string  `json:"vin" binding:"required,len=17"`
	Year    string  `json:"year,omitempty"`
	Make    string  `json:"make,omitempty"`
	Model   string  `json:"model,omitempty"`
	Price   float64 `json:"price,omitempty"`
	AddedAt string  `json:"addedAt,omitempty"`
}

// SearchRecord is an entry of the account search history.
type SearchRecord struct {
	ID         string `json:"id,omitempty"`
	VIN        string `json:"vin" binding:"required"`
	Year       string `json:"year,omitempty"`
	Make       string `json:"make,omitempty"`
	Model      string `json:"model,omitempty"`
	Condition  string `json:"condition,omitempty"`
	SearchedAt string `json:"searchedAt,omitempty"`
}

// DefaultPreferences are applied to new and reset accounts.
func DefaultPreferences() Preferences {
	return Preferences{Theme: "dark", Currency: "USD", Units: "imperial"}
}

// DefaultSubscription is the free plan.
func DefaultSubscription() Subscription {
	return Subscription{Plan: "free", Status: "active"}
}

// Normalize fills zero-valued sections with defaults and replaces nil
// slices with empty ones so the record always serializes completely.
func (i Identity) Normalize() Identity {
	if i.Preferences == (Preferences{}) {
		i.Preferences = DefaultPreferences()
	}
	if i.Subscription == (Subscription{}) {
		i.Subscription = DefaultSubscription()
	}
	if i.RecentSearches == nil {
		i.RecentSearches = []SearchRecord{}
	}
	if i.Favorites == nil {
		i.Favorites = []Favorite{}
	}
	return i
}
