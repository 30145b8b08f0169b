package auth

import "github.com/yanqian/drive-value/internal/domain/user"

// Config drives authentication behavior.
type Config struct {
	Google GoogleConfig
}

// GoogleConfig holds OAuth settings for Google sign-in.
type GoogleConfig struct {
	ClientID             string
	ClientSecret         string
	RedirectURL          string
	StateEncryptionKey   string
	PostLoginRedirectURL string
	// ExchangeWithAPI sends Google credentials to the remote API instead of
	// signing in locally from the verified ID token.
	ExchangeWithAPI bool
}

// Enabled reports whether the code flow can run.
func (c GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

// RegisterRequest captures the registration payload.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginRequest captures login details.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// GoogleRequest carries a Google ID token obtained by the browser.
type GoogleRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// RemoteSession is what the remote API answers to a successful sign-in.
type RemoteSession struct {
	Token string        `json:"token"`
	User  user.Identity `json:"user"`
}
