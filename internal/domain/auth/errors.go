package auth

// Error codes of the authentication workflows.
const (
	CodeInvalidInput       = "invalid_input"
	CodeInvalidCredentials = "invalid_credentials"
	CodeAuth               = "auth_error"
	CodeNotConfigured      = "auth_not_configured"
	CodeOAuthExchange      = "oauth_exchange_failed"
	CodeInvalidToken       = "invalid_token"
)
