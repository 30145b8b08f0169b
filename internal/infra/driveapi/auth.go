package driveapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/yanqian/drive-value/internal/domain/auth"
	apperrors "github.com/yanqian/drive-value/pkg/errors"
)

type authResponse struct {
	Token       string     `json:"token"`
	AccessToken string     `json:"accessToken"`
	User        remoteUser `json:"user"`
}

func (r authResponse) session() auth.RemoteSession {
	token := r.Token
	if token == "" {
		token = r.AccessToken
	}
	return auth.RemoteSession{Token: token, User: r.User.identity()}
}

// Login exchanges email and password for a token.
func (c *Client) Login(ctx context.Context, req auth.LoginRequest) (auth.RemoteSession, error) {
	return c.authenticate(ctx, "/auth/login", req)
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, req auth.RegisterRequest) (auth.RemoteSession, error) {
	return c.authenticate(ctx, "/auth/register", req)
}

// Google exchanges a Google ID token for an API session.
func (c *Client) Google(ctx context.Context, credential string) (auth.RemoteSession, error) {
	return c.authenticate(ctx, "/auth/google", auth.GoogleRequest{Credential: credential})
}

// Logout invalidates the token on the API side.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", token, nil)
	return err
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (auth.RemoteSession, error) {
	var out authResponse
	if err := c.decode(ctx, http.MethodPost, path, "", body, &out); err != nil {
		return auth.RemoteSession{}, classifyAuthError(err)
	}
	return out.session(), nil
}

func classifyAuthError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.Wrap(auth.CodeInvalidInput, messageOr(apiErr, "invalid sign-in request"), err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.Wrap(auth.CodeInvalidCredentials, "invalid email or password", err)
	case http.StatusConflict:
		return apperrors.Wrap("email_exists", "email already registered", err)
	default:
		return err
	}
}

func messageOr(apiErr *APIError, fallback string) string {
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

var _ auth.Remote = (*Client)(nil)
