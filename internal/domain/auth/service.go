package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode"

	"github.com/yanqian/drive-value/internal/domain/session"
	"github.com/yanqian/drive-value/internal/domain/user"
	apperrors "github.com/yanqian/drive-value/pkg/errors"
)

// Gate records the outcome of a sign-in for one browser session.
type Gate interface {
	Login(ctx context.Context, identity user.Identity, token string) (session.State, error)
	LoginWithExternalCredential(ctx context.Context, credential string) (session.State, error)
}

// Service exposes authentication workflows.
type Service interface {
	Login(ctx context.Context, gate Gate, req LoginRequest) (session.State, error)
	Register(ctx context.Context, gate Gate, req RegisterRequest) (session.State, error)
	Google(ctx context.Context, gate Gate, credential string) (session.State, error)
	GoogleAuthURL(ctx context.Context, state, codeChallenge string) (string, error)
	GoogleCallback(ctx context.Context, gate Gate, code, codeVerifier string) (session.State, error)
	Logout(ctx context.Context, token string)
}

type service struct {
	cfg    Config
	remote Remote
	logger *slog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg Config, remote Remote, logger *slog.Logger) Service {
	return &service{
		cfg:    cfg,
		remote: remote,
		logger: logger.With("component", "auth.service"),
	}
}

func (s *service) Login(ctx context.Context, gate Gate, req LoginRequest) (session.State, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return session.State{}, apperrors.Wrap(CodeInvalidInput, "invalid email address", err)
	}
	if strings.TrimSpace(req.Password) == "" {
		return session.State{}, apperrors.Wrap(CodeInvalidInput, "password cannot be empty", nil)
	}
	remote, err := s.remote.Login(ctx, LoginRequest{Email: email, Password: req.Password})
	if err != nil {
		return session.State{}, remoteFailure(err, "login failed")
	}
	return s.establish(ctx, gate, remote, email)
}

func (s *service) Register(ctx context.Context, gate Gate, req RegisterRequest) (session.State, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return session.State{}, apperrors.Wrap(CodeInvalidInput, "invalid email address", err)
	}
	if err := validatePassword(req.Password); err != nil {
		return session.State{}, apperrors.Wrap(CodeInvalidInput, err.Error(), nil)
	}
	first, err := normalizeName(req.FirstName)
	if err != nil {
		return session.State{}, apperrors.Wrap(CodeInvalidInput, "first name "+err.Error(), nil)
	}
	last, err := normalizeName(req.LastName)
	if err != nil {
		return session.State{}, apperrors.Wrap(CodeInvalidInput, "last name "+err.Error(), nil)
	}

	remote, err := s.remote.Register(ctx, RegisterRequest{Email: email, Password: req.Password, FirstName: first, LastName: last})
	if err != nil {
		return session.State{}, remoteFailure(err, "registration failed")
	}
	if remote.User.Profile.FirstName == "" && remote.User.Profile.LastName == "" {
		remote.User.Profile.FirstName = first
		remote.User.Profile.LastName = last
	}
	if remote.User.Profile.Name == "" {
		remote.User.Profile.Name = remote.User.Profile.DisplayName()
	}
	return s.establish(ctx, gate, remote, email)
}

func (s *service) Google(ctx context.Context, gate Gate, credential string) (session.State, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return session.State{}, apperrors.Wrap(CodeInvalidInput, "google credential is required", nil)
	}
	if !s.cfg.Google.ExchangeWithAPI {
		return gate.LoginWithExternalCredential(ctx, credential)
	}
	remote, err := s.remote.Google(ctx, credential)
	if err != nil {
		return session.State{}, remoteFailure(err, "google sign-in failed")
	}
	if remote.User.AuthProvider == "" {
		remote.User.AuthProvider = session.ProviderGoogle
	}
	return s.establish(ctx, gate, remote, remote.User.Email)
}

func (s *service) Logout(ctx context.Context, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	if err := s.remote.Logout(ctx, token); err != nil {
		s.logger.Warn("remote logout failed", "error", err)
	}
}

func (s *service) establish(ctx context.Context, gate Gate, remote RemoteSession, email string) (session.State, error) {
	if strings.TrimSpace(remote.Token) == "" {
		return session.State{}, apperrors.Wrap(CodeAuth, "account service returned no token", nil)
	}
	identity := remote.User
	if identity.Email == "" {
		identity.Email = email
	}
	state, err := gate.Login(ctx, identity, remote.Token)
	if err != nil {
		return session.State{}, err
	}
	s.logger.Info("user signed in", "user_id", identity.ID, "provider", identity.AuthProvider)
	return state, nil
}

// remoteFailure keeps classified errors from the API client and wraps the
// rest.
func remoteFailure(err error, message string) error {
	if apperrors.CodeOf(err) != "" {
		return err
	}
	return apperrors.Wrap(CodeAuth, message, err)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" {
		return "", errors.New("email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", err
	}
	return email, nil
}

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len([]rune(name)) > 50 {
		return "", errors.New("cannot exceed 50 characters")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && r != ' ' && r != '-' && r != '\'' {
			return "", errors.New("must contain only letters")
		}
	}
	return name, nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}
