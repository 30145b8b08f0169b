package http

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yanqian/drive-value/internal/infra/config"
)

// sessionCookies issues and reads the signed cookie that names a browser
// session. The cookie carries only the session ID; everything else lives
// in the workspace registry and session storage.
type sessionCookies struct {
	name   string
	secret []byte
	secure bool
	maxAge time.Duration
	now    func() time.Time
}

func newSessionCookies(cfg config.CookieConfig, logger *slog.Logger) (*sessionCookies, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		logger.Warn("session cookie secret not configured, sessions will not survive a restart")
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	return &sessionCookies{
		name:   cfg.Name,
		secret: secret,
		secure: cfg.Secure,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

func (s *sessionCookies) issue(sessionID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *sessionCookies) parse(raw string) (string, bool) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// resolve returns the session ID of the request, starting a new session
// when the cookie is missing, expired or forged.
func (s *sessionCookies) resolve(c *gin.Context) (string, error) {
	if raw, err := c.Cookie(s.name); err == nil && raw != "" {
		if id, ok := s.parse(raw); ok {
			return id, nil
		}
	}
	id := uuid.NewString()
	signed, err := s.issue(id)
	if err != nil {
		return "", err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.name, signed, int(s.maxAge.Seconds()), "/", "", s.secure, true)
	return id, nil
}
