package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/drive-value/internal/infra/config"
)

func TestIPRateLimiter(t *testing.T) {
	limiter := newIPRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2})
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	require.True(t, limiter.allow("10.0.0.1"))
	require.True(t, limiter.allow("10.0.0.1"))
	require.False(t, limiter.allow("10.0.0.1"))
	require.True(t, limiter.allow("10.0.0.2"))

	now = now.Add(time.Minute)
	require.True(t, limiter.allow("10.0.0.1"))

	now = now.Add(10 * time.Minute)
	limiter.allow("10.0.0.3")
	require.Len(t, limiter.visitors, 1)
}

func TestSessionCookiesRoundTrip(t *testing.T) {
	cookies, err := newSessionCookies(config.CookieConfig{Name: "dv_session", Secret: "0123456789abcdef0123456789abcdef", MaxAge: time.Hour}, newTestLogger())
	require.NoError(t, err)
	now := time.Now()
	cookies.now = func() time.Time { return now }

	signed, err := cookies.issue("session-1")
	require.NoError(t, err)
	id, ok := cookies.parse(signed)
	require.True(t, ok)
	require.Equal(t, "session-1", id)

	now = now.Add(2 * time.Hour)
	_, ok = cookies.parse(signed)
	require.False(t, ok)

	_, ok = cookies.parse("garbage")
	require.False(t, ok)
}

func TestSessionCookiesGenerateSecretWhenMissing(t *testing.T) {
	cookies, err := newSessionCookies(config.CookieConfig{Name: "dv_session"}, newTestLogger())
	require.NoError(t, err)
	require.Len(t, cookies.secret, 32)
	require.Equal(t, 30*24*time.Hour, cookies.maxAge)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(corsMiddleware([]string{"https://app.example.com"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	require.Equal(t, "*", resolveOrigin("https://other.example.com", nil))
	require.Equal(t, "https://app.example.com", resolveOrigin("https://other.example.com", []string{"https://app.example.com"}))
}
