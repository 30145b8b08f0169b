package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Address)
	require.Equal(t, "http://localhost:3001/api", cfg.API.BaseURL)
	require.Equal(t, "/vehicle/valuation", cfg.API.ValuationPath)
	require.Equal(t, 10, cfg.Valuation.HistoryCapacity)
	require.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  address: ":9000"
  cors:
    allowOrigins: ["https://app.example.com"]
api:
  baseUrl: "https://file.example.com/api"
valuation:
  historyCapacity: 5
  dedupeVin: true
`), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("API_BASE_URL", "https://env.example.com/api")
	t.Setenv("VALUATION_TIMEOUT", "12s")
	t.Setenv("HTTP_CORS_ALLOW_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.HTTP.Address)
	require.Equal(t, "https://env.example.com/api", cfg.API.BaseURL)
	require.Equal(t, 12*time.Second, cfg.Valuation.Timeout)
	require.Equal(t, 5, cfg.Valuation.HistoryCapacity)
	require.True(t, cfg.Valuation.DedupeVIN)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.HTTP.CORS.AllowOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.HTTP.Address = "" }},
		{"rate limit burst", func(c *Config) { c.HTTP.RateLimit.Burst = 0 }},
		{"short cookie secret", func(c *Config) { c.HTTP.Cookie.Secret = "short" }},
		{"valuation path", func(c *Config) { c.API.ValuationPath = "vehicle/valuation" }},
		{"history capacity", func(c *Config) { c.Valuation.HistoryCapacity = 0 }},
		{"archive bucket", func(c *Config) { c.Valuation.Archive.Enabled = true }},
		{"redis addr", func(c *Config) { c.Session.Redis.Enabled = true }},
		{"google state key", func(c *Config) {
			c.Auth.Google.ClientID = "id"
			c.Auth.Google.ClientSecret = "secret"
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, defaultConfig().Validate())
}
