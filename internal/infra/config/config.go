package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	API       APIConfig       `yaml:"api"`
	Valuation ValuationConfig `yaml:"valuation"`
	Session   SessionConfig   `yaml:"session"`
	History   HistoryConfig   `yaml:"history"`
	Auth      AuthConfig      `yaml:"auth"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	CORS         CORSConfig      `yaml:"cors"`
	Cookie       CookieConfig    `yaml:"cookie"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// CORSConfig lists the browser origins allowed to call the API. Empty allows any.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allowOrigins"`
}

// CookieConfig configures the signed browser session cookie.
type CookieConfig struct {
	Name   string        `yaml:"name"`
	Secret string        `yaml:"secret"`
	Secure bool          `yaml:"secure"`
	MaxAge time.Duration `yaml:"maxAge"`
}

// APIConfig points at the remote vehicle API.
type APIConfig struct {
	BaseURL       string        `yaml:"baseUrl"`
	ValuationPath string        `yaml:"valuationPath"`
	Timeout       time.Duration `yaml:"timeout"`
}

// ValuationConfig tunes the request coordinator.
type ValuationConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	HistoryCapacity int           `yaml:"historyCapacity"`
	DedupeVIN       bool          `yaml:"dedupeVin"`
	Archive         ArchiveConfig `yaml:"archive"`
}

// ArchiveConfig selects the S3-compatible bucket for raw reports.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

// SessionConfig controls workspace lifetime and persisted session storage.
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idleTtl"`
	PruneInterval time.Duration `yaml:"pruneInterval"`
	Redis         RedisConfig   `yaml:"redis"`
}

// RedisConfig contains connection information for session storage.
type RedisConfig struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr"`
	Prefix  string        `yaml:"prefix"`
	TTL     time.Duration `yaml:"ttl"`
}

// HistoryConfig selects the valuation history backend.
type HistoryConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxConns     int32  `yaml:"maxConns"`
	MinConns     int32  `yaml:"minConns"`
	EnsureSchema bool   `yaml:"ensureSchema"`
}

// AuthConfig groups sign-in settings.
type AuthConfig struct {
	Google GoogleConfig `yaml:"google"`
}

// GoogleConfig holds OAuth settings for Google sign-in.
type GoogleConfig struct {
	ClientID             string `yaml:"clientId"`
	ClientSecret         string `yaml:"clientSecret"`
	RedirectURL          string `yaml:"redirectUrl"`
	StateEncryptionKey   string `yaml:"stateEncryptionKey"`
	PostLoginRedirectURL string `yaml:"postLoginRedirectUrl"`
	ExchangeWithAPI      bool   `yaml:"exchangeWithApi"`
	VerifyCredentials    bool   `yaml:"verifyCredentials"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_CORS_ALLOW_ORIGINS"); v != "" {
		cfg.HTTP.CORS.AllowOrigins = splitList(v)
	}
	if v := os.Getenv("SESSION_COOKIE_SECRET"); v != "" {
		cfg.HTTP.Cookie.Secret = v
	}
	if v := os.Getenv("SESSION_COOKIE_SECURE"); v != "" {
		cfg.HTTP.Cookie.Secure = parseBool(v)
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("API_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.API.Timeout = parsed
		}
	}
	if v := os.Getenv("VALUATION_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Valuation.Timeout = parsed
		}
	}
	if v := os.Getenv("VALUATION_HISTORY_CAPACITY"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Valuation.HistoryCapacity = parsed
		}
	}
	if v := os.Getenv("VALUATION_DEDUPE_VIN"); v != "" {
		cfg.Valuation.DedupeVIN = parseBool(v)
	}
	if v := os.Getenv("ARCHIVE_ENABLED"); v != "" {
		cfg.Valuation.Archive.Enabled = parseBool(v)
	}
	if v := os.Getenv("ARCHIVE_ENDPOINT"); v != "" {
		cfg.Valuation.Archive.Endpoint = v
	}
	if v := os.Getenv("ARCHIVE_BUCKET"); v != "" {
		cfg.Valuation.Archive.Bucket = v
	}
	if v := os.Getenv("ARCHIVE_ACCESS_KEY"); v != "" {
		cfg.Valuation.Archive.AccessKey = v
	}
	if v := os.Getenv("ARCHIVE_SECRET_KEY"); v != "" {
		cfg.Valuation.Archive.SecretKey = v
	}
	if v := os.Getenv("SESSION_IDLE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Session.IdleTTL = parsed
		}
	}
	if v := os.Getenv("SESSION_REDIS_ENABLED"); v != "" {
		cfg.Session.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("SESSION_REDIS_ADDR"); v != "" {
		cfg.Session.Redis.Addr = v
	}
	if v := os.Getenv("HISTORY_POSTGRES_DSN"); v != "" {
		cfg.History.Postgres.DSN = v
	}
	if v := os.Getenv("HISTORY_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Auth.Google.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Auth.Google.ClientSecret = v
	}
	if v := os.Getenv("GOOGLE_REDIRECT_URL"); v != "" {
		cfg.Auth.Google.RedirectURL = v
	}
	if v := os.Getenv("GOOGLE_STATE_ENCRYPTION_KEY"); v != "" {
		cfg.Auth.Google.StateEncryptionKey = v
	}
	if v := os.Getenv("GOOGLE_POST_LOGIN_REDIRECT_URL"); v != "" {
		cfg.Auth.Google.PostLoginRedirectURL = v
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 45 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Cookie: CookieConfig{
				Name:   "dv_session",
				MaxAge: 30 * 24 * time.Hour,
			},
		},
		API: APIConfig{
			BaseURL:       "http://localhost:3001/api",
			ValuationPath: "/vehicle/valuation",
			Timeout:       35 * time.Second,
		},
		Valuation: ValuationConfig{
			Timeout:         30 * time.Second,
			HistoryCapacity: 10,
		},
		Session: SessionConfig{
			IdleTTL: 30 * time.Minute,
			Redis: RedisConfig{
				Prefix: "drive-value:session",
				TTL:    30 * 24 * time.Hour,
			},
		},
		History: HistoryConfig{
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if strings.TrimSpace(c.HTTP.Cookie.Name) == "" {
		return errors.New("http.cookie.name cannot be empty")
	}
	if secret := c.HTTP.Cookie.Secret; secret != "" && len(secret) < 32 {
		return errors.New("http.cookie.secret must be at least 32 characters")
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.baseUrl cannot be empty")
	}
	if !strings.HasPrefix(c.API.ValuationPath, "/") {
		return errors.New("api.valuationPath must start with /")
	}
	if c.API.Timeout < 0 || c.Valuation.Timeout < 0 {
		return errors.New("timeouts cannot be negative")
	}
	if c.Valuation.HistoryCapacity <= 0 {
		return errors.New("valuation.historyCapacity must be positive")
	}
	if a := c.Valuation.Archive; a.Enabled {
		if strings.TrimSpace(a.Endpoint) == "" || strings.TrimSpace(a.Bucket) == "" {
			return errors.New("valuation.archive endpoint and bucket are required when enabled")
		}
	}
	if c.Session.IdleTTL <= 0 {
		return errors.New("session.idleTtl must be positive")
	}
	if c.Session.Redis.Enabled && strings.TrimSpace(c.Session.Redis.Addr) == "" {
		return errors.New("session.redis.addr cannot be empty when redis storage is enabled")
	}
	if c.History.Postgres.MinConns < 0 || c.History.Postgres.MaxConns < 0 {
		return errors.New("history.postgres pool sizes cannot be negative")
	}
	if g := c.Auth.Google; g.ClientID != "" && g.ClientSecret != "" && g.StateEncryptionKey == "" {
		return errors.New("auth.google.stateEncryptionKey is required when google oauth is configured")
	}
	return nil
}
