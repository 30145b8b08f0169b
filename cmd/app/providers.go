package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/drive-value/internal/domain/auth"
	"github.com/yanqian/drive-value/internal/domain/session"
	"github.com/yanqian/drive-value/internal/domain/valuation"
	"github.com/yanqian/drive-value/internal/domain/workspace"
	"github.com/yanqian/drive-value/internal/infra/config"
	"github.com/yanqian/drive-value/internal/infra/driveapi"
	"github.com/yanqian/drive-value/internal/infra/historyrepo"
	"github.com/yanqian/drive-value/internal/infra/reportarchive"
	"github.com/yanqian/drive-value/internal/infra/sessionstore"
	"github.com/yanqian/drive-value/pkg/metrics"
)

func provideAPIClient(cfg *config.Config) *driveapi.Client {
	return driveapi.NewClient(driveapi.Options{
		BaseURL:       cfg.API.BaseURL,
		ValuationPath: cfg.API.ValuationPath,
		Timeout:       cfg.API.Timeout,
	})
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	g := cfg.Auth.Google
	return auth.Config{
		Google: auth.GoogleConfig{
			ClientID:             g.ClientID,
			ClientSecret:         g.ClientSecret,
			RedirectURL:          g.RedirectURL,
			StateEncryptionKey:   g.StateEncryptionKey,
			PostLoginRedirectURL: g.PostLoginRedirectURL,
			ExchangeWithAPI:      g.ExchangeWithAPI,
		},
	}
}

func provideCredentialVerifier(cfg *config.Config, logger *slog.Logger) session.CredentialVerifier {
	g := cfg.Auth.Google
	if !g.VerifyCredentials || strings.TrimSpace(g.ClientID) == "" {
		logger.Info("google credentials are decoded without signature verification")
		return nil
	}
	return auth.NewGoogleVerifier(g.ClientID)
}

func provideWorkspaceConfig(cfg *config.Config) workspace.Config {
	return workspace.Config{
		IdleTTL:       cfg.Session.IdleTTL,
		PruneInterval: cfg.Session.PruneInterval,
		Valuation: valuation.Config{
			Timeout:         cfg.Valuation.Timeout,
			HistoryCapacity: cfg.Valuation.HistoryCapacity,
			DedupeVIN:       cfg.Valuation.DedupeVIN,
		},
	}
}

func provideValuationDependencies(client *driveapi.Client, history valuation.HistoryStore, archive valuation.Archive, outcomes *metrics.Outcomes) valuation.Dependencies {
	return valuation.Dependencies{
		Client:   client,
		History:  history,
		Archive:  archive,
		Outcomes: outcomes,
	}
}

func provideWorkspaceDependencies(storage workspace.StorageProvider, verifier session.CredentialVerifier, deps valuation.Dependencies, client *driveapi.Client) workspace.Dependencies {
	return workspace.Dependencies{
		Storage:   storage,
		Verifier:  verifier,
		Valuation: deps,
		Accounts:  client,
	}
}

func provideHistoryStore(cfg *config.Config, logger *slog.Logger) valuation.HistoryStore {
	fallback := historyrepo.NewMemoryRepository()
	pgCfg := cfg.History.Postgres
	dsn := strings.TrimSpace(pgCfg.DSN)
	if dsn == "" {
		logger.Info("history postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if pgCfg.MaxConns > 0 {
		poolConfig.MaxConns = pgCfg.MaxConns
	}
	if pgCfg.MinConns > 0 {
		poolConfig.MinConns = pgCfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	repo := historyrepo.NewPostgresRepository(pool)
	if pgCfg.EnsureSchema {
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Error("history schema setup failed, using memory repository", "error", err)
			pool.Close()
			return fallback
		}
	}
	logger.Info("history postgres repository enabled")
	return repo
}

func provideReportArchive(cfg *config.Config, logger *slog.Logger) valuation.Archive {
	a := cfg.Valuation.Archive
	if !a.Enabled {
		return reportarchive.Discard{}
	}
	archive, err := reportarchive.NewS3Archive(reportarchive.S3Options{
		Endpoint:  a.Endpoint,
		Region:    a.Region,
		Bucket:    a.Bucket,
		AccessKey: a.AccessKey,
		SecretKey: a.SecretKey,
	}, logger)
	if err != nil {
		logger.Error("report archive unavailable, reports will not be archived", "error", err)
		return reportarchive.Discard{}
	}
	logger.Info("report archive enabled", "bucket", a.Bucket)
	return archive
}

func provideSessionStorage(cfg *config.Config, logger *slog.Logger) workspace.StorageProvider {
	redis := cfg.Session.Redis
	if redis.Enabled {
		opt, err := buildValkeyOptions(redis.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return sessionstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return sessionstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
			client.Close()
		} else {
			logger.Info("session valkey store enabled", "addr", redis.Addr)
			return sessionstore.NewValkeyStore(client, redis.Prefix, redis.TTL)
		}
	}
	return sessionstore.NewMemoryStore()
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
