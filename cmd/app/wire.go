//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/drive-value/internal/bootstrap"
	"github.com/yanqian/drive-value/internal/domain/auth"
	"github.com/yanqian/drive-value/internal/domain/workspace"
	"github.com/yanqian/drive-value/internal/infra/config"
	"github.com/yanqian/drive-value/internal/infra/driveapi"
	httpiface "github.com/yanqian/drive-value/internal/interface/http"
	"github.com/yanqian/drive-value/pkg/logger"
	"github.com/yanqian/drive-value/pkg/metrics"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		metrics.NewOutcomes,
		provideAPIClient,
		provideAuthConfig,
		provideCredentialVerifier,
		provideHistoryStore,
		provideReportArchive,
		provideSessionStorage,
		provideValuationDependencies,
		provideWorkspaceConfig,
		provideWorkspaceDependencies,
		workspace.NewRegistry,
		auth.NewService,
		wire.Bind(new(auth.Remote), new(*driveapi.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
