//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/telemetry-trend/internal/bootstrap"
	"github.com/yanqian/telemetry-trend/internal/domain/trend"
	"github.com/yanqian/telemetry-trend/internal/infra/config"
	httpiface "github.com/yanqian/telemetry-trend/internal/interface/http"
	"github.com/yanqian/telemetry-trend/pkg/logger"
	"github.com/yanqian/telemetry-trend/pkg/metrics"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		metrics.New,
		provideTrendConfig,
		provideCollectorClient,
		provideHistoryClient,
		provideForecastCache,
		provideChartStorage,
		provideEventPublisher,
		provideRenderer,
		provideDependencies,
		trend.NewService,
		provideSessions,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
