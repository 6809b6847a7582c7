// Package main provides the API server entry point for the OLI search gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aghostraa/oli-frontend/internal/api"
	"github.com/Aghostraa/oli-frontend/internal/chains"
	"github.com/Aghostraa/oli-frontend/internal/config"
	"github.com/Aghostraa/oli-frontend/internal/logging"
	"github.com/Aghostraa/oli-frontend/internal/oli"
	"github.com/Aghostraa/oli-frontend/internal/ratelimit"
	"github.com/Aghostraa/oli-frontend/internal/search"
	"github.com/Aghostraa/oli-frontend/internal/service"
	"github.com/Aghostraa/oli-frontend/internal/storage"
	"github.com/Aghostraa/oli-frontend/internal/worker"
)

const connectTimeout = 10 * time.Second

func main() {
	fmt.Println("OLI Search Gateway")

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	healthChecks := make(map[string]api.HealthCheck)

	// Every store is optional; a missing one disables the feature it backs
	var (
		cacheService *storage.CacheService
		budget       oli.RequestBudget
	)
	if cfg.Database.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		redis, err := storage.NewRedisCache(ctx, &cfg.Database.Redis)
		cancel()
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, responses will not be cached")
		} else {
			defer redis.Close()
			cacheService = storage.NewCacheService(redis, cfg.Cache.TTL)
			healthChecks["redis"] = redis.Ping
			if cfg.OLI.BudgetPerSecond > 0 {
				shared, err := ratelimit.NewBudget(&ratelimit.Config{
					Redis:          redis.Client(),
					TotalBudget:    cfg.OLI.BudgetPerSecond,
					ReservedBudget: cfg.OLI.BudgetReserved,
				})
				if err != nil {
					logger.WithError(err).Fatal("Invalid OLI request budget")
				}
				budget = shared
			}
		}
	}

	registry := chains.DefaultRegistry()
	if cfg.Database.Postgres.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		postgres, err := storage.NewPostgresDB(ctx, &cfg.Database.Postgres)
		if err != nil {
			logger.WithError(err).Warn("Postgres unavailable, using the built-in chain registry")
		} else {
			defer postgres.Close()
			healthChecks["postgres"] = postgres.Ping
			loaded, err := storage.NewChainRepository(postgres).LoadRegistry(ctx)
			if err != nil {
				logger.WithError(err).Warn("Could not load chains from Postgres, using the built-in chain registry")
			} else {
				registry = loaded
			}
		}
		cancel()
	}
	logger.WithField("chains", registry.Len()).Info("Chain registry loaded")

	var (
		events      service.SearchEventRecorder
		stats       service.SearchEventStats
		eventWriter *worker.EventWriter
	)
	if cfg.Database.ClickHouse.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		clickhouse, err := storage.NewClickHouseDB(ctx, &cfg.Database.ClickHouse)
		cancel()
		if err != nil {
			logger.WithError(err).Warn("ClickHouse unavailable, search analytics disabled")
		} else {
			defer func() {
				if err := clickhouse.Close(); err != nil {
					logger.WithError(err).Warn("Error closing ClickHouse connection")
				}
			}()
			healthChecks["clickhouse"] = clickhouse.Ping
			repo := storage.NewSearchEventRepository(clickhouse)
			stats = repo
			if cfg.Search.RecordEvents {
				writer, err := worker.NewEventWriter(&worker.EventWriterConfig{
					Recorder:      repo,
					FlushInterval: cfg.Search.EventFlushInterval,
					BatchSize:     cfg.Search.EventBatchSize,
				})
				if err != nil {
					logger.WithError(err).Fatal("Invalid search event writer configuration")
				}
				if err := writer.Start(context.Background()); err != nil {
					logger.WithError(err).Fatal("Failed to start search event writer")
				}
				eventWriter = writer
				events = writer
			}
		}
	}

	client, err := oli.NewClient(oli.Config{
		BaseURL:           cfg.OLI.BaseURL,
		APIKey:            cfg.OLI.APIKey,
		Timeout:           cfg.OLI.Timeout,
		RequestsPerSecond: cfg.OLI.RequestsPerSecond,
		MaxAttempts:       cfg.OLI.MaxAttempts,
		Budget:            budget,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create OLI client")
	}
	if !client.HasAPIKey() {
		logger.Warn("OLI_API_KEY is not set, leaderboard analytics are disabled")
	}
	healthChecks["oli"] = client.CheckBreaker

	resolver := chains.NewResolver(registry)
	limits := service.Limits{
		DefaultTagLimit:     cfg.Search.DefaultTagLimit,
		DefaultAddressLimit: cfg.Search.DefaultAddressLimit,
		MaxLimit:            cfg.Search.MaxLimit,
	}

	services := api.Services{
		Search:       service.NewSearchService(client, resolver, search.NewAggregator(), cacheService, events, limits),
		Address:      service.NewAddressService(client, resolver, cacheService, events, limits),
		Labels:       service.NewLabelService(client, resolver, cacheService, limits),
		Attestations: service.NewAttestationService(client, resolver, cacheService, limits),
		Leaderboard:  service.NewLeaderboardService(client, resolver, cacheService),
		Analytics:    service.NewAnalyticsService(stats),
		Chains:       service.NewChainService(resolver),
		Performance:  service.DefaultMonitor(),
		HealthChecks: healthChecks,
	}
	logger.Info("Services initialized")

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.RequestsPerSec = cfg.RateLimit.RequestsPerSecond
	serverConfig.Burst = cfg.RateLimit.Burst
	serverConfig.AllowedOrigins = cfg.Server.AllowedOrigins
	// the backend timeout must fit in a single response
	if limit := cfg.OLI.Timeout + 15*time.Second; limit > serverConfig.WriteTimeout {
		serverConfig.WriteTimeout = limit
	}

	server := api.NewServer(serverConfig, services)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	// after the server so in-flight requests still record their events
	if eventWriter != nil {
		if err := eventWriter.Stop(ctx); err != nil {
			logger.WithError(err).Warn("Search events may have been lost on shutdown")
		}
	}

	logger.Info("Server exited")
}
