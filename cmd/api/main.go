package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/valkyrie-fleet/srp-backend/api/routes"
	"github.com/valkyrie-fleet/srp-backend/internal/divisions"
	"github.com/valkyrie-fleet/srp-backend/internal/killmail"
	"github.com/valkyrie-fleet/srp-backend/internal/modifiers"
	"github.com/valkyrie-fleet/srp-backend/internal/permissions"
	"github.com/valkyrie-fleet/srp-backend/internal/pilots"
	"github.com/valkyrie-fleet/srp-backend/internal/requests"
	"github.com/valkyrie-fleet/srp-backend/internal/users"
	"github.com/valkyrie-fleet/srp-backend/pkg/config"
	"github.com/valkyrie-fleet/srp-backend/pkg/db"
	"github.com/valkyrie-fleet/srp-backend/pkg/logger"
	"github.com/valkyrie-fleet/srp-backend/pkg/metrics"
	"github.com/valkyrie-fleet/srp-backend/pkg/migrate"
	"github.com/valkyrie-fleet/srp-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "srp-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "srp-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	killmailMetrics := metrics.NewKillmailMetrics(registry)
	requestMetrics := metrics.NewRequestMetrics(registry)

	requester := killmail.NewRequester(cfg.Killmail.UserAgent,
		killmail.WithTimeout(cfg.Killmail.FetchTimeout))
	adapters := []killmail.Adapter{
		killmail.NewZKillboardAdapter(requester, cfg.Killmail.ZKillboardHosts, cfg.Killmail.ZKillboardAPI),
		killmail.NewESIAdapter(requester, cfg.Killmail.ESIHosts),
	}
	if len(cfg.Killmail.LegacyHosts) > 0 && cfg.Killmail.LegacyAPI != "" {
		adapters = append(adapters,
			killmail.NewZKillboardLegacyAdapter(requester, cfg.Killmail.LegacyHosts, cfg.Killmail.LegacyAPI))
	}
	fetcher := killmail.NewRegistry(adapters...).WithMetrics(killmailMetrics)
	resolver := killmail.NewResolver(requester, redisClient, cfg.Killmail.ESIBaseURL, cfg.Killmail.ResolveCacheTTL)

	permissionRepo := permissions.NewRepository(dbClient.DB())
	requestRepo := requests.NewRepository(dbClient.DB())
	modifierRepo := modifiers.NewRepository(dbClient.DB())
	divisionRepo := divisions.NewRepository(dbClient.DB())
	pilotRepo := pilots.NewRepository(dbClient.DB())
	userRepo := users.NewRepository(dbClient.DB())

	permissionService, err := permissions.NewService(permissionRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create permissions service", err)
		os.Exit(1)
	}

	requestService, err := requests.NewService(requestRepo, dbClient, fetcher, resolver,
		permissionService, pilotRepo, requestMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create requests service", err)
		os.Exit(1)
	}

	modifierService, err := modifiers.NewService(modifierRepo, requestRepo, dbClient,
		permissionService, requestMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create modifiers service", err)
		os.Exit(1)
	}

	divisionService, err := divisions.NewService(divisionRepo, permissionService)
	if err != nil {
		logg.Error(context.Background(), "failed to create divisions service", err)
		os.Exit(1)
	}

	pilotService, err := pilots.NewService(pilotRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create pilots service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(permissionService, divisionRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			UserLoader: userRepo,
			Limiter:    redisClient,
			Registry:   registry,
			Requests:   requestService,
			Modifiers:  modifierService,
			Divisions:  divisionService,
			Pilots:     pilotService,
			Users:      userService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
