package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/subtrack-app/subtrack-backend/api/controllers"
	"github.com/subtrack-app/subtrack-backend/api/routes"
	"github.com/subtrack-app/subtrack-backend/internal/schedule"
	"github.com/subtrack-app/subtrack-backend/internal/subscriptions"
	"github.com/subtrack-app/subtrack-backend/pkg/config"
	"github.com/subtrack-app/subtrack-backend/pkg/db"
	"github.com/subtrack-app/subtrack-backend/pkg/logger"
	"github.com/subtrack-app/subtrack-backend/pkg/metrics"
	"github.com/subtrack-app/subtrack-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.Firebase, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap firestore", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing firestore", err)
		}
	}()

	verifier, err := db.NewTokenVerifier(context.Background(), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap token verifier", err)
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

	subscriptionsService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:              subscriptions.NewRepository(dbClient.Firestore(), logg),
		TransactionRunner: dbClient,
		Cache:             redisClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	scheduleService, err := schedule.NewService(schedule.ServiceParams{
		Subscriptions: subscriptionsService,
		Cache:         redisClient,
		Config:        cfg.Schedule,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create schedule service", err)
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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:   cfg,
			Logger:   logg,
			Verifier: verifier,
			Metrics:  metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
			Pingers: map[string]controllers.Pinger{
				"firestore": dbClient,
				"redis":     redisClient,
			},
			Subscriptions: subscriptionsService,
			Schedule:      scheduleService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
