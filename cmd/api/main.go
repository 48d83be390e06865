package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/orderdeskhq/orderdesk-backend/api/routes"
	"github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/internal/triage"
	"github.com/orderdeskhq/orderdesk-backend/internal/webhooks"
	"github.com/orderdeskhq/orderdesk-backend/pkg/config"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/metrics"
	"github.com/orderdeskhq/orderdesk-backend/pkg/migrate"
	"github.com/orderdeskhq/orderdesk-backend/pkg/pubsub"
	"github.com/orderdeskhq/orderdesk-backend/pkg/redis"
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	guard, err := webhooks.NewDuplicateGuard(redisClient, cfg.Webhooks.GuardTTL, "webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create duplicate guard", err)
		os.Exit(1)
	}

	enqueuer, err := orders.NewEnqueuer(pubsubClient.OrdersPublisher(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders enqueuer", err)
		os.Exit(1)
	}

	eventRepo := webhooks.NewEventRepository(dbClient.DB())
	deadLetterRepo := webhooks.NewDeadLetterRepository(dbClient.DB())
	resolver := webhooks.NewSecretResolver(cfg.Webhooks)

	ingestService, err := webhooks.NewService(webhooks.ServiceParams{
		Resolver:       resolver,
		Guard:          guard,
		Events:         eventRepo,
		DeadLetters:    deadLetterRepo,
		Enqueuer:       enqueuer,
		Logger:         logg,
		EnqueueTimeout: cfg.Webhooks.EnqueueTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ingest service", err)
		os.Exit(1)
	}

	triageService, err := triage.NewService(deadLetterRepo, eventRepo, enqueuer, resolver, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create triage service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	webhookMetrics := metrics.NewWebhookMetrics(registry)

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
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Cache:          redisClient,
			IngestService:  ingestService,
			TriageService:  triageService,
			WebhookMetrics: webhookMetrics,
			Registry:       registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
