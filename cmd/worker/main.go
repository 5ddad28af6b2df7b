// Package main provides the entrypoint for the Tidewise scoring worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tidewise/tidewise/internal/api/handler"
	"github.com/tidewise/tidewise/internal/api/middleware"
	"github.com/tidewise/tidewise/internal/api/response"
	"github.com/tidewise/tidewise/internal/app"
	"github.com/tidewise/tidewise/internal/config"
	"github.com/tidewise/tidewise/internal/resilience"
	"github.com/tidewise/tidewise/internal/telemetry"
	"github.com/tidewise/tidewise/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "tidewise-worker"

	cfg, err := config.Load("")
	if err != nil {
		stderrLog := zerolog.New(os.Stderr)
		stderrLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := cfg.Log.NewLogger(os.Stdout, serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Tidewise worker")

	if cfg.Worker.ProjectID == "" {
		log.Fatal().Msg("worker.project_id is required")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := cfg.Telemetry
	telemetryCfg.ServiceName = serviceName
	telemetryCfg.ServiceVersion = Version
	telemetryCfg.Environment = cfg.Environment

	tp, err := telemetry.Init(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	catalog, err := app.OpenCatalog(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open activity catalog")
	}
	defer catalog.Close()

	suggester, err := app.NewSuggester(cfg, catalog, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize suggestion service")
	}

	client, err := pubsub.NewClient(ctx, cfg.Worker.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub client")
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close pubsub client")
		}
	}()

	publishGuard := resilience.NewGuard(resilience.GuardConfig{Name: "results-publisher"})
	breakers := resilience.NewRegistry()
	breakers.Register(catalog.Guard)
	breakers.Register(publishGuard)

	publisher := worker.NewPubSubPublisher(worker.PubSubPublisherConfig{
		Client: client,
		Topic:  cfg.Worker.ResultsTopic,
		Guard:  publishGuard,
		Logger: log,
	})
	defer publisher.Stop()

	job := worker.NewScoreJob(worker.ScoreJobConfig{
		Config: worker.ScoreConfig{
			Concurrency:  worker.DefaultScoreConfig().Concurrency,
			Timeout:      cfg.Worker.JobTimeout,
			Grouping:     cfg.Worker.Grouping,
			FeasibleOnly: true,
		},
		Suggester: suggester,
		Publisher: publisher,
		Logger:    log,
	})

	subscriber := worker.NewPubSubHandler(worker.PubSubConfig{
		Client:           client,
		SubscriptionName: cfg.Worker.Subscription,
		MaxOutstanding:   cfg.Worker.MaxOutstanding,
		Dispatcher:       worker.NewDispatcher(job, catalog, log),
		Logger:           log,
	})

	// Health endpoints for Cloud Run
	ops := handler.NewOpsHandler(Version, BuildTime, catalog, breakers)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.ContentTypeJSON)
	r.Get("/health", ops.HealthCheck)
	r.Get("/ready", ops.ReadinessCheck)
	r.Get("/status", ops.SystemStatus)
	r.Get("/jobs", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, job.MetricsSnapshot())
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Receive until shutdown; Receive returns once ctx is cancelled.
	done := make(chan error, 1)
	go func() {
		done <- subscriber.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutting down worker")
		cancel()
		if err := <-done; err != nil {
			log.Error().Err(err).Msg("subscriber stopped with error")
		}
	case err := <-done:
		if err != nil {
			log.Error().Err(err).Msg("subscriber stopped unexpectedly")
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
