// Package main is the entry point for the ClimaRisk API server.
//
// It loads configuration, initializes the structured logger and Prometheus
// metrics, loads the trained model registry (continuing in degraded mode when
// artifacts are missing), wires the weather provider clients and the
// prediction service, and starts the HTTP server.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"climarisk/internal/api/handlers"
	"climarisk/internal/config"
	"climarisk/internal/core"
	"climarisk/internal/external"
	"climarisk/internal/features"
	"climarisk/internal/models"
	"climarisk/internal/observability"
	"climarisk/internal/prediction"
	"climarisk/internal/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on
// error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("climarisk API starting",
		"environment", cfg.Environment,
		"service", cfg.Service,
		"port", cfg.Server.Port,
	)

	metrics := observability.NewMetrics()

	// Load the trained model registry. A load failure is not fatal: the
	// service starts degraded and answers prediction requests with 503 while
	// health and metrics endpoints stay available.
	registry, err := models.Load(cfg.Models.Dir, logger)
	if err != nil {
		logger.Warn("model registry failed to load; starting degraded",
			"dir", cfg.Models.Dir,
			"error", err,
		)
		metrics.ModelsLoaded.Set(0)
	} else {
		metrics.ModelsLoaded.Set(1)
	}

	// Outbound weather provider clients share resilience behavior through
	// per-provider BaseClients (separate circuit breakers).
	httpClient := &http.Client{Timeout: cfg.Provider.Timeout}
	userAgent := cfg.Service + "/1.0"

	powerClient := weatherPowerClient(cfg, httpClient, userAgent, metrics, logger)
	forecastClient := weatherForecastClient(cfg, httpClient, userAgent, metrics, logger)

	builder := features.NewBuilder(cfg.Features.LagDays, cfg.Features.RollingWindows)

	svcDeps := prediction.Deps{
		Builder:    builder,
		Historical: powerClient,
		Live:       forecastClient,
		Thresholds: prediction.Thresholds{
			Low:      cfg.Risk.Low,
			Moderate: cfg.Risk.Moderate,
			High:     cfg.Risk.High,
			Extreme:  cfg.Risk.Extreme,
		},
		Metrics:         metrics,
		Logger:          logger,
		LookbackDays:    cfg.Provider.LookbackDays,
		LiveHorizonDays: cfg.Provider.LiveHorizonDays,
	}
	if registry != nil {
		svcDeps.Registry = registry
	}
	svc := prediction.NewService(svcDeps)

	// Build the server and mount the domain handlers.
	srv, err := core.NewServer(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	predictionHandler := handlers.NewPredictionHandler(svc, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, predictionHandler.RegisterRoutes)

	var catalog handlers.ModelCatalog
	if registry != nil {
		catalog = registry
	}
	modelsHandler := handlers.NewModelsHandler(catalog, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, modelsHandler.RegisterRoutes)

	weatherHandler := handlers.NewWeatherHandler(forecastClient, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, weatherHandler.RegisterRoutes)

	srv.SetHealthState(nil, svc.ModelsLoaded)

	// Mount all routes (middleware chain + versioned endpoints + health +
	// metrics).
	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// weatherPowerClient wires the historical provider client.
func weatherPowerClient(
	cfg *config.Config,
	httpClient *http.Client,
	userAgent string,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *weather.PowerClient {
	base := external.NewBaseClient(httpClient, "power", external.SingleAttemptPolicy(), userAgent)
	return weather.NewPowerClient(base, cfg.Provider.PowerBaseURL, cfg.Provider.PowerCommunity, metrics, logger)
}

// weatherForecastClient wires the live forecast provider client.
func weatherForecastClient(
	cfg *config.Config,
	httpClient *http.Client,
	userAgent string,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *weather.ForecastClient {
	base := external.NewBaseClient(httpClient, "openweathermap", external.SingleAttemptPolicy(), userAgent)
	return weather.NewForecastClient(base, cfg.Provider.ForecastBaseURL, cfg.Provider.ForecastAPIKey, metrics, logger)
}

// runHTTPServer starts the server in standard HTTP mode with graceful
// shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to capture server errors from ListenAndServe.
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with a 10-second deadline.
	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log
// level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
