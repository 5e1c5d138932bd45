// Command main is the entry point for the unitoku backend server.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unitoku/internal/bootstrap"
	"unitoku/internal/config"
	"unitoku/internal/middleware"
	"unitoku/internal/observability"
	"unitoku/internal/server"
)

// @title unitoku API
// @version 1.0
// @description Campus community API with boards, comments, timetables, course reviews, chat and notifications
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@unitoku.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.ConfigureLogging(cfg.Env, cfg.LogLevel)
	logger := middleware.Logger

	stopTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "unitoku-api",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedBuiltIns: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	srv, err := server.NewServerWithDeps(cfg, db, rdb)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() { listenErr <- srv.Start() }()
	logger.Info("unitoku api started", slog.String("version", version), slog.String("env", cfg.Env))

	select {
	case err := <-listenErr:
		if err != nil {
			logger.Error("listener stopped", slog.String("error", err.Error()))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}
	if err := stopTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown failed", slog.String("error", err.Error()))
	}
}
