package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do/v2"
	activityimpl "github.com/shafin2/skillsphere-backend/external/activity"
	chatimpl "github.com/shafin2/skillsphere-backend/external/chat"
	configloader "github.com/shafin2/skillsphere-backend/external/config"
	generativeimpl "github.com/shafin2/skillsphere-backend/external/generative"
	identityimpl "github.com/shafin2/skillsphere-backend/external/identity"
	repositoryimpl "github.com/shafin2/skillsphere-backend/external/repository"
	"github.com/shafin2/skillsphere-backend/external/telemetry"
	transcriberimpl "github.com/shafin2/skillsphere-backend/external/transcriber"
	videoimpl "github.com/shafin2/skillsphere-backend/external/video"
	webhookimpl "github.com/shafin2/skillsphere-backend/external/webhook"
	"github.com/shafin2/skillsphere-backend/internal/assistant"
	"github.com/shafin2/skillsphere-backend/internal/booking"
	"github.com/shafin2/skillsphere-backend/internal/config"
	"github.com/shafin2/skillsphere-backend/internal/feedback"
	"github.com/shafin2/skillsphere-backend/internal/httpapi"
	"github.com/shafin2/skillsphere-backend/internal/notification"
	"github.com/shafin2/skillsphere-backend/internal/session"
	"github.com/shafin2/skillsphere-backend/internal/transcript"
)

const (
	serviceName     = "skillsphere-backend"
	shutdownTimeout = 15 * time.Second
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	shutdownTracing, err := telemetry.Setup(context.Background(), serviceName, cfg.OTelEndpoint)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	runServer(cfg, injector)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTracing(ctx); err != nil {
		slog.Error("tracing shutdown failed", "error", err)
	}
	_ = injector.Shutdown()
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	identityimpl.RegisterDI(injector)
	chatimpl.RegisterDI(injector)
	videoimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	generativeimpl.RegisterDI(injector)
	activityimpl.RegisterDI(injector)

	notification.RegisterDI(injector)
	session.RegisterDI(injector)
	booking.RegisterDI(injector)
	transcript.RegisterDI(injector)
	assistant.RegisterDI(injector)
	feedback.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}

func runServer(cfg *config.Config, injector do.Injector) {
	app, err := do.Invoke[*fiber.App](injector)
	if err != nil {
		slog.Error("failed to build http server", "error", err)
		os.Exit(1)
	}

	done := make(chan error, 1)
	go func() {
		slog.Info("startup: listening", "addr", cfg.HTTPAddr)
		done <- app.Listen(cfg.HTTPAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			slog.Error("http shutdown failed", "error", err)
		}
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("http server stopped", "error", err)
		}
	}
}
