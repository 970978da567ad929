package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spacesedan/emosupport/config"
	"github.com/spacesedan/emosupport/internal/app"
	"github.com/spacesedan/emosupport/internal/logging"
	"github.com/spacesedan/emosupport/internal/server"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)

	cfg, err := config.Load()
	if err != nil {
		logging.InitLogger("info")
		slog.Error("[Main] Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("[Main] Failed to initialize pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()

	if a.Events != nil {
		go a.Events.Run(ctx)
	}
	go a.Monitor.Run(ctx)

	deps := server.Deps{
		Analyzer: a.Orchestrator,
		Health:   a.Monitor,
		Catalog:  a.Catalog,
	}
	if a.Transcription != nil {
		deps.Transcriber = a.Transcription
	}
	if a.Recorder.Enabled() {
		deps.Stats = a.Recorder
	}

	srv := server.New(deps, server.Options{
		MaxConcurrent:  int64(cfg.Server.MaxConcurrent),
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Transcription.MaxUploadBytes,
	})

	slog.Info("[Main] Starting emotion support server",
		slog.String("env", cfg.Env),
		slog.String("addr", cfg.Server.Addr),
		slog.Int("max_concurrent", cfg.Server.MaxConcurrent))

	if err := srv.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout); err != nil {
		slog.Error("[Main] Server stopped with error", slog.String("error", err.Error()))
		stop()
		a.Close()
		os.Exit(1)
	}
	slog.Info("[Main] Server stopped")
}
