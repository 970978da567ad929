package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/spacesedan/emosupport/config"
	"github.com/spacesedan/emosupport/internal/app"
	"github.com/spacesedan/emosupport/internal/logging"
	"github.com/spacesedan/emosupport/internal/server"
)

var handler server.LambdaHandler

// init runs once per Lambda cold start
func init() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)

	cfg, err := config.Load()
	if err != nil {
		logging.InitLogger("info")
		slog.Error("[Lambda] Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel)

	// Events are not buffered here: a frozen Lambda cannot run a flush loop.
	cfg.Telemetry.Events = "none"

	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		slog.Error("[Lambda] Failed to initialize pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handler = server.NewLambdaHandler(a.Orchestrator)
	slog.Info("[Lambda] Initialization complete", slog.String("environment", env))
}

func main() {
	lambda.Start(handler)
}
