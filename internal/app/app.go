// Package app builds the analysis pipeline and its adapters from config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/spacesedan/emosupport/config"
	"github.com/spacesedan/emosupport/internal/analysis"
	"github.com/spacesedan/emosupport/internal/clients"
	"github.com/spacesedan/emosupport/internal/clients/kafka_client"
	"github.com/spacesedan/emosupport/internal/db"
	"github.com/spacesedan/emosupport/internal/emotion"
	"github.com/spacesedan/emosupport/internal/monitoring"
	"github.com/spacesedan/emosupport/internal/support"
	"github.com/spacesedan/emosupport/internal/telemetry"
	"github.com/spacesedan/emosupport/internal/transcription"
	"github.com/spacesedan/emosupport/internal/translation"
	"github.com/spacesedan/emosupport/internal/utils"
)

// App holds everything built at startup. It is read-only once Build returns.
type App struct {
	Catalog      *emotion.Catalog
	Scorer       *emotion.Scorer
	Orchestrator *analysis.Orchestrator
	// Transcription is nil when no transcription backend is configured.
	Transcription *transcription.Service
	Recorder      *telemetry.Recorder
	Monitor       *monitoring.Monitor
	// Events is non-nil when analysis events go to Kafka; its Run loop must
	// be started by the caller.
	Events *kafka_client.EventProducer

	closers []func()
}

// Build wires the pipeline. A scorer that fails its probe inference is a
// fatal configuration error.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Catalog: emotion.DefaultCatalog(),
		Monitor: monitoring.NewMonitor(cfg.Server.HealthInterval),
	}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg == nil {
			c, err := clients.LoadAWSConfig(ctx, clients.AWSConfig{Region: cfg.AWS.Region, Endpoint: cfg.AWS.Endpoint})
			if err != nil {
				return aws.Config{}, err
			}
			awsCfg = &c
		}
		return *awsCfg, nil
	}

	if err := a.buildScorer(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	translator, err := buildTranslator(cfg, loadAWS)
	if err != nil {
		a.Close()
		return nil, err
	}

	composer, err := a.buildComposer(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.buildTelemetry(ctx, cfg, loadAWS); err != nil {
		a.Close()
		return nil, err
	}

	deps := analysis.Dependencies{
		Scorer:          a.Scorer,
		Composer:        composer,
		MaxAlternatives: cfg.Scorer.MaxAlternatives,
	}
	if translator != nil {
		deps.Translator = translator
	}
	if a.Recorder.Enabled() {
		deps.Recorder = a.Recorder
	}
	a.Orchestrator, err = analysis.New(deps)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.buildTranscription(cfg); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) buildScorer(ctx context.Context, cfg *config.Config) error {
	mode, err := emotion.ParseMode(cfg.Scorer.Mode)
	if err != nil {
		return err
	}
	policy, err := emotion.NewPolicy(mode, cfg.Scorer.Threshold)
	if err != nil {
		return err
	}

	var model emotion.Model
	switch cfg.Scorer.Backend {
	case "remote":
		hf := clients.NewHuggingFaceClient(clients.HuggingFaceConfig{
			Endpoint:       cfg.Scorer.Endpoint,
			HealthEndpoint: cfg.Scorer.HealthEndpoint,
			Timeout:        cfg.Scorer.Timeout,
			TokenURL:       cfg.Scorer.TokenURL,
			ClientID:       cfg.Scorer.ClientID,
			ClientSecret:   cfg.Scorer.ClientSecret,
		}, a.Catalog)
		a.Monitor.Register("inference", hf.HealthCheck)
		model = hf
	default:
		hm, err := clients.NewHugotModel(clients.HugotConfig{
			ModelPath: cfg.Scorer.ModelPath,
			ModelName: cfg.Scorer.ModelName,
			ModelDir:  cfg.Scorer.ModelDir,
		}, a.Catalog)
		if err != nil {
			return fmt.Errorf("load classifier: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := hm.Close(); err != nil {
				slog.Warn("[App] Failed to destroy hugot session", slog.String("error", err.Error()))
			}
		})
		model = hm
	}

	a.Scorer = emotion.NewScorer(model, a.Catalog, policy)
	if err := a.Scorer.Verify(ctx); err != nil {
		return fmt.Errorf("classifier probe failed: %w", err)
	}
	slog.Info("[App] Scorer ready",
		slog.String("backend", cfg.Scorer.Backend),
		slog.String("mode", string(mode)))
	return nil
}

func buildTranslator(cfg *config.Config, loadAWS func() (aws.Config, error)) (translation.Translator, error) {
	var base translation.Translator
	switch cfg.Translation.Backend {
	case "none":
		slog.Warn("[App] Translation disabled; non-English requests will fail")
		return nil, nil
	case "aws":
		awsCfg, err := loadAWS()
		if err != nil {
			return nil, err
		}
		base = clients.NewAWSTranslator(awsCfg)
	default:
		base = clients.NewGoogleTranslator(cfg.Translation.GoogleEndpoint, cfg.Translation.Timeout)
	}

	policy := utils.SingleRetry(cfg.Translation.Timeout)
	policy.Backoff = cfg.Translation.Backoff
	return translation.WithRetry(base, policy), nil
}

func (a *App) buildComposer(ctx context.Context, cfg *config.Config) (*support.Composer, error) {
	var providers []support.Provider
	for _, name := range cfg.Support.Providers {
		switch name {
		case "openai":
			if cfg.OpenAI.APIKey == "" {
				slog.Warn("[App] Skipping openai support provider, no api key")
				continue
			}
			c, err := clients.NewOpenAIClient(clients.OpenAIConfig{
				APIKey:  cfg.OpenAI.APIKey,
				BaseURL: cfg.OpenAI.BaseURL,
				Model:   cfg.OpenAI.Model,
				Timeout: cfg.Support.Timeout,
			})
			if err != nil {
				return nil, err
			}
			providers = append(providers, support.Provider{Name: name, Generator: c})
		case "gemini":
			if cfg.Gemini.APIKey == "" {
				slog.Warn("[App] Skipping gemini support provider, no api key")
				continue
			}
			c, err := clients.NewGeminiClient(ctx, clients.GeminiConfig{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model})
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, func() { _ = c.Close() })
			providers = append(providers, support.Provider{Name: name, Generator: c})
		}
	}
	if len(providers) == 0 {
		slog.Warn("[App] No support providers configured; every response will use the fallback message")
	}

	policy := utils.SingleRetry(cfg.Support.Timeout)
	policy.Backoff = cfg.Support.Backoff
	return support.NewComposer(providers, support.Params{
		MaxTokens:   cfg.Support.MaxTokens,
		Temperature: cfg.Support.Temperature,
	}, policy), nil
}

func (a *App) buildTelemetry(ctx context.Context, cfg *config.Config, loadAWS func() (aws.Config, error)) error {
	var counts telemetry.CountStore
	switch cfg.Telemetry.Counts {
	case "valkey":
		vc, err := clients.NewValkeyClient(ctx, clients.ValkeyConfig{
			Address:  cfg.Telemetry.Valkey.Address,
			Password: cfg.Telemetry.Valkey.Password,
			TLS:      cfg.Telemetry.Valkey.TLS,
			Key:      cfg.Telemetry.Valkey.Key,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, vc.Close)
		a.Monitor.Register("valkey", vc.HealthCheck)
		counts = vc
	case "dynamodb":
		awsCfg, err := loadAWS()
		if err != nil {
			return err
		}
		counts = db.NewLabelCountStore(clients.NewDynamoDBClient(awsCfg, cfg.AWS.Endpoint), cfg.Telemetry.DynamoTable)
	}

	var publisher telemetry.Publisher
	if cfg.Telemetry.Events == "kafka" {
		ep, err := kafka_client.NewEventProducer(kafka_client.KafkaConfig{
			Broker:        cfg.Telemetry.Kafka.Broker,
			Topic:         cfg.Telemetry.Kafka.Topic,
			BatchSize:     cfg.Telemetry.Kafka.BatchSize,
			FlushInterval: cfg.Telemetry.Kafka.FlushInterval,
		})
		if err != nil {
			return err
		}
		a.Events = ep
		a.closers = append(a.closers, ep.Close)
		publisher = ep
	}

	a.Recorder = telemetry.NewRecorder(counts, publisher)
	return nil
}

func (a *App) buildTranscription(cfg *config.Config) error {
	var t transcription.Transcriber
	switch cfg.Transcription.Backend {
	case "none":
		return nil
	case "remote":
		t = clients.NewASRClient(cfg.Transcription.ASREndpoint, cfg.Transcription.Timeout)
	default:
		if cfg.OpenAI.APIKey == "" {
			return errors.New("transcription backend openai needs OPENAI_API_KEY")
		}
		c, err := clients.NewOpenAIClient(clients.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Timeout: cfg.Transcription.Timeout,
		})
		if err != nil {
			return err
		}
		t = c
	}

	a.Transcription = transcription.NewService(
		transcription.FFmpeg{Binary: cfg.Transcription.FFmpegPath},
		t,
		transcription.Options{
			TempDir:         cfg.Transcription.TempDir,
			DefaultLanguage: cfg.Transcription.DefaultLanguage,
		},
	)
	return nil
}

// Close releases resources in reverse build order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
