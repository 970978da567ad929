package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/spacesedan/emosupport/internal/emotion"
)

const (
	EnvPrefix         = "EMO_"
	DefaultConfigFile = "config/config.yaml"
)

type Config struct {
	Env           string              `koanf:"env"`
	LogLevel      string              `koanf:"log_level"`
	Server        ServerConfig        `koanf:"server"`
	Scorer        ScorerConfig        `koanf:"scorer"`
	Translation   TranslationConfig   `koanf:"translation"`
	Support       SupportConfig       `koanf:"support"`
	OpenAI        OpenAIConfig        `koanf:"openai"`
	Gemini        GeminiConfig        `koanf:"gemini"`
	Transcription TranscriptionConfig `koanf:"transcription"`
	AWS           AWSConfig           `koanf:"aws"`
	Telemetry     TelemetryConfig     `koanf:"telemetry"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	MaxConcurrent   int           `koanf:"max_concurrent"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	HealthInterval  time.Duration `koanf:"health_interval"`
}

type ScorerConfig struct {
	// Backend is "hugot" (in process) or "remote".
	Backend         string  `koanf:"backend"`
	Mode            string  `koanf:"mode"`
	Threshold       float64 `koanf:"threshold"`
	MaxAlternatives int     `koanf:"max_alternatives"`

	ModelPath string `koanf:"model_path"`
	ModelName string `koanf:"model_name"`
	ModelDir  string `koanf:"model_dir"`

	Endpoint       string        `koanf:"endpoint"`
	HealthEndpoint string        `koanf:"health_endpoint"`
	Timeout        time.Duration `koanf:"timeout"`
	TokenURL       string        `koanf:"token_url"`
	ClientID       string        `koanf:"client_id"`
	ClientSecret   string        `koanf:"client_secret"`
}

type TranslationConfig struct {
	// Backend is "google", "aws" or "none".
	Backend        string        `koanf:"backend"`
	Timeout        time.Duration `koanf:"timeout"`
	Backoff        time.Duration `koanf:"backoff"`
	GoogleEndpoint string        `koanf:"google_endpoint"`
}

type SupportConfig struct {
	// Providers are tried in order.
	Providers   []string      `koanf:"providers"`
	MaxTokens   int           `koanf:"max_tokens"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
	Backoff     time.Duration `koanf:"backoff"`
}

type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

type GeminiConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

type TranscriptionConfig struct {
	// Backend is "openai", "remote" or "none".
	Backend         string        `koanf:"backend"`
	FFmpegPath      string        `koanf:"ffmpeg_path"`
	TempDir         string        `koanf:"temp_dir"`
	DefaultLanguage string        `koanf:"default_language"`
	ASREndpoint     string        `koanf:"asr_endpoint"`
	Timeout         time.Duration `koanf:"timeout"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
}

type AWSConfig struct {
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`
}

type TelemetryConfig struct {
	// Counts is "valkey", "dynamodb" or "none"; Events is "kafka" or "none".
	Counts      string       `koanf:"counts"`
	Events      string       `koanf:"events"`
	Valkey      ValkeyConfig `koanf:"valkey"`
	DynamoTable string       `koanf:"dynamo_table"`
	Kafka       KafkaConfig  `koanf:"kafka"`
}

type ValkeyConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	TLS      bool   `koanf:"tls"`
	Key      string `koanf:"key"`
}

type KafkaConfig struct {
	Broker        string        `koanf:"broker"`
	Topic         string        `koanf:"topic"`
	BatchSize     int           `koanf:"batch_size"`
	FlushInterval time.Duration `koanf:"flush_interval"`
}

// Load reads the optional YAML file named by CONFIG_FILE and overlays EMO_
// environment variables, where "__" separates levels
// (EMO_SUPPORT__MAX_TOKENS sets support.max_tokens).
func Load() (*Config, error) {
	k := koanf.New(".")

	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults(k)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// applyDefaults fills unset values. Keys where zero is a valid setting are
// checked against k so an explicit zero survives.
func (c *Config) applyDefaults(k *koanf.Koanf) {
	setString(&c.Env, os.Getenv("APP_ENV"))
	setString(&c.Env, "development")
	setString(&c.LogLevel, "info")

	setString(&c.Server.Addr, ":8080")
	if c.Server.MaxConcurrent <= 0 {
		c.Server.MaxConcurrent = 2 * runtime.GOMAXPROCS(0)
	}
	setDuration(&c.Server.ShutdownTimeout, 10*time.Second)
	setDuration(&c.Server.HealthInterval, 15*time.Second)
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}

	setString(&c.Scorer.Backend, "hugot")
	setString(&c.Scorer.Mode, string(emotion.ModeSingleLabel))
	if c.Scorer.Threshold == 0 {
		c.Scorer.Threshold = emotion.DefaultThreshold
	}
	if !k.Exists("scorer.max_alternatives") {
		c.Scorer.MaxAlternatives = emotion.DefaultMaxAlternatives
	}
	setString(&c.Scorer.ModelPath, "./models/goemotions/model.onnx")
	setDuration(&c.Scorer.Timeout, 30*time.Second)

	setString(&c.Translation.Backend, "google")
	setDuration(&c.Translation.Timeout, 10*time.Second)
	setDuration(&c.Translation.Backoff, 500*time.Millisecond)

	if len(c.Support.Providers) == 0 {
		c.Support.Providers = []string{"openai", "gemini"}
	}
	if c.Support.MaxTokens == 0 {
		c.Support.MaxTokens = 400
	}
	if !k.Exists("support.temperature") {
		c.Support.Temperature = 0.7
	}
	setDuration(&c.Support.Timeout, 30*time.Second)
	setDuration(&c.Support.Backoff, 500*time.Millisecond)

	setString(&c.OpenAI.APIKey, os.Getenv("OPENAI_API_KEY"))
	setString(&c.Gemini.APIKey, os.Getenv("GEMINI_API_KEY"))

	setString(&c.Transcription.Backend, "openai")
	setString(&c.Transcription.DefaultLanguage, "tr")
	setDuration(&c.Transcription.Timeout, 60*time.Second)
	if c.Transcription.MaxUploadBytes == 0 {
		c.Transcription.MaxUploadBytes = 25 << 20
	}

	setString(&c.AWS.Region, os.Getenv("AWS_REGION"))
	setString(&c.AWS.Region, "us-west-2")

	setString(&c.Telemetry.Counts, "none")
	setString(&c.Telemetry.Events, "none")
	setString(&c.Telemetry.Kafka.Broker, "localhost:29092")
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("server.max_concurrent must be positive"))
	}
	if !slices.Contains([]string{"hugot", "remote"}, c.Scorer.Backend) {
		errs = append(errs, fmt.Errorf("scorer.backend %q must be hugot or remote", c.Scorer.Backend))
	}
	if c.Scorer.Backend == "remote" && c.Scorer.Endpoint == "" {
		errs = append(errs, errors.New("scorer.endpoint is required for the remote backend"))
	}
	if _, err := emotion.ParseMode(c.Scorer.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Scorer.Threshold <= 0 || c.Scorer.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("scorer.threshold %v must be in (0,1)", c.Scorer.Threshold))
	}
	if c.Scorer.MaxAlternatives < 0 {
		errs = append(errs, errors.New("scorer.max_alternatives must not be negative"))
	}
	if !slices.Contains([]string{"google", "aws", "none"}, c.Translation.Backend) {
		errs = append(errs, fmt.Errorf("translation.backend %q must be google, aws or none", c.Translation.Backend))
	}
	for _, p := range c.Support.Providers {
		if p != "openai" && p != "gemini" {
			errs = append(errs, fmt.Errorf("unknown support provider %q", p))
		}
	}
	if c.Support.MaxTokens <= 0 {
		errs = append(errs, errors.New("support.max_tokens must be positive"))
	}
	if c.Support.Temperature < 0 || c.Support.Temperature > 2 {
		errs = append(errs, fmt.Errorf("support.temperature %v must be in [0,2]", c.Support.Temperature))
	}
	if !slices.Contains([]string{"openai", "remote", "none"}, c.Transcription.Backend) {
		errs = append(errs, fmt.Errorf("transcription.backend %q must be openai, remote or none", c.Transcription.Backend))
	}
	if c.Transcription.Backend == "remote" && c.Transcription.ASREndpoint == "" {
		errs = append(errs, errors.New("transcription.asr_endpoint is required for the remote backend"))
	}
	if !slices.Contains([]string{"valkey", "dynamodb", "none"}, c.Telemetry.Counts) {
		errs = append(errs, fmt.Errorf("telemetry.counts %q must be valkey, dynamodb or none", c.Telemetry.Counts))
	}
	if c.Telemetry.Counts == "valkey" && c.Telemetry.Valkey.Address == "" {
		errs = append(errs, errors.New("telemetry.valkey.address is required"))
	}
	if !slices.Contains([]string{"kafka", "none"}, c.Telemetry.Events) {
		errs = append(errs, fmt.Errorf("telemetry.events %q must be kafka or none", c.Telemetry.Events))
	}

	return errors.Join(errs...)
}

func setString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}
