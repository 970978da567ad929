package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/spacesedan/emosupport/internal/support"
)

const DEFAULT_GEMINI_MODEL = "gemini-1.5-flash"

type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiClient is the secondary support message generator.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: missing api key")
	}
	if cfg.Model == "" {
		cfg.Model = DEFAULT_GEMINI_MODEL
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	slog.Info("[GeminiClient] Gemini client initialized", slog.String("model", cfg.Model))
	return &GeminiClient{client: client, modelName: cfg.Model}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string, params support.Params) (string, error) {
	// GenerativeModel carries mutable config, so each call gets its own handle.
	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(float32(params.Temperature))
	model.SetMaxOutputTokens(int32(params.MaxTokens))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.New("empty response from gemini")
	}
	return sb.String(), nil
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}
