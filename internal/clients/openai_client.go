package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/spacesedan/emosupport/internal/support"
)

const (
	DEFAULT_OPENAI_CHAT_MODEL = "gpt-4o-mini"
	DEFAULT_OPENAI_ASR_MODEL  = openai.AudioModelWhisper1
	openAIRequestTimeout      = 60 * time.Second
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIClient generates support messages through chat completions and
// transcribes normalized audio through whisper.
type OpenAIClient struct {
	Client *openai.Client
	model  string
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		slog.Error("[OpenAIClient] Missing OPENAI_API_KEY")
		return nil, errors.New("openai: missing api key")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = openAIRequestTimeout
	}
	if cfg.Model == "" {
		cfg.Model = DEFAULT_OPENAI_CHAT_MODEL
	}

	// Retries are owned by the callers' retry policy.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	slog.Info("[OpenAIClient] OpenAI client initialized",
		slog.String("model", cfg.Model),
		slog.Duration("timeout", cfg.Timeout))

	return &OpenAIClient{Client: openai.NewClient(opts...), model: cfg.Model}, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string, params support.Params) (string, error) {
	chatCompletion, err := c.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		}),
		Model:       openai.F(openai.ChatModel(c.model)),
		MaxTokens:   openai.Int(int64(params.MaxTokens)),
		Temperature: openai.Float(params.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(chatCompletion.Choices) == 0 || strings.TrimSpace(chatCompletion.Choices[0].Message.Content) == "" {
		return "", errors.New("openai returned empty response")
	}
	return chatCompletion.Choices[0].Message.Content, nil
}

// Transcribe uploads a normalized wav file. An empty language lets the
// service detect it.
func (c *OpenAIClient) Transcribe(ctx context.Context, wavPath, language string) (string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  openai.F[io.Reader](f),
		Model: openai.F(DEFAULT_OPENAI_ASR_MODEL),
	}
	if language != "" {
		params.Language = openai.F(language)
	}

	transcription, err := c.Client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return transcription.Text, nil
}
