// Package support writes an empathetic reply for a detected emotion.
package support

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spacesedan/emosupport/internal/apperrors"
	"github.com/spacesedan/emosupport/internal/utils"
)

const (
	DefaultMaxTokens   = 400
	DefaultTemperature = 0.7

	stageSupport = "support"
)

var ErrEmptyCompletion = errors.New("generator returned an empty completion")

var fallbackMessages = map[string]string{
	"en": "Emotional support is not available right now. Please try again.",
	"tr": "Şu anda duygusal destek verilemiyor. Lütfen tekrar deneyin.",
}

// FallbackMessage is the static reply used when no generator answers.
func FallbackMessage(lang string) string {
	if msg, ok := fallbackMessages[lang]; ok {
		return msg
	}
	return fallbackMessages["en"]
}

type Params struct {
	MaxTokens   int
	Temperature float64
}

// Generator is an opaque generative-language service.
type Generator interface {
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}

type Provider struct {
	Name      string
	Generator Generator
}

type Composer struct {
	providers []Provider
	params    Params
	policy    utils.RetryPolicy
}

// NewComposer tries providers in order. A composer without providers always
// answers with the fallback message. A zero temperature is kept; a negative
// one selects the default.
func NewComposer(providers []Provider, params Params, policy utils.RetryPolicy) *Composer {
	if params.MaxTokens <= 0 {
		params.MaxTokens = DefaultMaxTokens
	}
	if params.Temperature < 0 {
		params.Temperature = DefaultTemperature
	}
	return &Composer{providers: providers, params: params, policy: policy}
}

// Compose never fails. degraded reports that the fallback message was used.
func (c *Composer) Compose(ctx context.Context, in Input) (message string, degraded bool) {
	prompt := BuildPrompt(in)

	for _, p := range c.providers {
		start := time.Now()
		msg, err := utils.Do(ctx, c.policy, "support."+p.Name, func(ctx context.Context) (string, error) {
			out, err := p.Generator.Generate(ctx, prompt, c.params)
			if err != nil {
				return "", err
			}
			out = strings.TrimSpace(out)
			if out == "" {
				return "", ErrEmptyCompletion
			}
			return out, nil
		})
		if err == nil {
			slog.Info("[SupportComposer] Support message generated",
				slog.String("provider", p.Name),
				slog.Duration("elapsed", time.Since(start)))
			return msg, false
		}

		genErr := apperrors.New(apperrors.KindSupportGeneration, stageSupport, err)
		slog.Error("[SupportComposer] Provider failed",
			slog.String("provider", p.Name),
			slog.String("error", genErr.Error()),
			slog.Duration("elapsed", time.Since(start)))
		if ctx.Err() != nil {
			break
		}
	}

	return FallbackMessage(in.Language), true
}
