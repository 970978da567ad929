// Package analysis runs one text through translation, scoring, alternative
// selection and support composition.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/spacesedan/emosupport/internal/apperrors"
	"github.com/spacesedan/emosupport/internal/emotion"
	"github.com/spacesedan/emosupport/internal/models"
	"github.com/spacesedan/emosupport/internal/support"
	"github.com/spacesedan/emosupport/internal/translation"
)

const (
	stageValidate  = "validate"
	stageTranslate = "translate"
	stageScore     = "score"

	previewRunes     = 40
	telemetryTimeout = 2 * time.Second
)

type Scorer interface {
	Score(ctx context.Context, text string) (emotion.Result, error)
}

type Composer interface {
	Compose(ctx context.Context, in support.Input) (string, bool)
}

type Recorder interface {
	Record(ctx context.Context, language, pivotText string, resp *models.AnalysisResponse)
}

// Dependencies is built once at startup and shared read-only by all requests.
type Dependencies struct {
	Scorer   Scorer
	Composer Composer
	// Translator may be nil, in which case non-pivot requests fail.
	Translator translation.Translator
	// Recorder may be nil.
	Recorder Recorder
	// MaxAlternatives of zero reports the primary label only.
	MaxAlternatives int
}

type Orchestrator struct {
	deps Dependencies
}

func New(deps Dependencies) (*Orchestrator, error) {
	if deps.Scorer == nil {
		return nil, errors.New("analysis: scorer is required")
	}
	if deps.Composer == nil {
		return nil, errors.New("analysis: support composer is required")
	}
	if deps.MaxAlternatives < 0 {
		return nil, fmt.Errorf("analysis: max alternatives %d must not be negative", deps.MaxAlternatives)
	}
	return &Orchestrator{deps: deps}, nil
}

// Analyze fails only with invalid input, translation or scoring errors.
// Support generation problems degrade to a fallback message.
func (o *Orchestrator) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error) {
	start := time.Now()

	if strings.TrimSpace(req.Text) == "" {
		return nil, o.fail(stageValidate, req.Text, apperrors.InvalidInput(stageValidate, "text is empty"))
	}
	// Quotes are stripped before translation, so quote-only text is empty too.
	if strings.TrimSpace(translation.StripQuotes(req.Text)) == "" {
		return nil, o.fail(stageValidate, req.Text, apperrors.InvalidInput(stageValidate, "text has no content inside quotes"))
	}
	lang := translation.NormalizeTag(req.Language)

	pivotText := req.Text
	translated := false
	if lang != translation.PivotLanguage {
		out, err := o.translate(ctx, req.Text, lang)
		if err != nil {
			return nil, o.fail(stageTranslate, req.Text, err)
		}
		pivotText = out
		translated = true
	}

	result, err := o.deps.Scorer.Score(ctx, pivotText)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindUnknown {
			err = apperrors.New(apperrors.KindScoring, stageScore, err)
		}
		return nil, o.fail(stageScore, pivotText, err)
	}

	prediction := toPrediction(result, o.deps.MaxAlternatives)

	message, degraded := o.deps.Composer.Compose(ctx, support.Input{
		OriginalText: req.Text,
		Language:     lang,
		Primary:      prediction.Label,
		Alternatives: prediction.Alternatives,
	})

	resp := &models.AnalysisResponse{
		Prediction:      prediction,
		Support:         message,
		SupportDegraded: degraded,
	}
	if translated {
		resp.OriginalText = req.Text
		resp.TranslatedText = pivotText
	}

	if o.deps.Recorder != nil {
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryTimeout)
		o.deps.Recorder.Record(recordCtx, lang, pivotText, resp)
		cancel()
	}

	slog.Info("[Analysis] Request analyzed",
		slog.String("label", resp.Label),
		slog.Float64("probability", resp.Probability),
		slog.String("language", lang),
		slog.Bool("translated", translated),
		slog.Bool("support_degraded", degraded),
		slog.Duration("elapsed", time.Since(start)))

	return resp, nil
}

func (o *Orchestrator) translate(ctx context.Context, text, lang string) (string, error) {
	if o.deps.Translator == nil {
		return "", apperrors.New(apperrors.KindTranslation, stageTranslate,
			fmt.Errorf("no translator configured for language %q", lang))
	}
	out, err := o.deps.Translator.Translate(ctx, translation.StripQuotes(text), lang, translation.PivotLanguage)
	if err != nil {
		return "", apperrors.New(apperrors.KindTranslation, stageTranslate, err)
	}
	return out, nil
}

func (o *Orchestrator) fail(stage, input string, err error) error {
	slog.Error("[Analysis] Request failed",
		slog.String("stage", stage),
		slog.String("kind", apperrors.KindOf(err).String()),
		slog.String("input_preview", Preview(input)),
		slog.String("error", err.Error()))
	return err
}

func toPrediction(r emotion.Result, maxAlternatives int) models.Prediction {
	ranked := r.Alternatives(maxAlternatives)
	alts := make([]models.AlternativeEmotion, 0, len(ranked))
	for _, a := range ranked {
		alts = append(alts, models.AlternativeEmotion{
			Emotion:     string(a.Label),
			Probability: Percent(a.Prob),
		})
	}
	return models.Prediction{
		Label:        string(r.Primary),
		Probability:  Percent(r.PrimaryProb()),
		Alternatives: alts,
	}
}

// Percent converts a probability to a percentage rounded to two decimals.
func Percent(p float64) float64 {
	return math.Round(p*100*100) / 100
}

// Preview truncates text for logs.
func Preview(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= previewRunes {
		return string(runes)
	}
	return string(runes[:previewRunes]) + "…"
}
