package emotion

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/spacesedan/emosupport/internal/apperrors"
)

const stageScore = "score"

// probeText is scored once at startup to check the model's output width.
const probeText = "I am not sure how I feel about this."

// Model is an opaque text classifier that returns one raw logit per class,
// in catalog order. Tokenization and truncation are the model's concern.
type Model interface {
	Logits(ctx context.Context, text string) ([]float64, error)
}

type Scorer struct {
	model   Model
	catalog *Catalog
	policy  Policy
}

func NewScorer(model Model, catalog *Catalog, policy Policy) *Scorer {
	return &Scorer{model: model, catalog: catalog, policy: policy}
}

func (s *Scorer) Catalog() *Catalog { return s.catalog }

func (s *Scorer) Mode() Mode { return s.policy.Mode() }

// Score classifies text. Blank input is rejected before the model is called.
func (s *Scorer) Score(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, apperrors.InvalidInput(stageScore, "text is empty")
	}

	start := time.Now()
	logits, err := s.model.Logits(ctx, text)
	if err != nil {
		return Result{}, apperrors.New(apperrors.KindScoring, stageScore, fmt.Errorf("model invocation: %w", err))
	}
	if err := s.checkLogits(logits); err != nil {
		return Result{}, apperrors.New(apperrors.KindScoring, stageScore, err)
	}

	res, err := s.policy.Apply(s.catalog, logits)
	if err != nil {
		return Result{}, apperrors.New(apperrors.KindScoring, stageScore, err)
	}

	slog.Debug("[Scorer] Scored text",
		slog.String("mode", string(res.Mode)),
		slog.String("primary", string(res.Primary)),
		slog.Float64("probability", res.PrimaryProb()),
		slog.Int("active", len(res.Active)),
		slog.Bool("fallback", res.Fallback),
		slog.Duration("elapsed", time.Since(start)))

	return res, nil
}

// Verify runs a probe inference and fails when the model's output width does
// not match the catalog. It is meant to run once at startup.
func (s *Scorer) Verify(ctx context.Context) error {
	logits, err := s.model.Logits(ctx, probeText)
	if err != nil {
		return fmt.Errorf("probe inference: %w", err)
	}
	return s.checkLogits(logits)
}

func (s *Scorer) checkLogits(logits []float64) error {
	if len(logits) != s.catalog.Len() {
		return fmt.Errorf("model returned %d logits, label catalog has %d labels", len(logits), s.catalog.Len())
	}
	for i, x := range logits {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("non-finite logit for %q", s.catalog.At(i))
		}
	}
	return nil
}
