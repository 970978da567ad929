// Package telemetry records anonymised analysis outcomes.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spacesedan/emosupport/internal/models"
)

// CountStore keeps a running count of primary labels.
type CountStore interface {
	Increment(ctx context.Context, label string) error
	Counts(ctx context.Context) ([]models.LabelCount, error)
}

// Publisher ships analysis events to a downstream sink.
type Publisher interface {
	Publish(ctx context.Context, event models.AnalysisEvent) error
}

// Recorder fans one analysis out to the configured sinks. Nil sinks are
// skipped, and sink failures are logged, never returned.
type Recorder struct {
	counts    CountStore
	publisher Publisher
	now       func() time.Time
}

func NewRecorder(counts CountStore, publisher Publisher) *Recorder {
	return &Recorder{counts: counts, publisher: publisher, now: time.Now}
}

func (r *Recorder) Enabled() bool {
	return r != nil && (r.counts != nil || r.publisher != nil)
}

// Record takes the pivot-language text only to derive valence; the text
// itself is not stored.
func (r *Recorder) Record(ctx context.Context, language, pivotText string, resp *models.AnalysisResponse) {
	if !r.Enabled() || resp == nil {
		return
	}

	if r.counts != nil {
		if err := r.counts.Increment(ctx, resp.Label); err != nil {
			slog.Warn("[Telemetry] Failed to increment label count",
				slog.String("label", resp.Label),
				slog.String("error", err.Error()))
		}
	}

	if r.publisher != nil {
		event := BuildEvent(language, pivotText, resp)
		event.Timestamp = r.now().UTC()
		if err := r.publisher.Publish(ctx, event); err != nil {
			slog.Warn("[Telemetry] Failed to publish analysis event",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()))
		}
	}
}

// Counts reports stored label counts. ok is false when no store is configured.
func (r *Recorder) Counts(ctx context.Context) (counts []models.LabelCount, ok bool, err error) {
	if r == nil || r.counts == nil {
		return nil, false, nil
	}
	counts, err = r.counts.Counts(ctx)
	return counts, true, err
}

func BuildEvent(language, pivotText string, resp *models.AnalysisResponse) models.AnalysisEvent {
	valence, valenceLabel := Valence(pivotText)
	return models.AnalysisEvent{
		ID:              uuid.NewString(),
		Timestamp:       time.Now().UTC(),
		Label:           resp.Label,
		Probability:     resp.Probability,
		Alternatives:    append([]models.AlternativeEmotion(nil), resp.Alternatives...),
		Language:        language,
		Translated:      resp.Translated(),
		Valence:         valence,
		ValenceLabel:    valenceLabel,
		SupportDegraded: resp.SupportDegraded,
	}
}
