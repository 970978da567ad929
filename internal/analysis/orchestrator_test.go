package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/spacesedan/emosupport/internal/apperrors"
	"github.com/spacesedan/emosupport/internal/emotion"
	"github.com/spacesedan/emosupport/internal/models"
	"github.com/spacesedan/emosupport/internal/support"
	"github.com/spacesedan/emosupport/internal/utils"
)

// softmaxModel returns log-probabilities, so softmax reproduces probs exactly.
type softmaxModel struct {
	probs map[emotion.Label]float64
	calls int
	texts []string
}

func (m *softmaxModel) Logits(_ context.Context, text string) ([]float64, error) {
	m.calls++
	m.texts = append(m.texts, text)
	c := emotion.DefaultCatalog()

	var assigned float64
	for _, p := range m.probs {
		assigned += p
	}
	rest := (1 - assigned) / float64(c.Len()-len(m.probs))

	out := make([]float64, c.Len())
	for i, l := range c.Labels() {
		p, ok := m.probs[l]
		if !ok {
			p = rest
		}
		out[i] = math.Log(p)
	}
	return out, nil
}

type fakeTranslator struct {
	out   string
	err   error
	calls int
	text  string
	src   string
}

func (f *fakeTranslator) Translate(_ context.Context, text, src, _ string) (string, error) {
	f.calls++
	f.text = text
	f.src = src
	return f.out, f.err
}

type stubGenerator struct {
	reply string
	err   error
}

func (s stubGenerator) Generate(context.Context, string, support.Params) (string, error) {
	return s.reply, s.err
}

type spyRecorder struct {
	calls     int
	language  string
	pivotText string
}

func (s *spyRecorder) Record(_ context.Context, language, pivotText string, _ *models.AnalysisResponse) {
	s.calls++
	s.language = language
	s.pivotText = pivotText
}

func sadnessModel() *softmaxModel {
	return &softmaxModel{probs: map[emotion.Label]float64{
		"sadness":        0.823,
		"grief":          0.121,
		"disappointment": 0.040,
	}}
}

func newOrchestrator(t *testing.T, model emotion.Model, tr *fakeTranslator, gen support.Generator, rec Recorder) *Orchestrator {
	t.Helper()
	composer := support.NewComposer(
		[]support.Provider{{Name: "stub", Generator: gen}},
		support.Params{},
		utils.RetryPolicy{Attempts: 1},
	)
	deps := Dependencies{
		Scorer:          emotion.NewScorer(model, emotion.DefaultCatalog(), emotion.SingleLabel{}),
		Composer:        composer,
		Recorder:        rec,
		MaxAlternatives: emotion.DefaultMaxAlternatives,
	}
	if tr != nil {
		deps.Translator = tr
	}
	o, err := New(deps)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return o
}

func TestAnalyzePivotLanguage(t *testing.T) {
	tr := &fakeTranslator{}
	rec := &spyRecorder{}
	o := newOrchestrator(t, sadnessModel(), tr, stubGenerator{reply: "You are not alone."}, rec)

	resp, err := o.Analyze(context.Background(), models.AnalysisRequest{Text: "I feel hopeless today", Language: "en"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.Label != "sadness" || resp.Probability != 82.3 {
		t.Fatalf("expected sadness 82.3, got %s %v", resp.Label, resp.Probability)
	}
	if len(resp.Alternatives) != 2 ||
		resp.Alternatives[0] != (models.AlternativeEmotion{Emotion: "grief", Probability: 12.1}) ||
		resp.Alternatives[1] != (models.AlternativeEmotion{Emotion: "disappointment", Probability: 4.0}) {
		t.Fatalf("unexpected alternatives %+v", resp.Alternatives)
	}
	if resp.Support == "" {
		t.Fatalf("expected support message")
	}
	if tr.calls != 0 {
		t.Fatalf("translator must not run for pivot language")
	}

	body, _ := json.Marshal(resp)
	var keys map[string]any
	_ = json.Unmarshal(body, &keys)
	for _, k := range []string{"original_text", "translated_text"} {
		if _, ok := keys[k]; ok {
			t.Fatalf("unexpected key %q in %s", k, body)
		}
	}
	for _, k := range []string{"label", "probability", "alternatives", "support"} {
		if _, ok := keys[k]; !ok {
			t.Fatalf("missing key %q in %s", k, body)
		}
	}
	if rec.calls != 1 || rec.language != "en" {
		t.Fatalf("expected one telemetry record, got %+v", rec)
	}
}

func TestAnalyzeTranslatesNonPivot(t *testing.T) {
	model := &softmaxModel{probs: map[emotion.Label]float64{"joy": 0.9, "excitement": 0.05}}
	tr := &fakeTranslator{out: "I feel very happy"}
	o := newOrchestrator(t, model, tr, stubGenerator{reply: "Wonderful!"}, nil)

	original := `"Kendimi çok mutlu hissediyorum"`
	resp, err := o.Analyze(context.Background(), models.AnalysisRequest{Text: original, Language: "tr"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if tr.calls != 1 || tr.src != "tr" || tr.text != "Kendimi çok mutlu hissediyorum" {
		t.Fatalf("unexpected translator call %+v", tr)
	}
	if len(model.texts) != 1 || model.texts[0] != "I feel very happy" {
		t.Fatalf("scorer should see translated text, saw %v", model.texts)
	}
	if resp.OriginalText != original || resp.TranslatedText != "I feel very happy" {
		t.Fatalf("unexpected translation fields %q / %q", resp.OriginalText, resp.TranslatedText)
	}
	if resp.Label != "joy" {
		t.Fatalf("expected joy, got %s", resp.Label)
	}
}

func TestAnalyzeTranslationFailure(t *testing.T) {
	model := sadnessModel()
	tr := &fakeTranslator{err: errors.New("429 too many requests")}
	o := newOrchestrator(t, model, tr, stubGenerator{reply: "x"}, nil)

	_, err := o.Analyze(context.Background(), models.AnalysisRequest{Text: "Çok üzgünüm", Language: "tr"})
	if !apperrors.Is(err, apperrors.KindTranslation) {
		t.Fatalf("expected translation error, got %v", err)
	}
	if model.calls != 0 {
		t.Fatalf("scorer must not run after translation failure")
	}
}

func TestAnalyzeWithoutTranslator(t *testing.T) {
	o := newOrchestrator(t, sadnessModel(), nil, stubGenerator{reply: "x"}, nil)
	_, err := o.Analyze(context.Background(), models.AnalysisRequest{Text: "Bonjour", Language: "fr"})
	if !apperrors.Is(err, apperrors.KindTranslation) {
		t.Fatalf("expected translation error, got %v", err)
	}
}

func TestAnalyzeSupportFailureDegrades(t *testing.T) {
	o := newOrchestrator(t, sadnessModel(), nil, stubGenerator{err: errors.New("quota")}, nil)

	resp, err := o.Analyze(context.Background(), models.AnalysisRequest{Text: "I feel hopeless today"})
	if err != nil {
		t.Fatalf("support failure must not fail the request: %v", err)
	}
	if resp.Support != support.FallbackMessage("en") || !resp.SupportDegraded {
		t.Fatalf("expected fallback support, got %q", resp.Support)
	}
}

func TestAnalyzeRejectsBlankText(t *testing.T) {
	tests := []struct {
		name string
		text string
		lang string
	}{
		{"empty", "", ""},
		{"whitespace", "   \n", ""},
		{"quotes only, pivot", `""`, "en"},
		{"quotes only, translated", `""`, "tr"},
		{"curly quotes around space", "“ ”", "tr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := sadnessModel()
			tr := &fakeTranslator{out: "unused"}
			o := newOrchestrator(t, model, tr, stubGenerator{reply: "x"}, nil)
			_, err := o.Analyze(context.Background(), models.AnalysisRequest{Text: tt.text, Language: tt.lang})
			if !apperrors.Is(err, apperrors.KindInvalidInput) {
				t.Fatalf("expected invalid input for %q, got %v", tt.text, err)
			}
			if tr.calls != 0 {
				t.Fatalf("translator must not run for blank text, got %d calls", tr.calls)
			}
			if model.calls != 0 {
				t.Fatalf("scorer must not run for blank text")
			}
		})
	}
}

type failingModel struct{}

func (failingModel) Logits(context.Context, string) ([]float64, error) {
	return nil, errors.New("session destroyed")
}

func TestAnalyzeScoringFailure(t *testing.T) {
	o := newOrchestrator(t, failingModel{}, nil, stubGenerator{reply: "x"}, nil)
	_, err := o.Analyze(context.Background(), models.AnalysisRequest{Text: "hello"})
	if !apperrors.Is(err, apperrors.KindScoring) {
		t.Fatalf("expected scoring error, got %v", err)
	}
}

func TestAnalyzeZeroAlternatives(t *testing.T) {
	deps := Dependencies{
		Scorer:   emotion.NewScorer(sadnessModel(), emotion.DefaultCatalog(), emotion.SingleLabel{}),
		Composer: support.NewComposer(nil, support.Params{}, utils.RetryPolicy{Attempts: 1}),
	}
	o, err := New(deps)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	resp, err := o.Analyze(context.Background(), models.AnalysisRequest{Text: "I feel hopeless today"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.Label != "sadness" || len(resp.Alternatives) != 0 {
		t.Fatalf("expected primary only, got %+v", resp.Prediction)
	}

	deps.MaxAlternatives = -1
	if _, err := New(deps); err == nil {
		t.Fatalf("expected error for negative max alternatives")
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Dependencies{}); err == nil {
		t.Fatalf("expected error without scorer")
	}
}

func TestPreviewAndPercent(t *testing.T) {
	long := strings.Repeat("ğ", 60)
	if got := []rune(Preview(long)); len(got) != 41 {
		t.Fatalf("expected 40 runes plus ellipsis, got %d", len(got))
	}
	if Percent(0.82345) != 82.35 {
		t.Fatalf("unexpected percent %v", Percent(0.82345))
	}
}
