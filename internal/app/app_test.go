package app

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spacesedan/emosupport/config"
	"github.com/spacesedan/emosupport/internal/emotion"
	"github.com/spacesedan/emosupport/internal/models"
	"github.com/spacesedan/emosupport/internal/support"
)

func inferenceServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	c := emotion.DefaultCatalog()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		logits := make([]float64, c.Len())
		for i := range logits {
			logits[i] = math.Log(0.01)
		}
		idx, _ := c.Index("joy")
		logits[idx] = math.Log(0.73)
		_ = json.NewEncoder(w).Encode(models.InferenceResponse{Logits: logits})
	}))
}

func testConfig(inferenceURL, translateURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{HealthInterval: time.Hour},
		Scorer: config.ScorerConfig{
			Backend:         "remote",
			Mode:            "single",
			Threshold:       0.3,
			MaxAlternatives: 2,
			Endpoint:        inferenceURL,
			Timeout:         time.Second,
		},
		Translation: config.TranslationConfig{
			Backend:        "google",
			GoogleEndpoint: translateURL,
			Timeout:        time.Second,
			Backoff:        time.Millisecond,
		},
		Support: config.SupportConfig{
			MaxTokens:   400,
			Temperature: 0.7,
			Timeout:     time.Second,
		},
		Transcription: config.TranscriptionConfig{Backend: "none"},
		Telemetry:     config.TelemetryConfig{Counts: "none", Events: "none"},
	}
}

func TestBuildWiresRemotePipeline(t *testing.T) {
	inference := inferenceServer(t, http.StatusOK)
	defer inference.Close()
	translate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[[["I am so happy","Çok mutluyum",null,null,10]],null,"tr"]`)
	}))
	defer translate.Close()

	a, err := Build(context.Background(), testConfig(inference.URL, translate.URL))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	if a.Transcription != nil || a.Events != nil || a.Recorder.Enabled() {
		t.Fatalf("optional components should be off")
	}

	resp, err := a.Orchestrator.Analyze(context.Background(), models.AnalysisRequest{Text: "Çok mutluyum", Language: "tr"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.Label != "joy" || resp.TranslatedText != "I am so happy" || resp.OriginalText != "Çok mutluyum" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Support != support.FallbackMessage("tr") {
		t.Fatalf("expected localized fallback without providers, got %q", resp.Support)
	}
}

func TestBuildFailsWhenProbeFails(t *testing.T) {
	inference := inferenceServer(t, http.StatusBadRequest)
	defer inference.Close()

	if _, err := Build(context.Background(), testConfig(inference.URL, "")); err == nil {
		t.Fatalf("expected startup failure when the classifier probe fails")
	}
}
