package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/translate"

	"github.com/spacesedan/emosupport/internal/emotion"
	"github.com/spacesedan/emosupport/internal/models"
	"github.com/spacesedan/emosupport/internal/support"
)

func uniformLogits(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func testHuggingFace(url string) *HuggingFaceClient {
	h := NewHuggingFaceClient(HuggingFaceConfig{Endpoint: url, Timeout: time.Second}, emotion.DefaultCatalog())
	h.backoff = time.Millisecond
	return h
}

func TestHuggingFaceLogitsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.InferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text != "hello" {
			t.Errorf("unexpected request body: %+v (%v)", req, err)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(models.InferenceResponse{Logits: uniformLogits(28)})
	}))
	defer srv.Close()

	logits, err := testHuggingFace(srv.URL).Logits(context.Background(), "hello")
	if err != nil {
		t.Fatalf("logits: %v", err)
	}
	if len(logits) != 28 || logits[27] != 27 {
		t.Fatalf("unexpected logits %v", logits)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected a retry after 503, got %d calls", calls.Load())
	}
}

func TestHuggingFaceLogitsClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad input", http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := testHuggingFace(srv.URL).Logits(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error on 400")
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls.Load())
	}
}

func TestHuggingFaceLogitsGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testHuggingFace(srv.URL).Logits(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected the last status in the error, got %v", err)
	}
	if calls.Load() != MAX_RETRIES {
		t.Fatalf("expected %d attempts, got %d", MAX_RETRIES, calls.Load())
	}
}

func TestHuggingFaceLogitsAlignsLabels(t *testing.T) {
	c := emotion.DefaultCatalog()
	labels := make([]string, c.Len())
	logits := make([]float64, c.Len())
	for i := 0; i < c.Len(); i++ {
		// reversed order
		labels[i] = string(c.At(c.Len() - 1 - i))
		logits[i] = float64(c.Len() - 1 - i)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(models.InferenceResponse{Logits: logits, Labels: labels})
	}))
	defer srv.Close()

	got, err := testHuggingFace(srv.URL).Logits(context.Background(), "x")
	if err != nil {
		t.Fatalf("logits: %v", err)
	}
	for i, v := range got {
		if v != float64(i) {
			t.Fatalf("position %d holds %v", i, v)
		}
	}
}

func TestAlignScores(t *testing.T) {
	c := emotion.DefaultCatalog()
	labels := make([]string, c.Len())
	values := make([]float64, c.Len())
	for i := range labels {
		labels[i] = "LABEL_" + string(rune('0'+i%10))
		values[i] = float64(i)
	}
	if _, err := alignScores(c, labels, values); err == nil {
		t.Fatalf("expected duplicate label error")
	}
	if _, err := alignScores(c, []string{"joy"}, []float64{1}); err == nil {
		t.Fatalf("expected width mismatch error")
	}
	if _, err := catalogIndex(c, "nostalgia"); err == nil {
		t.Fatalf("expected unknown label error")
	}
	if idx, err := catalogIndex(c, "LABEL_25"); err != nil || idx != 25 {
		t.Fatalf("expected index 25, got %d (%v)", idx, err)
	}
	if idx, err := catalogIndex(c, "Sadness"); err != nil || c.At(idx) != "sadness" {
		t.Fatalf("expected sadness, got %d (%v)", idx, err)
	}
}

func TestGoogleTranslator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("sl") != "tr" || q.Get("tl") != "en" || q.Get("client") != "gtx" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = io.WriteString(w, `[[["I feel ","Kendimi ",null,null,10],["very happy","çok mutlu hissediyorum",null,null,10]],null,"tr"]`)
	}))
	defer srv.Close()

	got, err := NewGoogleTranslator(srv.URL, time.Second).Translate(context.Background(), "Kendimi çok mutlu hissediyorum", "tr", "en")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != "I feel very happy" {
		t.Fatalf("unexpected translation %q", got)
	}
}

func TestParseGoogleTranslationRejectsEmpty(t *testing.T) {
	for _, body := range []string{`[]`, `[null]`, `[[["",""]]]`, `<html>`} {
		if _, err := parseGoogleTranslation([]byte(body)); err == nil {
			t.Fatalf("expected error for %s", body)
		}
	}
}

type fakeTranslateAPI struct {
	out *translate.TranslateTextOutput
	err error
	in  *translate.TranslateTextInput
}

func (f *fakeTranslateAPI) TranslateText(_ context.Context, in *translate.TranslateTextInput, _ ...func(*translate.Options)) (*translate.TranslateTextOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestAWSTranslator(t *testing.T) {
	api := &fakeTranslateAPI{out: &translate.TranslateTextOutput{TranslatedText: aws.String("I am sad")}}
	got, err := NewAWSTranslatorWithAPI(api).Translate(context.Background(), "Üzgünüm", "tr", "en")
	if err != nil || got != "I am sad" {
		t.Fatalf("unexpected result %q (%v)", got, err)
	}
	if aws.ToString(api.in.SourceLanguageCode) != "tr" || aws.ToString(api.in.TargetLanguageCode) != "en" {
		t.Fatalf("unexpected input %+v", api.in)
	}

	api = &fakeTranslateAPI{out: &translate.TranslateTextOutput{}}
	if _, err := NewAWSTranslatorWithAPI(api).Translate(context.Background(), "x", "tr", "en"); err == nil {
		t.Fatalf("expected error on empty translation")
	}

	api = &fakeTranslateAPI{err: errors.New("throttled")}
	if _, err := NewAWSTranslatorWithAPI(api).Translate(context.Background(), "x", "tr", "en"); err == nil {
		t.Fatalf("expected error from api")
	}
}

func TestASRClientUploadsFile(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(wav, []byte("RIFF....WAVE"), 0o600); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file: %v", err)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		if header.Filename != "clip.wav" || string(body) != "RIFF....WAVE" || r.FormValue("language") != "tr" {
			t.Errorf("unexpected upload %s %q lang=%s", header.Filename, body, r.FormValue("language"))
		}
		_ = json.NewEncoder(w).Encode(models.ASRResponse{Text: "bugün çok yorgunum", Language: "tr"})
	}))
	defer srv.Close()

	got, err := NewASRClient(srv.URL, time.Second).Transcribe(context.Background(), wav, "tr")
	if err != nil || got != "bugün çok yorgunum" {
		t.Fatalf("unexpected transcript %q (%v)", got, err)
	}
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["max_tokens"] != float64(400) || body["temperature"] != 0.7 {
			t.Errorf("unexpected params %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"You are not alone."}}]}`)
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/", Timeout: time.Second})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	got, err := c.Generate(context.Background(), "prompt", support.Params{MaxTokens: 400, Temperature: 0.7})
	if err != nil || got != "You are not alone." {
		t.Fatalf("unexpected reply %q (%v)", got, err)
	}
}

func TestOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(OpenAIConfig{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
