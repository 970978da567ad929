package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/spacesedan/emosupport/internal/emotion"
	"github.com/spacesedan/emosupport/internal/models"
	"github.com/spacesedan/emosupport/internal/utils"
)

// HuggingFaceConfig describes a remote emotion inference endpoint, usually a
// Hugging Face space or inference endpoint serving the GoEmotions checkpoint.
type HuggingFaceConfig struct {
	Endpoint       string
	HealthEndpoint string
	Timeout        time.Duration

	// Client credentials are optional. When TokenURL is set every request
	// carries a bearer token.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// HuggingFaceClient implements emotion.Model over HTTP.
type HuggingFaceClient struct {
	Client  *http.Client
	config  HuggingFaceConfig
	catalog *emotion.Catalog
	retries int
	backoff time.Duration
}

func NewHuggingFaceClient(cfg HuggingFaceConfig, catalog *emotion.Catalog) *HuggingFaceClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DEFAULT_HTTP_TIMEOUT
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = cfg.Timeout
	}

	slog.Info("[HuggingFaceClient] Initializing Client",
		slog.String("endpoint", cfg.Endpoint),
		slog.Duration("timeout", cfg.Timeout),
		slog.Bool("oauth2", cfg.TokenURL != ""))

	return &HuggingFaceClient{
		Client:  httpClient,
		config:  cfg,
		catalog: catalog,
		retries: MAX_RETRIES,
		backoff: INITIAL_BACKOFF,
	}
}

func (h *HuggingFaceClient) Logits(ctx context.Context, text string) ([]float64, error) {
	var result models.InferenceResponse
	start := time.Now()

	if err := h.postJSON(ctx, h.config.Endpoint, models.InferenceRequest{Text: text}, &result); err != nil {
		slog.Error("[HuggingFaceClient] Inference request failed",
			slog.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	slog.Debug("[HuggingFaceClient] Inference request successful",
		slog.Duration("elapsed", time.Since(start)))

	if len(result.Labels) > 0 {
		return alignScores(h.catalog, result.Labels, result.Logits)
	}
	return result.Logits, nil
}

// HealthCheck reports whether the inference service answers its health route.
func (h *HuggingFaceClient) HealthCheck(ctx context.Context) bool {
	if h.config.HealthEndpoint == "" {
		return true
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.config.HealthEndpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", USER_AGENT)
	resp, err := h.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// DoWithRetry retries transport errors and 5xx replies with a doubling backoff.
func (h *HuggingFaceClient) DoWithRetry(req *http.Request) (*http.Response, error) {
	attempt := 0
	op := func() (*http.Response, error) {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			req.Body = body
		}
		attempt++

		resp, err := h.Client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		slog.Warn("[HuggingFaceClient] Request failed, will retry",
			slog.Int("attempt", attempt),
			slog.String("error", errMsg(err, resp)))

		if resp != nil {
			resp.Body.Close()
		}
		if err == nil {
			err = fmt.Errorf("status code %d", resp.StatusCode)
		}
		return nil, err
	}

	return backoff.RetryWithData(op, utils.NewBackOff(req.Context(), h.retries, h.backoff))
}

func (h *HuggingFaceClient) postJSON(ctx context.Context, endpoint string, input any, output any) error {
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed to build request",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := h.DoWithRetry(req)
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed request after retries",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, preview(respBody))
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[HuggingFaceClient] Failed to unmarshal response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
			slog.String("raw_response", preview(respBody)),
			slog.Int("raw_response_length", len(respBody)))
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func preview(respBody []byte) string {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return raw
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
