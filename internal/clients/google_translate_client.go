package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const GOOGLE_TRANSLATE_ENDPOINT = "https://translate.googleapis.com/translate_a/single"

// GoogleTranslator talks to the public Google web translate endpoint, the
// same one used by browser extensions. It needs no credentials.
type GoogleTranslator struct {
	Client   *http.Client
	endpoint string
}

func NewGoogleTranslator(endpoint string, timeout time.Duration) *GoogleTranslator {
	if endpoint == "" {
		endpoint = GOOGLE_TRANSLATE_ENDPOINT
	}
	if timeout <= 0 {
		timeout = DEFAULT_HTTP_TIMEOUT
	}
	return &GoogleTranslator{
		Client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
	}
}

func (g *GoogleTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", sourceLang)
	q.Set("tl", targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("google translate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google translate: status %d: %s", resp.StatusCode, preview(body))
	}

	return parseGoogleTranslation(body)
}

// The reply is a nested array; the first element lists translated segments
// as [translated, original, ...].
func parseGoogleTranslation(body []byte) (string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return "", fmt.Errorf("google translate: malformed response: %s", preview(body))
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(raw[0], &segments); err != nil {
		return "", fmt.Errorf("google translate: malformed segments: %w", err)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		sb.WriteString(part)
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("google translate: empty translation")
	}
	return out, nil
}
