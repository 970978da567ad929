package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spacesedan/emosupport/internal/models"
)

// ASRClient uploads normalized audio to a self-hosted speech recognition
// service exposing POST /transcribe.
type ASRClient struct {
	Client  *http.Client
	baseURL string
}

func NewASRClient(baseURL string, timeout time.Duration) *ASRClient {
	if timeout <= 0 {
		timeout = DEFAULT_HTTP_TIMEOUT
	}
	return &ASRClient{Client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

func (a *ASRClient) Transcribe(ctx context.Context, wavPath, language string) (string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return "", err
	}
	fd, err := os.Open(wavPath)
	if err != nil {
		return "", err
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return "", err
	}
	if language != "" {
		if err = w.WriteField("language", language); err != nil {
			return "", err
		}
	}
	if err = w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transcribe", &b)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := a.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("asr %s: %s", resp.Status, preview(body))
	}

	var out models.ASRResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("asr decode: %w", err)
	}
	return out.Text, nil
}
