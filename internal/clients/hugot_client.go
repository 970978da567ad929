package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/spacesedan/emosupport/internal/emotion"
)

// HugotConfig points at a local ONNX export of a GoEmotions classifier.
// When ModelPath does not exist and ModelName is set, the model is
// downloaded into ModelDir first.
type HugotConfig struct {
	ModelPath string
	ModelName string
	ModelDir  string
}

// HugotModel runs the classifier in process through an ONNX Runtime session.
type HugotModel struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	catalog  *emotion.Catalog
}

func NewHugotModel(cfg HugotConfig, catalog *emotion.Catalog) (*HugotModel, error) {
	modelPath, err := ensureModel(cfg)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewORTSession()
	if err != nil {
		slog.Error("[HugotModel] Failed to initialize Hugot session", slog.String("error", err.Error()))
		return nil, fmt.Errorf("hugot session: %w", err)
	}

	// Sigmoid with multi-label output returns a score for every class, which
	// can be inverted back to logits for either scoring policy.
	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "goEmotionsPipeline",
		Options: []hugot.TextClassificationOption{
			pipelines.WithSigmoid(),
			pipelines.WithMultiLabel(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		slog.Error("[HugotModel] Failed to initialize classification pipeline", slog.String("error", err.Error()))
		return nil, fmt.Errorf("hugot pipeline: %w", err)
	}

	slog.Info("[HugotModel] Classification pipeline ready", slog.String("path", modelPath))
	return &HugotModel{session: session, pipeline: pipeline, catalog: catalog}, nil
}

func ensureModel(cfg HugotConfig) (string, error) {
	if cfg.ModelPath != "" {
		if _, err := os.Stat(cfg.ModelPath); err == nil {
			slog.Info("[HugotModel] Using existing model", slog.String("path", cfg.ModelPath))
			return cfg.ModelPath, nil
		}
	}
	if cfg.ModelName == "" {
		return "", fmt.Errorf("model %q not found and no model name to download", cfg.ModelPath)
	}

	dir := cfg.ModelDir
	if dir == "" {
		dir = filepath.Dir(cfg.ModelPath)
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("create model directory: %w", err)
	}

	slog.Info("[HugotModel] Model not found, downloading...", slog.String("model", cfg.ModelName))
	path, err := hugot.DownloadModel(cfg.ModelName, dir, hugot.NewDownloadOptions())
	if err != nil {
		slog.Error("[HugotModel] Failed to download model", slog.String("error", err.Error()))
		return "", fmt.Errorf("download %s: %w", cfg.ModelName, err)
	}
	slog.Info("[HugotModel] Model downloaded successfully", slog.String("path", path))
	return path, nil
}

func (m *HugotModel) Logits(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	output, err := m.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}
	if len(output.ClassificationOutputs) == 0 {
		return nil, errors.New("pipeline returned no output")
	}

	classes := output.ClassificationOutputs[0]
	labels := make([]string, len(classes))
	logits := make([]float64, len(classes))
	for i, c := range classes {
		labels[i] = c.Label
		logits[i] = emotion.Logit(float64(c.Score))
	}
	return alignScores(m.catalog, labels, logits)
}

func (m *HugotModel) Close() error {
	if m.session == nil {
		return nil
	}
	return m.session.Destroy()
}
