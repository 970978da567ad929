// Package transcription turns uploaded audio into text: the audio is
// normalized with ffmpeg and handed to a speech recognition backend.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spacesedan/emosupport/internal/apperrors"
)

const (
	stageNormalize  = "normalize"
	stageTranscribe = "transcribe"

	DefaultLanguage = "tr"
)

type Normalizer interface {
	Normalize(ctx context.Context, inPath, outPath string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, wavPath, language string) (string, error)
}

type Options struct {
	// TempDir is the parent of the per-request scratch directory. Empty
	// means os.TempDir.
	TempDir         string
	DefaultLanguage string
}

type Service struct {
	normalizer  Normalizer
	transcriber Transcriber
	opts        Options
}

func NewService(normalizer Normalizer, transcriber Transcriber, opts Options) *Service {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = DefaultLanguage
	}
	return &Service{normalizer: normalizer, transcriber: transcriber, opts: opts}
}

// Transcribe makes a single attempt. All intermediate files live in a
// scratch directory removed before returning.
func (s *Service) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	start := time.Now()
	if len(audio) == 0 {
		return "", s.fail(stageTranscribe, apperrors.New(apperrors.KindTranscription, stageTranscribe,
			errors.New("audio is empty")))
	}
	if language == "" {
		language = s.opts.DefaultLanguage
	}

	dir, err := os.MkdirTemp(s.opts.TempDir, "emosupport-audio-*")
	if err != nil {
		return "", s.fail(stageNormalize, apperrors.New(apperrors.KindNormalization, stageNormalize,
			fmt.Errorf("create scratch dir: %w", err)))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("[Transcription] Failed to remove scratch dir",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
		}
	}()

	inPath := filepath.Join(dir, "input"+inputExt(filename))
	outPath := filepath.Join(dir, "normalized.wav")

	if err := os.WriteFile(inPath, audio, 0o600); err != nil {
		return "", s.fail(stageNormalize, apperrors.New(apperrors.KindNormalization, stageNormalize, err))
	}
	if err := s.normalizer.Normalize(ctx, inPath, outPath); err != nil {
		return "", s.fail(stageNormalize, apperrors.New(apperrors.KindNormalization, stageNormalize, err))
	}

	text, err := s.transcriber.Transcribe(ctx, outPath, language)
	if err != nil {
		return "", s.fail(stageTranscribe, apperrors.New(apperrors.KindTranscription, stageTranscribe, err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", s.fail(stageTranscribe, apperrors.New(apperrors.KindTranscription, stageTranscribe,
			errors.New("empty transcript")))
	}

	slog.Info("[Transcription] Audio transcribed",
		slog.Int("audio_bytes", len(audio)),
		slog.String("language", language),
		slog.Duration("elapsed", time.Since(start)))
	return text, nil
}

func (s *Service) fail(stage string, err error) error {
	slog.Error("[Transcription] Request failed",
		slog.String("stage", stage),
		slog.String("kind", apperrors.KindOf(err).String()),
		slog.String("error", err.Error()))
	return err
}

// inputExt keeps a short alphanumeric extension so ffmpeg can sniff the
// container; anything else is dropped.
func inputExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 6 {
		return ".bin"
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ".bin"
		}
	}
	return ext
}
