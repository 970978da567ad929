package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/emosupport/internal/apperrors"
	"github.com/spacesedan/emosupport/internal/models"
	"github.com/spacesedan/emosupport/internal/translation"
)

var (
	errBusy           = errors.New("request cancelled while waiting for capacity")
	errNoTranscriber  = errors.New("transcription is not configured")
	errNoStats        = errors.New("stats store is not configured")
	errMissingAudio   = errors.New("missing audio file field \"file\"")
	errUploadTooLarge = errors.New("audio upload too large")
)

func (s *Server) handleAnalyze(c *gin.Context) {
	var req models.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.InvalidInput("decode", "invalid JSON body"))
		return
	}

	if err := s.sem.Acquire(c.Request.Context(), 1); err != nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: errBusy.Error()})
		return
	}
	defer s.sem.Release(1)

	resp, err := s.deps.Analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleTranscribe(c *gin.Context) {
	if s.deps.Transcriber == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: errNoTranscriber.Error()})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		writeError(c, apperrors.InvalidInput("decode", errMissingAudio.Error()))
		return
	}
	if header.Size > s.opts.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: errUploadTooLarge.Error()})
		return
	}

	f, err := header.Open()
	if err != nil {
		writeError(c, apperrors.InvalidInput("decode", "unreadable audio upload"))
		return
	}
	audio, err := io.ReadAll(io.LimitReader(f, s.opts.MaxUploadBytes))
	f.Close()
	if err != nil {
		writeError(c, apperrors.InvalidInput("decode", "unreadable audio upload"))
		return
	}

	if err := s.sem.Acquire(c.Request.Context(), 1); err != nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: errBusy.Error()})
		return
	}
	defer s.sem.Release(1)

	lang := strings.TrimSpace(c.PostForm("language"))
	if lang != "" {
		lang = translation.NormalizeTag(lang)
	}

	text, err := s.deps.Transcriber.Transcribe(c.Request.Context(), audio, header.Filename, lang)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.TranscriptionResponse{Text: text})
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	deps := map[string]bool{}
	if s.deps.Health != nil {
		deps = s.deps.Health.Status()
		if !s.deps.Health.Healthy() {
			status = "degraded"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"dependencies": deps,
	})
}

func (s *Server) handleLabels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"labels": s.deps.Catalog.Labels()})
}

func (s *Server) handleStats(c *gin.Context) {
	if s.deps.Stats == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: errNoStats.Error()})
		return
	}
	counts, ok, err := s.deps.Stats.Counts(c.Request.Context())
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: errNoStats.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to read stats"})
		return
	}
	if counts == nil {
		counts = []models.LabelCount{}
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

func writeError(c *gin.Context, err error) {
	status, body := ErrorBody(err)
	c.JSON(status, body)
}

// ErrorBody maps a pipeline error to its status and a caller-safe message.
// Only invalid input echoes the underlying reason.
func ErrorBody(err error) (int, models.ErrorResponse) {
	kind := apperrors.KindOf(err)
	status := apperrors.HTTPStatus(kind)

	msg := "internal error"
	switch kind {
	case apperrors.KindInvalidInput:
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && appErr.Err != nil {
			msg = appErr.Err.Error()
		}
	case apperrors.KindTranslation:
		msg = "translation failed"
	case apperrors.KindTranscription:
		msg = "transcription failed"
	case apperrors.KindNormalization:
		msg = "audio could not be decoded"
	case apperrors.KindScoring:
		msg = "emotion scoring failed"
	}
	return status, models.ErrorResponse{Error: msg}
}
