// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/spacesedan/emosupport/internal/emotion"
	"github.com/spacesedan/emosupport/internal/models"
)

type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error)
}

type StatsSource interface {
	Counts(ctx context.Context) ([]models.LabelCount, bool, error)
}

type HealthSource interface {
	Status() map[string]bool
	Healthy() bool
}

// Deps are the capabilities served. Only Analyzer and Catalog are required.
type Deps struct {
	Analyzer    Analyzer
	Transcriber Transcriber
	Stats       StatsSource
	Health      HealthSource
	Catalog     *emotion.Catalog
}

type Options struct {
	// MaxConcurrent bounds in-flight analyze and transcribe requests.
	MaxConcurrent  int64
	CORSOrigins    []string
	MaxUploadBytes int64
}

type Server struct {
	router *gin.Engine
	deps   Deps
	opts   Options
	sem    *semaphore.Weighted
}

func New(deps Deps, opts Options) *Server {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 25 << 20
	}
	if deps.Catalog == nil {
		deps.Catalog = emotion.DefaultCatalog()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))
	router.MaxMultipartMemory = opts.MaxUploadBytes

	s := &Server{
		router: router,
		deps:   deps,
		opts:   opts,
		sem:    semaphore.NewWeighted(opts.MaxConcurrent),
	}
	s.setupRoutes()
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) setupRoutes() {
	// Root-level routes are kept for older clients.
	s.router.POST("/analyze", s.handleAnalyze)
	s.router.POST("/transcribe", s.handleTranscribe)

	api := s.router.Group("/api")
	{
		api.POST("/analyze", s.handleAnalyze)
		api.POST("/transcribe", s.handleTranscribe)
		api.GET("/healthz", s.handleHealth)
		api.GET("/labels", s.handleLabels)
		api.GET("/stats", s.handleStats)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("[Server] Listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("[Server] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "[Server] Request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)))
	}
}
