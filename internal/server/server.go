// Package server exposes the planning pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mkravets/brollplan/internal/domain/planner"
	"github.com/mkravets/brollplan/internal/ports"
	"github.com/mkravets/brollplan/internal/usecase"
)

// PlanRunner runs one planning flow end to end. usecase.Usecase satisfies it;
// tests substitute fakes.
type PlanRunner interface {
	Run(ctx context.Context, in usecase.Input) (usecase.Result, error)
}

type Deps struct {
	Runner  PlanRunner
	Fetcher ports.Fetcher
}

type Config struct {
	Addr string
	// CacheDir hosts per-request scratch space (downloads, audio, transcripts).
	CacheDir string
	// Planner provides the default thresholds; requests may override fields.
	Planner planner.Config
}

type Server struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	router *gin.Engine
}

func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{cfg: cfg, deps: deps, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/healthz", s.handleHealthz)
	router.POST("/api/v1/plan", s.handlePlan)

	s.router = router
	return s
}

// Router exposes the gin engine for tests and custom http.Server setups.
func (s *Server) Router() http.Handler { return s.router }

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("server listening", slog.String("addr", s.cfg.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		s.logger.Info("request",
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handlePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	brolls, err := req.brolls()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := req.plannerConfig(s.cfg.Planner)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID, _ := c.Get("request_id")
	scratch := filepath.Join(s.cfg.CacheDir, "server", requestID.(string))
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not allocate scratch space"})
		return
	}
	defer os.RemoveAll(scratch)

	localInput, err := s.deps.Fetcher.Fetch(c.Request.Context(), req.VideoSource, scratch)
	if err != nil {
		s.logger.Warn("fetch failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not fetch video source"})
		return
	}

	res, err := s.deps.Runner.Run(c.Request.Context(), usecase.Input{
		InputPath: localInput,
		BRolls:    brolls,
		Planner:   cfg,
		CacheDir:  scratch,
	})
	if err != nil {
		s.logger.Warn("planning failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, res.Plan)
}
