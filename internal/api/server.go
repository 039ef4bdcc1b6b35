package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/user/capture-service/internal/artifact"
	"github.com/user/capture-service/internal/config"
	"github.com/user/capture-service/internal/domain"
	"github.com/user/capture-service/internal/monitoring"
)

// Capturer runs one capture to completion.
type Capturer interface {
	Capture(ctx context.Context, req domain.CaptureRequest) (domain.CaptureResult, error)
}

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	capturer   Capturer
	layout     artifact.Layout
	redis      Pinger // nil when the in-process lock is used
	metrics    *monitoring.Metrics
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, c Capturer, layout artifact.Layout, redis Pinger, m *monitoring.Metrics, g prometheus.Gatherer, l *zap.Logger) *Server {
	s := &Server{
		config:   cfg,
		capturer: c,
		layout:   layout,
		redis:    redis,
		metrics:  m,
		gatherer: g,
		logger:   l,
	}
	s.router = s.setupRouter()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:     s.router,
		ReadTimeout: 10 * time.Second,
		// captures block for up to the capture deadline
		WriteTimeout: s.requestTimeout() + 5*time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestTimeout() time.Duration {
	return s.config.CaptureTimeout() + 10*time.Second
}
