// Package httpapi exposes the analysis pipeline over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/singura/saas-xray/internal/config"
	"github.com/singura/saas-xray/internal/engine"
	"github.com/singura/saas-xray/internal/scopes"
)

const readHeaderTimeout = 5 * time.Second

// Server is the HTTP server wrapper.
type Server struct {
	h   *Handlers
	e   *echo.Echo
	srv *http.Server
}

// NewServer builds the API server. The persistence layer may be nil, in which
// case the analysis endpoints run stateless.
func NewServer(cfg config.Config, analyzer *engine.Analyzer, lib *scopes.Library, persistence Persistence) *Server {
	h := &Handlers{Cfg: cfg, Analyzer: analyzer, Lib: lib, Persistence: persistence}
	e := echo.New()
	e.Use(middleware.Recover())

	s := &Server{h: h, e: e}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.e.GET("/healthz", s.h.HandleHealthz)

	api := s.e.Group("/api/v1")
	api.POST("/analyze", s.h.HandleAnalyze)
	api.POST("/analyze/batch", s.h.HandleAnalyzeBatch)
	api.GET("/scopes", s.h.HandleScopes)
	api.GET("/scopes/lookup", s.h.HandleScopeLookup)
	api.GET("/apps/:id/analysis", s.h.HandleLatestAnalysis)
}

// Handler exposes the underlying router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start serves on the configured address until Shutdown.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.e,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
