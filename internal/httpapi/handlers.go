package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/singura/saas-xray/internal/batch"
	"github.com/singura/saas-xray/internal/config"
	"github.com/singura/saas-xray/internal/engine"
	"github.com/singura/saas-xray/internal/metrics"
	"github.com/singura/saas-xray/internal/scopes"
	"github.com/singura/saas-xray/internal/store"
)

// Persistence is the slice of the store the API needs. Nil disables
// persistence; analyses are still computed and returned.
type Persistence interface {
	SaveAnalysis(ctx context.Context, analysis engine.Analysis) (uuid.UUID, error)
	LatestAnalysis(ctx context.Context, appID string) (engine.Analysis, error)
}

// Handlers groups the API handlers and shared dependencies.
type Handlers struct {
	Cfg         config.Config
	Analyzer    *engine.Analyzer
	Lib         *scopes.Library
	Persistence Persistence
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleHealthz reports liveness.
func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeResponse struct {
	RunID    string          `json:"run_id,omitempty"`
	Analysis engine.Analysis `json:"analysis"`
}

// HandleAnalyze scores a single application from the request body and
// persists the snapshot when a store is configured.
func (h *Handlers) HandleAnalyze(c *echo.Context) error {
	var in engine.AppInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}

	analysis, err := h.Analyzer.Analyze(in.App, in.Events)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	}

	resp := analyzeResponse{Analysis: analysis}
	if h.Persistence != nil && h.Cfg.PersistResults {
		runID, err := h.Persistence.SaveAnalysis(c.Request().Context(), analysis)
		if err != nil {
			slog.Error("persist analysis failed", "app_id", in.App.AppID, "error", err)
		} else {
			resp.RunID = runID.String()
		}
	}
	return c.JSON(http.StatusOK, resp)
}

type analyzeBatchRequest struct {
	Apps    []engine.AppInput `json:"apps"`
	Workers int               `json:"workers,omitempty"`
}

type batchItemResponse struct {
	AppID    string           `json:"app_id"`
	Error    string           `json:"error,omitempty"`
	Analysis *engine.Analysis `json:"analysis,omitempty"`
}

// HandleAnalyzeBatch scores many applications with the bounded worker pool.
// Per-application failures are reported inline, not as a request failure.
func (h *Handlers) HandleAnalyzeBatch(c *echo.Context) error {
	var req analyzeBatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if len(req.Apps) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "apps is required"})
	}

	workers := req.Workers
	if workers < 1 {
		workers = h.Cfg.BatchWorkers
	}
	results, err := h.Analyzer.AnalyzeBatch(c.Request().Context(), req.Apps, workers)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}

	items := make([]batchItemResponse, 0, len(results))
	for _, res := range results {
		item := batchItemResponse{AppID: req.Apps[res.Index].App.AppID}
		if res.Err != nil {
			item.Error = res.Err.Error()
		} else {
			analysis := res.Value
			item.Analysis = &analysis
			if h.Persistence != nil && h.Cfg.PersistResults {
				if _, err := h.Persistence.SaveAnalysis(c.Request().Context(), analysis); err != nil {
					slog.Error("persist analysis failed", "app_id", item.AppID, "error", err)
				}
			}
		}
		items = append(items, item)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"total":   len(items),
		"failed":  len(batch.Failed(results)),
		"results": items,
	})
}

// HandleScopes lists the full scope risk catalog.
func (h *Handlers) HandleScopes(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"count":   h.Lib.Len(),
		"entries": h.Lib.Entries(),
	})
}

// HandleScopeLookup resolves one scope URL against the catalog.
func (h *Handlers) HandleScopeLookup(c *echo.Context) error {
	scope := strings.TrimSpace(c.QueryParam("scope"))
	if scope == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "scope query parameter is required"})
	}

	entry, ok := h.Lib.Lookup(scope)
	if !ok {
		metrics.ScopeLookupsTotal.WithLabelValues("miss").Inc()
		return c.JSON(http.StatusNotFound, errorResponse{Error: "scope not in catalog; treated as unknown risk"})
	}
	metrics.ScopeLookupsTotal.WithLabelValues("hit").Inc()
	return c.JSON(http.StatusOK, entry)
}

// HandleLatestAnalysis returns the newest persisted snapshot for an app.
func (h *Handlers) HandleLatestAnalysis(c *echo.Context) error {
	if h.Persistence == nil {
		return c.JSON(http.StatusNotImplemented, errorResponse{Error: "persistence is not configured"})
	}
	appID := c.Param("id")

	analysis, err := h.Persistence.LatestAnalysis(c.Request().Context(), appID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "no analysis recorded for this app"})
	}
	if err != nil {
		slog.Error("load analysis failed", "app_id", appID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
	return c.JSON(http.StatusOK, analysis)
}
