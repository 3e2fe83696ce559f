// Package engine wires the scoring pipeline together: composite risk score,
// risk factors, anomaly detection, and recommendations for one application,
// plus the bounded-parallel batch path.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/singura/saas-xray/internal/anomaly"
	"github.com/singura/saas-xray/internal/batch"
	"github.com/singura/saas-xray/internal/factors"
	"github.com/singura/saas-xray/internal/metrics"
	"github.com/singura/saas-xray/internal/recommend"
	"github.com/singura/saas-xray/internal/risk"
	"github.com/singura/saas-xray/internal/scopes"
)

// AppInput pairs one application with its trailing audit window.
type AppInput struct {
	App    risk.AppMetadata  `json:"app"`
	Events []risk.AuditEvent `json:"events,omitempty"`
}

// Analysis is the full pipeline output for one application.
type Analysis struct {
	App             risk.AppMetadata           `json:"app"`
	Score           risk.ScoreResult           `json:"score"`
	Factors         []factors.Factor           `json:"risk_factors"`
	Anomalies       []anomaly.Result           `json:"anomalies"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	AnalyzedAt      time.Time                  `json:"analyzed_at"`
}

// Analyzer runs the pipeline. It holds only the read-only scope library and
// a clock, so a single instance is safe for concurrent use.
type Analyzer struct {
	lib *scopes.Library
	now func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClock fixes the analyzer's clock. Used by tests and replayed runs.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New builds an Analyzer over the given scope library.
func New(lib *scopes.Library, opts ...Option) *Analyzer {
	a := &Analyzer{
		lib: lib,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores one application and derives factors, anomalies, and
// recommendations from the same inputs. The call is pure computation; it
// retains no reference to the event slice after returning.
func (a *Analyzer) Analyze(app risk.AppMetadata, events []risk.AuditEvent) (Analysis, error) {
	started := time.Now()
	now := a.now()

	score, err := risk.Score(app, events, a.lib, now)
	if err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues(app.Platform, "error").Inc()
		return Analysis{}, fmt.Errorf("engine: score %s: %w", app.AppID, err)
	}

	factorList := factors.Generate(factors.NewInput(app, events, score, a.lib, now))
	anomalies := anomaly.Detect(app, events, a.lib, now)
	recommendations := recommend.Build(app, score, factorList, a.lib, now)

	metrics.AnalysisRunsTotal.WithLabelValues(app.Platform, "ok").Inc()
	metrics.AnalysisSeverityTotal.WithLabelValues(app.Platform, score.Severity).Inc()
	metrics.AnalysisDuration.WithLabelValues(app.Platform).Observe(time.Since(started).Seconds())
	for _, result := range anomaly.Detected(anomalies) {
		metrics.AnomaliesDetectedTotal.WithLabelValues(result.Pattern, result.Severity).Inc()
	}

	slog.Debug("application analyzed",
		"app_id", app.AppID,
		"platform", app.Platform,
		"overall", score.Overall,
		"severity", score.Severity,
		"confidence", score.Confidence,
		"factors", len(factorList),
		"anomalies", len(anomaly.Detected(anomalies)),
	)

	return Analysis{
		App:             app,
		Score:           score,
		Factors:         factorList,
		Anomalies:       anomalies,
		Recommendations: recommendations,
		AnalyzedAt:      now,
	}, nil
}

// AnalyzeBatch runs Analyze over many applications with a bounded worker
// pool. Per-application failures are collected, not fatal; only context
// cancellation aborts the run.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, inputs []AppInput, workers int) ([]batch.Result[Analysis], error) {
	metrics.BatchSize.WithLabelValues("batch").Observe(float64(len(inputs)))

	results, err := batch.Map(ctx, inputs, workers, func(_ context.Context, in AppInput) (Analysis, error) {
		return a.Analyze(in.App, in.Events)
	}, nil)
	if err != nil {
		return results, fmt.Errorf("engine: batch: %w", err)
	}

	if failed := batch.Failed(results); len(failed) > 0 {
		metrics.BatchFailuresTotal.WithLabelValues("batch").Add(float64(len(failed)))
		slog.Warn("batch finished with failures", "total", len(inputs), "failed", len(failed))
	}
	return results, nil
}
