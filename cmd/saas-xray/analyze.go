package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/singura/saas-xray/internal/config"
	"github.com/singura/saas-xray/internal/engine"
	"github.com/singura/saas-xray/internal/store"
)

var (
	analyzeInputPath  string
	analyzeOutputPath string
	analyzeFromDB     bool
	analyzeWorkers    int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a one-off risk analysis over a batch of OAuth applications.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze()
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInputPath, "input", "", "JSON file with applications and their audit events")
	analyzeCmd.Flags().StringVar(&analyzeOutputPath, "output", "", "Write analysis results to this file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeFromDB, "from-db", false, "Analyze every application recorded in the database")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "Worker pool size, defaults to BATCH_WORKERS")
}

func runAnalyze() error {
	if analyzeInputPath == "" && !analyzeFromDB {
		return errors.New("either --input or --from-db is required")
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{RequireDatabaseURL: analyzeFromDB})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lib, err := loadScopeLibrary(cfg)
	if err != nil {
		return err
	}
	analyzer := engine.New(lib)

	var st *store.Store
	if cfg.DatabaseURL != "" {
		st, err = store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	inputs, err := collectAnalyzeInputs(ctx, cfg, st)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		slog.Info("no applications to analyze")
		return nil
	}

	workers := analyzeWorkers
	if workers < 1 {
		workers = cfg.BatchWorkers
	}

	results, batchErr := analyzer.AnalyzeBatch(ctx, inputs, workers)
	if batchErr != nil {
		if errors.Is(batchErr, context.Canceled) {
			return &exitError{code: 130, err: batchErr, silent: true}
		}
		return &exitError{code: 1, err: batchErr, silent: false}
	}

	failed := 0
	analyses := make([]engine.Analysis, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			failed++
			slog.Warn("analysis failed", "app_id", inputs[res.Index].App.AppID, "error", res.Err)
			continue
		}
		analyses = append(analyses, res.Value)
		if st != nil && cfg.PersistResults {
			if _, err := st.SaveAnalysis(ctx, res.Value); err != nil {
				slog.Error("persist analysis failed", "app_id", res.Value.App.AppID, "error", err)
			}
		}
	}
	slog.Info("batch analysis complete", "total", len(inputs), "succeeded", len(analyses), "failed", failed)

	if err := writeAnalyses(analyzeOutputPath, analyses); err != nil {
		return err
	}
	if failed > 0 {
		return &exitError{code: 1, err: fmt.Errorf("%d of %d applications failed analysis", failed, len(inputs)), silent: false}
	}
	return nil
}

func collectAnalyzeInputs(ctx context.Context, cfg config.Config, st *store.Store) ([]engine.AppInput, error) {
	if analyzeInputPath != "" {
		raw, err := os.ReadFile(analyzeInputPath)
		if err != nil {
			return nil, fmt.Errorf("read input %s: %w", analyzeInputPath, err)
		}
		var inputs []engine.AppInput
		if err := json.Unmarshal(raw, &inputs); err != nil {
			return nil, fmt.Errorf("parse input %s: %w", analyzeInputPath, err)
		}
		return inputs, nil
	}

	apps, err := st.ListApps(ctx)
	if err != nil {
		return nil, err
	}
	since := time.Now().UTC().AddDate(0, 0, -cfg.AuditWindowDays)
	inputs := make([]engine.AppInput, 0, len(apps))
	for _, app := range apps {
		events, err := st.EventsSince(ctx, app.AppID, since)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, engine.AppInput{App: app, Events: events})
	}
	return inputs, nil
}

func writeAnalyses(path string, analyses []engine.Analysis) error {
	out, err := json.MarshalIndent(analyses, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')
	if path == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
