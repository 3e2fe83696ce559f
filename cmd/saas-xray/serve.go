package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/singura/saas-xray/internal/config"
	"github.com/singura/saas-xray/internal/engine"
	"github.com/singura/saas-xray/internal/httpapi"
	"github.com/singura/saas-xray/internal/metrics"
	"github.com/singura/saas-xray/internal/scopes"
	"github.com/singura/saas-xray/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis API and the Prometheus metrics endpoint.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.LoadOptionalDB()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lib, err := loadScopeLibrary(cfg)
	if err != nil {
		return err
	}

	var persistence httpapi.Persistence
	if cfg.DatabaseURL != "" {
		st, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()
		persistence = st
	} else {
		slog.Info("DATABASE_URL not set, serving without persistence")
	}

	analyzer := engine.New(lib)
	srv := httpapi.NewServer(cfg, analyzer, lib, persistence)

	_, metricsErrCh := metrics.StartServer(ctx, cfg.MetricsAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case err := <-metricsErrCh:
			if err != nil {
				return err
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}

// loadScopeLibrary returns the deployment catalog when one is configured and
// the embedded catalog otherwise.
func loadScopeLibrary(cfg config.Config) (*scopes.Library, error) {
	if cfg.CatalogPath != "" {
		return scopes.LoadFile(cfg.CatalogPath)
	}
	return scopes.Embedded()
}
