// Package daemon exposes the HTTP control surface for the scraper: it
// starts runs, reports status and statistics, and resets persisted state.
// It only ever reads scraping state through orchestrator snapshots.
package daemon

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quarrylabs/quarry/internal/config"
	"github.com/quarrylabs/quarry/internal/scraper"
)

// Daemon manages the HTTP server and its dependencies.
type Daemon struct {
	cfg       *config.Config
	orch      *scraper.Orchestrator
	server    *http.Server
	log       zerolog.Logger
	version   string
	startedAt time.Time

	// baseCtx parents background scrape runs so they end with the
	// process, not with the request that started them.
	baseCtx context.Context
}

// New creates a Daemon around an orchestrator.
func New(cfg *config.Config, orch *scraper.Orchestrator, log zerolog.Logger, version string) *Daemon {
	d := &Daemon{
		cfg:     cfg,
		orch:    orch,
		log:     log,
		version: version,
		baseCtx: context.Background(),
	}

	mux := d.registerRoutes()
	d.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      d.applyMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return d
}

// Handler returns the HTTP handler (used for testing with httptest).
func (d *Daemon) Handler() http.Handler {
	return d.server.Handler
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM or context
// cancellation. Interrupted scrape runs resume from the checkpoint on the
// next start.
func (d *Daemon) Run(ctx context.Context) error {
	d.startedAt = time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.baseCtx = ctx

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		d.log.Info().Str("addr", d.cfg.ListenAddr).Msg("quarry daemon listening")
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		d.log.Info().Msg("context cancelled, shutting down")
	case sig := <-sigCh:
		d.log.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	return d.Shutdown(context.Background())
}

// Shutdown gracefully stops the HTTP server.
func (d *Daemon) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return d.server.Shutdown(shutdownCtx)
}
