package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quarrylabs/quarry/internal/checkpoint"
	"github.com/quarrylabs/quarry/internal/dataset"
	"github.com/quarrylabs/quarry/internal/jira"
)

// ErrRunActive indicates a scrape run is already in progress. Runs are
// single-flight: a second start is rejected, never queued.
var ErrRunActive = errors.New("scraper: run already active")

// Config holds the static inputs to a run. None of them are mutable
// mid-run.
type Config struct {
	Projects   []string
	PageSize   int
	PageDelay  time.Duration
	OutputPath string
}

// Orchestrator sequences project scrapers and owns run-level status. All
// mutable run state is confined here; the control surface only reads
// snapshots.
type Orchestrator struct {
	cfg         Config
	fetcher     *jira.Fetcher
	checkpoints *checkpoint.Store
	log         zerolog.Logger
	sleep       jira.SleepFunc

	mu     sync.Mutex
	status Status
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSleep replaces the page-delay sleep function. Useful for testing.
func WithSleep(sleep jira.SleepFunc) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// New creates an Orchestrator.
func New(cfg Config, fetcher *jira.Fetcher, checkpoints *checkpoint.Store, log zerolog.Logger, opts ...Option) *Orchestrator {
	if cfg.PageDelay == 0 {
		cfg.PageDelay = DefaultPageDelay
	}
	o := &Orchestrator{
		cfg:         cfg,
		fetcher:     fetcher,
		checkpoints: checkpoints,
		log:         log,
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
		status: Status{ProjectsCompleted: []string{}},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Projects returns the configured project identifiers in declared order.
func (o *Orchestrator) Projects() []string {
	return append([]string(nil), o.cfg.Projects...)
}

// Start begins a background run over the configured projects. Returns
// ErrRunActive if a run is already in flight; no work is performed and no
// state is touched in that case.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.begin(); err != nil {
		return err
	}
	go func() {
		if err := o.run(ctx); err != nil {
			o.log.Error().Err(err).Msg("scrape run aborted")
		}
	}()
	return nil
}

// Run executes a run synchronously. Same single-flight guarantee as
// Start.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.begin(); err != nil {
		return err
	}
	return o.run(ctx)
}

// begin performs the guarded Idle -> Running transition.
func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status.IsRunning {
		return ErrRunActive
	}

	now := time.Now()
	o.status = Status{
		IsRunning:         true,
		StartTime:         &now,
		ProjectsCompleted: []string{},
	}
	return nil
}

// run drives all project scrapers in declared order. Per-request failures
// were already absorbed further down; the only errors that surface here
// are persistence failures and cancellation, both of which abort the run
// and leave the checkpoint store in its last-valid state.
func (o *Orchestrator) run(ctx context.Context) error {
	defer o.finish()

	if err := o.reconcileCheckpoint(); err != nil {
		return err
	}

	writer, err := dataset.OpenWriter(o.cfg.OutputPath)
	if err != nil {
		return err
	}
	defer writer.Close()

	for _, project := range o.cfg.Projects {
		o.setCurrentProject(project)

		ps := &projectScraper{
			project:     project,
			fetcher:     o.fetcher,
			checkpoints: o.checkpoints,
			writer:      writer,
			pageSize:    o.cfg.PageSize,
			pageDelay:   o.cfg.PageDelay,
			sleep:       o.sleep,
			log:         o.log,
			onScraped:   o.addScraped,
		}
		if err := ps.run(ctx); err != nil {
			return err
		}

		o.markCompleted(project)
	}

	o.log.Info().Msg("scrape run completed")
	return nil
}

// reconcileCheckpoint discards a checkpoint whose dataset is gone. A
// checkpoint marks projects completed, so without this check a deleted
// output file would never be re-scraped.
func (o *Orchestrator) reconcileCheckpoint() error {
	if _, err := os.Stat(o.cfg.OutputPath); err == nil || !os.IsNotExist(err) {
		return nil
	}

	cp, err := o.checkpoints.Load()
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if len(cp) == 0 {
		return nil
	}

	o.log.Warn().
		Str("output", o.cfg.OutputPath).
		Msg("output file missing, discarding checkpoint")
	return o.checkpoints.Reset()
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.IsRunning = false
	o.status.StartTime = nil
	o.status.CurrentProject = nil
}

func (o *Orchestrator) setCurrentProject(project string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.CurrentProject = &project
}

func (o *Orchestrator) addScraped(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.ScrapedThisRun += n
}

func (o *Orchestrator) markCompleted(project string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, p := range o.status.ProjectsCompleted {
		if p == project {
			return
		}
	}
	o.status.ProjectsCompleted = append(o.status.ProjectsCompleted, project)
}

// Status returns a snapshot of the transient run state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status.clone()
}

// Progress merges the durable checkpoint with the completed set into the
// per-project view served by the control surface.
func (o *Orchestrator) Progress() (map[string]ProjectProgress, checkpoint.Checkpoint, error) {
	cp, err := o.checkpoints.Load()
	if err != nil {
		return nil, nil, err
	}

	status := o.Status()
	completed := make(map[string]bool, len(status.ProjectsCompleted))
	for _, p := range status.ProjectsCompleted {
		completed[p] = true
	}

	progress := make(map[string]ProjectProgress, len(o.cfg.Projects))
	for _, project := range o.cfg.Projects {
		entry := cp[project]
		progress[project] = ProjectProgress{
			Scraped:   entry.Offset,
			Completed: entry.Completed || completed[project],
		}
	}
	return progress, cp, nil
}

// Reset clears the checkpoint and deletes the output stream. Refused
// while a run is active. Returns the paths that were actually removed.
// The lock is held across the deletions so a Start arriving mid-reset
// waits until the files are gone.
func (o *Orchestrator) Reset() ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status.IsRunning {
		return nil, ErrRunActive
	}
	o.status = Status{ProjectsCompleted: []string{}}

	var removed []string
	if _, err := os.Stat(o.checkpoints.Path()); err == nil {
		removed = append(removed, o.checkpoints.Path())
	}
	if err := o.checkpoints.Reset(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(o.cfg.OutputPath); err == nil {
		removed = append(removed, o.cfg.OutputPath)
	}
	if err := dataset.RemoveOutput(o.cfg.OutputPath); err != nil {
		return removed, err
	}
	return removed, nil
}
