// Package cli wires the quarry commands.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry/internal/checkpoint"
	"github.com/quarrylabs/quarry/internal/config"
	"github.com/quarrylabs/quarry/internal/jira"
	"github.com/quarrylabs/quarry/internal/logging"
	"github.com/quarrylabs/quarry/internal/scraper"
)

// app carries the state shared across commands after flag parsing.
type app struct {
	version string

	cfgPath  string
	logLevel string
	logFile  string

	cfg       *config.Config
	log       zerolog.Logger
	logCloser func()
}

// NewRootCmd builds the quarry root command.
func NewRootCmd(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:   "quarry",
		Short: "Incrementally harvest Jira issues into a training dataset",
		Long: `Quarry scrapes paginated issue data from a Jira REST API, normalizes
each issue into a flat training-ready record, and appends it to a JSONL
output stream. Progress is checkpointed per project so an interrupted
run resumes without losing completed work.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = a.logLevel
			}
			if cmd.Flags().Changed("log-file") {
				cfg.LogFile = a.logFile
			}
			a.cfg = cfg

			logger, closer, err := logging.New(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return fmt.Errorf("setup logger: %w", err)
			}
			a.log = logger
			a.logCloser = closer
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logCloser != nil {
				a.logCloser()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "quarry.toml", "path to config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "path to log file (defaults to stderr)")

	root.AddCommand(
		newServeCmd(a),
		newScrapeCmd(a),
		newStatsCmd(a),
		newResetCmd(a),
		newVersionCmd(a),
	)

	return root
}

// buildOrchestrator assembles the scrape pipeline from configuration.
func (a *app) buildOrchestrator() *scraper.Orchestrator {
	client := jira.NewClient(a.cfg.BaseURL,
		jira.WithTimeout(a.cfg.RequestTimeout.Std()),
		jira.WithRequestRate(a.cfg.RequestRate),
		jira.WithAuth(jira.BasicAuth{Username: a.cfg.Username, Token: a.cfg.APIToken}),
	)
	fetcher := jira.NewFetcher(client, a.log)
	store := checkpoint.NewStore(a.cfg.CheckpointPath)

	return scraper.New(scraper.Config{
		Projects:   a.cfg.Projects,
		PageSize:   a.cfg.PageSize,
		PageDelay:  a.cfg.PageDelay.Std(),
		OutputPath: a.cfg.OutputPath,
	}, fetcher, store, a.log)
}
