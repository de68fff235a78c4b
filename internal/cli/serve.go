package cli

import (
	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry/internal/daemon"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scraper daemon with its HTTP control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch := a.buildOrchestrator()
			d := daemon.New(a.cfg, orch, a.log, a.version)
			return d.Run(cmd.Context())
		},
	}
}
