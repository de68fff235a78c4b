package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newScrapeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape pass over the configured projects and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch := a.buildOrchestrator()
			if err := orch.Run(cmd.Context()); err != nil {
				return err
			}

			progress, _, err := orch.Progress()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(progress, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
