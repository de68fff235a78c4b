package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry/internal/dataset"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print statistics for the scraped dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := dataset.CollectStats(a.cfg.OutputPath)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("no data found at %s, run a scrape first", a.cfg.OutputPath)
				}
				return err
			}

			out, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
