package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the checkpoint and delete the scraped dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch := a.buildOrchestrator()
			removed, err := orch.Reset()
			if err != nil {
				return err
			}

			if len(removed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to reset")
				return nil
			}
			for _, path := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", path)
			}
			return nil
		},
	}
}
