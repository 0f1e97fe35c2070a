package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var killCmd = &cobra.Command{
	Use:   "kill <session>",
	Short: "Terminate a session and forget its metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.close(cmd.Context())

		if err := d.tracker.Kill(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to kill session %q: %w", args[0], err)
		}
		printNotice("killed %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(killCmd)
}
