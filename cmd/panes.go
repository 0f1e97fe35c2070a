package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var panesCmd = &cobra.Command{
	Use:   "panes <session>",
	Short: "List the panes of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.close(cmd.Context())

		panes, err := d.tracker.Panes(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to list panes of %q: %w", args[0], err)
		}

		if flagJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"panes": panes})
		}
		if len(panes) == 0 {
			printNotice("no panes")
			return nil
		}
		fmt.Println(renderPanes(panes))
		return nil
	},
}

func init() {
	panesCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(panesCmd)
}
