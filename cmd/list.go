package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"list", "ls"},
	Short:   "List agent sessions",
	Long: `List every live tmux session merged with its metadata.

Status is the operator's override when one is recorded, otherwise it is
inferred from attached clients, the foreground program and the age of the
last activity. Use --json for the same document the HTTP API serves.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.close(cmd.Context())

		sessions, err := d.tracker.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		if flagJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"sessions": sessions})
		}
		if len(sessions) == 0 {
			printNotice("no sessions")
			return nil
		}
		fmt.Println(renderSessions(sessions))
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(listCmd)
}
