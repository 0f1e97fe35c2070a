package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagEnter bool

var sendKeysCmd = &cobra.Command{
	Use:   "send-keys <pane-id> <text>...",
	Short: "Type text into a pane",
	Long: `Type text into a pane. Arguments are joined with spaces and typed
literally; --enter submits the line afterwards.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		paneID := args[0]
		text := strings.Join(args[1:], " ")

		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.close(cmd.Context())

		if err := d.tracker.SendKeys(cmd.Context(), paneID, text); err != nil {
			return fmt.Errorf("failed to send keys to %q: %w", paneID, err)
		}
		if flagEnter {
			if err := d.tracker.SendKeys(cmd.Context(), paneID, "\r"); err != nil {
				return fmt.Errorf("failed to send Enter to %q: %w", paneID, err)
			}
		}
		return nil
	},
}

func init() {
	sendKeysCmd.Flags().BoolVar(&flagEnter, "enter", false, "press Enter after the text")
	rootCmd.AddCommand(sendKeysCmd)
}
