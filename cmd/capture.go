package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-deck/internal/preview"
)

var (
	flagLines int
	flagPlain bool
)

var captureCmd = &cobra.Command{
	Use:   "capture <pane-id>",
	Short: "Capture the content of a pane",
	Long: `Capture the back-scroll of a pane (e.g., "%3") and print it to stdout.

Control sequences are preserved so colors render in the terminal; use
--plain to strip them. A pane that no longer exists prints nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paneID := args[0]

		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.close(cmd.Context())

		capture, err := d.tracker.Capture(cmd.Context(), paneID, flagLines)
		if err != nil {
			return fmt.Errorf("failed to capture pane %q: %w", paneID, err)
		}

		if flagJSON {
			return json.NewEncoder(os.Stdout).Encode(capture)
		}
		content := capture.Content
		if flagPlain {
			content = preview.StripANSI(content)
		}
		fmt.Fprint(os.Stdout, content)
		return nil
	},
}

func init() {
	captureCmd.Flags().IntVar(&flagLines, "lines", 200, "lines of back-scroll to capture (0 for all)")
	captureCmd.Flags().BoolVar(&flagPlain, "plain", false, "strip control sequences")
	captureCmd.Flags().BoolVar(&flagJSON, "json", false, "print content and cursor as JSON")
	rootCmd.AddCommand(captureCmd)
}
