package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-deck/internal/tracker"
)

var (
	flagCwd          string
	flagTopic        string
	flagSystemPrompt string
)

var createCmd = &cobra.Command{
	Use:   "new <session> <command>...",
	Short: "Start an agent in a new session",
	Long: `Start a detached tmux session led by your shell and run the command in it,
e.g. "pane-deck new --cwd ~/repos/shop shop claude --continue". Flags go
before the session name; everything after it is the command.

The shell outlives the command so the pane stays inspectable. The session's
agent, repo and topic are recorded in the metadata file.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.close(cmd.Context())

		name, err := d.tracker.Create(cmd.Context(), tracker.CreateRequest{
			Name:         args[0],
			Command:      strings.Join(args[1:], " "),
			Cwd:          flagCwd,
			Topic:        flagTopic,
			SystemPrompt: flagSystemPrompt,
		})
		if err != nil {
			return fmt.Errorf("failed to create session %q: %w", args[0], err)
		}
		fmt.Println(name)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&flagCwd, "cwd", "", "working directory (default: home)")
	createCmd.Flags().StringVar(&flagTopic, "topic", "", "what the session is working on")
	createCmd.Flags().StringVar(&flagSystemPrompt, "system-prompt", "", "system prompt recorded with the session")
	// Everything after the session name belongs to the agent command.
	createCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(createCmd)
}
