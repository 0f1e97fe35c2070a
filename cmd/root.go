package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timvw/pane-deck/internal/config"
	"github.com/timvw/pane-deck/internal/events"
	"github.com/timvw/pane-deck/internal/logging"
	"github.com/timvw/pane-deck/internal/metadata"
	"github.com/timvw/pane-deck/internal/mux"
	telem "github.com/timvw/pane-deck/internal/otel"
	"github.com/timvw/pane-deck/internal/tracker"
)

// Version is injected at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

var (
	// Global flags.
	flagConfig    string
	flagMux       string
	flagSocket    string
	flagStateFile string
	flagEventLog  string
	flagLogLevel  string
	flagLogFormat string
	flagJSON      bool
)

var rootCmd = &cobra.Command{
	Use:   "pane-deck",
	Short: "Live tracker for coding-agent sessions hosted in tmux",
	Long: `pane-deck tracks coding-agent sessions (Claude, Codex) running in tmux.

Every call re-reads tmux and merges what it reports with the operator's
session metadata (agent, repo, topic) into one view per session, including
an inferred running/idle status and the last line of the active pane.

Use "pane-deck serve" to expose the view to the web dashboard, or the
other commands to inspect and drive sessions from a terminal.

Configuration is loaded from .pane-deck.yaml, ~/.config/pane-deck/config.yaml
and PANE_DECK_* environment variables. Flags override both.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .pane-deck.yaml, then ~/.config/pane-deck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagMux, "mux", "", "multiplexer backend: tmux, mock (default from config: tmux)")
	rootCmd.PersistentFlags().StringVar(&flagSocket, "socket", "", "tmux socket name (tmux -L)")
	rootCmd.PersistentFlags().StringVar(&flagStateFile, "state-file", "", "session metadata file (default: ~/.openclaw/workspace/state/tmux-sessions.json)")
	rootCmd.PersistentFlags().StringVar(&flagEventLog, "event-log", "", "agent-team event log")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text, json")
}

// loadConfig resolves configuration: defaults -> config file -> env -> flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("mux") {
		cfg.Mux = flagMux
	}
	if flags.Changed("socket") {
		cfg.TmuxSocket = flagSocket
	}
	if flags.Changed("state-file") {
		cfg.StateFile = flagStateFile
	}
	if flags.Changed("event-log") {
		cfg.EventLog = flagEventLog
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = flagLogFormat
	}
	if err := cfg.Resolve(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// deck is everything a command needs, built once from configuration.
type deck struct {
	cfg     *config.Config
	logger  *logrus.Logger
	tel     *telem.Telemetry
	tracker *tracker.Tracker
	events  events.Source
}

// setup loads configuration and wires telemetry, the multiplexer, the
// metadata store, and the event feed.
func setup(cmd *cobra.Command) (*deck, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.ConfigFile != "" {
		logger.WithField("path", cfg.ConfigFile).Debug("config loaded")
	}

	// Wire build version into OTEL service metadata
	telem.Version = Version

	// Initialize OTEL (no-op if no endpoint configured)
	tel, err := telem.Init(cmd.Context(), telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		logger.WithError(err).Warn("otel init failed")
	} else if tel.Exporting() {
		logger.WithField("endpoint", cfg.OTELEndpoint).Debug("exporting telemetry")
	}
	var metrics *telem.Metrics
	if tel != nil {
		metrics = tel.Metrics
	}

	m, err := mux.FromName(cfg.Mux, mux.Options{
		Socket:  cfg.TmuxSocket,
		Timeout: cfg.CommandTimeoutDuration,
		Metrics: metrics,
	})
	if err != nil {
		return nil, err
	}

	var (
		store metadata.Store
		feed  events.Source
	)
	if cfg.Mux == "mock" {
		store = metadata.NewMemoryStore(metadata.DemoState())
		feed = events.NewStore(events.DemoEvents()...)
	} else {
		store = metadata.NewFileStore(cfg.StateFile, logging.Component(logger, "metadata"))
		feed = &events.LogSource{Path: cfg.EventLog, Logger: logging.Component(logger, "events")}
	}

	return &deck{
		cfg:    cfg,
		logger: logger,
		tel:    tel,
		tracker: &tracker.Tracker{
			Mux:   m,
			Store: store,
			Policy: tracker.Policy{
				IdleThreshold: cfg.IdleThresholdDuration,
				ShellCommands: cfg.ShellCommands,
			},
			Parallel:     cfg.Parallel,
			PreviewLines: cfg.PreviewLines,
			Logger:       logging.Component(logger, "tracker"),
			Metrics:      metrics,
		},
		events: feed,
	}, nil
}

// close flushes telemetry.
func (d *deck) close(ctx context.Context) {
	if d.tel != nil {
		if err := d.tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			d.logger.WithError(err).Warn("otel shutdown failed")
		}
	}
}
