// Package config loads pane-deck configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Command-line flags (applied by cmd)
//  2. Environment variables (PANE_DECK_*)
//  3. Config file
//  4. Built-in defaults
//
// Config file search order:
//  1. .pane-deck.yaml in current directory
//  2. ~/.config/pane-deck/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all pane-deck configuration.
type Config struct {
	// HTTP server
	Listen      string    `yaml:"listen"`
	CORSOrigins []string  `yaml:"cors_origins"`
	RateLimit   RateLimit `yaml:"rate_limit"` // applies to mutating routes

	// Multiplexer
	Mux            string `yaml:"mux"`             // "tmux" (default) or "mock"
	TmuxSocket     string `yaml:"tmux_socket"`     // tmux -L socket name; empty uses the default server
	CommandTimeout string `yaml:"command_timeout"` // Go duration string, e.g. "5s"

	// Storage
	StateFile string `yaml:"state_file"` // session metadata document
	EventLog  string `yaml:"event_log"`  // agent-team event log

	// Status inference and previews
	IdleThreshold string   `yaml:"idle_threshold"` // Go duration string, e.g. "10m"
	ShellCommands []string `yaml:"shell_commands"`
	PreviewLines  int      `yaml:"preview_lines"`
	Parallel      int      `yaml:"parallel"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "text" or "json"

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs

	// Parsed durations (not from YAML, set after loading)
	CommandTimeoutDuration time.Duration `yaml:"-"`
	IdleThresholdDuration  time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// RateLimit is a token bucket per client address.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Listen:         "127.0.0.1:7420",
		CORSOrigins:    []string{"*"},
		RateLimit:      RateLimit{RPS: 20, Burst: 40},
		Mux:            "tmux",
		CommandTimeout: "5s",
		EventLog:       "/tmp/openclaw-tmux/agent-team-events.log",
		IdleThreshold:  "10m",
		ShellCommands:  []string{"zsh", "bash", "sh", "fish", "nu", "tmux"},
		PreviewLines:   40,
		Parallel:       10,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads configuration from the first config file found and the
// environment. Environment variables always override file values.
func Load() (*Config, error) {
	path, data, err := findConfigFile()
	if err != nil {
		return finish(Defaults(), "", nil)
	}
	return finish(Defaults(), path, data)
}

// LoadFile is Load with an explicit config file, which must exist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return finish(Defaults(), path, data)
}

func finish(cfg *Config, path string, data []byte) (*Config, error) {
	if data != nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve parses durations and validates enumerated values. Call it again
// after changing fields (e.g. from flags).
func (cfg *Config) Resolve() error {
	var err error
	cfg.CommandTimeoutDuration, err = parsePositiveDuration(cfg.CommandTimeout, 5*time.Second)
	if err != nil {
		return fmt.Errorf("invalid command timeout %q: %w", cfg.CommandTimeout, err)
	}
	cfg.IdleThresholdDuration, err = parsePositiveDuration(cfg.IdleThreshold, 10*time.Minute)
	if err != nil {
		return fmt.Errorf("invalid idle threshold %q: %w", cfg.IdleThreshold, err)
	}

	switch cfg.Mux {
	case "", "tmux", "mock":
	default:
		return fmt.Errorf("invalid mux %q (supported: tmux, mock)", cfg.Mux)
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (supported: text, json)", cfg.LogFormat)
	}
	if cfg.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", cfg.Parallel)
	}
	if cfg.PreviewLines < 1 {
		return fmt.Errorf("preview_lines must be at least 1, got %d", cfg.PreviewLines)
	}
	return nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".pane-deck.yaml"); err == nil {
		return ".pane-deck.yaml", data, nil
	}

	// 2. ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "pane-deck", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Listen != "" {
		cfg.Listen = file.Listen
	}
	if file.CORSOrigins != nil {
		cfg.CORSOrigins = file.CORSOrigins
	}
	if file.RateLimit.RPS > 0 {
		cfg.RateLimit.RPS = file.RateLimit.RPS
	}
	if file.RateLimit.Burst > 0 {
		cfg.RateLimit.Burst = file.RateLimit.Burst
	}
	if file.Mux != "" {
		cfg.Mux = file.Mux
	}
	if file.TmuxSocket != "" {
		cfg.TmuxSocket = file.TmuxSocket
	}
	if file.CommandTimeout != "" {
		cfg.CommandTimeout = file.CommandTimeout
	}
	if file.StateFile != "" {
		cfg.StateFile = file.StateFile
	}
	if file.EventLog != "" {
		cfg.EventLog = file.EventLog
	}
	if file.IdleThreshold != "" {
		cfg.IdleThreshold = file.IdleThreshold
	}
	if len(file.ShellCommands) > 0 {
		cfg.ShellCommands = file.ShellCommands
	}
	if file.PreviewLines > 0 {
		cfg.PreviewLines = file.PreviewLines
	}
	if file.Parallel > 0 {
		cfg.Parallel = file.Parallel
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.LogFormat != "" {
		cfg.LogFormat = file.LogFormat
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) error {
	if v := os.Getenv("PANE_DECK_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("PANE_DECK_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("PANE_DECK_MUX"); v != "" {
		cfg.Mux = v
	}
	if v := os.Getenv("PANE_DECK_TMUX_SOCKET"); v != "" {
		cfg.TmuxSocket = v
	}
	if v := os.Getenv("PANE_DECK_COMMAND_TIMEOUT"); v != "" {
		cfg.CommandTimeout = v
	}
	if v := os.Getenv("PANE_DECK_STATE_FILE"); v != "" {
		cfg.StateFile = v
	}
	if v := os.Getenv("PANE_DECK_EVENT_LOG"); v != "" {
		cfg.EventLog = v
	}
	if v := os.Getenv("PANE_DECK_IDLE_THRESHOLD"); v != "" {
		cfg.IdleThreshold = v
	}
	if v := os.Getenv("PANE_DECK_SHELL_COMMANDS"); v != "" {
		cfg.ShellCommands = splitList(v)
	}
	if v := os.Getenv("PANE_DECK_PREVIEW_LINES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PANE_DECK_PREVIEW_LINES %q: %w", v, err)
		}
		cfg.PreviewLines = n
	}
	if v := os.Getenv("PANE_DECK_PARALLEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PANE_DECK_PARALLEL %q: %w", v, err)
		}
		cfg.Parallel = n
	}
	if v := os.Getenv("PANE_DECK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PANE_DECK_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
	return nil
}

// parsePositiveDuration parses a duration string. Empty string returns the
// fallback; zero and negative durations are rejected because every tmux call
// must stay bounded.
func parsePositiveDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
