package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"PANE_DECK_LISTEN", "PANE_DECK_CORS_ORIGINS", "PANE_DECK_MUX", "PANE_DECK_TMUX_SOCKET",
	"PANE_DECK_COMMAND_TIMEOUT", "PANE_DECK_STATE_FILE", "PANE_DECK_EVENT_LOG",
	"PANE_DECK_IDLE_THRESHOLD", "PANE_DECK_SHELL_COMMANDS", "PANE_DECK_PREVIEW_LINES",
	"PANE_DECK_PARALLEL", "PANE_DECK_LOG_LEVEL", "PANE_DECK_LOG_FORMAT",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

// inTempDir runs the test from an empty directory with an empty home so no
// real config file is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	origDir, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(origDir) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Listen != "127.0.0.1:7420" {
		t.Errorf("Listen: got %q, want %q", cfg.Listen, "127.0.0.1:7420")
	}
	if cfg.Mux != "tmux" {
		t.Errorf("Mux: got %q, want %q", cfg.Mux, "tmux")
	}
	if cfg.Parallel != 10 {
		t.Errorf("Parallel: got %d, want %d", cfg.Parallel, 10)
	}
	if cfg.PreviewLines != 40 {
		t.Errorf("PreviewLines: got %d, want %d", cfg.PreviewLines, 40)
	}
	if cfg.IdleThreshold != "10m" {
		t.Errorf("IdleThreshold: got %q, want %q", cfg.IdleThreshold, "10m")
	}
	if len(cfg.ShellCommands) != 6 {
		t.Errorf("ShellCommands: got %v", cfg.ShellCommands)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	inTempDir(t)
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile: got %q, want empty", cfg.ConfigFile)
	}
	if cfg.CommandTimeoutDuration != 5*time.Second {
		t.Errorf("CommandTimeoutDuration: got %v", cfg.CommandTimeoutDuration)
	}
	if cfg.IdleThresholdDuration != 10*time.Minute {
		t.Errorf("IdleThresholdDuration: got %v", cfg.IdleThresholdDuration)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := inTempDir(t)
	clearEnv(t)

	content := `listen: ":8080"
mux: mock
tmux_socket: agents
command_timeout: 2s
state_file: /var/lib/deck/state.json
idle_threshold: 15m
shell_commands: [zsh, bash]
preview_lines: 20
parallel: 4
log_format: json
cors_origins:
  - "http://localhost:5173"
rate_limit:
  rps: 5
`
	if err := os.WriteFile(filepath.Join(dir, ".pane-deck.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ConfigFile != ".pane-deck.yaml" {
		t.Errorf("ConfigFile: got %q", cfg.ConfigFile)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen: got %q", cfg.Listen)
	}
	if cfg.Mux != "mock" {
		t.Errorf("Mux: got %q", cfg.Mux)
	}
	if cfg.TmuxSocket != "agents" {
		t.Errorf("TmuxSocket: got %q", cfg.TmuxSocket)
	}
	if cfg.CommandTimeoutDuration != 2*time.Second {
		t.Errorf("CommandTimeoutDuration: got %v", cfg.CommandTimeoutDuration)
	}
	if cfg.StateFile != "/var/lib/deck/state.json" {
		t.Errorf("StateFile: got %q", cfg.StateFile)
	}
	if cfg.IdleThresholdDuration != 15*time.Minute {
		t.Errorf("IdleThresholdDuration: got %v", cfg.IdleThresholdDuration)
	}
	if len(cfg.ShellCommands) != 2 || cfg.ShellCommands[1] != "bash" {
		t.Errorf("ShellCommands: got %v", cfg.ShellCommands)
	}
	if cfg.PreviewLines != 20 || cfg.Parallel != 4 {
		t.Errorf("PreviewLines/Parallel: got %d/%d", cfg.PreviewLines, cfg.Parallel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: got %q", cfg.LogFormat)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("CORSOrigins: got %v", cfg.CORSOrigins)
	}
	if cfg.RateLimit.RPS != 5 || cfg.RateLimit.Burst != 40 {
		t.Errorf("RateLimit: got %+v, want rps from file and default burst", cfg.RateLimit)
	}
	if cfg.EventLog != "/tmp/openclaw-tmux/agent-team-events.log" {
		t.Errorf("EventLog: got %q, want default", cfg.EventLog)
	}
}

func TestLoadFromHomeConfig(t *testing.T) {
	inTempDir(t)
	clearEnv(t)

	home := os.Getenv("HOME")
	path := filepath.Join(home, ".config", "pane-deck", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("parallel: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile: got %q, want %q", cfg.ConfigFile, path)
	}
	if cfg.Parallel != 3 {
		t.Errorf("Parallel: got %d, want 3", cfg.Parallel)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := inTempDir(t)
	clearEnv(t)

	content := `mux: tmux
parallel: 4
log_level: warn
`
	if err := os.WriteFile(filepath.Join(dir, ".pane-deck.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PANE_DECK_MUX", "mock")
	t.Setenv("PANE_DECK_PARALLEL", "2")
	t.Setenv("PANE_DECK_SHELL_COMMANDS", "zsh, fish ,")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Mux != "mock" {
		t.Errorf("Mux: got %q, want %q (env should override file)", cfg.Mux, "mock")
	}
	if cfg.Parallel != 2 {
		t.Errorf("Parallel: got %d, want 2 (env should override file)", cfg.Parallel)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel: got %q, want file value", cfg.LogLevel)
	}
	if len(cfg.ShellCommands) != 2 || cfg.ShellCommands[1] != "fish" {
		t.Errorf("ShellCommands: got %v", cfg.ShellCommands)
	}
	if cfg.OTELEndpoint != "http://localhost:4318" {
		t.Errorf("OTELEndpoint: got %q", cfg.OTELEndpoint)
	}
}

func TestLoadFile(t *testing.T) {
	inTempDir(t)
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("listen: \"0.0.0.0:9000\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Errorf("Listen: got %q", cfg.Listen)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for a missing explicit config file")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "bad yaml", content: "listen: [unterminated\n"},
		{name: "bad timeout", content: "command_timeout: soon\n"},
		{name: "zero timeout", content: "command_timeout: 0s\n"},
		{name: "negative idle threshold", content: "idle_threshold: -1m\n"},
		{name: "unknown mux", content: "mux: screen\n"},
		{name: "unknown log format", content: "log_format: xml\n"},
		{name: "bad env int", env: map[string]string{"PANE_DECK_PARALLEL": "many"}},
		{name: "zero parallel from env", env: map[string]string{"PANE_DECK_PARALLEL": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := inTempDir(t)
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.content != "" {
				if err := os.WriteFile(filepath.Join(dir, ".pane-deck.yaml"), []byte(tt.content), 0644); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := Load(); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestParsePositiveDuration(t *testing.T) {
	tests := []struct {
		input    string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{"", 5 * time.Second, 5 * time.Second, false},
		{"250ms", 5 * time.Second, 250 * time.Millisecond, false},
		{"1m", 5 * time.Second, time.Minute, false},
		{"0", 5 * time.Second, 0, true},
		{"-3s", 5 * time.Second, 0, true},
		{"abc", 5 * time.Second, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parsePositiveDuration(tt.input, tt.fallback)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
