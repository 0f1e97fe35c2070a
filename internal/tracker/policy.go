package tracker

import (
	"strings"
	"time"

	"github.com/timvw/pane-deck/internal/model"
)

// DefaultIdleThreshold is how long a session at a bare shell may go without
// activity before it is considered idle.
const DefaultIdleThreshold = 10 * time.Minute

// DefaultShellCommands are the foreground programs that mean "nothing is
// running": common shells and tmux itself.
var DefaultShellCommands = []string{"zsh", "bash", "sh", "fish", "nu", "tmux"}

// Policy holds the status inference heuristics.
type Policy struct {
	IdleThreshold time.Duration
	ShellCommands []string
}

// DefaultPolicy returns the default heuristics.
func DefaultPolicy() Policy {
	return Policy{
		IdleThreshold: DefaultIdleThreshold,
		ShellCommands: append([]string(nil), DefaultShellCommands...),
	}
}

// IsBusy reports whether command is a foreground program other than a bare
// shell. An empty command (no pane) is not busy.
func (p Policy) IsBusy(command string) bool {
	if command == "" {
		return false
	}
	for _, shell := range p.shells() {
		if command == shell {
			return false
		}
	}
	return true
}

// InferStatus guesses whether a session is running or idle from tmux state
// alone. command is the active pane's current command, "" if there is none.
func (p Policy) InferStatus(live model.LiveSession, command string, now time.Time) string {
	if live.AttachedClients > 0 {
		return model.StatusRunning
	}
	if p.IsBusy(command) {
		return model.StatusRunning
	}
	if live.ActivityEpoch == nil {
		return model.StatusIdle
	}
	age := now.Sub(time.Unix(*live.ActivityEpoch, 0))
	if age > p.threshold() {
		return model.StatusIdle
	}
	return model.StatusRunning
}

// ResolveStatus applies a persisted override. Only "running" and "idle" are
// honored; an override never expires.
func (p Policy) ResolveStatus(override, inferred string) string {
	switch override {
	case model.StatusRunning, model.StatusIdle:
		return override
	}
	return inferred
}

// ActivityState is "running" only for a running session whose active pane
// has a non-shell foreground program.
func (p Policy) ActivityState(status, command string) string {
	if status == model.StatusRunning && p.IsBusy(command) {
		return model.ActivityRunning
	}
	return model.ActivityWaiting
}

// InferAgent guesses the agent kind from the session name and command.
func InferAgent(name, command string) string {
	if strings.Contains(strings.ToLower(name+" "+command), "codex") {
		return model.AgentCodex
	}
	return model.AgentClaude
}

func (p Policy) threshold() time.Duration {
	if p.IdleThreshold <= 0 {
		return DefaultIdleThreshold
	}
	return p.IdleThreshold
}

func (p Policy) shells() []string {
	if len(p.ShellCommands) == 0 {
		return DefaultShellCommands
	}
	return p.ShellCommands
}
