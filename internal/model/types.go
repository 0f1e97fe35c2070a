package model

import "time"

// Agent kinds recorded in session metadata.
const (
	AgentClaude = "claude"
	AgentCodex  = "codex"
)

// Session statuses. Persisted metadata may carry other values (e.g. "done"),
// but only these two are honored as overrides.
const (
	StatusRunning = "running"
	StatusIdle    = "idle"
)

// Activity states shown next to a running session.
const (
	ActivityRunning = "running"
	ActivityWaiting = "waiting"
)

// LiveSession is a tmux session as reported by list-sessions.
// It is rebuilt on every request and never persisted.
type LiveSession struct {
	// Name is the unique session name.
	Name string `json:"name"`
	// CreatedEpoch is the session creation time in Unix seconds, nil if unknown.
	CreatedEpoch *int64 `json:"createdEpoch"`
	// ActivityEpoch is the last activity time in Unix seconds, nil if unknown.
	ActivityEpoch *int64 `json:"activityEpoch"`
	// AttachedClients is the number of tmux clients attached to the session.
	AttachedClients int `json:"attachedClients"`
}

// LivePane is a tmux pane as reported by list-panes.
type LivePane struct {
	SessionName string `json:"sessionName"`
	// ID is the tmux pane id (e.g., "%3"), unique within the server.
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	// CurrentCommand is the foreground program in the pane (e.g., "zsh", "node").
	CurrentCommand string `json:"currentCommand"`
	CurrentPath    string `json:"currentPath"`
	IsActive       bool   `json:"isActive"`
}

// Cursor is a pane cursor position in cells.
type Cursor struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// SessionMetadata holds the operator-supplied attributes of a session that
// tmux cannot report. Keyed by session name in SessionsState.
type SessionMetadata struct {
	Name         string `json:"name"`
	Agent        string `json:"agent"`
	Repo         string `json:"repo"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	Topic        string `json:"topic,omitempty"`
	// Created is an RFC 3339 timestamp.
	Created string `json:"created"`
	// Status is an operator-declared override. Only "running" and "idle" are honored.
	Status string `json:"status,omitempty"`
}

// SessionsState is the on-disk document: {"sessions": {name: metadata}}.
type SessionsState struct {
	Sessions map[string]SessionMetadata `json:"sessions"`
}

// NewSessionsState returns an empty state with an initialized map.
func NewSessionsState() SessionsState {
	return SessionsState{Sessions: make(map[string]SessionMetadata)}
}

// UnifiedSession is the merged view of a live session, its panes, and its
// persisted metadata. It is derived per request and never stored.
type UnifiedSession struct {
	Name           string `json:"name"`
	Agent          string `json:"agent"`
	Repo           string `json:"repo"`
	SystemPrompt   string `json:"systemPrompt,omitempty"`
	Topic          string `json:"topic,omitempty"`
	Created        string `json:"created"`
	LastUsed       string `json:"lastUsed"`
	Status         string `json:"status"`
	CurrentCommand string `json:"currentCommand,omitempty"`
	ActivePaneID   string `json:"activePaneId,omitempty"`
	// LastLine is the last non-blank line of the active pane, control sequences removed.
	LastLine      string `json:"lastLine"`
	ActivityState string `json:"activityState"`
}

// EpochToRFC3339 formats a Unix-seconds epoch. A nil epoch formats as now.
func EpochToRFC3339(epoch *int64, now time.Time) string {
	if epoch == nil {
		return now.UTC().Format(time.RFC3339)
	}
	return time.Unix(*epoch, 0).UTC().Format(time.RFC3339)
}
