// Package mux provides an abstraction over the terminal multiplexer hosting
// agent sessions.
//
// This package is pure transport. It runs multiplexer commands and parses
// their structured output into typed records. It never interprets failures:
// errors come back as *muxerr.CommandError and are classified by callers.
package mux

import (
	"context"

	"github.com/timvw/pane-deck/internal/model"
)

// Multiplexer abstracts terminal multiplexer operations.
// Implementations exist for tmux and an in-memory fake (mock backend, tests).
type Multiplexer interface {
	// Name returns the multiplexer name (e.g., "tmux", "mock").
	Name() string

	// ListSessions returns all sessions hosted by the server.
	ListSessions(ctx context.Context) ([]model.LiveSession, error)

	// ListPanes returns the panes of one session, or of all sessions when
	// session is empty.
	ListPanes(ctx context.Context, session string) ([]model.LivePane, error)

	// CapturePane returns the last lines of a pane's scrollback with control
	// sequences preserved. lines <= 0 captures the full history.
	CapturePane(ctx context.Context, paneID string, lines int) (string, error)

	// CursorPosition returns the cursor position of a pane.
	CursorPosition(ctx context.Context, paneID string) (model.Cursor, error)

	// SendKeys injects keys into a pane. Known raw control sequences are sent
	// as key names; everything else is typed literally.
	SendKeys(ctx context.Context, paneID, keys string) error

	// KillSession terminates a session.
	KillSession(ctx context.Context, name string) error

	// NewSession creates a detached session led by a shell and runs
	// opts.Command inside it.
	NewSession(ctx context.Context, opts NewSessionOptions) error
}

// NewSessionOptions describes a session to create.
type NewSessionOptions struct {
	// Name is the session name.
	Name string
	// Dir is the working directory of the session's first pane.
	Dir string
	// Shell is the program leading the session. It outlives Command so the
	// pane stays inspectable after the command exits.
	Shell string
	// Command is typed into the shell and submitted with Enter.
	Command string
}
