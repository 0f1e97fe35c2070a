package mux

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/timvw/pane-deck/internal/model"
	"github.com/timvw/pane-deck/internal/muxerr"
)

// Fake is an in-memory Multiplexer. It backs the mock backend and tests.
// Failures it produces carry tmux's own diagnostic text so they classify
// exactly like the real thing.
type Fake struct {
	mu       sync.Mutex
	sessions []model.LiveSession
	panes    []model.LivePane
	captures map[string]string
	cursors  map[string]model.Cursor
	failures map[string]error
	sent     []SentKeys
	nextPane int

	// Now stamps created/activity epochs of new sessions. Defaults to time.Now.
	Now func() time.Time
}

// SentKeys records one SendKeys call.
type SentKeys struct {
	PaneID string
	Keys   string
}

// NewFake creates an empty fake multiplexer.
func NewFake() *Fake {
	return &Fake{
		captures: make(map[string]string),
		cursors:  make(map[string]model.Cursor),
		failures: make(map[string]error),
	}
}

// Name returns "mock".
func (f *Fake) Name() string {
	return "mock"
}

// AddSession adds a live session.
func (f *Fake) AddSession(s model.LiveSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, s)
}

// AddPane adds a pane with optional capture content.
func (f *Fake) AddPane(p model.LivePane, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panes = append(f.panes, p)
	f.captures[p.ID] = content
}

// SetCursor sets the cursor reported for a pane.
func (f *Fake) SetCursor(paneID string, c model.Cursor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors[paneID] = c
}

// FailOn makes every call of op fail with err. op is the tmux command name
// ("list-sessions", "list-panes", "capture-pane", ...), optionally suffixed
// with ":<target>" to fail only for one pane or session.
func (f *Fake) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

// Sent returns the keys sent so far.
func (f *Fake) Sent() []SentKeys {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentKeys(nil), f.sent...)
}

// ListSessions returns the fake's sessions.
func (f *Fake) ListSessions(_ context.Context) ([]model.LiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("list-sessions", ""); err != nil {
		return nil, err
	}
	return append([]model.LiveSession(nil), f.sessions...), nil
}

// ListPanes returns panes of one session or all sessions.
func (f *Fake) ListPanes(_ context.Context, session string) ([]model.LivePane, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("list-panes", session); err != nil {
		return nil, err
	}
	if session == "" {
		return append([]model.LivePane(nil), f.panes...), nil
	}
	if f.sessionIndex(session) < 0 {
		return nil, TargetMissingError("list-panes", "session", session)
	}
	var panes []model.LivePane
	for _, p := range f.panes {
		if p.SessionName == session {
			panes = append(panes, p)
		}
	}
	return panes, nil
}

// CapturePane returns the stored content, trimmed to the last lines when lines > 0.
func (f *Fake) CapturePane(_ context.Context, paneID string, lines int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("capture-pane", paneID); err != nil {
		return "", err
	}
	content, ok := f.captures[paneID]
	if !ok {
		return "", TargetMissingError("capture-pane", "pane", paneID)
	}
	if lines > 0 {
		rows := strings.Split(content, "\n")
		if len(rows) > lines {
			content = strings.Join(rows[len(rows)-lines:], "\n")
		}
	}
	return content, nil
}

// CursorPosition returns the stored cursor for a pane.
func (f *Fake) CursorPosition(_ context.Context, paneID string) (model.Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("display-message", paneID); err != nil {
		return model.Cursor{}, err
	}
	if _, ok := f.captures[paneID]; !ok {
		return model.Cursor{}, TargetMissingError("display-message", "pane", paneID)
	}
	return f.cursors[paneID], nil
}

// SendKeys records the keys.
func (f *Fake) SendKeys(_ context.Context, paneID, keys string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("send-keys", paneID); err != nil {
		return err
	}
	if _, ok := f.captures[paneID]; !ok {
		return TargetMissingError("send-keys", "pane", paneID)
	}
	f.sent = append(f.sent, SentKeys{PaneID: paneID, Keys: keys})
	return nil
}

// KillSession removes a session and its panes.
func (f *Fake) KillSession(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("kill-session", name); err != nil {
		return err
	}
	idx := f.sessionIndex(name)
	if idx < 0 {
		return TargetMissingError("kill-session", "session", name)
	}
	f.sessions = append(f.sessions[:idx], f.sessions[idx+1:]...)
	kept := f.panes[:0]
	for _, p := range f.panes {
		if p.SessionName == name {
			delete(f.captures, p.ID)
			delete(f.cursors, p.ID)
			continue
		}
		kept = append(kept, p)
	}
	f.panes = kept
	return nil
}

// NewSession adds a session with one active pane running the shell, and
// records the command as typed keys followed by Enter.
func (f *Fake) NewSession(_ context.Context, opts NewSessionOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("new-session", opts.Name); err != nil {
		return err
	}
	if f.sessionIndex(opts.Name) >= 0 {
		return &muxerr.CommandError{
			Args:     []string{"new-session", "-d", "-s", opts.Name},
			Stderr:   fmt.Sprintf("duplicate session: %s\n", opts.Name),
			ExitCode: 1,
			Err:      errors.New("exit status 1"),
		}
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	epoch := now().Unix()
	f.sessions = append(f.sessions, model.LiveSession{
		Name:          opts.Name,
		CreatedEpoch:  &epoch,
		ActivityEpoch: &epoch,
	})

	f.nextPane++
	paneID := fmt.Sprintf("%%%d", 1000+f.nextPane)
	f.panes = append(f.panes, model.LivePane{
		SessionName:    opts.Name,
		ID:             paneID,
		Width:          80,
		Height:         24,
		CurrentCommand: filepath.Base(opts.Shell),
		CurrentPath:    opts.Dir,
		IsActive:       true,
	})
	f.captures[paneID] = ""
	if opts.Command != "" {
		f.captures[paneID] = "$ " + opts.Command + "\n"
		f.sent = append(f.sent, SentKeys{PaneID: paneID, Keys: opts.Command}, SentKeys{PaneID: paneID, Keys: "\r"})
	}
	return nil
}

func (f *Fake) failure(op, target string) error {
	if err, ok := f.failures[op+":"+target]; ok && target != "" {
		return err
	}
	return f.failures[op]
}

func (f *Fake) sessionIndex(name string) int {
	for i, s := range f.sessions {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// ServerNotRunningError returns the failure tmux reports when no server is running.
func ServerNotRunningError(op string) error {
	return &muxerr.CommandError{
		Args:     []string{op},
		Stderr:   "no server running on /tmp/tmux-1000/default\n",
		ExitCode: 1,
		Err:      errors.New("exit status 1"),
	}
}

// TargetMissingError returns the failure tmux reports for an unknown pane or session.
func TargetMissingError(op, kind, target string) error {
	return &muxerr.CommandError{
		Args:     []string{op},
		Stderr:   fmt.Sprintf("can't find %s: %s\n", kind, target),
		ExitCode: 1,
		Err:      errors.New("exit status 1"),
	}
}
