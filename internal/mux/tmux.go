package mux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/timvw/pane-deck/internal/model"
	"github.com/timvw/pane-deck/internal/muxerr"
	ppotel "github.com/timvw/pane-deck/internal/otel"
)

const (
	// DefaultTimeout bounds every tmux invocation.
	DefaultTimeout = 5 * time.Second
	// DefaultMaxOutput caps the stdout captured from a single invocation.
	DefaultMaxOutput = 10 * 1024 * 1024
	// waitDelay bounds how long output pipes may stay open after the
	// command is killed.
	waitDelay = 500 * time.Millisecond
)

// Field formats requested from tmux. The parsers depend on this exact order.
const (
	sessionFormat = "#{session_name}\t#{session_created}\t#{session_activity}\t#{session_attached}"
	paneFormat    = "#{session_name}\t#{pane_id}\t#{pane_width}\t#{pane_height}\t#{pane_current_command}\t#{pane_current_path}\t#{pane_active}"
	cursorFormat  = "#{cursor_x},#{cursor_y}"
)

// errOutputTooLarge is returned when stdout exceeds MaxOutput.
var errOutputTooLarge = errors.New("output exceeds buffer limit")

// Tmux implements the Multiplexer interface for tmux.
type Tmux struct {
	// Binary is the tmux executable. Defaults to "tmux".
	Binary string
	// Socket selects a dedicated server with -L. Empty uses the default server.
	Socket string
	// Timeout bounds each invocation. Defaults to DefaultTimeout.
	Timeout time.Duration
	// MaxOutput caps captured stdout in bytes. Defaults to DefaultMaxOutput.
	MaxOutput int
	// Metrics records one counter per invocation; nil-safe.
	Metrics *ppotel.Metrics
}

// Name returns "tmux".
func (t *Tmux) Name() string {
	return "tmux"
}

// ListSessions returns all tmux sessions.
func (t *Tmux) ListSessions(ctx context.Context) ([]model.LiveSession, error) {
	out, err := t.run(ctx, "list-sessions", "-F", sessionFormat)
	if err != nil {
		return nil, err
	}
	return parseSessions(out), nil
}

// ListPanes returns the panes of session, or of every session when session is empty.
func (t *Tmux) ListPanes(ctx context.Context, session string) ([]model.LivePane, error) {
	args := []string{"list-panes", "-F", paneFormat}
	if session != "" {
		args = append(args, "-s", "-t", "="+session)
	} else {
		args = append(args, "-a")
	}
	out, err := t.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parsePanes(out), nil
}

// CapturePane captures a pane with escape sequences preserved (-e).
func (t *Tmux) CapturePane(ctx context.Context, paneID string, lines int) (string, error) {
	start := "-"
	if lines > 0 {
		start = "-" + strconv.Itoa(lines)
	}
	return t.run(ctx, "capture-pane", "-p", "-e", "-S", start, "-E", "-", "-t", paneID)
}

// CursorPosition returns the cursor position of a pane.
func (t *Tmux) CursorPosition(ctx context.Context, paneID string) (model.Cursor, error) {
	out, err := t.run(ctx, "display-message", "-p", "-t", paneID, cursorFormat)
	if err != nil {
		return model.Cursor{}, err
	}
	return parseCursor(out), nil
}

// SendKeys sends a key name or literal text to a pane.
func (t *Tmux) SendKeys(ctx context.Context, paneID, keys string) error {
	_, err := t.run(ctx, sendKeysArgs(paneID, keys)...)
	return err
}

// KillSession kills a session by exact name.
func (t *Tmux) KillSession(ctx context.Context, name string) error {
	_, err := t.run(ctx, "kill-session", "-t", "="+name)
	return err
}

// NewSession creates a detached session led by opts.Shell, then types
// opts.Command and presses Enter.
func (t *Tmux) NewSession(ctx context.Context, opts NewSessionOptions) error {
	args := []string{"new-session", "-d", "-s", opts.Name}
	if opts.Dir != "" {
		args = append(args, "-c", opts.Dir)
	}
	if opts.Shell != "" {
		args = append(args, opts.Shell)
	}
	if _, err := t.run(ctx, args...); err != nil {
		return err
	}
	if opts.Command == "" {
		return nil
	}

	// Target the session's first pane by exact session name.
	target := "=" + opts.Name + ":"
	if _, err := t.run(ctx, "send-keys", "-t", target, "-l", "--", opts.Command); err != nil {
		return err
	}
	_, err := t.run(ctx, "send-keys", "-t", target, "Enter")
	return err
}

// run executes a tmux command and returns its stdout. Failures are returned
// as *muxerr.CommandError without interpretation.
func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fullArgs := args
	if t.Socket != "" {
		fullArgs = append([]string{"-L", t.Socket}, args...)
	}

	binary := t.Binary
	if binary == "" {
		binary = "tmux"
	}

	maxOutput := t.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	stdout := &cappedBuffer{limit: maxOutput}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, fullArgs...)
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	err := cmd.Run()
	if err == nil && stdout.overflow {
		err = fmt.Errorf("%w (%d bytes)", errOutputTooLarge, maxOutput)
	}
	if err != nil {
		cmdErr := &muxerr.CommandError{
			Args:     args,
			Stderr:   stderr.String(),
			ExitCode: -1,
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			cmdErr.TimedOut = true
			t.Metrics.RecordCommand(ctx, args[0], "timeout")
		} else {
			t.Metrics.RecordCommand(ctx, args[0], "error")
		}
		return "", cmdErr
	}
	t.Metrics.RecordCommand(ctx, args[0], "ok")
	return stdout.String(), nil
}

// cappedBuffer collects output up to limit bytes. Output past the limit is
// drained and discarded so the child never blocks on a full pipe; the
// overflow flag turns the call into a failure afterwards.
type cappedBuffer struct {
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.overflow || b.buf.Len()+len(p) > b.limit {
		b.overflow = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}

// parseSessions parses list-sessions output in sessionFormat.
// Blank lines and rows without a name are dropped.
func parseSessions(out string) []model.LiveSession {
	var sessions []model.LiveSession
	for _, line := range splitRows(out) {
		fields := strings.Split(line, "\t")
		name := field(fields, 0)
		if name == "" {
			continue
		}
		attached := parseInt(field(fields, 3))
		sessions = append(sessions, model.LiveSession{
			Name:            name,
			CreatedEpoch:    parseInt(field(fields, 1)),
			ActivityEpoch:   parseInt(field(fields, 2)),
			AttachedClients: int(valueOr(attached, 0)),
		})
	}
	return sessions
}

// parsePanes parses list-panes output in paneFormat.
// Rows without a session name or pane id are dropped.
func parsePanes(out string) []model.LivePane {
	var panes []model.LivePane
	for _, line := range splitRows(out) {
		fields := strings.Split(line, "\t")
		name, id := field(fields, 0), field(fields, 1)
		if name == "" || id == "" {
			continue
		}
		panes = append(panes, model.LivePane{
			SessionName:    name,
			ID:             id,
			Width:          int(valueOr(parseInt(field(fields, 2)), 0)),
			Height:         int(valueOr(parseInt(field(fields, 3)), 0)),
			CurrentCommand: field(fields, 4),
			CurrentPath:    field(fields, 5),
			IsActive:       field(fields, 6) == "1",
		})
	}
	return panes
}

// parseCursor parses "x,y". Malformed output yields the origin.
func parseCursor(out string) model.Cursor {
	x, y, ok := strings.Cut(strings.TrimSpace(out), ",")
	if !ok {
		return model.Cursor{}
	}
	return model.Cursor{
		X: int(valueOr(parseInt(x), 0)),
		Y: int(valueOr(parseInt(y), 0)),
	}
}

// splitRows splits output into non-blank rows. Fields are not trimmed, so an
// empty leading field (missing name) is preserved and the row is dropped.
func splitRows(out string) []string {
	var rows []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, line)
	}
	return rows
}

func field(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}

func parseInt(s string) *int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func valueOr(v *int64, fallback int64) int64 {
	if v == nil {
		return fallback
	}
	return *v
}
