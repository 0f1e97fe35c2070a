// Package muxerr translates failed multiplexer invocations into a small,
// stable set of failure kinds.
//
// The multiplexer client only records what happened (exit status, stderr,
// spawn error) in a CommandError. Callers decide user-visible behavior by
// running the error through Classify.
package muxerr

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"syscall"
)

// Kind is the classified failure category of a multiplexer call.
type Kind string

const (
	// ToolNotInstalled means the multiplexer binary could not be located.
	ToolNotInstalled Kind = "TOOL_NOT_INSTALLED"
	// ServerNotRunning means no multiplexer server is running.
	ServerNotRunning Kind = "SERVER_NOT_RUNNING"
	// TargetMissing means the requested session or pane does not exist.
	TargetMissing Kind = "TARGET_MISSING"
	// Unknown is any other failure. The raw message is preserved.
	Unknown Kind = "UNKNOWN"
)

// CommandError is the raw failure of a single multiplexer invocation.
type CommandError struct {
	// Args are the arguments passed to the binary (without the binary itself).
	Args []string
	// Stderr is the captured diagnostic stream.
	Stderr string
	// ExitCode is the process exit code, or -1 if the process never exited normally.
	ExitCode int
	// TimedOut is set when the per-call deadline expired.
	TimedOut bool
	// Err is the underlying spawn or wait error.
	Err error
}

func (e *CommandError) Error() string {
	op := "tmux"
	if len(e.Args) > 0 {
		op = "tmux " + e.Args[0]
	}
	stderr := strings.TrimSpace(e.Stderr)
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s: timed out: %v", op, e.Err)
	case stderr != "":
		return fmt.Sprintf("%s: %s", op, stderr)
	default:
		return fmt.Sprintf("%s: %v", op, e.Err)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

var (
	serverNotRunningMarkers = []string{"no server running", "failed to connect to server"}
	targetMissingMarkers    = []string{"can't find pane", "can't find session"}
)

// Classify maps an error returned by a multiplexer call to its Kind.
// Checks run in order: missing binary, no server, missing target, unknown.
// A nil error classifies as Unknown; callers should not classify success.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}
	if isNotInstalled(err) {
		return ToolNotInstalled
	}

	text := strings.ToLower(diagnosticText(err))
	if containsAny(text, serverNotRunningMarkers) {
		return ServerNotRunning
	}
	if containsAny(text, targetMissingMarkers) {
		return TargetMissing
	}
	return Unknown
}

// Is reports whether err classifies as kind.
func Is(err error, kind Kind) bool {
	return err != nil && Classify(err) == kind
}

// Message returns the raw message to show for an error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Error()
	}
	return err.Error()
}

func isNotInstalled(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, syscall.ENOENT) {
		// Only a spawn-time ENOENT counts; a process that ran and exited
		// non-zero never produces a PathError.
		return true
	}
	return false
}

// diagnosticText joins stderr and the error message so markers are found
// in either place.
func diagnosticText(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		msg := cmdErr.Stderr
		if cmdErr.Err != nil {
			msg += "\n" + cmdErr.Err.Error()
		}
		return msg
	}
	return err.Error()
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
