package tracker

import (
	"errors"
	"fmt"

	"github.com/timvw/pane-deck/internal/muxerr"
)

var (
	// ErrInvalidRequest is returned for requests that fail validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSessionNotFound is returned when a named session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when creating a session whose name is taken.
	ErrSessionExists = errors.New("session already exists")
	// ErrPaneNotFound is returned when a pane does not exist.
	ErrPaneNotFound = errors.New("pane not found")
)

// Error is a classified multiplexer failure.
type Error struct {
	Op   string
	Kind muxerr.Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, muxerr.Message(e.Err))
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify wraps a multiplexer error with its Kind.
func classify(op string, err error) *Error {
	return &Error{Op: op, Kind: muxerr.Classify(err), Err: err}
}

// KindOf returns the Kind of a tracker error, or Unknown.
func KindOf(err error) muxerr.Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return muxerr.Unknown
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
