package mux

import (
	"fmt"
	"time"

	ppotel "github.com/timvw/pane-deck/internal/otel"
)

// Options configures the multiplexer built by FromName.
type Options struct {
	// Socket selects a dedicated tmux server (-L).
	Socket string
	// Timeout bounds each tmux invocation.
	Timeout time.Duration
	// Metrics is passed to the tmux client; nil-safe.
	Metrics *ppotel.Metrics
}

// FromName creates a Multiplexer by name. The backend is chosen once at
// process start; "mock" serves demo data without touching tmux.
func FromName(name string, opts Options) (Multiplexer, error) {
	switch name {
	case "", "tmux":
		return &Tmux{
			Socket:  opts.Socket,
			Timeout: opts.Timeout,
			Metrics: opts.Metrics,
		}, nil
	case "mock":
		return NewMock(time.Now()), nil
	default:
		return nil, fmt.Errorf("unknown multiplexer: %q (supported: tmux, mock)", name)
	}
}
