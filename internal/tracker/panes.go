package tracker

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/timvw/pane-deck/internal/model"
	"github.com/timvw/pane-deck/internal/muxerr"
)

// Capture is the content of a pane and its cursor position.
type Capture struct {
	Content string       `json:"content"`
	Cursor  model.Cursor `json:"cursor"`
}

// Panes lists the panes of one session. No tmux server means no panes.
func (t *Tracker) Panes(ctx context.Context, session string) ([]model.LivePane, error) {
	session = strings.TrimSpace(session)
	if session == "" {
		return nil, invalid("session name required")
	}

	panes, err := t.Mux.ListPanes(ctx, session)
	if err != nil {
		cerr := classify("list panes", err)
		switch cerr.Kind {
		case muxerr.ServerNotRunning:
			return []model.LivePane{}, nil
		case muxerr.TargetMissing:
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, session)
		}
		return nil, cerr
	}
	if panes == nil {
		panes = []model.LivePane{}
	}
	return panes, nil
}

// Capture returns a pane's content (control sequences preserved) and its
// cursor. lines <= 0 captures the full back-scroll. A pane that is gone, or
// no tmux server, yields an empty capture.
func (t *Tracker) Capture(ctx context.Context, paneID string, lines int) (Capture, error) {
	paneID = strings.TrimSpace(paneID)
	if paneID == "" {
		return Capture{}, invalid("pane id required")
	}

	var c Capture
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		content, err := t.Mux.CapturePane(gctx, paneID, lines)
		if err != nil {
			return err
		}
		c.Content = content
		return nil
	})
	g.Go(func() error {
		cursor, err := t.Mux.CursorPosition(gctx, paneID)
		if err != nil {
			return err
		}
		c.Cursor = cursor
		return nil
	})
	if err := g.Wait(); err != nil {
		cerr := classify("capture pane", err)
		switch cerr.Kind {
		case muxerr.ServerNotRunning, muxerr.TargetMissing:
			return Capture{}, nil
		}
		return Capture{}, cerr
	}
	return c, nil
}

// SendKeys injects keys into a pane. A missing pane, or no server at all,
// is ErrPaneNotFound.
func (t *Tracker) SendKeys(ctx context.Context, paneID, keys string) error {
	paneID = strings.TrimSpace(paneID)
	if paneID == "" || keys == "" {
		return invalid("pane id and keys are required")
	}

	if err := t.Mux.SendKeys(ctx, paneID, keys); err != nil {
		cerr := classify("send keys", err)
		switch cerr.Kind {
		case muxerr.ServerNotRunning, muxerr.TargetMissing:
			return fmt.Errorf("%w: %s", ErrPaneNotFound, paneID)
		}
		return cerr
	}
	return nil
}
