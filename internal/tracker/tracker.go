// Package tracker builds the unified view of agent sessions by merging live
// tmux state with persisted session metadata, and carries out the operator
// actions (create, kill, send keys) that change it.
//
// Every call re-derives live state from tmux. Nothing is cached across calls.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/pane-deck/internal/logging"
	"github.com/timvw/pane-deck/internal/metadata"
	"github.com/timvw/pane-deck/internal/model"
	"github.com/timvw/pane-deck/internal/mux"
	"github.com/timvw/pane-deck/internal/muxerr"
	ppotel "github.com/timvw/pane-deck/internal/otel"
	"github.com/timvw/pane-deck/internal/preview"
)

var tracer = otel.Tracer("pane-deck")

const (
	// DefaultParallel bounds concurrent preview captures.
	DefaultParallel = 10
	// DefaultPreviewLines is the tail captured for a session's last line.
	DefaultPreviewLines = 40
)

// Tracker reconciles tmux sessions with their metadata.
type Tracker struct {
	Mux          mux.Multiplexer
	Store        metadata.Store
	Policy       Policy
	Parallel     int             // max concurrent preview captures
	PreviewLines int             // lines captured for lastLine
	Shell        string          // session leader for Create; defaults to $SHELL, then /bin/sh
	Logger       *logrus.Entry   // nil discards
	Metrics      *ppotel.Metrics // OTEL metric counters; nil-safe
	Now          func() time.Time
}

// List returns the unified sessions keyed by name. Only live sessions are
// reported; metadata of sessions that no longer exist is ignored.
// No tmux server means no sessions, not an error. Cancelling ctx abandons
// queued preview captures and returns the context error.
func (t *Tracker) List(ctx context.Context) (map[string]model.UnifiedSession, error) {
	ctx, span := tracer.Start(ctx, "list_sessions",
		trace.WithAttributes(attribute.String("mux", t.Mux.Name())))
	defer span.End()

	start := time.Now()
	result := make(map[string]model.UnifiedSession)

	live, err := t.Mux.ListSessions(ctx)
	if err != nil {
		cerr := classify("list sessions", err)
		if cerr.Kind == muxerr.ServerNotRunning {
			span.SetAttributes(attribute.Int("sessions.total", 0))
			return result, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, cerr.Error())
		return nil, cerr
	}
	if len(live) == 0 {
		span.SetAttributes(attribute.Int("sessions.total", 0))
		return result, nil
	}

	panes, err := t.Mux.ListPanes(ctx, "")
	if err != nil {
		// Sessions are still reportable without pane detail.
		kind := muxerr.Classify(err)
		if kind != muxerr.ServerNotRunning && kind != muxerr.TargetMissing {
			t.logger().WithError(err).WithField("kind", kind).Warn("failed to list panes while loading sessions")
		}
		panes = nil
	}
	bySession := make(map[string][]model.LivePane)
	for _, p := range panes {
		bySession[p.SessionName] = append(bySession[p.SessionName], p)
	}

	state := t.Store.Load()
	now := t.now()

	sessions := make([]model.UnifiedSession, len(live))
	parallel := t.Parallel
	if parallel < 1 {
		parallel = DefaultParallel
	}
	if parallel > len(live) {
		parallel = len(live)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, parallel)

	for i, s := range live {
		wg.Add(1)
		go func(idx int, s model.LiveSession) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}

			md, ok := state.Sessions[s.Name]
			var mdp *model.SessionMetadata
			if ok {
				mdp = &md
			}
			sessions[idx] = t.reconcile(ctx, s, bySession[s.Name], mdp, now)
		}(i, s)
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	for _, s := range sessions {
		result[s.Name] = s
	}

	running := 0
	for _, s := range result {
		if s.Status == model.StatusRunning {
			running++
		}
	}
	span.SetAttributes(
		attribute.Int("sessions.total", len(result)),
		attribute.Int("sessions.running", running),
		attribute.Int("panes.total", len(panes)),
	)
	t.Metrics.RecordReconcile(ctx, time.Since(start), len(result))

	return result, nil
}

// reconcile merges one live session with its panes and metadata (nil when
// none is persisted). Preview failures never fail the session.
func (t *Tracker) reconcile(ctx context.Context, live model.LiveSession, panes []model.LivePane, md *model.SessionMetadata, now time.Time) model.UnifiedSession {
	ctx, span := tracer.Start(ctx, "reconcile_session",
		trace.WithAttributes(
			attribute.String("session.name", live.Name),
			attribute.Int("session.panes", len(panes)),
			attribute.Int("session.attached", live.AttachedClients),
		))
	defer span.End()

	active := ActivePane(panes)
	var command string
	if active != nil {
		command = active.CurrentCommand
	}

	var override string
	if md != nil {
		override = md.Status
	}
	status := t.Policy.ResolveStatus(override, t.Policy.InferStatus(live, command, now))

	u := model.UnifiedSession{
		Name:           live.Name,
		Agent:          InferAgent(live.Name, command),
		Repo:           "~",
		Created:        model.EpochToRFC3339(live.CreatedEpoch, now),
		LastUsed:       model.EpochToRFC3339(live.ActivityEpoch, now),
		Status:         status,
		CurrentCommand: command,
		ActivityState:  t.Policy.ActivityState(status, command),
	}
	if active != nil {
		u.ActivePaneID = active.ID
		if active.CurrentPath != "" {
			u.Repo = active.CurrentPath
		}
		u.LastLine = t.lastLine(ctx, live.Name, active.ID)
	}
	if md != nil {
		if md.Agent != "" {
			u.Agent = md.Agent
		}
		if md.Repo != "" {
			u.Repo = md.Repo
		}
		if md.Created != "" {
			u.Created = md.Created
		}
		u.SystemPrompt = md.SystemPrompt
		u.Topic = md.Topic
	}

	span.SetAttributes(
		attribute.String("session.status", u.Status),
		attribute.String("session.activity", u.ActivityState),
		attribute.String("session.command", command),
	)
	return u
}

// lastLine captures the tail of a pane and extracts its last line.
// A vanished pane yields ""; other failures are logged and also yield "".
func (t *Tracker) lastLine(ctx context.Context, session, paneID string) string {
	content, err := t.Mux.CapturePane(ctx, paneID, t.previewLines())
	if err != nil {
		if kind := muxerr.Classify(err); kind != muxerr.TargetMissing {
			t.logger().WithError(err).WithFields(logrus.Fields{
				"session": session,
				"pane":    paneID,
				"kind":    kind,
			}).Warn("failed to capture preview")
			t.Metrics.RecordPreviewFailure(ctx)
		}
		return ""
	}
	return preview.ExtractLastLine(content)
}

// ActivePane returns the pane flagged active, else the first pane, else nil.
func ActivePane(panes []model.LivePane) *model.LivePane {
	for i := range panes {
		if panes[i].IsActive {
			return &panes[i]
		}
	}
	if len(panes) > 0 {
		return &panes[0]
	}
	return nil
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Tracker) previewLines() int {
	if t.PreviewLines > 0 {
		return t.PreviewLines
	}
	return DefaultPreviewLines
}

func (t *Tracker) logger() *logrus.Entry {
	if t.Logger == nil {
		return logging.Component(nil, "tracker")
	}
	return t.Logger
}
