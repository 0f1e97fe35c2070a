package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/pane-deck/internal/model"
	"github.com/timvw/pane-deck/internal/mux"
	"github.com/timvw/pane-deck/internal/muxerr"
)

// CreateRequest describes a session to spawn.
type CreateRequest struct {
	Name    string `json:"name"`
	Command string `json:"command"`
	// Cwd is the working directory. "~" prefixes are expanded for tmux but
	// stored verbatim as the session's repo. Empty means the home directory.
	Cwd          string `json:"cwd,omitempty"`
	Topic        string `json:"topic,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// Create spawns a detached session led by the operator's shell, runs the
// command in it, and records the session's metadata. It returns the name of
// the new session.
func (t *Tracker) Create(ctx context.Context, req CreateRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	command := strings.TrimSpace(req.Command)

	ctx, span := tracer.Start(ctx, "create_session",
		trace.WithAttributes(
			attribute.String("session.name", name),
			attribute.String("session.cwd", req.Cwd),
		))
	defer span.End()

	if name == "" || command == "" {
		return "", invalid("session name and command are required")
	}
	if strings.ContainsAny(name, ".:") {
		return "", invalid("session name %q must not contain '.' or ':'", name)
	}

	live, err := t.Mux.ListSessions(ctx)
	if err != nil && !muxerr.Is(err, muxerr.ServerNotRunning) {
		cerr := classify("list sessions", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, cerr.Error())
		return "", cerr
	}
	for _, s := range live {
		if s.Name == name {
			return "", fmt.Errorf("%w: %s", ErrSessionExists, name)
		}
	}

	dir, err := t.workDir(req.Cwd)
	if err != nil {
		return "", err
	}

	err = t.Mux.NewSession(ctx, mux.NewSessionOptions{
		Name:    name,
		Dir:     dir,
		Shell:   t.shell(),
		Command: command,
	})
	if err != nil {
		// Lost a race with another creator.
		if strings.Contains(strings.ToLower(muxerr.Message(err)), "duplicate session") {
			return "", fmt.Errorf("%w: %s", ErrSessionExists, name)
		}
		cerr := classify("create session", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, cerr.Error())
		return "", cerr
	}

	repo := strings.TrimSpace(req.Cwd)
	if repo == "" {
		repo = "~"
	}
	agent := InferAgent("", command)

	state := t.Store.Load()
	state.Sessions[name] = model.SessionMetadata{
		Name:         name,
		Agent:        agent,
		Repo:         repo,
		SystemPrompt: req.SystemPrompt,
		Topic:        req.Topic,
		Created:      t.now().UTC().Format(time.RFC3339),
		Status:       model.StatusRunning,
	}
	if err := t.Store.Save(state); err != nil {
		// The session is running; it is listed with inferred fields until
		// metadata can be written again.
		t.logger().WithError(err).WithField("session", name).Error("failed to save session metadata")
	}

	span.SetAttributes(attribute.String("session.agent", agent))
	t.logger().WithFields(logrus.Fields{"session": name, "agent": agent, "dir": dir}).Info("session created")
	return name, nil
}

// Kill terminates a session and forgets its metadata. A session that is
// already gone reports ErrSessionNotFound; its metadata is forgotten too.
func (t *Tracker) Kill(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)

	ctx, span := tracer.Start(ctx, "kill_session",
		trace.WithAttributes(attribute.String("session.name", name)))
	defer span.End()

	if name == "" {
		return invalid("session name required")
	}

	if err := t.Mux.KillSession(ctx, name); err != nil {
		cerr := classify("kill session", err)
		switch cerr.Kind {
		case muxerr.TargetMissing, muxerr.ServerNotRunning:
			t.forget(name)
			return fmt.Errorf("%w: %s", ErrSessionNotFound, name)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, cerr.Error())
		return cerr
	}

	t.forget(name)
	t.logger().WithField("session", name).Info("session killed")
	return nil
}

// forget removes a session's metadata. Save failures are logged only: the
// stale entry is harmless because listing ignores sessions that are not live.
func (t *Tracker) forget(name string) {
	state := t.Store.Load()
	if _, ok := state.Sessions[name]; !ok {
		return
	}
	delete(state.Sessions, name)
	if err := t.Store.Save(state); err != nil {
		t.logger().WithError(err).WithField("session", name).Warn("failed to remove session metadata")
	}
}

// workDir resolves the tmux working directory for cwd.
func (t *Tracker) workDir(cwd string) (string, error) {
	cwd = strings.TrimSpace(cwd)
	home, err := os.UserHomeDir()
	if err != nil {
		if cwd == "" || strings.HasPrefix(cwd, "~") {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return cwd, nil
	}
	switch {
	case cwd == "" || cwd == "~":
		return home, nil
	case strings.HasPrefix(cwd, "~/"):
		return filepath.Join(home, cwd[2:]), nil
	}
	return cwd, nil
}

func (t *Tracker) shell() string {
	if t.Shell != "" {
		return t.Shell
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// IsNotFound reports whether err means the session or pane does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrPaneNotFound)
}
