// Package metadata persists the operator-supplied attributes of tmux
// sessions: agent kind, repository, topic, prompt, status override.
//
// The document lives at a fixed path as {"sessions": {name: metadata}}.
// Reads always go to disk; writes are read-modify-write without locking,
// so concurrent writers race and the last one wins.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/timvw/pane-deck/internal/logging"
	"github.com/timvw/pane-deck/internal/model"
)

// Store loads and saves the session metadata document.
type Store interface {
	// Load never fails: a missing or unreadable document is an empty state.
	Load() model.SessionsState
	Save(state model.SessionsState) error
}

// DefaultPath returns ~/.openclaw/workspace/state/tmux-sessions.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".openclaw", "workspace", "state", "tmux-sessions.json")
}

// FileStore keeps the document in a JSON file.
type FileStore struct {
	Path   string
	Logger *logrus.Entry
}

// NewFileStore creates a store at path, or DefaultPath when path is empty.
func NewFileStore(path string, logger *logrus.Entry) *FileStore {
	if path == "" {
		path = DefaultPath()
	}
	if logger == nil {
		logger = logging.Component(nil, "metadata")
	}
	return &FileStore{Path: path, Logger: logger}
}

// Load reads the document. A missing file is an empty state; an unreadable
// or corrupt file is logged and also treated as empty.
func (s *FileStore) Load() model.SessionsState {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger().WithError(err).WithField("path", s.Path).Warn("failed to read session metadata")
		}
		return model.NewSessionsState()
	}

	var state model.SessionsState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger().WithError(err).WithField("path", s.Path).Warn("ignoring corrupt session metadata")
		return model.NewSessionsState()
	}
	if state.Sessions == nil {
		state.Sessions = make(map[string]model.SessionMetadata)
	}
	return state
}

// Save writes the document as indented JSON. The parent directory is created
// if missing; the file is replaced by renaming a temp file over it.
func (s *FileStore) Save(state model.SessionsState) error {
	if state.Sessions == nil {
		state.Sessions = make(map[string]model.SessionMetadata)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session metadata: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmux-sessions-*.json.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	successful := false
	defer func() {
		if !successful {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}

	successful = true
	return nil
}

func (s *FileStore) logger() *logrus.Entry {
	if s.Logger == nil {
		return logging.Component(nil, "metadata")
	}
	return s.Logger
}

// MemoryStore keeps the document in memory. It backs the mock backend.
type MemoryStore struct {
	mu    sync.Mutex
	state model.SessionsState
}

// NewMemoryStore creates a store seeded with a copy of state.
func NewMemoryStore(state model.SessionsState) *MemoryStore {
	return &MemoryStore{state: clone(state)}
}

// Load returns a copy of the stored state.
func (s *MemoryStore) Load() model.SessionsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.state)
}

// Save replaces the stored state with a copy of state.
func (s *MemoryStore) Save(state model.SessionsState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = clone(state)
	return nil
}

func clone(state model.SessionsState) model.SessionsState {
	out := model.NewSessionsState()
	for name, md := range state.Sessions {
		out.Sessions[name] = md
	}
	return out
}

// DemoState returns metadata matching the sessions of the mock multiplexer.
func DemoState() model.SessionsState {
	state := model.NewSessionsState()
	state.Sessions["exfoliate-shop"] = model.SessionMetadata{
		Name:         "exfoliate-shop",
		Agent:        model.AgentClaude,
		Repo:         "~/repos/exfoliate-shop",
		SystemPrompt: "You are a coding agent for an e-commerce store",
		Topic:        "Sticker store development",
		Created:      "2026-02-11T10:30:00Z",
		Status:       model.StatusRunning,
	}
	state.Sessions["knowhere-backend"] = model.SessionMetadata{
		Name:         "knowhere-backend",
		Agent:        model.AgentCodex,
		Repo:         "~/repos/knowhere",
		SystemPrompt: "You are a backend development specialist",
		Topic:        "API refactoring",
		Created:      "2026-02-10T14:20:00Z",
		Status:       model.StatusIdle,
	}
	state.Sessions["clarity-ui"] = model.SessionMetadata{
		Name:    "clarity-ui",
		Agent:   model.AgentClaude,
		Repo:    "~/repos/clarity",
		Topic:   "Dashboard UI improvements",
		Created: "2026-02-11T16:00:00Z",
		Status:  "done",
	}
	return state
}
