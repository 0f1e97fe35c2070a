package events

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/timvw/pane-deck/internal/logging"
)

// Source yields the events that happened after since (all events for a
// zero since).
type Source interface {
	Events(ctx context.Context, since time.Time) ([]Event, error)
}

// LogSource reads events from the agent-team log file. The file is re-read
// on every call.
type LogSource struct {
	Path   string
	Logger *logrus.Entry
}

// Events returns the parsed events in file order. A missing log means no
// events; a read failure is logged and also means no events.
func (s *LogSource) Events(_ context.Context, since time.Time) ([]Event, error) {
	path := s.Path
	if path == "" {
		path = DefaultLogPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger := s.Logger
			if logger == nil {
				logger = logging.Component(nil, "events")
			}
			logger.WithError(err).WithField("path", path).Warn("failed to read event log")
		}
		return []Event{}, nil
	}

	events := []Event{}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, ok := ParseLine(line)
		if !ok || !e.After(since) {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// Store is an in-memory event source. It backs the mock backend.
type Store struct {
	mu   sync.RWMutex
	data []Event
}

// NewStore creates a store holding events.
func NewStore(events ...Event) *Store {
	s := &Store{}
	for _, e := range events {
		s.Add(e)
	}
	return s
}

// Add records an event.
func (s *Store) Add(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, e)
}

// Events returns the events after since, oldest first. Events with
// unparseable timestamps sort last in insertion order.
func (s *Store) Events(_ context.Context, since time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Event, 0, len(s.data))
	for _, e := range s.data {
		if e.After(since) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		ti, oki := result[i].Time()
		tj, okj := result[j].Time()
		if oki != okj {
			return oki
		}
		return oki && ti.Before(tj)
	})
	return result, nil
}

// DemoEvents returns the feed served by the mock backend.
func DemoEvents() []Event {
	return []Event{
		{
			Timestamp: "2026-02-12T05:30:00Z",
			Type:      TypeTeammateIdle,
			Message:   `Teammate "researcher" went idle in ~/repos/exfoliate-shop.`,
			Agent:     "researcher",
			Repo:      "~/repos/exfoliate-shop",
		},
		{
			Timestamp: "2026-02-12T05:28:00Z",
			Type:      TypeTaskCompleted,
			Message:   `Task "implement auth" completed in ~/repos/knowhere.`,
			Repo:      "~/repos/knowhere",
		},
		{
			Timestamp: "2026-02-12T05:25:00Z",
			Type:      TypeTeammateIdle,
			Message:   `Teammate "tester" went idle in ~/repos/clarity.`,
			Agent:     "tester",
			Repo:      "~/repos/clarity",
		},
	}
}
