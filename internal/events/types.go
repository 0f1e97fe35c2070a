// Package events reads the agent-team event feed: one line per teammate
// going idle or task completing, appended by agent hooks to a shared log.
package events

import (
	"regexp"
	"strings"
	"time"
)

const (
	TypeTeammateIdle  = "teammate-idle"
	TypeTaskCompleted = "task-completed"
)

// Event is one parsed line of the agent-team log.
type Event struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Agent     string `json:"agent,omitempty"`
	Repo      string `json:"repo,omitempty"`
}

// Line format:
//
//	[2026-02-12T05:30:00Z] [agent-team:teammate-idle] Teammate "researcher" went idle in ~/repos/project.
var (
	linePattern  = regexp.MustCompile(`\[([^\]]+)\] \[agent-team:(teammate-idle|task-completed)\] (.+)`)
	agentPattern = regexp.MustCompile(`Teammate "([^"]+)"`)
	repoPattern  = regexp.MustCompile(`in (.+)\.$`)
)

// ParseLine parses one log line. Lines that are not agent-team events are
// rejected.
func ParseLine(line string) (Event, bool) {
	m := linePattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return Event{}, false
	}
	e := Event{Timestamp: m[1], Type: m[2], Message: m[3]}
	if am := agentPattern.FindStringSubmatch(e.Message); am != nil {
		e.Agent = am[1]
	}
	if rm := repoPattern.FindStringSubmatch(e.Message); rm != nil {
		e.Repo = rm[1]
	}
	return e, true
}

// Time parses the event timestamp.
func (e Event) Time() (time.Time, bool) {
	ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// After reports whether the event happened strictly after since. A zero
// since admits every event; an unparseable timestamp is never after anything.
func (e Event) After(since time.Time) bool {
	if since.IsZero() {
		return true
	}
	ts, ok := e.Time()
	return ok && ts.After(since)
}
