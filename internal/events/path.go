package events

// DefaultLogPath is where agent hooks append team events.
const DefaultLogPath = "/tmp/openclaw-tmux/agent-team-events.log"
