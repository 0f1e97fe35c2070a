package tracker

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timvw/pane-deck/internal/metadata"
	"github.com/timvw/pane-deck/internal/model"
	"github.com/timvw/pane-deck/internal/mux"
	"github.com/timvw/pane-deck/internal/muxerr"
)

var testNow = time.Unix(1770874200, 0) // 2026-02-12T05:30:00Z

type fixture struct {
	fake  *mux.Fake
	store *metadata.MemoryStore
	logs  *bytes.Buffer
	t     *Tracker
}

func newFixture() *fixture {
	fake := mux.NewFake()
	fake.Now = func() time.Time { return testNow }
	store := metadata.NewMemoryStore(model.NewSessionsState())

	logs := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(logs)

	return &fixture{
		fake:  fake,
		store: store,
		logs:  logs,
		t: &Tracker{
			Mux:    fake,
			Store:  store,
			Policy: DefaultPolicy(),
			Shell:  "/bin/zsh",
			Logger: logger.WithField("component", "tracker"),
			Now:    func() time.Time { return testNow },
		},
	}
}

func (f *fixture) persist(md model.SessionMetadata) {
	state := f.store.Load()
	state.Sessions[md.Name] = md
	_ = f.store.Save(state)
}

func notInstalled() error {
	return &muxerr.CommandError{
		Args:     []string{"list-sessions"},
		ExitCode: -1,
		Err:      &exec.Error{Name: "tmux", Err: exec.ErrNotFound},
	}
}

func unknownFailure(op string) error {
	return &muxerr.CommandError{
		Args:     []string{op},
		Stderr:   "protocol version mismatch\n",
		ExitCode: 1,
		Err:      errors.New("exit status 1"),
	}
}

func TestList_BuildAndChat(t *testing.T) {
	f := newFixture()
	f.fake.AddSession(model.LiveSession{Name: "build", CreatedEpoch: epochAgo(testNow, time.Hour), ActivityEpoch: epochAgo(testNow, 2*time.Minute)})
	f.fake.AddSession(model.LiveSession{Name: "chat", CreatedEpoch: epochAgo(testNow, time.Hour), ActivityEpoch: epochAgo(testNow, 20*time.Minute)})
	f.fake.AddPane(model.LivePane{SessionName: "build", ID: "%0", CurrentCommand: "npm", CurrentPath: "/home/dev/build", IsActive: true}, "\x1b[32m✓\x1b[0m compiled\n\n")
	f.fake.AddPane(model.LivePane{SessionName: "chat", ID: "%1", CurrentCommand: "zsh", CurrentPath: "/home/dev/chat", IsActive: true}, "$ \n")

	sessions, err := f.t.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	build := sessions["build"]
	assert.Equal(t, model.StatusRunning, build.Status)
	assert.Equal(t, model.ActivityRunning, build.ActivityState)
	assert.Equal(t, "npm", build.CurrentCommand)
	assert.Equal(t, "%0", build.ActivePaneID)
	assert.Equal(t, "✓ compiled", build.LastLine)

	chat := sessions["chat"]
	assert.Equal(t, model.StatusIdle, chat.Status)
	assert.Equal(t, model.ActivityWaiting, chat.ActivityState)
	assert.Equal(t, "$", chat.LastLine)
}

func TestList_InferredFieldsWithoutMetadata(t *testing.T) {
	f := newFixture()
	f.fake.AddSession(model.LiveSession{Name: "codex-api", CreatedEpoch: epochAgo(testNow, time.Hour), ActivityEpoch: epochAgo(testNow, time.Minute)})
	f.fake.AddPane(model.LivePane{SessionName: "codex-api", ID: "%0", CurrentCommand: "node", CurrentPath: "/srv/api", IsActive: true}, "")

	sessions, err := f.t.List(context.Background())
	require.NoError(t, err)

	s := sessions["codex-api"]
	assert.Equal(t, model.AgentCodex, s.Agent)
	assert.Equal(t, "/srv/api", s.Repo)
	assert.Equal(t, "2026-02-12T04:30:00Z", s.Created)
	assert.Equal(t, "2026-02-12T05:29:00Z", s.LastUsed)
	assert.Empty(t, s.Topic)
	assert.Empty(t, s.SystemPrompt)
	assert.Empty(t, s.LastLine)
}

func TestList_MetadataWins(t *testing.T) {
	f := newFixture()
	f.fake.AddSession(model.LiveSession{Name: "shop", CreatedEpoch: epochAgo(testNow, time.Hour), ActivityEpoch: epochAgo(testNow, time.Minute)})
	f.fake.AddPane(model.LivePane{SessionName: "shop", ID: "%0", CurrentCommand: "codex", CurrentPath: "/tmp/elsewhere", IsActive: true}, "")
	f.persist(model.SessionMetadata{
		Name:         "shop",
		Agent:        model.AgentClaude,
		Repo:         "~/repos/shop",
		SystemPrompt: "be brief",
		Topic:        "cart",
		Created:      "2026-02-11T10:30:00Z",
	})

	sessions, err := f.t.List(context.Background())
	require.NoError(t, err)

	s := sessions["shop"]
	assert.Equal(t, model.AgentClaude, s.Agent)
	assert.Equal(t, "~/repos/shop", s.Repo)
	assert.Equal(t, "be brief", s.SystemPrompt)
	assert.Equal(t, "cart", s.Topic)
	assert.Equal(t, "2026-02-11T10:30:00Z", s.Created)
}

func TestList_PersistedStatusOverride(t *testing.T) {
	f := newFixture()
	f.fake.AddSession(model.LiveSession{Name: "busy", ActivityEpoch: epochAgo(testNow, time.Minute), AttachedClients: 1})
	f.fake.AddPane(model.LivePane{SessionName: "busy", ID: "%0", CurrentCommand: "claude", IsActive: true}, "")
	f.fake.AddSession(model.LiveSession{Name: "quiet", ActivityEpoch: epochAgo(testNow, 3*time.Hour)})
	f.fake.AddPane(model.LivePane{SessionName: "quiet", ID: "%1", CurrentCommand: "zsh", IsActive: true}, "")
	f.fake.AddSession(model.LiveSession{Name: "finished", ActivityEpoch: epochAgo(testNow, time.Minute)})
	f.fake.AddPane(model.LivePane{SessionName: "finished", ID: "%2", CurrentCommand: "zsh", IsActive: true}, "")

	f.persist(model.SessionMetadata{Name: "busy", Status: model.StatusIdle})
	f.persist(model.SessionMetadata{Name: "quiet", Status: model.StatusRunning})
	f.persist(model.SessionMetadata{Name: "finished", Status: "done"})

	sessions, err := f.t.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.StatusIdle, sessions["busy"].Status)
	assert.Equal(t, model.ActivityWaiting, sessions["busy"].ActivityState)

	assert.Equal(t, model.StatusRunning, sessions["quiet"].Status)
	assert.Equal(t, model.ActivityWaiting, sessions["quiet"].ActivityState, "a shell is waiting even when running")

	assert.Equal(t, model.StatusRunning, sessions["finished"].Status, "unrecognized overrides fall back to inference")
}

func TestList_SessionWithoutPanes(t *testing.T) {
	f := newFixture()
	f.fake.AddSession(model.LiveSession{Name: "bare", AttachedClients: 1})

	sessions, err := f.t.List(context.Background())
	require.NoError(t, err)

	s := sessions["bare"]
	assert.Equal(t, "~", s.Repo)
	assert.Empty(t, s.ActivePaneID)
	assert.Empty(t, s.CurrentCommand)
	assert.Empty(t, s.LastLine)
	assert.Equal(t, model.StatusRunning, s.Status)
	assert.Equal(t, model.ActivityWaiting, s.ActivityState)
	assert.Equal(t, "2026-02-12T05:30:00Z", s.Created, "unknown epochs format as now")
	assert.Equal(t, "2026-02-12T05:30:00Z", s.LastUsed)
}

func TestList_FirstPaneWhenNoneActive(t *testing.T) {
	f := newFixture()
	f.fake.AddSession(model.LiveSession{Name: "split"})
	f.fake.AddPane(model.LivePane{SessionName: "split", ID: "%7", CurrentCommand: "vim"}, "first\n")
	f.fake.AddPane(model.LivePane{SessionName: "split", ID: "%8", CurrentCommand: "zsh"}, "second\n")

	sessions, err := f.t.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "%7", sessions["split"].ActivePaneID)
	assert.Equal(t, "first", sessions["split"].LastLine)
}

func TestList_StaleMetadataIsOmittedNotDeleted(t *testing.T) {
	f := newFixture()
	f.fake.AddSession(model.LiveSession{Name: "alive"})
	f.persist(model.SessionMetadata{Name: "gone", Agent: model.AgentCodex})

	sessions, err := f.t.List(context.Background())
	require.NoError(t, err)
	assert.Contains(t, sessions, "alive")
	assert.NotContains(t, sessions, "gone")
	assert.Contains(t, f.store.Load().Sessions, "gone")
}

func TestList_NoSessions(t *testing.T) {
	f := newFixture()
	f.fake.FailOn("list-panes", unknownFailure("list-panes"))

	sessions, err := f.t.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
	assert.Empty(t, f.logs.String(), "panes are not listed when there are no sessions")
}

func TestList_ServerNotRunning(t *testing.T) {
	f := newFixture()
	f.fake.FailOn("list-sessions", mux.ServerNotRunningError("list-sessions"))

	sessions, err := f.t.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestList_ToolNotInstalled(t *testing.T) {
	f := newFixture()
	f.fake.FailOn("list-sessions", notInstalled())

	_, err := f.t.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, muxerr.ToolNotInstalled, KindOf(err))
}

func TestList_UnknownFailure(t *testing.T) {
	f := newFixture()
	f.fake.FailOn("list-sessions", unknownFailure("list-sessions"))

	_, err := f.t.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, muxerr.Unknown, KindOf(err))
	assert.Contains(t, err.Error(), "protocol version mismatch")
}

func TestList_PaneListingFailureDegrades(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantLog bool
	}{
		{"server gone", mux.ServerNotRunningError("list-panes"), false},
		{"session vanished", mux.TargetMissingError("list-panes", "session", "x"), false},
		{"unexpected", unknownFailure("list-panes"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.fake.AddSession(model.LiveSession{Name: "build", AttachedClients: 1})
			f.fake.AddPane(model.LivePane{SessionName: "build", ID: "%0", CurrentCommand: "npm", IsActive: true}, "done\n")
			f.fake.FailOn("list-panes", tt.err)

			sessions, err := f.t.List(context.Background())
			require.NoError(t, err)
			require.Contains(t, sessions, "build")
			assert.Empty(t, sessions["build"].ActivePaneID)
			assert.Empty(t, sessions["build"].LastLine)
			assert.Equal(t, tt.wantLog, f.logs.Len() > 0, "logs: %s", f.logs.String())
		})
	}
}

func TestList_PreviewFailuresAreIsolated(t *testing.T) {
	f := newFixture()
	for _, name := range []string{"a", "b", "c"} {
		f.fake.AddSession(model.LiveSession{Name: name, AttachedClients: 1})
	}
	f.fake.AddPane(model.LivePane{SessionName: "a", ID: "%1", CurrentCommand: "node", IsActive: true}, "alpha\n")
	f.fake.AddPane(model.LivePane{SessionName: "b", ID: "%2", CurrentCommand: "node", IsActive: true}, "beta\n")
	f.fake.AddPane(model.LivePane{SessionName: "c", ID: "%3", CurrentCommand: "node", IsActive: true}, "gamma\n")
	f.fake.FailOn("capture-pane:%1", mux.TargetMissingError("capture-pane", "pane", "%1"))
	f.fake.FailOn("capture-pane:%3", unknownFailure("capture-pane"))

	sessions, err := f.t.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	assert.Empty(t, sessions["a"].LastLine)
	assert.Equal(t, "beta", sessions["b"].LastLine)
	assert.Empty(t, sessions["c"].LastLine)

	logs := f.logs.String()
	assert.NotContains(t, logs, "pane=\"%1\"", "missing targets are not logged")
	assert.Contains(t, logs, "failed to capture preview")
	assert.Contains(t, logs, "%3")
}

// slowCapture wraps a Fake to measure capture concurrency.
type slowCapture struct {
	*mux.Fake
	inFlight atomic.Int32
	mu       sync.Mutex
	peak     int32
}

func (s *slowCapture) CapturePane(ctx context.Context, paneID string, lines int) (string, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	s.mu.Lock()
	if n > s.peak {
		s.peak = n
	}
	s.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	return s.Fake.CapturePane(ctx, paneID, lines)
}

func TestList_BoundedParallelism(t *testing.T) {
	f := newFixture()
	slow := &slowCapture{Fake: f.fake}
	f.t.Mux = slow
	f.t.Parallel = 2

	for i := 0; i < 8; i++ {
		name := string(rune('a' + i))
		f.fake.AddSession(model.LiveSession{Name: name})
		f.fake.AddPane(model.LivePane{SessionName: name, ID: "%" + name, IsActive: true}, name+"\n")
	}

	sessions, err := f.t.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 8)
	for name, s := range sessions {
		assert.Equal(t, name, s.LastLine)
	}
	assert.LessOrEqual(t, slow.peak, int32(2))
}

// blockingCapture holds every capture until its context is done.
type blockingCapture struct {
	*mux.Fake
	started chan struct{}
	calls   atomic.Int32
}

func (b *blockingCapture) CapturePane(ctx context.Context, paneID string, lines int) (string, error) {
	b.calls.Add(1)
	b.started <- struct{}{}
	<-ctx.Done()
	return "", ctx.Err()
}

func TestList_CancelDrainsQueuedCaptures(t *testing.T) {
	f := newFixture()
	blocking := &blockingCapture{Fake: f.fake, started: make(chan struct{}, 8)}
	f.t.Mux = blocking
	f.t.Parallel = 1

	for i := 0; i < 6; i++ {
		name := string(rune('a' + i))
		f.fake.AddSession(model.LiveSession{Name: name})
		f.fake.AddPane(model.LivePane{SessionName: name, ID: "%" + name, IsActive: true}, name+"\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-blocking.started
		cancel()
	}()

	start := time.Now()
	sessions, err := f.t.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, sessions)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), blocking.calls.Load(), "queued sessions must not start a capture")
}

func TestList_PreviewLines(t *testing.T) {
	f := newFixture()
	f.t.PreviewLines = 1
	f.fake.AddSession(model.LiveSession{Name: "tail"})
	f.fake.AddPane(model.LivePane{SessionName: "tail", ID: "%0", IsActive: true}, "important\n\n")

	sessions, err := f.t.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions["tail"].LastLine, "only the last (blank) line was captured")
}
