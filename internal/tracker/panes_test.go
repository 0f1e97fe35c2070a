package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timvw/pane-deck/internal/model"
	"github.com/timvw/pane-deck/internal/mux"
	"github.com/timvw/pane-deck/internal/muxerr"
)

func TestPanes(t *testing.T) {
	f := newFixture()
	f.fake.AddSession(model.LiveSession{Name: "build"})
	f.fake.AddSession(model.LiveSession{Name: "other"})
	f.fake.AddPane(model.LivePane{SessionName: "build", ID: "%0", Width: 120, Height: 40, CurrentCommand: "npm"}, "")
	f.fake.AddPane(model.LivePane{SessionName: "build", ID: "%1", CurrentCommand: "zsh"}, "")
	f.fake.AddPane(model.LivePane{SessionName: "other", ID: "%2"}, "")

	panes, err := f.t.Panes(context.Background(), "build")
	require.NoError(t, err)
	require.Len(t, panes, 2)
	assert.Equal(t, "%0", panes[0].ID)
	assert.Equal(t, 120, panes[0].Width)
	assert.Equal(t, "%1", panes[1].ID)
}

func TestPanes_Errors(t *testing.T) {
	f := newFixture()

	_, err := f.t.Panes(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.t.Panes(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	f.fake.FailOn("list-panes", mux.ServerNotRunningError("list-panes"))
	panes, err := f.t.Panes(context.Background(), "nope")
	require.NoError(t, err)
	assert.NotNil(t, panes)
	assert.Empty(t, panes)

	f.fake.FailOn("list-panes", notInstalled())
	_, err = f.t.Panes(context.Background(), "nope")
	assert.Equal(t, muxerr.ToolNotInstalled, KindOf(err))
}

func TestCapture(t *testing.T) {
	f := newFixture()
	f.fake.AddSession(model.LiveSession{Name: "build"})
	f.fake.AddPane(model.LivePane{SessionName: "build", ID: "%0"}, "one\n\x1b[1mtwo\x1b[0m\nthree")
	f.fake.SetCursor("%0", model.Cursor{X: 5, Y: 2})

	c, err := f.t.Capture(context.Background(), "%0", 0)
	require.NoError(t, err)
	assert.Equal(t, "one\n\x1b[1mtwo\x1b[0m\nthree", c.Content, "control sequences are preserved")
	assert.Equal(t, model.Cursor{X: 5, Y: 2}, c.Cursor)

	c, err = f.t.Capture(context.Background(), "%0", 2)
	require.NoError(t, err)
	assert.Equal(t, "\x1b[1mtwo\x1b[0m\nthree", c.Content)
}

func TestCapture_Degrades(t *testing.T) {
	f := newFixture()

	_, err := f.t.Capture(context.Background(), "", 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	c, err := f.t.Capture(context.Background(), "%404", 0)
	require.NoError(t, err, "a vanished pane is an empty capture")
	assert.Equal(t, Capture{}, c)

	f.fake.FailOn("capture-pane", mux.ServerNotRunningError("capture-pane"))
	c, err = f.t.Capture(context.Background(), "%404", 0)
	require.NoError(t, err)
	assert.Equal(t, Capture{}, c)
}

func TestCapture_Failures(t *testing.T) {
	f := newFixture()
	f.fake.AddSession(model.LiveSession{Name: "build"})
	f.fake.AddPane(model.LivePane{SessionName: "build", ID: "%0"}, "x")

	f.fake.FailOn("display-message", unknownFailure("display-message"))
	_, err := f.t.Capture(context.Background(), "%0", 0)
	require.Error(t, err)
	assert.Equal(t, muxerr.Unknown, KindOf(err))

	f.fake.FailOn("capture-pane", notInstalled())
	_, err = f.t.Capture(context.Background(), "%0", 0)
	require.Error(t, err)
	assert.Contains(t, []muxerr.Kind{muxerr.ToolNotInstalled, muxerr.Unknown}, KindOf(err))
}

func TestSendKeys(t *testing.T) {
	f := newFixture()
	f.fake.AddSession(model.LiveSession{Name: "build"})
	f.fake.AddPane(model.LivePane{SessionName: "build", ID: "%0"}, "")

	require.NoError(t, f.t.SendKeys(context.Background(), "%0", "y"))
	require.NoError(t, f.t.SendKeys(context.Background(), "%0", "\r"))

	sent := f.fake.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, mux.SentKeys{PaneID: "%0", Keys: "y"}, sent[0])
	assert.Equal(t, mux.SentKeys{PaneID: "%0", Keys: "\r"}, sent[1])
}

func TestSendKeys_Errors(t *testing.T) {
	f := newFixture()

	assert.ErrorIs(t, f.t.SendKeys(context.Background(), "", "y"), ErrInvalidRequest)
	assert.ErrorIs(t, f.t.SendKeys(context.Background(), "%0", ""), ErrInvalidRequest)
	assert.ErrorIs(t, f.t.SendKeys(context.Background(), "%9", "y"), ErrPaneNotFound)

	f.fake.FailOn("send-keys", mux.ServerNotRunningError("send-keys"))
	assert.ErrorIs(t, f.t.SendKeys(context.Background(), "%9", "y"), ErrPaneNotFound)

	f.fake.FailOn("send-keys", notInstalled())
	assert.Equal(t, muxerr.ToolNotInstalled, KindOf(f.t.SendKeys(context.Background(), "%9", "y")))
}
