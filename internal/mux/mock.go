package mux

import (
	"time"

	"github.com/timvw/pane-deck/internal/model"
)

const demoPaneContent = "\x1b[32m✓\x1b[0m Starting development server...\n" +
	"\x1b[36minfo\x1b[0m  - SvelteKit running on \x1b[1mhttp://localhost:5173\x1b[0m\n" +
	"\n" +
	"\x1b[33m▶\x1b[0m Building routes...\n" +
	"\x1b[32m✓\x1b[0m Build complete\n" +
	"\n" +
	"\x1b[2m[05:30:15]\x1b[0m \x1b[36mGET\x1b[0m /api/tmux/sessions \x1b[32m200\x1b[0m in 12ms\n" +
	"\x1b[2m[05:30:16]\x1b[0m \x1b[36mGET\x1b[0m /api/tmux/panes?session=exfoliate-shop \x1b[32m200\x1b[0m in 8ms\n" +
	"\n" +
	"Agent working on task: \x1b[1mImplement shopping cart\x1b[0m\n" +
	"  \x1b[2m- Adding cart state management\x1b[0m\n" +
	"  \x1b[2m- Writing tests\x1b[0m\n" +
	"\n" +
	"\x1b[32m✓\x1b[0m Task completed successfully\n"

// NewMock returns a Fake seeded with demo sessions relative to now. It backs
// the "mock" multiplexer used for UI development without tmux.
func NewMock(now time.Time) *Fake {
	f := NewFake()
	f.Now = time.Now

	epoch := func(ago time.Duration) *int64 {
		v := now.Add(-ago).Unix()
		return &v
	}

	f.AddSession(model.LiveSession{Name: "exfoliate-shop", CreatedEpoch: epoch(19 * time.Hour), ActivityEpoch: epoch(time.Minute), AttachedClients: 1})
	f.AddSession(model.LiveSession{Name: "knowhere-backend", CreatedEpoch: epoch(39 * time.Hour), ActivityEpoch: epoch(6 * time.Minute)})
	f.AddSession(model.LiveSession{Name: "clarity-ui", CreatedEpoch: epoch(13 * time.Hour), ActivityEpoch: epoch(2 * time.Hour)})

	f.AddPane(model.LivePane{SessionName: "exfoliate-shop", ID: "%0", Width: 200, Height: 50, CurrentCommand: "claude", CurrentPath: "/home/dev/repos/exfoliate-shop", IsActive: true}, demoPaneContent)
	f.AddPane(model.LivePane{SessionName: "knowhere-backend", ID: "%1", Width: 200, Height: 50, CurrentCommand: "node", CurrentPath: "/home/dev/repos/knowhere", IsActive: true}, "\x1b[36m›\x1b[0m codex exec \"refactor the API handlers\"\nApplying patch to internal/api/handlers.go\n")
	f.AddPane(model.LivePane{SessionName: "knowhere-backend", ID: "%2", Width: 100, Height: 50, CurrentCommand: "zsh", CurrentPath: "/home/dev/repos/knowhere"}, "$ \n")
	f.AddPane(model.LivePane{SessionName: "clarity-ui", ID: "%3", Width: 200, Height: 50, CurrentCommand: "zsh", CurrentPath: "/home/dev/repos/clarity", IsActive: true}, "$ npm test\n\x1b[32m42 passing\x1b[0m\n$ \n")

	return f
}
