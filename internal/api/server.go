// Package api serves the session tracker over HTTP for the web dashboard.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/timvw/pane-deck/internal/events"
	"github.com/timvw/pane-deck/internal/logging"
	"github.com/timvw/pane-deck/internal/model"
	"github.com/timvw/pane-deck/internal/muxerr"
	"github.com/timvw/pane-deck/internal/tracker"
)

// DefaultCaptureLines is the back-scroll returned by capture when the
// client does not ask for a size.
const DefaultCaptureLines = 200

const toolNotInstalledMessage = "tmux is not installed on this machine."

// Sessions is the tracker surface the API needs.
type Sessions interface {
	List(ctx context.Context) (map[string]model.UnifiedSession, error)
	Create(ctx context.Context, req tracker.CreateRequest) (string, error)
	Kill(ctx context.Context, name string) error
	Panes(ctx context.Context, session string) ([]model.LivePane, error)
	Capture(ctx context.Context, paneID string, lines int) (tracker.Capture, error)
	SendKeys(ctx context.Context, paneID, keys string) error
}

// Options configures the router.
type Options struct {
	CORSOrigins []string
	RateLimit   RateLimitConfig // applied to mutating routes
	Logger      *logrus.Entry
}

// Server holds the HTTP handlers.
type Server struct {
	sessions Sessions
	events   events.Source
	log      *logrus.Entry
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(sessions Sessions, feed events.Source, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Component(nil, "api")
	}
	s := &Server{sessions: sessions, events: feed, log: logger}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(AccessLog(logger))
	router.Use(CORS(opts.CORSOrigins))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	limited := RateLimit(opts.RateLimit)
	tmux := router.Group("/api/tmux")
	{
		tmux.GET("/sessions", s.ListSessions)
		tmux.POST("/sessions", limited, s.CreateSession)
		tmux.DELETE("/sessions", limited, s.KillSession)
		tmux.GET("/panes", s.ListPanes)
		tmux.GET("/capture", s.CapturePane)
		tmux.POST("/send-keys", limited, s.SendKeys)
		tmux.GET("/events", s.ListEvents)
	}

	return router
}

// ListSessions returns the unified session map.
func (s *Server) ListSessions(c *gin.Context) {
	sessions, err := s.sessions.List(c.Request.Context())
	if err != nil {
		status, msg := s.classify(c, err)
		if status == http.StatusInternalServerError {
			msg = "Failed to read tmux sessions: " + msg
		}
		c.JSON(status, gin.H{"sessions": gin.H{}, "error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// CreateSession spawns a new agent session.
func (s *Server) CreateSession(c *gin.Context) {
	var req tracker.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	name, err := s.sessions.Create(c.Request.Context(), req)
	if err != nil {
		status, msg := s.classify(c, err)
		if errors.Is(err, tracker.ErrSessionExists) {
			msg = fmt.Sprintf("Session %q already exists.", strings.TrimSpace(req.Name))
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessionName": name})
}

// KillSession terminates a session by name.
func (s *Server) KillSession(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session name required"})
		return
	}

	if err := s.sessions.Kill(c.Request.Context(), name); err != nil {
		status, msg := s.classify(c, err)
		if status == http.StatusNotFound {
			msg = fmt.Sprintf("Session %q not found.", name)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListPanes returns the panes of one session.
func (s *Server) ListPanes(c *gin.Context) {
	session := c.Query("session")
	if session == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session name required"})
		return
	}

	panes, err := s.sessions.Panes(c.Request.Context(), session)
	if err != nil {
		status, msg := s.classify(c, err)
		if status == http.StatusNotFound {
			msg = fmt.Sprintf("Session %q not found.", session)
		}
		c.JSON(status, gin.H{"panes": []model.LivePane{}, "error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"panes": panes})
}

// CapturePane returns a pane's content and cursor.
func (s *Server) CapturePane(c *gin.Context) {
	paneID := c.Query("pane")
	if paneID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Pane ID required"})
		return
	}

	lines := DefaultCaptureLines
	if raw := c.Query("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lines must be a non-negative integer"})
			return
		}
		lines = n
	}

	capture, err := s.sessions.Capture(c.Request.Context(), paneID, lines)
	if err != nil {
		status, msg := s.classify(c, err)
		c.JSON(status, gin.H{"content": "", "cursor": model.Cursor{}, "error": msg})
		return
	}
	c.JSON(http.StatusOK, capture)
}

type sendKeysRequest struct {
	PaneID string `json:"paneId"`
	Keys   string `json:"keys"`
}

// SendKeys injects keystrokes into a pane.
func (s *Server) SendKeys(c *gin.Context) {
	var req sendKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	if req.PaneID == "" || req.Keys == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Pane ID and keys are required"})
		return
	}

	if err := s.sessions.SendKeys(c.Request.Context(), req.PaneID, req.Keys); err != nil {
		status, msg := s.classify(c, err)
		if status == http.StatusNotFound {
			msg = fmt.Sprintf("Pane %q not found.", req.PaneID)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListEvents returns agent-team events, optionally only those after since.
func (s *Server) ListEvents(c *gin.Context) {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"events": []events.Event{}, "error": "since must be an RFC 3339 timestamp"})
			return
		}
		since = t
	}

	list, err := s.events.Events(c.Request.Context(), since)
	if err != nil {
		s.log.WithError(err).WithField(requestIDKey, c.GetString(requestIDKey)).Warn("failed to read events")
		list = []events.Event{}
	}
	if list == nil {
		list = []events.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": list})
}

// classify maps a tracker error to an HTTP status and message.
func (s *Server) classify(c *gin.Context, err error) (int, string) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, tracker.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, tracker.ErrSessionExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, tracker.ErrSessionNotFound), errors.Is(err, tracker.ErrPaneNotFound):
		return http.StatusNotFound, err.Error()
	}

	switch tracker.KindOf(err) {
	case muxerr.ToolNotInstalled:
		return http.StatusServiceUnavailable, toolNotInstalledMessage
	case muxerr.TargetMissing:
		return http.StatusNotFound, muxerr.Message(err)
	}
	return http.StatusInternalServerError, muxerr.Message(err)
}
