package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/timvw/pane-deck/internal/model"
)

// Palette for terminal output, adapted to light and dark backgrounds.
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#b35c00", Dark: "#fab283"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#116329", Dark: "#7fd88f"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#bf8700", Dark: "#f5a742"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#656d76", Dark: "#808080"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#d0d7de", Dark: "#484848"}
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = cellStyle.Foreground(colorMuted)
)

const maxLastLineWidth = 60

// statusStyle colors a status cell: running sessions stand out, idle ones fade.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case model.StatusRunning:
		return cellStyle.Foreground(colorSuccess)
	case model.StatusIdle:
		return mutedStyle
	default:
		return cellStyle.Foreground(colorWarning)
	}
}

// renderSessions renders sessions as a table sorted by name.
func renderSessions(sessions map[string]model.UnifiedSession) string {
	names := make([]string, 0, len(sessions))
	for name := range sessions {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		s := sessions[name]
		rows = append(rows, []string{
			s.Name,
			s.Status,
			s.ActivityState,
			s.Agent,
			s.Repo,
			s.LastUsed,
			truncate(s.LastLine, maxLastLineWidth),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("NAME", "STATUS", "ACTIVITY", "AGENT", "REPO", "LAST USED", "LAST LINE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1 && row < len(rows):
				return statusStyle(rows[row][1])
			case col >= 5:
				return mutedStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

// renderPanes renders the panes of one session.
func renderPanes(panes []model.LivePane) string {
	rows := make([][]string, 0, len(panes))
	for _, p := range panes {
		active := ""
		if p.IsActive {
			active = "*"
		}
		rows = append(rows, []string{
			p.ID,
			active,
			fmt.Sprintf("%dx%d", p.Width, p.Height),
			p.CurrentCommand,
			p.CurrentPath,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("PANE", "ACTIVE", "SIZE", "COMMAND", "PATH").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// printNotice writes a muted line to stderr so stdout stays parseable.
func printNotice(format string, args ...any) {
	fmt.Fprintln(os.Stderr, mutedStyle.Render(strings.TrimSpace(fmt.Sprintf(format, args...))))
}
