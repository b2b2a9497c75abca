package components

import (
	"strings"

	"github.com/theirongolddev/quitc/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusKind colors the status bar message.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusOK
	StatusWarn
	StatusError
)

// RenderStatusBar renders the bottom bar: key hints on the left, the latest
// message on the right.
func RenderStatusBar(width int, hints, msg string, kind StatusKind) string {
	t := theme.Active

	base := lipgloss.NewStyle().Background(t.Surface)
	hintStyle := base.Foreground(t.TextMuted)

	msgColor := t.TextMuted
	switch kind {
	case StatusOK:
		msgColor = t.Clean
	case StatusWarn:
		msgColor = t.Warning
	case StatusError:
		msgColor = t.Danger
	}
	msgStyle := base.Foreground(msgColor).Bold(kind != StatusInfo)

	left := hintStyle.Render(" " + hints)
	right := ""
	if msg != "" {
		right = msgStyle.Render(msg + " ")
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + base.Render(strings.Repeat(" ", gap)) + right
}
