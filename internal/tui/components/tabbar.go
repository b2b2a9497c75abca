package components

import (
	"strings"

	"github.com/theirongolddev/quitc/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab is one entry of the tab bar.
type Tab struct {
	Name string
	Key  rune
}

// Tabs defines all available tabs in display order.
var Tabs = []Tab{
	{Name: "Calendar", Key: '1'},
	{Name: "Stats", Key: '2'},
	{Name: "Trend", Key: '3'},
}

const tabSeparator = "│"

// TabVisualWidth returns the rendered width of a tab, for mouse hit testing.
// Inactive tabs carry a "[k]" shortcut hint.
func TabVisualWidth(tab Tab, active bool) int {
	w := lipgloss.Width(tab.Name) + 2
	if !active {
		w += 3
	}
	return w
}

// RenderTabBar renders a single-row tab bar with the given active index.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true).
		Padding(0, 1)
	inactiveStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Padding(0, 1)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	sepStyle := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface)

	parts := make([]string, 0, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts = append(parts, activeStyle.Render(tab.Name))
			continue
		}
		parts = append(parts, inactiveStyle.Render(tab.Name)+keyStyle.Render("["+string(tab.Key)+"]"))
	}

	row := strings.Join(parts, sepStyle.Render(tabSeparator))
	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(row)
}

// TabIdxByKey returns the tab index for a shortcut key, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}

// TabAtX returns the tab index rendered at column x, or -1.
func TabAtX(x, activeIdx int) int {
	pos := 0
	for i, tab := range Tabs {
		w := TabVisualWidth(tab, i == activeIdx)
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + lipgloss.Width(tabSeparator)
	}
	return -1
}
