package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/quitc/internal/cli"
	"github.com/theirongolddev/quitc/internal/model"
	"github.com/theirongolddev/quitc/internal/tui/components"
	"github.com/theirongolddev/quitc/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

const (
	calCellW    = 5
	calCardW    = 7*calCellW + 4 // cells + border + padding
	sidePanelW  = 30
	calendarGap = 1
)

func (a App) renderCalendarTab(cw int) string {
	cal := components.ContentCard(a.calendarTitle(), a.renderMonthGrid(), calCardW, true)

	if cw < calCardW+calendarGap+sidePanelW {
		return cal + "\n" + a.renderDayPanel(calCardW)
	}

	sideW := cw - calCardW - calendarGap
	if sideW > 2*sidePanelW {
		sideW = 2 * sidePanelW
	}
	gap := lipgloss.NewStyle().Background(theme.Active.Background).Render(" ")
	return components.CardRow([]string{cal, gap, a.renderDayPanel(sideW)})
}

func (a App) calendarTitle() string {
	t := theme.Active
	arrow := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	title := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	return arrow.Render("[ ") + title.Render(a.month.Title()) + arrow.Render(" ]")
}

// renderMonthGrid draws the Sunday-first month with the cursor highlighted.
func (a App) renderMonthGrid() string {
	t := theme.Active
	headStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var b strings.Builder
	for wd := 0; wd < 7; wd++ {
		b.WriteString(headStyle.Render(fmt.Sprintf("%-*s", calCellW, cli.FormatDayOfWeek(wd)[:2])))
	}
	for _, week := range a.grid {
		b.WriteString("\n")
		for _, cell := range week {
			b.WriteString(a.renderDayCell(cell))
		}
	}
	return b.String()
}

func (a App) renderDayCell(cell model.DayCell) string {
	t := theme.Active
	style := lipgloss.NewStyle().Background(t.Surface).Width(calCellW)
	if cell.Date.IsZero() {
		return style.Render("")
	}

	glyph := " "
	fg := t.TextPrimary
	switch {
	case cell.Marked && cell.Status == model.StatusClean:
		glyph, fg = "✓", t.Clean
	case cell.Marked && cell.Status == model.StatusHeart:
		glyph, fg = "♥", t.Heart
	case cell.Future:
		fg = t.TextDim
	case !cell.IsToday:
		glyph, fg = "·", t.Danger
	}

	style = style.Foreground(fg)
	if cell.IsToday {
		style = style.Underline(true).Bold(true)
	}
	if cell.Date == a.cursor {
		style = style.Background(t.SurfaceHover).Bold(true)
	}
	return style.Render(fmt.Sprintf("%2d%s", cell.Date.Day, glyph))
}

// renderDayPanel shows the selected day and the month at a glance.
func (a App) renderDayPanel(w int) string {
	t := theme.Active
	s := a.summary

	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Bold(true)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	status, marked := a.days[a.cursor]
	dayState := cli.FormatStatus(status, marked)
	switch {
	case !marked && a.cursor.After(a.today):
		dayState = "upcoming"
	case !marked && a.cursor == a.today:
		dayState = "not logged yet"
	case !marked:
		dayState = "not logged"
	}

	row := func(k, v string) string {
		return label.Render(fmt.Sprintf("%-16s", k)) + value.Render(v) + "\n"
	}

	var b strings.Builder
	b.WriteString(value.Render(a.cursor.Time().Format("Monday, Jan 2 2006")))
	b.WriteString("\n")
	b.WriteString(label.Render(dayState))
	b.WriteString("\n\n")
	b.WriteString(label.Render(fmt.Sprintf("%-16s", "Tokens left")) + components.TokenPips(s.TokensLeft) + "\n")
	b.WriteString(row("Success rate", cli.FormatPercent(s.SuccessRate)))
	b.WriteString(row("Current streak", cli.FormatDays(s.CurrentStreak)))
	b.WriteString(row("Longest streak", cli.FormatDays(s.LongestStreak)))
	b.WriteString("\n")
	b.WriteString(dim.Render(cli.FormatMonthDelta(a.month, a.today.MonthOf())))

	return components.ContentCard("Selected day", b.String(), w, false)
}
