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

func (a App) renderTrendTab(cw int) string {
	t := theme.Active
	var b strings.Builder

	chart := components.RateChart(a.trend, components.CardInnerWidth(cw), 10)
	title := fmt.Sprintf("Success rate, %d months to %s", len(a.trend), a.month.Title())
	b.WriteString(components.ContentCard(title, chart, cw, false))
	b.WriteString("\n")

	// Month-by-month table, newest first
	head := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	cell := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var rows strings.Builder
	rows.WriteString(head.Render(fmt.Sprintf("%-16s %8s %8s %8s", "Month", "Clean", "Tokens", "Rate")))
	for i := len(a.trend) - 1; i >= 0; i-- {
		p := a.trend[i]
		if p.Month.After(a.today.MonthOf()) {
			continue
		}
		rows.WriteString("\n")
		rows.WriteString(cell.Render(fmt.Sprintf("%-16s %8d %8s ", p.Month.Title(), p.CleanDays, cli.FormatTokens(model.MaxTokensPerMonth-p.TokensUsed))))
		rows.WriteString(lipgloss.NewStyle().Foreground(components.ColorForRate(p.SuccessRate)).Background(t.Surface).
			Render(fmt.Sprintf("%8s", cli.FormatPercent(p.SuccessRate))))
	}
	b.WriteString(components.ContentCard("By month", rows.String(), cw, false))

	return b.String()
}
