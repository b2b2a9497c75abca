package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/quitc/internal/cli"
	"github.com/theirongolddev/quitc/internal/model"
	"github.com/theirongolddev/quitc/internal/tui/components"
	"github.com/theirongolddev/quitc/internal/tui/theme"
)

func (a App) renderStatsTab(cw int) string {
	t := theme.Active
	s := a.summary
	var b strings.Builder

	tokenColor := t.Heart
	if s.TokensLeft <= 1 {
		tokenColor = t.Warning
	}

	// Row 1: the month
	b.WriteString(components.MetricRow([]components.Metric{
		{Label: "Clean days", Value: cli.FormatNumber(int64(s.CleanDays)), Note: "of " + cli.FormatDays(s.DaysPassed), Color: t.Clean},
		{Label: "Tokens left", Value: fmt.Sprintf("%d / %d", s.TokensLeft, model.MaxTokensPerMonth), Note: fmt.Sprintf("%d used", s.TokensUsed), Color: tokenColor},
		{Label: "Failed days", Value: cli.FormatNumber(int64(s.FailedDays)), Note: "not logged", Color: t.Danger},
		{Label: "Success rate", Value: cli.FormatPercent(s.SuccessRate), Note: a.policyNote(), Color: components.ColorForRate(s.SuccessRate)},
	}, cw))
	b.WriteString("\n")

	// Row 2: streaks and totals
	b.WriteString(components.MetricRow([]components.Metric{
		{Label: "Current streak", Value: cli.FormatDays(s.CurrentStreak), Color: t.Clean},
		{Label: "Longest streak", Value: cli.FormatDays(s.LongestStreak)},
		{Label: fmt.Sprintf("Clean in %d", s.Month.Year), Value: cli.FormatDays(s.YearCleanDays)},
		{Label: "All time", Value: cli.FormatDays(s.TotalCleanDays), Note: fmt.Sprintf("%d tokens used", s.TotalTokens)},
	}, cw))
	b.WriteString("\n")

	// Row 3: progress
	inner := components.CardInnerWidth(cw)
	barW := inner - 16 - 6
	if barW < 10 {
		barW = 10
	}
	body := components.RateBar("Success rate", s.SuccessRate, 14, barW)
	if s.DaysPassed > 0 {
		logged := (s.CleanDays + s.TokensUsed) * 100 / s.DaysPassed
		body += "\n" + components.RateBar("Days logged", logged, 14, barW)
	}
	b.WriteString(components.ContentCard(a.month.Title(), body, cw, false))

	return b.String()
}

func (a App) policyNote() string {
	if a.policy.HeartCountsAsSuccess {
		return "clean + ♥ days"
	}
	return "clean days only"
}
