package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/quitc/internal/model"
	"github.com/theirongolddev/quitc/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ColorForRate returns the clean color for a healthy success rate, fading to
// warning and danger as it drops.
func ColorForRate(rate int) lipgloss.Color {
	t := theme.Active
	switch {
	case rate >= 80:
		return t.Clean
	case rate >= 50:
		return t.Warning
	default:
		return t.Danger
	}
}

// RateBar renders a labeled success-rate bar with its percentage.
func RateBar(label string, rate, labelW, barWidth int) string {
	t := theme.Active

	if rate < 0 {
		rate = 0
	}
	if rate > 100 {
		rate = 100
	}
	color := ColorForRate(rate)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		bar.ViewAs(float64(rate)/100) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%3d%%", rate))
}

// TokenPips renders the monthly HEART tokens as filled and spent hearts.
func TokenPips(left int) string {
	t := theme.Active
	if left < 0 {
		left = 0
	}
	if left > model.MaxTokensPerMonth {
		left = model.MaxTokensPerMonth
	}

	color := t.Heart
	if left == 1 {
		color = t.Warning
	}
	fullStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	spentStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	return fullStyle.Render(strings.Repeat("♥", left)) +
		spentStyle.Render(strings.Repeat("♡", model.MaxTokensPerMonth-left))
}
