package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/quitc/internal/model"
	"github.com/theirongolddev/quitc/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders percentages in [0,100] as a one-line unicode sparkline.
func Sparkline(values []int, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	var buf strings.Builder
	for _, v := range values {
		idx := v * (len(sparkBlocks) - 1) / 100
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkBlocks) {
			idx = len(sparkBlocks) - 1
		}
		buf.WriteRune(sparkBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}

// RateChart renders monthly success rates as a vertical bar chart on a fixed
// 0-100 scale. Each bar is colored by ColorForRate.
func RateChart(points []model.MonthRate, width, height int) string {
	if len(points) == 0 {
		return ""
	}
	rates := make([]int, len(points))
	for i, p := range points {
		rates[i] = p.SuccessRate
	}
	if width < 15 || height < 4 {
		return Sparkline(rates, theme.Active.Accent)
	}

	t := theme.Active
	const yLabelW = 4

	n := len(points)
	chartW := width - yLabelW - 1
	barW := (chartW - (n - 1)) / n
	if barW < 1 {
		// Too many months for the width; keep the most recent that fit.
		n = (chartW + 1) / 2
		points = points[len(points)-n:]
		rates = rates[len(rates)-n:]
		barW = 1
	}
	if barW > 5 {
		barW = 5
	}

	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	blankStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	for row := height; row >= 1; row-- {
		rowTop := 100 * row / height
		rowBottom := 100 * (row - 1) / height

		label := ""
		switch {
		case row == height:
			label = "100"
		case row == (height+1)/2:
			label = "50"
		}
		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW-1, label)))
		b.WriteString(axisStyle.Render("│"))

		for i, v := range rates {
			if i > 0 {
				b.WriteString(blankStyle.Render(" "))
			}
			barStyle := lipgloss.NewStyle().Foreground(ColorForRate(v)).Background(t.Surface)
			switch {
			case v >= rowTop:
				b.WriteString(barStyle.Render(strings.Repeat("█", barW)))
			case v > rowBottom:
				idx := (v - rowBottom) * (len(sparkBlocks) - 1) / (rowTop - rowBottom)
				b.WriteString(barStyle.Render(strings.Repeat(string(sparkBlocks[idx]), barW)))
			default:
				b.WriteString(blankStyle.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	axisLen := n*barW + (n - 1)
	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW-1, "0")))
	b.WriteString(axisStyle.Render("└" + strings.Repeat("─", axisLen)))

	// Month initials under each bar, full abbreviations when bars are wide.
	b.WriteString("\n")
	b.WriteString(blankStyle.Render(strings.Repeat(" ", yLabelW)))
	var labels strings.Builder
	for i, p := range points {
		if i > 0 {
			labels.WriteString(" ")
		}
		name := p.Month.Month.String()
		if barW >= 3 {
			name = name[:3]
		} else {
			name = name[:1]
		}
		labels.WriteString(fmt.Sprintf("%-*s", barW, name[:min(len(name), barW)]))
	}
	b.WriteString(axisStyle.Render(strings.TrimRight(labels.String(), " ")))

	return b.String()
}
