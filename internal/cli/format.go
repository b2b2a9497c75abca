// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/quitc/internal/model"
)

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats an integer percentage.
func FormatPercent(p int) string {
	return strconv.Itoa(p) + "%"
}

// FormatDays formats a day count with the right plural.
// e.g., 1 -> "1 day", 12 -> "12 days"
func FormatDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return FormatNumber(int64(n)) + " days"
}

// FormatTokens renders remaining tokens as hearts, e.g. "♥♥♡".
func FormatTokens(left int) string {
	if left < 0 {
		left = 0
	}
	if left > model.MaxTokensPerMonth {
		left = model.MaxTokensPerMonth
	}
	return strings.Repeat("♥", left) + strings.Repeat("♡", model.MaxTokensPerMonth-left)
}

// FormatStatus returns the short label for a logged status, or "-" when unmarked.
func FormatStatus(s model.DayStatus, marked bool) string {
	if !marked {
		return "-"
	}
	switch s {
	case model.StatusClean:
		return "clean"
	case model.StatusHeart:
		return "token"
	default:
		return s.String()
	}
}

// FormatDayOfWeek returns a 3-letter day abbreviation from a weekday number.
func FormatDayOfWeek(weekday int) string {
	days := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	if weekday >= 0 && weekday < 7 {
		return days[weekday]
	}
	return "???"
}

// FormatMonthDelta describes month relative to the current one.
func FormatMonthDelta(month, current model.Month) string {
	switch {
	case month == current:
		return "this month"
	case month.Before(current):
		return "past month"
	default:
		return fmt.Sprintf("upcoming (%s)", month.Title())
	}
}
