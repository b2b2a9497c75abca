// Package stats derives streaks, success rate and token budget from a
// ledger snapshot. Every function here is pure: the same snapshot, month and
// reference date always produce the same result.
package stats

import (
	"github.com/theirongolddev/quitc/internal/model"
)

// Policy selects between the two historical interpretations of a HEART day
// in the success rate. It is a configuration choice and is never mixed.
type Policy struct {
	// HeartCountsAsSuccess counts HEART days alongside CLEAN days in the
	// success-rate numerator.
	HeartCountsAsSuccess bool
}

// DefaultPolicy counts only CLEAN days as successes.
var DefaultPolicy = Policy{}

// DaysPassed returns how many days of month count as elapsed relative to
// today: today's day-of-month for the current month, the full length for a
// past month, zero for a future month.
func DaysPassed(month model.Month, today model.Date) int {
	current := today.MonthOf()
	switch {
	case month == current:
		return today.Day
	case month.Before(current):
		return month.Length()
	default:
		return 0
	}
}

// SuccessRate returns the integer percentage of elapsed days in month that
// were logged as a success. A month with no elapsed days is a vacuous 100.
func SuccessRate(days model.Days, month model.Month, today model.Date, policy Policy) int {
	passed := DaysPassed(month, today)
	if passed == 0 {
		return 100
	}

	successes := days.CountInMonth(month, model.StatusClean)
	if policy.HeartCountsAsSuccess {
		successes += days.CountInMonth(month, model.StatusHeart)
	}

	rate := successes * 100 / passed
	if rate > 100 {
		// Only reachable when future days of the current month are marked.
		rate = 100
	}
	return rate
}

// TokensLeft returns the HEART tokens still available in month, in [0, 3].
func TokensLeft(days model.Days, month model.Month) int {
	left := model.MaxTokensPerMonth - days.CountInMonth(month, model.StatusHeart)
	if left < 0 {
		return 0
	}
	return left
}

// CurrentStreak counts consecutive CLEAN days ending today. A HEART today
// ends the streak immediately; an unmarked today is still undecided, so the
// count starts from yesterday.
func CurrentStreak(days model.Days, today model.Date) int {
	check := today
	status, marked := days[today]
	switch {
	case marked && status == model.StatusHeart:
		return 0
	case !marked:
		check = today.AddDays(-1)
	}

	streak := 0
	for days[check] == model.StatusClean {
		streak++
		check = check.AddDays(-1)
	}
	return streak
}

// LongestStreak returns the longest run of calendar-consecutive CLEAN days
// anywhere in the ledger. A HEART day breaks a run; so does any gap.
func LongestStreak(days model.Days) int {
	var (
		longest int
		current int
		last    model.Date
		inRun   bool
	)

	for _, date := range days.SortedDates() {
		if days[date] != model.StatusClean {
			current = 0
			inRun = false
			continue
		}

		if inRun && date == last.AddDays(1) {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
		last = date
		inRun = true
	}
	return longest
}

// Summarize computes every statistic for month in one pass over the helpers.
func Summarize(days model.Days, month model.Month, today model.Date, policy Policy) model.Summary {
	s := model.Summary{
		Month:         month,
		Today:         today,
		DaysPassed:    DaysPassed(month, today),
		CleanDays:     days.CountInMonth(month, model.StatusClean),
		TokensUsed:    days.CountInMonth(month, model.StatusHeart),
		TokensLeft:    TokensLeft(days, month),
		SuccessRate:   SuccessRate(days, month, today, policy),
		CurrentStreak: CurrentStreak(days, today),
		LongestStreak: LongestStreak(days),
	}

	s.FailedDays = s.DaysPassed - s.CleanDays - s.TokensUsed
	if s.FailedDays < 0 {
		s.FailedDays = 0
	}

	s.TotalCleanDays = days.Count(model.StatusClean)
	s.TotalTokens = days.Count(model.StatusHeart)
	for date, status := range days {
		if status == model.StatusClean && date.Year == month.Year {
			s.YearCleanDays++
		}
	}

	return s
}

// MonthGrid lays month out as Sunday-first weeks for calendar rendering.
// Positions before the first and after the last day are zero DayCells.
func MonthGrid(days model.Days, month model.Month, today model.Date) [][]model.DayCell {
	lead := int(month.First().Weekday())
	total := lead + month.Length()
	rows := (total + 6) / 7

	grid := make([][]model.DayCell, rows)
	for r := range grid {
		grid[r] = make([]model.DayCell, 7)
	}

	for day := 1; day <= month.Length(); day++ {
		idx := lead + day - 1
		date := model.Date{Year: month.Year, Month: month.Month, Day: day}
		status, marked := days[date]
		grid[idx/7][idx%7] = model.DayCell{
			Date:    date,
			Status:  status,
			Marked:  marked,
			IsToday: date == today,
			Future:  date.After(today),
		}
	}
	return grid
}

// Trend returns the success rate of the n months ending at end, oldest first.
// Months after today's month report the vacuous rate like SuccessRate does.
func Trend(days model.Days, end model.Month, n int, today model.Date, policy Policy) []model.MonthRate {
	if n <= 0 {
		return nil
	}
	out := make([]model.MonthRate, 0, n)
	for m := end.AddMonths(-(n - 1)); !m.After(end); m = m.Next() {
		out = append(out, model.MonthRate{
			Month:       m,
			SuccessRate: SuccessRate(days, m, today, policy),
			CleanDays:   days.CountInMonth(m, model.StatusClean),
			TokensUsed:  days.CountInMonth(m, model.StatusHeart),
		})
	}
	return out
}
