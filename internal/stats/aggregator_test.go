package stats

import (
	"math/rand"
	"testing"
	"time"

	"github.com/theirongolddev/quitc/internal/model"
)

func d(t *testing.T, s string) model.Date {
	t.Helper()
	date, err := model.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return date
}

var jan2024 = model.Month{Year: 2024, Month: time.January}

func TestLongestStreak_HeartBreaksRun(t *testing.T) {
	days := model.Days{
		d(t, "2024-01-01"): model.StatusClean,
		d(t, "2024-01-02"): model.StatusClean,
		d(t, "2024-01-03"): model.StatusHeart,
		d(t, "2024-01-05"): model.StatusClean,
	}
	if got := LongestStreak(days); got != 2 {
		t.Fatalf("LongestStreak = %d, want 2", got)
	}
}

func TestLongestStreak_Cases(t *testing.T) {
	tests := []struct {
		name string
		days map[string]model.DayStatus
		want int
	}{
		{"empty", nil, 0},
		{"only hearts", map[string]model.DayStatus{"2024-01-01": model.StatusHeart}, 0},
		{"gap breaks run", map[string]model.DayStatus{
			"2024-01-01": model.StatusClean,
			"2024-01-02": model.StatusClean,
			"2024-01-04": model.StatusClean,
			"2024-01-05": model.StatusClean,
			"2024-01-06": model.StatusClean,
		}, 3},
		{"heart then adjacent clean restarts at one", map[string]model.DayStatus{
			"2024-01-01": model.StatusHeart,
			"2024-01-02": model.StatusClean,
		}, 1},
		{"run across month boundary", map[string]model.DayStatus{
			"2024-01-30": model.StatusClean,
			"2024-01-31": model.StatusClean,
			"2024-02-01": model.StatusClean,
		}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := model.Days{}
			for k, v := range tt.days {
				days[d(t, k)] = v
			}
			if got := LongestStreak(days); got != tt.want {
				t.Fatalf("LongestStreak = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCurrentStreak_UnmarkedTodayStartsYesterday(t *testing.T) {
	days := model.Days{
		d(t, "2024-01-08"): model.StatusClean,
		d(t, "2024-01-09"): model.StatusClean,
	}
	if got := CurrentStreak(days, d(t, "2024-01-10")); got != 2 {
		t.Fatalf("CurrentStreak = %d, want 2", got)
	}
}

func TestCurrentStreak_HeartTodayIsZero(t *testing.T) {
	days := model.Days{
		d(t, "2024-01-08"): model.StatusClean,
		d(t, "2024-01-09"): model.StatusClean,
		d(t, "2024-01-10"): model.StatusHeart,
	}
	if got := CurrentStreak(days, d(t, "2024-01-10")); got != 0 {
		t.Fatalf("CurrentStreak = %d, want 0", got)
	}
}

func TestCurrentStreak_CleanTodayCounts(t *testing.T) {
	days := model.Days{
		d(t, "2024-01-07"): model.StatusHeart,
		d(t, "2024-01-08"): model.StatusClean,
		d(t, "2024-01-09"): model.StatusClean,
		d(t, "2024-01-10"): model.StatusClean,
	}
	if got := CurrentStreak(days, d(t, "2024-01-10")); got != 3 {
		t.Fatalf("CurrentStreak = %d, want 3", got)
	}
}

func TestCurrentStreak_UnmarkedYesterdayIsZero(t *testing.T) {
	days := model.Days{d(t, "2024-01-08"): model.StatusClean}
	if got := CurrentStreak(days, d(t, "2024-01-10")); got != 0 {
		t.Fatalf("CurrentStreak = %d, want 0", got)
	}
}

func TestSuccessRate_CurrentMonth(t *testing.T) {
	days := model.Days{}
	for i := 1; i <= 10; i++ {
		days[model.NewDate(2024, time.January, i)] = model.StatusClean
	}
	days[d(t, "2024-01-11")] = model.StatusHeart

	today := d(t, "2024-01-15")
	if got := SuccessRate(days, jan2024, today, DefaultPolicy); got != 66 {
		t.Fatalf("SuccessRate = %d, want 66", got)
	}
	lenient := Policy{HeartCountsAsSuccess: true}
	if got := SuccessRate(days, jan2024, today, lenient); got != 73 {
		t.Fatalf("SuccessRate(lenient) = %d, want 73", got)
	}
}

func TestSuccessRate_PastAndFutureMonths(t *testing.T) {
	days := model.Days{}
	for i := 1; i <= 29; i++ {
		days[model.NewDate(2024, time.February, i)] = model.StatusClean
	}
	today := d(t, "2024-03-05")

	feb := model.Month{Year: 2024, Month: time.February}
	if got := SuccessRate(days, feb, today, DefaultPolicy); got != 100 {
		t.Fatalf("past month SuccessRate = %d, want 100", got)
	}

	apr := model.Month{Year: 2024, Month: time.April}
	if got := SuccessRate(days, apr, today, DefaultPolicy); got != 100 {
		t.Fatalf("future month SuccessRate = %d, want 100", got)
	}
	if got := DaysPassed(apr, today); got != 0 {
		t.Fatalf("future DaysPassed = %d, want 0", got)
	}

	empty := model.Month{Year: 2024, Month: time.January}
	if got := SuccessRate(days, empty, today, DefaultPolicy); got != 0 {
		t.Fatalf("empty past month SuccessRate = %d, want 0", got)
	}
}

func TestTokensLeft(t *testing.T) {
	days := model.Days{
		d(t, "2024-01-01"): model.StatusHeart,
		d(t, "2024-01-02"): model.StatusHeart,
		d(t, "2024-02-02"): model.StatusHeart,
	}
	if got := TokensLeft(days, jan2024); got != 1 {
		t.Fatalf("TokensLeft = %d, want 1", got)
	}

	// Built by hand: the ledger itself would refuse a fourth token.
	for i := 1; i <= 6; i++ {
		days[model.NewDate(2024, time.January, i)] = model.StatusHeart
	}
	if got := TokensLeft(days, jan2024); got != 0 {
		t.Fatalf("TokensLeft over budget = %d, want 0", got)
	}
}

func TestTokensLeftAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		days := randomDays(rng, 60)
		for _, m := range []model.Month{jan2024, jan2024.Next(), jan2024.Prev()} {
			got := TokensLeft(days, m)
			if got < 0 || got > model.MaxTokensPerMonth {
				t.Fatalf("TokensLeft = %d out of [0,3] for %v", got, days)
			}
		}
	}
}

func TestPureFunctionsAreDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	today := d(t, "2024-01-20")
	for i := 0; i < 50; i++ {
		days := randomDays(rng, 40)
		a := Summarize(days, jan2024, today, DefaultPolicy)
		b := Summarize(days, jan2024, today, DefaultPolicy)
		if a != b {
			t.Fatalf("Summarize not deterministic: %+v vs %+v", a, b)
		}
		if a.SuccessRate < 0 || a.SuccessRate > 100 {
			t.Fatalf("SuccessRate %d out of range", a.SuccessRate)
		}
	}
}

func TestSummarize(t *testing.T) {
	days := model.Days{
		d(t, "2023-12-31"): model.StatusClean,
		d(t, "2024-01-01"): model.StatusClean,
		d(t, "2024-01-02"): model.StatusClean,
		d(t, "2024-01-03"): model.StatusHeart,
		d(t, "2024-01-04"): model.StatusClean,
	}
	s := Summarize(days, jan2024, d(t, "2024-01-05"), DefaultPolicy)

	if s.DaysPassed != 5 || s.CleanDays != 3 || s.TokensUsed != 1 || s.TokensLeft != 2 {
		t.Fatalf("month counts = %+v", s)
	}
	if s.FailedDays != 1 {
		t.Fatalf("FailedDays = %d, want 1", s.FailedDays)
	}
	if s.SuccessRate != 60 {
		t.Fatalf("SuccessRate = %d, want 60", s.SuccessRate)
	}
	if s.CurrentStreak != 1 || s.LongestStreak != 3 {
		t.Fatalf("streaks = %d/%d, want 1/3", s.CurrentStreak, s.LongestStreak)
	}
	if s.YearCleanDays != 3 || s.TotalCleanDays != 4 || s.TotalTokens != 1 {
		t.Fatalf("totals = %+v", s)
	}
}

func TestMonthGrid(t *testing.T) {
	// January 2024 starts on a Monday.
	days := model.Days{d(t, "2024-01-10"): model.StatusHeart}
	grid := MonthGrid(days, jan2024, d(t, "2024-01-15"))

	if len(grid) != 5 {
		t.Fatalf("rows = %d, want 5", len(grid))
	}
	if !grid[0][0].Date.IsZero() {
		t.Fatalf("leading Sunday should be blank, got %s", grid[0][0].Date)
	}
	if grid[0][1].Date != d(t, "2024-01-01") {
		t.Fatalf("first day at %s, want 2024-01-01", grid[0][1].Date)
	}
	cell := grid[1][3]
	if cell.Date != d(t, "2024-01-10") || !cell.Marked || cell.Status != model.StatusHeart {
		t.Fatalf("Jan 10 cell = %+v", cell)
	}
	if !grid[2][1].IsToday {
		t.Fatalf("Jan 15 should be today: %+v", grid[2][1])
	}
	if !grid[4][3].Future {
		t.Fatalf("Jan 31 should be future: %+v", grid[4][3])
	}
}

func TestTrend(t *testing.T) {
	days := model.Days{
		d(t, "2023-12-01"): model.StatusClean,
		d(t, "2024-01-01"): model.StatusClean,
		d(t, "2024-01-02"): model.StatusHeart,
	}
	today := d(t, "2024-01-02")

	trend := Trend(days, model.Month{Year: 2024, Month: time.February}, 3, today, DefaultPolicy)
	if len(trend) != 3 {
		t.Fatalf("len = %d, want 3", len(trend))
	}
	want := []struct {
		month string
		rate  int
		clean int
	}{
		{"2023-12", 3, 1},   // 1 of 31
		{"2024-01", 50, 1},  // 1 of 2 elapsed
		{"2024-02", 100, 0}, // future
	}
	for i, w := range want {
		if trend[i].Month.String() != w.month || trend[i].SuccessRate != w.rate || trend[i].CleanDays != w.clean {
			t.Errorf("trend[%d] = %+v, want %+v", i, trend[i], w)
		}
	}
	if trend[1].TokensUsed != 1 {
		t.Errorf("Jan tokens = %d, want 1", trend[1].TokensUsed)
	}

	if got := Trend(days, jan2024, 0, today, DefaultPolicy); got != nil {
		t.Errorf("Trend(n=0) = %v, want nil", got)
	}
}

func randomDays(rng *rand.Rand, n int) model.Days {
	days := model.Days{}
	start := model.NewDate(2023, time.December, 1)
	for i := 0; i < n; i++ {
		date := start.AddDays(rng.Intn(92))
		if rng.Intn(3) == 0 {
			days[date] = model.StatusHeart
		} else {
			days[date] = model.StatusClean
		}
	}
	return days
}

func BenchmarkSummarize(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	days := model.Days{}
	start := model.NewDate(2020, time.January, 1)
	for i := 0; i < 1500; i++ {
		if rng.Intn(10) == 0 {
			days[start.AddDays(i)] = model.StatusHeart
		} else {
			days[start.AddDays(i)] = model.StatusClean
		}
	}
	today := start.AddDays(1500)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Summarize(days, today.MonthOf(), today, DefaultPolicy)
	}
}
