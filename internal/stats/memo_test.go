package stats

import (
	"testing"

	"github.com/theirongolddev/quitc/internal/model"
)

func TestMemoCachesPerVersion(t *testing.T) {
	memo := NewMemo()
	today := d(t, "2024-01-10")
	days := model.Days{d(t, "2024-01-09"): model.StatusClean}

	first := memo.Summary(1, days, jan2024, today, DefaultPolicy)
	second := memo.Summary(1, days, jan2024, today, DefaultPolicy)
	if first != second {
		t.Fatalf("cached summary differs: %+v vs %+v", first, second)
	}
	if memo.Hits() != 1 {
		t.Fatalf("Hits = %d, want 1", memo.Hits())
	}

	days[d(t, "2024-01-10")] = model.StatusClean
	third := memo.Summary(2, days, jan2024, today, DefaultPolicy)
	if third.CurrentStreak != 2 {
		t.Fatalf("new version CurrentStreak = %d, want 2", third.CurrentStreak)
	}
	if memo.Hits() != 1 {
		t.Fatalf("Hits after version bump = %d, want 1", memo.Hits())
	}
}
