package ledger

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/theirongolddev/quitc/internal/model"
	"github.com/theirongolddev/quitc/internal/stats"
)

type memStorage struct {
	mu       sync.Mutex
	days     model.Days
	loadErr  error
	saveErr  error
	saves    int
	lastSave model.Days
}

func (m *memStorage) Load(context.Context) (model.Days, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.days.Clone(), nil
}

func (m *memStorage) Save(_ context.Context, days model.Days) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.days = days.Clone()
	m.lastSave = days.Clone()
	return nil
}

func (m *memStorage) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func date(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func openTest(t *testing.T, st *memStorage) *Ledger {
	t.Helper()
	return Open(context.Background(), st, WithLogger(quietLogger()))
}

func TestSetCleanThenSnapshot(t *testing.T) {
	st := &memStorage{}
	l := openTest(t, st)
	ctx := context.Background()

	for i := 0; i < 40; i++ {
		d := model.NewDate(2024, time.January, 1).AddDays(i * 3)
		res, err := l.SetStatus(ctx, d, model.StatusClean)
		if err != nil || res != Applied {
			t.Fatalf("SetStatus(%s) = %s, %v", d, res, err)
		}
		if got := l.Snapshot()[d]; got != model.StatusClean {
			t.Fatalf("Snapshot()[%s] = %s, want CLEAN", d, got)
		}
	}
	if st.saveCount() != 40 {
		t.Fatalf("saves = %d, want 40", st.saveCount())
	}
}

func TestFourthHeartIsRejected(t *testing.T) {
	st := &memStorage{}
	l := openTest(t, st)
	ctx := context.Background()

	var changes int
	cancel := l.Subscribe(func(Change) { changes++ })
	defer cancel()

	jan := model.Month{Year: 2024, Month: time.January}
	for _, s := range []string{"2024-01-03", "2024-01-10", "2024-01-20"} {
		if res, err := l.SetStatus(ctx, date(t, s), model.StatusHeart); err != nil || res != Applied {
			t.Fatalf("SetStatus(%s, HEART) = %s, %v", s, res, err)
		}
	}
	before := l.Snapshot()
	savesBefore := st.saveCount()

	res, err := l.SetStatus(ctx, date(t, "2024-01-25"), model.StatusHeart)
	if err != nil {
		t.Fatalf("fourth HEART returned error: %v", err)
	}
	if res != Rejected {
		t.Fatalf("fourth HEART result = %s, want rejected", res)
	}
	if !l.Snapshot().Equal(before) {
		t.Fatal("ledger changed after rejected HEART")
	}
	if st.saveCount() != savesBefore || changes != 3 {
		t.Fatalf("rejected HEART triggered save/notify: saves %d->%d, changes %d", savesBefore, st.saveCount(), changes)
	}
	if got := stats.TokensLeft(l.Snapshot(), jan); got != 0 {
		t.Fatalf("TokensLeft = %d, want 0", got)
	}

	// Other months keep their own budget.
	if res, _ := l.SetStatus(ctx, date(t, "2024-02-01"), model.StatusHeart); res != Applied {
		t.Fatalf("February HEART = %s, want applied", res)
	}
}

func TestHeartOnExistingHeartDateIsExcludedFromCount(t *testing.T) {
	st := &memStorage{}
	l := openTest(t, st)
	ctx := context.Background()

	for _, s := range []string{"2024-01-03", "2024-01-10", "2024-01-20"} {
		_, _ = l.SetStatus(ctx, date(t, s), model.StatusHeart)
	}
	// Re-marking one of the three is not a fourth token.
	res, err := l.SetStatus(ctx, date(t, "2024-01-10"), model.StatusHeart)
	if err != nil || res == Rejected {
		t.Fatalf("re-marking HEART = %s, %v", res, err)
	}

	// Switching a HEART to CLEAN frees a token.
	if res, _ := l.SetStatus(ctx, date(t, "2024-01-10"), model.StatusClean); res != Applied {
		t.Fatalf("HEART->CLEAN = %s", res)
	}
	if res, _ := l.SetStatus(ctx, date(t, "2024-01-11"), model.StatusHeart); res != Applied {
		t.Fatalf("HEART after freeing a token = %s", res)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	st := &memStorage{}
	l := openTest(t, st)
	ctx := context.Background()
	d := date(t, "2024-01-05")

	_, _ = l.SetStatus(ctx, d, model.StatusClean)
	_, _ = l.SetStatus(ctx, date(t, "2024-01-06"), model.StatusHeart)

	if res, err := l.Clear(ctx, d); err != nil || res != Applied {
		t.Fatalf("first Clear = %s, %v", res, err)
	}
	once := l.Snapshot()
	saves := st.saveCount()

	if res, err := l.Clear(ctx, d); err != nil || res != Unchanged {
		t.Fatalf("second Clear = %s, %v", res, err)
	}
	if !l.Snapshot().Equal(once) {
		t.Fatal("second Clear changed the snapshot")
	}
	if st.saveCount() != saves {
		t.Fatal("second Clear saved again")
	}
}

func TestUpdateNilClears(t *testing.T) {
	l := openTest(t, &memStorage{})
	ctx := context.Background()
	d := date(t, "2024-03-01")
	clean := model.StatusClean

	if _, err := l.Update(ctx, d, &clean); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := l.Update(ctx, d, nil); err != nil {
		t.Fatalf("Update(nil): %v", err)
	}
	if _, ok := l.Status(d); ok {
		t.Fatal("entry still present after Update(nil)")
	}
}

func TestResetPersistsEmptyMap(t *testing.T) {
	st := &memStorage{}
	l := openTest(t, st)
	ctx := context.Background()
	_, _ = l.SetStatus(ctx, date(t, "2024-01-01"), model.StatusClean)

	ch, cancel := l.Watch(4)
	defer cancel()

	if err := l.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(l.Snapshot()) != 0 {
		t.Fatal("snapshot not empty after Reset")
	}
	if len(st.lastSave) != 0 {
		t.Fatalf("persisted map not empty: %v", st.lastSave)
	}
	select {
	case c := <-ch:
		if c.Kind != ChangeReset || len(c.Snapshot) != 0 {
			t.Fatalf("change = %+v, want empty reset", c)
		}
	default:
		t.Fatal("Reset did not notify watchers")
	}
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	st := &memStorage{loadErr: errors.New("corrupt")}
	var buf bytes.Buffer
	l := Open(context.Background(), st, WithLogger(log.New(&buf, "", 0)))

	if len(l.Snapshot()) != 0 {
		t.Fatal("ledger not empty after load failure")
	}
	if buf.Len() == 0 {
		t.Fatal("load failure was not logged")
	}
}

func TestLoadDropsInvalidEntries(t *testing.T) {
	st := &memStorage{days: model.Days{
		date(t, "2024-01-01"):                       model.StatusClean,
		{}:                                          model.StatusClean,
		{Year: 2024, Month: time.February, Day: 30}: model.StatusClean,
		date(t, "2024-01-02"):                       model.DayStatus(9),
	}}
	l := openTest(t, st)
	if got := len(l.Snapshot()); got != 1 {
		t.Fatalf("loaded %d entries, want 1", got)
	}
}

func TestSaveFailureKeepsInMemoryChange(t *testing.T) {
	st := &memStorage{saveErr: errors.New("disk full")}
	l := openTest(t, st)
	d := date(t, "2024-01-05")

	var notified bool
	cancel := l.Subscribe(func(Change) { notified = true })
	defer cancel()

	res, err := l.SetStatus(context.Background(), d, model.StatusClean)
	if !errors.Is(err, ErrSave) {
		t.Fatalf("err = %v, want ErrSave", err)
	}
	if res != Applied {
		t.Fatalf("result = %s, want applied", res)
	}
	if got, _ := l.Status(d); got != model.StatusClean {
		t.Fatal("in-memory change rolled back after save failure")
	}
	if !notified {
		t.Fatal("observers not notified after save failure")
	}
}

func TestObserversSeeEachCommitOnce(t *testing.T) {
	l := openTest(t, &memStorage{})
	ctx := context.Background()

	var versions []uint64
	cancel := l.Subscribe(func(c Change) { versions = append(versions, c.Version) })

	_, _ = l.SetStatus(ctx, date(t, "2024-01-01"), model.StatusClean)
	_, _ = l.SetStatus(ctx, date(t, "2024-01-01"), model.StatusClean) // unchanged
	_, _ = l.Clear(ctx, date(t, "2024-01-01"))
	cancel()
	_, _ = l.SetStatus(ctx, date(t, "2024-01-02"), model.StatusClean)

	if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
		t.Fatalf("versions = %v, want [1 2]", versions)
	}
	if l.Version() != 3 {
		t.Fatalf("Version = %d, want 3", l.Version())
	}
	if l.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount = %d, want 0", l.SubscriberCount())
	}
}

func TestSnapshotIsIsolatedFromCaller(t *testing.T) {
	l := openTest(t, &memStorage{})
	snap := l.Snapshot()
	snap[date(t, "2024-01-01")] = model.StatusHeart
	if len(l.Snapshot()) != 0 {
		t.Fatal("mutating a snapshot leaked into the ledger")
	}
}

func TestConcurrentHeartsRespectBudget(t *testing.T) {
	l := openTest(t, &memStorage{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(day int) {
			defer wg.Done()
			_, _ = l.SetStatus(ctx, model.NewDate(2024, time.May, day), model.StatusHeart)
		}(i)
	}
	wg.Wait()

	may := model.Month{Year: 2024, Month: time.May}
	if got := l.Snapshot().CountInMonth(may, model.StatusHeart); got != model.MaxTokensPerMonth {
		t.Fatalf("HEARTs in May = %d, want %d", got, model.MaxTokensPerMonth)
	}
}

func TestReloadPublishesOnlyOnDifference(t *testing.T) {
	st := &memStorage{days: model.Days{}}
	l := openTest(t, st)
	ctx := context.Background()

	changed, err := l.Reload(ctx)
	if err != nil || changed {
		t.Fatalf("Reload on identical data = %v, %v", changed, err)
	}

	st.mu.Lock()
	st.days = model.Days{date(t, "2024-01-01"): model.StatusClean}
	st.mu.Unlock()

	changed, err = l.Reload(ctx)
	if err != nil || !changed {
		t.Fatalf("Reload on new data = %v, %v", changed, err)
	}
	if len(l.Snapshot()) != 1 {
		t.Fatal("Reload did not replace the snapshot")
	}
}

func TestSetStatusValidatesInput(t *testing.T) {
	l := openTest(t, &memStorage{})
	if _, err := l.SetStatus(context.Background(), model.Date{}, model.StatusClean); !errors.Is(err, model.ErrInvalidDate) {
		t.Fatalf("zero date err = %v", err)
	}
	if _, err := l.SetStatus(context.Background(), date(t, "2024-01-01"), 0); !errors.Is(err, model.ErrInvalidStatus) {
		t.Fatalf("zero status err = %v", err)
	}
}

func TestNonCalendarDatesAreRejected(t *testing.T) {
	st := &memStorage{}
	l := openTest(t, st)
	ctx := context.Background()

	if _, err := l.SetStatus(ctx, date(t, "2024-01-05"), model.StatusClean); err != nil {
		t.Fatal(err)
	}
	for _, d := range []model.Date{
		{Year: 2024, Month: time.February, Day: 30},
		{Year: 2024, Month: 13, Day: 1},
		{Year: 2024, Month: time.January, Day: 0},
	} {
		if _, err := l.SetStatus(ctx, d, model.StatusClean); !errors.Is(err, model.ErrInvalidDate) {
			t.Errorf("SetStatus(%s) err = %v, want ErrInvalidDate", d, err)
		}
		if _, err := l.Clear(ctx, d); !errors.Is(err, model.ErrInvalidDate) {
			t.Errorf("Clear(%s) err = %v, want ErrInvalidDate", d, err)
		}
	}
	if st.saves != 1 {
		t.Fatalf("saves = %d, want 1", st.saves)
	}

	// A reopened ledger still holds the valid day.
	reopened := openTest(t, st)
	if got, ok := reopened.Status(date(t, "2024-01-05")); !ok || got != model.StatusClean {
		t.Fatalf("reopened status = %v, %v", got, ok)
	}
	if n := len(reopened.Snapshot()); n != 1 {
		t.Fatalf("reopened ledger has %d entries, want 1", n)
	}
}

func TestFixedClock(t *testing.T) {
	want := date(t, "2024-01-10")
	if got := FixedClock(want).Today(); got != want {
		t.Fatalf("Today = %s, want %s", got, want)
	}
}
