// Package ledger owns the authoritative date -> status map. All mutation goes
// through one guarded path that enforces the monthly token budget, persists
// the whole map through a Storage and notifies observers.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/theirongolddev/quitc/internal/model"
)

// ErrSave wraps any Storage.Save failure. The in-memory ledger has already
// advanced when this is returned.
var ErrSave = errors.New("ledger: save failed")

// Storage loads and saves the complete ledger map.
type Storage interface {
	Load(ctx context.Context) (model.Days, error)
	Save(ctx context.Context, days model.Days) error
}

// Result describes what a mutation did to the ledger.
type Result uint8

const (
	// Applied means the ledger changed, was persisted and observers ran.
	Applied Result = iota
	// Unchanged means the request matched the current state; nothing ran.
	Unchanged
	// Rejected means a HEART was refused because the month's tokens are spent.
	Rejected
)

func (r Result) String() string {
	switch r {
	case Applied:
		return "applied"
	case Unchanged:
		return "unchanged"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("Result(%d)", uint8(r))
	}
}

// ChangeKind names the mutation that produced a Change.
type ChangeKind string

// Change kinds.
const (
	ChangeSet    ChangeKind = "set"
	ChangeClear  ChangeKind = "clear"
	ChangeReset  ChangeKind = "reset"
	ChangeReload ChangeKind = "reload"
)

// Change is delivered to observers after every committed mutation.
type Change struct {
	Version  uint64
	Kind     ChangeKind
	Date     model.Date      // zero for reset/reload
	Status   model.DayStatus // zero for clear/reset/reload
	Snapshot model.Days      // read-only
}

// Ledger is safe for concurrent use. Writers are serialized so the
// at-most-three-HEARTs-per-month rule holds under concurrent callers.
type Ledger struct {
	storage Storage
	logger  *log.Logger

	// writeMu serializes mutations end to end, including the save.
	writeMu sync.Mutex

	// mu guards the fields below; readers never wait on storage.
	mu        sync.RWMutex
	days      model.Days
	version   uint64
	nextSubID int
	funcs     map[int]func(Change)
	chans     map[int]chan Change
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(lg *Ledger) {
		if l != nil {
			lg.logger = l
		}
	}
}

// Open builds a ledger and loads its initial state. A load failure is
// logged and treated as an empty ledger rather than returned.
func Open(ctx context.Context, storage Storage, opts ...Option) *Ledger {
	l := &Ledger{
		storage: storage,
		logger:  log.Default(),
		days:    model.Days{},
		funcs:   make(map[int]func(Change)),
		chans:   make(map[int]chan Change),
	}
	for _, opt := range opts {
		opt(l)
	}

	if days, err := l.load(ctx); err != nil {
		l.logger.Printf("quitc: loading ledger: %v (starting empty)", err)
	} else {
		l.days = days
	}
	return l
}

func (l *Ledger) load(ctx context.Context) (model.Days, error) {
	if l.storage == nil {
		return model.Days{}, nil
	}
	days, err := l.storage.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(model.Days, len(days))
	for date, status := range days {
		if !date.Valid() || !status.Valid() {
			l.logger.Printf("quitc: dropping ledger entry %s=%d", date, uint8(status))
			continue
		}
		out[date] = status
	}
	return out, nil
}

// Snapshot returns a copy of the current ledger.
func (l *Ledger) Snapshot() model.Days {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.days.Clone()
}

// View returns a copy of the current ledger together with its version,
// read under one lock so the pair is consistent.
func (l *Ledger) View() (model.Days, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.days.Clone(), l.version
}

// Status returns the status logged for date, if any.
func (l *Ledger) Status(date model.Date) (model.DayStatus, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.days[date]
	return s, ok
}

// Version increments on every committed change. It is a cheap memo key.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// SetStatus records status for date. CLEAN always overwrites. HEART is
// rejected, with no save and no notification, when three other HEART
// entries already exist in date's month.
func (l *Ledger) SetStatus(ctx context.Context, date model.Date, status model.DayStatus) (Result, error) {
	if !date.Valid() {
		return Unchanged, fmt.Errorf("%w: %s", model.ErrInvalidDate, date)
	}
	if !status.Valid() {
		return Unchanged, fmt.Errorf("%w: %d", model.ErrInvalidStatus, uint8(status))
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	if cur, ok := l.days[date]; ok && cur == status {
		l.mu.Unlock()
		return Unchanged, nil
	}
	if status == model.StatusHeart && l.heartsExcluding(date) >= model.MaxTokensPerMonth {
		l.mu.Unlock()
		return Rejected, nil
	}
	l.days = l.days.Clone()
	l.days[date] = status
	change := l.commitLocked(ChangeSet, date, status)
	l.mu.Unlock()

	return Applied, l.persistAndNotify(ctx, change)
}

// Clear removes any entry for date. Clearing an unmarked date is a no-op.
func (l *Ledger) Clear(ctx context.Context, date model.Date) (Result, error) {
	if !date.Valid() {
		return Unchanged, fmt.Errorf("%w: %s", model.ErrInvalidDate, date)
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	if _, ok := l.days[date]; !ok {
		l.mu.Unlock()
		return Unchanged, nil
	}
	l.days = l.days.Clone()
	delete(l.days, date)
	change := l.commitLocked(ChangeClear, date, 0)
	l.mu.Unlock()

	return Applied, l.persistAndNotify(ctx, change)
}

// Update is the single entry point used by callers that carry an optional
// status: nil clears the date, anything else behaves like SetStatus.
func (l *Ledger) Update(ctx context.Context, date model.Date, status *model.DayStatus) (Result, error) {
	if status == nil {
		return l.Clear(ctx, date)
	}
	return l.SetStatus(ctx, date, *status)
}

// Reset erases the whole ledger, persists the empty map and notifies.
func (l *Ledger) Reset(ctx context.Context) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	l.days = model.Days{}
	change := l.commitLocked(ChangeReset, model.Date{}, 0)
	l.mu.Unlock()

	return l.persistAndNotify(ctx, change)
}

// Reload re-reads storage and publishes the result when it differs from
// the current state. Used when the backing file is changed externally.
func (l *Ledger) Reload(ctx context.Context) (bool, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	days, err := l.load(ctx)
	if err != nil {
		return false, fmt.Errorf("reloading ledger: %w", err)
	}

	l.mu.Lock()
	if l.days.Equal(days) {
		l.mu.Unlock()
		return false, nil
	}
	l.days = days
	change := l.commitLocked(ChangeReload, model.Date{}, 0)
	l.mu.Unlock()

	l.notify(change)
	return true, nil
}

// heartsExcluding counts HEART entries in date's month other than date.
// Caller holds l.mu.
func (l *Ledger) heartsExcluding(date model.Date) int {
	month := date.MonthOf()
	n := 0
	for d, s := range l.days {
		if s == model.StatusHeart && d != date && month.Contains(d) {
			n++
		}
	}
	return n
}

// commitLocked bumps the version and builds the observer payload.
// Caller holds l.mu for writing. The map is replaced, never mutated, after
// a commit, so the snapshot can be shared with every observer.
func (l *Ledger) commitLocked(kind ChangeKind, date model.Date, status model.DayStatus) Change {
	l.version++
	return Change{
		Version:  l.version,
		Kind:     kind,
		Date:     date,
		Status:   status,
		Snapshot: l.days,
	}
}

func (l *Ledger) persistAndNotify(ctx context.Context, change Change) error {
	var err error
	if l.storage != nil {
		if saveErr := l.storage.Save(ctx, change.Snapshot); saveErr != nil {
			l.logger.Printf("quitc: saving ledger v%d: %v", change.Version, saveErr)
			err = fmt.Errorf("%w: %w", ErrSave, saveErr)
		}
	}
	l.notify(change)
	return err
}
