package stats

import (
	"sync"

	"github.com/theirongolddev/quitc/internal/model"
)

type memoKey struct {
	month  model.Month
	today  model.Date
	policy Policy
}

// Memo caches Summaries for one ledger version. Any version change drops
// the whole cache; recomputation is always safe.
type Memo struct {
	mu      sync.Mutex
	version uint64
	entries map[memoKey]model.Summary
	hits    int
}

// NewMemo returns an empty cache.
func NewMemo() *Memo {
	return &Memo{entries: make(map[memoKey]model.Summary)}
}

// Summary returns the cached summary for (version, month, today, policy),
// computing it from days on a miss.
func (m *Memo) Summary(version uint64, days model.Days, month model.Month, today model.Date, policy Policy) model.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	if version != m.version || m.entries == nil {
		m.version = version
		m.entries = make(map[memoKey]model.Summary)
	}

	key := memoKey{month: month, today: today, policy: policy}
	if s, ok := m.entries[key]; ok {
		m.hits++
		return s
	}

	s := Summarize(days, month, today, policy)
	m.entries[key] = s
	return s
}

// Hits reports how many lookups were served from cache.
func (m *Memo) Hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits
}
