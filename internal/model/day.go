// Package model defines the calendar and day-status types shared by quitc.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MaxTokensPerMonth is the HEART allowance within a single calendar month.
const MaxTokensPerMonth = 3

// ErrInvalidStatus is returned when a status tag cannot be parsed.
var ErrInvalidStatus = errors.New("invalid day status")

// DayStatus is the logged outcome of a calendar day. An unmarked day has no
// DayStatus at all: it is simply absent from Days.
type DayStatus uint8

const (
	// StatusClean marks a smoke-free day.
	StatusClean DayStatus = iota + 1
	// StatusHeart marks a day that consumed one of the monthly tokens.
	StatusHeart
)

func (s DayStatus) String() string {
	switch s {
	case StatusClean:
		return "CLEAN"
	case StatusHeart:
		return "HEART"
	default:
		return fmt.Sprintf("DayStatus(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the defined statuses.
func (s DayStatus) Valid() bool {
	return s == StatusClean || s == StatusHeart
}

// ParseStatus accepts the serialized tags and a few friendly aliases.
func ParseStatus(v string) (DayStatus, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "clean", "c":
		return StatusClean, nil
	case "heart", "token", "h":
		return StatusHeart, nil
	default:
		return 0, fmt.Errorf("%w %q (expected clean|heart)", ErrInvalidStatus, v)
	}
}

// MarshalText encodes the status as its "CLEAN"/"HEART" tag.
func (s DayStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a "CLEAN"/"HEART" tag.
func (s *DayStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Days maps calendar dates to their logged status. It is the ledger snapshot
// type: values handed out by the ledger must be treated as read-only.
type Days map[Date]DayStatus

// Clone returns an independent copy of d. A nil map clones to an empty one.
func (d Days) Clone() Days {
	out := make(Days, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Equal reports whether d and o hold exactly the same entries.
func (d Days) Equal(o Days) bool {
	if len(d) != len(o) {
		return false
	}
	for k, v := range d {
		if ov, ok := o[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// CountInMonth counts entries with the given status inside m.
func (d Days) CountInMonth(m Month, status DayStatus) int {
	n := 0
	for date, s := range d {
		if s == status && m.Contains(date) {
			n++
		}
	}
	return n
}

// Count counts entries with the given status across the whole map.
func (d Days) Count(status DayStatus) int {
	n := 0
	for _, s := range d {
		if s == status {
			n++
		}
	}
	return n
}

// SortedDates returns the keys of d in ascending chronological order.
func (d Days) SortedDates() []Date {
	dates := make([]Date, 0, len(d))
	for date := range d {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates
}
