package ledger

import (
	"time"

	"github.com/theirongolddev/quitc/internal/model"
)

// Clock supplies "today" so statistics never read the wall clock directly.
type Clock interface {
	Today() model.Date
}

// SystemClock reads the wall clock in Location (time.Local when nil).
type SystemClock struct {
	Location *time.Location
}

// Today returns the current calendar date.
func (c SystemClock) Today() model.Date {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return model.DateOf(time.Now().In(loc))
}

// FixedClock always returns the same date.
type FixedClock model.Date

// Today returns the fixed date.
func (c FixedClock) Today() model.Date {
	return model.Date(c)
}
