package fx

import (
	"sync"
	"time"
)

// Request identifies one pending rate lookup, pinned to the inputs it was
// issued for.
type Request struct {
	Currency string
	Date     time.Time
	gen      uint64
}

// Tracker guards an edit session against stale asynchronous rate results.
//
// Every change of currency or date stamps a new request and bumps the
// generation; a result settled with an older request is rejected with
// ErrStaleResult so the caller recomputes with current inputs.
type Tracker struct {
	mu       sync.Mutex
	gen      uint64
	currency string
	date     time.Time
}

// NewTracker constructs a Tracker for one invoice-edit session.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Stamp registers the session's current inputs and returns the request that
// an in-flight lookup must carry.
func (t *Tracker) Stamp(currency string, date time.Time) Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.currency = currency
	t.date = date
	return Request{Currency: currency, Date: date, gen: t.gen}
}

// Settle validates a finished lookup against the session's current inputs.
func (t *Tracker) Settle(req Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if req.gen != t.gen {
		return ErrStaleResult
	}
	return nil
}
