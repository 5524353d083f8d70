// Package kpo maintains the KPO book (knjiga o ostvarenom prometu): the
// chronological revenue register a flat-rate entrepreneur must keep. Entries
// are appended when invoices are issued and numbered per firm and year.
package kpo

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates a missing entry.
	ErrNotFound = errors.New("kpo: entry not found")
	// ErrDuplicate indicates an invoice already recorded in the book.
	ErrDuplicate = errors.New("kpo: invoice already recorded")
)

// Entry is one row of the KPO book. InvoiceID is nil for manual rows.
type Entry struct {
	ID          int64
	FirmID      int64
	InvoiceID   *int64
	Ordinal     int
	Year        int
	EntryDate   time.Time
	Document    string
	Description string
	AmountRSD   decimal.Decimal
	CreatedAt   time.Time
}
