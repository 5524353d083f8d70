// Package calc holds the pure invoice calculations: due dates, line totals,
// invoice aggregation and currency-mode conversion. All functions are
// stateless and safe to recompute on every edit.
package calc

import "time"

// DueDate returns the payment due date: issueDate plus the payment term in
// calendar days, rolled forward to Monday when it lands on a weekend. Public
// holidays are intentionally not considered.
//
// A term below one day is not yet computable; ok is false and the caller
// keeps the due date unset rather than failing the whole form.
func DueDate(issueDate time.Time, paymentTermDays int) (time.Time, bool) {
	if paymentTermDays < 1 {
		return time.Time{}, false
	}
	due := issueDate.AddDate(0, 0, paymentTermDays)
	switch due.Weekday() {
	case time.Saturday:
		due = due.AddDate(0, 0, 2)
	case time.Sunday:
		due = due.AddDate(0, 0, 1)
	}
	return due, true
}
