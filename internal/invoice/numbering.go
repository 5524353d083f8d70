package invoice

import (
	"fmt"
	"time"
)

// FormatNumber renders an invoice number from the firm's prefix, a
// zero-padded counter and the firm's suffix, e.g. "FA-0042/2025".
func FormatNumber(prefix string, counter int, suffix string) string {
	return fmt.Sprintf("%s%04d%s", prefix, counter, suffix)
}

// NextCounter returns the counter to stamp on an invoice finalized at
// issueDate. The sequence restarts at 1 when the calendar year has rolled
// over since the previous finalization; lastFinalized is nil when the firm
// has never issued an invoice.
func NextCounter(current int, lastFinalized *time.Time, issueDate time.Time) int {
	if lastFinalized != nil && lastFinalized.Year() < issueDate.Year() {
		return 1
	}
	if current < 1 {
		return 1
	}
	return current
}
