package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatNumberZeroPadsCounter(t *testing.T) {
	require.Equal(t, "FA-0042/2025", FormatNumber("FA-", 42, "/2025"))
	require.Equal(t, "0007", FormatNumber("", 7, ""))
	require.Equal(t, "INV-12345", FormatNumber("INV-", 12345, ""))
}

func TestNextCounterContinuesWithinYear(t *testing.T) {
	last := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	issue := time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 8, NextCounter(8, &last, issue))
}

func TestNextCounterResetsOnYearRollover(t *testing.T) {
	last := time.Date(2025, 12, 29, 9, 0, 0, 0, time.UTC)
	issue := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 1, NextCounter(131, &last, issue))
}

func TestNextCounterFirstInvoiceStartsAtOne(t *testing.T) {
	issue := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 1, NextCounter(0, nil, issue))
	require.Equal(t, 3, NextCounter(3, nil, issue))
}
