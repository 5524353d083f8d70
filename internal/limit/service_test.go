package limit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memoryRevenueRepo serves aggregates from a fixed list of invoice totals.
type memoryRevenueRepo struct {
	totals []InvoiceTotal
}

func (r *memoryRevenueRepo) inWindow(from, to time.Time) []InvoiceTotal {
	var out []InvoiceTotal
	for _, t := range r.totals {
		if t.IssueDate.Before(from) || t.IssueDate.After(to) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (r *memoryRevenueRepo) SumIssuedTotals(ctx context.Context, firmID int64, from, to time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range r.inWindow(from, to) {
		sum = sum.Add(t.AmountRSD)
	}
	return sum, nil
}

func (r *memoryRevenueRepo) ListIssuedTotals(ctx context.Context, firmID int64, from, to time.Time) ([]InvoiceTotal, error) {
	return r.inWindow(from, to), nil
}

func (r *memoryRevenueRepo) CountIssued(ctx context.Context, firmID int64, from, to time.Time) (int, error) {
	return len(r.inWindow(from, to)), nil
}

func (r *memoryRevenueRepo) MonthlyTotals(ctx context.Context, firmID int64, from, to time.Time) ([]MonthTotal, error) {
	byMonth := map[[2]int]decimal.Decimal{}
	for _, t := range r.inWindow(from, to) {
		key := [2]int{t.IssueDate.Year(), int(t.IssueDate.Month())}
		byMonth[key] = byMonth[key].Add(t.AmountRSD)
	}
	var out []MonthTotal
	for key, rev := range byMonth {
		out = append(out, MonthTotal{Year: key[0], Month: time.Month(key[1]), Revenue: rev})
	}
	return out, nil
}

func testService(totals []InvoiceTotal) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(&memoryRevenueRepo{totals: totals}, DefaultThresholds(), logger)
}

func TestSnapshotForUsesPersistedWindow(t *testing.T) {
	asOf := day(2025, 10, 28)
	svc := testService([]InvoiceTotal{
		{IssueDate: asOf.AddDate(0, 0, -5), AmountRSD: dec("500000")},
		{IssueDate: asOf.AddDate(0, 0, -400), AmountRSD: dec("900000")}, // out of window
	})

	snap, err := svc.SnapshotFor(context.Background(), 1, asOf, dec("250000"))
	require.NoError(t, err)
	require.True(t, snap.Trailing365Total.Equal(dec("500000")))
	require.True(t, snap.RemainingAfterSimulated.Equal(dec("7250000")))
}

func TestOverviewForAggregatesWindows(t *testing.T) {
	asOf := day(2025, 10, 28)
	svc := testService([]InvoiceTotal{
		{IssueDate: day(2025, 10, 3), AmountRSD: dec("100000")},  // this month
		{IssueDate: day(2025, 10, 20), AmountRSD: dec("200000")}, // this month
		{IssueDate: day(2025, 2, 14), AmountRSD: dec("400000")},  // this year
		{IssueDate: day(2024, 12, 30), AmountRSD: dec("300000")}, // previous year, in rolling window
	})

	overview, err := svc.OverviewFor(context.Background(), 1, asOf)
	require.NoError(t, err)

	require.Equal(t, 2, overview.MonthInvoiceCount)
	require.True(t, overview.MonthTotal.Equal(dec("300000")))
	require.True(t, overview.YearTotal.Equal(dec("700000")))
	require.True(t, overview.YearlyRemaining.Equal(dec("5300000")))
	require.True(t, overview.Rolling.Trailing365Total.Equal(dec("1000000")))
}

func TestWindowProjectionsSeeFutureInvoices(t *testing.T) {
	asOf := day(2025, 10, 28)
	svc := testService([]InvoiceTotal{
		{IssueDate: asOf.AddDate(0, 0, -100), AmountRSD: dec("7900000")},
		// Future-dated invoice inside the +15 and +30 day windows.
		{IssueDate: asOf.AddDate(0, 0, 10), AmountRSD: dec("400000")},
	})

	projections, err := svc.WindowProjections(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.Len(t, projections, 3)

	require.Equal(t, 7, projections[0].Days)
	require.True(t, projections[0].Remaining.Equal(dec("100000")))
	require.False(t, projections[0].Warning)

	require.Equal(t, 15, projections[1].Days)
	require.True(t, projections[1].Remaining.Equal(dec("-300000")))
	require.True(t, projections[1].Warning)

	require.Equal(t, 30, projections[2].Days)
	require.True(t, projections[2].Remaining.Equal(dec("-300000")))
	require.True(t, projections[2].Warning)
}

func TestMonthlyRevenueSeriesFillsGaps(t *testing.T) {
	asOf := day(2025, 10, 28)
	svc := testService([]InvoiceTotal{
		{IssueDate: day(2025, 10, 5), AmountRSD: dec("150000")},
		{IssueDate: day(2025, 8, 5), AmountRSD: dec("100000")},
	})

	series, err := svc.MonthlyRevenueSeries(context.Background(), 1, asOf, 4)
	require.NoError(t, err)
	require.Len(t, series, 4)

	require.Equal(t, time.July, series[0].Month)
	require.True(t, series[0].Revenue.IsZero())
	require.Equal(t, time.August, series[1].Month)
	require.True(t, series[1].Revenue.Equal(dec("100000")))
	require.Equal(t, time.September, series[2].Month)
	require.True(t, series[2].Revenue.IsZero())
	require.Equal(t, time.October, series[3].Month)
	require.True(t, series[3].Revenue.Equal(dec("150000")))
}
