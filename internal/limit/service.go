package limit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Thresholds configures the regulatory limits the service tracks against.
type Thresholds struct {
	RollingRSD decimal.Decimal
	YearlyRSD  decimal.Decimal
}

// DefaultThresholds returns the statutory limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RollingRSD: decimal.NewFromInt(DefaultRollingThresholdRSD),
		YearlyRSD:  decimal.NewFromInt(DefaultYearlyThresholdRSD),
	}
}

// Service computes limit snapshots, projections and revenue series on top of
// persisted invoice totals.
type Service struct {
	repo       Repository
	thresholds Thresholds
	logger     *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, thresholds Thresholds, logger *slog.Logger) *Service {
	if !thresholds.RollingRSD.IsPositive() {
		thresholds.RollingRSD = decimal.NewFromInt(DefaultRollingThresholdRSD)
	}
	if !thresholds.YearlyRSD.IsPositive() {
		thresholds.YearlyRSD = decimal.NewFromInt(DefaultYearlyThresholdRSD)
	}
	return &Service{repo: repo, thresholds: thresholds, logger: logger}
}

// SnapshotFor computes the rolling-limit snapshot as of asOf, optionally
// simulating an unsaved invoice amount on top of the persisted revenue.
func (s *Service) SnapshotFor(ctx context.Context, firmID int64, asOf time.Time, simulated decimal.Decimal) (Snapshot, error) {
	from := asOf.AddDate(0, 0, -RollingWindowDays)
	totals, err := s.repo.ListIssuedTotals(ctx, firmID, from, asOf)
	if err != nil {
		return Snapshot{}, fmt.Errorf("limit: load window totals: %w", err)
	}
	return Compute(asOf, totals, s.thresholds.RollingRSD, simulated), nil
}

// Overview is the dashboard aggregate: current month, calendar year and the
// rolling-window snapshot.
type Overview struct {
	MonthInvoiceCount int
	MonthTotal        decimal.Decimal
	YearTotal         decimal.Decimal
	YearlyThreshold   decimal.Decimal
	YearlyRemaining   decimal.Decimal
	Rolling           Snapshot
}

// OverviewFor aggregates dashboard figures for one firm. The three windows
// are queried concurrently.
func (s *Service) OverviewFor(ctx context.Context, firmID int64, asOf time.Time) (Overview, error) {
	monthStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())
	yearStart := time.Date(asOf.Year(), 1, 1, 0, 0, 0, 0, asOf.Location())

	var (
		overview Overview
		window   []InvoiceTotal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.repo.CountIssued(gctx, firmID, monthStart, asOf)
		if err != nil {
			return fmt.Errorf("limit: month count: %w", err)
		}
		overview.MonthInvoiceCount = count
		return nil
	})
	g.Go(func() error {
		total, err := s.repo.SumIssuedTotals(gctx, firmID, monthStart, asOf)
		if err != nil {
			return fmt.Errorf("limit: month total: %w", err)
		}
		overview.MonthTotal = total
		return nil
	})
	g.Go(func() error {
		total, err := s.repo.SumIssuedTotals(gctx, firmID, yearStart, asOf)
		if err != nil {
			return fmt.Errorf("limit: year total: %w", err)
		}
		overview.YearTotal = total
		return nil
	})
	g.Go(func() error {
		totals, err := s.repo.ListIssuedTotals(gctx, firmID, asOf.AddDate(0, 0, -RollingWindowDays), asOf)
		if err != nil {
			return fmt.Errorf("limit: rolling window: %w", err)
		}
		window = totals
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	overview.YearlyThreshold = s.thresholds.YearlyRSD
	overview.YearlyRemaining = s.thresholds.YearlyRSD.Sub(overview.YearTotal)
	overview.Rolling = Compute(asOf, window, s.thresholds.RollingRSD, decimal.Zero)
	return overview, nil
}

// WindowProjection is remaining headroom with the rolling window shifted
// forward by N days over real data, future-dated invoices included.
type WindowProjection struct {
	Days      int
	Remaining decimal.Decimal
	Warning   bool
}

// WindowProjections shifts the whole 365-day window forward by 7, 15 and 30
// days and recomputes headroom from persisted data. Unlike the run-rate
// projections in Compute, these see future-dated invoices already in the
// books.
func (s *Service) WindowProjections(ctx context.Context, firmID int64, asOf time.Time) ([]WindowProjection, error) {
	horizons := []int{7, 15, 30}
	projections := make([]WindowProjection, len(horizons))

	g, gctx := errgroup.WithContext(ctx)
	for i, days := range horizons {
		g.Go(func() error {
			from := asOf.AddDate(0, 0, days-RollingWindowDays)
			to := asOf.AddDate(0, 0, days)
			total, err := s.repo.SumIssuedTotals(gctx, firmID, from, to)
			if err != nil {
				return fmt.Errorf("limit: projection window %+dd: %w", days, err)
			}
			remaining := s.thresholds.RollingRSD.Sub(total)
			projections[i] = WindowProjection{
				Days:      days,
				Remaining: remaining,
				Warning:   remaining.IsNegative(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return projections, nil
}

// MonthRevenue is one point of the monthly revenue series.
type MonthRevenue struct {
	Year    int
	Month   time.Month
	Revenue decimal.Decimal
}

// MonthlyRevenueSeries returns the last months of revenue ending at asOf's
// month, oldest first, with missing months filled with zero.
func (s *Service) MonthlyRevenueSeries(ctx context.Context, firmID int64, asOf time.Time, months int) ([]MonthRevenue, error) {
	if months < 1 {
		months = 12
	}
	currentMonth := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())
	from := currentMonth.AddDate(0, -(months - 1), 0)

	rows, err := s.repo.MonthlyTotals(ctx, firmID, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("limit: monthly totals: %w", err)
	}
	byMonth := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		byMonth[fmt.Sprintf("%04d-%02d", row.Year, row.Month)] = row.Revenue
	}

	series := make([]MonthRevenue, 0, months)
	for i := 0; i < months; i++ {
		m := from.AddDate(0, i, 0)
		revenue, ok := byMonth[fmt.Sprintf("%04d-%02d", m.Year(), m.Month())]
		if !ok {
			revenue = decimal.Zero
		}
		series = append(series, MonthRevenue{Year: m.Year(), Month: m.Month(), Revenue: revenue})
	}
	return series, nil
}
