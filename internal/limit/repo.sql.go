package limit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SQLRepository provides PostgreSQL backed revenue aggregates.
type SQLRepository struct {
	pool *pgxpool.Pool
}

// NewSQLRepository constructs a repository.
func NewSQLRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

// SumIssuedTotals sums RSD totals of issued invoices in [from, to].
func (r *SQLRepository) SumIssuedTotals(ctx context.Context, firmID int64, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_rsd), 0)
FROM invoices
WHERE firm_id = $1 AND status = 'ISSUED' AND issue_date >= $2 AND issue_date <= $3`, firmID, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// ListIssuedTotals returns per-invoice totals in [from, to].
func (r *SQLRepository) ListIssuedTotals(ctx context.Context, firmID int64, from, to time.Time) ([]InvoiceTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT issue_date, total_rsd
FROM invoices
WHERE firm_id = $1 AND status = 'ISSUED' AND issue_date >= $2 AND issue_date <= $3
ORDER BY issue_date`, firmID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totals []InvoiceTotal
	for rows.Next() {
		var t InvoiceTotal
		if err := rows.Scan(&t.IssueDate, &t.AmountRSD); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}

// CountIssued counts issued invoices in [from, to].
func (r *SQLRepository) CountIssued(ctx context.Context, firmID int64, from, to time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*)
FROM invoices
WHERE firm_id = $1 AND status = 'ISSUED' AND issue_date >= $2 AND issue_date <= $3`, firmID, from, to).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MonthlyTotals aggregates issued revenue by calendar month in [from, to].
func (r *SQLRepository) MonthlyTotals(ctx context.Context, firmID int64, from, to time.Time) ([]MonthTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT EXTRACT(YEAR FROM issue_date)::int, EXTRACT(MONTH FROM issue_date)::int, COALESCE(SUM(total_rsd), 0)
FROM invoices
WHERE firm_id = $1 AND status = 'ISSUED' AND issue_date >= $2 AND issue_date <= $3
GROUP BY 1, 2
ORDER BY 1, 2`, firmID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totals []MonthTotal
	for rows.Next() {
		var (
			year  int
			month int
			rev   decimal.Decimal
		)
		if err := rows.Scan(&year, &month, &rev); err != nil {
			return nil, err
		}
		totals = append(totals, MonthTotal{Year: year, Month: time.Month(month), Revenue: rev})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}
