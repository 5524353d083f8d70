package kpo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fakturnik/fakturnik/internal/platform/db"
)

// SQLRepository provides PostgreSQL backed KPO persistence.
type SQLRepository struct {
	pool *pgxpool.Pool
}

// NewSQLRepository constructs a repository.
func NewSQLRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

// Append inserts an entry with the next ordinal for its firm and year. The
// advisory lock serialises concurrent appends for the same book.
func (r *SQLRepository) Append(ctx context.Context, entry *Entry) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, entry.FirmID, entry.Year); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(ordinal), 0) + 1
FROM kpo_entries WHERE firm_id = $1 AND year = $2`, entry.FirmID, entry.Year).Scan(&entry.Ordinal)
		if err != nil {
			return err
		}
		return tx.QueryRow(ctx, `INSERT INTO kpo_entries
(firm_id, invoice_id, ordinal, year, entry_date, document, description, amount_rsd, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id`,
			entry.FirmID, entry.InvoiceID, entry.Ordinal, entry.Year, entry.EntryDate,
			entry.Document, entry.Description, entry.AmountRSD, entry.CreatedAt).Scan(&entry.ID)
	})
}

// ExistsForInvoice reports whether an invoice already has a book entry.
func (r *SQLRepository) ExistsForInvoice(ctx context.Context, firmID, invoiceID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM kpo_entries WHERE firm_id = $1 AND invoice_id = $2)`, firmID, invoiceID).Scan(&exists)
	return exists, err
}

// DeleteForInvoice removes an invoice's book entry, if any.
func (r *SQLRepository) DeleteForInvoice(ctx context.Context, firmID, invoiceID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM kpo_entries
WHERE firm_id = $1 AND invoice_id = $2`, firmID, invoiceID)
	return err
}

// ListYear returns one year of the book in ordinal order.
func (r *SQLRepository) ListYear(ctx context.Context, firmID int64, year int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, firm_id, invoice_id, ordinal, year, entry_date, document, description, amount_rsd, created_at
FROM kpo_entries WHERE firm_id = $1 AND year = $2 ORDER BY ordinal`, firmID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.FirmID, &e.InvoiceID, &e.Ordinal, &e.Year, &e.EntryDate,
			&e.Document, &e.Description, &e.AmountRSD, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// YearTotal sums one year of recorded revenue.
func (r *SQLRepository) YearTotal(ctx context.Context, firmID int64, year int) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount_rsd), 0)
FROM kpo_entries WHERE firm_id = $1 AND year = $2`, firmID, year).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
