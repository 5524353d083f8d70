package invoice

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fakturnik/fakturnik/internal/platform/db"
)

// SQLRepository provides PostgreSQL backed invoice persistence.
type SQLRepository struct {
	pool *pgxpool.Pool
}

// NewSQLRepository constructs a repository.
func NewSQLRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

const invoiceColumns = `id, firm_id, client_id, number, kind, status, language,
currency_mode, currency, exchange_rate, rate_source, issue_date, payment_term_days, due_date,
contract_number, order_number, reference_number, total_rsd, total_foreign,
cancel_reason, pdf_object, created_at, updated_at, finalized_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.FirmID, &inv.ClientID, &inv.Number, &inv.Kind, &inv.Status, &inv.Language,
		&inv.CurrencyMode, &inv.Currency, &inv.ExchangeRate, &inv.RateSource, &inv.IssueDate,
		&inv.PaymentTermDays, &inv.DueDate, &inv.ContractNumber, &inv.OrderNumber,
		&inv.ReferenceNumber, &inv.TotalRSD, &inv.TotalForeign, &inv.CancelReason,
		&inv.PDFObject, &inv.CreatedAt, &inv.UpdatedAt, &inv.FinalizedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts a draft invoice with its lines and sets inv.ID.
func (r *SQLRepository) Create(ctx context.Context, inv *Invoice) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO invoices
(firm_id, client_id, number, kind, status, language, currency_mode, currency, exchange_rate, rate_source,
 issue_date, payment_term_days, due_date, contract_number, order_number, reference_number,
 total_rsd, total_foreign, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$19)
RETURNING id`,
			inv.FirmID, inv.ClientID, inv.Number, inv.Kind, inv.Status, inv.Language,
			inv.CurrencyMode, inv.Currency, inv.ExchangeRate, inv.RateSource,
			inv.IssueDate, inv.PaymentTermDays, inv.DueDate, inv.ContractNumber,
			inv.OrderNumber, inv.ReferenceNumber, inv.TotalRSD, inv.TotalForeign,
			inv.CreatedAt).Scan(&inv.ID)
		if err != nil {
			return err
		}
		return insertLines(ctx, tx, inv.ID, inv.Lines)
	})
}

func insertLines(ctx context.Context, tx pgx.Tx, invoiceID int64, lines []Line) error {
	for i := range lines {
		lines[i].InvoiceID = invoiceID
		err := tx.QueryRow(ctx, `INSERT INTO invoice_lines
(invoice_id, catalog_id, description, unit, quantity, unit_price, total, ordinal)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id`,
			invoiceID, lines[i].CatalogID, lines[i].Description, lines[i].Unit,
			lines[i].Quantity, lines[i].UnitPrice, lines[i].Total, lines[i].Ordinal).Scan(&lines[i].ID)
		if err != nil {
			return err
		}
	}
	return nil
}

// Get returns one invoice with its lines, scoped to a firm.
func (r *SQLRepository) Get(ctx context.Context, firmID, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+`
FROM invoices WHERE id = $1 AND firm_id = $2`, id, firmID))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, catalog_id, description, unit, quantity, unit_price, total, ordinal
FROM invoice_lines WHERE invoice_id = $1 ORDER BY ordinal`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.CatalogID, &line.Description,
			&line.Unit, &line.Quantity, &line.UnitPrice, &line.Total, &line.Ordinal); err != nil {
			return nil, err
		}
		inv.Lines = append(inv.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return inv, nil
}

// List returns invoice headers matching the filter, newest first.
func (r *SQLRepository) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE firm_id = $1`
	args := []any{filter.FirmID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $2`
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		query += ` AND EXTRACT(YEAR FROM issue_date)::int = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY issue_date DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

// UpdateDraft replaces a draft's header fields and lines. The status guard
// in the UPDATE keeps issued invoices immutable even under races.
func (r *SQLRepository) UpdateDraft(ctx context.Context, inv *Invoice) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE invoices SET
client_id = $1, language = $2, currency_mode = $3, currency = $4, exchange_rate = $5, rate_source = $6,
issue_date = $7, payment_term_days = $8, due_date = $9, contract_number = $10, order_number = $11,
reference_number = $12, total_rsd = $13, total_foreign = $14, updated_at = $15
WHERE id = $16 AND firm_id = $17 AND status = 'DRAFT'`,
			inv.ClientID, inv.Language, inv.CurrencyMode, inv.Currency, inv.ExchangeRate,
			inv.RateSource, inv.IssueDate, inv.PaymentTermDays, inv.DueDate,
			inv.ContractNumber, inv.OrderNumber, inv.ReferenceNumber,
			inv.TotalRSD, inv.TotalForeign, inv.UpdatedAt, inv.ID, inv.FirmID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotDraft
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, inv.ID); err != nil {
			return err
		}
		return insertLines(ctx, tx, inv.ID, inv.Lines)
	})
}

// Cancel marks an issued invoice as cancelled.
func (r *SQLRepository) Cancel(ctx context.Context, firmID, id int64, reason string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices
SET status = 'CANCELLED', cancel_reason = $1, updated_at = $2
WHERE id = $3 AND firm_id = $4 AND status = 'ISSUED'`, reason, at, id, firmID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotIssued
	}
	return nil
}

// SetPDFObject records the storage key of a rendered document.
func (r *SQLRepository) SetPDFObject(ctx context.Context, id int64, object string) error {
	_, err := r.pool.Exec(ctx, `UPDATE invoices SET pdf_object = $1 WHERE id = $2`, object, id)
	return err
}

// InTx runs fn with a transactional view used by finalization.
func (r *SQLRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx FinalizeTx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &sqlFinalizeTx{tx: tx})
	})
}

type sqlFinalizeTx struct {
	tx pgx.Tx
}

func (t *sqlFinalizeTx) LockFirmSequence(ctx context.Context, firmID int64) (FirmSequence, error) {
	var seq FirmSequence
	err := t.tx.QueryRow(ctx, `SELECT invoice_prefix, invoice_suffix, invoice_counter
FROM firms WHERE id = $1 FOR UPDATE`, firmID).Scan(&seq.Prefix, &seq.Suffix, &seq.Counter)
	if errors.Is(err, pgx.ErrNoRows) {
		return FirmSequence{}, ErrNotFound
	}
	return seq, err
}

func (t *sqlFinalizeTx) LastFinalized(ctx context.Context, firmID int64) (*time.Time, error) {
	var last *time.Time
	err := t.tx.QueryRow(ctx, `SELECT MAX(finalized_at) FROM invoices
WHERE firm_id = $1 AND finalized_at IS NOT NULL`, firmID).Scan(&last)
	if err != nil {
		return nil, err
	}
	return last, nil
}

func (t *sqlFinalizeTx) MarkIssued(ctx context.Context, id int64, number string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices
SET status = 'ISSUED', number = $1, finalized_at = $2, updated_at = $2
WHERE id = $3 AND status = 'DRAFT'`, number, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotDraft
	}
	return nil
}

func (t *sqlFinalizeTx) SetFirmCounter(ctx context.Context, firmID int64, counter int) error {
	_, err := t.tx.Exec(ctx, `UPDATE firms SET invoice_counter = $1, updated_at = NOW() WHERE id = $2`, counter, firmID)
	return err
}
