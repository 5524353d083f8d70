package kpo

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fakturnik/fakturnik/internal/invoice"
)

// memoryBookRepo assigns ordinals per firm and year like the SQL repo.
type memoryBookRepo struct {
	entries []Entry
	nextID  int64
}

func (r *memoryBookRepo) Append(ctx context.Context, entry *Entry) error {
	max := 0
	for _, e := range r.entries {
		if e.FirmID == entry.FirmID && e.Year == entry.Year && e.Ordinal > max {
			max = e.Ordinal
		}
	}
	r.nextID++
	entry.ID = r.nextID
	entry.Ordinal = max + 1
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memoryBookRepo) ExistsForInvoice(ctx context.Context, firmID, invoiceID int64) (bool, error) {
	for _, e := range r.entries {
		if e.FirmID == firmID && e.InvoiceID != nil && *e.InvoiceID == invoiceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryBookRepo) DeleteForInvoice(ctx context.Context, firmID, invoiceID int64) error {
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.FirmID == firmID && e.InvoiceID != nil && *e.InvoiceID == invoiceID {
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return nil
}

func (r *memoryBookRepo) ListYear(ctx context.Context, firmID int64, year int) ([]Entry, error) {
	var out []Entry
	for _, e := range r.entries {
		if e.FirmID == firmID && e.Year == year {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryBookRepo) YearTotal(ctx context.Context, firmID int64, year int) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range r.entries {
		if e.FirmID == firmID && e.Year == year {
			total = total.Add(e.AmountRSD)
		}
	}
	return total, nil
}

func testBook() (*Service, *memoryBookRepo) {
	repo := &memoryBookRepo{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, logger), repo
}

func record(invoiceID int64, date time.Time, amount string) invoice.IssuedRecord {
	return invoice.IssuedRecord{
		FirmID:      1,
		InvoiceID:   invoiceID,
		Number:      "2025-0001",
		IssueDate:   date,
		ClientName:  "Acme GmbH",
		Description: "Faktura 2025-0001",
		AmountRSD:   decimal.RequireFromString(amount),
	}
}

func TestRecordIssuedAssignsOrdinalsPerYear(t *testing.T) {
	svc, repo := testBook()
	ctx := context.Background()

	require.NoError(t, svc.RecordIssued(ctx, record(1, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "100000")))
	require.NoError(t, svc.RecordIssued(ctx, record(2, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), "200000")))
	// A new year starts its own ordinal sequence.
	require.NoError(t, svc.RecordIssued(ctx, record(3, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), "50000")))

	require.Equal(t, 1, repo.entries[0].Ordinal)
	require.Equal(t, 2, repo.entries[1].Ordinal)
	require.Equal(t, 1, repo.entries[2].Ordinal)
	require.Equal(t, 2026, repo.entries[2].Year)
	require.Equal(t, "Faktura 2025-0001, Acme GmbH", repo.entries[0].Description)
}

func TestRecordIssuedIsIdempotent(t *testing.T) {
	svc, repo := testBook()
	ctx := context.Background()
	rec := record(1, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "100000")

	require.NoError(t, svc.RecordIssued(ctx, rec))
	require.NoError(t, svc.RecordIssued(ctx, rec))
	require.Len(t, repo.entries, 1)
}

func TestRemoveIssuedDeletesEntry(t *testing.T) {
	svc, repo := testBook()
	ctx := context.Background()

	require.NoError(t, svc.RecordIssued(ctx, record(1, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "100000")))
	require.NoError(t, svc.RemoveIssued(ctx, 1, 1))
	require.Empty(t, repo.entries)
}

func TestYearSumsRecordedRevenue(t *testing.T) {
	svc, _ := testBook()
	ctx := context.Background()

	require.NoError(t, svc.RecordIssued(ctx, record(1, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "100000")))
	_, err := svc.AddManual(ctx, 1, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), "IZVOD-17", "Naplata u gotovini", decimal.RequireFromString("25000"))
	require.NoError(t, err)

	entries, total, err := svc.Year(ctx, 1, 2025)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.True(t, total.Equal(decimal.RequireFromString("125000")))
}
