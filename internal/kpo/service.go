package kpo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fakturnik/fakturnik/internal/invoice"
)

// Service maintains the KPO book. It satisfies invoice.RevenueBook so
// finalized invoices land in the book automatically.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// RecordIssued appends a book entry for a freshly issued invoice. Recording
// the same invoice twice is a no-op so finalization retries stay safe.
func (s *Service) RecordIssued(ctx context.Context, rec invoice.IssuedRecord) error {
	exists, err := s.repo.ExistsForInvoice(ctx, rec.FirmID, rec.InvoiceID)
	if err != nil {
		return fmt.Errorf("kpo: check invoice %d: %w", rec.InvoiceID, err)
	}
	if exists {
		s.logger.Warn("kpo entry already present", slog.Int64("invoice_id", rec.InvoiceID))
		return nil
	}

	entry := &Entry{
		FirmID:      rec.FirmID,
		InvoiceID:   &rec.InvoiceID,
		Year:        rec.IssueDate.Year(),
		EntryDate:   rec.IssueDate,
		Document:    rec.Number,
		Description: entryDescription(rec),
		AmountRSD:   rec.AmountRSD,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("kpo: append invoice %d: %w", rec.InvoiceID, err)
	}
	return nil
}

// RemoveIssued removes a cancelled invoice's entry from the book.
func (s *Service) RemoveIssued(ctx context.Context, firmID, invoiceID int64) error {
	return s.repo.DeleteForInvoice(ctx, firmID, invoiceID)
}

// AddManual appends a manual revenue row (cash receipts and similar income
// with no invoice behind it).
func (s *Service) AddManual(ctx context.Context, firmID int64, entryDate time.Time, document, description string, amount decimal.Decimal) (*Entry, error) {
	entry := &Entry{
		FirmID:      firmID,
		Year:        entryDate.Year(),
		EntryDate:   entryDate,
		Document:    document,
		Description: description,
		AmountRSD:   amount,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("kpo: append manual entry: %w", err)
	}
	return entry, nil
}

// Year returns one year of the book with its revenue total.
func (s *Service) Year(ctx context.Context, firmID int64, year int) ([]Entry, decimal.Decimal, error) {
	entries, err := s.repo.ListYear(ctx, firmID, year)
	if err != nil {
		return nil, decimal.Zero, err
	}
	total, err := s.repo.YearTotal(ctx, firmID, year)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return entries, total, nil
}

func entryDescription(rec invoice.IssuedRecord) string {
	if rec.ClientName == "" {
		return rec.Description
	}
	return fmt.Sprintf("%s, %s", rec.Description, rec.ClientName)
}
