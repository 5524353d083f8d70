package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fakturnik/fakturnik/internal/fx"
	"github.com/fakturnik/fakturnik/internal/invoice/calc"
	"github.com/fakturnik/fakturnik/internal/masterdata"
)

// References resolves the master data an invoice points at.
type References interface {
	GetFirm(ctx context.Context, id int64) (*masterdata.Firm, error)
	GetClient(ctx context.Context, firmID, id int64) (*masterdata.Client, error)
	GetCatalogItem(ctx context.Context, firmID, id int64) (*masterdata.CatalogItem, error)
}

// RateResolver supplies exchange rates for foreign-currency invoices.
type RateResolver interface {
	CurrentRate(ctx context.Context, currency string, date time.Time) (fx.Rate, error)
}

// IssuedRecord is what the KPO revenue book receives on finalization.
type IssuedRecord struct {
	FirmID      int64
	InvoiceID   int64
	Number      string
	IssueDate   time.Time
	ClientName  string
	Description string
	AmountRSD   decimal.Decimal
}

// RevenueBook records issued invoices in the KPO book.
type RevenueBook interface {
	RecordIssued(ctx context.Context, rec IssuedRecord) error
	RemoveIssued(ctx context.Context, firmID, invoiceID int64) error
}

// TaskEnqueuer schedules background work after issuance.
type TaskEnqueuer interface {
	EnqueueInvoiceIssued(ctx context.Context, firmID, invoiceID int64) error
}

// Service implements the invoice lifecycle.
type Service struct {
	repo   Repository
	refs   References
	rates  RateResolver
	book   RevenueBook
	tasks  TaskEnqueuer
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service. book and tasks may be nil when the
// corresponding side effects are not wired (worker-less deployments).
func NewService(repo Repository, refs References, rates RateResolver, book RevenueBook, tasks TaskEnqueuer, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		refs:   refs,
		rates:  rates,
		book:   book,
		tasks:  tasks,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns one invoice with lines.
func (s *Service) Get(ctx context.Context, firmID, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, firmID, id)
}

// List returns invoice headers matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.List(ctx, filter)
}

// Create builds a draft from the input: verifies references, resolves the
// exchange rate for foreign currencies, derives the due date and totals.
func (s *Service) Create(ctx context.Context, in CreateInvoiceInput) (*Invoice, error) {
	firm, err := s.refs.GetFirm(ctx, in.FirmID)
	if err != nil {
		return nil, fmt.Errorf("invoice: firm %d: %w", in.FirmID, err)
	}
	if !firm.Active {
		return nil, fmt.Errorf("invoice: firm %d is inactive: %w", in.FirmID, masterdata.ErrNotFound)
	}
	if _, err := s.refs.GetClient(ctx, in.FirmID, in.ClientID); err != nil {
		return nil, fmt.Errorf("invoice: client %d: %w", in.ClientID, err)
	}
	if err := s.verifyCatalogRefs(ctx, in.FirmID, in.Lines); err != nil {
		return nil, err
	}
	if err := validateLines(in.Lines); err != nil {
		return nil, err
	}

	issueDate, err := time.Parse("2006-01-02", in.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("invoice: issue_date: %w", err)
	}

	inv := &Invoice{
		FirmID:          in.FirmID,
		ClientID:        in.ClientID,
		Kind:            in.Kind,
		Status:          StatusDraft,
		Language:        in.Language,
		CurrencyMode:    calc.ModeDomestic,
		Currency:        calc.LocalCurrency,
		RateSource:      fx.SourceFetched,
		IssueDate:       issueDate,
		PaymentTermDays: in.PaymentTermDays,
		ContractNumber:  in.ContractNumber,
		OrderNumber:     in.OrderNumber,
		ReferenceNumber: in.ReferenceNumber,
		CreatedAt:       s.now().UTC(),
	}
	inv.UpdatedAt = inv.CreatedAt
	if inv.Kind == "" {
		inv.Kind = KindStandard
	}
	if inv.Language == "" {
		inv.Language = LanguageSerbian
	}

	if in.Currency != "" && in.Currency != calc.LocalCurrency {
		if !fx.IsSupported(in.Currency) {
			return nil, fmt.Errorf("invoice: %w %s", fx.ErrUnsupportedCurrency, in.Currency)
		}
		inv.CurrencyMode = calc.ModeForeign
		inv.Currency = in.Currency
		if err := s.resolveRate(ctx, inv, in.ManualRate); err != nil {
			return nil, err
		}
	}

	if due, ok := calc.DueDate(issueDate, in.PaymentTermDays); ok {
		inv.DueDate = &due
	}
	s.applyLines(inv, calcItemsFromInput(in.Lines))

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// UpdateDraft replaces a draft's header fields and lines and recomputes the
// derived due date and totals.
func (s *Service) UpdateDraft(ctx context.Context, firmID, id int64, in UpdateDraftInput) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, firmID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusDraft {
		return nil, ErrNotDraft
	}
	if _, err := s.refs.GetClient(ctx, firmID, in.ClientID); err != nil {
		return nil, fmt.Errorf("invoice: client %d: %w", in.ClientID, err)
	}
	if err := s.verifyCatalogRefs(ctx, firmID, in.Lines); err != nil {
		return nil, err
	}
	if err := validateLines(in.Lines); err != nil {
		return nil, err
	}
	issueDate, err := time.Parse("2006-01-02", in.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("invoice: issue_date: %w", err)
	}

	inv.ClientID = in.ClientID
	if in.Language != "" {
		inv.Language = in.Language
	}
	inv.PaymentTermDays = in.PaymentTermDays
	inv.ContractNumber = in.ContractNumber
	inv.OrderNumber = in.OrderNumber
	inv.ReferenceNumber = in.ReferenceNumber
	inv.UpdatedAt = s.now().UTC()

	// A date change invalidates a fetched rate; re-resolve for that day.
	if !issueDate.Equal(inv.IssueDate) {
		inv.IssueDate = issueDate
		if inv.CurrencyMode == calc.ModeForeign && inv.RateSource != fx.SourceManual {
			if err := s.resolveRate(ctx, inv, nil); err != nil {
				return nil, err
			}
		}
	}

	inv.DueDate = nil
	if due, ok := calc.DueDate(issueDate, in.PaymentTermDays); ok {
		inv.DueDate = &due
	}
	s.applyLines(inv, calcItemsFromInput(in.Lines))

	if err := s.repo.UpdateDraft(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// SwitchCurrency moves a draft between domestic and foreign mode,
// converting line prices with the applicable rate. Switching away from a
// foreign currency requires its rate to be known.
func (s *Service) SwitchCurrency(ctx context.Context, firmID, id int64, in SwitchCurrencyInput) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, firmID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusDraft {
		return nil, ErrNotDraft
	}
	target := in.Currency
	if target == inv.Currency {
		return inv, nil
	}
	if target != calc.LocalCurrency && !fx.IsSupported(target) {
		return nil, fmt.Errorf("invoice: %w %s", fx.ErrUnsupportedCurrency, target)
	}

	items := inv.CalcItems()

	// Leave the current foreign currency through RSD.
	if inv.CurrencyMode == calc.ModeForeign {
		if inv.ExchangeRate == nil {
			return nil, ErrRateRequired
		}
		items, _ = calc.ConvertLineItems(items, calc.ForeignToLocal, *inv.ExchangeRate)
		inv.CurrencyMode = calc.ModeDomestic
		inv.Currency = calc.LocalCurrency
		inv.ExchangeRate = nil
		inv.RateSource = fx.SourceFetched
	}

	if target != calc.LocalCurrency {
		inv.CurrencyMode = calc.ModeForeign
		inv.Currency = target
		if err := s.resolveRate(ctx, inv, in.ManualRate); err != nil {
			return nil, err
		}
		if inv.ExchangeRate == nil {
			return nil, ErrRateRequired
		}
		items, _ = calc.ConvertLineItems(items, calc.LocalToForeign, *inv.ExchangeRate)
	}

	inv.UpdatedAt = s.now().UTC()
	s.applyLines(inv, items)

	if err := s.repo.UpdateDraft(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Finalize issues a draft: assigns the next number from the firm's
// sequence, stamps the finalization time, records KPO revenue and enqueues
// rendering and delivery. Foreign drafts need a known rate.
func (s *Service) Finalize(ctx context.Context, firmID, id int64) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, firmID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusDraft {
		return nil, ErrNotDraft
	}
	if inv.CurrencyMode == calc.ModeForeign && inv.ExchangeRate == nil {
		// One more attempt; the rate may have become available since the
		// draft was created.
		if err := s.resolveRate(ctx, inv, nil); err != nil {
			return nil, err
		}
		if inv.ExchangeRate == nil {
			return nil, ErrRateRequired
		}
		s.applyLines(inv, inv.CalcItems())
		inv.UpdatedAt = s.now().UTC()
		if err := s.repo.UpdateDraft(ctx, inv); err != nil {
			return nil, err
		}
	}

	finalizedAt := s.now().UTC()
	var number string
	err = s.repo.InTx(ctx, func(ctx context.Context, tx FinalizeTx) error {
		seq, err := tx.LockFirmSequence(ctx, firmID)
		if err != nil {
			return err
		}
		last, err := tx.LastFinalized(ctx, firmID)
		if err != nil {
			return err
		}
		counter := NextCounter(seq.Counter, last, inv.IssueDate)
		number = FormatNumber(seq.Prefix, counter, seq.Suffix)
		if err := tx.MarkIssued(ctx, inv.ID, number, finalizedAt); err != nil {
			return err
		}
		return tx.SetFirmCounter(ctx, firmID, counter+1)
	})
	if err != nil {
		return nil, err
	}

	inv.Status = StatusIssued
	inv.Number = number
	inv.FinalizedAt = &finalizedAt
	inv.UpdatedAt = finalizedAt

	if s.book != nil && inv.Kind != KindProforma {
		rec := IssuedRecord{
			FirmID:      firmID,
			InvoiceID:   inv.ID,
			Number:      number,
			IssueDate:   inv.IssueDate,
			ClientName:  s.clientName(ctx, firmID, inv.ClientID),
			Description: fmt.Sprintf("Faktura %s", number),
			AmountRSD:   inv.TotalRSD,
		}
		if err := s.book.RecordIssued(ctx, rec); err != nil {
			s.logger.Error("kpo record failed", slog.Int64("invoice_id", inv.ID), slog.Any("error", err))
		}
	}
	if s.tasks != nil {
		if err := s.tasks.EnqueueInvoiceIssued(ctx, firmID, inv.ID); err != nil {
			s.logger.Error("enqueue issued tasks failed", slog.Int64("invoice_id", inv.ID), slog.Any("error", err))
		}
	}
	return inv, nil
}

// Cancel marks an issued invoice as cancelled (storno) and removes its
// revenue book entry. The record itself is kept.
func (s *Service) Cancel(ctx context.Context, firmID, id int64, in CancelInput) (*Invoice, error) {
	if err := s.repo.Cancel(ctx, firmID, id, in.Reason, s.now().UTC()); err != nil {
		return nil, err
	}
	if s.book != nil {
		if err := s.book.RemoveIssued(ctx, firmID, id); err != nil {
			s.logger.Error("kpo removal failed", slog.Int64("invoice_id", id), slog.Any("error", err))
		}
	}
	return s.repo.Get(ctx, firmID, id)
}

// resolveRate sets the invoice's exchange rate: a manual rate wins, then a
// fetched or fallback rate. An unavailable rate leaves the invoice editable
// but blocks finalization.
func (s *Service) resolveRate(ctx context.Context, inv *Invoice, manual *string) error {
	if manual != nil {
		rate, err := decimal.NewFromString(*manual)
		if err != nil || !rate.IsPositive() {
			return ErrInvalidRate
		}
		rate = fx.RoundRate(rate)
		inv.ExchangeRate = &rate
		inv.RateSource = fx.SourceManual
		return nil
	}
	rate, err := s.rates.CurrentRate(ctx, inv.Currency, inv.IssueDate)
	if errors.Is(err, fx.ErrRateUnavailable) {
		inv.ExchangeRate = nil
		inv.RateSource = fx.SourceUnavailable
		return nil
	}
	if err != nil {
		return err
	}
	value := rate.Value
	inv.ExchangeRate = &value
	inv.RateSource = rate.Source()
	return nil
}

// applyLines recomputes per-line totals and the invoice totals from items.
func (s *Service) applyLines(inv *Invoice, items []calc.LineItem) {
	inv.Lines = make([]Line, len(items))
	for i, item := range items {
		total := calc.ComputeLineTotal(item, inv.CurrencyMode, inv.Rate())
		inv.Lines[i] = Line{
			InvoiceID:   inv.ID,
			CatalogID:   item.CatalogID,
			Description: item.Description,
			Unit:        item.Unit,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       calc.RoundAmount(total.Native),
			Ordinal:     item.Ordinal,
		}
	}

	totals := calc.InvoiceTotal(items, inv.CurrencyMode, inv.Currency, inv.Rate())
	if inv.CurrencyMode == calc.ModeForeign {
		primary := totals.Primary
		inv.TotalForeign = &primary
		inv.TotalRSD = decimal.Zero
		if totals.RateAvailable {
			inv.TotalRSD = totals.RSD
		}
		return
	}
	inv.TotalForeign = nil
	inv.TotalRSD = totals.Primary
}

func (s *Service) verifyCatalogRefs(ctx context.Context, firmID int64, lines []LineInput) error {
	for _, line := range lines {
		if line.CatalogID == nil {
			continue
		}
		if _, err := s.refs.GetCatalogItem(ctx, firmID, *line.CatalogID); err != nil {
			return fmt.Errorf("invoice: catalog item %d: %w", *line.CatalogID, err)
		}
	}
	return nil
}

func (s *Service) clientName(ctx context.Context, firmID, clientID int64) string {
	client, err := s.refs.GetClient(ctx, firmID, clientID)
	if err != nil {
		return ""
	}
	return client.Name
}
