package invoice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fakturnik/fakturnik/internal/fx"
	"github.com/fakturnik/fakturnik/internal/masterdata"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// memoryRepo keeps invoices and the firm numbering sequence in memory.
type memoryRepo struct {
	nextID        int64
	invoices      map[int64]*Invoice
	sequence      FirmSequence
	lastFinalized *time.Time
}

func newMemoryRepo(seq FirmSequence) *memoryRepo {
	return &memoryRepo{invoices: map[int64]*Invoice{}, sequence: seq}
}

func (r *memoryRepo) Create(ctx context.Context, inv *Invoice) error {
	r.nextID++
	inv.ID = r.nextID
	r.invoices[inv.ID] = inv
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, firmID, id int64) (*Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.FirmID != firmID {
		return nil, ErrNotFound
	}
	return inv, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if inv.FirmID != filter.FirmID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, *inv)
	}
	return out, nil
}

func (r *memoryRepo) UpdateDraft(ctx context.Context, inv *Invoice) error {
	stored, ok := r.invoices[inv.ID]
	if !ok || stored.Status != StatusDraft {
		return ErrNotDraft
	}
	r.invoices[inv.ID] = inv
	return nil
}

func (r *memoryRepo) Cancel(ctx context.Context, firmID, id int64, reason string, at time.Time) error {
	inv, ok := r.invoices[id]
	if !ok || inv.FirmID != firmID || inv.Status != StatusIssued {
		return ErrNotIssued
	}
	inv.Status = StatusCancelled
	inv.CancelReason = &reason
	inv.UpdatedAt = at
	return nil
}

func (r *memoryRepo) SetPDFObject(ctx context.Context, id int64, object string) error {
	if inv, ok := r.invoices[id]; ok {
		inv.PDFObject = &object
	}
	return nil
}

func (r *memoryRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx FinalizeTx) error) error {
	return fn(ctx, &memoryFinalizeTx{repo: r})
}

type memoryFinalizeTx struct {
	repo *memoryRepo
}

func (t *memoryFinalizeTx) LockFirmSequence(ctx context.Context, firmID int64) (FirmSequence, error) {
	return t.repo.sequence, nil
}

func (t *memoryFinalizeTx) LastFinalized(ctx context.Context, firmID int64) (*time.Time, error) {
	return t.repo.lastFinalized, nil
}

func (t *memoryFinalizeTx) MarkIssued(ctx context.Context, id int64, number string, at time.Time) error {
	inv, ok := t.repo.invoices[id]
	if !ok || inv.Status != StatusDraft {
		return ErrNotDraft
	}
	inv.Status = StatusIssued
	inv.Number = number
	inv.FinalizedAt = &at
	t.repo.lastFinalized = &at
	return nil
}

func (t *memoryFinalizeTx) SetFirmCounter(ctx context.Context, firmID int64, counter int) error {
	t.repo.sequence.Counter = counter
	return nil
}

// memoryRefs serves fixed master data.
type memoryRefs struct {
	firm    masterdata.Firm
	clients map[int64]masterdata.Client
	items   map[int64]masterdata.CatalogItem
}

func (r *memoryRefs) GetFirm(ctx context.Context, id int64) (*masterdata.Firm, error) {
	if id != r.firm.ID {
		return nil, masterdata.ErrNotFound
	}
	firm := r.firm
	return &firm, nil
}

func (r *memoryRefs) GetClient(ctx context.Context, firmID, id int64) (*masterdata.Client, error) {
	c, ok := r.clients[id]
	if !ok || c.FirmID != firmID {
		return nil, masterdata.ErrNotFound
	}
	return &c, nil
}

func (r *memoryRefs) GetCatalogItem(ctx context.Context, firmID, id int64) (*masterdata.CatalogItem, error) {
	item, ok := r.items[id]
	if !ok || item.FirmID != firmID {
		return nil, masterdata.ErrNotFound
	}
	return &item, nil
}

// fakeRates serves fixed rates per currency.
type fakeRates struct {
	rates map[string]decimal.Decimal
}

func (f *fakeRates) CurrentRate(ctx context.Context, currency string, date time.Time) (fx.Rate, error) {
	value, ok := f.rates[currency]
	if !ok {
		return fx.Rate{}, fmt.Errorf("%w: %s on %s", fx.ErrRateUnavailable, currency, fx.DateKey(date))
	}
	return fx.Rate{Currency: currency, Date: date, Value: value}, nil
}

type memoryBook struct {
	records []IssuedRecord
	removed []int64
}

func (b *memoryBook) RecordIssued(ctx context.Context, rec IssuedRecord) error {
	b.records = append(b.records, rec)
	return nil
}

func (b *memoryBook) RemoveIssued(ctx context.Context, firmID, invoiceID int64) error {
	b.removed = append(b.removed, invoiceID)
	return nil
}

type fakeEnqueuer struct {
	issued []int64
}

func (f *fakeEnqueuer) EnqueueInvoiceIssued(ctx context.Context, firmID, invoiceID int64) error {
	f.issued = append(f.issued, invoiceID)
	return nil
}

type fixture struct {
	service *Service
	repo    *memoryRepo
	rates   *fakeRates
	book    *memoryBook
	tasks   *fakeEnqueuer
}

func newFixture() *fixture {
	repo := newMemoryRepo(FirmSequence{Prefix: "2025-", Suffix: "", Counter: 5})
	refs := &memoryRefs{
		firm: masterdata.Firm{ID: 1, Name: "Pera Programer PR", InvoicePrefix: "2025-", InvoiceCounter: 5, Active: true},
		clients: map[int64]masterdata.Client{
			10: {ID: 10, FirmID: 1, Name: "Acme GmbH", Country: "DE"},
		},
		items: map[int64]masterdata.CatalogItem{
			100: {ID: 100, FirmID: 1, Name: "Consulting", Unit: "h", UnitPrice: dec("50")},
		},
	}
	rates := &fakeRates{rates: map[string]decimal.Decimal{"EUR": dec("117.25")}}
	book := &memoryBook{}
	tasks := &fakeEnqueuer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		service: NewService(repo, refs, rates, book, tasks, logger),
		repo:    repo,
		rates:   rates,
		book:    book,
		tasks:   tasks,
	}
}

func domesticInput() CreateInvoiceInput {
	return CreateInvoiceInput{
		FirmID:          1,
		ClientID:        10,
		IssueDate:       "2025-10-24", // Friday
		PaymentTermDays: 1,
		Lines: []LineInput{
			{Description: "Razvoj softvera", Unit: "h", Quantity: dec("10"), UnitPrice: dec("1000")},
			{Description: "Odrzavanje", Unit: "mes", Quantity: dec("1"), UnitPrice: dec("1725")},
		},
	}
}

func TestCreateDomesticDraftComputesTotalsAndDueDate(t *testing.T) {
	f := newFixture()

	inv, err := f.service.Create(context.Background(), domesticInput())
	require.NoError(t, err)

	require.Equal(t, StatusDraft, inv.Status)
	require.Empty(t, inv.Number)
	require.Equal(t, "RSD", inv.Currency)
	require.True(t, inv.TotalRSD.Equal(dec("11725.00")))
	require.Nil(t, inv.TotalForeign)

	// Saturday rolls forward to Monday.
	require.NotNil(t, inv.DueDate)
	require.Equal(t, "2025-10-27", inv.DueDate.Format("2006-01-02"))
	require.Equal(t, time.Monday, inv.DueDate.Weekday())
}

func TestCreateForeignDraftResolvesRate(t *testing.T) {
	f := newFixture()
	in := domesticInput()
	in.Currency = "EUR"
	in.Lines = []LineInput{
		{Description: "Consulting", Unit: "h", Quantity: dec("2"), UnitPrice: dec("50")},
		{Description: "Support", Unit: "kom", Quantity: dec("1"), UnitPrice: dec("25")},
	}

	inv, err := f.service.Create(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, fx.SourceFetched, inv.RateSource)
	require.NotNil(t, inv.ExchangeRate)
	require.True(t, inv.ExchangeRate.Equal(dec("117.25")))
	require.NotNil(t, inv.TotalForeign)
	require.True(t, inv.TotalForeign.Equal(dec("125.00")))
	require.True(t, inv.TotalRSD.Equal(dec("14656.25")))
}

func TestCreateForeignWithoutRateLeavesTotalUnknown(t *testing.T) {
	f := newFixture()
	in := domesticInput()
	in.Currency = "USD"

	inv, err := f.service.Create(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, fx.SourceUnavailable, inv.RateSource)
	require.Nil(t, inv.ExchangeRate)
	require.True(t, inv.TotalRSD.IsZero())
	require.NotNil(t, inv.TotalForeign)

	// A draft without a rate cannot be issued.
	_, err = f.service.Finalize(context.Background(), 1, inv.ID)
	require.ErrorIs(t, err, ErrRateRequired)
}

func TestManualRateWinsOverFetched(t *testing.T) {
	f := newFixture()
	in := domesticInput()
	in.Currency = "EUR"
	manual := "118.5"
	in.ManualRate = &manual

	inv, err := f.service.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, fx.SourceManual, inv.RateSource)
	require.True(t, inv.ExchangeRate.Equal(dec("118.5")))
}

func TestCreateRejectsInvalidManualRate(t *testing.T) {
	f := newFixture()
	in := domesticInput()
	in.Currency = "EUR"
	manual := "-5"
	in.ManualRate = &manual

	_, err := f.service.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidRate)
}

func TestCreateRejectsUnknownReferences(t *testing.T) {
	f := newFixture()

	in := domesticInput()
	in.ClientID = 99
	_, err := f.service.Create(context.Background(), in)
	require.ErrorIs(t, err, masterdata.ErrNotFound)

	in = domesticInput()
	missing := int64(999)
	in.Lines[0].CatalogID = &missing
	_, err = f.service.Create(context.Background(), in)
	require.ErrorIs(t, err, masterdata.ErrNotFound)
}

func TestCreateRejectsNonPositiveLineValues(t *testing.T) {
	f := newFixture()

	in := domesticInput()
	in.Lines[0].Quantity = dec("-3")
	_, err := f.service.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidLine)

	in = domesticInput()
	in.Lines[1].UnitPrice = dec("0")
	_, err = f.service.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidLine)
}

func TestUpdateDraftRejectsNonPositiveLineValues(t *testing.T) {
	f := newFixture()
	draft, err := f.service.Create(context.Background(), domesticInput())
	require.NoError(t, err)

	lines := domesticInput().Lines
	lines[0].UnitPrice = dec("-1000")
	_, err = f.service.UpdateDraft(context.Background(), 1, draft.ID, UpdateDraftInput{
		ClientID:        10,
		IssueDate:       "2025-10-24",
		PaymentTermDays: 1,
		Lines:           lines,
	})
	require.ErrorIs(t, err, ErrInvalidLine)

	// The draft keeps its original totals.
	kept, err := f.service.Get(context.Background(), 1, draft.ID)
	require.NoError(t, err)
	require.True(t, kept.TotalRSD.Equal(dec("11725.00")), "got %s", kept.TotalRSD)
}

func TestFinalizeAssignsNumberAndRecordsRevenue(t *testing.T) {
	f := newFixture()
	draft, err := f.service.Create(context.Background(), domesticInput())
	require.NoError(t, err)

	issued, err := f.service.Finalize(context.Background(), 1, draft.ID)
	require.NoError(t, err)

	require.Equal(t, StatusIssued, issued.Status)
	require.Equal(t, "2025-0005", issued.Number)
	require.NotNil(t, issued.FinalizedAt)
	require.Equal(t, 6, f.repo.sequence.Counter)

	require.Len(t, f.book.records, 1)
	require.Equal(t, "2025-0005", f.book.records[0].Number)
	require.Equal(t, "Acme GmbH", f.book.records[0].ClientName)
	require.True(t, f.book.records[0].AmountRSD.Equal(dec("11725.00")))
	require.Equal(t, []int64{draft.ID}, f.tasks.issued)

	// Already issued, cannot finalize again.
	_, err = f.service.Finalize(context.Background(), 1, draft.ID)
	require.ErrorIs(t, err, ErrNotDraft)
}

func TestFinalizeResetsCounterOnNewYear(t *testing.T) {
	f := newFixture()
	last := time.Date(2024, 12, 29, 10, 0, 0, 0, time.UTC)
	f.repo.lastFinalized = &last
	f.repo.sequence.Counter = 42

	draft, err := f.service.Create(context.Background(), domesticInput())
	require.NoError(t, err)

	issued, err := f.service.Finalize(context.Background(), 1, draft.ID)
	require.NoError(t, err)
	require.Equal(t, "2025-0001", issued.Number)
	require.Equal(t, 2, f.repo.sequence.Counter)
}

func TestFinalizeProformaSkipsRevenueBook(t *testing.T) {
	f := newFixture()
	in := domesticInput()
	in.Kind = KindProforma
	draft, err := f.service.Create(context.Background(), in)
	require.NoError(t, err)

	_, err = f.service.Finalize(context.Background(), 1, draft.ID)
	require.NoError(t, err)
	require.Empty(t, f.book.records)
	require.Len(t, f.tasks.issued, 1)
}

func TestSwitchCurrencyRoundTripKeepsPrices(t *testing.T) {
	f := newFixture()
	draft, err := f.service.Create(context.Background(), domesticInput())
	require.NoError(t, err)

	foreign, err := f.service.SwitchCurrency(context.Background(), 1, draft.ID, SwitchCurrencyInput{Currency: "EUR"})
	require.NoError(t, err)
	require.Equal(t, "EUR", foreign.Currency)
	require.NotNil(t, foreign.TotalForeign)
	// 11725.00 RSD at 117.25 is exactly 100 EUR.
	require.True(t, foreign.TotalForeign.Equal(dec("100.00")), "got %s", foreign.TotalForeign)

	back, err := f.service.SwitchCurrency(context.Background(), 1, draft.ID, SwitchCurrencyInput{Currency: "RSD"})
	require.NoError(t, err)
	require.Equal(t, "RSD", back.Currency)
	require.Nil(t, back.TotalForeign)
	require.True(t, back.TotalRSD.Sub(dec("11725.00")).Abs().LessThanOrEqual(dec("0.01")))
}

func TestSwitchCurrencyWithoutRateFails(t *testing.T) {
	f := newFixture()
	draft, err := f.service.Create(context.Background(), domesticInput())
	require.NoError(t, err)

	// No USD rate and no manual rate: the switch must not fabricate one.
	_, err = f.service.SwitchCurrency(context.Background(), 1, draft.ID, SwitchCurrencyInput{Currency: "USD"})
	require.ErrorIs(t, err, ErrRateRequired)
}

func TestUpdateDraftRejectsIssuedInvoice(t *testing.T) {
	f := newFixture()
	draft, err := f.service.Create(context.Background(), domesticInput())
	require.NoError(t, err)
	_, err = f.service.Finalize(context.Background(), 1, draft.ID)
	require.NoError(t, err)

	_, err = f.service.UpdateDraft(context.Background(), 1, draft.ID, UpdateDraftInput{
		ClientID:        10,
		IssueDate:       "2025-10-24",
		PaymentTermDays: 15,
		Lines:           domesticInput().Lines,
	})
	require.ErrorIs(t, err, ErrNotDraft)
}

func TestCancelIssuedRemovesRevenueEntry(t *testing.T) {
	f := newFixture()
	draft, err := f.service.Create(context.Background(), domesticInput())
	require.NoError(t, err)
	_, err = f.service.Finalize(context.Background(), 1, draft.ID)
	require.NoError(t, err)

	cancelled, err := f.service.Cancel(context.Background(), 1, draft.ID, CancelInput{Reason: "pogresan iznos"})
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	require.Equal(t, []int64{draft.ID}, f.book.removed)

	// Drafts cannot be cancelled, only issued invoices.
	another, err := f.service.Create(context.Background(), domesticInput())
	require.NoError(t, err)
	_, err = f.service.Cancel(context.Background(), 1, another.ID, CancelInput{Reason: "x"})
	require.ErrorIs(t, err, ErrNotIssued)
}
