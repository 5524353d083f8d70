// Package invoice implements the faktura lifecycle: drafting with computed
// totals and due dates, currency-mode switching, finalization with numbered
// issuance, and cancellation (storno).
package invoice

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fakturnik/fakturnik/internal/fx"
	"github.com/fakturnik/fakturnik/internal/invoice/calc"
)

// Status of an invoice. Issued invoices are immutable; a storno keeps the
// record but removes it from revenue aggregates.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusIssued    Status = "ISSUED"
	StatusCancelled Status = "CANCELLED"
)

// Kind distinguishes regular invoices from proforma and advance documents.
type Kind string

const (
	KindStandard Kind = "STANDARD"
	KindProforma Kind = "PROFORMA"
	KindAdvance  Kind = "ADVANCE"
)

// Language of the rendered document.
type Language string

const (
	LanguageSerbian Language = "sr"
	LanguageEnglish Language = "en"
)

var (
	// ErrNotFound indicates a missing invoice.
	ErrNotFound = errors.New("invoice: not found")
	// ErrNotDraft indicates a mutation attempted on a non-draft invoice.
	ErrNotDraft = errors.New("invoice: only drafts can be modified")
	// ErrNotIssued indicates an operation that requires an issued invoice.
	ErrNotIssued = errors.New("invoice: not issued")
	// ErrRateRequired indicates a foreign invoice operation that needs a
	// known exchange rate.
	ErrRateRequired = errors.New("invoice: exchange rate required")
	// ErrInvalidRate indicates a manual rate that is not a positive decimal.
	ErrInvalidRate = errors.New("invoice: manual rate must be a positive decimal")
	// ErrInvalidLine indicates a line with a non-positive quantity or unit
	// price. Such lines are rejected at entry, before any total is computed.
	ErrInvalidLine = errors.New("invoice: quantity and unit price must be positive")
)

// Line is one invoice line item (stavka). It exists only as part of its
// invoice and is replaced wholesale on every draft edit.
type Line struct {
	ID          int64
	InvoiceID   int64
	CatalogID   *int64
	Description string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
	Ordinal     int
}

// Invoice is a faktura. Monetary fields are derived from the lines on every
// edit; TotalRSD is authoritative only when RateSource is not UNAVAILABLE.
type Invoice struct {
	ID              int64
	FirmID          int64
	ClientID        int64
	Number          string
	Kind            Kind
	Status          Status
	Language        Language
	CurrencyMode    calc.CurrencyMode
	Currency        string
	ExchangeRate    *decimal.Decimal
	RateSource      fx.Source
	IssueDate       time.Time
	PaymentTermDays int
	DueDate         *time.Time
	ContractNumber  *string
	OrderNumber     *string
	ReferenceNumber *string
	TotalRSD        decimal.Decimal
	TotalForeign    *decimal.Decimal
	CancelReason    *string
	PDFObject       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	FinalizedAt     *time.Time
	Lines           []Line
}

// CalcItems converts persisted lines into calculator inputs.
func (inv *Invoice) CalcItems() []calc.LineItem {
	items := make([]calc.LineItem, len(inv.Lines))
	for i, line := range inv.Lines {
		items[i] = calc.LineItem{
			CatalogID:   line.CatalogID,
			Description: line.Description,
			Unit:        line.Unit,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Ordinal:     line.Ordinal,
		}
	}
	return items
}

// Rate returns the invoice's exchange rate, zero when unknown.
func (inv *Invoice) Rate() decimal.Decimal {
	if inv.ExchangeRate == nil {
		return decimal.Zero
	}
	return *inv.ExchangeRate
}
