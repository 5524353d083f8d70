package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fakturnik/fakturnik/internal/invoice/calc"
)

// LineInput is one submitted line item.
type LineInput struct {
	CatalogID   *int64          `json:"catalog_id,omitempty"`
	Description string          `json:"description" validate:"required,max=500"`
	Unit        string          `json:"unit" validate:"required,max=30"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"required"`
}

// CreateInvoiceInput creates a draft.
type CreateInvoiceInput struct {
	FirmID          int64       `json:"firm_id" validate:"required,gt=0"`
	ClientID        int64       `json:"client_id" validate:"required,gt=0"`
	Kind            Kind        `json:"kind" validate:"omitempty,oneof=STANDARD PROFORMA ADVANCE"`
	Language        Language    `json:"language" validate:"omitempty,oneof=sr en"`
	Currency        string      `json:"currency" validate:"omitempty,len=3"`
	IssueDate       string      `json:"issue_date" validate:"required,datetime=2006-01-02"`
	PaymentTermDays int         `json:"payment_term_days" validate:"required,gte=1,lte=365"`
	ContractNumber  *string     `json:"contract_number,omitempty" validate:"omitempty,max=100"`
	OrderNumber     *string     `json:"order_number,omitempty" validate:"omitempty,max=100"`
	ReferenceNumber *string     `json:"reference_number,omitempty" validate:"omitempty,max=100"`
	ManualRate      *string     `json:"manual_rate,omitempty"`
	Lines           []LineInput `json:"lines" validate:"required,min=1,max=100,dive"`
}

// UpdateDraftInput replaces a draft's header fields and lines.
type UpdateDraftInput struct {
	ClientID        int64       `json:"client_id" validate:"required,gt=0"`
	Language        Language    `json:"language" validate:"omitempty,oneof=sr en"`
	IssueDate       string      `json:"issue_date" validate:"required,datetime=2006-01-02"`
	PaymentTermDays int         `json:"payment_term_days" validate:"required,gte=1,lte=365"`
	ContractNumber  *string     `json:"contract_number,omitempty" validate:"omitempty,max=100"`
	OrderNumber     *string     `json:"order_number,omitempty" validate:"omitempty,max=100"`
	ReferenceNumber *string     `json:"reference_number,omitempty" validate:"omitempty,max=100"`
	Lines           []LineInput `json:"lines" validate:"required,min=1,max=100,dive"`
}

// SwitchCurrencyInput switches a draft between domestic and foreign mode.
type SwitchCurrencyInput struct {
	Currency   string  `json:"currency" validate:"required,len=3"`
	ManualRate *string `json:"manual_rate,omitempty"`
}

// CancelInput records why an issued invoice was cancelled.
type CancelInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	FirmID int64
	Status Status
	Year   int
	Limit  int
	Offset int
}

func (in LineInput) calcItem(ordinal int) calc.LineItem {
	return calc.LineItem{
		CatalogID:   in.CatalogID,
		Description: in.Description,
		Unit:        in.Unit,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Ordinal:     ordinal,
	}
}

// validateLines rejects non-positive quantities and unit prices. The struct
// tags cannot express this for decimal fields, so it runs in the service.
func validateLines(lines []LineInput) error {
	for i, line := range lines {
		if !line.Quantity.IsPositive() || !line.UnitPrice.IsPositive() {
			return fmt.Errorf("%w (line %d)", ErrInvalidLine, i+1)
		}
	}
	return nil
}

func calcItemsFromInput(lines []LineInput) []calc.LineItem {
	items := make([]calc.LineItem, len(lines))
	for i, in := range lines {
		items[i] = in.calcItem(i + 1)
	}
	return items
}
