// Package masterdata holds the reference records invoices point at: the
// entrepreneur's firm, clients (komitenti) and catalog items (artikli).
// Record administration is out of scope; this package only backs lookups
// and the firm's invoice counter.
package masterdata

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates a missing reference record.
var ErrNotFound = errors.New("masterdata: not found")

// Firm is the flat-rate entrepreneur issuing invoices.
type Firm struct {
	ID             int64
	Name           string
	PIB            string
	RegistryNumber string
	Address        string
	City           string
	Email          string
	BankAccount    string
	InvoicePrefix  string
	InvoiceSuffix  string
	InvoiceCounter int
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Client is a business counterparty (komitent) on an invoice.
type Client struct {
	ID        int64
	FirmID    int64
	Name      string
	PIB       string
	Address   string
	City      string
	Country   string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CatalogItem is a priced product or service (artikal).
type CatalogItem struct {
	ID        int64
	FirmID    int64
	Name      string
	Unit      string
	UnitPrice decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
