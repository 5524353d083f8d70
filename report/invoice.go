package report

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/fakturnik/fakturnik/internal/invoice"
	"github.com/fakturnik/fakturnik/internal/masterdata"
)

// DocumentData bundles everything an invoice document shows.
type DocumentData struct {
	Firm    masterdata.Firm
	Client  masterdata.Client
	Invoice invoice.Invoice
}

type labels struct {
	Title          string
	ProformaTitle  string
	AdvanceTitle   string
	Issuer         string
	Customer       string
	IssueDate      string
	DueDate        string
	ExchangeRate   string
	Description    string
	Unit           string
	Quantity       string
	UnitPrice      string
	LineTotal      string
	Total          string
	TotalRSD       string
	BankAccount    string
	PIB            string
	VATNote        string
	ContractNumber string
}

var labelsByLanguage = map[invoice.Language]labels{
	invoice.LanguageSerbian: {
		Title:          "Faktura",
		ProformaTitle:  "Profaktura",
		AdvanceTitle:   "Avansna faktura",
		Issuer:         "Izdavalac",
		Customer:       "Kupac",
		IssueDate:      "Datum prometa",
		DueDate:        "Valuta placanja",
		ExchangeRate:   "Srednji kurs NBS",
		Description:    "Opis",
		Unit:           "Jedinica",
		Quantity:       "Kolicina",
		UnitPrice:      "Cena",
		LineTotal:      "Iznos",
		Total:          "Ukupno za uplatu",
		TotalRSD:       "Dinarska protivvrednost",
		BankAccount:    "Tekuci racun",
		PIB:            "PIB",
		VATNote:        "Poreski obveznik nije u sistemu PDV-a. PDV nije obracunat na fakturi u skladu sa clanom 33. Zakona o PDV.",
		ContractNumber: "Broj ugovora",
	},
	invoice.LanguageEnglish: {
		Title:          "Invoice",
		ProformaTitle:  "Proforma invoice",
		AdvanceTitle:   "Advance invoice",
		Issuer:         "Issuer",
		Customer:       "Customer",
		IssueDate:      "Issue date",
		DueDate:        "Due date",
		ExchangeRate:   "NBS middle rate",
		Description:    "Description",
		Unit:           "Unit",
		Quantity:       "Quantity",
		UnitPrice:      "Price",
		LineTotal:      "Amount",
		Total:          "Total due",
		TotalRSD:       "RSD equivalent",
		BankAccount:    "Bank account",
		PIB:            "Tax ID",
		VATNote:        "The issuer is not registered for VAT. VAT is not charged pursuant to Article 33 of the Serbian VAT Act.",
		ContractNumber: "Contract number",
	},
}

var documentTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #1a1a1a; margin: 40px; }
h1 { font-size: 20px; margin-bottom: 2px; }
.meta, .parties { width: 100%; margin-bottom: 18px; }
.parties td { vertical-align: top; width: 50%; }
table.lines { width: 100%; border-collapse: collapse; margin-top: 12px; }
table.lines th, table.lines td { border: 1px solid #bbb; padding: 6px 8px; text-align: left; }
table.lines th { background: #f0f0f0; }
td.num, th.num { text-align: right; }
.totals { margin-top: 14px; text-align: right; font-size: 14px; }
.note { margin-top: 24px; font-size: 10px; color: #555; }
</style>
</head>
<body>
<h1>{{.Title}} {{.Number}}</h1>
<table class="parties"><tr>
<td><strong>{{.L.Issuer}}</strong><br>{{.FirmName}}<br>{{.FirmAddress}}<br>{{.L.PIB}}: {{.FirmPIB}}<br>{{.L.BankAccount}}: {{.BankAccount}}</td>
<td><strong>{{.L.Customer}}</strong><br>{{.ClientName}}<br>{{.ClientAddress}}{{if .ClientPIB}}<br>{{.L.PIB}}: {{.ClientPIB}}{{end}}</td>
</tr></table>
<table class="meta">
<tr><td>{{.L.IssueDate}}: {{.IssueDate}}</td></tr>
{{if .DueDate}}<tr><td>{{.L.DueDate}}: {{.DueDate}}</td></tr>{{end}}
{{if .ContractNumber}}<tr><td>{{.L.ContractNumber}}: {{.ContractNumber}}</td></tr>{{end}}
{{if .ExchangeRate}}<tr><td>{{.L.ExchangeRate}}: {{.ExchangeRate}}</td></tr>{{end}}
</table>
<table class="lines">
<tr><th>#</th><th>{{.L.Description}}</th><th>{{.L.Unit}}</th><th class="num">{{.L.Quantity}}</th><th class="num">{{.L.UnitPrice}}</th><th class="num">{{.L.LineTotal}}</th></tr>
{{range .Lines}}<tr><td>{{.Ordinal}}</td><td>{{.Description}}</td><td>{{.Unit}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.UnitPrice}}</td><td class="num">{{.Total}}</td></tr>
{{end}}</table>
<div class="totals">
<strong>{{.L.Total}}: {{.Total}} {{.Currency}}</strong>
{{if .TotalRSD}}<br>{{.L.TotalRSD}}: {{.TotalRSD}} RSD{{end}}
</div>
<div class="note">{{.L.VATNote}}</div>
</body>
</html>`))

type lineView struct {
	Ordinal     int
	Description string
	Unit        string
	Quantity    string
	UnitPrice   string
	Total       string
}

type documentView struct {
	L              labels
	Lang           string
	Title          string
	Number         string
	FirmName       string
	FirmAddress    string
	FirmPIB        string
	BankAccount    string
	ClientName     string
	ClientAddress  string
	ClientPIB      string
	IssueDate      string
	DueDate        string
	ContractNumber string
	ExchangeRate   string
	Currency       string
	Total          string
	TotalRSD       string
	Lines          []lineView
}

// BuildInvoiceHTML renders the invoice document for the invoice's language.
// Amounts are formatted with the language's digit grouping and decimal
// separator.
func BuildInvoiceHTML(data DocumentData) (string, error) {
	lang := data.Invoice.Language
	l, ok := labelsByLanguage[lang]
	if !ok {
		lang = invoice.LanguageSerbian
		l = labelsByLanguage[lang]
	}
	printer := newAmountPrinter(lang)

	view := documentView{
		L:             l,
		Lang:          string(lang),
		Title:         documentTitle(l, data.Invoice.Kind),
		Number:        data.Invoice.Number,
		FirmName:      data.Firm.Name,
		FirmAddress:   joinNonEmpty(data.Firm.Address, data.Firm.City),
		FirmPIB:       data.Firm.PIB,
		BankAccount:   data.Firm.BankAccount,
		ClientName:    data.Client.Name,
		ClientAddress: joinNonEmpty(data.Client.Address, data.Client.City, data.Client.Country),
		ClientPIB:     data.Client.PIB,
		IssueDate:     data.Invoice.IssueDate.Format("02.01.2006."),
		Currency:      data.Invoice.Currency,
	}
	if data.Invoice.DueDate != nil {
		view.DueDate = data.Invoice.DueDate.Format("02.01.2006.")
	}
	if data.Invoice.ContractNumber != nil {
		view.ContractNumber = *data.Invoice.ContractNumber
	}
	if data.Invoice.ExchangeRate != nil {
		view.ExchangeRate = fmt.Sprintf("1 %s = %s RSD", data.Invoice.Currency, data.Invoice.ExchangeRate.StringFixed(4))
	}

	if data.Invoice.TotalForeign != nil {
		view.Total = printer.amount(*data.Invoice.TotalForeign)
		if !data.Invoice.TotalRSD.IsZero() {
			view.TotalRSD = printer.amount(data.Invoice.TotalRSD)
		}
	} else {
		view.Total = printer.amount(data.Invoice.TotalRSD)
	}

	for _, line := range data.Invoice.Lines {
		view.Lines = append(view.Lines, lineView{
			Ordinal:     line.Ordinal,
			Description: line.Description,
			Unit:        line.Unit,
			Quantity:    line.Quantity.String(),
			UnitPrice:   printer.amount(line.UnitPrice),
			Total:       printer.amount(line.Total),
		})
	}

	var out strings.Builder
	if err := documentTemplate.Execute(&out, view); err != nil {
		return "", fmt.Errorf("report: render invoice %s: %w", data.Invoice.Number, err)
	}
	return out.String(), nil
}

func documentTitle(l labels, kind invoice.Kind) string {
	switch kind {
	case invoice.KindProforma:
		return l.ProformaTitle
	case invoice.KindAdvance:
		return l.AdvanceTitle
	default:
		return l.Title
	}
}

type amountPrinter struct {
	printer *message.Printer
}

func newAmountPrinter(lang invoice.Language) amountPrinter {
	tag := language.Serbian
	if lang == invoice.LanguageEnglish {
		tag = language.English
	}
	return amountPrinter{printer: message.NewPrinter(tag)}
}

func (p amountPrinter) amount(v decimal.Decimal) string {
	f, _ := v.Round(2).Float64()
	return p.printer.Sprint(number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
