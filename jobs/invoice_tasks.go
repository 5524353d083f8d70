package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/fakturnik/fakturnik/internal/invoice"
	"github.com/fakturnik/fakturnik/internal/mail"
	"github.com/fakturnik/fakturnik/report"
)

// Renderer converts HTML to a PDF document.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Sender delivers outgoing mail.
type Sender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// PDFStore persists rendered documents.
type PDFStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
}

// InvoiceReader loads invoices for task processing.
type InvoiceReader interface {
	Get(ctx context.Context, firmID, id int64) (*invoice.Invoice, error)
}

// PDFRecorder stores the rendered document's key on the invoice.
type PDFRecorder interface {
	SetPDFObject(ctx context.Context, id int64, object string) error
}

// EmailEnqueuer chains delivery after a successful render.
type EmailEnqueuer interface {
	EnqueueSendInvoiceEmail(ctx context.Context, firmID, invoiceID int64) error
}

// InvoiceTasks holds the dependencies of invoice background handlers.
type InvoiceTasks struct {
	Invoices InvoiceReader
	Refs     invoice.References
	Recorder PDFRecorder
	Renderer Renderer
	Store    PDFStore
	Sender   Sender
	Chain    EmailEnqueuer
	Logger   *slog.Logger
}

// HandleRenderInvoicePDF renders an issued invoice and stores the document.
// Delivery is enqueued once the PDF exists so a render retry never mails a
// stale document.
func (t *InvoiceTasks) HandleRenderInvoicePDF(ctx context.Context, task *asynq.Task) error {
	var payload InvoicePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	inv, err := t.Invoices.Get(ctx, payload.FirmID, payload.InvoiceID)
	if err != nil {
		return fmt.Errorf("load invoice %d: %w", payload.InvoiceID, err)
	}
	if inv.Status != invoice.StatusIssued {
		t.Logger.Warn("skipping render for non-issued invoice",
			slog.Int64("invoice_id", inv.ID), slog.String("status", string(inv.Status)))
		return nil
	}

	firm, err := t.Refs.GetFirm(ctx, inv.FirmID)
	if err != nil {
		return fmt.Errorf("load firm %d: %w", inv.FirmID, err)
	}
	client, err := t.Refs.GetClient(ctx, inv.FirmID, inv.ClientID)
	if err != nil {
		return fmt.Errorf("load client %d: %w", inv.ClientID, err)
	}

	html, err := report.BuildInvoiceHTML(report.DocumentData{Firm: *firm, Client: *client, Invoice: *inv})
	if err != nil {
		return err
	}
	pdf, err := t.Renderer.RenderHTML(ctx, html)
	if err != nil {
		return fmt.Errorf("render invoice %s: %w", inv.Number, err)
	}

	key := pdfKey(inv)
	if err := t.Store.Save(ctx, key, pdf); err != nil {
		return err
	}
	if err := t.Recorder.SetPDFObject(ctx, inv.ID, key); err != nil {
		return err
	}
	t.Logger.Info("invoice rendered", slog.Int64("invoice_id", inv.ID), slog.String("pdf", key))

	if t.Chain != nil && client.Email != "" {
		if err := t.Chain.EnqueueSendInvoiceEmail(ctx, inv.FirmID, inv.ID); err != nil {
			t.Logger.Error("enqueue delivery failed", slog.Int64("invoice_id", inv.ID), slog.Any("error", err))
		}
	}
	return nil
}

// HandleSendInvoiceEmail mails the stored document to the client. It fails
// retryably while the PDF is not stored yet.
func (t *InvoiceTasks) HandleSendInvoiceEmail(ctx context.Context, task *asynq.Task) error {
	var payload InvoicePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	inv, err := t.Invoices.Get(ctx, payload.FirmID, payload.InvoiceID)
	if err != nil {
		return fmt.Errorf("load invoice %d: %w", payload.InvoiceID, err)
	}
	if inv.PDFObject == nil {
		return fmt.Errorf("invoice %d has no rendered document yet", inv.ID)
	}
	client, err := t.Refs.GetClient(ctx, inv.FirmID, inv.ClientID)
	if err != nil {
		return fmt.Errorf("load client %d: %w", inv.ClientID, err)
	}
	if client.Email == "" {
		t.Logger.Warn("client has no email, skipping delivery", slog.Int64("invoice_id", inv.ID))
		return nil
	}
	firm, err := t.Refs.GetFirm(ctx, inv.FirmID)
	if err != nil {
		return fmt.Errorf("load firm %d: %w", inv.FirmID, err)
	}
	pdf, err := t.Store.Load(ctx, *inv.PDFObject)
	if err != nil {
		return err
	}

	msg := mail.Message{
		To:         client.Email,
		Subject:    mail.SubjectFor(firm.Name, inv.Number),
		Body:       deliveryBody(inv),
		Attachment: pdf,
		Filename:   pdfFilename(inv.Number),
	}
	if err := t.Sender.Send(ctx, msg); err != nil {
		return err
	}
	t.Logger.Info("invoice delivered", slog.Int64("invoice_id", inv.ID), slog.String("to", client.Email))
	return nil
}

func deliveryBody(inv *invoice.Invoice) string {
	if inv.Language == invoice.LanguageEnglish {
		return fmt.Sprintf("Please find invoice %s attached.", inv.Number)
	}
	return fmt.Sprintf("U prilogu je faktura %s.", inv.Number)
}

func pdfKey(inv *invoice.Invoice) string {
	return fmt.Sprintf("%d/%s", inv.FirmID, pdfFilename(inv.Number))
}

func pdfFilename(number string) string {
	safe := strings.NewReplacer("/", "-", "\\", "-", " ", "_").Replace(number)
	return safe + ".pdf"
}
