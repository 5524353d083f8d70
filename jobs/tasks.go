// Package jobs wires background work through Asynq: invoice PDF rendering,
// invoice delivery by mail and the daily NBS rate refresh.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskTypeRenderInvoicePDF renders an issued invoice to PDF.
	TaskTypeRenderInvoicePDF = "invoice:render_pdf"
	// TaskTypeSendInvoiceEmail mails an issued invoice to its client.
	TaskTypeSendInvoiceEmail = "invoice:send_email"
	// TaskTypeRefreshRates caches the NBS daily rate list.
	TaskTypeRefreshRates = "fx:refresh"
)

// InvoicePayload identifies the invoice a task operates on.
type InvoicePayload struct {
	FirmID    int64 `json:"firm_id"`
	InvoiceID int64 `json:"invoice_id"`
}

// NewRenderInvoicePDFTask constructs a render task. The task ID is derived
// from the invoice so a re-enqueued render dedupes in the queue.
func NewRenderInvoicePDFTask(payload InvoicePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRenderInvoicePDF, data,
		asynq.TaskID(fmt.Sprintf("render-pdf-%d-%d", payload.FirmID, payload.InvoiceID)),
		asynq.MaxRetry(5)), nil
}

// NewSendInvoiceEmailTask constructs a delivery task.
func NewSendInvoiceEmailTask(payload InvoicePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendInvoiceEmail, data,
		asynq.TaskID(fmt.Sprintf("send-email-%d-%d", payload.FirmID, payload.InvoiceID)),
		asynq.MaxRetry(5)), nil
}

// NewRefreshRatesTask constructs a rate refresh task. Each run gets a fresh
// ID so the scheduler can enqueue it repeatedly.
func NewRefreshRatesTask() *asynq.Task {
	return asynq.NewTask(TaskTypeRefreshRates, nil,
		asynq.TaskID("fx-refresh-"+uuid.NewString()),
		asynq.MaxRetry(3))
}
