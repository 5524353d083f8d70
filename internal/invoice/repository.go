package invoice

import (
	"context"
	"time"
)

// Repository persists invoices and their lines.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, firmID, id int64) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
	UpdateDraft(ctx context.Context, inv *Invoice) error
	Cancel(ctx context.Context, firmID, id int64, reason string, at time.Time) error
	SetPDFObject(ctx context.Context, id int64, object string) error
	InTx(ctx context.Context, fn func(ctx context.Context, tx FinalizeTx) error) error
}

// FirmSequence is the numbering state read under lock during finalization.
type FirmSequence struct {
	Prefix  string
	Suffix  string
	Counter int
}

// FinalizeTx exposes the statements finalization runs inside one
// transaction: the firm row stays locked until the counter is advanced.
type FinalizeTx interface {
	LockFirmSequence(ctx context.Context, firmID int64) (FirmSequence, error)
	LastFinalized(ctx context.Context, firmID int64) (*time.Time, error)
	MarkIssued(ctx context.Context, id int64, number string, at time.Time) error
	SetFirmCounter(ctx context.Context, firmID int64, counter int) error
}
