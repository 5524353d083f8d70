package kpo

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fakturnik/fakturnik/internal/platform/httpx"
)

// Handler exposes the KPO book over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes attaches KPO endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/kpo", h.Year)
	r.Post("/kpo", h.AddManual)
}

type entryResponse struct {
	ID          int64  `json:"id"`
	InvoiceID   *int64 `json:"invoice_id,omitempty"`
	Ordinal     int    `json:"ordinal"`
	EntryDate   string `json:"entry_date"`
	Document    string `json:"document"`
	Description string `json:"description"`
	AmountRSD   string `json:"amount_rsd"`
}

// Year returns the book for ?firm_id= and ?year= (default: current year).
func (h *Handler) Year(w http.ResponseWriter, r *http.Request) {
	firmID, err := strconv.ParseInt(r.URL.Query().Get("firm_id"), 10, 64)
	if err != nil || firmID <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: firm_id must be a positive integer", httpx.ErrValidation))
		return
	}
	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil || year < 2000 || year > 2100 {
			httpx.RespondError(w, fmt.Errorf("%w: year must be a four-digit year", httpx.ErrValidation))
			return
		}
	}

	entries, total, err := h.service.Year(r.Context(), firmID, year)
	if err != nil {
		h.logger.Error("kpo year failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:          e.ID,
			InvoiceID:   e.InvoiceID,
			Ordinal:     e.Ordinal,
			EntryDate:   e.EntryDate.Format("2006-01-02"),
			Document:    e.Document,
			Description: e.Description,
			AmountRSD:   e.AmountRSD.StringFixed(2),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"year":    year,
		"entries": out,
		"total":   total.StringFixed(2),
	})
}

type manualEntryInput struct {
	FirmID      int64  `json:"firm_id" validate:"required,gt=0"`
	EntryDate   string `json:"entry_date" validate:"required,datetime=2006-01-02"`
	Document    string `json:"document" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=500"`
	AmountRSD   string `json:"amount_rsd" validate:"required"`
}

// AddManual appends a manual revenue row.
func (h *Handler) AddManual(w http.ResponseWriter, r *http.Request) {
	var in manualEntryInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	amount, err := decimal.NewFromString(in.AmountRSD)
	if err != nil || !amount.IsPositive() {
		httpx.RespondError(w, fmt.Errorf("%w: amount_rsd must be a positive decimal", httpx.ErrValidation))
		return
	}
	entryDate, _ := time.Parse("2006-01-02", in.EntryDate)

	entry, err := h.service.AddManual(r.Context(), in.FirmID, entryDate, in.Document, in.Description, amount)
	if err != nil {
		h.logger.Error("kpo manual entry failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entryResponse{
		ID:          entry.ID,
		Ordinal:     entry.Ordinal,
		EntryDate:   entry.EntryDate.Format("2006-01-02"),
		Document:    entry.Document,
		Description: entry.Description,
		AmountRSD:   entry.AmountRSD.StringFixed(2),
	})
}
