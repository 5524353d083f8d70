package invoice

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fakturnik/fakturnik/internal/fx"
	"github.com/fakturnik/fakturnik/internal/invoice/calc"
	"github.com/fakturnik/fakturnik/internal/masterdata"
	"github.com/fakturnik/fakturnik/internal/platform/httpx"
)

// Handler exposes the invoice lifecycle over HTTP.
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

// MountRoutes attaches invoice endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.UpdateDraft)
			r.Post("/currency", h.SwitchCurrency)
			r.Post("/finalize", h.Finalize)
			r.Post("/cancel", h.Cancel)
		})
	})
}

type lineResponse struct {
	ID          int64  `json:"id"`
	CatalogID   *int64 `json:"catalog_id,omitempty"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
	Ordinal     int    `json:"ordinal"`
}

type invoiceResponse struct {
	ID              int64          `json:"id"`
	FirmID          int64          `json:"firm_id"`
	ClientID        int64          `json:"client_id"`
	Number          string         `json:"number,omitempty"`
	Kind            Kind           `json:"kind"`
	Status          Status         `json:"status"`
	Language        Language       `json:"language"`
	Currency        string         `json:"currency"`
	ExchangeRate    *string        `json:"exchange_rate,omitempty"`
	RateSource      fx.Source      `json:"rate_source"`
	IssueDate       string         `json:"issue_date"`
	PaymentTermDays int            `json:"payment_term_days"`
	DueDate         *string        `json:"due_date,omitempty"`
	ContractNumber  *string        `json:"contract_number,omitempty"`
	OrderNumber     *string        `json:"order_number,omitempty"`
	ReferenceNumber *string        `json:"reference_number,omitempty"`
	Total           string         `json:"total"`
	TotalRSD        *string        `json:"total_rsd,omitempty"`
	CancelReason    *string        `json:"cancel_reason,omitempty"`
	FinalizedAt     *time.Time     `json:"finalized_at,omitempty"`
	Lines           []lineResponse `json:"lines,omitempty"`
}

func toResponse(inv *Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:              inv.ID,
		FirmID:          inv.FirmID,
		ClientID:        inv.ClientID,
		Number:          inv.Number,
		Kind:            inv.Kind,
		Status:          inv.Status,
		Language:        inv.Language,
		Currency:        inv.Currency,
		RateSource:      inv.RateSource,
		IssueDate:       inv.IssueDate.Format("2006-01-02"),
		PaymentTermDays: inv.PaymentTermDays,
		ContractNumber:  inv.ContractNumber,
		OrderNumber:     inv.OrderNumber,
		ReferenceNumber: inv.ReferenceNumber,
		CancelReason:    inv.CancelReason,
		FinalizedAt:     inv.FinalizedAt,
	}
	if inv.ExchangeRate != nil {
		rate := inv.ExchangeRate.StringFixed(4)
		resp.ExchangeRate = &rate
	}
	if inv.DueDate != nil {
		due := inv.DueDate.Format("2006-01-02")
		resp.DueDate = &due
	}
	if inv.CurrencyMode == calc.ModeForeign {
		if inv.TotalForeign != nil {
			resp.Total = inv.TotalForeign.StringFixed(2)
		}
		// Converted figure only when a rate was known; zero would lie.
		if inv.RateSource != fx.SourceUnavailable {
			rsd := inv.TotalRSD.StringFixed(2)
			resp.TotalRSD = &rsd
		}
	} else {
		resp.Total = inv.TotalRSD.StringFixed(2)
		rsd := inv.TotalRSD.StringFixed(2)
		resp.TotalRSD = &rsd
	}
	for _, line := range inv.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:          line.ID,
			CatalogID:   line.CatalogID,
			Description: line.Description,
			Unit:        line.Unit,
			Quantity:    line.Quantity.String(),
			UnitPrice:   line.UnitPrice.StringFixed(2),
			Total:       line.Total.StringFixed(2),
			Ordinal:     line.Ordinal,
		})
	}
	return resp
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInvoiceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	inv, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(inv))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	firmID, err := strconv.ParseInt(r.URL.Query().Get("firm_id"), 10, 64)
	if err != nil || firmID <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: firm_id must be a positive integer", httpx.ErrValidation))
		return
	}
	filter := ListFilter{FirmID: firmID, Limit: 50}
	if raw := r.URL.Query().Get("status"); raw != "" {
		filter.Status = Status(raw)
	}
	if raw := r.URL.Query().Get("year"); raw != "" {
		filter.Year, err = strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: year must be an integer", httpx.ErrValidation))
			return
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		filter.Limit, err = strconv.Atoi(raw)
		if err != nil || filter.Limit < 1 || filter.Limit > 500 {
			httpx.RespondError(w, fmt.Errorf("%w: limit must be 1-500", httpx.ErrValidation))
			return
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		filter.Offset, err = strconv.Atoi(raw)
		if err != nil || filter.Offset < 0 {
			httpx.RespondError(w, fmt.Errorf("%w: offset must be non-negative", httpx.ErrValidation))
			return
		}
	}

	invoices, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, "list invoices", err)
		return
	}
	out := make([]invoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, toResponse(&invoices[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": out})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	firmID, id, err := firmAndID(r)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	inv, err := h.service.Get(r.Context(), firmID, id)
	if err != nil {
		h.respondServiceError(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	firmID, id, err := firmAndID(r)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	var in UpdateDraftInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	inv, err := h.service.UpdateDraft(r.Context(), firmID, id, in)
	if err != nil {
		h.respondServiceError(w, "update draft", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) SwitchCurrency(w http.ResponseWriter, r *http.Request) {
	firmID, id, err := firmAndID(r)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	var in SwitchCurrencyInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	inv, err := h.service.SwitchCurrency(r.Context(), firmID, id, in)
	if err != nil {
		h.respondServiceError(w, "switch currency", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	firmID, id, err := firmAndID(r)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	inv, err := h.service.Finalize(r.Context(), firmID, id)
	if err != nil {
		h.respondServiceError(w, "finalize invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	firmID, id, err := firmAndID(r)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	var in CancelInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	inv, err := h.service.Cancel(r.Context(), firmID, id, in)
	if err != nil {
		h.respondServiceError(w, "cancel invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

// respondServiceError maps domain errors onto problem responses.
func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, masterdata.ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
	case errors.Is(err, ErrNotDraft), errors.Is(err, ErrNotIssued), errors.Is(err, ErrRateRequired):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrConflict, err))
	case errors.Is(err, fx.ErrUnsupportedCurrency), errors.Is(err, ErrInvalidRate), errors.Is(err, ErrInvalidLine):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func firmAndID(r *http.Request) (int64, int64, error) {
	firmID, err := strconv.ParseInt(r.URL.Query().Get("firm_id"), 10, 64)
	if err != nil || firmID <= 0 {
		return 0, 0, fmt.Errorf("firm_id must be a positive integer")
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, fmt.Errorf("id must be a positive integer")
	}
	return firmID, id, nil
}
