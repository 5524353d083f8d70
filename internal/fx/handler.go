package fx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fakturnik/fakturnik/internal/platform/httpx"
)

// Handler exposes exchange-rate lookups and manual overrides.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches rate endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/rates/{currency}", h.Get)
	r.Put("/rates/{currency}/manual", h.SetManual)
	r.Delete("/rates/{currency}/manual", h.ClearManual)
}

type rateResponse struct {
	Currency string `json:"currency"`
	Date     string `json:"date"`
	Rate     string `json:"rate"`
	Source   Source `json:"source"`
}

type manualRateRequest struct {
	Date string `json:"date"`
	Rate string `json:"rate"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	currency := chi.URLParam(r, "currency")
	date, err := parseDateParam(r.URL.Query().Get("date"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	rate, err := h.service.CurrentRate(r.Context(), currency, date)
	switch {
	case errors.Is(err, ErrUnsupportedCurrency):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	case errors.Is(err, ErrRateUnavailable):
		httpx.JSON(w, http.StatusOK, rateResponse{
			Currency: currency,
			Date:     DateKey(date),
			Source:   SourceUnavailable,
		})
		return
	case err != nil:
		h.logger.Error("rate lookup failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, rateResponse{
		Currency: rate.Currency,
		Date:     DateKey(rate.Date),
		Rate:     RoundRate(rate.Value).StringFixed(4),
		Source:   rate.Source(),
	})
}

func (h *Handler) SetManual(w http.ResponseWriter, r *http.Request) {
	currency := chi.URLParam(r, "currency")
	var req manualRateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	date, err := parseDateParam(req.Date)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	value, err := decimal.NewFromString(req.Rate)
	if err != nil || !value.IsPositive() {
		httpx.RespondError(w, fmt.Errorf("%w: rate must be a positive decimal", httpx.ErrValidation))
		return
	}

	if err := h.service.SetManual(r.Context(), currency, date, value); err != nil {
		if errors.Is(err, ErrUnsupportedCurrency) {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		h.logger.Error("manual rate write failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rateResponse{
		Currency: currency,
		Date:     DateKey(date),
		Rate:     RoundRate(value).StringFixed(4),
		Source:   SourceManual,
	})
}

func (h *Handler) ClearManual(w http.ResponseWriter, r *http.Request) {
	currency := chi.URLParam(r, "currency")
	date, err := parseDateParam(r.URL.Query().Get("date"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.service.ClearManual(r.Context(), currency, date); err != nil {
		if errors.Is(err, ErrUnsupportedCurrency) {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		h.logger.Error("manual rate clear failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseDateParam parses an optional YYYY-MM-DD value, defaulting to today.
func parseDateParam(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", raw)
}
