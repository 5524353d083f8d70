package limit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fakturnik/fakturnik/internal/platform/httpx"
)

// Handler exposes limit snapshots, projections and revenue series.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches limit endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/limit", h.Overview)
	r.Get("/limit/snapshot", h.Snapshot)
	r.Get("/limit/projections", h.Projections)
	r.Get("/limit/monthly", h.Monthly)
}

type snapshotResponse struct {
	AsOf                    string `json:"as_of"`
	Trailing365Total        string `json:"trailing_365_total"`
	Threshold               string `json:"threshold"`
	Remaining               string `json:"remaining"`
	SimulatedAmount         string `json:"simulated_amount,omitempty"`
	RemainingAfterSimulated string `json:"remaining_after_simulated"`
	Projection7             string `json:"projection_7"`
	Projection15            string `json:"projection_15"`
	Projection30            string `json:"projection_30"`
	ProgressPercent         string `json:"progress_percent"`
	ProgressTier            Tier   `json:"progress_tier"`
	IsOverLimit             bool   `json:"is_over_limit"`
}

func snapshotToResponse(s Snapshot) snapshotResponse {
	return snapshotResponse{
		AsOf:                    s.AsOf.Format("2006-01-02"),
		Trailing365Total:        RoundRSD(s.Trailing365Total).StringFixed(2),
		Threshold:               s.Threshold.StringFixed(2),
		Remaining:               RoundRSD(s.Remaining).StringFixed(2),
		SimulatedAmount:         RoundRSD(s.SimulatedAmount).StringFixed(2),
		RemainingAfterSimulated: RoundRSD(s.RemainingAfterSimulated).StringFixed(2),
		Projection7:             s.Projection7.StringFixed(2),
		Projection15:            s.Projection15.StringFixed(2),
		Projection30:            s.Projection30.StringFixed(2),
		ProgressPercent:         s.ProgressPercent.StringFixed(2),
		ProgressTier:            s.ProgressTier,
		IsOverLimit:             s.IsOverLimit,
	}
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	firmID, asOf, err := firmAndDate(r)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	overview, err := h.service.OverviewFor(r.Context(), firmID, asOf)
	if err != nil {
		h.logger.Error("limit overview failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"month_invoice_count": overview.MonthInvoiceCount,
		"month_total":         RoundRSD(overview.MonthTotal).StringFixed(2),
		"year_total":          RoundRSD(overview.YearTotal).StringFixed(2),
		"yearly_threshold":    overview.YearlyThreshold.StringFixed(2),
		"yearly_remaining":    RoundRSD(overview.YearlyRemaining).StringFixed(2),
		"rolling":             snapshotToResponse(overview.Rolling),
	})
}

// Snapshot recomputes the rolling snapshot, optionally simulating a new
// invoice amount passed as ?simulated=.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	firmID, asOf, err := firmAndDate(r)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	simulated := decimal.Zero
	if raw := r.URL.Query().Get("simulated"); raw != "" {
		simulated, err = decimal.NewFromString(raw)
		if err != nil || simulated.IsNegative() {
			httpx.RespondError(w, fmt.Errorf("%w: simulated must be a non-negative decimal", httpx.ErrValidation))
			return
		}
	}

	snap, err := h.service.SnapshotFor(r.Context(), firmID, asOf, simulated)
	if err != nil {
		h.logger.Error("limit snapshot failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snapshotToResponse(snap))
}

func (h *Handler) Projections(w http.ResponseWriter, r *http.Request) {
	firmID, asOf, err := firmAndDate(r)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	projections, err := h.service.WindowProjections(r.Context(), firmID, asOf)
	if err != nil {
		h.logger.Error("limit projections failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(projections))
	for _, p := range projections {
		out = append(out, map[string]any{
			"days":      p.Days,
			"remaining": RoundRSD(p.Remaining).StringFixed(2),
			"warning":   p.Warning,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"projections": out})
}

func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	firmID, asOf, err := firmAndDate(r)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	months := 12
	if raw := r.URL.Query().Get("months"); raw != "" {
		months, err = strconv.Atoi(raw)
		if err != nil || months < 1 || months > 60 {
			httpx.RespondError(w, fmt.Errorf("%w: months must be 1-60", httpx.ErrValidation))
			return
		}
	}

	series, err := h.service.MonthlyRevenueSeries(r.Context(), firmID, asOf, months)
	if err != nil {
		h.logger.Error("monthly revenue failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(series))
	for _, m := range series {
		out = append(out, map[string]any{
			"year":    m.Year,
			"month":   int(m.Month),
			"revenue": RoundRSD(m.Revenue).StringFixed(2),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"months": out})
}

func firmAndDate(r *http.Request) (int64, time.Time, error) {
	firmID, err := strconv.ParseInt(r.URL.Query().Get("firm_id"), 10, 64)
	if err != nil || firmID <= 0 {
		return 0, time.Time{}, fmt.Errorf("firm_id must be a positive integer")
	}
	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("as_of must be YYYY-MM-DD")
		}
	}
	asOf = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	return firmID, asOf, nil
}
