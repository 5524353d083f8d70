package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fakturnik/fakturnik/internal/fx"
	"github.com/fakturnik/fakturnik/internal/invoice"
	"github.com/fakturnik/fakturnik/internal/kpo"
	"github.com/fakturnik/fakturnik/internal/limit"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	InvoiceHandler *invoice.Handler
	LimitHandler   *limit.Handler
	RatesHandler   *fx.Handler
	KPOHandler     *kpo.Handler
}

// NewRouter constructs the chi.Router with Fakturnik defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.InvoiceHandler != nil {
			params.InvoiceHandler.MountRoutes(r)
		}
		if params.LimitHandler != nil {
			params.LimitHandler.MountRoutes(r)
		}
		if params.RatesHandler != nil {
			params.RatesHandler.MountRoutes(r)
		}
		if params.KPOHandler != nil {
			params.KPOHandler.MountRoutes(r)
		}
	})

	return r
}
