package fx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Service resolves exchange rates: cache first, then the NBS source, then a
// fallback walk over recent cached days. Concurrent lookups for the same
// (currency, date) share one fetch.
type Service struct {
	store  *Store
	source RateSource
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service.
func NewService(store *Store, source RateSource, logger *slog.Logger) *Service {
	return &Service{store: store, source: source, logger: logger}
}

// CurrentRate resolves the rate for (currency, date).
//
// Resolution order: cached entry (manual overrides included), fresh NBS fetch
// (which caches all returned currencies), then up to FallbackDays of older
// cached rates. Exhaustion surfaces as ErrRateUnavailable.
func (s *Service) CurrentRate(ctx context.Context, currency string, date time.Time) (Rate, error) {
	if !IsSupported(currency) {
		return Rate{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}

	rate, err := s.store.Get(ctx, currency, date)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, ErrRateUnavailable) {
		return Rate{}, err
	}

	key := currency + "|" + DateKey(date)
	result, err, _ := s.group.Do(key, func() (any, error) {
		return s.fetchAndCache(ctx, currency, date)
	})
	if err == nil {
		return result.(Rate), nil
	}
	if !errors.Is(err, ErrRateUnavailable) {
		s.logger.Warn("nbs fetch failed, trying cached fallback",
			slog.String("currency", currency),
			slog.String("date", DateKey(date)),
			slog.Any("error", err))
	}

	fallback, fbErr := s.store.Fallback(ctx, currency, date, FallbackDays)
	if fbErr == nil {
		s.logger.Warn("using cached rate from an earlier day",
			slog.String("currency", currency),
			slog.String("date", DateKey(fallback.Date)))
		return fallback, nil
	}
	return Rate{}, ErrRateUnavailable
}

// ResolveRate performs a tracked lookup for an edit session. When the
// session's inputs changed while the lookup was in flight the result is
// discarded with ErrStaleResult.
func (s *Service) ResolveRate(ctx context.Context, tracker *Tracker, req Request) (Rate, error) {
	rate, err := s.CurrentRate(ctx, req.Currency, req.Date)
	if err != nil {
		return Rate{}, err
	}
	if err := tracker.Settle(req); err != nil {
		return Rate{}, err
	}
	return rate, nil
}

// SetManual records a manual override for (currency, date). It suspends
// automatic refresh for that key until ClearManual is called.
func (s *Service) SetManual(ctx context.Context, currency string, date time.Time, value decimal.Decimal) error {
	if !value.IsPositive() {
		return fmt.Errorf("fx: manual rate must be positive, got %s", value)
	}
	return s.store.Set(ctx, currency, date, value, true)
}

// ClearManual re-enables automatic fetching for (currency, date).
func (s *Service) ClearManual(ctx context.Context, currency string, date time.Time) error {
	return s.store.ClearManual(ctx, currency, date)
}

// RefreshDaily fetches the day's rate list and caches every supported
// currency. Manual overrides are left untouched by the store.
func (s *Service) RefreshDaily(ctx context.Context, date time.Time) error {
	rates, err := s.source.DailyRates(ctx, date)
	if err != nil {
		return fmt.Errorf("fx: refresh daily rates: %w", err)
	}
	for currency, value := range rates {
		if err := s.store.Set(ctx, currency, date, value, false); err != nil {
			return err
		}
	}
	s.logger.Info("daily rates refreshed",
		slog.String("date", DateKey(date)),
		slog.Int("currencies", len(rates)))
	return nil
}

func (s *Service) fetchAndCache(ctx context.Context, currency string, date time.Time) (Rate, error) {
	rates, err := s.source.DailyRates(ctx, date)
	if err != nil {
		return Rate{}, err
	}
	for cur, value := range rates {
		if err := s.store.Set(ctx, cur, date, value, false); err != nil {
			return Rate{}, err
		}
	}
	value, ok := rates[currency]
	if !ok {
		return Rate{}, ErrRateUnavailable
	}
	// Re-read so a concurrent manual override wins over this fetch.
	rate, err := s.store.Get(ctx, currency, date)
	if err == nil {
		return rate, nil
	}
	return Rate{Currency: currency, Date: date, Value: RoundRate(value), CachedAt: time.Now().UTC()}, nil
}
