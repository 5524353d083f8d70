package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// DefaultRateTTL forces a daily refresh of cached rates.
const DefaultRateTTL = 24 * time.Hour

// FallbackDays is how far back Get callers may reach for an older cached
// rate when the NBS source is down.
const FallbackDays = 7

// Store persists one exchange rate per (currency, date) in Redis.
//
// Entries expire after the configured TTL. A manual entry always wins over an
// automatically fetched one for the same key: automatic writes against a
// manual entry are silently skipped until the override is cleared.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a Store. A non-positive ttl falls back to DefaultRateTTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultRateTTL
	}
	return &Store{client: client, ttl: ttl}
}

type storedRate struct {
	Value    decimal.Decimal `json:"rate"`
	Manual   bool            `json:"manual"`
	CachedAt time.Time       `json:"cached_at"`
}

// Key format kept compatible with the legacy cache: nbs_kurs_<CUR>_<date>.
func rateKey(currency string, date time.Time) string {
	return fmt.Sprintf("nbs_kurs_%s_%s", currency, DateKey(date))
}

// Get returns the cached rate for (currency, date). A miss is reported as
// ErrRateUnavailable, never as a zero rate.
func (s *Store) Get(ctx context.Context, currency string, date time.Time) (Rate, error) {
	if !IsSupported(currency) {
		return Rate{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}
	raw, err := s.client.Get(ctx, rateKey(currency, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Rate{}, ErrRateUnavailable
	}
	if err != nil {
		return Rate{}, fmt.Errorf("fx: read rate: %w", err)
	}
	var entry storedRate
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Rate{}, fmt.Errorf("fx: decode rate: %w", err)
	}
	if !entry.Value.IsPositive() {
		return Rate{}, ErrRateUnavailable
	}
	return Rate{
		Currency: currency,
		Date:     date,
		Value:    entry.Value,
		Manual:   entry.Manual,
		CachedAt: entry.CachedAt,
	}, nil
}

// Set stores a rate for (currency, date). Writers of the same kind follow
// last-write-wins; an automatic write never replaces a manual override.
func (s *Store) Set(ctx context.Context, currency string, date time.Time, value decimal.Decimal, manual bool) error {
	if !IsSupported(currency) {
		return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}
	if !value.IsPositive() {
		return fmt.Errorf("fx: rate must be positive, got %s", value)
	}
	if !manual {
		existing, err := s.Get(ctx, currency, date)
		if err == nil && existing.Manual {
			return nil
		}
		if err != nil && !errors.Is(err, ErrRateUnavailable) {
			return err
		}
	}
	raw, err := json.Marshal(storedRate{
		Value:    RoundRate(value),
		Manual:   manual,
		CachedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("fx: encode rate: %w", err)
	}
	if err := s.client.Set(ctx, rateKey(currency, date), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("fx: write rate: %w", err)
	}
	return nil
}

// ClearManual removes a manual override so automatic fetches may write again.
// The entry itself is deleted; the next lookup refetches.
func (s *Store) ClearManual(ctx context.Context, currency string, date time.Time) error {
	if !IsSupported(currency) {
		return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}
	existing, err := s.Get(ctx, currency, date)
	if errors.Is(err, ErrRateUnavailable) {
		return nil
	}
	if err != nil {
		return err
	}
	if !existing.Manual {
		return nil
	}
	if err := s.client.Del(ctx, rateKey(currency, date)).Err(); err != nil {
		return fmt.Errorf("fx: clear manual rate: %w", err)
	}
	return nil
}

// Fallback walks up to maxDaysBack previous days and returns the most recent
// cached rate before date. Used when the NBS source is unreachable.
func (s *Store) Fallback(ctx context.Context, currency string, date time.Time, maxDaysBack int) (Rate, error) {
	if maxDaysBack <= 0 {
		maxDaysBack = FallbackDays
	}
	for daysBack := 1; daysBack <= maxDaysBack; daysBack++ {
		prev := date.AddDate(0, 0, -daysBack)
		rate, err := s.Get(ctx, currency, prev)
		if err == nil {
			return rate, nil
		}
		if !errors.Is(err, ErrRateUnavailable) {
			return Rate{}, err
		}
	}
	return Rate{}, ErrRateUnavailable
}
