package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// RateRefresher caches the full NBS rate list for one day.
type RateRefresher interface {
	RefreshDaily(ctx context.Context, date time.Time) error
}

// FXTasks holds the dependencies of exchange-rate background handlers.
type FXTasks struct {
	Rates  RateRefresher
	Logger *slog.Logger
}

// HandleRefreshRates pre-warms the rate cache for today so the first
// invoice of the day never waits on the NBS service.
func (t *FXTasks) HandleRefreshRates(ctx context.Context, _ *asynq.Task) error {
	today := time.Now().UTC()
	if err := t.Rates.RefreshDaily(ctx, today); err != nil {
		t.Logger.Error("rate refresh failed", slog.Any("error", err))
		return err
	}
	t.Logger.Info("rates refreshed", slog.String("date", today.Format("2006-01-02")))
	return nil
}
