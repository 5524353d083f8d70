// Package cli offers operational helpers run from the fakturnik binary.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// WarmMode enumerates supported execution strategies.
type WarmMode string

const (
	// WarmModeDry previews the days that would be fetched.
	WarmModeDry WarmMode = "dry"
	// WarmModeApply fetches and caches the rate list for each day.
	WarmModeApply WarmMode = "apply"
)

// RateRefresher caches the NBS rate list for one day.
type RateRefresher interface {
	RefreshDaily(ctx context.Context, date time.Time) error
}

// WarmOptions configures the fx-warm command execution.
type WarmOptions struct {
	From       string
	To         string
	Mode       WarmMode
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// WarmSummary captures the structured reporting outcome.
type WarmSummary struct {
	Mode    WarmMode `json:"mode"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Days    []string `json:"days"`
	Fetched []string `json:"fetched,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

// FXWarmCLI warms the exchange-rate cache for a date range, so invoicing
// over weekends and holidays can fall back to recently cached rates.
type FXWarmCLI struct {
	rates RateRefresher
}

// NewFXWarmCLI constructs a new helper instance.
func NewFXWarmCLI(rates RateRefresher) *FXWarmCLI {
	return &FXWarmCLI{rates: rates}
}

// WarmCommand executes the fx-warm workflow and returns a process exit code.
func (c *FXWarmCLI) WarmCommand(ctx context.Context, opts WarmOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Mode == "" {
		opts.Mode = WarmModeDry
	}
	mode := WarmMode(strings.ToLower(string(opts.Mode)))
	switch mode {
	case WarmModeDry, WarmModeApply:
	default:
		fmt.Fprintf(opts.Stderr, "fx-warm: invalid mode %q (expected dry or apply)\n", opts.Mode)
		return 1
	}

	from, err := time.Parse("2006-01-02", strings.TrimSpace(opts.From))
	if err != nil {
		fmt.Fprintf(opts.Stderr, "fx-warm: invalid --from %q (expected YYYY-MM-DD)\n", opts.From)
		return 1
	}
	to, err := time.Parse("2006-01-02", strings.TrimSpace(opts.To))
	if err != nil {
		fmt.Fprintf(opts.Stderr, "fx-warm: invalid --to %q (expected YYYY-MM-DD)\n", opts.To)
		return 1
	}
	if from.After(to) {
		fmt.Fprintln(opts.Stderr, "fx-warm: --from must not be later than --to")
		return 1
	}
	if to.Sub(from) > 31*24*time.Hour {
		fmt.Fprintln(opts.Stderr, "fx-warm: range must not exceed 31 days")
		return 1
	}

	summary := WarmSummary{
		Mode: mode,
		From: from.Format("2006-01-02"),
		To:   to.Format("2006-01-02"),
	}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		summary.Days = append(summary.Days, day.Format("2006-01-02"))
	}

	if mode == WarmModeApply {
		for _, key := range summary.Days {
			day, _ := time.Parse("2006-01-02", key)
			if err := c.rates.RefreshDaily(ctx, day); err != nil {
				fmt.Fprintf(opts.Stderr, "fx-warm: %s: %v\n", key, err)
				summary.Failed = append(summary.Failed, key)
				continue
			}
			summary.Fetched = append(summary.Fetched, key)
		}
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(opts.Stderr, "fx-warm: encode summary: %v\n", err)
			return 1
		}
	} else {
		fmt.Fprintf(opts.Stdout, "fx-warm %s: %d day(s) from %s to %s\n", mode, len(summary.Days), summary.From, summary.To)
		for _, key := range summary.Fetched {
			fmt.Fprintf(opts.Stdout, "  fetched %s\n", key)
		}
		for _, key := range summary.Failed {
			fmt.Fprintf(opts.Stdout, "  failed  %s\n", key)
		}
	}

	if len(summary.Failed) > 0 {
		return 1
	}
	return 0
}
