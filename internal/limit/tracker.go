// Package limit tracks revenue against the flat-rate tax regime thresholds:
// a rolling 365-day limit and a calendar-year limit, with short-term
// projections and what-if simulation for an invoice that is not saved yet.
package limit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Regulatory thresholds in RSD. Overridable through configuration; these are
// the statutory defaults.
const (
	DefaultRollingThresholdRSD = 8_000_000
	DefaultYearlyThresholdRSD  = 6_000_000
)

// RollingWindowDays is the length of the trailing revenue window.
const RollingWindowDays = 365

// ProjectionLookbackDays is the window the daily run-rate is derived from.
// The trailing total divided by this constant gives the revenue per day used
// for the 7/15/30-day projections.
const ProjectionLookbackDays = 365

// Progress tier thresholds, in percent of the threshold.
const (
	tierYellowFrom = 80
	tierRedFrom    = 100
)

// Tier is the design-level traffic-light classification of limit usage.
type Tier string

const (
	TierGreen  Tier = "GREEN"
	TierYellow Tier = "YELLOW"
	TierRed    Tier = "RED"
)

// InvoiceTotal is one finalized invoice's RSD total, keyed by issue date.
type InvoiceTotal struct {
	IssueDate time.Time
	AmountRSD decimal.Decimal
}

// Snapshot is the computed limit state as of one day. It is ephemeral:
// recomputed on demand, never persisted.
type Snapshot struct {
	AsOf                    time.Time
	Trailing365Total        decimal.Decimal
	Threshold               decimal.Decimal
	Remaining               decimal.Decimal
	SimulatedAmount         decimal.Decimal
	RemainingAfterSimulated decimal.Decimal
	Projection7             decimal.Decimal
	Projection15            decimal.Decimal
	Projection30            decimal.Decimal
	ProgressPercent         decimal.Decimal
	ProgressTier            Tier
	IsOverLimit             bool
}

// Compute builds a limit snapshot from finalized invoice totals.
//
// The trailing window is [asOf-365d, asOf] inclusive. An empty window yields
// a zero total, not an error. The function is pure: identical inputs produce
// identical output, so it is safe to recompute on every line-item edit.
// Negative simulated amounts are treated as zero.
func Compute(asOf time.Time, totals []InvoiceTotal, threshold, simulated decimal.Decimal) Snapshot {
	if simulated.IsNegative() {
		simulated = decimal.Zero
	}

	windowStart := asOf.AddDate(0, 0, -RollingWindowDays)
	trailing := decimal.Zero
	for _, t := range totals {
		if t.IssueDate.Before(windowStart) || t.IssueDate.After(asOf) {
			continue
		}
		trailing = trailing.Add(t.AmountRSD)
	}

	snap := Snapshot{
		AsOf:             asOf,
		Trailing365Total: trailing,
		Threshold:        threshold,
		Remaining:        threshold.Sub(trailing),
		SimulatedAmount:  simulated,
		IsOverLimit:      trailing.GreaterThan(threshold),
	}
	snap.RemainingAfterSimulated = snap.Remaining.Sub(simulated)

	dailyRate := decimal.Zero
	if trailing.IsPositive() {
		dailyRate = trailing.Div(decimal.NewFromInt(ProjectionLookbackDays))
	}
	snap.Projection7 = RoundRSD(dailyRate.Mul(decimal.NewFromInt(7)))
	snap.Projection15 = RoundRSD(dailyRate.Mul(decimal.NewFromInt(15)))
	snap.Projection30 = RoundRSD(dailyRate.Mul(decimal.NewFromInt(30)))

	percent := decimal.Zero
	if threshold.IsPositive() {
		percent = trailing.Div(threshold).Mul(decimal.NewFromInt(100))
	}
	snap.ProgressTier = tierFor(percent)
	snap.ProgressPercent = clampPercent(percent)

	return snap
}

// RoundRSD rounds an RSD amount to display precision.
func RoundRSD(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p.Round(2)
}

func tierFor(percent decimal.Decimal) Tier {
	switch {
	case percent.GreaterThanOrEqual(decimal.NewFromInt(tierRedFrom)):
		return TierRed
	case percent.GreaterThanOrEqual(decimal.NewFromInt(tierYellowFrom)):
		return TierYellow
	default:
		return TierGreen
	}
}
