package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenOutcome tracks a token's lifetime peak and final state. One row per
// token, upserted; peak fields only ever move up.
type TokenOutcome struct {
	TimeToPeak       *time.Duration
	FinalMultiplier  *float64
	FinalMCap        *decimal.Decimal
	TokenID          int64
	InitialMCap      decimal.Decimal
	PeakMCap         decimal.Decimal
	PeakPrice        decimal.Decimal
	PeakMultiplier   float64
	IsRug            bool
}

// RugThresholdFraction is the fraction of peak multiplier below which a
// final multiplier marks the token as rugged (spec §4.3: "at least 90%
// below peak").
const RugThresholdFraction = 0.90

// ApplySnapshot advances the outcome's peak fields given a newly observed
// market cap/price/multiplier, and records time-to-peak when the peak
// advances. It never lowers a peak field.
func (o *TokenOutcome) ApplySnapshot(mcap, price decimal.Decimal, multiplier float64, observedAt, discoveredAt time.Time) {
	if mcap.GreaterThan(o.PeakMCap) {
		o.PeakMCap = mcap
	}
	if price.GreaterThan(o.PeakPrice) {
		o.PeakPrice = price
	}
	if multiplier > o.PeakMultiplier {
		o.PeakMultiplier = multiplier
		ttp := observedAt.Sub(discoveredAt)
		o.TimeToPeak = &ttp
	}
}

// Finalize sets the terminal fields at HOUR_24 and derives the rug flag.
func (o *TokenOutcome) Finalize(finalMCap decimal.Decimal, finalMultiplier float64) {
	o.FinalMCap = &finalMCap
	o.FinalMultiplier = &finalMultiplier
	if o.PeakMultiplier > 0 {
		o.IsRug = finalMultiplier <= o.PeakMultiplier*(1-RugThresholdFraction)
	}
}
