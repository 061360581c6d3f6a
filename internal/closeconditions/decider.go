// Package closeconditions implements the shared, pure close-conditions
// decision function used by the paper trader, real trader, and copy
// trader. The decider is deterministic and side-effect-free: same inputs,
// same output, no logging and no persistence inside it (grounded on the
// teacher's pure-decision-function style in
// trader-go/internal/services/trade_execution_service.go, where logging
// happens at the call site, not inside the pure computation).
package closeconditions

import (
	"time"

	"github.com/shopspring/decimal"

	"solsentinel/internal/domain"
)

// Reason names why a position should close. Empty string means no close.
type Reason string

const (
	ReasonRug              Reason = "rug"
	ReasonTakeProfit       Reason = "take_profit"
	ReasonTrailingStop     Reason = "trailing_stop"
	ReasonStopLoss         Reason = "stop_loss"
	ReasonEarlyStop        Reason = "early_stop"
	ReasonTimeout          Reason = "timeout"
	ReasonLiquidityRemoved Reason = "liquidity_removed"
	ReasonNone             Reason = ""
)

// Options parameterizes the decider; defaults mirror spec §4.6.
type Options struct {
	TakeProfitX          float64
	StopLossPct          float64
	TimeoutHours         float64
	TrailingActivationX  float64
	TrailingDrawdownPct  float64
	LiquidityUSD         float64
	DeadPrice            bool
	LiquidityGraceSec    float64
}

// DefaultOptions returns spec-default close-condition parameters.
func DefaultOptions() Options {
	return Options{
		TakeProfitX:         2.0,
		StopLossPct:         -40,
		TimeoutHours:        24,
		TrailingActivationX: 1.8,
		TrailingDrawdownPct: 25,
		LiquidityGraceSec:   90,
	}
}

// Decide returns the first close reason that matches, in spec precedence
// order, or ReasonNone if the position should stay open.
func Decide(pos domain.Position, currentPrice decimal.Decimal, isRug bool, now time.Time, opt Options) Reason {
	if isRug {
		return ReasonRug
	}

	entry := pos.EntryPrice
	if entry.Sign() <= 0 {
		return ReasonNone
	}

	ratio, _ := currentPrice.Div(entry).Float64()

	if ratio >= opt.TakeProfitX {
		return ReasonTakeProfit
	}

	pnlPct := (ratio - 1) * 100

	maxRatio, _ := pos.MaxPrice.Div(entry).Float64()
	if maxRatio >= opt.TrailingActivationX {
		maxF, _ := pos.MaxPrice.Float64()
		curF, _ := currentPrice.Float64()
		if maxF > 0 {
			drawdownPct := (maxF - curF) / maxF * 100
			if drawdownPct >= opt.TrailingDrawdownPct {
				if pnlPct <= opt.StopLossPct {
					return ReasonStopLoss
				}
				return ReasonTrailingStop
			}
		}
	}

	if pnlPct <= opt.StopLossPct {
		return ReasonStopLoss
	}

	age := now.Sub(pos.OpenedAt)
	if age <= 30*time.Minute && pnlPct <= -20 {
		return ReasonEarlyStop
	}

	if opt.TimeoutHours > 0 && age >= time.Duration(opt.TimeoutHours*float64(time.Hour)) {
		return ReasonTimeout
	}

	if opt.LiquidityUSD < 5000 {
		halfEntry := entry.Div(decimal.NewFromInt(2))
		priceCrashed := currentPrice.LessThan(halfEntry)
		pastGrace := age >= time.Duration(opt.LiquidityGraceSec*float64(time.Second))
		if priceCrashed && pastGrace {
			return ReasonLiquidityRemoved
		}
	}

	return ReasonNone
}
