// Package trading implements the position lifecycle managers: the paper
// trader, the real (on-chain) trader, and the copy trader, plus the
// shared entry/exit sizing math and slippage model they all use (spec
// §4.7-§4.9). All three share the same close-conditions decider
// (internal/closeconditions) and persist through internal/persistence.
package trading

import (
	"time"

	"github.com/shopspring/decimal"

	"solsentinel/internal/closeconditions"
	"solsentinel/internal/domain"
)

// Params carries the sizing and risk inputs shared by every trader,
// resolved from config.Config with any RuntimeSettings override already
// applied at the call site.
type Params struct {
	SolPerTrade       decimal.Decimal
	MaxPaperPositions int
	MaxMicroPositions int
	MicroSnipeSOL     decimal.Decimal
	CloseOptions      closeconditions.Options
}

// entrySizeSOL returns the base SOL investment for a signal: 1.5x for
// strong_buy, 1.0x otherwise (spec §4.7).
func entrySizeSOL(base decimal.Decimal, status domain.SignalStatus) decimal.Decimal {
	if status == domain.SignalStrongBuy {
		return base.Mul(decimal.NewFromFloat(1.5))
	}
	return base
}

// entrySlippagePct models slippage impact when the USD investment exceeds
// 2% of liquidity: a linear penalty ramping up to 50% (spec §4.7). Below
// the 2% threshold, no penalty is applied.
func entrySlippagePct(investUSD, liquidityUSD decimal.Decimal) decimal.Decimal {
	if liquidityUSD.Sign() <= 0 {
		return decimal.Zero
	}
	ratio, _ := investUSD.Div(liquidityUSD).Float64()
	if ratio <= 0.02 {
		return decimal.Zero
	}
	// Ramp linearly from 0 at 2% impact to 50% at 20% impact, then cap.
	penalty := (ratio - 0.02) / 0.18 * 0.5
	if penalty > 0.5 {
		penalty = 0.5
	}
	return decimal.NewFromFloat(penalty)
}

// exitValue applies exit slippage (same 2%-of-liquidity model) and, for a
// liquidity_removed close, a quadratic impact model simulating a realistic
// illiquid exit (spec §4.7). tokenAmount and currentPrice are SOL-
// denominated (consistent with EntryPrice/MaxPrice throughout Position);
// grossUSD converts that SOL value to USD purely to compare against
// liquidityUSD, then the resulting haircut is applied back to the
// SOL-denominated gross so the returned value stays in SOL, matching
// Trade.SolAmount.
func exitValue(tokenAmount, currentPrice, liquidityUSD, solPriceUSD decimal.Decimal, reason closeconditions.Reason) decimal.Decimal {
	gross := tokenAmount.Mul(currentPrice)
	grossUSD := gross.Mul(solPriceOrDefault(solPriceUSD))

	if reason == closeconditions.ReasonLiquidityRemoved {
		// Quadratic impact: the deeper the position is relative to
		// liquidity, the more the realized exit shrinks.
		if liquidityUSD.Sign() > 0 {
			ratio, _ := grossUSD.Div(liquidityUSD).Float64()
			if ratio > 1 {
				ratio = 1
			}
			impact := ratio * ratio
			return gross.Mul(decimal.NewFromFloat(1 - impact))
		}
		return gross.Mul(decimal.NewFromFloat(0.1))
	}
	slip := entrySlippagePct(grossUSD, liquidityUSD)
	return gross.Mul(decimal.NewFromFloat(1).Sub(slip))
}

// pnl computes percent and USD P&L for a mark-to-market update.
func pnl(entryPrice, currentPrice, invested decimal.Decimal, solPriceUSD decimal.Decimal) (pct, usd decimal.Decimal) {
	if entryPrice.Sign() <= 0 {
		return decimal.Zero, decimal.Zero
	}
	pct = currentPrice.Sub(entryPrice).Div(entryPrice).Mul(decimal.NewFromInt(100))
	usd = invested.Mul(pct).Div(decimal.NewFromInt(100)).Mul(solPriceUSD)
	return pct, usd
}

// sanityRejectMark reports whether a mark-to-market price update should be
// rejected as provider-side corruption (spec §4.7): more than 1000x the
// entry price, or an absolute price above $1 (memecoins rarely trade
// there).
func sanityRejectMark(entryPrice, currentPrice decimal.Decimal) bool {
	if entryPrice.Sign() > 0 {
		ratio, _ := currentPrice.Div(entryPrice).Float64()
		if ratio > 1000 {
			return true
		}
	}
	cur, _ := currentPrice.Float64()
	return cur > 1.0
}

// SignalContext is everything a trader needs to act on a freshly evaluated
// signal, beyond the signal row itself.
type SignalContext struct {
	Token        domain.Token
	Signal       domain.Signal
	CurrentPrice decimal.Decimal
	LiquidityUSD decimal.Decimal
	SOLPriceUSD  decimal.Decimal
	IsRug        bool
	// LiquidityRemovedAtEntry flags LP removal ≥30% observed at entry time;
	// an entry is rejected outright when set (spec §4.7).
	LiquidityRemovedAtEntry bool
	Now                     time.Time
}

// UpdateContext is everything a trader needs to mark an open position and
// evaluate its close conditions.
type UpdateContext struct {
	CurrentPrice decimal.Decimal
	LiquidityUSD decimal.Decimal
	IsRug        bool
	SOLPriceUSD  decimal.Decimal
	Now          time.Time
}

// defaultSOLPriceUSD is used when a caller has no fresher SOL/USD quote at
// hand (e.g. the micro-snipe path, which fires before the aggregator price
// fetch lands). It affects the USD-denominated slippage-ramp threshold and
// the pnl_usd recorded at close; the rest of position accounting stays
// SOL-denominated.
var defaultSOLPriceUSD = decimal.NewFromInt(150)

func solPriceOrDefault(p decimal.Decimal) decimal.Decimal {
	if p.Sign() <= 0 {
		return defaultSOLPriceUSD
	}
	return p
}

// withLiquidity returns opt with LiquidityUSD set from the caller's
// per-update liquidity reading, so the liquidity_removed close condition
// sees the position's current liquidity rather than whatever static value
// Options was constructed with.
func withLiquidity(opt closeconditions.Options, liquidityUSD decimal.Decimal) closeconditions.Options {
	liq, _ := liquidityUSD.Float64()
	opt.LiquidityUSD = liq
	return opt
}

// clock abstracts time.Now for deterministic tests.
type clock func() time.Time

func realClock() time.Time { return time.Now() }
