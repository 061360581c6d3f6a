// Package risk implements the real trader's pre-trade risk checks and the
// circuit breaker that pauses non-urgent trading after consecutive swap
// failures. No precedent breaker existed in the teacher repo; it is
// authored fresh against the teacher's constructor-injected, mutex-guarded
// concurrency idiom (trader-go/internal/services/trade_execution_service.go).
package risk

import (
	"github.com/shopspring/decimal"
)

// Manager is a stateless pre-trade validator.
type Manager struct {
	MaxOpenPositions  int
	MaxTotalExposure  decimal.Decimal
	MinLiquidityUSD   decimal.Decimal
	ReserveSOL        decimal.Decimal
	BaseTradeSizeSOL  decimal.Decimal
	TradeSizeCapMult  float64 // allows up to this multiple of base (1.6x for strong_buy)
}

// CheckResult is the outcome of a pre-trade risk check.
type CheckResult struct {
	Reason  string
	Allowed bool
}

func reject(reason string) CheckResult { return CheckResult{Allowed: false, Reason: reason} }

var allowed = CheckResult{Allowed: true}

// CheckOpen validates a proposed new position against wallet balance,
// open-position count, total exposure, liquidity, and trade-size caps.
func (m Manager) CheckOpen(walletBalanceSOL decimal.Decimal, investSOL decimal.Decimal, openPositions int, currentExposureSOL decimal.Decimal, liquidityUSD decimal.Decimal) CheckResult {
	required := investSOL.Add(m.ReserveSOL)
	if walletBalanceSOL.LessThan(required) {
		return reject("insufficient wallet balance for invest amount plus reserve")
	}
	if m.MaxOpenPositions > 0 && openPositions >= m.MaxOpenPositions {
		return reject("open-position cap reached")
	}
	if m.MaxTotalExposure.Sign() > 0 && currentExposureSOL.Add(investSOL).GreaterThan(m.MaxTotalExposure) {
		return reject("total exposure cap would be exceeded")
	}
	if m.MinLiquidityUSD.Sign() > 0 && liquidityUSD.LessThan(m.MinLiquidityUSD) {
		return reject("liquidity below minimum")
	}
	cap := m.BaseTradeSizeSOL.Mul(decimal.NewFromFloat(m.TradeSizeCapMult))
	if m.BaseTradeSizeSOL.Sign() > 0 && investSOL.GreaterThan(cap) {
		return reject("trade size exceeds cap")
	}
	return allowed
}
