package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignalStatus is the trading-action classification a signal carries.
type SignalStatus string

const (
	SignalStrongBuy SignalStatus = "strong_buy"
	SignalBuy       SignalStatus = "buy"
	SignalWatch     SignalStatus = "watch"
	SignalAvoid     SignalStatus = "avoid"
	SignalExpired   SignalStatus = "expired"
)

// IsActionable reports whether a status should be presented to the traders.
func (s SignalStatus) IsActionable() bool {
	return s == SignalStrongBuy || s == SignalBuy
}

// Signal is an evaluator result persisted against a token. At most one
// active (non-expired) signal per (token, status).
type Signal struct {
	CreatedAt          time.Time
	PeakMultiplierAfter *float64
	PeakROIPctAfter     *float64
	IsRugAfter          *bool
	TokenID             int64
	ID                  int64
	Status              SignalStatus
	Score               int
	NetScore            int
	RulesFired          []string
	Price               decimal.Decimal
	MarketCap           decimal.Decimal
	Liquidity           decimal.Decimal
}
