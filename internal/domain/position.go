package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionState is the lifecycle state of a position.
type PositionState string

const (
	PositionOpen   PositionState = "open"
	PositionClosed PositionState = "closed"
)

// Position is a simulated or real holding opened by a trader. Mutated only
// by the trader that owns it until closed, then immutable. At most one open
// position per (token, paper-flag, source).
type Position struct {
	ClosedAt         *time.Time
	CloseReason      *string
	CopiedFromWallet *string
	SignalID         *int64
	TokenID          int64
	ID               int64
	State            PositionState
	Source           TradeSource
	EntryPrice       decimal.Decimal
	CurrentPrice     decimal.Decimal
	MaxPrice         decimal.Decimal
	TokenAmount      decimal.Decimal
	SolInvested      decimal.Decimal
	PnLPct           decimal.Decimal
	PnLUSD           decimal.Decimal
	OpenedAt         time.Time
	IsPaper          bool
	IsMicroEntry     bool
}

// IsOpen reports whether the position is still live.
func (p Position) IsOpen() bool { return p.State == PositionOpen }

// Age returns the duration since the position was opened, relative to now.
func (p Position) Age(now time.Time) time.Duration {
	return now.Sub(p.OpenedAt)
}
