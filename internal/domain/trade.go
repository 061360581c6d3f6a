package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the direction of an executed trade.
type TradeSide string

const (
	TradeBuy  TradeSide = "buy"
	TradeSell TradeSide = "sell"
)

// TradeSource names what triggered a trade.
type TradeSource string

const (
	SourceSignal    TradeSource = "signal"
	SourceCopyTrade TradeSource = "copy_trade"
)

// TradeStatus is the settlement outcome of a trade.
type TradeStatus string

const (
	TradeFilled TradeStatus = "filled"
	TradeFailed TradeStatus = "failed"
)

// Trade is an append-only record of an executed (or attempted) buy/sell.
type Trade struct {
	ExecutedAt       time.Time
	CopiedFromWallet *string
	TxHash           string
	TokenID          int64
	ID               int64
	Side             TradeSide
	Source           TradeSource
	Status           TradeStatus
	SolAmount        decimal.Decimal
	TokenAmount      decimal.Decimal
	Price            decimal.Decimal
	FeeSOL           decimal.Decimal
	SlippageBps      int
	IsPaper          bool
}
