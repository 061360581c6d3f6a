package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"solsentinel/internal/stage"
)

// Snapshot is a point-in-time observation of a token. Immutable once
// persisted; many per token, append-only.
type Snapshot struct {
	Timestamp    time.Time
	AltDexPrice  *decimal.Decimal
	AggregatorPrice *decimal.Decimal
	LLMRiskScore *float64
	SocialCounters map[string]int
	Stage        stage.Stage
	ID           int64
	TokenID      int64
	Price        decimal.Decimal
	MarketCap    decimal.Decimal
	Liquidity    decimal.Decimal
	Volume5m     decimal.Decimal
	Volume1h     decimal.Decimal
	Volume24h    decimal.Decimal
	HolderCount  int
	Top10Pct     float64
	Buys5m       int
	Sells5m      int
	Buys1h       int
	Sells1h      int
	Buys24h      int
	Sells24h     int
	SmartWallets int
	Volatility   float64
	LPRemovedPct float64
	ScoreV2      int
	ScoreV3      int
}

// TopHolderRow is a single ranked holder observed at a snapshot. Immutable.
type TopHolderRow struct {
	WalletAddress   string
	SnapshotID      int64
	Rank            int
	Balance         decimal.Decimal
	PercentOfSupply float64
	PnL             decimal.Decimal
}
