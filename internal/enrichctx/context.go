// Package enrichctx defines the signals context: a single, explicit,
// named-field value built once per enrichment step and passed into the
// scoring and signal-evaluation pure functions. It replaces the dynamic
// keyword-argument style the source used for the same ~40 optional inputs
// (see SPEC_FULL.md design notes).
package enrichctx

import (
	"github.com/shopspring/decimal"

	"solsentinel/internal/domain"
)

// Context is the complete, named view over a token's current enrichment
// state passed into scoring and signal evaluation. Every field is read-only
// data; no method on Context performs I/O.
type Context struct {
	Security *domain.TokenSecurity

	AltDexPrice      *decimal.Decimal
	AggregatorPrice  *decimal.Decimal
	RugcheckScore    *int
	SolSnifferScore  *float64
	PriceChangePct   *float64 // vs previous snapshot, nil if no prior snapshot
	CreatorRiskScore *int     // nil = unknown (never treated as "safe")

	RugcheckRisks []string
	DangerousExts []string

	Price     decimal.Decimal
	MarketCap decimal.Decimal
	Liquidity decimal.Decimal
	Volume5m  decimal.Decimal
	Volume1h  decimal.Decimal
	Volume24h decimal.Decimal

	TokenSymbol string

	HolderCount                 int
	Top10Pct                    float64
	Buys5m                      int
	Sells5m                     int
	Buys1h                      int
	Sells1h                     int
	Buys24h                     int
	Sells24h                    int
	SmartWallets                int
	SmartMoneyEarlyEntries      int
	SerialDeployerLaunchCount   int
	CopycatRugCountSameSymbol   int
	PrevScore                   int

	HolderVelocityPerMin     float64
	HolderAccelerationPerMin float64
	DevHoldsPct              float64
	Volatility               float64
	LPRemovedPct             float64
	FundingTraceRisk         float64
	TokenAgeSeconds          float64

	SellSimFailed                bool
	IsBundledBuy                 bool
	IsJitoBundleSnipe            bool
	FeePayerSybil                bool
	MutableMetadata              bool
	NameHomoglyphs               bool
	InsiderNetwork               bool
	BannedFlag                   bool
	NoSocials                    bool
	WashTrading                  bool
	CrossTokenCoordination       bool
	TokenConvergence             bool
	PriceManipulationCrossSource bool
	LPUnsecured                  bool
	AggregatorHoneypot           bool
	BannedTokenList              bool
	RugcheckMentionsSingleHolder bool
	MetadataBanned               bool

	// DataPointsAvailable counts how many of {liquidity, holders, volume,
	// security, smart-money, top-10} are known; feeds the completeness cap.
	DataPointsAvailable int
}

// BuyPressureRatio returns buys/sells over the 1h window. With no sells it
// returns the buy count itself (0 when there are no buys either).
func (c Context) BuyPressureRatio() float64 {
	if c.Sells1h == 0 {
		if c.Buys1h == 0 {
			return 0
		}
		return float64(c.Buys1h)
	}
	return float64(c.Buys1h) / float64(c.Sells1h)
}

// MCapToLiquidity returns market-cap / liquidity, or 0 if liquidity is 0.
func (c Context) MCapToLiquidity() float64 {
	liq, _ := c.Liquidity.Float64()
	if liq == 0 {
		return 0
	}
	mc, _ := c.MarketCap.Float64()
	return mc / liq
}

// VolumeRatio1hTo5m returns vol_1h/vol_5m, or 0 if vol_5m is 0.
func (c Context) VolumeRatio1hTo5m() float64 {
	v5, _ := c.Volume5m.Float64()
	if v5 == 0 {
		return 0
	}
	v1, _ := c.Volume1h.Float64()
	return v1 / v5
}

// IsFreshToken reports whether the token is young enough that a dried-up
// volume ratio should be excluded from the volume_dried_up rule.
func (c Context) IsFreshToken() bool {
	return c.TokenAgeSeconds < 600 // under 10 minutes
}
