package worker

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"solsentinel/internal/domain"
	"solsentinel/internal/enrichctx"
	"solsentinel/internal/stage"
)

// decimalHundred is a shared constant for percentage conversions.
var decimalHundred = decimal.NewFromInt(100)

// top10PctFromHolders sums the percent-of-supply of the first ten ranked
// holders. rows is expected sorted by rank ascending; fewer than ten rows
// sums whatever is available.
func top10PctFromHolders(rows []domain.TopHolderRow) float64 {
	var total float64
	for i, h := range rows {
		if i >= 10 {
			break
		}
		total += h.PercentOfSupply
	}
	return total
}

// buildSnapshot merges a stage's freshly fetched data over the prior
// snapshot's values, carrying forward any field a light stage (e.g. MIN_10's
// alt_dex-only fetch) didn't refresh. This is the same additive-carry-
// forward idea as the token upsert (internal/persistence/tokens.go), applied
// to point-in-time market data instead of identity fields.
func buildSnapshot(tokenID int64, stg stage.Stage, data *stageData, prior domain.Snapshot, hasPrior bool, now time.Time) domain.Snapshot {
	s := domain.Snapshot{TokenID: tokenID, Stage: stg, Timestamp: now}
	if hasPrior {
		s.Price, s.MarketCap, s.Liquidity = prior.Price, prior.MarketCap, prior.Liquidity
		s.Volume5m, s.Volume1h, s.Volume24h = prior.Volume5m, prior.Volume1h, prior.Volume24h
		s.HolderCount, s.Top10Pct = prior.HolderCount, prior.Top10Pct
		s.Buys5m, s.Sells5m = prior.Buys5m, prior.Sells5m
		s.Buys1h, s.Sells1h = prior.Buys1h, prior.Sells1h
		s.Buys24h, s.Sells24h = prior.Buys24h, prior.Sells24h
		s.SmartWallets = prior.SmartWallets
		s.Volatility, s.LPRemovedPct = prior.Volatility, prior.LPRemovedPct
		s.AltDexPrice, s.AggregatorPrice = prior.AltDexPrice, prior.AggregatorPrice
	}

	if data.TokenInfo != nil {
		ti := data.TokenInfo
		s.Price, s.MarketCap, s.Liquidity = ti.Price, ti.MarketCap, ti.Liquidity
		s.Volume5m, s.Volume1h, s.Volume24h = ti.Volume5m, ti.Volume1h, ti.Volume24h
		s.HolderCount = ti.HolderCount
		s.Buys5m, s.Sells5m = ti.Buys5m, ti.Sells5m
		s.Buys1h, s.Sells1h = ti.Buys1h, ti.Sells1h
		s.Buys24h, s.Sells24h = ti.Buys24h, ti.Sells24h
	}
	if data.HoldersFetched {
		s.SmartWallets = data.SmartWalletCount
		if len(data.Holders) > 0 {
			s.Top10Pct = top10PctFromHolders(data.Holders)
		}
	}
	if data.AltDexPrice != nil {
		s.AltDexPrice = data.AltDexPrice
	}
	if data.AggregatorPrice != nil {
		s.AggregatorPrice = data.AggregatorPrice
	}
	if len(data.Candles) > 0 {
		s.Volatility = computeVolatility(data.Candles)
	}
	if hasPrior && prior.Liquidity.Sign() > 0 && s.Liquidity.LessThan(prior.Liquidity) {
		dropped, _ := prior.Liquidity.Sub(s.Liquidity).Div(prior.Liquidity).Float64()
		s.LPRemovedPct = dropped * 100
	}
	return s
}

// containsSubstring reports whether any entry in list contains needle,
// case-insensitively.
func containsSubstring(list []string, needle string) bool {
	for _, v := range list {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// priceManipulationGap is the relative divergence between the primary quote
// price and a cross-check source above which the two are considered
// incoherent (spec's price-manipulation cross-source concept, §4.4).
const priceManipulationGap = 0.15

func priceDivergesFrom(primary, other *float64) bool {
	if other == nil || *other <= 0 || primary == nil || *primary <= 0 {
		return false
	}
	diff := *primary - *other
	if diff < 0 {
		diff = -diff
	}
	return diff/(*other) > priceManipulationGap
}

// buildContext assembles the signals context for one stage evaluation from
// the merged snapshot, the persisted security/creator rows, and the token's
// own identity fields. Several enrichctx booleans (bundle/sybil/wash-trading/
// homoglyph/insider-network detection) have no backing provider in this
// worker's contract set — PRE_SCAN, token-info, security, holders, alt-dex,
// aggregator, and candles are the only fetches available — so they are left
// at their zero value (not flagged) rather than fabricated; see DESIGN.md.
func buildContext(
	token domain.Token,
	snap domain.Snapshot,
	prior domain.Snapshot,
	hasPrior bool,
	security *domain.TokenSecurity,
	creator domain.CreatorProfile,
	mint domain.MintInfo,
	sellSimFailed bool,
	aggregatorHoneypot bool,
	prevScore int,
	discoveredAt time.Time,
	now time.Time,
) enrichctx.Context {
	ctx := enrichctx.Context{
		Security:           security,
		AltDexPrice:        snap.AltDexPrice,
		AggregatorPrice:    snap.AggregatorPrice,
		Price:              snap.Price,
		MarketCap:          snap.MarketCap,
		Liquidity:          snap.Liquidity,
		Volume5m:           snap.Volume5m,
		Volume1h:           snap.Volume1h,
		Volume24h:          snap.Volume24h,
		TokenSymbol:        derefString(token.Symbol),
		HolderCount:        snap.HolderCount,
		Top10Pct:           snap.Top10Pct,
		Buys5m:             snap.Buys5m,
		Sells5m:            snap.Sells5m,
		Buys1h:             snap.Buys1h,
		Sells1h:            snap.Sells1h,
		Buys24h:            snap.Buys24h,
		Sells24h:           snap.Sells24h,
		SmartWallets:       snap.SmartWallets,
		PrevScore:          prevScore,
		Volatility:         snap.Volatility,
		LPRemovedPct:       snap.LPRemovedPct,
		FundingTraceRisk:   creator.FundingTraceRisk,
		TokenAgeSeconds:    now.Sub(discoveredAt).Seconds(),
		DangerousExts:      mint.Dangerous,
		SellSimFailed:      sellSimFailed,
		NoSocials:          len(token.SocialLinks) == 0,
		AggregatorHoneypot: aggregatorHoneypot,
		SerialDeployerLaunchCount: creator.TotalLaunches,
	}

	if security != nil {
		ctx.RugcheckScore = security.RugcheckScore
		ctx.SolSnifferScore = security.SolSnifferScore
		ctx.RugcheckRisks = security.RiskList
		ctx.DevHoldsPct = security.DevBalancePct
		ctx.LPUnsecured = !security.LPBurned && !security.LPLocked
		ctx.RugcheckMentionsSingleHolder = containsSubstring(security.RiskList, "single holder")
	}
	if creator.TotalLaunches > 0 {
		v := creator.RiskScore
		ctx.CreatorRiskScore = &v
	}
	if hasPrior && prior.Price.Sign() > 0 {
		pct, _ := snap.Price.Sub(prior.Price).Div(prior.Price).Mul(decimalHundred).Float64()
		ctx.PriceChangePct = &pct
	}
	if hasPrior {
		minutes := snap.Timestamp.Sub(prior.Timestamp).Minutes()
		if minutes > 0 {
			ctx.HolderVelocityPerMin = float64(snap.HolderCount-prior.HolderCount) / minutes
		}
	}
	ageMinutes := ctx.TokenAgeSeconds / 60
	if ageMinutes > 0 {
		lifetimeVelocity := float64(snap.HolderCount) / ageMinutes
		ctx.HolderAccelerationPerMin = ctx.HolderVelocityPerMin - lifetimeVelocity
	}

	if snap.AltDexPrice != nil {
		primary, _ := snap.Price.Float64()
		other, _ := snap.AltDexPrice.Float64()
		ctx.PriceManipulationCrossSource = priceDivergesFrom(&primary, &other)
	}

	ctx.DataPointsAvailable = dataPointsAvailable(snap, security)
	return ctx
}

func dataPointsAvailable(snap domain.Snapshot, security *domain.TokenSecurity) int {
	n := 0
	if snap.Liquidity.Sign() > 0 {
		n++
	}
	if snap.HolderCount > 0 {
		n++
	}
	if snap.Volume24h.Sign() > 0 || snap.Volume1h.Sign() > 0 || snap.Volume5m.Sign() > 0 {
		n++
	}
	if security != nil {
		n++
	}
	if snap.SmartWallets > 0 {
		n++
	}
	if snap.Top10Pct > 0 {
		n++
	}
	return n
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
