// Package scoring implements the pure scoring function, in two variants,
// that maps an enrichment context to an integer quality score in [0, 100].
// Both variants are deterministic: no I/O, no time dependence, no
// randomness, grounded on the teacher's band-based opportunity scorer
// (trader-go/internal/modules/scoring/scorers/opportunity.go).
package scoring

import (
	"solsentinel/internal/enrichctx"
)

// Variant selects between the two scoring models.
type Variant string

const (
	V2Balanced         Variant = "v2"
	V3MomentumWeighted Variant = "v3"
)

// RugcheckBanV3 is the v3-only hard-disqualifier threshold.
const RugcheckBanV3 = 20000

// completenessDataPoints is the minimum number of known data categories
// below which the output is capped at 40 (spec §4.4).
const completenessDataPoints = 3
const completenessCap = 40

// Score computes the 0-100 quality score for a context under the given
// variant. Same inputs always give the same output.
func Score(ctx enrichctx.Context, variant Variant) int {
	if disqualified(ctx, variant) {
		return 0
	}

	var total int
	switch variant {
	case V3MomentumWeighted:
		total = scoreV3(ctx)
	default:
		total = scoreV2(ctx)
	}

	if ctx.DataPointsAvailable < completenessDataPoints && total > completenessCap {
		total = completenessCap
	}

	return clamp(total, 0, 100)
}

func disqualified(ctx enrichctx.Context, variant Variant) bool {
	if ctx.Liquidity.Sign() <= 0 {
		return true
	}
	if ctx.Security != nil && ctx.Security.Honeypot {
		return true
	}
	if ctx.AggregatorHoneypot {
		return true
	}
	if ctx.BannedTokenList || ctx.MetadataBanned {
		return true
	}
	if ctx.RugcheckMentionsSingleHolder {
		return true
	}
	if variant == V3MomentumWeighted && ctx.RugcheckScore != nil && *ctx.RugcheckScore >= RugcheckBanV3 {
		return true
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// band picks the score for the first threshold v meets or exceeds, walking
// thresholds from highest to lowest. Thresholds must be sorted descending.
func band(v float64, thresholds []float64, scores []int) int {
	for i, t := range thresholds {
		if v >= t {
			return scores[i]
		}
	}
	return 0
}

func liquidityScore(liquidityUSD float64) int {
	return band(liquidityUSD,
		[]float64{100000, 50000, 20000, 5000},
		[]int{20, 15, 10, 5})
}

func holdersScore(n int) int {
	return band(float64(n),
		[]float64{500, 300, 100, 50},
		[]int{15, 12, 8, 4})
}

func buyPressureScore(ratio float64) int {
	return band(ratio,
		[]float64{4.0, 2.5, 1.5, 1.0},
		[]int{15, 12, 8, 4})
}

func smartMoneyScore(n int) int {
	return band(float64(n),
		[]float64{3, 2, 1},
		[]int{15, 10, 5})
}

func volumeAccelScore(ctx enrichctx.Context) int {
	v1, _ := ctx.Volume1h.Float64()
	if v1 <= 0 {
		return 0
	}
	v5, _ := ctx.Volume5m.Float64()
	ratio := (v5 * 12) / v1
	return band(ratio, []float64{3.0, 1.5}, []int{10, 5})
}

func top10Score(pct float64) int {
	switch {
	case pct <= 0:
		return 0
	case pct <= 10:
		return 8
	case pct <= 20:
		return 4
	case pct >= 60:
		return -10
	case pct >= 40:
		return -5
	default:
		return 0
	}
}

func creatorRiskScore(ctx enrichctx.Context) int {
	if ctx.CreatorRiskScore == nil {
		return 0
	}
	r := *ctx.CreatorRiskScore
	switch {
	case r <= 20:
		return 10
	case r <= 40:
		return 5
	case r >= 80:
		return -10
	default:
		return 0
	}
}

func securityCategoryScore(ctx enrichctx.Context) int {
	if ctx.Security == nil {
		return 0
	}
	if ctx.Security.IsClean() {
		return 15
	}
	score := 0
	if ctx.Security.Mintable {
		score -= 8
	}
	if !ctx.Security.LPBurned && !ctx.Security.LPLocked {
		score -= 6
	}
	if ctx.Security.SellTaxPct > 10 {
		score -= 6
	}
	return score
}

func scoreV2(ctx enrichctx.Context) int {
	liq, _ := ctx.Liquidity.Float64()
	total := 0
	total += liquidityScore(liq)
	total += holdersScore(ctx.HolderCount)
	total += int(float64(buyPressureScore(ctx.BuyPressureRatio())) * 0.8)
	total += int(float64(smartMoneyScore(ctx.SmartWallets)) * 0.8)
	total += securityCategoryScore(ctx)
	total += creatorRiskScore(ctx)
	total += top10Score(ctx.Top10Pct)
	return total
}

func scoreV3(ctx enrichctx.Context) int {
	liq, _ := ctx.Liquidity.Float64()
	total := 0
	total += int(float64(liquidityScore(liq)) * 0.8)
	total += int(float64(holdersScore(ctx.HolderCount)) * 0.8)
	total += int(float64(buyPressureScore(ctx.BuyPressureRatio())) * 1.3)
	total += int(float64(smartMoneyScore(ctx.SmartWallets)) * 1.3)
	total += volumeAccelScore(ctx)
	total += securityCategoryScore(ctx)
	total += creatorRiskScore(ctx)
	total += int(float64(top10Score(ctx.Top10Pct)) * 0.8)
	return total
}
