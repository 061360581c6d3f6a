package signals

import "solsentinel/internal/enrichctx"

type rule struct {
	condition   func(ctx enrichctx.Context, score int) bool
	name        string
	description string
	weight      int
}

// bullishRules are evaluated in order; every rule whose condition holds
// contributes its weight to the bullish sum and is recorded as fired.
var bullishRules = []rule{
	{name: "high_score", description: "scoring function at or above 60", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool { return score >= 60 }},
	{name: "buy_pressure", description: "buy/sell ratio at or above 3x", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.BuyPressureRatio() >= 3.0 }},
	{name: "smart_money", description: "two or more smart-money wallets holding", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.SmartWallets >= 2 }},
	{name: "holder_velocity", description: "holder growth at or above 50 per minute", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.HolderVelocityPerMin >= 50 }},
	{name: "strong_liquidity", description: "liquidity at or above $50,000", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool {
			liq, _ := ctx.Liquidity.Float64()
			return liq >= 50000
		}},
	{name: "volume_spike", description: "1h volume at or above 30% of liquidity", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool {
			liq, _ := ctx.Liquidity.Float64()
			vol, _ := ctx.Volume1h.Float64()
			return liq > 0 && vol >= liq*0.3
		}},
	{name: "safe_creator", description: "creator risk score at or below 20", weight: 1,
		condition: func(ctx enrichctx.Context, score int) bool {
			return ctx.CreatorRiskScore != nil && *ctx.CreatorRiskScore <= 20
		}},
	{name: "security_cleared", description: "no active security risk flags", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool {
			return ctx.Security != nil && ctx.Security.IsClean()
		}},
	{name: "price_momentum", description: "price up 20% or more since previous snapshot", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool {
			return ctx.PriceChangePct != nil && *ctx.PriceChangePct >= 20
		}},
	{name: "explosive_buy_velocity", description: "50 or more buys in the last 5 minutes", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.Buys5m >= 50 }},
	{name: "holder_acceleration", description: "holder growth accelerating at 25+ per minute", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.HolderAccelerationPerMin >= 25 }},
	{name: "smart_money_early_entry", description: "3 or more smart-money wallets entered within 10 minutes", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.SmartMoneyEarlyEntries >= 3 }},
	{name: "volume_spike_ratio", description: "5-minute volume rate at or above 5x the hourly average rate", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool {
			v1, _ := ctx.Volume1h.Float64()
			if v1 <= 0 {
				return false
			}
			v5, _ := ctx.Volume5m.Float64()
			return (v5*12)/v1 >= 5
		}},
	{name: "organic_buy_pattern", description: "buy/sell ratio in a healthy non-bot range", weight: 1,
		condition: func(ctx enrichctx.Context, score int) bool {
			r := ctx.BuyPressureRatio()
			return r >= 1.2 && r <= 3.0 && ctx.Sells1h > 0
		}},
}

// bearishRules mirror bullishRules; weight is the magnitude added to the
// bearish sum, which is then subtracted from the net score.
var bearishRules = []rule{
	{name: "honeypot", description: "security record flags a honeypot", weight: 10,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.Security != nil && ctx.Security.Honeypot }},
	{name: "risky_creator", description: "creator risk score at or above 80", weight: 5,
		condition: func(ctx enrichctx.Context, score int) bool {
			return ctx.CreatorRiskScore != nil && *ctx.CreatorRiskScore >= 80
		}},
	{name: "high_concentration", description: "top-10 holders above 60% of supply", weight: 5,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.Top10Pct >= 60 }},
	{name: "tiny_liquidity", description: "liquidity below $10,000", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool {
			liq, _ := ctx.Liquidity.Float64()
			return liq > 0 && liq < 10000
		}},
	{name: "high_sell_tax", description: "sell tax above 10%", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool {
			return ctx.Security != nil && ctx.Security.SellTaxPct > 10
		}},
	{name: "rugcheck_tiered_danger", description: "rugcheck risk score in a danger band", weight: 0,
		condition: func(ctx enrichctx.Context, score int) bool { return rugcheckDangerWeight(ctx) > 0 }},
	{name: "solsniffer_danger", description: "SolSniffer danger score above 70", weight: 4,
		condition: func(ctx enrichctx.Context, score int) bool {
			return ctx.SolSnifferScore != nil && *ctx.SolSnifferScore > 70
		}},
	{name: "high_dev_holds", description: "developer wallet holds more than 10% of supply", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.DevHoldsPct > 10 }},
	{name: "price_manipulation_cross_source", description: "cross-source price divergence detected", weight: 4,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.PriceManipulationCrossSource }},
	{name: "volume_dried_up", description: "hourly volume outpaces 5-minute rate by 12x or more", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool {
			if ctx.IsFreshToken() {
				return false
			}
			return ctx.VolumeRatio1hTo5m() > 12
		}},
	{name: "holder_deceleration", description: "holder growth rate has gone negative", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.HolderAccelerationPerMin < 0 }},
	{name: "lp_removal_active", description: "liquidity pool actively being drained", weight: 6,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.LPRemovedPct >= 20 }},
	{name: "cross_token_coordination", description: "coordinated activity across related tokens", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.CrossTokenCoordination }},
	{name: "dangerous_extensions", description: "token-2022 dangerous extension present", weight: 8,
		condition: func(ctx enrichctx.Context, score int) bool { return len(ctx.DangerousExts) > 0 }},
	{name: "sell_sim_failed", description: "simulated sell failed", weight: 6,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.SellSimFailed }},
	{name: "bundled_buy", description: "initial buys arrived in a single bundled transaction", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.IsBundledBuy }},
	{name: "serial_deployer", description: "creator has launched 3 or more tokens", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.SerialDeployerLaunchCount >= 3 }},
	{name: "not_burned_lp", description: "liquidity pool tokens not burned or locked", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.LPUnsecured }},
	{name: "aggregator_honeypot", description: "swap aggregator flags a honeypot", weight: 10,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.AggregatorHoneypot }},
	{name: "no_socials", description: "no social links present", weight: 1,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.NoSocials }},
	{name: "wash_trading", description: "wash-trading pattern detected", weight: 4,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.WashTrading }},
	{name: "critical_flags", description: "banned token list entry", weight: 10,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.BannedTokenList }},
	{name: "multi_danger_rugcheck", description: "rugcheck reports two or more danger risks", weight: 4,
		condition: func(ctx enrichctx.Context, score int) bool { return isRugcheckMultiDanger(ctx) }},
	{name: "low_decentralisation", description: "top-10 holders between 40% and 60% of supply", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.Top10Pct >= 40 && ctx.Top10Pct < 60 }},
	{name: "fee_payer_sybil", description: "fee payer shared across sybil wallet cluster", weight: 4,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.FeePayerSybil }},
	{name: "suspicious_funding_chain", description: "funding-trace risk above 60", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.FundingTraceRisk > 60 }},
	{name: "token_convergence", description: "metrics converge with a known prior rug", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.TokenConvergence }},
	{name: "jito_bundle_snipe", description: "Jito bundle sniping detected at launch", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.IsJitoBundleSnipe }},
	{name: "mutable_metadata", description: "token metadata remains mutable", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.MutableMetadata }},
	{name: "name_homoglyphs", description: "name uses homoglyph characters mimicking a known token", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.NameHomoglyphs }},
	{name: "insider_network", description: "holder wallets linked to a known insider network", weight: 4,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.InsiderNetwork }},
	{name: "banned_flag", description: "metadata or provider marks token banned", weight: 10,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.BannedFlag || ctx.MetadataBanned }},
	{name: "low_holders", description: "fewer than 20 holders", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.HolderCount > 0 && ctx.HolderCount < 20 }},
	{name: "unsecured_lp_fresh", description: "unsecured liquidity pool on a very young token", weight: 3,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.LPUnsecured && ctx.IsFreshToken() }},
	{name: "copycat_single_rug", description: "token symbol rugged exactly once before", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.CopycatRugCountSameSymbol == 1 }},
	{name: "serial_deployer_mild", description: "creator has launched 2 tokens", weight: 1,
		condition: func(ctx enrichctx.Context, score int) bool { return ctx.SerialDeployerLaunchCount == 2 }},
	{name: "abnormal_buys_per_holder", description: "buy count far exceeds holder count", weight: 2,
		condition: func(ctx enrichctx.Context, score int) bool {
			return ctx.HolderCount > 0 && float64(ctx.Buys1h) > float64(ctx.HolderCount)*3
		}},
}

// rugcheckDangerWeight returns the tiered penalty for a rugcheck score:
// -2 at or above 5,000, -4 at or above 10,000, -5 at or above 15,000.
func rugcheckDangerWeight(ctx enrichctx.Context) int {
	if ctx.RugcheckScore == nil {
		return 0
	}
	switch {
	case *ctx.RugcheckScore >= 15000:
		return 5
	case *ctx.RugcheckScore >= 10000:
		return 4
	case *ctx.RugcheckScore >= 5000:
		return 2
	default:
		return 0
	}
}

func evaluateRules(ctx enrichctx.Context, score int) (bullish, bearish int, fired []FiredRule) {
	for _, r := range bullishRules {
		if r.condition(ctx, score) {
			bullish += r.weight
			fired = append(fired, FiredRule{Name: r.name, Description: r.description, Weight: r.weight})
		}
	}
	for _, r := range bearishRules {
		w := r.weight
		if r.name == "rugcheck_tiered_danger" {
			w = rugcheckDangerWeight(ctx)
			if w == 0 {
				continue
			}
		} else if !r.condition(ctx, score) {
			continue
		}
		bearish += w
		fired = append(fired, FiredRule{Name: r.name, Description: r.description, Weight: -w})
	}
	return bullish, bearish, fired
}

// applyCaps applies the post-sum caps in spec order: low_liq_velocity_cap
// (bounds bullish, recomputes net), then copycat_rugged_symbol and
// graduation_rug_structural (bound net directly).
func applyCaps(ctx enrichctx.Context, bullish, bearish, net int) (cappedBullish, cappedNet int) {
	liq, _ := ctx.Liquidity.Float64()
	if liq > 0 && liq < 20000 && bullish > 8 {
		bullish = 8
		net = bullish - bearish
	}

	if ctx.CopycatRugCountSameSymbol == 1 && net > 4 {
		net = 4
	}

	if graduationRugStructural(ctx) && net > 2 {
		net = 2
	}

	return bullish, net
}

// graduationRugStructural matches a launchpad-graduation rug pattern: high
// initial liquidity, little divergence from market cap, and a very young
// token.
func graduationRugStructural(ctx enrichctx.Context) bool {
	liq, _ := ctx.Liquidity.Float64()
	if liq < 150000 {
		return false
	}
	if ctx.MCapToLiquidity() > 2 {
		return false
	}
	return ctx.TokenAgeSeconds < 180
}
