// Package signals implements the multi-rule signal evaluator: hard gates,
// roughly fifty named bullish/bearish rules with fixed weights, caps, and a
// net-score classification. Rule semantics (thresholds, weights, firing
// conditions) are fixed by contract and must not drift between releases —
// the evaluator is calibrated against historical rug-rate data.
package signals

import (
	"solsentinel/internal/enrichctx"
)

// Action is the evaluator's recommended trading action.
type Action string

const (
	ActionStrongBuy Action = "strong_buy"
	ActionBuy       Action = "buy"
	ActionWatch     Action = "watch"
	ActionAvoid     Action = "avoid"
)

// FiredRule names one rule that matched, with its signed contribution.
type FiredRule struct {
	Name        string
	Description string
	Weight      int
}

// Result is the evaluator's full output.
type Result struct {
	RulesFired []FiredRule
	Action     Action
	Bullish    int
	Bearish    int
	Net        int
}

const gateNetScore = -10

// Evaluate runs the hard gates, then (if none fire) the full rule set, caps,
// and classification. score is the scoring-function output for the same
// context (used by the high_score bullish rule).
func Evaluate(ctx enrichctx.Context, score int) Result {
	if r, ok := evaluateGates(ctx); ok {
		return r
	}

	bullish, bearish, fired := evaluateRules(ctx, score)
	net := bullish - bearish

	bullish, net = applyCaps(ctx, bullish, bearish, net)

	return Result{
		RulesFired: fired,
		Bullish:    bullish,
		Bearish:    bearish,
		Net:        net,
		Action:     classify(net),
	}
}

func classify(net int) Action {
	switch {
	case net >= 8:
		return ActionStrongBuy
	case net >= 5:
		return ActionBuy
	case net >= 2:
		return ActionWatch
	default:
		return ActionAvoid
	}
}

func evaluateGates(ctx enrichctx.Context) (Result, bool) {
	type gate struct {
		name string
		desc string
		fire bool
	}
	liq, _ := ctx.Liquidity.Float64()

	gates := []gate{
		{
			name: "low_liquidity_gate",
			desc: "liquidity below $5,000",
			fire: liq > 0 && liq < 5000,
		},
		{
			name: "extreme_mcap_liq_gate",
			desc: "market cap to liquidity ratio above 10",
			fire: liq > 0 && ctx.MCapToLiquidity() > 10,
		},
		{
			name: "compound_scam_fingerprint",
			desc: "three or more active scam flags",
			fire: countScamFlags(ctx) >= 3,
		},
		{
			name: "copycat_serial_scam",
			desc: "token symbol rugged two or more times before",
			fire: ctx.CopycatRugCountSameSymbol >= 2,
		},
	}

	for _, g := range gates {
		if g.fire {
			return Result{
				RulesFired: []FiredRule{{Name: g.name, Description: g.desc, Weight: gateNetScore}},
				Bullish:    0,
				Bearish:    -gateNetScore,
				Net:        gateNetScore,
				Action:     ActionAvoid,
			}, true
		}
	}
	return Result{}, false
}

// countScamFlags counts simultaneous active scam flags considered by the
// compound_scam_fingerprint gate: LP-unsecured, mintable, bundled-buy,
// serial-deployer, fee-payer-sybil, rugcheck-multi-danger,
// holder-concentration.
func countScamFlags(ctx enrichctx.Context) int {
	n := 0
	if ctx.LPUnsecured {
		n++
	}
	if ctx.Security != nil && ctx.Security.Mintable {
		n++
	}
	if ctx.IsBundledBuy {
		n++
	}
	if ctx.SerialDeployerLaunchCount >= 3 {
		n++
	}
	if ctx.FeePayerSybil {
		n++
	}
	if isRugcheckMultiDanger(ctx) {
		n++
	}
	if ctx.Top10Pct >= 60 {
		n++
	}
	return n
}

func isRugcheckMultiDanger(ctx enrichctx.Context) bool {
	return len(ctx.RugcheckRisks) >= 2
}
