package scoring

import (
	"testing"

	"github.com/shopspring/decimal"

	"solsentinel/internal/domain"
	"solsentinel/internal/enrichctx"
)

func cleanCtx() enrichctx.Context {
	return enrichctx.Context{
		Liquidity:           decimal.NewFromInt(60000),
		MarketCap:           decimal.NewFromInt(300000),
		Volume1h:            decimal.NewFromInt(200000),
		Volume5m:            decimal.NewFromInt(20000),
		HolderCount:         300,
		Buys1h:              100,
		Sells1h:              20,
		SmartWallets:        2,
		Top10Pct:            15,
		DataPointsAvailable: 6,
		Security: &domain.TokenSecurity{
			LPBurned:          true,
			ContractRenounced: true,
		},
	}
}

// TestHardDisqualifiersReturnZero covers spec §4.4 and §8 invariant/scenario S1.
func TestHardDisqualifiersReturnZero(t *testing.T) {
	cases := map[string]func(enrichctx.Context) enrichctx.Context{
		"no liquidity": func(c enrichctx.Context) enrichctx.Context {
			c.Liquidity = decimal.Zero
			return c
		},
		"honeypot": func(c enrichctx.Context) enrichctx.Context {
			c.Security = &domain.TokenSecurity{Honeypot: true}
			return c
		},
		"aggregator honeypot": func(c enrichctx.Context) enrichctx.Context {
			c.AggregatorHoneypot = true
			return c
		},
		"banned token list": func(c enrichctx.Context) enrichctx.Context {
			c.BannedTokenList = true
			return c
		},
		"metadata banned": func(c enrichctx.Context) enrichctx.Context {
			c.MetadataBanned = true
			return c
		},
		"rugcheck single holder": func(c enrichctx.Context) enrichctx.Context {
			c.RugcheckMentionsSingleHolder = true
			return c
		},
	}
	for name, mutate := range cases {
		ctx := mutate(cleanCtx())
		for _, v := range []Variant{V2Balanced, V3MomentumWeighted} {
			if got := Score(ctx, v); got != 0 {
				t.Errorf("%s (%s): got %d, want 0", name, v, got)
			}
		}
	}
}

func TestRugcheckBanOnlyAppliesToV3(t *testing.T) {
	ctx := cleanCtx()
	rc := RugcheckBanV3
	ctx.RugcheckScore = &rc
	if got := Score(ctx, V3MomentumWeighted); got != 0 {
		t.Errorf("v3 with rugcheck >= ban threshold: got %d, want 0", got)
	}
	if got := Score(ctx, V2Balanced); got == 0 {
		t.Error("v2 must not apply the v3-only rugcheck ban threshold")
	}
}

// TestCompletenessCap covers spec §8 invariant 10.
func TestCompletenessCap(t *testing.T) {
	ctx := cleanCtx()
	ctx.DataPointsAvailable = 2
	for _, v := range []Variant{V2Balanced, V3MomentumWeighted} {
		if got := Score(ctx, v); got > completenessCap {
			t.Errorf("%s: got %d, want <= %d with only 2 data points available", v, got, completenessCap)
		}
	}
}

func TestScoreClampedToRange(t *testing.T) {
	ctx := cleanCtx()
	ctx.CreatorRiskScore = intPtr(5)
	for _, v := range []Variant{V2Balanced, V3MomentumWeighted} {
		got := Score(ctx, v)
		if got < 0 || got > 100 {
			t.Errorf("%s: score %d out of [0,100]", v, got)
		}
	}
}

func TestScoreIsPureAndDeterministic(t *testing.T) {
	ctx := cleanCtx()
	a := Score(ctx, V2Balanced)
	b := Score(ctx, V2Balanced)
	if a != b {
		t.Fatalf("scoring must be deterministic: got %d then %d for identical input", a, b)
	}
}

func TestCleanHighQualityTokenScoresWell(t *testing.T) {
	ctx := cleanCtx()
	got := Score(ctx, V2Balanced)
	if got < 50 {
		t.Errorf("clean high-quality token should score reasonably high, got %d", got)
	}
}

func intPtr(v int) *int { return &v }
