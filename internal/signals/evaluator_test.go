package signals

import (
	"testing"

	"github.com/shopspring/decimal"

	"solsentinel/internal/domain"
	"solsentinel/internal/enrichctx"
)

// TestHoneypotRejection is spec §8 scenario S1.
func TestHoneypotRejection(t *testing.T) {
	ctx := enrichctx.Context{
		Liquidity: decimal.NewFromInt(50000),
		MarketCap: decimal.NewFromInt(300000),
		Volume1h:  decimal.NewFromInt(30000),
		HolderCount: 100,
		Security:  &domain.TokenSecurity{Honeypot: true},
	}
	r := Evaluate(ctx, 0)
	found := false
	for _, f := range r.RulesFired {
		if f.Name == "honeypot" {
			found = true
		}
	}
	if !found {
		t.Error("honeypot rule must fire")
	}
	if r.Action != ActionAvoid {
		t.Errorf("action: got %s, want avoid", r.Action)
	}
}

// TestCleanStrongBuy is spec §8 scenario S2.
func TestCleanStrongBuy(t *testing.T) {
	velocity := 80.0
	ctx := enrichctx.Context{
		Liquidity:            decimal.NewFromInt(60000),
		MarketCap:            decimal.NewFromInt(300000),
		Volume1h:             decimal.NewFromInt(200000),
		Volume5m:             decimal.NewFromInt(20000),
		HolderCount:          300,
		Buys1h:               100,
		Sells1h:              20,
		SmartWallets:         2,
		HolderVelocityPerMin: velocity,
		Security: &domain.TokenSecurity{
			LPBurned:          true,
			ContractRenounced: true,
		},
	}
	r := Evaluate(ctx, 65)

	want := map[string]bool{
		"high_score": true, "buy_pressure": true, "smart_money": true,
		"holder_velocity": true, "strong_liquidity": true, "volume_spike": true,
		"security_cleared": true,
	}
	fired := map[string]bool{}
	for _, f := range r.RulesFired {
		fired[f.Name] = true
	}
	for name := range want {
		if !fired[name] {
			t.Errorf("expected rule %q to fire; fired=%v", name, fired)
		}
	}
	if r.Net < 8 {
		t.Errorf("net score: got %d, want >= 8", r.Net)
	}
	if r.Action != ActionStrongBuy {
		t.Errorf("action: got %s, want strong_buy", r.Action)
	}
}

// TestLowLiquidityHardGate is spec §8 scenario S4 and invariant 9.
func TestLowLiquidityHardGate(t *testing.T) {
	ctx := enrichctx.Context{Liquidity: decimal.NewFromInt(3000)}
	r := Evaluate(ctx, 70)
	if r.Net != -10 {
		t.Errorf("net: got %d, want -10", r.Net)
	}
	if r.Action != ActionAvoid {
		t.Errorf("action: got %s, want avoid", r.Action)
	}
	if len(r.RulesFired) != 1 || r.RulesFired[0].Name != "low_liquidity_gate" {
		t.Errorf("rules fired: got %v, want exactly [low_liquidity_gate]", r.RulesFired)
	}
}

func TestHardGatesFireExactlyOneRule(t *testing.T) {
	cases := []struct {
		name string
		ctx  enrichctx.Context
	}{
		{"extreme_mcap_liq_gate", enrichctx.Context{Liquidity: decimal.NewFromInt(10000), MarketCap: decimal.NewFromInt(200000)}},
		{"compound_scam_fingerprint", enrichctx.Context{
			Liquidity:       decimal.NewFromInt(100000),
			LPUnsecured:     true,
			IsBundledBuy:    true,
			FeePayerSybil:   true,
		}},
		{"copycat_serial_scam", enrichctx.Context{
			Liquidity:                 decimal.NewFromInt(100000),
			CopycatRugCountSameSymbol: 2,
		}},
	}
	for _, c := range cases {
		r := Evaluate(c.ctx, 50)
		if r.Net != -10 || r.Action != ActionAvoid {
			t.Errorf("%s: got net=%d action=%s, want -10/avoid", c.name, r.Net, r.Action)
		}
		if len(r.RulesFired) != 1 {
			t.Errorf("%s: expected exactly one fired rule, got %v", c.name, r.RulesFired)
		}
	}
}

func TestLowLiqVelocityCapBoundsBullish(t *testing.T) {
	ctx := enrichctx.Context{
		Liquidity:            decimal.NewFromInt(15000),
		MarketCap:            decimal.NewFromInt(30000),
		Volume1h:             decimal.NewFromInt(5000),
		HolderCount:          300,
		Buys1h:               100,
		Sells1h:              20,
		SmartWallets:         3,
		HolderVelocityPerMin: 80,
	}
	r := Evaluate(ctx, 70)
	if r.Bullish > 8 {
		t.Errorf("low_liq_velocity_cap must bound bullish at 8 under $20k liquidity, got %d", r.Bullish)
	}
}

func TestCopycatRuggedSymbolCapsNet(t *testing.T) {
	ctx := enrichctx.Context{
		Liquidity:            decimal.NewFromInt(60000),
		MarketCap:            decimal.NewFromInt(200000),
		Volume1h:             decimal.NewFromInt(200000),
		Volume5m:             decimal.NewFromInt(20000),
		HolderCount:          300,
		Buys1h:               100,
		Sells1h:              20,
		SmartWallets:         2,
		HolderVelocityPerMin: 80,
		CopycatRugCountSameSymbol: 1,
	}
	r := Evaluate(ctx, 65)
	if r.Net > 4 {
		t.Errorf("copycat_rugged_symbol cap: net got %d, want <= 4", r.Net)
	}
}

func TestGraduationRugStructuralCapsNetAtTwo(t *testing.T) {
	ctx := enrichctx.Context{
		Liquidity:       decimal.NewFromInt(200000),
		MarketCap:       decimal.NewFromInt(300000),
		TokenAgeSeconds: 60,
		HolderCount:     300,
		Buys1h:          100,
		Sells1h:         20,
		SmartWallets:    2,
	}
	r := Evaluate(ctx, 65)
	if r.Net > 2 {
		t.Errorf("graduation_rug_structural cap: net got %d, want <= 2", r.Net)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	ctx := enrichctx.Context{Liquidity: decimal.NewFromInt(60000), Buys1h: 10, Sells1h: 5}
	a := Evaluate(ctx, 40)
	b := Evaluate(ctx, 40)
	if a.Net != b.Net || a.Action != b.Action {
		t.Fatal("signal evaluation must be deterministic for identical inputs")
	}
}
