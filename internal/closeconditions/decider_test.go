package closeconditions

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solsentinel/internal/domain"
)

func basePosition(entry, max, opened float64, ago time.Duration) domain.Position {
	return domain.Position{
		EntryPrice: decimal.NewFromFloat(entry),
		MaxPrice:   decimal.NewFromFloat(max),
		OpenedAt:   time.Now().Add(-ago),
	}
}

// TestTakeProfitClose is spec §8 scenario S3.
func TestTakeProfitClose(t *testing.T) {
	pos := basePosition(0.001, 0.001, 0, time.Hour)
	opt := DefaultOptions()
	got := Decide(pos, decimal.NewFromFloat(0.0025), false, time.Now(), opt)
	if got != ReasonTakeProfit {
		t.Fatalf("got %s, want take_profit", got)
	}
}

func TestRugTakesPrecedenceOverEverything(t *testing.T) {
	pos := basePosition(0.001, 0.002, 0, time.Hour)
	got := Decide(pos, decimal.NewFromFloat(0.005), true, time.Now(), DefaultOptions())
	if got != ReasonRug {
		t.Fatalf("got %s, want rug to take precedence", got)
	}
}

func TestTrailingStopActivatesAfterDrawdown(t *testing.T) {
	opt := DefaultOptions() // activation 1.8x, drawdown 25%
	entry := 0.001
	max := entry * 2.0 // past activation
	cur := max * 0.7   // 30% drawdown from max, above stop-loss floor
	pos := basePosition(entry, max, 0, time.Hour)
	got := Decide(pos, decimal.NewFromFloat(cur), false, time.Now(), opt)
	if got != ReasonTrailingStop {
		t.Fatalf("got %s, want trailing_stop", got)
	}
}

func TestTrailingStopYieldsToStopLossWhenPnLAlreadyBelowFloor(t *testing.T) {
	opt := DefaultOptions() // stop-loss floor -40%
	entry := 0.001
	max := entry * 2.0
	cur := entry * 0.5 // pnl -50%, below -40% floor, also a 75% drawdown from max
	pos := basePosition(entry, max, 0, time.Hour)
	got := Decide(pos, decimal.NewFromFloat(cur), false, time.Now(), opt)
	if got != ReasonStopLoss {
		t.Fatalf("got %s, want stop_loss (trailing must defer to stop-loss)", got)
	}
}

func TestStopLossFires(t *testing.T) {
	entry := 0.001
	pos := basePosition(entry, entry, 0, time.Hour)
	opt := DefaultOptions()
	got := Decide(pos, decimal.NewFromFloat(entry*0.5), false, time.Now(), opt) // -50%
	if got != ReasonStopLoss {
		t.Fatalf("got %s, want stop_loss", got)
	}
}

func TestEarlyStopWithinGracePeriod(t *testing.T) {
	entry := 0.001
	pos := basePosition(entry, entry, 0, 10*time.Minute)
	opt := DefaultOptions()
	opt.StopLossPct = -90 // keep stop_loss from pre-empting early_stop
	got := Decide(pos, decimal.NewFromFloat(entry*0.75), false, time.Now(), opt) // -25%
	if got != ReasonEarlyStop {
		t.Fatalf("got %s, want early_stop", got)
	}
}

func TestTimeoutFiresAfterTimeoutHours(t *testing.T) {
	entry := 0.001
	pos := basePosition(entry, entry, 0, 25*time.Hour)
	opt := DefaultOptions()
	opt.StopLossPct = -99
	got := Decide(pos, decimal.NewFromFloat(entry), false, time.Now(), opt)
	if got != ReasonTimeout {
		t.Fatalf("got %s, want timeout", got)
	}
}

// TestLiquidityRemovedRequiresPriceCoherenceAndGrace is spec §8 invariant 8.
func TestLiquidityRemovedRequiresPriceCoherenceAndGrace(t *testing.T) {
	entry := 0.001
	opt := DefaultOptions()
	opt.StopLossPct = -99
	opt.LiquidityUSD = 1000 // below $5000 threshold

	// Every position below is older than early_stop's 30-minute window, so
	// the -40%/-70% PnL used here cannot pre-empt liquidity_removed.

	// Healthy price (>= 50% of entry), past grace: must NOT close.
	pos := basePosition(entry, entry, 0, 45*time.Minute)
	got := Decide(pos, decimal.NewFromFloat(entry*0.6), false, time.Now(), opt)
	if got != ReasonNone {
		t.Fatalf("price-coherence guard: got %s, want none for a healthy price", got)
	}

	// Crashed price, but still within grace: must NOT close.
	graceOpt := opt
	graceOpt.LiquidityGraceSec = 3600
	pos2 := basePosition(entry, entry, 0, 45*time.Minute)
	got2 := Decide(pos2, decimal.NewFromFloat(entry*0.3), false, time.Now(), graceOpt)
	if got2 != ReasonNone {
		t.Fatalf("grace period: got %s, want none within the liquidity grace window", got2)
	}

	// Crashed price, past grace: must close.
	pos3 := basePosition(entry, entry, 0, 45*time.Minute)
	got3 := Decide(pos3, decimal.NewFromFloat(entry*0.3), false, time.Now(), opt)
	if got3 != ReasonLiquidityRemoved {
		t.Fatalf("got %s, want liquidity_removed", got3)
	}
}

func TestNoCloseOtherwise(t *testing.T) {
	entry := 0.001
	pos := basePosition(entry, entry, 0, time.Minute)
	opt := DefaultOptions()
	opt.LiquidityUSD = 50000
	got := Decide(pos, decimal.NewFromFloat(entry*1.05), false, time.Now(), opt)
	if got != ReasonNone {
		t.Fatalf("got %s, want none", got)
	}
}

func TestDecideIsPureAndDeterministic(t *testing.T) {
	pos := basePosition(0.001, 0.002, 0, time.Hour)
	now := time.Now()
	opt := DefaultOptions()
	cur := decimal.NewFromFloat(0.0015)
	a := Decide(pos, cur, false, now, opt)
	b := Decide(pos, cur, false, now, opt)
	if a != b {
		t.Fatal("Decide must be deterministic for identical inputs")
	}
}
