package risk

import (
	"testing"

	"github.com/shopspring/decimal"
)

func baseManager() Manager {
	return Manager{
		MaxOpenPositions: 10,
		MaxTotalExposure: decimal.NewFromInt(10),
		MinLiquidityUSD:  decimal.NewFromInt(5000),
		ReserveSOL:       decimal.NewFromFloat(0.1),
		BaseTradeSizeSOL: decimal.NewFromFloat(0.5),
		TradeSizeCapMult: 1.6,
	}
}

func TestCheckOpenRejectsInsufficientBalance(t *testing.T) {
	m := baseManager()
	r := m.CheckOpen(decimal.NewFromFloat(0.2), decimal.NewFromFloat(0.5), 0, decimal.Zero, decimal.NewFromInt(50000))
	if r.Allowed {
		t.Fatal("must reject when wallet balance is below invest+reserve")
	}
}

func TestCheckOpenRejectsOpenPositionCap(t *testing.T) {
	m := baseManager()
	m.MaxOpenPositions = 2
	r := m.CheckOpen(decimal.NewFromInt(10), decimal.NewFromFloat(0.5), 2, decimal.Zero, decimal.NewFromInt(50000))
	if r.Allowed {
		t.Fatal("must reject at the open-position cap")
	}
}

func TestCheckOpenRejectsExposureCap(t *testing.T) {
	m := baseManager()
	r := m.CheckOpen(decimal.NewFromInt(20), decimal.NewFromFloat(1), 0, decimal.NewFromFloat(9.5), decimal.NewFromInt(50000))
	if r.Allowed {
		t.Fatal("must reject when total exposure cap would be exceeded")
	}
}

func TestCheckOpenRejectsLowLiquidity(t *testing.T) {
	m := baseManager()
	r := m.CheckOpen(decimal.NewFromInt(10), decimal.NewFromFloat(0.5), 0, decimal.Zero, decimal.NewFromInt(1000))
	if r.Allowed {
		t.Fatal("must reject below minimum liquidity")
	}
}

func TestCheckOpenAllowsStrongBuyMultiplier(t *testing.T) {
	m := baseManager()
	invest := m.BaseTradeSizeSOL.Mul(decimal.NewFromFloat(1.5)) // strong_buy 1.5x base
	r := m.CheckOpen(decimal.NewFromInt(10), invest, 0, decimal.Zero, decimal.NewFromInt(50000))
	if !r.Allowed {
		t.Fatalf("1.5x base must fit within the 1.6x trade-size cap, got reason %q", r.Reason)
	}
}

func TestCheckOpenRejectsAboveTradeSizeCap(t *testing.T) {
	m := baseManager()
	invest := m.BaseTradeSizeSOL.Mul(decimal.NewFromFloat(2.0))
	r := m.CheckOpen(decimal.NewFromInt(10), invest, 0, decimal.Zero, decimal.NewFromInt(50000))
	if r.Allowed {
		t.Fatal("must reject investment above the trade-size cap")
	}
}

func TestCheckOpenAllowsWithinLimits(t *testing.T) {
	m := baseManager()
	r := m.CheckOpen(decimal.NewFromInt(10), decimal.NewFromFloat(0.5), 0, decimal.Zero, decimal.NewFromInt(50000))
	if !r.Allowed {
		t.Fatalf("expected allowed, got rejection: %q", r.Reason)
	}
}
