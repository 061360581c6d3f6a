package trading

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solsentinel/internal/closeconditions"
	"solsentinel/internal/domain"
	"solsentinel/internal/persistence"
	sentinelqqtest "solsentinel/internal/testing"
)

func newTestPaperTrader(t *testing.T) (*PaperTrader, *persistence.TokenRepository, func()) {
	t.Helper()
	db, cleanup := sentinelqqtest.NewTestDB(t, "sentinel")
	log := zerolog.Nop()
	positions := persistence.NewPositionRepository(db.Conn(), log)
	trades := persistence.NewTradeRepository(db.Conn(), log)
	tokens := persistence.NewTokenRepository(db.Conn(), log)

	params := Params{
		SolPerTrade:       decimal.NewFromFloat(0.5),
		MaxPaperPositions: 10,
		MaxMicroPositions: 5,
		MicroSnipeSOL:     decimal.NewFromFloat(0.07),
		CloseOptions:      closeconditions.DefaultOptions(),
	}
	return NewPaperTrader(positions, trades, params, log), tokens, cleanup
}

func testToken(t *testing.T, tokens *persistence.TokenRepository) domain.Token {
	t.Helper()
	tok := domain.Token{Address: "Mint1111111111111111111111111111111111111", Chain: "sol", DiscoveredAt: time.Now(), Source: "test"}
	id, err := tokens.UpsertToken(tok)
	if err != nil {
		t.Fatalf("upsert token: %v", err)
	}
	tok.ID = id
	return tok
}

// TestMicroSnipeToTopUp is spec §8 scenario S5.
func TestMicroSnipeToTopUp(t *testing.T) {
	trader, tokens, cleanup := newTestPaperTrader(t)
	defer cleanup()
	tok := testToken(t, tokens)

	if err := trader.OnMicroSnipe(tok, decimal.NewFromFloat(0.001), decimal.NewFromInt(50000), time.Now()); err != nil {
		t.Fatalf("OnMicroSnipe: %v", err)
	}

	pos, found, err := trader.positions.OpenForToken(tok.ID, true, domain.SourceSignal)
	if err != nil || !found {
		t.Fatalf("expected an open micro position, found=%v err=%v", found, err)
	}
	if !pos.IsMicroEntry {
		t.Fatal("position must be flagged is_micro_entry after micro-snipe")
	}
	if pos.SignalID != nil {
		t.Fatal("micro-snipe position must have a nil signal_id")
	}
	if !pos.SolInvested.Equal(decimal.NewFromFloat(0.07)) {
		t.Fatalf("invested: got %s, want 0.07", pos.SolInvested)
	}

	sig := domain.Signal{TokenID: tok.ID, Status: domain.SignalBuy, ID: 42}
	ctx := SignalContext{
		Token:        tok,
		Signal:       sig,
		CurrentPrice: decimal.NewFromFloat(0.002),
		LiquidityUSD: decimal.NewFromInt(50000),
		Now:          time.Now(),
	}
	if err := trader.OnSignal(ctx); err != nil {
		t.Fatalf("OnSignal top-up: %v", err)
	}

	updated, found, err := trader.positions.OpenForToken(tok.ID, true, domain.SourceSignal)
	if err != nil || !found {
		t.Fatalf("expected still exactly one open position after top-up, found=%v err=%v", found, err)
	}
	if updated.IsMicroEntry {
		t.Fatal("top-up must clear is_micro_entry")
	}
	if !updated.SolInvested.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("invested after top-up: got %s, want 0.5", updated.SolInvested)
	}
	// Weighted average entry: (0.07*0.001 + 0.43*0.002) / 0.5
	wantEntry := decimal.NewFromFloat(0.07).Mul(decimal.NewFromFloat(0.001)).
		Add(decimal.NewFromFloat(0.43).Mul(decimal.NewFromFloat(0.002))).
		Div(decimal.NewFromFloat(0.5))
	diff := updated.EntryPrice.Sub(wantEntry).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(0.0000001)) {
		t.Fatalf("weighted-average entry price: got %s, want ~%s", updated.EntryPrice, wantEntry)
	}
}

// TestOnSignalOpensAndClosesOnTakeProfit is spec §8 scenario S3, exercised
// through the paper trader's full open -> update -> close path.
func TestOnSignalOpensAndClosesOnTakeProfit(t *testing.T) {
	trader, tokens, cleanup := newTestPaperTrader(t)
	defer cleanup()
	tok := testToken(t, tokens)

	sig := domain.Signal{TokenID: tok.ID, Status: domain.SignalStrongBuy, ID: 1}
	openCtx := SignalContext{
		Token:        tok,
		Signal:       sig,
		CurrentPrice: decimal.NewFromFloat(0.001),
		LiquidityUSD: decimal.NewFromInt(100000),
		Now:          time.Now(),
	}
	if err := trader.OnSignal(openCtx); err != nil {
		t.Fatalf("OnSignal open: %v", err)
	}

	pos, found, err := trader.positions.OpenForToken(tok.ID, true, domain.SourceSignal)
	if err != nil || !found {
		t.Fatalf("expected open position, found=%v err=%v", found, err)
	}
	if pos.MaxPrice.LessThan(pos.CurrentPrice) {
		t.Fatal("invariant: max_price must be >= current_price")
	}

	u := UpdateContext{
		CurrentPrice: decimal.NewFromFloat(0.0025), // 2.5x entry, past take_profit_x=2.0
		LiquidityUSD: decimal.NewFromInt(100000),
		Now:          time.Now(),
	}
	if err := trader.Update(pos, u); err != nil {
		t.Fatalf("Update: %v", err)
	}

	_, stillOpen, err := trader.positions.OpenForToken(tok.ID, true, domain.SourceSignal)
	if err != nil {
		t.Fatalf("lookup after close: %v", err)
	}
	if stillOpen {
		t.Fatal("position must be closed after a take-profit update")
	}
}

func TestOnSignalRejectsWhenLiquidityRemovedAtEntry(t *testing.T) {
	trader, tokens, cleanup := newTestPaperTrader(t)
	defer cleanup()
	tok := testToken(t, tokens)

	sig := domain.Signal{TokenID: tok.ID, Status: domain.SignalBuy, ID: 1}
	ctx := SignalContext{
		Token:                   tok,
		Signal:                  sig,
		CurrentPrice:            decimal.NewFromFloat(0.001),
		LiquidityUSD:            decimal.NewFromInt(50000),
		LiquidityRemovedAtEntry: true,
		Now:                     time.Now(),
	}
	if err := trader.OnSignal(ctx); err != nil {
		t.Fatalf("OnSignal: %v", err)
	}
	_, found, err := trader.positions.OpenForToken(tok.ID, true, domain.SourceSignal)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found {
		t.Fatal("must reject entry when liquidity was removed at entry time")
	}
}

func TestOnSignalRejectsAtMaxPaperPositions(t *testing.T) {
	trader, tokens, cleanup := newTestPaperTrader(t)
	defer cleanup()
	trader.params.MaxPaperPositions = 0

	tok := testToken(t, tokens)
	sig := domain.Signal{TokenID: tok.ID, Status: domain.SignalBuy, ID: 1}
	ctx := SignalContext{Token: tok, Signal: sig, CurrentPrice: decimal.NewFromFloat(0.001), LiquidityUSD: decimal.NewFromInt(50000), Now: time.Now()}
	if err := trader.OnSignal(ctx); err != nil {
		t.Fatalf("OnSignal: %v", err)
	}
	_, found, _ := trader.positions.OpenForToken(tok.ID, true, domain.SourceSignal)
	if found {
		t.Fatal("must not open a position when at the max-paper-positions cap")
	}
}
