package walletfeed

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solsentinel/internal/domain"
	"solsentinel/internal/persistence"
	sentinelqqtest "solsentinel/internal/testing"
	"solsentinel/internal/trading"
)

func TestBackoffGrowsThenCaps(t *testing.T) {
	if backoff(1) >= backoff(2) {
		t.Fatal("backoff must grow between early attempts")
	}
	if backoff(maxAttempts) != backoff(maxAttempts+3) {
		t.Fatal("backoff must cap once attempts exceed maxAttempts")
	}
}

type fakeParser struct{ swap trading.ParsedSwap }

func (p fakeParser) Parse(ctx context.Context, signature string) (trading.ParsedSwap, error) {
	return p.swap, nil
}

type fakeFeed struct {
	events chan trading.WalletEvent
}

func (f *fakeFeed) Events() <-chan trading.WalletEvent { return f.events }
func (f *fakeFeed) Run(ctx context.Context) error      { <-ctx.Done(); return ctx.Err() }

func TestSubscriberRoutesEventsToCopyTrader(t *testing.T) {
	db, cleanup := sentinelqqtest.NewTestDB(t, "sentinel")
	defer cleanup()
	log := zerolog.Nop()
	positions := persistence.NewPositionRepository(db.Conn(), log)
	trades := persistence.NewTradeRepository(db.Conn(), log)
	tokens := persistence.NewTokenRepository(db.Conn(), log)
	wallets := persistence.NewWalletRepository(db.Conn(), log)

	tok := domain.Token{Address: "Mint1111111111111111111111111111111111111", Chain: "sol", DiscoveredAt: time.Now(), Source: "test"}
	tokID, err := tokens.UpsertToken(tok)
	if err != nil {
		t.Fatalf("upsert token: %v", err)
	}

	if err := wallets.Upsert(domain.TrackedWallet{Address: "Wallet1", Label: "whale", Multiplier: 1, MaxSOL: 5, Enabled: true}); err != nil {
		t.Fatalf("upsert wallet: %v", err)
	}

	parser := fakeParser{swap: trading.ParsedSwap{
		Type:       "SWAP",
		FeePayer:   "Wallet1",
		Mint:       tok.Address,
		SOLDelta:   decimal.NewFromFloat(-1),
		TokenDelta: decimal.NewFromFloat(1000),
		Price:      decimal.NewFromFloat(0.001),
		TxHash:     "tx1",
	}}
	trader := trading.NewCopyTrader(positions, trades, tokens, wallets, parser, true, log)

	feed := &fakeFeed{events: make(chan trading.WalletEvent, 1)}
	sub := NewSubscriber(feed, trader, log)

	ctx, cancel := context.WithCancel(context.Background())
	feed.events <- trading.WalletEvent{Signature: "sig1", Wallet: "Wallet1"}
	close(feed.events)

	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not exit after feed channel closed")
	}
	cancel()

	_, found, err := positions.OpenForToken(tokID, false, domain.SourceCopyTrade)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !found {
		t.Fatal("expected an open copy position after a routed buy event")
	}
}
