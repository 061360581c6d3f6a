package events

import "testing"

func TestSubscribeReceivesEmittedEvent(t *testing.T) {
	b := NewBus()
	var got Event
	b.Subscribe(TokenDiscovered, func(e Event) { got = e })

	b.Emit(TokenDiscovered, TokenDiscoveredData{Address: "mint1"})

	if got.Type != TokenDiscovered {
		t.Fatalf("got type %s, want %s", got.Type, TokenDiscovered)
	}
	data, ok := got.Data.(TokenDiscoveredData)
	if !ok || data.Address != "mint1" {
		t.Fatalf("unexpected payload: %#v", got.Data)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus()
	count := 0
	sub := b.Subscribe(WalletTrade, func(Event) { count++ })
	b.Emit(WalletTrade, WalletTradeData{Wallet: "w1"})
	b.Unsubscribe(sub)
	b.Emit(WalletTrade, WalletTradeData{Wallet: "w1"})

	if count != 1 {
		t.Fatalf("got %d deliveries, want 1 after unsubscribe", count)
	}
}

func TestSubscribersAreIsolatedByType(t *testing.T) {
	b := NewBus()
	var tokenFired, walletFired bool
	b.Subscribe(TokenDiscovered, func(Event) { tokenFired = true })
	b.Subscribe(WalletTrade, func(Event) { walletFired = true })

	b.Emit(TokenDiscovered, TokenDiscoveredData{})

	if !tokenFired {
		t.Fatal("token subscriber must fire for TokenDiscovered")
	}
	if walletFired {
		t.Fatal("wallet subscriber must not fire for TokenDiscovered")
	}
}
