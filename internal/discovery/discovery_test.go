package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solsentinel/internal/events"
	"solsentinel/internal/persistence"
	"solsentinel/internal/queue"
	sentinelqqtest "solsentinel/internal/testing"
)

func TestBackoffGrowsThenCaps(t *testing.T) {
	if backoff(1) >= backoff(2) {
		t.Fatal("backoff must grow between early attempts")
	}
	if backoff(maxBackoffAt) != backoff(maxBackoffAt+5) {
		t.Fatal("backoff must cap at maxBackoff once attempts exceed maxBackoffAt")
	}
	if backoff(maxBackoffAt) > maxBackoff {
		t.Fatal("backoff must never exceed maxBackoff")
	}
}

type fakeFeed struct {
	events chan Event
}

func (f *fakeFeed) Events() <-chan Event          { return f.events }
func (f *fakeFeed) Run(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }

func TestSubscriberUpsertsTokenAndEnqueuesPreScan(t *testing.T) {
	db, cleanup := sentinelqqtest.NewTestDB(t, "sentinel")
	defer cleanup()
	log := zerolog.Nop()
	tokens := persistence.NewTokenRepository(db.Conn(), log)
	mem := queue.NewMemoryStore()
	q := queue.NewQueue(mem, mem, log)
	bus := events.NewBus()

	var fired bool
	bus.Subscribe(events.TokenDiscovered, func(events.Event) { fired = true })

	feed := &fakeFeed{events: make(chan Event, 1)}
	sub := NewSubscriber(feed, tokens, q, bus, log)

	ctx, cancel := context.WithCancel(context.Background())
	name := "Dogwifcoin"
	feed.events <- Event{Address: "Mint1111111111111111111111111111111111111", Name: &name, Source: "test", SeenAt: time.Now()}
	close(feed.events)

	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not exit after feed channel closed")
	}
	cancel()

	size, err := q.Size(context.Background())
	if err != nil {
		t.Fatalf("queue size: %v", err)
	}
	if size != 1 {
		t.Fatalf("got queue size %d, want 1", size)
	}
	if !fired {
		t.Fatal("TokenDiscovered event must fire after a successful upsert+enqueue")
	}
}
