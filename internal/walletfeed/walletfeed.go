// Package walletfeed turns a live stream of tracked-wallet transaction
// signatures into internal/trading.CopyTrader.OnEvent calls (spec §4.9).
// The upstream signature stream is an external collaborator out of scope
// for this pipeline; only the subscriber loop is in scope, mirroring
// internal/discovery's shape.
package walletfeed

import (
	"context"

	"github.com/rs/zerolog"

	"solsentinel/internal/trading"
)

// Feed streams observed wallet-event signatures for a set of tracked
// addresses.
type Feed interface {
	Events() <-chan trading.WalletEvent
	Run(ctx context.Context) error
}

// Subscriber drives a Feed into a CopyTrader.
type Subscriber struct {
	feed   Feed
	trader *trading.CopyTrader
	log    zerolog.Logger
}

func NewSubscriber(feed Feed, trader *trading.CopyTrader, log zerolog.Logger) *Subscriber {
	return &Subscriber{feed: feed, trader: trader, log: log.With().Str("component", "walletfeed").Logger()}
}

// Run blocks, driving the feed and routing each event into the copy
// trader, until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	go func() {
		if err := s.feed.Run(ctx); err != nil && ctx.Err() == nil {
			s.log.Error().Err(err).Msg("wallet feed stopped with error")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.feed.Events():
			if !ok {
				return nil
			}
			if err := s.trader.OnEvent(ctx, ev); err != nil {
				s.log.Error().Err(err).Str("signature", ev.Signature).Str("wallet", ev.Wallet).Msg("failed to process wallet event")
			}
		}
	}
}
