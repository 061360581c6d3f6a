// Package discovery turns a live token-launch feed into PRE_SCAN enqueues.
// The feed itself (an HTTP/websocket client to a third-party launch
// aggregator) is an external collaborator out of scope for this pipeline;
// only the subscriber loop that reacts to feed events is in scope (spec
// §4.11: "must upsert the token record and enqueue a PRE_SCAN task").
package discovery

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"solsentinel/internal/domain"
	"solsentinel/internal/events"
	"solsentinel/internal/persistence"
	"solsentinel/internal/queue"
	"solsentinel/internal/stage"
)

// Event is a single token-launch sighting handed to the subscriber.
type Event struct {
	Address        string
	CreatorAddress string
	Name           *string
	Symbol         *string
	Source         string
	SeenAt         time.Time
}

// Feed is anything that can stream discovery events. The reference
// implementation is the websocket client in this package; tests and
// alternate transports can supply their own.
type Feed interface {
	Events() <-chan Event
	Run(ctx context.Context) error
}

// Subscriber consumes a Feed and drives the upsert-and-enqueue side effect.
type Subscriber struct {
	feed   Feed
	tokens *persistence.TokenRepository
	q      *queue.Queue
	bus    *events.Bus
	log    zerolog.Logger
}

func NewSubscriber(feed Feed, tokens *persistence.TokenRepository, q *queue.Queue, bus *events.Bus, log zerolog.Logger) *Subscriber {
	return &Subscriber{feed: feed, tokens: tokens, q: q, bus: bus, log: log.With().Str("component", "discovery").Logger()}
}

// Run blocks, driving the feed and handling events, until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	go func() {
		if err := s.feed.Run(ctx); err != nil && ctx.Err() == nil {
			s.log.Error().Err(err).Msg("discovery feed stopped with error")
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
			s.handle(ctx, ev)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, ev Event) {
	log := s.log.With().Str("address", ev.Address).Logger()

	tok := domain.Token{
		Address:        ev.Address,
		Chain:          "sol",
		DiscoveredAt:   ev.SeenAt,
		Source:         ev.Source,
		Name:           ev.Name,
		Symbol:         ev.Symbol,
		CreatorAddress: nonEmptyPtr(ev.CreatorAddress),
	}
	id, err := s.tokens.UpsertToken(tok)
	if err != nil {
		log.Error().Err(err).Msg("failed to upsert discovered token")
		return
	}

	preScanDef, _ := stage.Get(stage.PreScan)
	task := domain.EnrichmentTask{
		Address:     ev.Address,
		Stage:       stage.PreScan,
		ScheduledAt: ev.SeenAt.Add(preScanDef.Offset),
		Priority:    domain.PriorityNormal,
	}
	if err := s.q.Put(ctx, task); err != nil {
		log.Error().Err(err).Msg("failed to enqueue PRE_SCAN task for discovered token")
		return
	}

	if s.bus != nil {
		s.bus.Emit(events.TokenDiscovered, events.TokenDiscoveredData{
			Address:        ev.Address,
			CreatorAddress: ev.CreatorAddress,
			Source:         ev.Source,
			DiscoveredAt:   ev.SeenAt,
		})
	}
	log.Debug().Int64("token_id", id).Msg("discovered token enqueued for PRE_SCAN")
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
