package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	dialTimeout  = 30 * time.Second
	writeWait    = 10 * time.Second
	baseBackoff  = 2 * time.Second
	maxBackoff   = 2 * time.Minute
	maxBackoffAt = 8 // attempts past which the delay is pinned at maxBackoff
)

// rawMessage is the wire shape of a generic discovery feed event. A real
// upstream feed's schema varies; this is broad enough to cover the common
// "new pool" / "new mint" notification shape.
type rawMessage struct {
	Address        string `json:"address"`
	CreatorAddress string `json:"creator"`
	Name           string `json:"name"`
	Symbol         string `json:"symbol"`
}

// WebSocketFeed subscribes to a generic JSON discovery feed over a
// websocket connection, reconnecting with exponential backoff on drop.
// Grounded on the reconnect/backoff shape of the teacher's market-status
// websocket client.
type WebSocketFeed struct {
	url    string
	source string
	log    zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	events chan Event
}

func NewWebSocketFeed(url, source string, log zerolog.Logger) *WebSocketFeed {
	return &WebSocketFeed{
		url:    url,
		source: source,
		log:    log.With().Str("component", "discovery_feed").Str("source", source).Logger(),
		events: make(chan Event, 256),
	}
}

func (f *WebSocketFeed) Events() <-chan Event { return f.events }

// Run connects and reads until ctx is cancelled, reconnecting on drop.
func (f *WebSocketFeed) Run(ctx context.Context) error {
	defer close(f.events)

	attempt := 0
	for ctx.Err() == nil {
		conn, err := f.connect(ctx)
		if err != nil {
			attempt++
			delay := backoff(attempt)
			f.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("discovery feed connect failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		attempt = 0
		f.readLoop(ctx, conn)
	}
	return ctx.Err()
}

func (f *WebSocketFeed) connect(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial discovery feed: %w", err)
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	return conn, nil
}

func (f *WebSocketFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				f.log.Warn().Err(err).Msg("discovery feed read error, reconnecting")
			}
			return
		}
		var raw rawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			f.log.Debug().Err(err).Msg("failed to parse discovery feed message")
			continue
		}
		if raw.Address == "" {
			continue
		}
		ev := Event{
			Address:        raw.Address,
			CreatorAddress: raw.CreatorAddress,
			Source:         f.source,
			SeenAt:         time.Now(),
		}
		if raw.Name != "" {
			name := raw.Name
			ev.Name = &name
		}
		if raw.Symbol != "" {
			symbol := raw.Symbol
			ev.Symbol = &symbol
		}
		select {
		case f.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// backoff computes an exponential delay capped at maxBackoff, matching the
// teacher's calculateBackoff shape.
func backoff(attempt int) time.Duration {
	if attempt > maxBackoffAt {
		attempt = maxBackoffAt
	}
	delay := float64(baseBackoff) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxBackoff) {
		delay = float64(maxBackoff)
	}
	return time.Duration(delay)
}
