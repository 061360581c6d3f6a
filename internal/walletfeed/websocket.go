package walletfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"solsentinel/internal/persistence"
	"solsentinel/internal/trading"
)

const (
	dialTimeout = 30 * time.Second
	baseBackoff = 2 * time.Second
	maxBackoff  = 2 * time.Minute
	maxAttempts = 8
)

type rawSignature struct {
	Signature string `json:"signature"`
	Wallet    string `json:"wallet"`
}

// WebSocketFeed subscribes to a generic per-address transaction-signature
// feed, refreshing its subscription list from the tracked-wallet registry
// on every reconnect. Reconnect/backoff shape grounded on the same
// websocket client internal/discovery's feed is grounded on.
type WebSocketFeed struct {
	url     string
	wallets *persistence.WalletRepository
	log     zerolog.Logger
	events  chan trading.WalletEvent
}

func NewWebSocketFeed(url string, wallets *persistence.WalletRepository, log zerolog.Logger) *WebSocketFeed {
	return &WebSocketFeed{
		url:     url,
		wallets: wallets,
		log:     log.With().Str("component", "wallet_feed").Logger(),
		events:  make(chan trading.WalletEvent, 256),
	}
}

func (f *WebSocketFeed) Events() <-chan trading.WalletEvent { return f.events }

func (f *WebSocketFeed) Run(ctx context.Context) error {
	defer close(f.events)

	attempt := 0
	for ctx.Err() == nil {
		conn, err := f.connect(ctx)
		if err != nil {
			attempt++
			delay := backoff(attempt)
			f.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("wallet feed connect failed, retrying")
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
	enabled, err := f.wallets.Enabled()
	if err != nil {
		return nil, fmt.Errorf("load tracked wallets: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial wallet feed: %w", err)
	}

	addresses := make([]string, len(enabled))
	for i, w := range enabled {
		addresses[i] = w.Address
	}
	msg, err := json.Marshal(map[string]interface{}{"accounts": addresses})
	if err != nil {
		conn.Close(websocket.StatusNormalClosure, "")
		return nil, fmt.Errorf("marshal wallet subscription: %w", err)
	}
	writeCtx, writeCancel := context.WithTimeout(ctx, 10*time.Second)
	defer writeCancel()
	if err := conn.Write(writeCtx, websocket.MessageText, msg); err != nil {
		conn.Close(websocket.StatusNormalClosure, "")
		return nil, fmt.Errorf("subscribe wallet feed: %w", err)
	}
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
				f.log.Warn().Err(err).Msg("wallet feed read error, reconnecting")
			}
			return
		}
		var raw rawSignature
		if err := json.Unmarshal(data, &raw); err != nil {
			f.log.Debug().Err(err).Msg("failed to parse wallet feed message")
			continue
		}
		if raw.Signature == "" || raw.Wallet == "" {
			continue
		}
		select {
		case f.events <- trading.WalletEvent{Signature: raw.Signature, Wallet: raw.Wallet}:
		case <-ctx.Done():
			return
		}
	}
}

func backoff(attempt int) time.Duration {
	if attempt > maxAttempts {
		attempt = maxAttempts
	}
	delay := float64(baseBackoff) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxBackoff) {
		delay = float64(maxBackoff)
	}
	return time.Duration(delay)
}
