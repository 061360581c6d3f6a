package trading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solsentinel/internal/closeconditions"
	"solsentinel/internal/domain"
	"solsentinel/internal/persistence"
)

// WalletEvent is a single observed transaction signature involving a
// tracked wallet, as delivered by the wallet-event feed (spec §4.9).
type WalletEvent struct {
	Signature string
	Wallet    string
}

// ParsedSwap is the outcome of resolving a wallet-event signature into a
// concrete swap, once the parse endpoint's deeper commitment has landed.
type ParsedSwap struct {
	Type      string // must equal "SWAP" to be actionable
	Error     error
	FeePayer  string
	Mint      string
	SOLDelta  decimal.Decimal // signed: negative = wallet sent SOL, positive = wallet received SOL
	TokenDelta decimal.Decimal // signed: negative = wallet sent tokens, positive = wallet received tokens
	Price     decimal.Decimal
	TxHash    string
}

// TransactionParser resolves a signature into a ParsedSwap. Retries are
// the copy trader's responsibility, not the parser's.
type TransactionParser interface {
	Parse(ctx context.Context, signature string) (ParsedSwap, error)
}

// CopyStats counts copy-trader activity for health/observability (spec
// §4.9 "Stats counters").
type CopyStats struct {
	EventsReceived int64
	SwapsParsed    int64
	BuysOpened     int64
	SellsMirrored  int64
	DedupSkips     int64
	Errors         int64
}

// parseRetryDelays are the escalating waits between parse attempts (spec
// §4.9: "2/5/10s").
var parseRetryDelays = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}

// CopyTrader mirrors trades observed from tracked wallets. It shares the
// same close-conditions decider and position-update mechanics as the
// paper/real traders but opens positions from observed wallet activity
// instead of the signal evaluator.
type CopyTrader struct {
	positions        *persistence.PositionRepository
	trades           *persistence.TradeRepository
	tokens           *persistence.TokenRepository
	wallets          *persistence.WalletRepository
	parser           TransactionParser
	mirrorSellEnabled bool
	log              zerolog.Logger
	now              clock

	dedupMu sync.Mutex
	dedup   map[string]time.Time // signature -> seen-at, pruned by dedupTTL

	statsMu sync.Mutex
	stats   CopyStats
}

const dedupTTL = 5 * time.Minute

func NewCopyTrader(
	positions *persistence.PositionRepository,
	trades *persistence.TradeRepository,
	tokens *persistence.TokenRepository,
	wallets *persistence.WalletRepository,
	parser TransactionParser,
	mirrorSellEnabled bool,
	log zerolog.Logger,
) *CopyTrader {
	return &CopyTrader{
		positions:        positions,
		trades:           trades,
		tokens:           tokens,
		wallets:          wallets,
		parser:           parser,
		mirrorSellEnabled: mirrorSellEnabled,
		log:              log.With().Str("trader", "copy").Logger(),
		now:              realClock,
		dedup:            make(map[string]time.Time),
	}
}

// OnEvent processes one wallet-event feed notification end to end: dedup,
// wallet-config lookup, transaction parse with retry, side derivation, and
// routing into an open or a mirror-sell close (spec §4.9).
func (t *CopyTrader) OnEvent(ctx context.Context, ev WalletEvent) error {
	t.incr(func(s *CopyStats) { s.EventsReceived++ })

	if t.seen(ev.Signature) {
		t.incr(func(s *CopyStats) { s.DedupSkips++ })
		return nil
	}

	enabled, err := t.wallets.Enabled()
	if err != nil {
		return fmt.Errorf("load tracked wallets: %w", err)
	}
	var cfg *domain.TrackedWallet
	for i := range enabled {
		if enabled[i].Address == ev.Wallet {
			cfg = &enabled[i]
			break
		}
	}
	if cfg == nil {
		return nil // wallet untracked or disabled
	}

	swap, err := t.parseWithRetry(ctx, ev.Signature)
	if err != nil {
		t.incr(func(s *CopyStats) { s.Errors++ })
		return fmt.Errorf("parse wallet event %s: %w", ev.Signature, err)
	}
	if swap.Type != "SWAP" || swap.FeePayer != ev.Wallet {
		return nil
	}
	t.incr(func(s *CopyStats) { s.SwapsParsed++ })

	token, err := t.tokens.GetByAddress(swap.Mint, "sol")
	if err != nil {
		return fmt.Errorf("lookup token %s: %w", swap.Mint, err)
	}

	switch {
	case swap.SOLDelta.Sign() < 0 && swap.TokenDelta.Sign() > 0:
		return t.onBuy(token, *cfg, swap)
	case swap.TokenDelta.Sign() < 0 && swap.SOLDelta.Sign() > 0:
		return t.onSell(token, *cfg)
	default:
		return nil
	}
}

func (t *CopyTrader) parseWithRetry(ctx context.Context, signature string) (ParsedSwap, error) {
	var lastErr error
	for attempt := 0; attempt <= len(parseRetryDelays); attempt++ {
		swap, err := t.parser.Parse(ctx, signature)
		if err == nil {
			return swap, nil
		}
		lastErr = err
		if attempt == len(parseRetryDelays) {
			break
		}
		select {
		case <-ctx.Done():
			return ParsedSwap{}, ctx.Err()
		case <-time.After(parseRetryDelays[attempt]):
		}
	}
	return ParsedSwap{}, lastErr
}

func (t *CopyTrader) onBuy(token domain.Token, cfg domain.TrackedWallet, swap ParsedSwap) error {
	observedSOL := swap.SOLDelta.Abs()
	invest := decimal.Min(observedSOL.Mul(decimal.NewFromFloat(cfg.Multiplier)), decimal.NewFromFloat(cfg.MaxSOL))
	if invest.Sign() <= 0 {
		return nil
	}

	now := t.now()
	trade := domain.Trade{
		TokenID:          token.ID,
		Side:             domain.TradeBuy,
		Source:           domain.SourceCopyTrade,
		Status:           domain.TradeFilled,
		SolAmount:        invest,
		TokenAmount:      swap.TokenDelta,
		Price:            swap.Price,
		TxHash:           swap.TxHash,
		CopiedFromWallet: &cfg.Address,
		IsPaper:          false,
		ExecutedAt:       now,
	}
	if _, err := t.trades.Insert(trade); err != nil {
		return fmt.Errorf("record copy buy for token %d: %w", token.ID, err)
	}

	pos := domain.Position{
		TokenID:          token.ID,
		State:            domain.PositionOpen,
		Source:           domain.SourceCopyTrade,
		CopiedFromWallet: &cfg.Address,
		EntryPrice:       swap.Price,
		CurrentPrice:     swap.Price,
		MaxPrice:         swap.Price,
		TokenAmount:      swap.TokenDelta,
		SolInvested:      invest,
		IsPaper:          false,
		OpenedAt:         now,
	}
	if _, err := t.positions.Open(pos); err != nil {
		return fmt.Errorf("open copy position for token %d: %w", token.ID, err)
	}
	t.incr(func(s *CopyStats) { s.BuysOpened++ })
	return nil
}

func (t *CopyTrader) onSell(token domain.Token, cfg domain.TrackedWallet) error {
	if !t.mirrorSellEnabled {
		return nil
	}
	pos, found, err := t.positions.OpenForToken(token.ID, false, domain.SourceCopyTrade)
	if err != nil {
		return fmt.Errorf("lookup copy position for token %d: %w", token.ID, err)
	}
	if !found || pos.CopiedFromWallet == nil || *pos.CopiedFromWallet != cfg.Address {
		return nil
	}

	now := t.now()
	exitSOL := pos.TokenAmount.Mul(pos.CurrentPrice)
	trade := domain.Trade{
		TokenID:          token.ID,
		Side:             domain.TradeSell,
		Source:           domain.SourceCopyTrade,
		Status:           domain.TradeFilled,
		SolAmount:        exitSOL,
		TokenAmount:      pos.TokenAmount,
		Price:            pos.CurrentPrice,
		CopiedFromWallet: &cfg.Address,
		IsPaper:          false,
		ExecutedAt:       now,
	}
	if _, err := t.trades.Insert(trade); err != nil {
		return fmt.Errorf("record copy mirror-sell for token %d: %w", token.ID, err)
	}

	pnlPct, pnlUSD := pnl(pos.EntryPrice, pos.CurrentPrice, pos.SolInvested, decimal.Zero)
	if err := t.positions.Close(pos.ID, "mirror_sell", now, pos.CurrentPrice, pnlPct, pnlUSD); err != nil {
		return fmt.Errorf("close copy position %d: %w", pos.ID, err)
	}
	t.incr(func(s *CopyStats) { s.SellsMirrored++ })
	return nil
}

// Update mirrors PaperTrader.Update for copy-trade positions: same
// mark/close mechanics, no mirror-sell routing (that only fires from
// OnEvent's SELL branch).
func (t *CopyTrader) Update(pos domain.Position, u UpdateContext) error {
	if sanityRejectMark(pos.EntryPrice, u.CurrentPrice) {
		return nil
	}
	maxPrice := pos.MaxPrice
	if u.CurrentPrice.GreaterThan(maxPrice) {
		maxPrice = u.CurrentPrice
	}
	pnlPct, pnlUSD := pnl(pos.EntryPrice, u.CurrentPrice, pos.SolInvested, u.SOLPriceUSD)
	if err := t.positions.UpdateMark(pos.ID, u.CurrentPrice, maxPrice, pnlPct, pnlUSD); err != nil {
		return err
	}

	pos.CurrentPrice = u.CurrentPrice
	pos.MaxPrice = maxPrice
	reason := closeconditions.Decide(pos, u.CurrentPrice, u.IsRug, u.Now, withLiquidity(closeconditions.DefaultOptions(), u.LiquidityUSD))
	if reason == closeconditions.ReasonNone {
		return nil
	}

	exitSOL := pos.TokenAmount.Mul(u.CurrentPrice)
	trade := domain.Trade{
		TokenID:          pos.TokenID,
		Side:             domain.TradeSell,
		Source:           domain.SourceCopyTrade,
		Status:           domain.TradeFilled,
		SolAmount:        exitSOL,
		TokenAmount:      pos.TokenAmount,
		Price:            u.CurrentPrice,
		CopiedFromWallet: pos.CopiedFromWallet,
		IsPaper:          false,
		ExecutedAt:       u.Now,
	}
	if _, err := t.trades.Insert(trade); err != nil {
		return fmt.Errorf("record copy close for token %d: %w", pos.TokenID, err)
	}
	closePnlPct, closePnlUSD := pnl(pos.EntryPrice, u.CurrentPrice, pos.SolInvested, solPriceOrDefault(u.SOLPriceUSD))
	return t.positions.Close(pos.ID, string(reason), u.Now, u.CurrentPrice, closePnlPct, closePnlUSD)
}

func (t *CopyTrader) seen(signature string) bool {
	t.dedupMu.Lock()
	defer t.dedupMu.Unlock()

	now := t.now()
	for sig, at := range t.dedup {
		if now.Sub(at) > dedupTTL {
			delete(t.dedup, sig)
		}
	}
	if _, ok := t.dedup[signature]; ok {
		return true
	}
	t.dedup[signature] = now
	return false
}

func (t *CopyTrader) incr(f func(*CopyStats)) {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	f(&t.stats)
}

// Stats returns a snapshot of the copy trader's activity counters.
func (t *CopyTrader) Stats() CopyStats {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	return t.stats
}
