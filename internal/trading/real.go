package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solsentinel/internal/closeconditions"
	"solsentinel/internal/domain"
	"solsentinel/internal/persistence"
	"solsentinel/internal/providers"
	"solsentinel/internal/risk"
)

// sellSlippageBps is the escalating retry ladder for real sells (spec
// §4.8): 500, then 1500, then 2500 basis points before the position is
// force-closed as a total loss.
var sellSlippageBps = []int{500, 1500, 2500}

const buySlippageBps = 500

// RealTrader shares PaperTrader's sizing/slippage math but executes
// through a providers.SwapExecutor, gated by the risk manager and
// wrapped in a circuit breaker (spec §4.8). Same public shape as
// PaperTrader: OnSignal / Update / SweepStale.
type RealTrader struct {
	positions *persistence.PositionRepository
	trades    *persistence.TradeRepository
	swaps     providers.SwapExecutor
	wallet    providers.WalletBalance
	walletKey string
	risk      risk.Manager
	breaker   *risk.CircuitBreaker
	params    Params
	log       zerolog.Logger
	now       clock
}

func NewRealTrader(
	positions *persistence.PositionRepository,
	trades *persistence.TradeRepository,
	swaps providers.SwapExecutor,
	wallet providers.WalletBalance,
	walletKey string,
	riskManager risk.Manager,
	breaker *risk.CircuitBreaker,
	params Params,
	log zerolog.Logger,
) *RealTrader {
	return &RealTrader{
		positions: positions,
		trades:    trades,
		swaps:     swaps,
		wallet:    wallet,
		walletKey: walletKey,
		risk:      riskManager,
		breaker:   breaker,
		params:    params,
		log:       log.With().Str("trader", "real").Logger(),
		now:       realClock,
	}
}

// OnSignal mirrors PaperTrader.OnSignal, adding the pre-trade risk check
// and routing the fill through the swap executor instead of the
// liquidity-implied slippage model.
func (t *RealTrader) OnSignal(ctx context.Context, sc SignalContext) error {
	if !sc.Signal.Status.IsActionable() || sc.IsRug || sc.CurrentPrice.Sign() <= 0 {
		return nil
	}
	if sc.LiquidityRemovedAtEntry {
		return nil
	}
	if t.breaker.IsTripped() {
		t.log.Debug().Msg("real entry skipped: circuit breaker tripped")
		return nil
	}

	existing, found, err := t.positions.OpenForToken(sc.Token.ID, false, domain.SourceSignal)
	if err != nil {
		return fmt.Errorf("lookup open real position for token %d: %w", sc.Token.ID, err)
	}
	if found && !existing.IsMicroEntry {
		return nil
	}

	invest := entrySizeSOL(t.params.SolPerTrade, sc.Signal.Status)

	openPositions, exposure, err := t.openStats()
	if err != nil {
		return err
	}
	balance, err := t.wallet.GetSOLBalance(ctx, t.walletKey)
	if err != nil {
		return fmt.Errorf("fetch wallet balance: %w", err)
	}
	check := t.risk.CheckOpen(balance, invest, openPositions, exposure, sc.LiquidityUSD)
	if !check.Allowed {
		t.log.Debug().Str("reason", check.Reason).Msg("real entry rejected by risk manager")
		return nil
	}

	lamports := solToLamports(invest)
	result, err := t.swaps.BuyToken(ctx, sc.Token.Address, lamports, buySlippageBps)
	if err != nil || !result.Success {
		t.breaker.RecordFailure()
		if err == nil {
			err = fmt.Errorf("buy swap reported failure")
		}
		return fmt.Errorf("real buy for token %d: %w", sc.Token.ID, err)
	}
	t.breaker.RecordSuccess()

	now := sc.Now
	if now.IsZero() {
		now = t.now()
	}
	trade := domain.Trade{
		TokenID:     sc.Token.ID,
		Side:        domain.TradeBuy,
		Source:      domain.SourceSignal,
		Status:      domain.TradeFilled,
		SolAmount:   result.Input,
		TokenAmount: result.Output,
		Price:       priceFromSwap(result),
		FeeSOL:      result.FeeSOL,
		SlippageBps: buySlippageBps,
		TxHash:      result.TxHash,
		IsPaper:     false,
		ExecutedAt:  now,
	}
	if _, err := t.trades.Insert(trade); err != nil {
		return fmt.Errorf("record real buy for token %d: %w", sc.Token.ID, err)
	}

	if found {
		newSolInvested := existing.SolInvested.Add(result.Input)
		newTokenAmount := existing.TokenAmount.Add(result.Output)
		newAvgPrice := existing.EntryPrice
		if newSolInvested.Sign() > 0 {
			newAvgPrice = existing.SolInvested.Mul(existing.EntryPrice).Add(result.Input.Mul(priceFromSwap(result))).Div(newSolInvested)
		}
		if err := t.positions.TopUpMicroEntry(existing.ID, newSolInvested, newTokenAmount, newAvgPrice); err != nil {
			return err
		}
		return t.positions.AttachSignal(existing.ID, sc.Signal.ID)
	}

	signalID := sc.Signal.ID
	pos := domain.Position{
		TokenID:      sc.Token.ID,
		State:        domain.PositionOpen,
		Source:       domain.SourceSignal,
		SignalID:     &signalID,
		EntryPrice:   priceFromSwap(result),
		CurrentPrice: priceFromSwap(result),
		MaxPrice:     priceFromSwap(result),
		TokenAmount:  result.Output,
		SolInvested:  result.Input,
		IsPaper:      false,
		OpenedAt:     now,
	}
	_, err = t.positions.Open(pos)
	return err
}

// Update mirrors PaperTrader.Update, but on close routes the sell through
// the swap executor with escalating slippage retries, force-closing as a
// total loss after exhausting the ladder (spec §4.8). mint is the token's
// on-chain address, supplied by the worker (Position itself carries no
// provider-facing fields).
func (t *RealTrader) Update(ctx context.Context, pos domain.Position, mint string, u UpdateContext) error {
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
	reason := closeconditions.Decide(pos, u.CurrentPrice, u.IsRug, u.Now, withLiquidity(t.params.CloseOptions, u.LiquidityUSD))
	if reason == closeconditions.ReasonNone {
		return nil
	}

	urgent := risk.IsUrgent(string(reason))
	if t.breaker.IsTripped() && !urgent {
		t.log.Debug().Str("reason", string(reason)).Msg("real close deferred: circuit breaker tripped")
		return nil
	}
	return t.closeWithRetries(ctx, pos, mint, reason, u.Now)
}

// UpdateForToken marks the token's open real position (if any) to the
// latest price and evaluates close conditions. A no-op when no real
// position is currently open for this token.
func (t *RealTrader) UpdateForToken(ctx context.Context, token domain.Token, mint string, u UpdateContext) error {
	pos, found, err := t.positions.OpenForToken(token.ID, false, domain.SourceSignal)
	if err != nil {
		return fmt.Errorf("lookup open real position for token %d: %w", token.ID, err)
	}
	if !found {
		return nil
	}
	return t.Update(ctx, pos, mint, u)
}

func (t *RealTrader) closeWithRetries(ctx context.Context, pos domain.Position, mint string, reason closeconditions.Reason, now time.Time) error {
	rawAmount, decimals := tokenAmountToRaw(pos.TokenAmount)

	var lastErr error
	for i, bps := range sellSlippageBps {
		result, err := t.swaps.SellToken(ctx, mint, rawAmount, bps)
		bypassBreaker := i == 0 || risk.IsUrgent(string(reason))
		if err == nil && result.Success {
			if !bypassBreaker {
				t.breaker.RecordSuccess()
			}
			return t.recordRealClose(pos, reason, result, decimals, now)
		}
		lastErr = err
		if !bypassBreaker {
			t.breaker.RecordFailure()
		}
		if err != nil && !result.Retryable {
			break
		}
	}

	t.log.Warn().Int64("position_id", pos.ID).Err(lastErr).Msg("real sell exhausted retry ladder, force-closing as total loss")
	return t.positions.Close(pos.ID, string(reason)+"_forced", now, decimal.Zero, decimal.NewFromInt(-100), pos.SolInvested.Neg())
}

func (t *RealTrader) recordRealClose(pos domain.Position, reason closeconditions.Reason, result providers.SwapResult, decimals uint8, now time.Time) error {
	trade := domain.Trade{
		TokenID:     pos.TokenID,
		Side:        domain.TradeSell,
		Source:      pos.Source,
		Status:      domain.TradeFilled,
		SolAmount:   result.Output,
		TokenAmount: pos.TokenAmount,
		Price:       priceFromSwap(result),
		FeeSOL:      result.FeeSOL,
		SlippageBps: int(result.PriceImpactPct * 100),
		TxHash:      result.TxHash,
		IsPaper:     false,
		ExecutedAt:  now,
	}
	if _, err := t.trades.Insert(trade); err != nil {
		return fmt.Errorf("record real sell for position %d: %w", pos.ID, err)
	}

	// P&L on a real close is recomputed from actual SOL in vs SOL out,
	// not the mark-to-market estimate (spec §4.8).
	pnlSOL := result.Output.Sub(pos.SolInvested)
	pnlPct := decimal.Zero
	if pos.SolInvested.Sign() > 0 {
		pnlPct = pnlSOL.Div(pos.SolInvested).Mul(decimal.NewFromInt(100))
	}
	return t.positions.Close(pos.ID, string(reason), now, priceFromSwap(result), pnlPct, pnlSOL)
}

// SweepStale mirrors PaperTrader.SweepStale for real positions. mints maps
// token id to its on-chain mint address for every open real position.
func (t *RealTrader) SweepStale(ctx context.Context, mints map[int64]string, now time.Time) (int, error) {
	open, err := t.positions.AllOpen()
	if err != nil {
		return 0, err
	}
	var closed int
	timeout := time.Duration(t.params.CloseOptions.TimeoutHours * float64(time.Hour))
	for _, p := range open {
		if p.IsPaper || p.Age(now) < timeout {
			continue
		}
		mint, ok := mints[p.TokenID]
		if !ok {
			continue
		}
		if err := t.closeWithRetries(ctx, p, mint, closeconditions.ReasonTimeout, now); err != nil {
			return closed, err
		}
		closed++
	}
	return closed, nil
}

// SweepStaleWithTokens resolves every open real position's on-chain mint
// address via tokens and delegates to SweepStale, so callers (the
// scheduler's periodic timeout sweep) don't need their own PositionRepository
// handle just to build the mint map.
func (t *RealTrader) SweepStaleWithTokens(ctx context.Context, tokens *persistence.TokenRepository, now time.Time) (int, error) {
	open, err := t.positions.AllOpen()
	if err != nil {
		return 0, err
	}
	mints := make(map[int64]string, len(open))
	for _, p := range open {
		if p.IsPaper {
			continue
		}
		if _, ok := mints[p.TokenID]; ok {
			continue
		}
		tok, err := tokens.GetByID(p.TokenID)
		if err != nil {
			continue
		}
		mints[p.TokenID] = tok.Address
	}
	return t.SweepStale(ctx, mints, now)
}

func (t *RealTrader) openStats() (count int, exposureSOL decimal.Decimal, err error) {
	open, err := t.positions.AllOpen()
	if err != nil {
		return 0, decimal.Zero, err
	}
	exposureSOL = decimal.Zero
	for _, p := range open {
		if !p.IsPaper {
			count++
			exposureSOL = exposureSOL.Add(p.SolInvested)
		}
	}
	return count, exposureSOL, nil
}

func solToLamports(sol decimal.Decimal) uint64 {
	lamports := sol.Mul(decimal.NewFromInt(1_000_000_000))
	return uint64(lamports.IntPart())
}

// tokenAmountToRaw is a placeholder conversion pending on-chain decimals
// lookup; the swap executor is the authority on raw-unit conversion in
// production, this keeps the trader's math self-contained for now.
func tokenAmountToRaw(amount decimal.Decimal) (uint64, uint8) {
	const decimals = 6
	scaled := amount.Mul(decimal.New(1, decimals))
	return uint64(scaled.IntPart()), decimals
}

func priceFromSwap(r providers.SwapResult) decimal.Decimal {
	if r.Input.Sign() <= 0 || r.Output.Sign() <= 0 {
		return decimal.Zero
	}
	return r.Input.Div(r.Output)
}
