package trading

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solsentinel/internal/closeconditions"
	"solsentinel/internal/domain"
	"solsentinel/internal/persistence"
)

// PaperTrader simulates fills against observed prices: no real capital, no
// SwapExecutor, no risk manager — only the liquidity-implied slippage and
// exit-impact model (spec §4.7).
type PaperTrader struct {
	positions *persistence.PositionRepository
	trades    *persistence.TradeRepository
	params    Params
	log       zerolog.Logger
	now       clock
}

func NewPaperTrader(positions *persistence.PositionRepository, trades *persistence.TradeRepository, params Params, log zerolog.Logger) *PaperTrader {
	return &PaperTrader{
		positions: positions,
		trades:    trades,
		params:    params,
		log:       log.With().Str("trader", "paper").Logger(),
		now:       realClock,
	}
}

// OnSignal acts on a newly evaluated actionable signal: opens a new
// position, tops up an existing micro-entry, or is a no-op duplicate.
func (t *PaperTrader) OnSignal(ctx SignalContext) error {
	if !ctx.Signal.Status.IsActionable() || ctx.IsRug || ctx.CurrentPrice.Sign() <= 0 {
		return nil
	}
	if ctx.LiquidityRemovedAtEntry {
		t.log.Debug().Str("token", ctx.Token.Address).Msg("paper entry rejected: liquidity removed at entry")
		return nil
	}

	existing, found, err := t.positions.OpenForToken(ctx.Token.ID, true, domain.SourceSignal)
	if err != nil {
		return fmt.Errorf("lookup open paper position for token %d: %w", ctx.Token.ID, err)
	}
	if found {
		if !existing.IsMicroEntry {
			return nil // duplicate signal for an already-open full position
		}
		return t.topUp(existing, ctx)
	}

	count, err := t.openPaperCount()
	if err != nil {
		return err
	}
	if count >= t.params.MaxPaperPositions {
		t.log.Debug().Int("open", count).Msg("paper entry rejected: max paper positions reached")
		return nil
	}

	invest := entrySizeSOL(t.params.SolPerTrade, ctx.Signal.Status)
	return t.open(ctx, invest, nil, false)
}

// OnMicroSnipe opens a tiny pre-signal position at PRE_SCAN (spec §4.7).
func (t *PaperTrader) OnMicroSnipe(token domain.Token, currentPrice, liquidityUSD decimal.Decimal, now time.Time) error {
	if currentPrice.Sign() <= 0 {
		return nil
	}
	_, found, err := t.positions.OpenForToken(token.ID, true, domain.SourceSignal)
	if err != nil {
		return fmt.Errorf("lookup open paper position for token %d: %w", token.ID, err)
	}
	if found {
		return nil
	}

	count, err := t.openMicroCount()
	if err != nil {
		return err
	}
	if count >= t.params.MaxMicroPositions {
		return nil
	}

	ctx := SignalContext{Token: token, CurrentPrice: currentPrice, LiquidityUSD: liquidityUSD, Now: now}
	return t.open(ctx, t.params.MicroSnipeSOL, nil, true)
}

func (t *PaperTrader) open(ctx SignalContext, investSOL decimal.Decimal, signalID *int64, isMicro bool) error {
	investUSD := investSOL.Mul(solPriceOrDefault(ctx.SOLPriceUSD))
	slip := entrySlippagePct(investUSD, ctx.LiquidityUSD)
	effectivePrice := ctx.CurrentPrice.Mul(decimal.NewFromInt(1).Add(slip))
	tokenAmount := decimal.Zero
	if effectivePrice.Sign() > 0 {
		tokenAmount = investSOL.Div(effectivePrice)
	}

	now := ctx.Now
	if now.IsZero() {
		now = t.now()
	}

	if signalID == nil && !isMicro {
		id := ctx.Signal.ID
		signalID = &id
	}

	trade := domain.Trade{
		TokenID:     ctx.Token.ID,
		Side:        domain.TradeBuy,
		Source:      domain.SourceSignal,
		Status:      domain.TradeFilled,
		SolAmount:   investSOL,
		TokenAmount: tokenAmount,
		Price:       effectivePrice,
		SlippageBps: int(slip.Mul(decimal.NewFromInt(10000)).IntPart()),
		IsPaper:     true,
		ExecutedAt:  now,
	}
	if _, err := t.trades.Insert(trade); err != nil {
		return fmt.Errorf("record paper buy for token %d: %w", ctx.Token.ID, err)
	}

	pos := domain.Position{
		TokenID:      ctx.Token.ID,
		State:        domain.PositionOpen,
		Source:       domain.SourceSignal,
		SignalID:     signalID,
		EntryPrice:   effectivePrice,
		CurrentPrice: effectivePrice,
		MaxPrice:     effectivePrice,
		TokenAmount:  tokenAmount,
		SolInvested:  investSOL,
		IsPaper:      true,
		IsMicroEntry: isMicro,
		OpenedAt:     now,
	}
	if _, err := t.positions.Open(pos); err != nil {
		return fmt.Errorf("open paper position for token %d: %w", ctx.Token.ID, err)
	}
	return nil
}

// topUp converts a micro-entry into a full position by updating its row in
// place, weighted-averaging the entry price (spec §4.7 "On top-up").
func (t *PaperTrader) topUp(existing domain.Position, ctx SignalContext) error {
	fullSize := entrySizeSOL(t.params.SolPerTrade, ctx.Signal.Status)
	addSOL := fullSize.Sub(existing.SolInvested)
	if addSOL.Sign() <= 0 {
		return nil
	}

	addUSD := addSOL.Mul(solPriceOrDefault(ctx.SOLPriceUSD))
	slip := entrySlippagePct(addUSD, ctx.LiquidityUSD)
	effectivePrice := ctx.CurrentPrice.Mul(decimal.NewFromInt(1).Add(slip))
	addTokens := decimal.Zero
	if effectivePrice.Sign() > 0 {
		addTokens = addSOL.Div(effectivePrice)
	}

	newSolInvested := existing.SolInvested.Add(addSOL)
	newTokenAmount := existing.TokenAmount.Add(addTokens)
	newAvgPrice := existing.EntryPrice
	if newSolInvested.Sign() > 0 {
		newAvgPrice = existing.SolInvested.Mul(existing.EntryPrice).Add(addSOL.Mul(effectivePrice)).Div(newSolInvested)
	}

	now := ctx.Now
	if now.IsZero() {
		now = t.now()
	}
	trade := domain.Trade{
		TokenID:     ctx.Token.ID,
		Side:        domain.TradeBuy,
		Source:      domain.SourceSignal,
		Status:      domain.TradeFilled,
		SolAmount:   addSOL,
		TokenAmount: addTokens,
		Price:       effectivePrice,
		SlippageBps: int(slip.Mul(decimal.NewFromInt(10000)).IntPart()),
		IsPaper:     true,
		ExecutedAt:  now,
	}
	if _, err := t.trades.Insert(trade); err != nil {
		return fmt.Errorf("record paper top-up for token %d: %w", ctx.Token.ID, err)
	}

	if err := t.positions.TopUpMicroEntry(existing.ID, newSolInvested, newTokenAmount, newAvgPrice); err != nil {
		return fmt.Errorf("top up micro position %d: %w", existing.ID, err)
	}
	return t.positions.AttachSignal(existing.ID, ctx.Signal.ID)
}

// Update marks an open position to the latest price and applies the
// shared close-conditions decider, closing and recording an exit trade if
// triggered (spec §4.7 "On update").
func (t *PaperTrader) Update(pos domain.Position, u UpdateContext) error {
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
	return t.close(pos, reason, u.CurrentPrice, u.LiquidityUSD, u.SOLPriceUSD, u.Now)
}

// UpdateForToken marks the token's open paper position (if any) to the
// latest price and evaluates close conditions. A no-op when no paper
// position is currently open for this token, so callers can invoke it
// unconditionally on every enrichment stage.
func (t *PaperTrader) UpdateForToken(token domain.Token, u UpdateContext) error {
	pos, found, err := t.positions.OpenForToken(token.ID, true, domain.SourceSignal)
	if err != nil {
		return fmt.Errorf("lookup open paper position for token %d: %w", token.ID, err)
	}
	if !found {
		return nil
	}
	return t.Update(pos, u)
}

// close records the exit trade and closes the position. netExit already
// carries whichever haircut applies (ordinary slippage, or the quadratic
// illiquid-exit impact for liquidity_removed) via exitValue; it is not
// re-discounted here.
func (t *PaperTrader) close(pos domain.Position, reason closeconditions.Reason, currentPrice, liquidityUSD, solPriceUSD decimal.Decimal, now time.Time) error {
	grossSOL := pos.TokenAmount.Mul(currentPrice)
	netExit := exitValue(pos.TokenAmount, currentPrice, liquidityUSD, solPriceUSD, reason)
	var slipBps int
	if grossSOL.Sign() > 0 {
		slip := decimal.NewFromInt(1).Sub(netExit.Div(grossSOL))
		slipBps = int(slip.Mul(decimal.NewFromInt(10000)).IntPart())
	}

	trade := domain.Trade{
		TokenID:     pos.TokenID,
		Side:        domain.TradeSell,
		Source:      pos.Source,
		Status:      domain.TradeFilled,
		SolAmount:   netExit,
		TokenAmount: pos.TokenAmount,
		Price:       currentPrice,
		SlippageBps: slipBps,
		IsPaper:     true,
		ExecutedAt:  now,
	}
	if _, err := t.trades.Insert(trade); err != nil {
		return fmt.Errorf("record paper sell for token %d: %w", pos.TokenID, err)
	}

	pnlPct, pnlUSD := pnl(pos.EntryPrice, currentPrice, pos.SolInvested, solPriceOrDefault(solPriceUSD))
	if err := t.positions.Close(pos.ID, string(reason), now, currentPrice, pnlPct, pnlUSD); err != nil {
		return fmt.Errorf("close paper position %d: %w", pos.ID, err)
	}
	return nil
}

// SweepStale closes every open paper position older than the configured timeout
// with reason "timeout" and its last known price (spec §4.7 "Stale sweep").
func (t *PaperTrader) SweepStale(now time.Time) (int, error) {
	open, err := t.positions.AllOpen()
	if err != nil {
		return 0, err
	}
	var closed int
	timeout := time.Duration(t.params.CloseOptions.TimeoutHours * float64(time.Hour))
	for _, p := range open {
		if !p.IsPaper || p.Age(now) < timeout {
			continue
		}
		if err := t.close(p, closeconditions.ReasonTimeout, p.CurrentPrice, decimal.Zero, decimal.Zero, now); err != nil {
			return closed, err
		}
		closed++
	}
	return closed, nil
}

func (t *PaperTrader) openPaperCount() (int, error) {
	open, err := t.positions.AllOpen()
	if err != nil {
		return 0, err
	}
	var n int
	for _, p := range open {
		if p.IsPaper && !p.IsMicroEntry {
			n++
		}
	}
	return n, nil
}

func (t *PaperTrader) openMicroCount() (int, error) {
	open, err := t.positions.AllOpen()
	if err != nil {
		return 0, err
	}
	var n int
	for _, p := range open {
		if p.IsPaper && p.IsMicroEntry {
			n++
		}
	}
	return n, nil
}
