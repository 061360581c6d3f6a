package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solsentinel/internal/domain"
	"solsentinel/internal/providers"
	"solsentinel/internal/solanaparse"
	"solsentinel/internal/stage"
)

// wrappedSOL is the synthetic output symbol the sell-simulation quote sells
// into; the concrete swap-quote provider resolves it to the real wrapped-SOL
// mint address.
const wrappedSOL = "SOL"

// sellSimProbeAmount is the token-unit-agnostic probe size used to simulate a
// sell without having an actual position; the quote provider is responsible
// for denominating it against the mint's own decimals.
var sellSimProbeAmount = decimal.NewFromInt(1_000_000)

// processPreScan runs the mint-account parse and sell-route simulation,
// hard-rejecting tokens that fail either check outright and otherwise
// carrying the accumulated risk boost forward to INITIAL (spec §4.3).
func (w *Worker) processPreScan(ctx context.Context, task domain.EnrichmentTask, log zerolog.Logger) error {
	if err := solanaparse.ValidateAddress(task.Address); err != nil {
		log.Warn().Err(err).Msg("PRE_SCAN dropped: invalid address")
		return nil
	}

	token, err := w.repos.Tokens.GetByAddress(task.Address, Chain)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn().Msg("PRE_SCAN dropped: token not yet discovered")
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup token %s: %w", task.Address, err)
	}

	var mint domain.MintInfo
	if w.prov.MintRPC != nil {
		mint, err = w.prov.MintRPC.GetMintInfo(ctx, w.cfg.SolanaRPCURL, task.Address)
		if err != nil {
			log.Warn().Err(err).Msg("PRE_SCAN mint parse failed, treating as unparseable and dropping")
			return nil
		}
	}
	if solanaparse.HardReject(mint) {
		log.Info().Msg("PRE_SCAN hard reject: dangerous mint configuration")
		return nil
	}

	var sellSim domain.SellSimResult
	var quotePrice decimal.Decimal
	if w.prov.SwapQuote != nil {
		q, err := w.prov.SwapQuote.Quote(ctx, task.Address, wrappedSOL, sellSimProbeAmount, 500)
		sellSim = sellSimFromQuote(q, err)
		quotePrice = priceFromQuote(q)
	}
	if solanaparse.SellSimRejects(sellSim, mint) {
		log.Info().Msg("PRE_SCAN hard reject: no sell route with active mint authority")
		return nil
	}

	result := domain.PreScanResult{
		Mint:      mint,
		SellSim:   sellSim,
		RiskBoost: clampRiskBoost(solanaparse.RiskBoost(mint)),
	}

	if w.traders.Paper != nil && quotePrice.Sign() > 0 {
		if err := w.traders.Paper.OnMicroSnipe(token, quotePrice, decimal.Zero, nowOrZero(task.ScheduledAt)); err != nil {
			log.Warn().Err(err).Msg("micro-snipe entry failed")
		}
	}

	return w.enqueueNext(ctx, task.Address, stage.PreScan, token.DiscoveredAt, &result, 0, log)
}

// sellSimFromQuote translates a swap-quote outcome into the PRE_SCAN sell
// simulation result. A transport/provider error is distinguished from an
// explicit "no route" response: only the latter participates in
// solanaparse.SellSimRejects.
func sellSimFromQuote(q providers.Quote, err error) domain.SellSimResult {
	if err != nil {
		msg := err.Error()
		return domain.SellSimResult{Error: &msg}
	}
	if q.Error != nil {
		msg := q.Error.Error()
		return domain.SellSimResult{Error: &msg, NoRoute: true}
	}
	return domain.SellSimResult{
		Sellable:    q.OutputAmount.Sign() > 0,
		PriceImpact: q.PriceImpactPct,
	}
}
