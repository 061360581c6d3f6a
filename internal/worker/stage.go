package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solsentinel/internal/domain"
	"solsentinel/internal/scoring"
	"solsentinel/internal/signals"
	"solsentinel/internal/stage"
	"solsentinel/internal/trading"
)

// processStage runs one normal (non-PRE_SCAN) enrichment stage end to end:
// concurrent fetch, snapshot/security/outcome persistence, signals-context
// assembly, dual-variant scoring, rule evaluation, trade routing, and the
// next-stage enqueue (spec §4.3). A stage's PRE_SCAN-derived mint info and
// sell-sim result ride along on every task from PRE_SCAN onward, since
// neither changes after mint creation.
func (w *Worker) processStage(ctx context.Context, task domain.EnrichmentTask, log zerolog.Logger) error {
	def, ok := stage.Get(task.Stage)
	if !ok {
		return fmt.Errorf("unknown stage %q for %s", task.Stage, task.Address)
	}

	token, err := w.repos.Tokens.GetByAddress(task.Address, Chain)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn().Msg("stage dropped: token not found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup token %s: %w", task.Address, err)
	}

	data, err := w.fetchStage(ctx, task.Address, def.Fetches)
	if err != nil {
		return err
	}

	prior, err := w.repos.Snapshots.Latest(token.ID)
	hasPrior := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load prior snapshot for %s: %w", task.Address, err)
	}

	now := nowOrZero(task.ScheduledAt)
	snap := buildSnapshot(token.ID, task.Stage, data, prior, hasPrior, now)

	if data.Security != nil {
		sec := *data.Security
		sec.TokenID = token.ID
		if err := w.repos.Security.Upsert(sec); err != nil {
			log.Error().Err(err).Msg("failed to persist security fetch")
		}
	}
	security, secErr := w.repos.Security.Get(token.ID)
	var securityPtr *domain.TokenSecurity
	switch {
	case secErr == nil:
		securityPtr = &security
	case !errors.Is(secErr, sql.ErrNoRows):
		log.Error().Err(secErr).Msg("failed to load security row")
	}

	var creator domain.CreatorProfile
	if token.CreatorAddress != nil {
		creator, err = w.repos.Creators.Get(*token.CreatorAddress)
		if err != nil {
			log.Error().Err(err).Msg("failed to load creator profile")
		}
	}

	var mint domain.MintInfo
	sellSimFailed := false
	if task.PreScan != nil {
		mint = task.PreScan.Mint
		sellSimFailed = task.PreScan.SellSim.Error != nil || task.PreScan.SellSim.NoRoute
	}

	outcome, err := w.repos.Outcomes.Get(token.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load token outcome")
	}
	if outcome.InitialMCap.Sign() == 0 && snap.MarketCap.Sign() > 0 {
		outcome.InitialMCap = snap.MarketCap
	}
	multiplier := 1.0
	if outcome.InitialMCap.Sign() > 0 {
		multiplier, _ = snap.MarketCap.Div(outcome.InitialMCap).Float64()
	}
	outcome.ApplySnapshot(snap.MarketCap, snap.Price, multiplier, now, token.DiscoveredAt)
	if task.Stage == stage.Hour24 {
		outcome.Finalize(snap.MarketCap, multiplier)
	}
	if err := w.repos.Outcomes.Upsert(outcome); err != nil {
		log.Error().Err(err).Msg("failed to persist token outcome")
	}
	if task.Stage == stage.Hour24 && token.CreatorAddress != nil {
		if refreshed, err := w.creators.Refresh(*token.CreatorAddress); err != nil {
			log.Error().Err(err).Msg("failed to refresh creator profile")
		} else {
			creator = refreshed
		}
	}

	// A rug is anything that makes an open position worthless right now:
	// a confirmed honeypot (either security provider or the aggregator
	// cross-check), a PRE_SCAN sell simulation that found no exit route or
	// returned an error, or the outcome tracker's own after-the-fact
	// classification.
	isRug := outcome.IsRug || sellSimFailed || data.AggregatorHoneypot ||
		(securityPtr != nil && securityPtr.Honeypot)

	enCtx := buildContext(token, snap, prior, hasPrior, securityPtr, creator, mint,
		sellSimFailed, data.AggregatorHoneypot, task.PrevScore, token.DiscoveredAt, now)

	primaryScore := scoring.Score(enCtx, scoring.V2Balanced)
	snap.ScoreV2 = primaryScore
	snap.ScoreV3 = scoring.Score(enCtx, scoring.V3MomentumWeighted)

	snapID, err := w.repos.Snapshots.Insert(snap)
	if err != nil {
		return fmt.Errorf("persist snapshot for %s: %w", task.Address, err)
	}
	if data.HoldersFetched && len(data.Holders) > 0 {
		if err := w.repos.Snapshots.InsertTopHolders(snapID, data.Holders); err != nil {
			log.Error().Err(err).Msg("failed to persist top holders")
		}
	}

	result := signals.Evaluate(enCtx, primaryScore)
	sig := domain.Signal{
		TokenID:    token.ID,
		Status:     domain.SignalStatus(result.Action),
		Score:      primaryScore,
		NetScore:   result.Net,
		RulesFired: ruleNames(result.RulesFired),
		Price:      snap.Price,
		MarketCap:  snap.MarketCap,
		Liquidity:  snap.Liquidity,
		CreatedAt:  now,
	}
	signalID, err := w.repos.Signals.Transition(sig)
	if err != nil {
		log.Error().Err(err).Msg("failed to persist signal transition")
	} else {
		sig.ID = signalID
	}

	roiPct := (outcome.PeakMultiplier - 1) * 100
	if err := w.repos.Signals.UpdateOutcome(token.ID, &outcome.PeakMultiplier, &roiPct, &outcome.IsRug); err != nil {
		log.Error().Err(err).Msg("failed to mirror outcome into signal rows")
	}

	// Spec §4.3 calls for the micro-snipe entry at PRE_SCAN or INITIAL:
	// PRE_SCAN only attempts it when the sell-sim quote carried a usable
	// price (prescan.go), so a token with no PRE_SCAN quote gets a second
	// chance here once real market data has landed. OnMicroSnipe is a no-op
	// once a position is already open, so this is safe on every INITIAL run.
	if task.Stage == stage.Initial && w.traders.Paper != nil {
		if err := w.traders.Paper.OnMicroSnipe(token, snap.Price, snap.Liquidity, now); err != nil {
			log.Warn().Err(err).Msg("micro-snipe entry failed")
		}
	}

	w.routeToTraders(ctx, token, sig, snap, isRug, now, log)

	threshold, hasThreshold := stage.PruneThreshold(task.Stage)
	if hasThreshold && primaryScore < threshold {
		log.Info().Int("score", primaryScore).Int("threshold", threshold).Msg("pruned: score below stage threshold")
		return nil
	}

	return w.enqueueNext(ctx, task.Address, task.Stage, token.DiscoveredAt, task.PreScan, primaryScore, log)
}

// routeToTraders hands the stage's signal and freshest market data to the
// paper and (if enabled) real traders. OnSignal is a no-op for a
// non-actionable signal or a position already fully open; UpdateForToken is
// a no-op when no position is open, so both are safe to call unconditionally
// on every stage, open or not.
func (w *Worker) routeToTraders(ctx context.Context, token domain.Token, sig domain.Signal, snap domain.Snapshot, isRug bool, now time.Time, log zerolog.Logger) {
	sc := trading.SignalContext{
		Token:                   token,
		Signal:                  sig,
		CurrentPrice:            snap.Price,
		LiquidityUSD:            snap.Liquidity,
		IsRug:                   isRug,
		LiquidityRemovedAtEntry: snap.LPRemovedPct >= 30,
		Now:                     now,
	}
	uc := trading.UpdateContext{
		CurrentPrice: snap.Price,
		LiquidityUSD: snap.Liquidity,
		IsRug:        isRug,
		Now:          now,
	}

	if w.traders.Paper != nil {
		if err := w.traders.Paper.OnSignal(sc); err != nil {
			log.Error().Err(err).Msg("paper OnSignal failed")
		}
		if err := w.traders.Paper.UpdateForToken(token, uc); err != nil {
			log.Error().Err(err).Msg("paper position update failed")
		}
	}
	if w.cfg.RealTradingEnabled && w.traders.Real != nil {
		if err := w.traders.Real.OnSignal(ctx, sc); err != nil {
			log.Error().Err(err).Msg("real OnSignal failed")
		}
		if err := w.traders.Real.UpdateForToken(ctx, token, token.Address, uc); err != nil {
			log.Error().Err(err).Msg("real position update failed")
		}
	}
}

func ruleNames(fired []signals.FiredRule) []string {
	names := make([]string, 0, len(fired))
	for _, f := range fired {
		names = append(names, f.Name)
	}
	return names
}
