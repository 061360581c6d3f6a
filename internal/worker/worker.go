// Package worker implements the enrichment pipeline's central orchestrator:
// it pulls tasks off the persistent queue, dispatches PRE_SCAN's mint/sell
// checks or a normal stage's concurrent data fetch, persists the resulting
// snapshot/security/outcome rows, computes both score variants and the
// signal, routes the result to the paper and real traders, and enqueues the
// next stage (spec §4.3). Constructor-injected dependencies and
// structured-at-the-call-site logging follow the teacher's repository/service
// shape (internal/modules/portfolio/position_repository.go,
// trader-go/internal/services/trade_execution_service.go); the concurrent
// per-task worker pool is grounded on
// trader-go/internal/modules/evaluation/worker_pool.go, adapted from a
// batch fan-out to a continuous pull loop since the queue itself is the work
// source rather than a fixed input slice.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solsentinel/internal/config"
	"solsentinel/internal/creatorprofile"
	"solsentinel/internal/domain"
	"solsentinel/internal/persistence"
	"solsentinel/internal/providers"
	"solsentinel/internal/queue"
	"solsentinel/internal/risk"
	"solsentinel/internal/stage"
	"solsentinel/internal/trading"
)

// Chain is the only chain this pipeline enriches (spec §1 Non-goals exclude
// multi-chain support).
const Chain = "sol"

// Providers bundles every external data contract the worker consumes. A nil
// field is tolerated: the corresponding fetch is skipped and its enrichctx
// fields stay zero-valued, which scoring and signals already treat as
// "unknown" rather than "safe" (spec §4.4/§4.5).
type Providers struct {
	MintRPC     providers.MintRPC
	SwapQuote   providers.SwapQuote
	TokenInfo   providers.TokenInfoProvider
	Security    providers.SecurityProvider
	Holders     providers.HoldersProvider
	AltDex      providers.AltDexPriceProvider
	Aggregator  providers.AggregatorProvider
	Candles     providers.CandlesProvider
}

// Repositories bundles the persistence layer the worker writes through.
type Repositories struct {
	Tokens    *persistence.TokenRepository
	Snapshots *persistence.SnapshotRepository
	Security  *persistence.SecurityRepository
	Outcomes  *persistence.OutcomeRepository
	Creators  *persistence.CreatorRepository
	Signals   *persistence.SignalRepository
	Settings  *persistence.SettingsRepository
}

// Traders bundles the position-lifecycle managers a stage result is routed
// to. Real may be nil (di.Wire never builds one); the worker skips it then.
type Traders struct {
	Paper *trading.PaperTrader
	Real  *trading.RealTrader
}

// Worker ties the queue, providers, persistence, scoring, signals, and
// traders together for one enrichment task at a time. A Pool runs many
// Workers concurrently against the same Queue.
type Worker struct {
	queue    *queue.Queue
	repos    Repositories
	prov     Providers
	traders  Traders
	creators *creatorprofile.Updater
	cfg      config.Config
	log      zerolog.Logger
}

func New(q *queue.Queue, repos Repositories, prov Providers, traders Traders, cfg config.Config, log zerolog.Logger) *Worker {
	return &Worker{
		queue:    q,
		repos:    repos,
		prov:     prov,
		traders:  traders,
		creators: creatorprofile.NewUpdater(repos.Creators),
		cfg:      cfg,
		log:      log.With().Str("component", "worker").Logger(),
	}
}

// Process dispatches a single dequeued task to its stage handler.
func (w *Worker) Process(ctx context.Context, task domain.EnrichmentTask) error {
	log := w.log.With().Str("address", task.Address).Str("stage", string(task.Stage)).Logger()

	if task.Stage == stage.PreScan {
		return w.processPreScan(ctx, task, log)
	}
	return w.processStage(ctx, task, log)
}

// clampRiskBoost keeps a risk boost in [0, 100], matching solanaparse.RiskBoost's range.
func clampRiskBoost(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// priceFromQuote derives an implied unit price from a swap quote, used when
// no market-data fetch has landed yet (PRE_SCAN's micro-snipe).
func priceFromQuote(q providers.Quote) decimal.Decimal {
	if q.InputAmount.Sign() <= 0 || q.OutputAmount.Sign() <= 0 {
		return decimal.Zero
	}
	return q.InputAmount.Div(q.OutputAmount)
}

func nowOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
