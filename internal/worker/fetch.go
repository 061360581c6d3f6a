package worker

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"solsentinel/internal/domain"
	"solsentinel/internal/providers"
	"solsentinel/internal/stage"
)

// topHoldersLimit is how many ranked holders a top_holders fetch requests.
const topHoldersLimit = 20

// stageData collects the raw results of one stage's concurrent fetch. Each
// field is written by exactly one goroutine in fetchStage, so no mutex is
// needed: the errgroup's Wait is the happens-before barrier before any field
// is read.
type stageData struct {
	TokenInfo          *providers.TokenInfoRecord
	Security           *domain.TokenSecurity
	Holders            []domain.TopHolderRow
	SmartWalletCount   int
	HoldersFetched     bool
	AltDexPrice        *decimal.Decimal
	AggregatorPrice    *decimal.Decimal
	AggregatorHoneypot bool
	Candles            []providers.Candle
}

func hasFetch(fetches []stage.Fetch, targets ...stage.Fetch) bool {
	for _, f := range fetches {
		for _, t := range targets {
			if f == t {
				return true
			}
		}
	}
	return false
}

// fetchStage runs every data fetch a stage's schedule requires concurrently,
// grounded on the teacher's channel/waitgroup worker-pool fan-out
// (trader-go/internal/modules/evaluation/worker_pool.go) but expressed with
// golang.org/x/sync/errgroup since each fetch is a distinct typed call rather
// than homogeneous job items. A single fetch's failure is logged and
// tolerated (spec §7): the context simply carries forward whatever the prior
// snapshot already had for that field.
func (w *Worker) fetchStage(ctx context.Context, mint string, fetches []stage.Fetch) (*stageData, error) {
	data := &stageData{}
	g, gctx := errgroup.WithContext(ctx)

	needTokenInfo := hasFetch(fetches, stage.FetchFullInfo, stage.FetchInfo, stage.FetchDeepInfo,
		stage.FetchQuickPrice, stage.FetchMetadata, stage.FetchTrades)
	needSecurity := hasFetch(fetches, stage.FetchSecurity)
	needHolders := hasFetch(fetches, stage.FetchTopHolders, stage.FetchSmartMoney)
	needAltDex := hasFetch(fetches, stage.FetchAltDex)
	needCandles := hasFetch(fetches, stage.FetchCandles)

	if needTokenInfo && w.prov.TokenInfo != nil {
		g.Go(func() error {
			info, err := w.prov.TokenInfo.GetTokenInfo(gctx, mint)
			if err != nil {
				w.log.Warn().Err(err).Str("mint", mint).Msg("token info fetch failed")
				return nil
			}
			data.TokenInfo = &info
			return nil
		})
	}
	if needSecurity && w.prov.Security != nil {
		g.Go(func() error {
			sec, err := w.prov.Security.GetSecurity(gctx, mint)
			if err != nil {
				w.log.Warn().Err(err).Str("mint", mint).Msg("security fetch failed")
				return nil
			}
			data.Security = &sec
			return nil
		})
	}
	if needHolders && w.prov.Holders != nil {
		g.Go(func() error {
			rows, smart, err := w.prov.Holders.GetTopHolders(gctx, mint, topHoldersLimit)
			if err != nil {
				w.log.Warn().Err(err).Str("mint", mint).Msg("top holders fetch failed")
				return nil
			}
			data.Holders = rows
			data.SmartWalletCount = smart
			data.HoldersFetched = true
			return nil
		})
	}
	if needAltDex && w.prov.AltDex != nil {
		g.Go(func() error {
			price, err := w.prov.AltDex.GetAltDexPrice(gctx, mint)
			if err != nil {
				w.log.Warn().Err(err).Str("mint", mint).Msg("alt-dex price fetch failed")
				return nil
			}
			data.AltDexPrice = &price
			return nil
		})
	}
	if needCandles && w.prov.Candles != nil {
		g.Go(func() error {
			candles, err := w.prov.Candles.GetCandles(gctx, mint, "1m", 60)
			if err != nil {
				w.log.Warn().Err(err).Str("mint", mint).Msg("candles fetch failed")
				return nil
			}
			data.Candles = candles
			return nil
		})
	}
	// The aggregator is a cross-check source (honeypot confirmation, price
	// manipulation detection) rather than a named schedule entry; it runs on
	// every normal stage when configured, independent of the fetch list.
	if w.prov.Aggregator != nil {
		g.Go(func() error {
			price, err := w.prov.Aggregator.GetAggregatorPrice(gctx, mint)
			if err == nil {
				data.AggregatorPrice = &price
			}
			honeypot, err := w.prov.Aggregator.IsHoneypot(gctx, mint)
			if err != nil {
				w.log.Warn().Err(err).Str("mint", mint).Msg("aggregator honeypot check failed")
				return nil
			}
			data.AggregatorHoneypot = honeypot
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch stage data for %s: %w", mint, err)
	}
	return data, nil
}
