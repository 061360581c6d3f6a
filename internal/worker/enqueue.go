package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solsentinel/internal/domain"
	"solsentinel/internal/stage"
)

// enqueueNext schedules the stage following current for address, offset from
// the token's discovery time per the fixed stage schedule (spec §4.2). A
// terminal current stage (HOUR_24) is a no-op. preScan, when non-nil, is
// PRE_SCAN's carried-forward result for INITIAL to consume.
func (w *Worker) enqueueNext(ctx context.Context, address string, current stage.Stage, discoveredAt time.Time, preScan *domain.PreScanResult, prevScore int, log zerolog.Logger) error {
	next, ok := stage.Next(current)
	if !ok {
		return nil
	}
	def, ok := stage.Get(next)
	if !ok {
		return nil
	}

	task := domain.EnrichmentTask{
		Address:     address,
		Stage:       next,
		ScheduledAt: discoveredAt.Add(def.Offset),
		Priority:    domain.PriorityNormal,
		PrevScore:   prevScore,
		PreScan:     preScan,
	}
	if err := w.queue.Put(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s for %s: %w", next, address, err)
	}
	log.Debug().Str("next_stage", string(next)).Time("scheduled_at", task.ScheduledAt).Msg("enqueued next stage")
	return nil
}
