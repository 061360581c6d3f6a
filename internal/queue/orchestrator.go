package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"solsentinel/internal/domain"
)

// pollInterval is how often a blocking Get retries when nothing is ready.
const pollInterval = 250 * time.Millisecond

// Queue is the enrichment pipeline's single entry point onto the
// persistent priority queue. It wraps a primary Store (Redis) and an
// in-memory fallback, switching to the fallback on any ErrUnavailable and
// reconciling back onto the primary once it recovers (spec §4.2).
type Queue struct {
	primary  Store
	fallback Store
	log      zerolog.Logger

	onFallback atomic.Bool
}

func NewQueue(primary, fallback Store, log zerolog.Logger) *Queue {
	return &Queue{primary: primary, fallback: fallback, log: log.With().Str("component", "queue").Logger()}
}

func (q *Queue) active() Store {
	if q.onFallback.Load() {
		return q.fallback
	}
	return q.primary
}

// Put upserts a task keyed on (address, stage). A primary-store outage
// demotes the queue to its in-memory fallback for the duration of the
// outage.
func (q *Queue) Put(ctx context.Context, task domain.EnrichmentTask) error {
	if err := q.active().Put(ctx, task); err != nil {
		if errors.Is(err, ErrUnavailable) && !q.onFallback.Load() {
			q.demote(ctx, err)
			return q.fallback.Put(ctx, task)
		}
		return err
	}
	return nil
}

// Get blocks, polling at pollInterval, until a task is ready or ctx is
// cancelled.
func (q *Queue) Get(ctx context.Context) (*domain.EnrichmentTask, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		task, err := q.active().Pop(ctx, time.Now())
		if err != nil {
			if errors.Is(err, ErrUnavailable) && !q.onFallback.Load() {
				q.demote(ctx, err)
				continue
			}
			return nil, err
		}
		if task != nil {
			return task, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (q *Queue) Size(ctx context.Context) (int64, error) {
	return q.active().Size(ctx)
}

// PurgeStale removes tasks older than their stage's staleness limit from
// whichever store is currently active.
func (q *Queue) PurgeStale(ctx context.Context, now time.Time) (int, error) {
	return q.active().PurgeStale(ctx, now)
}

// Reconcile attempts to bring the queue back onto its primary store: it
// pings the primary, and if healthy, drains every task currently sitting
// in the fallback store back into it. Intended to be called periodically
// by the scheduler's sweep jobs.
func (q *Queue) Reconcile(ctx context.Context) error {
	if !q.onFallback.Load() {
		return nil
	}
	pinger, ok := q.primary.(interface{ Ping(context.Context) error })
	if ok {
		if err := pinger.Ping(ctx); err != nil {
			return err
		}
	}

	tasks, err := q.fallback.All(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if err := q.primary.Put(ctx, t); err != nil {
			return err
		}
	}
	if mem, ok := q.fallback.(*MemoryStore); ok {
		mem.Clear()
	}
	q.onFallback.Store(false)
	q.log.Info().Int("recovered_tasks", len(tasks)).Msg("queue reconciled back onto primary store")
	return nil
}

func (q *Queue) demote(ctx context.Context, cause error) {
	if q.onFallback.CompareAndSwap(false, true) {
		q.log.Warn().Err(cause).Msg("primary queue store unavailable, falling back to in-memory queue")
	}
	_ = ctx
}

// MigrateScores recomputes and rewrites the sort score of every queued
// task, for when the scoring weights (priorityWeight/stageWeight) change
// between restarts and existing entries need to resort under the new
// ordering.
func (q *Queue) MigrateScores(ctx context.Context) error {
	all, err := q.active().All(ctx)
	if err != nil {
		return err
	}
	for _, t := range all {
		if err := q.active().Put(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) Close() error {
	var err error
	if e := q.primary.Close(); e != nil {
		err = e
	}
	if e := q.fallback.Close(); e != nil {
		err = e
	}
	return err
}
