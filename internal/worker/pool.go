package worker

import (
	"context"
	"sync"
)

// Pool runs n Workers concurrently, each pulling tasks from the same Queue.
// Fan-out/wait-group shape is grounded on
// trader-go/internal/modules/evaluation/worker_pool.go, adapted from a
// fixed-batch distribution (known sequence count up front) to a continuous
// pull loop, since Queue.Get itself blocks until a task is ready.
type Pool struct {
	worker *Worker
	n      int
}

// NewPool builds a pool of n concurrent workers around the same *Worker.
// n <= 0 falls back to a single worker so the pipeline still makes progress
// under a bad config value instead of never dequeuing anything.
func NewPool(w *Worker, n int) *Pool {
	if n <= 0 {
		n = 1
	}
	return &Pool{worker: w, n: n}
}

// Run blocks until ctx is cancelled, then waits for every in-flight task to
// finish before returning.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(p.n)
	for i := 0; i < p.n; i++ {
		go func() {
			defer wg.Done()
			p.runOne(ctx)
		}()
	}
	wg.Wait()
}

func (p *Pool) runOne(ctx context.Context) {
	log := p.worker.log
	for {
		task, err := p.worker.queue.Get(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("failed to dequeue task")
			continue
		}
		if err := p.worker.Process(ctx, *task); err != nil {
			log.Error().Err(err).Str("address", task.Address).Str("stage", string(task.Stage)).Msg("task processing failed")
		}
	}
}
