package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"solsentinel/internal/domain"
)

// MemoryStore is the in-process fallback used when Redis is unreachable
// (spec §4.2). It implements the same dedup-by-key and score-ordering
// semantics; state is lost on restart, which is acceptable since the
// primary store is expected to recover in normal operation and
// Queue.Reconcile moves the tasks held here back onto Redis once it comes
// back.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]domain.EnrichmentTask
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]domain.EnrichmentTask)}
}

func (s *MemoryStore) Put(_ context.Context, task domain.EnrichmentTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.Key()] = task
	return nil
}

func (s *MemoryStore) Pop(_ context.Context, now time.Time) (*domain.EnrichmentTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ceiling := maxReadyScore(now)
	deadline := now.Add(readyGrace)
	var bestKey string
	var bestScore int64
	found := false
	for k, t := range s.tasks {
		// maxReadyScore alone only bounds normal-priority PRE_SCAN
		// tasks: a migration task's priority term drops to zero, and a
		// non-PRE_SCAN task's stage bucket does, so their scores clear
		// the ceiling regardless of how far out ScheduledAt is. Check
		// the schedule directly so every task gets the same ~2s grace.
		if t.ScheduledAt.After(deadline) {
			continue
		}
		score := SortScore(t)
		if score > ceiling {
			continue
		}
		if !found || score < bestScore {
			bestKey, bestScore = k, score
			found = true
		}
	}
	if !found {
		return nil, nil
	}
	task := s.tasks[bestKey]
	delete(s.tasks, bestKey)
	return &task, nil
}

func (s *MemoryStore) Size(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.tasks)), nil
}

func (s *MemoryStore) All(_ context.Context) ([]domain.EnrichmentTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EnrichmentTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return SortScore(out[i]) < SortScore(out[j]) })
	return out, nil
}

func (s *MemoryStore) PurgeStale(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int
	for k, t := range s.tasks {
		if t.ScheduledAt.Before(stalenessDeadline(t.Stage, now)) {
			delete(s.tasks, k)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error { return nil }

// Clear empties the store. Used by Queue.Reconcile once every fallback
// task has been copied back onto the primary store.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]domain.EnrichmentTask)
}
