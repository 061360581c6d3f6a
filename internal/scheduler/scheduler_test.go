package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solsentinel/internal/persistence"
	"solsentinel/internal/queue"
	sentineltesting "solsentinel/internal/testing"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	db, cleanup := sentineltesting.NewTestDB(t, "sentinel")
	t.Cleanup(cleanup)

	q := queue.NewQueue(queue.NewMemoryStore(), queue.NewMemoryStore(), zerolog.Nop())
	tokens := persistence.NewTokenRepository(db.Conn(), zerolog.Nop())
	signals := persistence.NewSignalRepository(db.Conn(), zerolog.Nop())

	return New(q, tokens, signals, Traders{}, nil, 14, zerolog.Nop())
}

func TestStartAndStopRegistersJobsWithoutError(t *testing.T) {
	s := newTestScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, "0 0 3 * * *"); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	s.Stop()
}

func TestStartSkipsBackupJobWhenBackupServiceNil(t *testing.T) {
	s := newTestScheduler(t)
	if s.backup != nil {
		t.Fatalf("expected nil backup service in this fixture")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, "invalid cron expression"); err != nil {
		t.Fatalf("Start should ignore an invalid backup cron when no backup service is configured, got: %v", err)
	}
	s.Stop()
}

func TestSweepStaleToleratesNilTraders(t *testing.T) {
	s := newTestScheduler(t)
	// Neither Paper nor Real is set; sweepStale must be a no-op, not a panic.
	s.sweepStale(context.Background())
}

func TestDecaySignalsRunsAgainstEmptyRepository(t *testing.T) {
	s := newTestScheduler(t)
	s.decaySignals()
}

func TestReconcileQueueRunsAgainstEmptyQueue(t *testing.T) {
	s := newTestScheduler(t)
	s.reconcileQueue(context.Background())
}

func TestSignalDecayAgeIsADay(t *testing.T) {
	if signalDecayAge != 24*time.Hour {
		t.Fatalf("expected signalDecayAge to be 24h, got %v", signalDecayAge)
	}
}
