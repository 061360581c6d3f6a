package risk

import (
	"testing"
	"time"
)

func TestCircuitBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b := NewCircuitBreaker(3, time.Hour)
	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if b.IsTripped() {
			t.Fatalf("breaker tripped after only %d failures, want 3", i+1)
		}
	}
	b.RecordFailure()
	if !b.IsTripped() {
		t.Fatal("breaker must trip on the 3rd consecutive failure")
	}
}

func TestCircuitBreakerSuccessResetsConsecutiveCount(t *testing.T) {
	b := NewCircuitBreaker(3, time.Hour)
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	if b.IsTripped() {
		t.Fatal("a success in between must reset the consecutive-failure streak")
	}
}

func TestCircuitBreakerLazyResetAfterCooldown(t *testing.T) {
	b := NewCircuitBreaker(1, 10*time.Millisecond)
	b.RecordFailure()
	if !b.IsTripped() {
		t.Fatal("breaker must be tripped immediately after threshold failure")
	}
	time.Sleep(20 * time.Millisecond)
	if b.IsTripped() {
		t.Fatal("breaker must lazily reset to OK once cooldown has elapsed")
	}
}

func TestCircuitBreakerStatsCountTotals(t *testing.T) {
	b := NewCircuitBreaker(5, time.Hour)
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	s := b.Snapshot()
	if s.TotalFailures != 2 {
		t.Errorf("total failures: got %d, want 2", s.TotalFailures)
	}
	if s.TotalSuccesses != 1 {
		t.Errorf("total successes: got %d, want 1", s.TotalSuccesses)
	}
	if s.ConsecutiveFailures != 1 {
		t.Errorf("consecutive failures: got %d, want 1", s.ConsecutiveFailures)
	}
}

func TestIsUrgentBypassesBreaker(t *testing.T) {
	urgent := []string{"rug", "stop_loss", "early_stop", "timeout"}
	for _, r := range urgent {
		if !IsUrgent(r) {
			t.Errorf("%q must be urgent", r)
		}
	}
	if IsUrgent("take_profit") {
		t.Error("take_profit must not be treated as urgent")
	}
}
