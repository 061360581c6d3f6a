package queue

import (
	"sort"
	"testing"
	"time"

	"solsentinel/internal/domain"
	"solsentinel/internal/stage"
)

// TestSortScoreOrdering is spec §8 scenario S6: migration first, then
// normal-priority non-PRE_SCAN stages, then normal-priority PRE_SCAN,
// FIFO by scheduled time within a bucket.
func TestSortScoreOrdering(t *testing.T) {
	base := time.Unix(0, 0)
	migration := domain.EnrichmentTask{Address: "m", Stage: stage.Min5, Priority: domain.PriorityMigration, ScheduledAt: base.Add(100 * time.Second)}
	normalInitial := domain.EnrichmentTask{Address: "a", Stage: stage.Initial, Priority: domain.PriorityNormal, ScheduledAt: base.Add(50 * time.Second)}
	normalPreScan := domain.EnrichmentTask{Address: "b", Stage: stage.PreScan, Priority: domain.PriorityNormal, ScheduledAt: base.Add(40 * time.Second)}

	// Lowest sort_score pops first (Pop/ZRANGEBYSCORE picks the minimum
	// among ready tasks): priority=0 migrations score far below priority=1
	// normal tasks, and within priority=1, PRE_SCAN's stage_bucket=1 term
	// pushes its score above every non-PRE_SCAN stage.
	tasks := []domain.EnrichmentTask{normalPreScan, migration, normalInitial}
	sort.Slice(tasks, func(i, j int) bool { return SortScore(tasks[i]) < SortScore(tasks[j]) })

	if tasks[0].Address != "m" {
		t.Fatalf("want migration popped first, got %s", tasks[0].Address)
	}
	if tasks[1].Address != "a" {
		t.Fatalf("want normal INITIAL popped second, got %s", tasks[1].Address)
	}
	if tasks[2].Address != "b" {
		t.Fatalf("want normal PRE_SCAN popped last, got %s", tasks[2].Address)
	}
}

func TestSortScoreFIFOWithinBucket(t *testing.T) {
	base := time.Unix(1000, 0)
	earlier := domain.EnrichmentTask{Address: "e", Stage: stage.Initial, Priority: domain.PriorityNormal, ScheduledAt: base}
	later := domain.EnrichmentTask{Address: "l", Stage: stage.Initial, Priority: domain.PriorityNormal, ScheduledAt: base.Add(time.Minute)}
	if SortScore(earlier) >= SortScore(later) {
		t.Fatal("earlier-scheduled same-bucket task must sort before a later one (lower score pops first)")
	}
}

func TestSortScorePreScanStarvesBehindNonPreScan(t *testing.T) {
	now := time.Now()
	preScan := domain.EnrichmentTask{Address: "p", Stage: stage.PreScan, Priority: domain.PriorityNormal, ScheduledAt: now.Add(-time.Hour)}
	initial := domain.EnrichmentTask{Address: "i", Stage: stage.Initial, Priority: domain.PriorityNormal, ScheduledAt: now}
	if SortScore(preScan) <= SortScore(initial) {
		t.Fatal("PRE_SCAN must sort behind (higher score than) a same-priority non-PRE_SCAN stage even when scheduled much earlier")
	}
}

func TestMaxReadyScoreCoversGraceWindow(t *testing.T) {
	now := time.Now()
	readyAtGraceEdge := domain.EnrichmentTask{Address: "g", Stage: stage.Initial, Priority: domain.PriorityNormal, ScheduledAt: now.Add(readyGrace - time.Second)}
	if SortScore(readyAtGraceEdge) > maxReadyScore(now) {
		t.Fatal("a task scheduled within the grace window must not exceed the ready-score ceiling")
	}
}
