// Package queue implements the persistent enrichment queue: a Redis-backed
// priority queue (sorted set + hash) with an in-memory fallback, dedup by
// (address, stage), restart recovery, and staleness purge (spec §4.2).
package queue

import (
	"time"

	"solsentinel/internal/domain"
	"solsentinel/internal/stage"
)

// Ordering constants: P >> S >> max(scheduled_at), enforcing three-tier
// ordering (migration first, then non-PRE_SCAN stages ahead of PRE_SCAN,
// then FIFO by scheduled time).
const (
	priorityWeight = int64(1_000_000_000_000) // P
	stageWeight    = int64(500_000_000_000)   // S
)

// SortScore computes the single numeric ordering key for a task.
func SortScore(task domain.EnrichmentTask) int64 {
	var bucket int64
	if task.Stage == stage.PreScan {
		bucket = 1
	}
	return int64(task.Priority)*priorityWeight + bucket*stageWeight + task.ScheduledAt.Unix()
}

// readyGrace is how far into the future a task's scheduled time may be and
// still be considered "ready" at pop time.
const readyGrace = 2 * time.Second

// maxReadyScore computes the score ceiling covering all currently ready
// normal-priority tasks (priority=1, scheduled_at <= now+grace). It only
// excludes not-yet-due PRE_SCAN tasks of normal priority: migration and
// non-PRE_SCAN tasks score below it whatever their scheduled_at.
func maxReadyScore(now time.Time) int64 {
	return int64(domain.PriorityNormal)*priorityWeight + stageWeight + now.Add(readyGrace).Unix()
}
