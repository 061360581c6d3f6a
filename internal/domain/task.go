package domain

import (
	"time"

	"solsentinel/internal/stage"
)

// TaskPriority is the queue priority tier. Lower sorts first.
type TaskPriority int

const (
	PriorityMigration TaskPriority = 0
	PriorityNormal    TaskPriority = 1
)

// MintInfo is the parsed result of the PRE_SCAN mint-account fetch. See
// internal/providers for the fetch contract.
type MintInfo struct {
	MintAuthority   *string
	FreezeAuthority *string
	ParseError      *string
	Supply          uint64
	Decimals        uint8
	IsToken2022     bool
	Extensions      []string
	Dangerous       []string
	Risky           []string
}

// SellSimResult is the outcome of the PRE_SCAN sell-simulation quote.
type SellSimResult struct {
	Error        *string
	Sellable     bool
	NoRoute      bool
	PriceImpact  float64
}

// PreScanResult carries PRE_SCAN's output forward to INITIAL through the
// task body.
type PreScanResult struct {
	Mint      MintInfo
	SellSim   SellSimResult
	RiskBoost int
}

// EnrichmentTask is a single unit of work in the persistent enrichment
// queue. Equality key for dedup is (Address, Stage).
type EnrichmentTask struct {
	PreScan     *PreScanResult
	Address     string
	Stage       stage.Stage
	ScheduledAt time.Time
	Priority    TaskPriority
	PrevScore   int
}

// Key returns the dedup key for this task.
func (t EnrichmentTask) Key() string {
	return t.Address + ":" + string(t.Stage)
}
