// Package stage defines the fixed enrichment-stage schedule: a 12-step
// sequence of named stages, each with an offset from discovery time, a set
// of abstract fetch classes, and an optional prune threshold. The schedule
// is a total function: every stage but the last maps to exactly one next
// stage.
package stage

import "time"

// Stage names a step in a token's enrichment lifecycle.
type Stage string

const (
	PreScan Stage = "PRE_SCAN"
	Initial Stage = "INITIAL"
	Min2    Stage = "MIN_2"
	Min5    Stage = "MIN_5"
	Min10   Stage = "MIN_10"
	Min15   Stage = "MIN_15"
	Min30   Stage = "MIN_30"
	Hour1   Stage = "HOUR_1"
	Hour2   Stage = "HOUR_2"
	Hour4   Stage = "HOUR_4"
	Hour8   Stage = "HOUR_8"
	Hour24  Stage = "HOUR_24"
)

// Fetch names one abstract data-fetch class a stage requires.
type Fetch string

const (
	FetchMintParse   Fetch = "mint_parse"
	FetchSellSim     Fetch = "sell_sim"
	FetchFullInfo    Fetch = "full_info"
	FetchInfo        Fetch = "info"
	FetchDeepInfo    Fetch = "deep_info"
	FetchSecurity    Fetch = "security"
	FetchTopHolders  Fetch = "top_holders"
	FetchSmartMoney  Fetch = "smart_money"
	FetchMetadata    Fetch = "metadata"
	FetchQuickPrice  Fetch = "quick_price"
	FetchAltDex      Fetch = "alt_dex"
	FetchTrades      Fetch = "trades"
	FetchCandles     Fetch = "candles"
)

// Definition describes one stage's schedule entry.
type Definition struct {
	Stage          Stage
	Offset         time.Duration
	Fetches        []Fetch
	PruneThreshold *int // nil = no prune check for this stage
}

// order is the canonical ordered schedule. Index order is authoritative for
// Next(); do not reorder without updating the next-stage derivation.
var order = []Definition{
	{Stage: PreScan, Offset: 5 * time.Second, Fetches: []Fetch{FetchMintParse, FetchSellSim}},
	{Stage: Initial, Offset: 8 * time.Second, Fetches: []Fetch{FetchFullInfo, FetchSecurity, FetchTopHolders, FetchSmartMoney, FetchMetadata}},
	{Stage: Min2, Offset: 15 * time.Second, Fetches: []Fetch{FetchQuickPrice}},
	{Stage: Min5, Offset: 5 * time.Minute, Fetches: []Fetch{FetchTopHolders, FetchAltDex, FetchSmartMoney, FetchTrades, FetchCandles}, PruneThreshold: intPtr(20)},
	{Stage: Min10, Offset: 10 * time.Minute, Fetches: []Fetch{FetchAltDex}},
	{Stage: Min15, Offset: 15 * time.Minute, Fetches: []Fetch{FetchDeepInfo, FetchTopHolders, FetchSmartMoney, FetchCandles, FetchTrades}, PruneThreshold: intPtr(25)},
	{Stage: Min30, Offset: 30 * time.Minute, Fetches: []Fetch{FetchInfo, FetchSecurity}},
	{Stage: Hour1, Offset: 60 * time.Minute, Fetches: []Fetch{FetchTopHolders, FetchAltDex, FetchSmartMoney, FetchCandles, FetchTrades}},
	{Stage: Hour2, Offset: 120 * time.Minute, Fetches: []Fetch{FetchAltDex}},
	{Stage: Hour4, Offset: 240 * time.Minute, Fetches: []Fetch{FetchInfo, FetchSecurity, FetchCandles}},
	{Stage: Hour8, Offset: 480 * time.Minute, Fetches: []Fetch{FetchAltDex}},
	{Stage: Hour24, Offset: 1440 * time.Minute, Fetches: []Fetch{FetchInfo, FetchSecurity}},
}

var byStage = func() map[Stage]int {
	m := make(map[Stage]int, len(order))
	for i, d := range order {
		m[d.Stage] = i
	}
	return m
}()

func intPtr(v int) *int { return &v }

// Get returns the schedule definition for a stage and whether it exists.
func Get(s Stage) (Definition, bool) {
	i, ok := byStage[s]
	if !ok {
		return Definition{}, false
	}
	return order[i], true
}

// Next returns the stage that follows s, or ("", false) if s is terminal
// (HOUR_24) or unknown.
func Next(s Stage) (Stage, bool) {
	i, ok := byStage[s]
	if !ok {
		return "", false
	}
	if i+1 >= len(order) {
		return "", false
	}
	return order[i+1].Stage, true
}

// All returns the schedule in canonical order.
func All() []Definition {
	out := make([]Definition, len(order))
	copy(out, order)
	return out
}

// PruneThreshold returns the stage's prune threshold and whether one is
// defined. A stage with no threshold never prunes.
func PruneThreshold(s Stage) (int, bool) {
	d, ok := Get(s)
	if !ok || d.PruneThreshold == nil {
		return 0, false
	}
	return *d.PruneThreshold, true
}

// StalenessLimit returns the age beyond which a pending task for this stage
// is considered stale and purged on restart recovery. PRE_SCAN and INITIAL
// use fixed overrides; every other stage uses offset*3 — including MIN_2,
// per the explicit-table-only reading of the open question around the
// multiplier rule.
func StalenessLimit(s Stage) time.Duration {
	switch s {
	case PreScan:
		return 5 * time.Minute
	case Initial:
		return 15 * time.Minute
	default:
		d, ok := Get(s)
		if !ok {
			return 0
		}
		return d.Offset * 3
	}
}
