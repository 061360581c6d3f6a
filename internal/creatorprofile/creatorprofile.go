// Package creatorprofile aggregates a creator address's launch history into
// the risk figures persisted on domain.CreatorProfile and consumed by the
// signals context (spec §3). Statistics are computed from scratch on every
// refresh rather than maintained incrementally, since a creator's launch
// count stays small enough that a full recompute is cheap, and it avoids
// drift between the persisted aggregate and its underlying rows.
package creatorprofile

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"solsentinel/internal/domain"
	"solsentinel/internal/persistence"
)

// recentWindow bounds how many of a creator's most recent launches the
// funding-trace-risk figure considers, so one old bad launch doesn't
// permanently brand an otherwise-reformed address.
const recentWindow = 5

// successMultiplier is the peak-multiplier floor a launch must clear,
// without having rugged, to count as a success in the aggregate profile.
const successMultiplier = 2.0

// Updater recomputes and persists a creator's profile from their full
// on-chain launch history.
type Updater struct {
	creators *persistence.CreatorRepository
}

func NewUpdater(creators *persistence.CreatorRepository) *Updater {
	return &Updater{creators: creators}
}

// Refresh reloads every launch outcome attributed to creatorAddress,
// recomputes the aggregate profile, and persists it. Called whenever a
// token's outcome changes for a creator address — most commonly the
// worker's HOUR_24 finalize, but any earlier rug detection qualifies too.
func (u *Updater) Refresh(creatorAddress string) (domain.CreatorProfile, error) {
	outcomes, err := u.creators.LaunchOutcomes(creatorAddress)
	if err != nil {
		return domain.CreatorProfile{}, err
	}

	profile := domain.CreatorProfile{CreatorAddress: creatorAddress, TotalLaunches: len(outcomes)}
	if len(outcomes) == 0 {
		return profile, u.creators.Upsert(profile)
	}

	multipliers := make([]float64, len(outcomes))
	for i, o := range outcomes {
		multipliers[i] = o.PeakMultiplier
		if o.IsRug {
			profile.RugCount++
		} else if o.PeakMultiplier >= successMultiplier {
			profile.SuccessCount++
		}
	}
	profile.AvgPeakMultiplier = stat.Mean(multipliers, nil)

	rugRate := float64(profile.RugCount) / float64(profile.TotalLaunches)
	spread := 0.0
	if len(multipliers) > 1 {
		spread = stat.StdDev(multipliers, nil)
	}
	profile.RiskScore = riskScore(rugRate, spread, profile.TotalLaunches)
	profile.FundingTraceRisk = recentRugConcentration(outcomes)

	return profile, u.creators.Upsert(profile)
}

// riskScore bands a creator's lifetime rug rate, launch volume, and
// peak-multiplier volatility into a 0-100 figure. A high rug rate with
// several launches behind it is the strongest signal of a serial scam
// operation; a single launch never reaches the top band regardless of
// outcome, so one bad debut doesn't permanently max out a fresh address.
func riskScore(rugRate, peakMultiplierStdDev float64, totalLaunches int) int {
	base := rugRate * 80
	switch {
	case totalLaunches >= 3:
		base += 20
	case totalLaunches == 2:
		base += 10
	}
	base += math.Min(peakMultiplierStdDev, 10)
	return clamp(int(math.Round(base)), 0, 100)
}

// recentRugConcentration is the fraction of a creator's most recent
// launches (bounded by recentWindow) that rugged, scaled to 0-100. Unlike
// RiskScore's full-history rug rate, it weights recent behavior only, so it
// reacts faster to an address that has just started (or just stopped)
// rugging its own launches.
func recentRugConcentration(outcomes []persistence.LaunchOutcome) float64 {
	sorted := make([]persistence.LaunchOutcome, len(outcomes))
	copy(sorted, outcomes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DiscoveredAt.After(sorted[j].DiscoveredAt) })

	n := len(sorted)
	if n > recentWindow {
		n = recentWindow
	}
	if n == 0 {
		return 0
	}

	rugs := 0
	for _, o := range sorted[:n] {
		if o.IsRug {
			rugs++
		}
	}
	return float64(rugs) / float64(n) * 100
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
