package creatorprofile

import (
	"testing"
	"time"

	"solsentinel/internal/persistence"
)

func TestRiskScoreScalesWithRugRateAndVolume(t *testing.T) {
	low := riskScore(0, 0, 1)
	high := riskScore(1.0, 0, 5)
	if high <= low {
		t.Fatalf("a serial creator with a 100%% rug rate must score above a single clean launch, got %d <= %d", high, low)
	}
	if high > 100 || low < 0 {
		t.Fatalf("risk score must stay within [0,100], got low=%d high=%d", low, high)
	}
}

func TestRiskScoreSingleLaunchNeverMaxesOut(t *testing.T) {
	// A single rugged launch still gets the 80-point base rate, but never the
	// launch-volume bonus a repeat offender earns.
	score := riskScore(1.0, 0, 1)
	if score >= 100 {
		t.Fatalf("one launch must not reach the maximum risk score, got %d", score)
	}
}

func TestRecentRugConcentrationWeightsRecentLaunchesOnly(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	outcomes := []persistence.LaunchOutcome{
		{DiscoveredAt: base, IsRug: true},                           // old, outside window after 6 more are added
		{DiscoveredAt: base.Add(1 * time.Hour), IsRug: true},
		{DiscoveredAt: base.Add(2 * time.Hour), IsRug: false},
		{DiscoveredAt: base.Add(3 * time.Hour), IsRug: false},
		{DiscoveredAt: base.Add(4 * time.Hour), IsRug: false},
		{DiscoveredAt: base.Add(5 * time.Hour), IsRug: false},
		{DiscoveredAt: base.Add(6 * time.Hour), IsRug: false},
	}
	got := recentRugConcentration(outcomes)
	if got != 0 {
		t.Fatalf("the 5 most recent launches are all clean, want 0%%, got %.1f", got)
	}
}

func TestRecentRugConcentrationAllRugged(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	outcomes := []persistence.LaunchOutcome{
		{DiscoveredAt: base, IsRug: true},
		{DiscoveredAt: base.Add(time.Hour), IsRug: true},
	}
	if got := recentRugConcentration(outcomes); got != 100 {
		t.Fatalf("want 100%% concentration when every recent launch rugged, got %.1f", got)
	}
}

func TestRecentRugConcentrationEmptyHistory(t *testing.T) {
	if got := recentRugConcentration(nil); got != 0 {
		t.Fatalf("a creator with no launch history must score 0, got %.1f", got)
	}
}

func TestClampBounds(t *testing.T) {
	if clamp(-5, 0, 100) != 0 {
		t.Fatal("clamp must floor at lo")
	}
	if clamp(150, 0, 100) != 100 {
		t.Fatal("clamp must ceiling at hi")
	}
	if clamp(42, 0, 100) != 42 {
		t.Fatal("clamp must pass through in-range values")
	}
}
