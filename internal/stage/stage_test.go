package stage

import (
	"testing"
	"time"
)

func TestNextOrdersAllTwelveStages(t *testing.T) {
	got := []Stage{PreScan}
	cur := PreScan
	for {
		n, ok := Next(cur)
		if !ok {
			break
		}
		got = append(got, n)
		cur = n
	}
	want := []Stage{PreScan, Initial, Min2, Min5, Min10, Min15, Min30, Hour1, Hour2, Hour4, Hour8, Hour24}
	if len(got) != len(want) {
		t.Fatalf("got %d stages, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestNextTerminalAtHour24(t *testing.T) {
	if _, ok := Next(Hour24); ok {
		t.Fatal("HOUR_24 must have no next stage")
	}
}

func TestNextUnknownStage(t *testing.T) {
	if _, ok := Next("NOT_A_STAGE"); ok {
		t.Fatal("unknown stage must not have a next stage")
	}
}

func TestGetOffsets(t *testing.T) {
	cases := map[Stage]time.Duration{
		PreScan: 5 * time.Second,
		Initial: 8 * time.Second,
		Min2:    15 * time.Second,
		Min5:    5 * time.Minute,
		Hour24:  1440 * time.Minute,
	}
	for s, want := range cases {
		d, ok := Get(s)
		if !ok {
			t.Fatalf("stage %s not found", s)
		}
		if d.Offset != want {
			t.Errorf("stage %s offset: got %v, want %v", s, d.Offset, want)
		}
	}
}

func TestPruneThresholds(t *testing.T) {
	if th, ok := PruneThreshold(Min5); !ok || th != 20 {
		t.Errorf("MIN_5 prune threshold: got (%d,%v), want (20,true)", th, ok)
	}
	if th, ok := PruneThreshold(Min15); !ok || th != 25 {
		t.Errorf("MIN_15 prune threshold: got (%d,%v), want (25,true)", th, ok)
	}
	if _, ok := PruneThreshold(Initial); ok {
		t.Error("INITIAL must have no prune threshold")
	}
}

func TestStalenessLimitExplicitTable(t *testing.T) {
	if got := StalenessLimit(PreScan); got != 5*time.Minute {
		t.Errorf("PRE_SCAN staleness: got %v, want 5m", got)
	}
	if got := StalenessLimit(Initial); got != 15*time.Minute {
		t.Errorf("INITIAL staleness: got %v, want 15m", got)
	}
	// MIN_2 falls under the explicit-table-only "others" rule: offset*3.
	if got := StalenessLimit(Min2); got != 45*time.Second {
		t.Errorf("MIN_2 staleness: got %v, want 45s (offset*3)", got)
	}
	if got := StalenessLimit(Hour1); got != 180*time.Minute {
		t.Errorf("HOUR_1 staleness: got %v, want 180m (offset*3)", got)
	}
}

func TestAllReturnsCopyNotAlias(t *testing.T) {
	a := All()
	a[0].Stage = "MUTATED"
	b := All()
	if b[0].Stage != PreScan {
		t.Fatal("All() must return a defensive copy, not the shared backing array")
	}
}
