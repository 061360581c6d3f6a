package reliability

import "testing"

func TestParseArchiveTimestampRoundTrips(t *testing.T) {
	key := archivePrefix + "2026-03-01-153045.tar.gz"
	ts, ok := parseArchiveTimestamp(key)
	if !ok {
		t.Fatalf("expected key %q to parse", key)
	}
	if ts.Year() != 2026 || ts.Month() != 3 || ts.Day() != 1 {
		t.Fatalf("unexpected date: %v", ts)
	}
	if ts.Hour() != 15 || ts.Minute() != 30 || ts.Second() != 45 {
		t.Fatalf("unexpected time: %v", ts)
	}
}

func TestParseArchiveTimestampRejectsForeignKeys(t *testing.T) {
	cases := []string{
		"other-backup-2026-03-01-153045.tar.gz",
		archivePrefix + "2026-03-01-153045.zip",
		archivePrefix + "not-a-timestamp.tar.gz",
	}
	for _, key := range cases {
		if _, ok := parseArchiveTimestamp(key); ok {
			t.Errorf("expected key %q to be rejected", key)
		}
	}
}
