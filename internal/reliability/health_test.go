package reliability

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"solsentinel/internal/queue"
	sentineltesting "solsentinel/internal/testing"
)

func TestHealthServiceCheckReportsDBOK(t *testing.T) {
	db, cleanup := sentineltesting.NewTestDB(t, "sentinel")
	defer cleanup()

	q := queue.NewQueue(queue.NewMemoryStore(), queue.NewMemoryStore(), zerolog.Nop())
	svc := NewHealthService(db, q, zerolog.Nop())

	status := svc.Check(context.Background())
	if !status.DBOK {
		t.Fatalf("expected DBOK true, got status %+v", status)
	}
	if !status.Healthy {
		t.Fatalf("expected Healthy true, got status %+v", status)
	}
	if status.UptimeSeconds < 0 {
		t.Fatalf("expected non-negative uptime, got %f", status.UptimeSeconds)
	}
}

func TestHealthServiceCheckReportsDBFailure(t *testing.T) {
	db, cleanup := sentineltesting.NewTestDB(t, "sentinel")
	cleanup() // close the database before checking it

	q := queue.NewQueue(queue.NewMemoryStore(), queue.NewMemoryStore(), zerolog.Nop())
	svc := NewHealthService(db, q, zerolog.Nop())

	status := svc.Check(context.Background())
	if status.Healthy {
		t.Fatalf("expected Healthy false after closing the database, got %+v", status)
	}
	if status.DBError == "" {
		t.Fatalf("expected a db error message")
	}
}

func TestDiskUsageMB(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), make([]byte, 1024*1024), 0644); err != nil {
		t.Fatalf("write fixture file: %v", err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.txt"), make([]byte, 1024*1024), 0644); err != nil {
		t.Fatalf("write fixture file: %v", err)
	}

	mb := DiskUsageMB(dir)
	if mb < 1.9 || mb > 2.1 {
		t.Fatalf("expected ~2MB, got %f", mb)
	}
}

func TestDiskUsageMBMissingDir(t *testing.T) {
	if mb := DiskUsageMB(filepath.Join(t.TempDir(), "does-not-exist")); mb != 0 {
		t.Fatalf("expected 0 for a missing directory, got %f", mb)
	}
}
