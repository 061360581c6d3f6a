// Package reliability implements the pipeline's operational self-checks and
// disaster-recovery tooling: process/host health sampling and scheduled
// database backups to S3-compatible object storage (spec §4.12).
package reliability

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"solsentinel/internal/database"
	"solsentinel/internal/queue"
)

// Status is a single point-in-time health snapshot, served by the
// health/readiness HTTP surface (internal/server).
type Status struct {
	Healthy       bool      `json:"healthy"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemPercent    float64   `json:"mem_percent"`
	Goroutines    int       `json:"goroutines"`
	QueueDepth    int64     `json:"queue_depth"`
	DBOK          bool      `json:"db_ok"`
	DBError       string    `json:"db_error,omitempty"`
}

// HealthService samples process/host resource usage and the storage/queue
// layers' liveness. Grounded on the gopsutil-based sampling in the teacher's
// system status handler, generalized from an HTTP handler method into a
// standalone service that the HTTP surface calls.
type HealthService struct {
	db        *database.DB
	q         *queue.Queue
	startedAt time.Time
	log       zerolog.Logger
}

func NewHealthService(db *database.DB, q *queue.Queue, log zerolog.Logger) *HealthService {
	return &HealthService{
		db:        db,
		q:         q,
		startedAt: time.Now(),
		log:       log.With().Str("service", "health").Logger(),
	}
}

// Check samples CPU/memory over a short window, pings the database, and
// reads the queue depth. A database ping failure marks the snapshot
// unhealthy; everything else is informational.
func (s *HealthService) Check(ctx context.Context) Status {
	st := Status{
		StartedAt:     s.startedAt,
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		Healthy:       true,
	}

	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to sample cpu usage")
	} else if len(cpuPercent) > 0 {
		st.CPUPercent = cpuPercent[0]
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		s.log.Warn().Err(err).Msg("failed to sample memory usage")
	} else {
		st.MemPercent = memStat.UsedPercent
	}

	if err := s.db.QuickCheck(ctx); err != nil {
		st.Healthy = false
		st.DBError = err.Error()
	} else {
		st.DBOK = true
	}

	if depth, err := s.q.Size(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to read queue depth")
	} else {
		st.QueueDepth = depth
	}

	return st
}

// DiskUsageMB reports the size of the data directory in megabytes. No
// production code path calls it. Walk errors on individual entries
// are skipped rather than failing the whole scan, matching the teacher's
// getDirSize tolerance for transient stat failures.
func DiskUsageMB(dataDir string) float64 {
	var total int64
	_ = walkSize(dataDir, &total)
	return float64(total) / 1024 / 1024
}

func walkSize(dir string, total *int64) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		full := dir + string(os.PathSeparator) + e.Name()
		if e.IsDir() {
			_ = walkSize(full, total)
			continue
		}
		if info, err := e.Info(); err == nil {
			*total += info.Size()
		}
	}
	return nil
}
