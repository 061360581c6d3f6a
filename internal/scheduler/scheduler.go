// Package scheduler runs the pipeline's time-driven maintenance jobs: stale
// open-position sweeps, signal decay, queue restart-recovery, and the
// nightly backup (spec §4.1/§4.2/§4.12 expansion). Ticker-per-job shape is
// grounded on the teacher's internal/queue/scheduler.go, generalized to
// robfig/cron so each job carries its own schedule expression instead of a
// hand-rolled ticker loop per cadence.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"solsentinel/internal/persistence"
	"solsentinel/internal/queue"
	"solsentinel/internal/reliability"
	"solsentinel/internal/trading"
)

// signalDecayAge is how long an un-acted-on signal stays active before the
// decay sweep expires it.
const signalDecayAge = 24 * time.Hour

// Traders bundles the position managers the stale-sweep job drains.
type Traders struct {
	Paper *trading.PaperTrader
	Real  *trading.RealTrader
}

// Scheduler owns a cron runtime and every job registered against it. Start
// is idempotent with Stop; the zero value is not usable, use New.
type Scheduler struct {
	cron      *cron.Cron
	queue     *queue.Queue
	tokens    *persistence.TokenRepository
	signals   *persistence.SignalRepository
	traders   Traders
	backup    *reliability.BackupService
	retention int
	log       zerolog.Logger
}

func New(
	q *queue.Queue,
	tokens *persistence.TokenRepository,
	signals *persistence.SignalRepository,
	traders Traders,
	backup *reliability.BackupService,
	retentionDays int,
	log zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		queue:     q,
		tokens:    tokens,
		signals:   signals,
		traders:   traders,
		backup:    backup,
		retention: retentionDays,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers every job and starts the cron runtime. backupCron is a
// 6-field (seconds-first) cron expression; the rest of the jobs run on
// fixed internal cadences since the spec gives them no configurable
// schedule.
func (s *Scheduler) Start(ctx context.Context, backupCron string) error {
	if _, err := s.cron.AddFunc("0 */2 * * * *", func() { s.sweepStale(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 0 * * * *", func() { s.decaySignals() }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 */5 * * * *", func() { s.reconcileQueue(ctx) }); err != nil {
		return err
	}
	if s.backup != nil {
		if _, err := s.cron.AddFunc(backupCron, func() { s.runBackup(ctx) }); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.log.Info().Msg("scheduler started")
	return nil
}

// Stop drains running jobs and waits for them to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) sweepStale(ctx context.Context) {
	now := time.Now()
	if s.traders.Paper != nil {
		if n, err := s.traders.Paper.SweepStale(now); err != nil {
			s.log.Error().Err(err).Msg("paper stale sweep failed")
		} else if n > 0 {
			s.log.Info().Int("closed", n).Msg("paper stale sweep closed positions")
		}
	}
	if s.traders.Real != nil {
		if n, err := s.traders.Real.SweepStaleWithTokens(ctx, s.tokens, now); err != nil {
			s.log.Error().Err(err).Msg("real stale sweep failed")
		} else if n > 0 {
			s.log.Info().Int("closed", n).Msg("real stale sweep closed positions")
		}
	}
}

func (s *Scheduler) decaySignals() {
	n, err := s.signals.ExpireDecayed(signalDecayAge, time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("signal decay sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("expired", n).Msg("signal decay sweep expired stale signals")
	}
}

// reconcileQueue catches tasks whose ScheduledAt has slipped too far into
// the past (a crashed worker, a long redeploy) and migrates any in-memory
// fallback tasks back onto Redis once it is reachable again.
func (s *Scheduler) reconcileQueue(ctx context.Context) {
	purged, err := s.queue.PurgeStale(ctx, time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("queue purge-stale failed")
	} else if purged > 0 {
		s.log.Warn().Int("purged", purged).Msg("purged stale queue entries")
	}

	if err := s.queue.Reconcile(ctx); err != nil {
		s.log.Error().Err(err).Msg("queue reconcile failed")
	}
	if err := s.queue.MigrateScores(ctx); err != nil {
		s.log.Error().Err(err).Msg("queue score migration failed")
	}
}

func (s *Scheduler) runBackup(ctx context.Context) {
	if err := s.backup.CreateAndUpload(ctx); err != nil {
		s.log.Error().Err(err).Msg("nightly backup failed")
		return
	}
	if err := s.backup.RotateOldBackups(ctx, s.retention); err != nil {
		s.log.Error().Err(err).Msg("backup rotation failed")
	}
}
