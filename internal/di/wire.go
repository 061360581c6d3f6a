// Package di wires every package in the module into one running pipeline.
// Step order (databases, repositories, services, background jobs) and
// cleanup-on-error-at-every-step are grounded on the teacher's
// internal/di/wire.go.
package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solsentinel/internal/closeconditions"
	"solsentinel/internal/config"
	"solsentinel/internal/database"
	"solsentinel/internal/discovery"
	"solsentinel/internal/domain"
	"solsentinel/internal/events"
	"solsentinel/internal/persistence"
	"solsentinel/internal/queue"
	"solsentinel/internal/reliability"
	"solsentinel/internal/scheduler"
	"solsentinel/internal/server"
	"solsentinel/internal/trading"
	"solsentinel/internal/walletfeed"
	"solsentinel/internal/worker"
)

// Container holds every long-lived dependency the worker pool, background
// subscribers, scheduler, and health server share. All of it is exported so
// cmd/worker/main.go can start/stop each piece explicitly rather than the
// container hiding a Run() of its own.
type Container struct {
	DB *database.DB

	Repos   worker.Repositories
	Events  *events.Bus
	Queue   *queue.Queue
	Traders worker.Traders

	Worker     *worker.Worker
	Discovery  *discovery.Subscriber
	WalletsDB  *persistence.WalletRepository
	WalletFeed *walletfeed.Subscriber // Wire leaves this nil: no transaction parser is wired

	Health    *reliability.HealthService
	Backup    *reliability.BackupService // nil when backups are disabled
	Scheduler *scheduler.Scheduler
	Server    *server.Server
}

// Wire initializes the database, repositories, queue, traders, worker, and
// background services from cfg. The returned Container's Close tears down
// every resource that was successfully opened, even on a later error.
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{Path: filepath.Join(cfg.DataDir, "sentinel.db"), Profile: database.ProfileStandard, Name: "sentinel"})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	c := &Container{DB: db}

	c.Repos = worker.Repositories{
		Tokens:    persistence.NewTokenRepository(db.Conn(), log),
		Snapshots: persistence.NewSnapshotRepository(db.Conn(), log),
		Security:  persistence.NewSecurityRepository(db.Conn(), log),
		Outcomes:  persistence.NewOutcomeRepository(db.Conn(), log),
		Creators:  persistence.NewCreatorRepository(db.Conn(), log),
		Signals:   persistence.NewSignalRepository(db.Conn(), log),
		Settings:  persistence.NewSettingsRepository(db.Conn(), log),
	}
	positions := persistence.NewPositionRepository(db.Conn(), log)
	trades := persistence.NewTradeRepository(db.Conn(), log)
	c.WalletsDB = persistence.NewWalletRepository(db.Conn(), log)

	settings, err := c.Repos.Settings.Get()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load runtime settings: %w", err)
	}
	params := resolveParams(*cfg, settings)

	c.Events = events.NewBus()
	c.Queue = queue.NewQueue(queue.NewRedisStore(cfg.RedisAddr), queue.NewMemoryStore(), log)

	c.Traders.Paper = trading.NewPaperTrader(positions, trades, params, log)

	realTradingEnabled := cfg.RealTradingEnabled
	if settings.RealTradingEnabled != nil {
		realTradingEnabled = *settings.RealTradingEnabled
	}
	if realTradingEnabled {
		// No concrete SwapExecutor/WalletBalance client ships with this
		// module (spec §1: providers are specified only by their
		// interface); real trading stays configured-but-idle until an
		// operator supplies one out of band.
		log.Warn().Msg("real trading enabled but no swap executor wired; real trader disabled")
	}

	c.Worker = worker.New(c.Queue, c.Repos, worker.Providers{}, c.Traders, *cfg, log)

	discoveryFeed := discovery.NewWebSocketFeed(cfg.DiscoveryFeedURL, "primary", log)
	c.Discovery = discovery.NewSubscriber(discoveryFeed, c.Repos.Tokens, c.Queue, c.Events, log)

	copyTradingEnabled := cfg.CopyTradingEnabled
	if settings.CopyTradingEnabled != nil {
		copyTradingEnabled = *settings.CopyTradingEnabled
	}
	if copyTradingEnabled {
		// Same boundary as real trading: copy trading needs a
		// TransactionParser this module does not implement, so the
		// subscriber is left unwired rather than fabricated.
		log.Warn().Msg("copy trading enabled but no transaction parser wired; wallet feed disabled")
	}

	c.Health = reliability.NewHealthService(db, c.Queue, log)

	if cfg.BackupEnabled {
		backup, err := reliability.NewBackupService(ctx, db, cfg.DataDir, reliability.BackupConfig{
			Bucket:    cfg.BackupBucket,
			Endpoint:  cfg.BackupEndpoint,
			AccessKey: cfg.BackupAccessKey,
			SecretKey: cfg.BackupSecretKey,
		}, log)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init backup service: %w", err)
		}
		c.Backup = backup
	}

	c.Scheduler = scheduler.New(c.Queue, c.Repos.Tokens, c.Repos.Signals,
		scheduler.Traders{Paper: c.Traders.Paper, Real: c.Traders.Real}, c.Backup, cfg.BackupRetentionDays, log)

	c.Server = server.New(cfg.Port, c.Health, cfg.LogLevel == "debug", log)

	log.Info().Msg("dependency injection wiring completed")
	return c, nil
}

// resolveParams applies any RuntimeSettings override over the environment
// defaults, per config.go's documented precedence (settings override env).
func resolveParams(cfg config.Config, settings domain.RuntimeSettings) trading.Params {
	p := trading.Params{
		SolPerTrade:       decimal.NewFromFloat(cfg.SolPerTrade),
		MaxPaperPositions: cfg.MaxPaperPositions,
		MaxMicroPositions: cfg.MaxMicroPositions,
		MicroSnipeSOL:     decimal.NewFromFloat(cfg.MicroSnipeSOL),
		CloseOptions:      closeconditions.DefaultOptions(),
	}
	if settings.SolPerTrade != nil {
		p.SolPerTrade = decimal.NewFromFloat(*settings.SolPerTrade)
	}
	if settings.MaxPaperPositions != nil {
		p.MaxPaperPositions = *settings.MaxPaperPositions
	}
	if settings.MaxMicroPositions != nil {
		p.MaxMicroPositions = *settings.MaxMicroPositions
	}
	if settings.MicroSnipeSOL != nil {
		p.MicroSnipeSOL = decimal.NewFromFloat(*settings.MicroSnipeSOL)
	}
	return p
}

// Close closes the database Wire opened. The queue's Redis client is not
// closed here.
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
