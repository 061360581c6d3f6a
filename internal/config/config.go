// Package config provides configuration management functionality.
//
// This package handles loading configuration from environment variables (.env
// file), with a database-backed RuntimeSettings override layer applied during
// DI wiring (settings database values take precedence).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	DataDir          string // base directory for sqlite databases, always absolute
	RedisAddr        string // enrichment queue backing store; the queue falls back to memory while it is unreachable
	SolanaRPCURL     string
	DiscoveryFeedURL string // websocket endpoint streaming new mint/pool notifications
	LogLevel         string
	Port             int // health/readiness HTTP port
	WorkerPoolSize   int // concurrent enrichment-task workers

	SolPerTrade       float64
	MaxPaperPositions int
	MaxMicroPositions int
	MicroSnipeSOL     float64

	RealTradingEnabled bool
	CopyTradingEnabled bool
	MirrorSellEnabled  bool

	CircuitBreakerThreshold int
	CircuitBreakerCooldown  int // seconds

	QueueMaxSize int

	BackupEnabled       bool
	BackupBucket        string
	BackupEndpoint      string // S3-compatible endpoint URL; empty uses AWS default resolution
	BackupAccessKey     string
	BackupSecretKey     string
	BackupRetentionDays int
	BackupCron          string // robfig/cron schedule expression
}

// Load reads configuration from environment variables.
//
// Order: .env file (if present), then environment variables with defaults.
// dataDirOverride, if given, takes priority over SENTINEL_DATA_DIR.
func Load(dataDirOverride ...string) (*Config, error) {
	_ = godotenv.Load()

	var dataDir string
	if len(dataDirOverride) > 0 && dataDirOverride[0] != "" {
		dataDir = dataDirOverride[0]
	} else {
		dataDir = getEnv("SENTINEL_DATA_DIR", "")
		if dataDir == "" {
			dataDir = "./data"
		}
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		SolanaRPCURL:     getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		DiscoveryFeedURL: getEnv("DISCOVERY_FEED_URL", "wss://pumpportal.fun/api/data"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Port:           getEnvAsInt("PORT", 8090),
		WorkerPoolSize: getEnvAsInt("WORKER_POOL_SIZE", 16),

		SolPerTrade:       getEnvAsFloat("SOL_PER_TRADE", 0.5),
		MaxPaperPositions: getEnvAsInt("MAX_PAPER_POSITIONS", 50),
		MaxMicroPositions: getEnvAsInt("MAX_MICRO_POSITIONS", 20),
		MicroSnipeSOL:     getEnvAsFloat("MICRO_SNIPE_SOL", 0.07),

		RealTradingEnabled: getEnvAsBool("REAL_TRADING_ENABLED", false),
		CopyTradingEnabled: getEnvAsBool("COPY_TRADING_ENABLED", false),
		MirrorSellEnabled:  getEnvAsBool("MIRROR_SELL_ENABLED", true),

		CircuitBreakerThreshold: getEnvAsInt("CIRCUIT_BREAKER_THRESHOLD", 5),
		CircuitBreakerCooldown:  getEnvAsInt("CIRCUIT_BREAKER_COOLDOWN_SEC", 300),

		QueueMaxSize: getEnvAsInt("QUEUE_MAX_SIZE", 5000),

		BackupEnabled:       getEnvAsBool("BACKUP_ENABLED", false),
		BackupBucket:        getEnv("BACKUP_S3_BUCKET", ""),
		BackupEndpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
		BackupAccessKey:     getEnv("BACKUP_S3_ACCESS_KEY", ""),
		BackupSecretKey:     getEnv("BACKUP_S3_SECRET_KEY", ""),
		BackupRetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 14),
		BackupCron:          getEnv("BACKUP_CRON", "0 0 3 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required configuration. Real trading requires an RPC URL;
// everything else has a usable default.
func (c *Config) Validate() error {
	if c.RealTradingEnabled && c.SolanaRPCURL == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required when REAL_TRADING_ENABLED is set")
	}
	if c.BackupEnabled && c.BackupBucket == "" {
		return fmt.Errorf("BACKUP_S3_BUCKET is required when BACKUP_ENABLED is set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
