package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	original, had := os.LookupEnv(key)
	if value == "" {
		os.Unsetenv(key)
	} else {
		os.Setenv(key, value)
	}
	t.Cleanup(func() {
		if had {
			os.Setenv(key, original)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoadDataDirOverrideTakesPrecedenceOverEnv(t *testing.T) {
	withEnv(t, "SENTINEL_DATA_DIR", "/tmp/should-not-be-used")

	override := t.TempDir()
	cfg, err := Load(override)
	require.NoError(t, err)

	absPath, err := filepath.Abs(override)
	require.NoError(t, err)
	assert.Equal(t, absPath, cfg.DataDir)
}

func TestLoadResolvesRelativeDataDirToAbsolute(t *testing.T) {
	cfg, err := Load("./relative-test-data")
	require.NoError(t, err)
	defer os.RemoveAll(cfg.DataDir)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
}

func TestLoadCreatesDataDirIfMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist-yet")
	cfg, err := Load(dir)
	require.NoError(t, err)

	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, 16, cfg.WorkerPoolSize)
	assert.False(t, cfg.RealTradingEnabled)
	assert.False(t, cfg.CopyTradingEnabled)
	assert.True(t, cfg.MirrorSellEnabled)
}

func TestValidateRequiresRPCURLWhenRealTradingEnabled(t *testing.T) {
	cfg := &Config{RealTradingEnabled: true, SolanaRPCURL: ""}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOLANA_RPC_URL")
}

func TestValidateRequiresBackupBucketWhenBackupEnabled(t *testing.T) {
	cfg := &Config{BackupEnabled: true, BackupBucket: ""}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKUP_S3_BUCKET")
}

func TestValidatePassesWithSensibleDefaults(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.Validate())
}
