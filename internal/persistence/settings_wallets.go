package persistence

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"solsentinel/internal/domain"
)

// SettingsRepository handles the runtime_settings key/value table — the
// operator-tunable override layer sitting in front of config.Config
// defaults. Every key is optional; an absent key means "no override".
type SettingsRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewSettingsRepository(db *sql.DB, log zerolog.Logger) *SettingsRepository {
	return &SettingsRepository{db: db, log: log.With().Str("repo", "settings").Logger()}
}

var settingsKeys = []string{
	"sol_per_trade", "max_paper_positions", "max_micro_positions", "micro_snipe_sol",
	"prune_threshold_min5", "prune_threshold_min15",
	"real_trading_enabled", "copy_trading_enabled", "mirror_sell_enabled",
}

// Get reads the full override row, applying only the keys actually present.
func (r *SettingsRepository) Get() (domain.RuntimeSettings, error) {
	rows, err := r.db.Query(`SELECT key, value FROM runtime_settings WHERE key IN (
		'sol_per_trade', 'max_paper_positions', 'max_micro_positions', 'micro_snipe_sol',
		'prune_threshold_min5', 'prune_threshold_min15',
		'real_trading_enabled', 'copy_trading_enabled', 'mirror_sell_enabled')`)
	if err != nil {
		return domain.RuntimeSettings{}, fmt.Errorf("query runtime settings: %w", err)
	}
	defer rows.Close()

	var s domain.RuntimeSettings
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.RuntimeSettings{}, err
		}
		if err := applySetting(&s, key, value); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("ignoring malformed runtime setting")
		}
	}
	return s, rows.Err()
}

func applySetting(s *domain.RuntimeSettings, key, value string) error {
	switch key {
	case "sol_per_trade":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		s.SolPerTrade = &v
	case "max_paper_positions":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		s.MaxPaperPositions = &v
	case "max_micro_positions":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		s.MaxMicroPositions = &v
	case "micro_snipe_sol":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		s.MicroSnipeSOL = &v
	case "prune_threshold_min5":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		s.PruneThresholdMin5 = &v
	case "prune_threshold_min15":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		s.PruneThresholdMin15 = &v
	case "real_trading_enabled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		s.RealTradingEnabled = &v
	case "copy_trading_enabled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		s.CopyTradingEnabled = &v
	case "mirror_sell_enabled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		s.MirrorSellEnabled = &v
	}
	return nil
}

// Set writes a single override key, or deletes it when value is nil,
// restoring the environment default.
func (r *SettingsRepository) Set(key string, value *string) error {
	if value == nil {
		_, err := r.db.Exec(`DELETE FROM runtime_settings WHERE key = ?`, key)
		if err != nil {
			return fmt.Errorf("clear runtime setting %s: %w", key, err)
		}
		return nil
	}
	_, err := r.db.Exec(`
		INSERT INTO runtime_settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, *value)
	if err != nil {
		return fmt.Errorf("set runtime setting %s: %w", key, err)
	}
	return nil
}

// WalletRepository handles the tracked_wallets table for the copy trader.
type WalletRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewWalletRepository(db *sql.DB, log zerolog.Logger) *WalletRepository {
	return &WalletRepository{db: db, log: log.With().Str("repo", "wallet").Logger()}
}

// Upsert adds or updates a tracked wallet.
func (r *WalletRepository) Upsert(w domain.TrackedWallet) error {
	_, err := r.db.Exec(`
		INSERT INTO tracked_wallets (address, label, multiplier, max_sol, enabled)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			label = excluded.label, multiplier = excluded.multiplier,
			max_sol = excluded.max_sol, enabled = excluded.enabled`,
		w.Address, w.Label, w.Multiplier, w.MaxSOL, w.Enabled)
	if err != nil {
		return fmt.Errorf("upsert tracked wallet %s: %w", w.Address, err)
	}
	return nil
}

// Remove stops tracking a wallet.
func (r *WalletRepository) Remove(address string) error {
	_, err := r.db.Exec(`DELETE FROM tracked_wallets WHERE address = ?`, address)
	if err != nil {
		return fmt.Errorf("remove tracked wallet %s: %w", address, err)
	}
	return nil
}

// Enabled returns every currently-enabled tracked wallet, for the
// wallet-event feed's subscription list.
func (r *WalletRepository) Enabled() ([]domain.TrackedWallet, error) {
	rows, err := r.db.Query(`
		SELECT address, label, multiplier, max_sol, enabled
		FROM tracked_wallets WHERE enabled = 1`)
	if err != nil {
		return nil, fmt.Errorf("query enabled tracked wallets: %w", err)
	}
	defer rows.Close()

	var out []domain.TrackedWallet
	for rows.Next() {
		var w domain.TrackedWallet
		if err := rows.Scan(&w.Address, &w.Label, &w.Multiplier, &w.MaxSOL, &w.Enabled); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
