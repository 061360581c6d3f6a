package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solsentinel/internal/domain"
	"solsentinel/internal/stage"
)

// SnapshotRepository handles the append-only snapshots and top_holders
// tables. Readers filter by MAX(id) per token for "latest" queries.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{db: db, log: log.With().Str("repo", "snapshot").Logger()}
}

// Insert persists a new snapshot and returns its id. Snapshots are
// immutable once persisted; there is no update path.
func (r *SnapshotRepository) Insert(s domain.Snapshot) (int64, error) {
	var altDex, agg *string
	if s.AltDexPrice != nil {
		v := s.AltDexPrice.String()
		altDex = &v
	}
	if s.AggregatorPrice != nil {
		v := s.AggregatorPrice.String()
		agg = &v
	}
	var social []byte
	if s.SocialCounters != nil {
		var err error
		social, err = json.Marshal(s.SocialCounters)
		if err != nil {
			return 0, fmt.Errorf("marshal social counters: %w", err)
		}
	}

	res, err := r.db.Exec(`
		INSERT INTO snapshots (token_id, stage, timestamp, price, market_cap, liquidity,
			volume_5m, volume_1h, volume_24h, holder_count, top10_pct,
			buys_5m, sells_5m, buys_1h, sells_1h, buys_24h, sells_24h,
			smart_wallets, volatility, lp_removed_pct, alt_dex_price, aggregator_price,
			social_counters, llm_risk_score, score_v2, score_v3)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.TokenID, string(s.Stage), s.Timestamp.UTC().Format(time.RFC3339Nano),
		s.Price.String(), s.MarketCap.String(), s.Liquidity.String(),
		s.Volume5m.String(), s.Volume1h.String(), s.Volume24h.String(),
		s.HolderCount, s.Top10Pct, s.Buys5m, s.Sells5m, s.Buys1h, s.Sells1h,
		s.Buys24h, s.Sells24h, s.SmartWallets, s.Volatility, s.LPRemovedPct,
		altDex, agg, nullBytes(social), s.LLMRiskScore, s.ScoreV2, s.ScoreV3,
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot for token %d: %w", s.TokenID, err)
	}
	return res.LastInsertId()
}

// InsertTopHolders persists the ranked holder rows for a snapshot.
func (r *SnapshotRepository) InsertTopHolders(snapshotID int64, rows []domain.TopHolderRow) error {
	for _, h := range rows {
		if _, err := r.db.Exec(`
			INSERT INTO top_holders (snapshot_id, rank, wallet_address, balance, percent_of_supply, pnl)
			VALUES (?, ?, ?, ?, ?, ?)`,
			snapshotID, h.Rank, h.WalletAddress, h.Balance.String(), h.PercentOfSupply, h.PnL.String(),
		); err != nil {
			return fmt.Errorf("insert top holder rank %d for snapshot %d: %w", h.Rank, snapshotID, err)
		}
	}
	return nil
}

// Latest returns the most recent snapshot for a token (MAX(id)), or
// sql.ErrNoRows if none exists yet.
func (r *SnapshotRepository) Latest(tokenID int64) (domain.Snapshot, error) {
	row := r.db.QueryRow(`
		SELECT id, token_id, stage, timestamp, price, market_cap, liquidity,
			volume_5m, volume_1h, volume_24h, holder_count, top10_pct,
			buys_5m, sells_5m, buys_1h, sells_1h, buys_24h, sells_24h,
			smart_wallets, volatility, lp_removed_pct, alt_dex_price, aggregator_price,
			social_counters, llm_risk_score, score_v2, score_v3
		FROM snapshots WHERE token_id = ? ORDER BY id DESC LIMIT 1`, tokenID)
	return scanSnapshot(row)
}

func scanSnapshot(row *sql.Row) (domain.Snapshot, error) {
	var s domain.Snapshot
	var stg, ts, price, mcap, liq, v5, v1, v24 string
	var altDex, agg, social sql.NullString

	err := row.Scan(&s.ID, &s.TokenID, &stg, &ts, &price, &mcap, &liq,
		&v5, &v1, &v24, &s.HolderCount, &s.Top10Pct,
		&s.Buys5m, &s.Sells5m, &s.Buys1h, &s.Sells1h, &s.Buys24h, &s.Sells24h,
		&s.SmartWallets, &s.Volatility, &s.LPRemovedPct, &altDex, &agg,
		&social, &s.LLMRiskScore, &s.ScoreV2, &s.ScoreV3)
	if err != nil {
		return domain.Snapshot{}, err
	}

	s.Stage = stage.Stage(stg)
	s.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	s.Price, _ = decimal.NewFromString(price)
	s.MarketCap, _ = decimal.NewFromString(mcap)
	s.Liquidity, _ = decimal.NewFromString(liq)
	s.Volume5m, _ = decimal.NewFromString(v5)
	s.Volume1h, _ = decimal.NewFromString(v1)
	s.Volume24h, _ = decimal.NewFromString(v24)
	if altDex.Valid {
		d, _ := decimal.NewFromString(altDex.String)
		s.AltDexPrice = &d
	}
	if agg.Valid {
		d, _ := decimal.NewFromString(agg.String)
		s.AggregatorPrice = &d
	}
	if social.Valid {
		_ = json.Unmarshal([]byte(social.String), &s.SocialCounters)
	}
	return s, nil
}
