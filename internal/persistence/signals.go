package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solsentinel/internal/domain"
)

// SignalRepository handles the signals table. A new status transition is a
// two-step operation within one transaction: expire conflicting
// target-status rows for the token, then update the token's active row in
// place or insert a new one — this respects the partial unique index on (token_id, status) for active
// statuses (spec §9 design note on decayed signals).
type SignalRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewSignalRepository(db *sql.DB, log zerolog.Logger) *SignalRepository {
	return &SignalRepository{db: db, log: log.With().Str("repo", "signal").Logger()}
}

// Transition records a new evaluator result for a token, created or
// transitioned per spec §3 Lifecycle. This is a two-step
// transaction: (1) expire any existing row that already holds the target
// status for this token (a conflicting target-status row, which the
// partial unique index would otherwise reject), then (2) either update the
// token's current active row in place to the target status, or insert a
// fresh row if the token has no active signal yet.
func (r *SignalRepository) Transition(s domain.Signal) (int64, error) {
	rules, err := json.Marshal(s.RulesFired)
	if err != nil {
		return 0, fmt.Errorf("marshal rules fired: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin signal transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		UPDATE signals SET status = 'expired'
		WHERE token_id = ? AND status = ?`, s.TokenID, string(s.Status)); err != nil {
		return 0, fmt.Errorf("expire conflicting target-status signal for token %d: %w", s.TokenID, err)
	}

	var existingID int64
	err = tx.QueryRow(`
		SELECT id FROM signals
		WHERE token_id = ? AND status IN ('strong_buy','buy','watch')`, s.TokenID).Scan(&existingID)

	switch err {
	case sql.ErrNoRows:
		res, insErr := tx.Exec(`
			INSERT INTO signals (token_id, status, score, net_score, rules_fired,
				price, market_cap, liquidity, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.TokenID, string(s.Status), s.Score, s.NetScore, string(rules),
			s.Price.String(), s.MarketCap.String(), s.Liquidity.String(),
			s.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if insErr != nil {
			return 0, fmt.Errorf("insert signal for token %d: %w", s.TokenID, insErr)
		}
		existingID, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
	case nil:
		if _, updErr := tx.Exec(`
			UPDATE signals SET status = ?, score = ?, net_score = ?, rules_fired = ?,
				price = ?, market_cap = ?, liquidity = ?, created_at = ?
			WHERE id = ?`,
			string(s.Status), s.Score, s.NetScore, string(rules),
			s.Price.String(), s.MarketCap.String(), s.Liquidity.String(),
			s.CreatedAt.UTC().Format(time.RFC3339Nano), existingID,
		); updErr != nil {
			return 0, fmt.Errorf("transition signal %d for token %d: %w", existingID, s.TokenID, updErr)
		}
	default:
		return 0, fmt.Errorf("lookup active signal for token %d: %w", s.TokenID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit signal transition tx: %w", err)
	}
	return existingID, nil
}

// ExpireDecayed marks every active signal older than maxAge as expired, for
// the time-driven signal-decay sweep.
func (r *SignalRepository) ExpireDecayed(maxAge time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-maxAge).UTC().Format(time.RFC3339Nano)
	res, err := r.db.Exec(`
		UPDATE signals SET status = 'expired'
		WHERE status IN ('strong_buy', 'buy', 'watch') AND created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire decayed signals: %w", err)
	}
	return res.RowsAffected()
}

// UpdateOutcome mirrors a token's peak/rug outcome into every signal row
// for that token, per spec §4.3 ("mirror peak and rug data into signal
// outcome columns").
func (r *SignalRepository) UpdateOutcome(tokenID int64, peakMultiplier, peakROIPct *float64, isRug *bool) error {
	_, err := r.db.Exec(`
		UPDATE signals SET peak_multiplier_after = ?, peak_roi_pct_after = ?, is_rug_after = ?
		WHERE token_id = ?`, peakMultiplier, peakROIPct, isRug, tokenID)
	if err != nil {
		return fmt.Errorf("update signal outcome for token %d: %w", tokenID, err)
	}
	return nil
}

// ActiveForToken returns the currently active (non-expired) signal for a
// token, if any.
func (r *SignalRepository) ActiveForToken(tokenID int64) (domain.Signal, bool, error) {
	row := r.db.QueryRow(`
		SELECT id, token_id, status, score, net_score, rules_fired, price,
			market_cap, liquidity, created_at
		FROM signals WHERE token_id = ? AND status IN ('strong_buy','buy','watch')
		ORDER BY id DESC LIMIT 1`, tokenID)

	var s domain.Signal
	var status, rules, price, mcap, liq, createdAt string
	err := row.Scan(&s.ID, &s.TokenID, &status, &s.Score, &s.NetScore, &rules,
		&price, &mcap, &liq, &createdAt)
	if err == sql.ErrNoRows {
		return domain.Signal{}, false, nil
	}
	if err != nil {
		return domain.Signal{}, false, err
	}
	s.Status = domain.SignalStatus(status)
	_ = json.Unmarshal([]byte(rules), &s.RulesFired)
	s.Price, _ = decimal.NewFromString(price)
	s.MarketCap, _ = decimal.NewFromString(mcap)
	s.Liquidity, _ = decimal.NewFromString(liq)
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return s, true, nil
}
