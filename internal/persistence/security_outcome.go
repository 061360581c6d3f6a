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

// SecurityRepository handles the one-row-per-token token_security table.
type SecurityRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewSecurityRepository(db *sql.DB, log zerolog.Logger) *SecurityRepository {
	return &SecurityRepository{db: db, log: log.With().Str("repo", "security").Logger()}
}

// Upsert replaces the security row for a token with the latest fetch.
func (r *SecurityRepository) Upsert(s domain.TokenSecurity) error {
	risks, err := json.Marshal(s.RiskList)
	if err != nil {
		return fmt.Errorf("marshal risk list: %w", err)
	}
	_, err = r.db.Exec(`
		INSERT INTO token_security (token_id, mintable, lp_burned, lp_locked, honeypot,
			contract_renounced, buy_tax_pct, sell_tax_pct, lp_lock_duration_days,
			top10_pct, dev_balance_pct, rugcheck_score, solsniffer_score, risk_list)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token_id) DO UPDATE SET
			mintable = excluded.mintable, lp_burned = excluded.lp_burned,
			lp_locked = excluded.lp_locked, honeypot = excluded.honeypot,
			contract_renounced = excluded.contract_renounced,
			buy_tax_pct = excluded.buy_tax_pct, sell_tax_pct = excluded.sell_tax_pct,
			lp_lock_duration_days = excluded.lp_lock_duration_days,
			top10_pct = excluded.top10_pct, dev_balance_pct = excluded.dev_balance_pct,
			rugcheck_score = excluded.rugcheck_score, solsniffer_score = excluded.solsniffer_score,
			risk_list = excluded.risk_list`,
		s.TokenID, s.Mintable, s.LPBurned, s.LPLocked, s.Honeypot, s.ContractRenounced,
		s.BuyTaxPct, s.SellTaxPct, s.LPLockDurationDays, s.Top10Pct, s.DevBalancePct,
		s.RugcheckScore, s.SolSnifferScore, string(risks),
	)
	if err != nil {
		return fmt.Errorf("upsert security for token %d: %w", s.TokenID, err)
	}
	return nil
}

// Get returns the security row for a token, or sql.ErrNoRows if never fetched.
func (r *SecurityRepository) Get(tokenID int64) (domain.TokenSecurity, error) {
	var s domain.TokenSecurity
	var risks string
	s.TokenID = tokenID
	err := r.db.QueryRow(`
		SELECT mintable, lp_burned, lp_locked, honeypot, contract_renounced,
			buy_tax_pct, sell_tax_pct, lp_lock_duration_days, top10_pct, dev_balance_pct,
			rugcheck_score, solsniffer_score, risk_list
		FROM token_security WHERE token_id = ?`, tokenID).Scan(
		&s.Mintable, &s.LPBurned, &s.LPLocked, &s.Honeypot, &s.ContractRenounced,
		&s.BuyTaxPct, &s.SellTaxPct, &s.LPLockDurationDays, &s.Top10Pct, &s.DevBalancePct,
		&s.RugcheckScore, &s.SolSnifferScore, &risks)
	if err != nil {
		return domain.TokenSecurity{}, err
	}
	_ = json.Unmarshal([]byte(risks), &s.RiskList)
	return s, nil
}

// OutcomeRepository handles the one-row-per-token token_outcomes table.
// Peak fields are monotonic upward; see domain.TokenOutcome.ApplySnapshot.
type OutcomeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewOutcomeRepository(db *sql.DB, log zerolog.Logger) *OutcomeRepository {
	return &OutcomeRepository{db: db, log: log.With().Str("repo", "outcome").Logger()}
}

// Get returns the outcome row for a token, creating a zero-valued one in
// memory (not persisted) if none exists yet.
func (r *OutcomeRepository) Get(tokenID int64) (domain.TokenOutcome, error) {
	var o domain.TokenOutcome
	var initialMcap, peakMcap, peakPrice string
	var finalMcap sql.NullString
	var timeToPeakSec sql.NullInt64
	o.TokenID = tokenID

	err := r.db.QueryRow(`
		SELECT initial_mcap, peak_mcap, peak_price, peak_multiplier,
			time_to_peak_sec, final_mcap, final_multiplier, is_rug
		FROM token_outcomes WHERE token_id = ?`, tokenID).Scan(
		&initialMcap, &peakMcap, &peakPrice, &o.PeakMultiplier,
		&timeToPeakSec, &finalMcap, &o.FinalMultiplier, &o.IsRug)
	if err == sql.ErrNoRows {
		return domain.TokenOutcome{TokenID: tokenID}, nil
	}
	if err != nil {
		return domain.TokenOutcome{}, err
	}
	o.InitialMCap, _ = decimal.NewFromString(initialMcap)
	o.PeakMCap, _ = decimal.NewFromString(peakMcap)
	o.PeakPrice, _ = decimal.NewFromString(peakPrice)
	if timeToPeakSec.Valid {
		d := time.Duration(timeToPeakSec.Int64) * time.Second
		o.TimeToPeak = &d
	}
	if finalMcap.Valid {
		v, _ := decimal.NewFromString(finalMcap.String)
		o.FinalMCap = &v
	}
	return o, nil
}

// Upsert writes the full outcome row back (called after ApplySnapshot or
// Finalize mutates it in memory).
func (r *OutcomeRepository) Upsert(o domain.TokenOutcome) error {
	var timeToPeakSec interface{}
	if o.TimeToPeak != nil {
		timeToPeakSec = int64(o.TimeToPeak.Seconds())
	}
	var finalMcap interface{}
	if o.FinalMCap != nil {
		finalMcap = o.FinalMCap.String()
	}
	_, err := r.db.Exec(`
		INSERT INTO token_outcomes (token_id, initial_mcap, peak_mcap, peak_price,
			peak_multiplier, time_to_peak_sec, final_mcap, final_multiplier, is_rug)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token_id) DO UPDATE SET
			initial_mcap = excluded.initial_mcap, peak_mcap = excluded.peak_mcap,
			peak_price = excluded.peak_price, peak_multiplier = excluded.peak_multiplier,
			time_to_peak_sec = excluded.time_to_peak_sec, final_mcap = excluded.final_mcap,
			final_multiplier = excluded.final_multiplier, is_rug = excluded.is_rug`,
		o.TokenID, o.InitialMCap.String(), o.PeakMCap.String(), o.PeakPrice.String(),
		o.PeakMultiplier, timeToPeakSec, finalMcap, o.FinalMultiplier, o.IsRug,
	)
	if err != nil {
		return fmt.Errorf("upsert outcome for token %d: %w", o.TokenID, err)
	}
	return nil
}
