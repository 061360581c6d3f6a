package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solsentinel/internal/domain"
)

// TradeRepository handles the append-only trades table.
type TradeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewTradeRepository(db *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{db: db, log: log.With().Str("repo", "trade").Logger()}
}

// Insert records an executed or attempted trade. Trades are never updated
// or deleted once written.
func (r *TradeRepository) Insert(t domain.Trade) (int64, error) {
	res, err := r.db.Exec(`
		INSERT INTO trades (token_id, side, sol_amount, token_amount, price,
			slippage_bps, fee_sol, tx_hash, is_paper, source, copied_from_wallet,
			status, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TokenID, string(t.Side), t.SolAmount.String(), t.TokenAmount.String(),
		t.Price.String(), t.SlippageBps, t.FeeSOL.String(), t.TxHash, t.IsPaper,
		string(t.Source), t.CopiedFromWallet, string(t.Status),
		t.ExecutedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert trade for token %d: %w", t.TokenID, err)
	}
	return res.LastInsertId()
}

// ForToken returns every trade recorded against a token, oldest first.
func (r *TradeRepository) ForToken(tokenID int64) ([]domain.Trade, error) {
	rows, err := r.db.Query(`
		SELECT id, token_id, side, sol_amount, token_amount, price, slippage_bps,
			fee_sol, tx_hash, is_paper, source, copied_from_wallet, status, executed_at
		FROM trades WHERE token_id = ? ORDER BY id ASC`, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query trades for token %d: %w", tokenID, err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side, solAmt, tokenAmt, price, feeSol, source, status, executedAt string
		if err := rows.Scan(&t.ID, &t.TokenID, &side, &solAmt, &tokenAmt, &price,
			&t.SlippageBps, &feeSol, &t.TxHash, &t.IsPaper, &source,
			&t.CopiedFromWallet, &status, &executedAt); err != nil {
			return nil, err
		}
		t.Side = domain.TradeSide(side)
		t.Source = domain.TradeSource(source)
		t.Status = domain.TradeStatus(status)
		t.SolAmount, _ = decimal.NewFromString(solAmt)
		t.TokenAmount, _ = decimal.NewFromString(tokenAmt)
		t.Price, _ = decimal.NewFromString(price)
		t.FeeSOL, _ = decimal.NewFromString(feeSol)
		t.ExecutedAt, _ = time.Parse(time.RFC3339Nano, executedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// PositionRepository handles the positions table. At most one open row may
// exist per (token_id, is_paper, source); Open and the micro-snipe top-up
// path both respect that partial unique index.
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{db: db, log: log.With().Str("repo", "position").Logger()}
}

// Open inserts a new open position. Callers must not already hold an open
// position for (token_id, is_paper, source); the partial unique index
// enforces this at the database layer and Open returns that constraint
// violation wrapped with the token id.
func (r *PositionRepository) Open(p domain.Position) (int64, error) {
	res, err := r.db.Exec(`
		INSERT INTO positions (token_id, state, source, signal_id, entry_price,
			current_price, max_price, token_amount, sol_invested, pnl_pct, pnl_usd,
			close_reason, is_paper, copied_from_wallet, opened_at, closed_at, is_micro_entry)
		VALUES (?, 'open', ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?, NULL, ?)`,
		p.TokenID, string(p.Source), p.SignalID, p.EntryPrice.String(),
		p.CurrentPrice.String(), p.MaxPrice.String(), p.TokenAmount.String(),
		p.SolInvested.String(), p.PnLPct.String(), p.PnLUSD.String(),
		p.IsPaper, p.CopiedFromWallet, p.OpenedAt.UTC().Format(time.RFC3339Nano),
		p.IsMicroEntry,
	)
	if err != nil {
		return 0, fmt.Errorf("open position for token %d: %w", p.TokenID, err)
	}
	return res.LastInsertId()
}

// TopUpMicroEntry converts a micro-snipe position into a full entry by
// updating the existing open row in place — never a second INSERT, since
// the partial unique index on (token_id, is_paper, source) WHERE
// state='open' would reject a second open row for the same token. The
// position keeps its original opened_at; callers pass the already-combined
// sol_invested, token_amount, and volume-weighted average entry price
// (decimal math done in Go, not SQL, to avoid float precision loss).
func (r *PositionRepository) TopUpMicroEntry(positionID int64, newSolInvested, newTokenAmount, newAvgPrice decimal.Decimal) error {
	res, err := r.db.Exec(`
		UPDATE positions SET
			sol_invested = ?,
			token_amount = ?,
			entry_price = ?,
			is_micro_entry = 0
		WHERE id = ? AND state = 'open'`,
		newSolInvested.String(), newTokenAmount.String(), newAvgPrice.String(), positionID)
	if err != nil {
		return fmt.Errorf("top up micro position %d: %w", positionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("top up micro position %d: no open row found", positionID)
	}
	return nil
}

// AttachSignal sets a position's signal_id after a micro-snipe top-up
// promotes it to a full, signal-driven entry.
func (r *PositionRepository) AttachSignal(positionID, signalID int64) error {
	_, err := r.db.Exec(`UPDATE positions SET signal_id = ? WHERE id = ?`, signalID, positionID)
	if err != nil {
		return fmt.Errorf("attach signal to position %d: %w", positionID, err)
	}
	return nil
}

// UpdateMark refreshes a position's mark-to-market fields: current price,
// running max (for trailing-stop tracking), and PnL.
func (r *PositionRepository) UpdateMark(positionID int64, currentPrice, maxPrice, pnlPct, pnlUSD decimal.Decimal) error {
	_, err := r.db.Exec(`
		UPDATE positions SET current_price = ?, max_price = ?, pnl_pct = ?, pnl_usd = ?
		WHERE id = ? AND state = 'open'`,
		currentPrice.String(), maxPrice.String(), pnlPct.String(), pnlUSD.String(), positionID)
	if err != nil {
		return fmt.Errorf("update mark for position %d: %w", positionID, err)
	}
	return nil
}

// Close transitions a position to closed, stamping the close reason and
// final mark. Closed positions are never reopened.
func (r *PositionRepository) Close(positionID int64, closeReason string, closedAt time.Time, finalPrice, pnlPct, pnlUSD decimal.Decimal) error {
	res, err := r.db.Exec(`
		UPDATE positions SET state = 'closed', close_reason = ?, closed_at = ?,
			current_price = ?, pnl_pct = ?, pnl_usd = ?
		WHERE id = ? AND state = 'open'`,
		closeReason, closedAt.UTC().Format(time.RFC3339Nano), finalPrice.String(),
		pnlPct.String(), pnlUSD.String(), positionID)
	if err != nil {
		return fmt.Errorf("close position %d: %w", positionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("close position %d: no open row found", positionID)
	}
	return nil
}

// OpenForToken returns the open position for (token, paper-flag, source),
// if one exists.
func (r *PositionRepository) OpenForToken(tokenID int64, isPaper bool, source domain.TradeSource) (domain.Position, bool, error) {
	row := r.db.QueryRow(`
		SELECT id, token_id, state, source, signal_id, entry_price, current_price,
			max_price, token_amount, sol_invested, pnl_pct, pnl_usd, close_reason,
			is_paper, copied_from_wallet, opened_at, closed_at, is_micro_entry
		FROM positions WHERE token_id = ? AND is_paper = ? AND source = ? AND state = 'open'`,
		tokenID, isPaper, string(source))
	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return domain.Position{}, false, nil
	}
	if err != nil {
		return domain.Position{}, false, err
	}
	return p, true, nil
}

// AllOpen returns every open position, across tokens and sources, for the
// periodic mark-to-market and close-condition sweep.
func (r *PositionRepository) AllOpen() ([]domain.Position, error) {
	rows, err := r.db.Query(`
		SELECT id, token_id, state, source, signal_id, entry_price, current_price,
			max_price, token_amount, sol_invested, pnl_pct, pnl_usd, close_reason,
			is_paper, copied_from_wallet, opened_at, closed_at, is_micro_entry
		FROM positions WHERE state = 'open'`)
	if err != nil {
		return nil, fmt.Errorf("query open positions: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		p, err := scanPositionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row *sql.Row) (domain.Position, error) { return scanAnyPosition(row) }

func scanPositionRows(rows *sql.Rows) (domain.Position, error) { return scanAnyPosition(rows) }

func scanAnyPosition(s rowScanner) (domain.Position, error) {
	var p domain.Position
	var state, source, entryPrice, currentPrice, maxPrice, tokenAmount, solInvested, pnlPct, pnlUSD, openedAt string
	var signalID sql.NullInt64
	var closeReason, copiedFromWallet, closedAt sql.NullString

	err := s.Scan(&p.ID, &p.TokenID, &state, &source, &signalID, &entryPrice,
		&currentPrice, &maxPrice, &tokenAmount, &solInvested, &pnlPct, &pnlUSD,
		&closeReason, &p.IsPaper, &copiedFromWallet, &openedAt, &closedAt, &p.IsMicroEntry)
	if err != nil {
		return domain.Position{}, err
	}

	p.State = domain.PositionState(state)
	p.Source = domain.TradeSource(source)
	p.EntryPrice, _ = decimal.NewFromString(entryPrice)
	p.CurrentPrice, _ = decimal.NewFromString(currentPrice)
	p.MaxPrice, _ = decimal.NewFromString(maxPrice)
	p.TokenAmount, _ = decimal.NewFromString(tokenAmount)
	p.SolInvested, _ = decimal.NewFromString(solInvested)
	p.PnLPct, _ = decimal.NewFromString(pnlPct)
	p.PnLUSD, _ = decimal.NewFromString(pnlUSD)
	p.OpenedAt, _ = time.Parse(time.RFC3339Nano, openedAt)
	if signalID.Valid {
		id := signalID.Int64
		p.SignalID = &id
	}
	if closeReason.Valid {
		v := closeReason.String
		p.CloseReason = &v
	}
	if copiedFromWallet.Valid {
		v := copiedFromWallet.String
		p.CopiedFromWallet = &v
	}
	if closedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, closedAt.String)
		p.ClosedAt = &t
	}
	return p, nil
}
