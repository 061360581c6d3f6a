// Package persistence implements idempotent upserts and append-only writes
// over the pipeline's relational tables (spec §3, §6): tokens, snapshots,
// holders, security, outcomes, creator profiles, signals, trades, and
// positions. Repository shape (constructor-injected *sql.DB, structured
// logging at the call site) is grounded on the teacher's
// internal/modules/portfolio/position_repository.go.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solsentinel/internal/domain"
)

// TokenRepository handles the tokens table: created on first sighting,
// mutated only by additive upsert, never deleted.
type TokenRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewTokenRepository(db *sql.DB, log zerolog.Logger) *TokenRepository {
	return &TokenRepository{db: db, log: log.With().Str("repo", "token").Logger()}
}

// UpsertToken inserts the token on first sighting, or additively fills in
// previously-nil fields on the existing row. Returns the row id.
func (r *TokenRepository) UpsertToken(t domain.Token) (int64, error) {
	var links []byte
	if t.SocialLinks != nil {
		var err error
		links, err = json.Marshal(t.SocialLinks)
		if err != nil {
			return 0, fmt.Errorf("marshal social links: %w", err)
		}
	}

	_, err := r.db.Exec(`
		INSERT INTO tokens (address, chain, discovered_at, source, name, symbol,
			creator_address, initial_buy_sol, initial_market_cap_sol,
			bonding_curve_progress, social_links)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address, chain) DO UPDATE SET
			name = COALESCE(tokens.name, excluded.name),
			symbol = COALESCE(tokens.symbol, excluded.symbol),
			creator_address = COALESCE(tokens.creator_address, excluded.creator_address),
			initial_buy_sol = COALESCE(tokens.initial_buy_sol, excluded.initial_buy_sol),
			initial_market_cap_sol = COALESCE(tokens.initial_market_cap_sol, excluded.initial_market_cap_sol),
			bonding_curve_progress = COALESCE(tokens.bonding_curve_progress, excluded.bonding_curve_progress),
			social_links = COALESCE(tokens.social_links, excluded.social_links)
		`,
		t.Address, t.Chain, t.DiscoveredAt.UTC().Format(time.RFC3339Nano), t.Source,
		t.Name, t.Symbol, t.CreatorAddress, t.InitialBuySOL, t.InitialMarketCapSOL,
		t.BondingCurveProgress, nullBytes(links),
	)
	if err != nil {
		return 0, fmt.Errorf("upsert token %s: %w", t.Address, err)
	}

	// SQLite's last_insert_rowid semantics across the INSERT/DO-UPDATE
	// branches of an upsert are driver-specific; look the row up by its
	// unique key rather than trust it.
	return r.idByAddress(t.Address, t.Chain)
}

func (r *TokenRepository) idByAddress(address, chain string) (int64, error) {
	var id int64
	err := r.db.QueryRow(`SELECT id FROM tokens WHERE address = ? AND chain = ?`, address, chain).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup token id for %s: %w", address, err)
	}
	return id, nil
}

// GetByAddress returns a token by (address, chain), or sql.ErrNoRows.
func (r *TokenRepository) GetByAddress(address, chain string) (domain.Token, error) {
	var t domain.Token
	var discoveredAt string
	var links sql.NullString
	err := r.db.QueryRow(`
		SELECT id, address, chain, discovered_at, source, name, symbol,
			creator_address, initial_buy_sol, initial_market_cap_sol,
			bonding_curve_progress, social_links
		FROM tokens WHERE address = ? AND chain = ?`, address, chain).Scan(
		&t.ID, &t.Address, &t.Chain, &discoveredAt, &t.Source, &t.Name, &t.Symbol,
		&t.CreatorAddress, &t.InitialBuySOL, &t.InitialMarketCapSOL,
		&t.BondingCurveProgress, &links)
	if err != nil {
		return domain.Token{}, err
	}
	t.DiscoveredAt, _ = time.Parse(time.RFC3339Nano, discoveredAt)
	if links.Valid {
		_ = json.Unmarshal([]byte(links.String), &t.SocialLinks)
	}
	return t, nil
}

// GetByID returns a token by its surrogate id.
func (r *TokenRepository) GetByID(id int64) (domain.Token, error) {
	var t domain.Token
	var discoveredAt string
	var links sql.NullString
	err := r.db.QueryRow(`
		SELECT id, address, chain, discovered_at, source, name, symbol,
			creator_address, initial_buy_sol, initial_market_cap_sol,
			bonding_curve_progress, social_links
		FROM tokens WHERE id = ?`, id).Scan(
		&t.ID, &t.Address, &t.Chain, &discoveredAt, &t.Source, &t.Name, &t.Symbol,
		&t.CreatorAddress, &t.InitialBuySOL, &t.InitialMarketCapSOL,
		&t.BondingCurveProgress, &links)
	if err != nil {
		return domain.Token{}, err
	}
	t.DiscoveredAt, _ = time.Parse(time.RFC3339Nano, discoveredAt)
	if links.Valid {
		_ = json.Unmarshal([]byte(links.String), &t.SocialLinks)
	}
	return t, nil
}

func nullBytes(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}
