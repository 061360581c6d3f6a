package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solsentinel/internal/domain"
)

// LaunchOutcome is one prior launch's terminal shape, as seen by the
// creator-profile risk aggregation in internal/creatorprofile.
type LaunchOutcome struct {
	DiscoveredAt   time.Time
	PeakMultiplier float64
	IsRug          bool
}

// CreatorRepository handles the one-row-per-creator-address creator_profiles
// table.
type CreatorRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewCreatorRepository(db *sql.DB, log zerolog.Logger) *CreatorRepository {
	return &CreatorRepository{db: db, log: log.With().Str("repo", "creator").Logger()}
}

// Get returns a creator's profile, or a zero-valued one (not persisted) if
// this is the creator's first observed launch.
func (r *CreatorRepository) Get(address string) (domain.CreatorProfile, error) {
	var p domain.CreatorProfile
	p.CreatorAddress = address
	err := r.db.QueryRow(`
		SELECT total_launches, rug_count, success_count, avg_peak_multiplier,
			risk_score, funding_trace_risk
		FROM creator_profiles WHERE creator_address = ?`, address).Scan(
		&p.TotalLaunches, &p.RugCount, &p.SuccessCount, &p.AvgPeakMultiplier,
		&p.RiskScore, &p.FundingTraceRisk)
	if err == sql.ErrNoRows {
		return domain.CreatorProfile{CreatorAddress: address}, nil
	}
	return p, err
}

// LaunchOutcomes returns every token outcome attributed to a creator
// address, for the risk aggregation in internal/creatorprofile. A token
// with no outcome row yet (nothing observed past discovery) is excluded.
func (r *CreatorRepository) LaunchOutcomes(creatorAddress string) ([]LaunchOutcome, error) {
	rows, err := r.db.Query(`
		SELECT t.discovered_at, o.peak_multiplier, o.is_rug
		FROM tokens t
		JOIN token_outcomes o ON o.token_id = t.id
		WHERE t.creator_address = ?`, creatorAddress)
	if err != nil {
		return nil, fmt.Errorf("query launch outcomes for creator %s: %w", creatorAddress, err)
	}
	defer rows.Close()

	var out []LaunchOutcome
	for rows.Next() {
		var lo LaunchOutcome
		var discoveredAt string
		if err := rows.Scan(&discoveredAt, &lo.PeakMultiplier, &lo.IsRug); err != nil {
			return nil, err
		}
		lo.DiscoveredAt, _ = time.Parse(time.RFC3339Nano, discoveredAt)
		out = append(out, lo)
	}
	return out, rows.Err()
}

// Upsert writes the full profile back.
func (r *CreatorRepository) Upsert(p domain.CreatorProfile) error {
	_, err := r.db.Exec(`
		INSERT INTO creator_profiles (creator_address, total_launches, rug_count,
			success_count, avg_peak_multiplier, risk_score, funding_trace_risk)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(creator_address) DO UPDATE SET
			total_launches = excluded.total_launches, rug_count = excluded.rug_count,
			success_count = excluded.success_count,
			avg_peak_multiplier = excluded.avg_peak_multiplier,
			risk_score = excluded.risk_score, funding_trace_risk = excluded.funding_trace_risk`,
		p.CreatorAddress, p.TotalLaunches, p.RugCount, p.SuccessCount,
		p.AvgPeakMultiplier, p.RiskScore, p.FundingTraceRisk,
	)
	if err != nil {
		return fmt.Errorf("upsert creator profile %s: %w", p.CreatorAddress, err)
	}
	return nil
}
