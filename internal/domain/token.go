// Package domain provides core domain models for the enrichment, scoring, and
// trading pipeline. These are plain semantic types, not storage records: they
// carry no database handles and no behavior beyond small value methods.
package domain

import "time"

// Token identifies a single on-chain mint. Created on first sighting and
// mutated only by additive upsert; never deleted.
type Token struct {
	DiscoveredAt        time.Time
	CreatorAddress      *string
	Name                *string
	Symbol              *string
	Address              string
	Chain                string
	Source               string
	SocialLinks          map[string]string
	InitialBuySOL        *float64
	InitialMarketCapSOL  *float64
	BondingCurveProgress *float64
	ID                   int64
}

// Key returns the (address, chain) identity tuple used for the unique index.
func (t Token) Key() (address, chain string) {
	return t.Address, t.Chain
}
