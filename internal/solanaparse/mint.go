package solanaparse

import "solsentinel/internal/domain"

// Token-2022 extension names. Permanent delegate, non-transferable, and
// transfer hook force a hard reject regardless of any other flag; transfer
// fee and default account state are soft flags.
const (
	ExtPermanentDelegate  = "permanent_delegate"
	ExtNonTransferable    = "non_transferable"
	ExtTransferHook       = "transfer_hook"
	ExtTransferFee        = "transfer_fee"
	ExtDefaultAccountState = "default_account_state"
)

// HardReject reports whether PRE_SCAN must drop the token outright:
// both mint and freeze authorities active simultaneously, or any dangerous
// extension present.
func HardReject(info domain.MintInfo) bool {
	if info.MintAuthority != nil && *info.MintAuthority != "" &&
		info.FreezeAuthority != nil && *info.FreezeAuthority != "" {
		return true
	}
	for _, ext := range info.Dangerous {
		switch ext {
		case ExtPermanentDelegate, ExtNonTransferable, ExtTransferHook:
			return true
		}
	}
	return false
}

// RiskBoost accumulates 0-100 from soft flags: transfer fee, default
// account state, and a single (not both) active authority.
func RiskBoost(info domain.MintInfo) int {
	boost := 0
	for _, ext := range info.Risky {
		switch ext {
		case ExtTransferFee:
			boost += 15
		case ExtDefaultAccountState:
			boost += 10
		}
	}

	mintActive := info.MintAuthority != nil && *info.MintAuthority != ""
	freezeActive := info.FreezeAuthority != nil && *info.FreezeAuthority != ""
	if mintActive != freezeActive {
		// Exactly one authority is active (not both — that case hard rejects).
		boost += 20
	}

	if boost > 100 {
		boost = 100
	}
	return boost
}

// SellSimRejects reports whether an explicit "no route" sell-sim result
// should be treated as a reject signal. Per spec §4.3, a no-route outage is
// only trusted as a genuine reject when the mint authority is also active,
// to avoid false rejects on aggregator outages.
func SellSimRejects(sim domain.SellSimResult, info domain.MintInfo) bool {
	if !sim.NoRoute {
		return false
	}
	return info.MintAuthority != nil && *info.MintAuthority != ""
}
