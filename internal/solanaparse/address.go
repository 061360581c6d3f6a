// Package solanaparse implements PRE_SCAN's mint-account interpretation:
// address validation, dangerous-extension detection, and the soft-flag
// risk-boost accumulation (spec §4.3). Address encoding is grounded on
// mr-tron/base58, the same library the retrieval pack's solana-token-lab
// manifest carries for Solana address handling.
package solanaparse

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// addressByteLength is the length of a Solana ed25519 public key.
const addressByteLength = 32

// ValidateAddress checks that addr decodes as base58 to a 32-byte public
// key. It does not validate the key is on-curve; that is the RPC's job.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("empty address")
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid base58 address: %w", err)
	}
	if len(decoded) != addressByteLength {
		return fmt.Errorf("address decodes to %d bytes, want %d", len(decoded), addressByteLength)
	}
	return nil
}
