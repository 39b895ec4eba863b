package storage

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/veil-protocol/veil/types"
)

// AuditorRecord is the compliance auditor singleton. Every proof-gated
// mutation of the encrypted ledger must produce ciphertexts under this key.
type AuditorRecord struct {
	Address    common.Address `json:"address"`
	PublicKeyX *types.BigInt  `json:"publicKeyX"`
	PublicKeyY *types.BigInt  `json:"publicKeyY"`
}

// Asset is a registered external token the converter can wrap. Internal
// encrypted amounts use types.LedgerDecimals; Decimals is the precision of
// the external token.
type Asset struct {
	ID       uint64         `json:"id"`
	Token    common.Address `json:"token"`
	Decimals uint8          `json:"decimals"`
}

// IdentityRecord binds an account address to its registered public key.
// Only registered accounts may hold encrypted balances.
type IdentityRecord struct {
	Address    common.Address `json:"address"`
	PublicKeyX *types.BigInt  `json:"publicKeyX"`
	PublicKeyY *types.BigInt  `json:"publicKeyY"`
}
