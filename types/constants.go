package types

import "math/big"

const (
	// StateTreeMaxLevels is the maximum number of levels in the commitment
	// merkle tree. Insertions that would grow the tree beyond this depth are
	// rejected.
	StateTreeMaxLevels = 32
	// StateKeyMaxLen is the maximum length of a state tree key in bytes.
	StateKeyMaxLen = StateTreeMaxLevels / 8
	// AuthorizedSetMaxLevels is the maximum number of levels of the external
	// authorized-withdrawal-set tree accepted in withdrawal proofs.
	AuthorizedSetMaxLevels = 32
	// RootHistorySize is the number of historical state roots kept in the
	// circular buffer. Proofs built against roots older than this window are
	// rejected.
	RootHistorySize = 64
	// LedgerDecimals is the fixed internal precision of the encrypted
	// balance ledger. External asset amounts are rescaled to this precision
	// on conversion.
	LedgerDecimals = 2
	// PCTElements is the number of field elements of a compliance
	// ciphertext: four ciphertext words, the two authentication key
	// coordinates and the nonce.
	PCTElements = 7
)

// MaxDepositValue is the exclusive upper bound for deposited and withdrawn
// values. Values at or above 2^128 are rejected to keep arithmetic within
// safe bounds for field hashing.
var MaxDepositValue = new(big.Int).Lsh(big.NewInt(1), 128)
