package ledger

import (
	"github.com/veil-protocol/veil/crypto/elgamal"
	"github.com/veil-protocol/veil/types"
)

// EncryptedBalance is the per-(owner, asset) record. Balance is an ElGamal
// ciphertext under the owner's public key; updates are homomorphic
// combinations except on first write. History collects the compliance
// ciphertexts of past mutations so the owner can reconstruct the plaintext
// without trial decryption of the full balance.
type EncryptedBalance struct {
	Balance    *elgamal.Ciphertext
	TxIndex    uint64
	History    []*types.PCT
	BalancePCT *types.PCT
}

// IsEmpty reports whether the balance has never been written. An empty
// balance is set directly by the first mint; afterwards only homomorphic
// updates are allowed.
func (b *EncryptedBalance) IsEmpty() bool {
	return b.Balance == nil
}

// storedBalance is the CBOR form of EncryptedBalance. The ciphertext is
// kept as its fixed-size point serialization so decoding does not need a
// curve-backed receiver.
type storedBalance struct {
	EGCT       types.HexBytes `json:"egct"`
	TxIndex    uint64         `json:"txIndex"`
	History    []*types.PCT   `json:"history"`
	BalancePCT *types.PCT     `json:"balancePCT"`
}

// toStored flattens the balance for persistence.
func (b *EncryptedBalance) toStored() *storedBalance {
	return &storedBalance{
		EGCT:       b.Balance.Serialize(),
		TxIndex:    b.TxIndex,
		History:    b.History,
		BalancePCT: b.BalancePCT,
	}
}

// fromStored rebuilds the balance on the ledger's curve.
func (l *Ledger) fromStored(sb *storedBalance) (*EncryptedBalance, error) {
	ct := elgamal.NewCiphertext(l.curve)
	if err := ct.Deserialize(sb.EGCT); err != nil {
		return nil, err
	}
	return &EncryptedBalance{
		Balance:    ct,
		TxIndex:    sb.TxIndex,
		History:    sb.History,
		BalancePCT: sb.BalancePCT,
	}, nil
}
