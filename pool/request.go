package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/veil-protocol/veil/crypto/hash/poseidon"
)

// WithdrawalRequest names the recipient of a withdrawal and the only address
// allowed to submit it. A withdrawal proof is bound to the request via the
// context signal, so a relayer cannot redirect the payout.
type WithdrawalRequest struct {
	// Processor is the address authorized to submit the request. It may be
	// the recipient itself (self-service) or a relayer.
	Processor common.Address `json:"processor"`
	// Recipient receives the withdrawn value.
	Recipient common.Address `json:"recipient"`
}

// Hash returns the field-element digest of the request.
func (r *WithdrawalRequest) Hash() (*big.Int, error) {
	return poseidon.MultiPoseidon(
		new(big.Int).SetBytes(r.Processor.Bytes()),
		new(big.Int).SetBytes(r.Recipient.Bytes()),
	)
}

// Context binds the request to a pool scope. Withdrawal proofs must carry
// exactly this value in their context signal.
func (r *WithdrawalRequest) Context(scope *big.Int) (*big.Int, error) {
	reqHash, err := r.Hash()
	if err != nil {
		return nil, err
	}
	return poseidon.MultiPoseidon(reqHash, scope)
}
