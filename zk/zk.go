// Package zk defines the proof-verification capability consumed by the pool
// and the encrypted ledger, together with the public-signal layouts of each
// proof-gated operation. The constraint systems themselves live outside this
// repository; the core only needs a boolean verdict over (proof, public
// signals).
package zk

import (
	"fmt"
	"math/big"
)

var (
	// ErrProofInvalid is returned when the verifier rejects a proof.
	ErrProofInvalid = fmt.Errorf("proof verification failed")
	// ErrMalformedProof is returned when a proof cannot be decoded.
	ErrMalformedProof = fmt.Errorf("malformed proof")
	// ErrMalformedSignals is returned when a public-signal slice does not
	// match the expected layout of the operation.
	ErrMalformedSignals = fmt.Errorf("malformed public signals")
)

// Verifier is the capability interface for zero-knowledge proof
// verification. One instance exists per operation kind (withdraw, ragequit,
// mint, burn, transfer), each with its fixed public-signal layout.
// Implementations must be side-effect free.
type Verifier interface {
	// Verify checks the proof against the ordered public signals. It
	// returns nil if the proof is valid and ErrProofInvalid (possibly
	// wrapped) otherwise.
	Verify(proof *Proof, publicSignals []*big.Int) error
}
