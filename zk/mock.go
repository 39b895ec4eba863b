package zk

import (
	"math/big"
)

// StaticVerifier is a Verifier that always returns a fixed result. It is
// used to wire components in tests and local development, where no real
// circuit artifacts are available.
type StaticVerifier struct {
	// Err is returned by every Verify call. A nil Err accepts all proofs.
	Err error
	// Calls counts Verify invocations.
	Calls int
	// LastSignals holds the public signals of the last Verify call.
	LastSignals []*big.Int
}

// Verify implements the Verifier interface.
func (v *StaticVerifier) Verify(_ *Proof, publicSignals []*big.Int) error {
	v.Calls++
	v.LastSignals = publicSignals
	return v.Err
}
