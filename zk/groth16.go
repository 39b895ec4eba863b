package zk

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
)

// Groth16Verifier verifies gnark groth16 proofs over BN254 against a fixed
// verifying key. It implements the Verifier capability.
type Groth16Verifier struct {
	vk groth16.VerifyingKey
}

// NewGroth16Verifier builds a verifier from the gnark binary serialization
// of a verifying key.
func NewGroth16Verifier(vkData []byte) (*Groth16Verifier, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(vkData)); err != nil {
		return nil, fmt.Errorf("failed to read verifying key: %w", err)
	}
	return &Groth16Verifier{vk: vk}, nil
}

// NewGroth16VerifierFromKey wraps an already-deserialized verifying key.
func NewGroth16VerifierFromKey(vk groth16.VerifyingKey) *Groth16Verifier {
	return &Groth16Verifier{vk: vk}
}

// Verify implements the Verifier interface. The public signals are packed
// into a public-only witness in the order given.
func (v *Groth16Verifier) Verify(proof *Proof, publicSignals []*big.Int) error {
	if proof == nil || len(proof.Data) == 0 {
		return ErrMalformedProof
	}
	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(proof.Data)); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("failed to create witness: %w", err)
	}
	values := make(chan any, len(publicSignals))
	for _, s := range publicSignals {
		values <- s
	}
	close(values)
	if err := w.Fill(len(publicSignals), 0, values); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSignals, err)
	}
	if err := groth16.Verify(p, v.vk, w); err != nil {
		return fmt.Errorf("%w: %v", ErrProofInvalid, err)
	}
	return nil
}
