package zk

import (
	"github.com/veil-protocol/veil/types"
)

// Proof is an opaque serialized zero-knowledge proof. The encoding is
// backend-specific; the groth16 verifier in this package expects the
// gnark binary serialization over BN254.
type Proof struct {
	Data types.HexBytes `json:"data"`
}

// NewProof wraps raw serialized proof bytes.
func NewProof(data []byte) *Proof {
	return &Proof{Data: data}
}
