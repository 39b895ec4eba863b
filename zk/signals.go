package zk

import (
	"fmt"
	"math/big"

	"github.com/veil-protocol/veil/crypto/elgamal"
	"github.com/veil-protocol/veil/types"
)

// PublicKey is the affine representation of a registered identity key as it
// appears in public signals.
type PublicKey struct {
	X *big.Int
	Y *big.Int
}

// EGCTSignals is the four-coordinate public-signal form of an ElGamal
// ciphertext, in twisted edwards coordinates.
type EGCTSignals struct {
	C1X, C1Y *big.Int
	C2X, C2Y *big.Int
}

// EGCTFromCiphertext flattens a ciphertext into signal coordinates.
func EGCTFromCiphertext(ct *elgamal.Ciphertext) EGCTSignals {
	c1x, c1y := ct.C1.Point()
	c2x, c2y := ct.C2.Point()
	return EGCTSignals{C1X: c1x, C1Y: c1y, C2X: c2x, C2Y: c2y}
}

func (e EGCTSignals) slice() []*big.Int {
	return []*big.Int{e.C1X, e.C1Y, e.C2X, e.C2Y}
}

// WithdrawSignals is the public-signal layout of a pool withdrawal proof.
// The order of ToSlice is the order the circuit exposes them.
type WithdrawSignals struct {
	NewCommitmentHash *big.Int // change commitment inserted on success
	NullifierHash     *big.Int // nullifier of the consumed commitment
	Value             *big.Int // withdrawn value, must be below 2^128
	StateRoot         *big.Int // must be within the root history window
	StateTreeDepth    *big.Int
	ASPRoot           *big.Int // must equal the registry's latest root
	ASPTreeDepth      *big.Int
	Context           *big.Int // hash(withdrawalRequest, scope)
}

// ToSlice returns the signals in circuit order.
func (s *WithdrawSignals) ToSlice() []*big.Int {
	return []*big.Int{
		s.NewCommitmentHash, s.NullifierHash, s.Value,
		s.StateRoot, s.StateTreeDepth, s.ASPRoot, s.ASPTreeDepth,
		s.Context,
	}
}

// WithdrawSignalsFromSlice decodes the circuit-ordered signal slice.
func WithdrawSignalsFromSlice(els []*big.Int) (*WithdrawSignals, error) {
	if len(els) != 8 {
		return nil, fmt.Errorf("%w: got %d withdraw signals, expected 8", ErrMalformedSignals, len(els))
	}
	return &WithdrawSignals{
		NewCommitmentHash: els[0],
		NullifierHash:     els[1],
		Value:             els[2],
		StateRoot:         els[3],
		StateTreeDepth:    els[4],
		ASPRoot:           els[5],
		ASPTreeDepth:      els[6],
		Context:           els[7],
	}, nil
}

// RagequitSignals is the public-signal layout of a ragequit proof. The
// proof reveals the full original deposit so that the commitment can be
// reconstructed; privacy is deliberately given up in exchange for a
// guaranteed exit.
type RagequitSignals struct {
	Value          *big.Int
	Label          *big.Int
	CommitmentHash *big.Int
	NullifierHash  *big.Int
}

// ToSlice returns the signals in circuit order.
func (s *RagequitSignals) ToSlice() []*big.Int {
	return []*big.Int{s.Value, s.Label, s.CommitmentHash, s.NullifierHash}
}

// MintSignals is the public-signal layout of an encrypted-ledger mint proof.
type MintSignals struct {
	UserPublicKey    PublicKey
	AuditorPublicKey PublicKey
	Amount           EGCTSignals // encrypted minted amount under the user key
	AuditorPCT       *types.PCT  // same amount under the auditor key
}

// ToSlice returns the signals in circuit order.
func (s *MintSignals) ToSlice() []*big.Int {
	els := []*big.Int{s.UserPublicKey.X, s.UserPublicKey.Y,
		s.AuditorPublicKey.X, s.AuditorPublicKey.Y}
	els = append(els, s.Amount.slice()...)
	return append(els, s.AuditorPCT.Elements()...)
}

// BurnSignals is the public-signal layout of an encrypted-ledger burn proof.
// Balance is the ciphertext the prover burned against; the ledger requires
// it to match the stored one exactly.
type BurnSignals struct {
	UserPublicKey    PublicKey
	AuditorPublicKey PublicKey
	Balance          EGCTSignals
	Amount           EGCTSignals
	NewBalancePCT    *types.PCT // post-burn balance under the auditor key
}

// ToSlice returns the signals in circuit order.
func (s *BurnSignals) ToSlice() []*big.Int {
	els := []*big.Int{s.UserPublicKey.X, s.UserPublicKey.Y,
		s.AuditorPublicKey.X, s.AuditorPublicKey.Y}
	els = append(els, s.Balance.slice()...)
	els = append(els, s.Amount.slice()...)
	return append(els, s.NewBalancePCT.Elements()...)
}

// TransferSignals is the public-signal layout of an encrypted transfer
// proof. A single proof establishes that the sender delta and the receiver
// delta encrypt the same amount under the respective keys, without revealing
// it.
type TransferSignals struct {
	SenderPublicKey    PublicKey
	ReceiverPublicKey  PublicKey
	AuditorPublicKey   PublicKey
	SenderBalance      EGCTSignals // sender balance burned against
	SenderDelta        EGCTSignals // subtracted from sender, under sender key
	ReceiverDelta      EGCTSignals // added to receiver, under receiver key
	SenderBalancePCT   *types.PCT  // post-transfer sender balance, auditor key
	ReceiverAmountPCT  *types.PCT  // transferred amount under receiver key
	AuditorPCT         *types.PCT  // transferred amount under auditor key
}

// ToSlice returns the signals in circuit order.
func (s *TransferSignals) ToSlice() []*big.Int {
	els := []*big.Int{
		s.SenderPublicKey.X, s.SenderPublicKey.Y,
		s.ReceiverPublicKey.X, s.ReceiverPublicKey.Y,
		s.AuditorPublicKey.X, s.AuditorPublicKey.Y,
	}
	els = append(els, s.SenderBalance.slice()...)
	els = append(els, s.SenderDelta.slice()...)
	els = append(els, s.ReceiverDelta.slice()...)
	els = append(els, s.SenderBalancePCT.Elements()...)
	els = append(els, s.ReceiverAmountPCT.Elements()...)
	return append(els, s.AuditorPCT.Elements()...)
}
