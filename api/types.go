package api

import (
	"github.com/veil-protocol/veil/storage"
	"github.com/veil-protocol/veil/types"
)

// PoolStatus is the response of GET /pool.
type PoolStatus struct {
	Scope *types.BigInt `json:"scope"`
	Dead  bool          `json:"dead"`
	Size  uint64        `json:"size"`
}

// RootResponse is the response of the root endpoints.
type RootResponse struct {
	Root *types.BigInt `json:"root"`
}

// NullifierStatus is the response of GET /pool/nullifier/{nullifier}.
type NullifierStatus struct {
	Nullifier *types.BigInt `json:"nullifier"`
	Spent     bool          `json:"spent"`
}

// DepositorResponse is the response of GET /pool/label/{label}.
type DepositorResponse struct {
	Label     *types.BigInt `json:"label"`
	Depositor string        `json:"depositor"`
}

// BalanceResponse is the response of GET /ledger/balance/{address}/{assetId}.
// EGCT is the fixed-size point serialization of the balance ciphertext; an
// empty balance has no EGCT.
type BalanceResponse struct {
	EGCT       types.HexBytes `json:"egct,omitempty"`
	TxIndex    uint64         `json:"txIndex"`
	History    []*types.PCT   `json:"history,omitempty"`
	BalancePCT *types.PCT     `json:"balancePCT,omitempty"`
}

// AssetsResponse is the response of GET /ledger/assets.
type AssetsResponse struct {
	Assets []*storage.Asset `json:"assets"`
}

// AuditorResponse is the response of GET /ledger/auditor.
type AuditorResponse struct {
	Address    string        `json:"address"`
	PublicKeyX *types.BigInt `json:"publicKeyX"`
	PublicKeyY *types.BigInt `json:"publicKeyY"`
}
