package storage

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/veil-protocol/veil/types"
)

// RegisterIdentity stores the public key of an account. Re-registration
// overwrites the previous key.
func (s *Storage) RegisterIdentity(addr common.Address, pubX, pubY *big.Int) error {
	return s.setArtifact(identityPrefix, addr.Bytes(), &IdentityRecord{
		Address:    addr,
		PublicKeyX: (*types.BigInt)(pubX),
		PublicKeyY: (*types.BigInt)(pubY),
	})
}

// Identity loads the registered public key of an account. Returns
// ErrNotFound if the account never registered.
func (s *Storage) Identity(addr common.Address) (*IdentityRecord, error) {
	rec := &IdentityRecord{}
	if err := s.getArtifact(identityPrefix, addr.Bytes(), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// IsRegistered reports whether the account has a registered public key.
func (s *Storage) IsRegistered(addr common.Address) bool {
	_, err := s.Identity(addr)
	return err == nil
}
