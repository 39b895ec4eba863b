package storage

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/veil-protocol/veil/types"
)

var auditorKey = []byte("auditor")

// SetAuditor stores the auditor record, replacing any previous one.
func (s *Storage) SetAuditor(addr common.Address, pubX, pubY *big.Int) error {
	return s.setArtifact(auditorPrefix, auditorKey, &AuditorRecord{
		Address:    addr,
		PublicKeyX: (*types.BigInt)(pubX),
		PublicKeyY: (*types.BigInt)(pubY),
	})
}

// Auditor loads the auditor record. Returns ErrNotFound if no auditor has
// been configured yet.
func (s *Storage) Auditor() (*AuditorRecord, error) {
	rec := &AuditorRecord{}
	if err := s.getArtifact(auditorPrefix, auditorKey, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// HasAuditor reports whether an auditor record exists.
func (s *Storage) HasAuditor() bool {
	_, err := s.Auditor()
	return err == nil
}
