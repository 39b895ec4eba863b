package state

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// spentMark is the value stored for a spent nullifier. Presence of the key
// is what matters; the flag is write-once, false to true, never reset.
var spentMark = []byte{0x01}

// Spend marks a nullifier hash as spent. It errors with ErrNullifierSpent
// if the nullifier was spent before. Must be called exactly once per
// consumed commitment, inside a batch.
func (s *State) Spend(nullifierHash *big.Int) error {
	if s.dbTx == nil {
		return ErrNoBatch
	}
	key := arbo.BigIntToBytes(hashLen, nullifierHash)
	nTx := prefixeddb.NewPrefixedWriteTx(s.dbTx, nullifierPrefix)
	if _, err := nTx.Get(key); err == nil {
		return ErrNullifierSpent
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return err
	}
	return nTx.Set(key, spentMark)
}

// IsSpent reports whether the nullifier hash has been spent.
func (s *State) IsSpent(nullifierHash *big.Int) bool {
	rTx := prefixeddb.NewPrefixedReader(s.reader(), nullifierPrefix)
	_, err := rTx.Get(arbo.BigIntToBytes(hashLen, nullifierHash))
	return err == nil
}

// SetDepositor records the original depositor address for a label. The
// record is set once at deposit time and is only consulted by the ragequit
// escape path.
func (s *State) SetDepositor(label *big.Int, depositor common.Address) error {
	if s.dbTx == nil {
		return ErrNoBatch
	}
	key := arbo.BigIntToBytes(hashLen, label)
	dTx := prefixeddb.NewPrefixedWriteTx(s.dbTx, depositorPrefix)
	if _, err := dTx.Get(key); err == nil {
		return ErrLabelExists
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return err
	}
	return dTx.Set(key, depositor.Bytes())
}

// Depositor returns the original depositor recorded for a label, or
// ErrUnknownLabel if the label has never been deposited under.
func (s *State) Depositor(label *big.Int) (common.Address, error) {
	rTx := prefixeddb.NewPrefixedReader(s.reader(), depositorPrefix)
	data, err := rTx.Get(arbo.BigIntToBytes(hashLen, label))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return common.Address{}, ErrUnknownLabel
		}
		return common.Address{}, err
	}
	return common.BytesToAddress(data), nil
}
