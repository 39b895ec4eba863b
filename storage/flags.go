package storage

import (
	"math/big"

	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	flagSet          = []byte{0x01}
	keyHybridEnabled = []byte("hybridEnabled")
)

// SetPoolDead marks the pool of the given scope as wound down. The flag is
// write-once in practice: there is no way to clear it.
func (s *Storage) SetPoolDead(scope *big.Int) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), flagPrefix)
	if err := wTx.Set(poolDeadKey(scope), flagSet); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// IsPoolDead reports whether the pool of the given scope has been wound down.
func (s *Storage) IsPoolDead(scope *big.Int) bool {
	rTx := prefixeddb.NewPrefixedReader(s.db, flagPrefix)
	_, err := rTx.Get(poolDeadKey(scope))
	return err == nil
}

// SetHybridEnabled toggles the cross-ledger coordinator flag.
func (s *Storage) SetHybridEnabled(enabled bool) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), flagPrefix)
	var err error
	if enabled {
		err = wTx.Set(keyHybridEnabled, flagSet)
	} else {
		err = wTx.Delete(keyHybridEnabled)
	}
	if err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// HybridEnabled reports whether cross-ledger coordination is active.
func (s *Storage) HybridEnabled() bool {
	rTx := prefixeddb.NewPrefixedReader(s.db, flagPrefix)
	_, err := rTx.Get(keyHybridEnabled)
	return err == nil
}

func poolDeadKey(scope *big.Int) []byte {
	return append([]byte("dead/"), arbo.BigIntToBytes(32, scope)...)
}
