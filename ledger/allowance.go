package ledger

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/veil-protocol/veil/crypto/elgamal"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Allowance loads the encrypted allowance the owner granted the spender.
// The ciphertext is encrypted under the spender's key; the ledger never
// learns the amount. Returns ErrNoAllowance if none was granted.
func (l *Ledger) Allowance(owner, spender common.Address, assetID uint64) (*elgamal.Ciphertext, error) {
	rTx := prefixeddb.NewPrefixedReader(l.reader(), allowancePrefix)
	data, err := rTx.Get(allowanceKey(owner, spender, assetID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNoAllowance
		}
		return nil, err
	}
	ct := elgamal.NewCiphertext(l.curve)
	if err := ct.Deserialize(data); err != nil {
		return nil, err
	}
	return ct, nil
}

// HasAllowance reports whether an allowance record exists. Existence, not
// magnitude, gates TransferFrom.
func (l *Ledger) HasAllowance(owner, spender common.Address, assetID uint64) bool {
	rTx := prefixeddb.NewPrefixedReader(l.reader(), allowancePrefix)
	_, err := rTx.Get(allowanceKey(owner, spender, assetID))
	return err == nil
}

// SetAllowance stores an allowance ciphertext, replacing any previous one.
func (l *Ledger) SetAllowance(owner, spender common.Address, assetID uint64, ct *elgamal.Ciphertext) error {
	return l.writeAllowance(owner, spender, assetID, ct.Serialize())
}

// IncreaseAllowance homomorphically adds the delta to the stored allowance.
// A missing allowance is treated as a Set.
func (l *Ledger) IncreaseAllowance(owner, spender common.Address, assetID uint64, delta *elgamal.Ciphertext) error {
	current, err := l.Allowance(owner, spender, assetID)
	if errors.Is(err, ErrNoAllowance) {
		return l.SetAllowance(owner, spender, assetID, delta)
	} else if err != nil {
		return err
	}
	current.Add(current, delta)
	return l.writeAllowance(owner, spender, assetID, current.Serialize())
}

// DecreaseAllowance homomorphically subtracts the delta from the stored
// allowance.
func (l *Ledger) DecreaseAllowance(owner, spender common.Address, assetID uint64, delta *elgamal.Ciphertext) error {
	current, err := l.Allowance(owner, spender, assetID)
	if err != nil {
		return err
	}
	current.Sub(current, delta)
	return l.writeAllowance(owner, spender, assetID, current.Serialize())
}

// ClearAllowance removes the allowance record.
func (l *Ledger) ClearAllowance(owner, spender common.Address, assetID uint64) error {
	owned := !l.InBatch()
	if owned {
		if err := l.StartBatch(); err != nil {
			return err
		}
		defer l.Discard()
	}
	wTx := prefixeddb.NewPrefixedWriteTx(l.dbTx, allowancePrefix)
	if err := wTx.Delete(allowanceKey(owner, spender, assetID)); err != nil &&
		!errors.Is(err, db.ErrKeyNotFound) {
		return err
	}
	if owned {
		return l.EndBatch()
	}
	return nil
}

func (l *Ledger) writeAllowance(owner, spender common.Address, assetID uint64, data []byte) error {
	owned := !l.InBatch()
	if owned {
		if err := l.StartBatch(); err != nil {
			return err
		}
		defer l.Discard()
	}
	wTx := prefixeddb.NewPrefixedWriteTx(l.dbTx, allowancePrefix)
	if err := wTx.Set(allowanceKey(owner, spender, assetID), data); err != nil {
		return err
	}
	if owned {
		return l.EndBatch()
	}
	return nil
}
