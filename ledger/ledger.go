// Package ledger implements the encrypted balance ledger: per-(owner,
// asset) ElGamal ciphertexts mutated only through homomorphic combination,
// gated by zero-knowledge proofs and mirrored to a compliance auditor key.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/veil-protocol/veil/crypto/ecc"
	"github.com/veil-protocol/veil/crypto/ecc/curves"
	"github.com/veil-protocol/veil/crypto/elgamal"
	"github.com/veil-protocol/veil/storage"
	"github.com/veil-protocol/veil/zk"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	ledgerPrefix    = []byte("l/")
	balancePrefix   = []byte("b/")
	allowancePrefix = []byte("a/")
)

// Config wires a Ledger to its collaborators.
type Config struct {
	Database         db.Database
	Storage          *storage.Storage
	Authority        common.Address
	MintVerifier     zk.Verifier
	BurnVerifier     zk.Verifier
	TransferVerifier zk.Verifier
	Tokens           TokenTransfer
}

// Ledger is the encrypted balance ledger. All mutations happen inside a
// batch: top-level operations open their own, the hybrid coordinator
// attaches the ledger to a shared transaction instead.
type Ledger struct {
	pdb              db.Database
	stg              *storage.Storage
	curve            ecc.Point
	authority        common.Address
	mintVerifier     zk.Verifier
	burnVerifier     zk.Verifier
	transferVerifier zk.Verifier
	tokens           TokenTransfer

	dbTx  db.WriteTx
	ownTx bool
}

// New creates a Ledger over the given collaborators.
func New(cfg Config) (*Ledger, error) {
	if cfg.Database == nil || cfg.Storage == nil {
		return nil, fmt.Errorf("database and storage are required")
	}
	if cfg.Authority == (common.Address{}) {
		return nil, fmt.Errorf("zero address configuration")
	}
	if cfg.MintVerifier == nil || cfg.BurnVerifier == nil || cfg.TransferVerifier == nil {
		return nil, fmt.Errorf("verifiers are required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token transfer is required")
	}
	return &Ledger{
		pdb:              prefixeddb.NewPrefixedDatabase(cfg.Database, ledgerPrefix),
		stg:              cfg.Storage,
		curve:            curves.New(curves.CurveTypeBabyJubJub),
		authority:        cfg.Authority,
		mintVerifier:     cfg.MintVerifier,
		burnVerifier:     cfg.BurnVerifier,
		transferVerifier: cfg.TransferVerifier,
		tokens:           cfg.Tokens,
	}, nil
}

// Curve returns the prototype point of the ledger's curve.
func (l *Ledger) Curve() ecc.Point {
	return l.curve
}

// StartBatch opens a write transaction owned by the ledger.
func (l *Ledger) StartBatch() error {
	if l.dbTx != nil {
		return ErrBatchOpen
	}
	l.dbTx = l.pdb.WriteTx()
	l.ownTx = true
	return nil
}

// StartBatchWithTx attaches the ledger to an externally owned transaction.
// EndBatch and Discard then leave committing to the owner.
func (l *Ledger) StartBatchWithTx(wTx db.WriteTx) error {
	if l.dbTx != nil {
		return ErrBatchOpen
	}
	l.dbTx = prefixeddb.NewPrefixedWriteTx(wTx, ledgerPrefix)
	l.ownTx = false
	return nil
}

// InBatch reports whether a batch is open.
func (l *Ledger) InBatch() bool {
	return l.dbTx != nil
}

// EndBatch closes the batch, committing if the ledger owns the transaction.
func (l *Ledger) EndBatch() error {
	if l.dbTx == nil {
		return ErrNoBatch
	}
	defer func() { l.dbTx = nil }()
	if l.ownTx {
		return l.dbTx.Commit()
	}
	return nil
}

// Discard drops the open batch, if any.
func (l *Ledger) Discard() {
	if l.dbTx == nil {
		return
	}
	if l.ownTx {
		l.dbTx.Discard()
	}
	l.dbTx = nil
}

// reader returns the open transaction when a batch is in progress, so reads
// see staged writes, and the database otherwise.
func (l *Ledger) reader() db.Reader {
	if l.dbTx != nil {
		return l.dbTx
	}
	return l.pdb
}

// Balance loads the encrypted balance of (owner, asset). A missing record
// is returned as an empty balance, not an error.
func (l *Ledger) Balance(owner common.Address, assetID uint64) (*EncryptedBalance, error) {
	rTx := prefixeddb.NewPrefixedReader(l.reader(), balancePrefix)
	data, err := rTx.Get(balanceKey(owner, assetID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return &EncryptedBalance{}, nil
		}
		return nil, err
	}
	sb := &storedBalance{}
	if err := decodeBalance(data, sb); err != nil {
		return nil, err
	}
	return l.fromStored(sb)
}

// setBalance persists the balance inside the open batch.
func (l *Ledger) setBalance(owner common.Address, assetID uint64, b *EncryptedBalance) error {
	if l.dbTx == nil {
		return ErrNoBatch
	}
	data, err := encodeBalance(b.toStored())
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(l.dbTx, balancePrefix)
	return wTx.Set(balanceKey(owner, assetID), data)
}

// cipherFromSignals rebuilds a ciphertext from its public-signal
// coordinates.
func (l *Ledger) cipherFromSignals(e zk.EGCTSignals) *elgamal.Ciphertext {
	ct := elgamal.NewCiphertext(l.curve)
	ct.C1 = l.curve.New().SetPoint(e.C1X, e.C1Y)
	ct.C2 = l.curve.New().SetPoint(e.C2X, e.C2Y)
	return ct
}

// auditorGuard checks that an auditor is configured and that the proof
// carries its key.
func (l *Ledger) auditorGuard(pk zk.PublicKey) error {
	rec, err := l.stg.Auditor()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrAuditorNotSet
		}
		return err
	}
	if rec.PublicKeyX.MathBigInt().Cmp(pk.X) != 0 ||
		rec.PublicKeyY.MathBigInt().Cmp(pk.Y) != 0 {
		return ErrAuditorKeyMismatch
	}
	return nil
}

// userGuard checks that the address is registered and that the proof
// carries its registered key.
func (l *Ledger) userGuard(addr common.Address, pk zk.PublicKey) error {
	rec, err := l.stg.Identity(addr)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotRegistered
		}
		return err
	}
	if rec.PublicKeyX.MathBigInt().Cmp(pk.X) != 0 ||
		rec.PublicKeyY.MathBigInt().Cmp(pk.Y) != 0 {
		return ErrPublicKeyMismatch
	}
	return nil
}

func balanceKey(owner common.Address, assetID uint64) []byte {
	key := make([]byte, 0, common.AddressLength+8)
	key = append(key, owner.Bytes()...)
	return binary.BigEndian.AppendUint64(key, assetID)
}

func allowanceKey(owner, spender common.Address, assetID uint64) []byte {
	key := make([]byte, 0, 2*common.AddressLength+8)
	key = append(key, owner.Bytes()...)
	key = append(key, spender.Bytes()...)
	return binary.BigEndian.AppendUint64(key, assetID)
}
