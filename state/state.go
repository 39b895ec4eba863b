// Package state implements the membership state of a pool instance: an
// append-only merkle tree of commitments, a bounded circular history of past
// roots, a write-once set of spent nullifiers and the depositor-of-label
// records. It is a pure data-structure and invariant layer; proof
// verification happens in the packages that consume it.
//
// All mutations go through a batch (a single database write transaction):
// a top-level operation either commits every write it staged or none of
// them.
package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/veil-protocol/veil/types"
)

const (
	// MaxLevels is the maximum depth of the commitment tree.
	MaxLevels = types.StateTreeMaxLevels
	// MaxKeyLen is ceil(MaxLevels/8), the tree key size in bytes.
	MaxKeyLen = (MaxLevels + 7) / 8
	// RootHistorySize is the capacity of the circular root buffer.
	RootHistorySize = types.RootHistorySize
)

// hashLen is the byte length of serialized roots and leaves.
const hashLen = 32

// Key prefixes inside a pool's keyspace.
var (
	treePrefix      = []byte("t/")
	rootPrefix      = []byte("r/")
	leafPrefix      = []byte("c/")
	nullifierPrefix = []byte("n/")
	depositorPrefix = []byte("d/")
	metaPrefix      = []byte("m/")
)

// Meta keys.
var (
	keyRootIndex  = []byte("rootIndex")
	keyLeafCount  = []byte("leafCount")
	keyLabelNonce = []byte("labelNonce")
)

var (
	// ErrNoBatch is returned when a mutation is attempted outside a batch.
	ErrNoBatch = fmt.Errorf("need to StartBatch() first")
	// ErrBatchOpen is returned by StartBatch if a batch is already open.
	ErrBatchOpen = fmt.Errorf("batch already open")
	// ErrDuplicateLeaf is returned when inserting a commitment that is
	// already present in the tree.
	ErrDuplicateLeaf = fmt.Errorf("leaf already exists in the state tree")
	// ErrTreeFull is returned when an insertion would exceed the maximum
	// tree depth.
	ErrTreeFull = fmt.Errorf("state tree is full")
	// ErrNullifierSpent is returned when spending an already spent
	// nullifier. The spent flag is write-once and never reset.
	ErrNullifierSpent = fmt.Errorf("nullifier already spent")
	// ErrUnknownLabel is returned when no depositor is recorded for a label.
	ErrUnknownLabel = fmt.Errorf("unknown label")
	// ErrLabelExists is returned when recording a depositor for a label
	// that already has one.
	ErrLabelExists = fmt.Errorf("label already has a depositor")
)

// State is the membership state of one pool instance. The pool scope is
// used as keyspace prefix, so multiple pools can share one database.
type State struct {
	pdb   db.Database
	tree  *arbo.Tree
	scope *big.Int

	dbTx  db.WriteTx
	ownTx bool
}

// New opens (or creates) the membership state for the given pool scope over
// the passed database.
func New(database db.Database, scope *big.Int) (*State, error) {
	pdb := prefixeddb.NewPrefixedDatabase(database, scopeKey(scope))
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(pdb, treePrefix),
		MaxLevels:    MaxLevels,
		HashFunction: arbo.HashFunctionPoseidon,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state tree: %w", err)
	}
	s := &State{
		pdb:   pdb,
		tree:  tree,
		scope: scope,
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

// init seeds the root history with the empty-tree root on first open.
func (s *State) init() error {
	rTx := prefixeddb.NewPrefixedReader(s.pdb, metaPrefix)
	if _, err := rTx.Get(keyRootIndex); err == nil {
		return nil
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return err
	}
	root, err := s.tree.Root()
	if err != nil {
		return fmt.Errorf("failed to get initial root: %w", err)
	}
	wTx := s.pdb.WriteTx()
	defer wTx.Discard()
	if err := prefixeddb.NewPrefixedWriteTx(wTx, rootPrefix).Set(rootSlotKey(0), root); err != nil {
		return err
	}
	mTx := prefixeddb.NewPrefixedWriteTx(wTx, metaPrefix)
	if err := mTx.Set(keyRootIndex, encodeUint64(0)); err != nil {
		return err
	}
	if err := mTx.Set(keyLeafCount, encodeUint64(0)); err != nil {
		return err
	}
	if err := mTx.Set(keyLabelNonce, encodeUint64(0)); err != nil {
		return err
	}
	return wTx.Commit()
}

// Scope returns the pool scope this state belongs to.
func (s *State) Scope() *big.Int {
	return new(big.Int).Set(s.scope)
}

// StartBatch opens a new write transaction owned by the state. All
// mutations until EndBatch or Discard are staged on it.
func (s *State) StartBatch() error {
	if s.dbTx != nil {
		return ErrBatchOpen
	}
	s.dbTx = s.pdb.WriteTx()
	s.ownTx = true
	return nil
}

// StartBatchWithTx stages mutations on an externally owned write
// transaction. The caller keeps the responsibility of committing or
// discarding it; EndBatch and Discard only detach the state from it.
func (s *State) StartBatchWithTx(wTx db.WriteTx) error {
	if s.dbTx != nil {
		return ErrBatchOpen
	}
	s.dbTx = prefixeddb.NewPrefixedWriteTx(wTx, scopeKey(s.scope))
	s.ownTx = false
	return nil
}

// InBatch reports whether a batch is currently open.
func (s *State) InBatch() bool {
	return s.dbTx != nil
}

// EndBatch commits the batch if the state owns it, and detaches it
// otherwise.
func (s *State) EndBatch() error {
	if s.dbTx == nil {
		return ErrNoBatch
	}
	var err error
	if s.ownTx {
		err = s.dbTx.Commit()
	}
	s.dbTx = nil
	return err
}

// Discard drops the staged mutations if the state owns the batch, and
// detaches from the external transaction otherwise. Calling Discard with no
// open batch is a no-op, so it can be deferred unconditionally.
func (s *State) Discard() {
	if s.dbTx == nil {
		return
	}
	if s.ownTx {
		s.dbTx.Discard()
	}
	s.dbTx = nil
}

// reader returns the staged view during a batch, or the committed view.
func (s *State) reader() db.Reader {
	if s.dbTx != nil {
		return s.dbTx
	}
	return s.pdb
}

// Insert appends a commitment leaf to the tree and returns the new root.
// It errors with ErrDuplicateLeaf if the commitment is already present and
// with ErrTreeFull if the insertion would exceed the maximum depth. The new
// root is stored in the next slot of the circular root history.
func (s *State) Insert(leaf *big.Int) (*big.Int, error) {
	if s.dbTx == nil {
		return nil, ErrNoBatch
	}
	leafBytes := arbo.BigIntToBytes(hashLen, leaf)
	lTx := prefixeddb.NewPrefixedWriteTx(s.dbTx, leafPrefix)
	if _, err := lTx.Get(leafBytes); err == nil {
		return nil, ErrDuplicateLeaf
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return nil, err
	}

	count, err := s.metaUint64(keyLeafCount)
	if err != nil {
		return nil, err
	}
	if count >= uint64(1)<<MaxLevels {
		return nil, ErrTreeFull
	}

	treeTx := prefixeddb.NewPrefixedWriteTx(s.dbTx, treePrefix)
	key := arbo.BigIntToBytes(MaxKeyLen, new(big.Int).SetUint64(count))
	if err := s.tree.AddWithTx(treeTx, key, leafBytes); err != nil {
		return nil, fmt.Errorf("failed to add leaf: %w", err)
	}
	root, err := s.tree.RootWithTx(treeTx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute new root: %w", err)
	}

	// advance the circular root history pointer
	rootIndex, err := s.metaUint64(keyRootIndex)
	if err != nil {
		return nil, err
	}
	rootIndex = (rootIndex + 1) % RootHistorySize
	rTx := prefixeddb.NewPrefixedWriteTx(s.dbTx, rootPrefix)
	if err := rTx.Set(rootSlotKey(rootIndex), root); err != nil {
		return nil, err
	}
	if err := lTx.Set(leafBytes, encodeUint64(count)); err != nil {
		return nil, err
	}
	mTx := prefixeddb.NewPrefixedWriteTx(s.dbTx, metaPrefix)
	if err := mTx.Set(keyRootIndex, encodeUint64(rootIndex)); err != nil {
		return nil, err
	}
	if err := mTx.Set(keyLeafCount, encodeUint64(count+1)); err != nil {
		return nil, err
	}
	return arbo.BytesToBigInt(root), nil
}

// HasLeaf reports whether the commitment is present in the tree.
func (s *State) HasLeaf(leaf *big.Int) bool {
	rTx := prefixeddb.NewPrefixedReader(s.reader(), leafPrefix)
	_, err := rTx.Get(arbo.BigIntToBytes(hashLen, leaf))
	return err == nil
}

// Root returns the current tree root.
func (s *State) Root() (*big.Int, error) {
	if s.dbTx != nil {
		root, err := s.tree.RootWithTx(prefixeddb.NewPrefixedWriteTx(s.dbTx, treePrefix))
		if err != nil {
			return nil, err
		}
		return arbo.BytesToBigInt(root), nil
	}
	root, err := s.tree.Root()
	if err != nil {
		return nil, err
	}
	return arbo.BytesToBigInt(root), nil
}

// RootAt returns the historical root stored at the given buffer slot.
func (s *State) RootAt(index uint64) (*big.Int, error) {
	if index >= RootHistorySize {
		return nil, fmt.Errorf("root index %d out of range", index)
	}
	rTx := prefixeddb.NewPrefixedReader(s.reader(), rootPrefix)
	root, err := rTx.Get(rootSlotKey(index))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	return arbo.BytesToBigInt(root), nil
}

// IsKnownRoot reports whether the given root is within the history window.
// The zero root is never known. The buffer is scanned from the most recent
// slot backwards, so fresh proofs resolve in one comparison.
func (s *State) IsKnownRoot(root *big.Int) bool {
	if root == nil || root.Sign() == 0 {
		return false
	}
	want := arbo.BigIntToBytes(hashLen, root)
	rootIndex, err := s.metaUint64(keyRootIndex)
	if err != nil {
		return false
	}
	rTx := prefixeddb.NewPrefixedReader(s.reader(), rootPrefix)
	for i := uint64(0); i < RootHistorySize; i++ {
		slot := (rootIndex + RootHistorySize - i) % RootHistorySize
		stored, err := rTx.Get(rootSlotKey(slot))
		if err != nil {
			continue
		}
		if bytes.Equal(stored, want) {
			return true
		}
	}
	return false
}

// Size returns the number of leaves in the tree.
func (s *State) Size() (uint64, error) {
	return s.metaUint64(keyLeafCount)
}

// NextLabelNonce increments and returns the label derivation nonce. Must be
// called inside a batch so the nonce advances atomically with the deposit
// that consumes it.
func (s *State) NextLabelNonce() (uint64, error) {
	if s.dbTx == nil {
		return 0, ErrNoBatch
	}
	nonce, err := s.metaUint64(keyLabelNonce)
	if err != nil {
		return 0, err
	}
	nonce++
	mTx := prefixeddb.NewPrefixedWriteTx(s.dbTx, metaPrefix)
	if err := mTx.Set(keyLabelNonce, encodeUint64(nonce)); err != nil {
		return 0, err
	}
	return nonce, nil
}

func (s *State) metaUint64(key []byte) (uint64, error) {
	rTx := prefixeddb.NewPrefixedReader(s.reader(), metaPrefix)
	data, err := rTx.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

func scopeKey(scope *big.Int) []byte {
	return append([]byte("s/"), arbo.BigIntToBytes(hashLen, scope)...)
}

func rootSlotKey(index uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, index)
	return key
}

func encodeUint64(v uint64) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, v)
	return data
}
