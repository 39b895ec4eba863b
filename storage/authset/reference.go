package authset

import (
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/arbo"
)

// SetRef is a reference to an authorized set. It holds the Merkle tree.
// All accesses to the underlying tree (and its currentRoot) are protected
// by treeMu.
type SetRef struct {
	ID          uuid.UUID
	MaxLevels   int
	HashType    string
	LastUsed    time.Time
	currentRoot []byte
	tree        *arbo.Tree `gob:"-"`
	// treeMu protects all access to the underlying Merkle tree.
	treeMu sync.Mutex `gob:"-"`
	// updateRootRequest is the channel to send asynchronous root update requests.
	updateRootRequest chan *updateRootRequest `gob:"-"`
}

// InclusionProof is a Merkle proof of membership in an authorized set.
type InclusionProof struct {
	Root     []byte `json:"root"`
	Key      []byte `json:"key"`
	Value    []byte `json:"value"`
	Siblings []byte `json:"siblings"`
}

// Tree returns the underlying arbo.Tree pointer.
// (Not concurrency-safe; use Insert, Root, or GenProof.)
func (sr *SetRef) Tree() *arbo.Tree {
	return sr.tree
}

// SetTree sets the arbo.Tree pointer.
func (sr *SetRef) SetTree(tree *arbo.Tree) {
	sr.tree = tree
}

// sendUpdateRoot sends an update request over the channel and waits until
// processed.
func (sr *SetRef) sendUpdateRoot(newRoot []byte) error {
	done := make(chan struct{})
	req := &updateRootRequest{
		setID:   sr.ID,
		newRoot: newRoot,
		done:    done,
	}
	sr.updateRootRequest <- req
	<-done
	return nil
}

// Insert safely inserts a key/value pair into the Merkle tree.
// It holds treeMu during the Add and Root calls.
func (sr *SetRef) Insert(key, value []byte) error {
	sr.treeMu.Lock()
	err := sr.tree.Add(key, value)
	if err != nil {
		sr.treeMu.Unlock()
		return err
	}
	newRoot, err := sr.tree.Root()
	sr.treeMu.Unlock()
	if err != nil {
		return err
	}
	return sr.sendUpdateRoot(newRoot)
}

// InsertBatch safely inserts a batch of key/value pairs into the Merkle tree.
func (sr *SetRef) InsertBatch(keys, values [][]byte) ([]arbo.Invalid, error) {
	sr.treeMu.Lock()
	invalid, err := sr.tree.AddBatch(keys, values)
	if err != nil {
		sr.treeMu.Unlock()
		return invalid, err
	}
	newRoot, err := sr.tree.Root()
	sr.treeMu.Unlock()
	if err != nil {
		return invalid, err
	}
	return invalid, sr.sendUpdateRoot(newRoot)
}

// Authorize adds a deposit label to the set.
func (sr *SetRef) Authorize(label *big.Int) error {
	key := arbo.BigIntToBytes(32, label)
	return sr.Insert(key, key)
}

// Root safely returns the current Merkle tree root.
func (sr *SetRef) Root() []byte {
	sr.treeMu.Lock()
	defer sr.treeMu.Unlock()
	root, err := sr.tree.Root()
	if err != nil {
		return nil
	}
	return root
}

// LatestRoot returns the current root as a big integer, as withdrawal
// public signals carry it.
func (sr *SetRef) LatestRoot() (*big.Int, error) {
	root := sr.Root()
	if root == nil {
		return nil, ErrSetNotFound
	}
	return arbo.BytesToBigInt(root), nil
}

// Size safely returns the number of leaves in the Merkle tree.
func (sr *SetRef) Size() int {
	sr.treeMu.Lock()
	defer sr.treeMu.Unlock()
	size, err := sr.tree.GetNLeafs()
	if err != nil {
		return 0
	}
	return size
}

// GenProof safely generates a Merkle proof for the given leaf key.
// It returns the proof components and an inclusion boolean.
func (sr *SetRef) GenProof(key []byte) ([]byte, []byte, []byte, bool, error) {
	sr.treeMu.Lock()
	defer sr.treeMu.Unlock()
	return sr.tree.GenProof(key)
}

// VerifyProof verifies a Merkle proof for the given leaf key.
func VerifyProof(key, value, root, siblings []byte) bool {
	valid, err := arbo.CheckProof(defaultHashFunction, key, value, root, siblings)
	if err != nil {
		return false
	}
	return valid
}
