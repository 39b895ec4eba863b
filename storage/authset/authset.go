// Package authset is a persistent database of authorized-set Merkle trees.
// An authorized set is the list of deposit labels an association-set
// provider has approved; withdrawal proofs are verified against the latest
// root of the set bound to the pool scope.
package authset

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/veil-protocol/veil/types"
	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
	"go.vocdoni.io/dvote/log"
)

const (
	setDBprefix          = "as_"
	setDBreferencePrefix = "ar_"
)

var (
	// ErrSetNotFound is returned when a set is not found in the database.
	ErrSetNotFound = fmt.Errorf("authorized set not found in the local database")
	// ErrSetAlreadyExists is returned by New() if the set already exists.
	ErrSetAlreadyExists = fmt.Errorf("authorized set already exists in the local database")
	// ErrKeyNotFound is returned when a key is not found in the Merkle tree.
	ErrKeyNotFound = fmt.Errorf("key not found")

	defaultHashFunction = arbo.HashFunctionPoseidon
)

// updateRootRequest is used to update the root of a set tree.
type updateRootRequest struct {
	setID   uuid.UUID
	newRoot []byte
	done    chan struct{}
}

// rootKey converts a root (a byte slice) to its canonical hexadecimal string.
func rootKey(root []byte) string {
	return hex.EncodeToString(root)
}

// Registry is a safe and persistent database of authorized-set trees.
// It maintains an in-memory index mapping Merkle tree roots (in hexadecimal
// form) to set IDs.
type Registry struct {
	mu        sync.RWMutex
	db        db.Database
	loaded    map[uuid.UUID]*SetRef
	rootIndex map[string]uuid.UUID // maps hex(root) to setID

	updateRootChan chan *updateRootRequest
}

// NewRegistry creates a new Registry object.
func NewRegistry(db db.Database) *Registry {
	r := &Registry{
		db:             db,
		loaded:         make(map[uuid.UUID]*SetRef),
		rootIndex:      make(map[string]uuid.UUID),
		updateRootChan: make(chan *updateRootRequest, 100),
	}

	// Start the root update worker.
	go func() {
		for req := range r.updateRootChan {
			if err := r.updateRoot(req.setID, req.newRoot); err != nil {
				log.Warnw("error updating authorized set root",
					"id", hex.EncodeToString(req.setID[:]),
					"err", err)
			}
			if req.done != nil {
				close(req.done)
			}
		}
	}()

	return r
}

// New creates a new authorized set and adds it to the database.
// It returns ErrSetAlreadyExists if a set with the given ID is already
// present.
func (r *Registry) New(setID uuid.UUID) (*SetRef, error) {
	key := append([]byte(setDBreferencePrefix), setID[:]...)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Check in-memory.
	if _, exists := r.loaded[setID]; exists {
		return nil, ErrSetAlreadyExists
	}
	// Check persistent DB.
	if _, err := r.db.Get(key); err == nil {
		return nil, ErrSetAlreadyExists
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return nil, err
	}

	ref := &SetRef{
		ID:        setID,
		MaxLevels: types.AuthorizedSetMaxLevels,
		HashType:  string(defaultHashFunction.Type()),
		LastUsed:  time.Now(),
	}

	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(r.db, setPrefix(setID)),
		MaxLevels:    types.AuthorizedSetMaxLevels,
		HashFunction: defaultHashFunction,
	})
	if err != nil {
		return nil, err
	}
	ref.SetTree(tree)
	root, err := tree.Root()
	if err != nil {
		return nil, err
	}
	ref.currentRoot = root
	ref.updateRootRequest = r.updateRootChan

	if err := r.writeReference(ref); err != nil {
		return nil, err
	}

	r.loaded[setID] = ref
	rk := rootKey(root)
	if _, exists := r.rootIndex[rk]; !exists {
		r.rootIndex[rk] = setID
	}

	return ref, nil
}

// writeReference writes a set reference to the database.
func (r *Registry) writeReference(ref *SetRef) error {
	key := append([]byte(setDBreferencePrefix), ref.ID[:]...)
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ref); err != nil {
		return err
	}
	wtx := r.db.WriteTx()
	defer wtx.Discard()
	if err := wtx.Set(key, buf.Bytes()); err != nil {
		return err
	}
	return wtx.Commit()
}

// Exists returns true if the setID exists in the local database.
func (r *Registry) Exists(setID uuid.UUID) bool {
	r.mu.RLock()
	_, exists := r.loaded[setID]
	r.mu.RUnlock()
	if exists {
		return true
	}
	key := append([]byte(setDBreferencePrefix), setID[:]...)
	_, err := r.db.Get(key)
	return err == nil
}

// Load returns a set from memory or from the persistent KV database.
func (r *Registry) Load(setID uuid.UUID) (*SetRef, error) {
	r.mu.RLock()
	if ref, exists := r.loaded[setID]; exists {
		r.mu.RUnlock()
		return ref, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	key := append([]byte(setDBreferencePrefix), setID[:]...)
	b, err := r.db.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %x", ErrSetNotFound, setID)
		}
		return nil, err
	}

	var ref SetRef
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&ref); err != nil {
		return nil, err
	}

	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(r.db, setPrefix(setID)),
		MaxLevels:    ref.MaxLevels,
		HashFunction: defaultHashFunction,
	})
	if err != nil {
		return nil, err
	}
	ref.tree = tree
	root, err := tree.Root()
	if err != nil {
		return nil, err
	}
	ref.currentRoot = root
	ref.updateRootRequest = r.updateRootChan

	ref.LastUsed = time.Now()
	if err := r.writeReference(&ref); err != nil {
		return nil, err
	}

	r.loaded[setID] = &ref
	rk := rootKey(root)
	if _, exists := r.rootIndex[rk]; !exists {
		r.rootIndex[rk] = setID
	}
	return &ref, nil
}

// Del removes a set from the database and memory.
func (r *Registry) Del(setID uuid.UUID) error {
	key := append([]byte(setDBreferencePrefix), setID[:]...)
	wtx := r.db.WriteTx()
	if err := wtx.Delete(key); err != nil {
		wtx.Discard()
		return err
	}
	if err := wtx.Commit(); err != nil {
		return err
	}

	r.mu.Lock()
	if ref, exists := r.loaded[setID]; exists {
		delete(r.rootIndex, rootKey(ref.currentRoot))
		delete(r.loaded, setID)
	}
	r.mu.Unlock()

	go func(id uuid.UUID) {
		if _, err := deleteSetTreeFromDatabase(r.db, setPrefix(id)); err != nil {
			log.Warnw("error deleting authorized set tree",
				"id", hex.EncodeToString(id[:]), "err", err)
		}
	}(setID)

	return nil
}

// deleteSetTreeFromDatabase removes all keys belonging to a set tree.
func deleteSetTreeFromDatabase(kv db.Database, prefix []byte) (int, error) {
	database := prefixeddb.NewPrefixedDatabase(kv, prefix)
	wtx := database.WriteTx()
	count := 0
	err := database.Iterate(nil, func(k, _ []byte) bool {
		if err := wtx.Delete(k); err != nil {
			log.Warnw("could not remove key from database", "key", hex.EncodeToString(k))
		} else {
			count++
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	return count, wtx.Commit()
}

// ProofByRoot finds a set by its Merkle tree root and generates a Merkle
// proof for the given leafKey.
func (r *Registry) ProofByRoot(root, leafKey []byte) (*InclusionProof, error) {
	rk := rootKey(root)
	r.mu.RLock()
	setID, exists := r.rootIndex[rk]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("no authorized set found with the provided root")
	}
	ref, err := r.Load(setID)
	if err != nil {
		return nil, err
	}
	key, value, siblings, inclusion, err := ref.GenProof(leafKey)
	if err != nil {
		return nil, err
	}
	if !inclusion {
		return nil, ErrKeyNotFound
	}

	return &InclusionProof{
		Root:     root,
		Key:      key,
		Value:    value,
		Siblings: siblings,
	}, nil
}

// SizeByRoot returns the number of leaves in the tree with the given root.
func (r *Registry) SizeByRoot(root []byte) (int, error) {
	rk := rootKey(root)
	r.mu.RLock()
	setID, exists := r.rootIndex[rk]
	r.mu.RUnlock()
	if !exists {
		return 0, fmt.Errorf("no authorized set found with the provided root")
	}
	ref, err := r.Load(setID)
	if err != nil {
		return 0, err
	}
	return ref.Size(), nil
}

// updateRoot recalculates the root index entry for a given set.
func (r *Registry) updateRoot(setID uuid.UUID, newRoot []byte) error {
	newKey := rootKey(newRoot)
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, exists := r.loaded[setID]
	if !exists {
		return ErrSetNotFound
	}

	ref.treeMu.Lock()
	oldKey := rootKey(ref.currentRoot)
	if oldKey == newKey {
		ref.treeMu.Unlock()
		return nil
	}
	ref.currentRoot = append([]byte(nil), newRoot...)
	ref.treeMu.Unlock()

	delete(r.rootIndex, oldKey)
	r.rootIndex[newKey] = setID
	return nil
}

// setPrefix returns the prefix used for the set tree in the database.
func setPrefix(setID uuid.UUID) []byte {
	return append([]byte(setDBprefix), setID[:]...)
}
