// Package storage holds the configuration artifacts of the protocol in a
// prefixed key-value store: the auditor record, the registered assets, the
// identity registry and the pool and coordinator status flags. The following
// prefixes are used:
//   - 'au/' for the auditor record
//   - 'as/' for registered assets
//   - 'at/' for the asset token index (external token address -> asset id)
//   - 'ir/' for the identity registry
//   - 'fl/' for status flags
//   - 'jo/' for the processed-operation journal
//   - 'm/'  for counters and other metadata
package storage

import (
	"errors"
	"fmt"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	auditorPrefix    = []byte("au/")
	assetPrefix      = []byte("as/")
	assetTokenPrefix = []byte("at/")
	identityPrefix   = []byte("ir/")
	flagPrefix       = []byte("fl/")
	metaPrefix       = []byte("m/")
)

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = fmt.Errorf("artifact not found")

// Storage is the interface that wraps the basic methods to interact with the
// configuration store.
type Storage struct {
	db db.Database
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	s.db.Close()
}

// setArtifact encodes and stores an artifact under the given prefix and key.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getArtifact retrieves and decodes an artifact. It returns ErrNotFound if
// the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rTx := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := rTx.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(data, out)
}

// listArtifacts returns the keys stored under the given prefix.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	pdb := prefixeddb.NewPrefixedDatabase(s.db, prefix)
	var keys [][]byte
	if err := pdb.Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, append([]byte(nil), k...))
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}
