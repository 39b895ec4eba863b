package storage

import (
	"encoding/binary"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/veil-protocol/veil/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	journalPrefix = []byte("jo/")
	keyNextOpSeq  = []byte("nextOpSeq")
)

// OperationKind identifies the top-level operation an OperationRecord
// describes.
type OperationKind string

const (
	OpDeposit        OperationKind = "deposit"
	OpWithdraw       OperationKind = "withdraw"
	OpRagequit       OperationKind = "ragequit"
	OpHybridDeposit  OperationKind = "hybridDeposit"
	OpHybridWithdraw OperationKind = "hybridWithdraw"
)

// OperationRecord is one entry of the processed-operation journal. The
// journal is an audit trail written after an operation commits; it is not
// consulted by any protocol guard.
type OperationRecord struct {
	ID        uuid.UUID      `json:"id"`
	Kind      OperationKind  `json:"kind"`
	Scope     *types.BigInt  `json:"scope"`
	Account   common.Address `json:"account"`
	Value     *types.BigInt  `json:"value"`
	Label     *types.BigInt  `json:"label,omitempty"`
	Nullifier *types.BigInt  `json:"nullifier,omitempty"`
	At        time.Time      `json:"at"`
}

// AppendOperation assigns the record an identifier and the next journal
// sequence number and stores it. The sequence advance and the record write
// share one transaction.
func (s *Storage) AppendOperation(rec *OperationRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}

	wTx := s.db.WriteTx()
	defer wTx.Discard()

	mTx := prefixeddb.NewPrefixedWriteTx(wTx, metaPrefix)
	seq := uint64(0)
	if data, err := mTx.Get(keyNextOpSeq); err == nil {
		seq = binary.BigEndian.Uint64(data)
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return uuid.Nil, err
	}
	data, err := encodeArtifact(rec)
	if err != nil {
		return uuid.Nil, err
	}
	jTx := prefixeddb.NewPrefixedWriteTx(wTx, journalPrefix)
	if err := jTx.Set(opSeqKey(seq), data); err != nil {
		return uuid.Nil, err
	}
	if err := mTx.Set(keyNextOpSeq, opSeqKey(seq+1)); err != nil {
		return uuid.Nil, err
	}
	return rec.ID, wTx.Commit()
}

// Operations returns the journal entries for the given scope in append
// order. A nil scope returns every entry.
func (s *Storage) Operations(scope *big.Int) ([]*OperationRecord, error) {
	pdb := prefixeddb.NewPrefixedDatabase(s.db, journalPrefix)
	var recs []*OperationRecord
	var iterErr error
	if err := pdb.Iterate(nil, func(_, v []byte) bool {
		rec := &OperationRecord{}
		if err := decodeArtifact(v, rec); err != nil {
			iterErr = err
			return false
		}
		if scope == nil || rec.Scope.MathBigInt().Cmp(scope) == 0 {
			recs = append(recs, rec)
		}
		return true
	}); err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return recs, nil
}

func opSeqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
