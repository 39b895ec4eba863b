package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s, err := New(metadb.NewTest(t), big.NewInt(1001))
	qt.Assert(t, err, qt.IsNil)
	return s
}

func insertOne(c *qt.C, s *State, leaf int64) *big.Int {
	c.Assert(s.StartBatch(), qt.IsNil)
	root, err := s.Insert(big.NewInt(leaf))
	c.Assert(err, qt.IsNil)
	c.Assert(s.EndBatch(), qt.IsNil)
	return root
}

func TestInsertAndRoot(t *testing.T) {
	c := qt.New(t)
	s := newTestState(t)

	root1 := insertOne(c, s, 100)
	c.Assert(root1.Sign(), qt.Not(qt.Equals), 0)

	size, err := s.Size()
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, uint64(1))

	current, err := s.Root()
	c.Assert(err, qt.IsNil)
	c.Assert(current.String(), qt.Equals, root1.String())

	c.Assert(s.HasLeaf(big.NewInt(100)), qt.IsTrue)
	c.Assert(s.HasLeaf(big.NewInt(101)), qt.IsFalse)
}

func TestInsertDuplicateLeaf(t *testing.T) {
	c := qt.New(t)
	s := newTestState(t)

	insertOne(c, s, 42)

	c.Assert(s.StartBatch(), qt.IsNil)
	_, err := s.Insert(big.NewInt(42))
	c.Assert(err, qt.ErrorIs, ErrDuplicateLeaf)
	s.Discard()
}

func TestInsertRequiresBatch(t *testing.T) {
	c := qt.New(t)
	s := newTestState(t)

	_, err := s.Insert(big.NewInt(1))
	c.Assert(err, qt.ErrorIs, ErrNoBatch)
}

func TestDiscardDropsInsertion(t *testing.T) {
	c := qt.New(t)
	s := newTestState(t)

	c.Assert(s.StartBatch(), qt.IsNil)
	_, err := s.Insert(big.NewInt(7))
	c.Assert(err, qt.IsNil)
	c.Assert(s.HasLeaf(big.NewInt(7)), qt.IsTrue) // staged view
	s.Discard()

	c.Assert(s.HasLeaf(big.NewInt(7)), qt.IsFalse)
	size, err := s.Size()
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, uint64(0))
}

func TestRootHistoryWindow(t *testing.T) {
	c := qt.New(t)
	s := newTestState(t)

	first := insertOne(c, s, 1)
	c.Assert(s.IsKnownRoot(first), qt.IsTrue)

	// after RootHistorySize-1 further insertions the first root is still
	// within the window
	var last *big.Int
	for i := int64(0); i < RootHistorySize-1; i++ {
		last = insertOne(c, s, 1000+i)
	}
	c.Assert(s.IsKnownRoot(first), qt.IsTrue)
	c.Assert(s.IsKnownRoot(last), qt.IsTrue)

	// one more insertion evicts it permanently
	insertOne(c, s, 5000)
	c.Assert(s.IsKnownRoot(first), qt.IsFalse)
	c.Assert(s.IsKnownRoot(last), qt.IsTrue)
}

func TestZeroRootNeverKnown(t *testing.T) {
	c := qt.New(t)
	s := newTestState(t)
	c.Assert(s.IsKnownRoot(big.NewInt(0)), qt.IsFalse)
	c.Assert(s.IsKnownRoot(nil), qt.IsFalse)
}

func TestSpendWriteOnce(t *testing.T) {
	c := qt.New(t)
	s := newTestState(t)

	n := big.NewInt(777)
	c.Assert(s.IsSpent(n), qt.IsFalse)

	c.Assert(s.StartBatch(), qt.IsNil)
	c.Assert(s.Spend(n), qt.IsNil)
	c.Assert(s.EndBatch(), qt.IsNil)
	c.Assert(s.IsSpent(n), qt.IsTrue)

	c.Assert(s.StartBatch(), qt.IsNil)
	c.Assert(s.Spend(n), qt.ErrorIs, ErrNullifierSpent)
	s.Discard()
	c.Assert(s.IsSpent(n), qt.IsTrue)
}

func TestDepositorRecords(t *testing.T) {
	c := qt.New(t)
	s := newTestState(t)

	label := big.NewInt(31337)
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	_, err := s.Depositor(label)
	c.Assert(err, qt.ErrorIs, ErrUnknownLabel)

	c.Assert(s.StartBatch(), qt.IsNil)
	c.Assert(s.SetDepositor(label, addr), qt.IsNil)
	c.Assert(s.EndBatch(), qt.IsNil)

	got, err := s.Depositor(label)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, addr)

	// records are write-once
	c.Assert(s.StartBatch(), qt.IsNil)
	c.Assert(s.SetDepositor(label, common.Address{}), qt.ErrorIs, ErrLabelExists)
	s.Discard()
}

func TestNextLabelNonce(t *testing.T) {
	c := qt.New(t)
	s := newTestState(t)

	c.Assert(s.StartBatch(), qt.IsNil)
	n1, err := s.NextLabelNonce()
	c.Assert(err, qt.IsNil)
	n2, err := s.NextLabelNonce()
	c.Assert(err, qt.IsNil)
	c.Assert(n2, qt.Equals, n1+1)
	c.Assert(s.EndBatch(), qt.IsNil)
}

func TestStatePersistence(t *testing.T) {
	c := qt.New(t)
	database := metadb.NewTest(t)

	s, err := New(database, big.NewInt(55))
	c.Assert(err, qt.IsNil)
	root := insertOne(c, s, 9)

	// reopening over the same database sees the committed state
	s2, err := New(database, big.NewInt(55))
	c.Assert(err, qt.IsNil)
	c.Assert(s2.HasLeaf(big.NewInt(9)), qt.IsTrue)
	c.Assert(s2.IsKnownRoot(root), qt.IsTrue)

	// a different scope does not
	s3, err := New(database, big.NewInt(56))
	c.Assert(err, qt.IsNil)
	c.Assert(s3.HasLeaf(big.NewInt(9)), qt.IsFalse)
}
