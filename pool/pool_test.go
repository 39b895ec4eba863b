package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/veil-protocol/veil/state"
	"github.com/veil-protocol/veil/storage"
	"github.com/veil-protocol/veil/storage/authset"
	"github.com/veil-protocol/veil/types"
	"github.com/veil-protocol/veil/zk"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	authority = common.HexToAddress("0x0000000000000000000000000000000000000001")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	relayer   = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

type testPool struct {
	pool     *Pool
	book     *AccountBook
	authSet  *authset.SetRef
	withdraw *zk.StaticVerifier
	ragequit *zk.StaticVerifier
}

func newTestPool(t *testing.T) *testPool {
	t.Helper()
	database := metadb.NewTest(t)
	scope, err := ComputeScope(1, common.HexToAddress("0x01"), 1)
	qt.Assert(t, err, qt.IsNil)
	st, err := state.New(database, scope)
	qt.Assert(t, err, qt.IsNil)

	registry := authset.NewRegistry(metadb.NewTest(t))
	ref, err := registry.New(uuid.New())
	qt.Assert(t, err, qt.IsNil)

	book := NewAccountBook()
	withdrawVerifier := &zk.StaticVerifier{}
	ragequitVerifier := &zk.StaticVerifier{}
	p, err := New(Config{
		Storage:          storage.New(database),
		State:            st,
		Authority:        authority,
		WithdrawVerifier: withdrawVerifier,
		RagequitVerifier: ragequitVerifier,
		AuthorizedSet:    ref,
		Assets:           book,
	})
	qt.Assert(t, err, qt.IsNil)
	return &testPool{
		pool:     p,
		book:     book,
		authSet:  ref,
		withdraw: withdrawVerifier,
		ragequit: ragequitVerifier,
	}
}

// withdrawSignals builds an accepting signal set consuming the given
// nullifier for the given request.
func (tp *testPool) withdrawSignals(t *testing.T, req *WithdrawalRequest, nullifier, newCommitment, value *big.Int) *zk.WithdrawSignals {
	t.Helper()
	root, err := tp.pool.State().Root()
	qt.Assert(t, err, qt.IsNil)
	aspRoot, err := tp.authSet.LatestRoot()
	qt.Assert(t, err, qt.IsNil)
	ctx, err := req.Context(tp.pool.Scope())
	qt.Assert(t, err, qt.IsNil)
	return &zk.WithdrawSignals{
		NewCommitmentHash: newCommitment,
		NullifierHash:     nullifier,
		Value:             value,
		StateRoot:         root,
		StateTreeDepth:    big.NewInt(int64(types.StateTreeMaxLevels)),
		ASPRoot:           aspRoot,
		ASPTreeDepth:      big.NewInt(int64(types.AuthorizedSetMaxLevels)),
		Context:           ctx,
	}
}

func TestDeposit(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t)
	tp.book.Credit(alice, big.NewInt(1000))

	receipt, err := tp.pool.Deposit(alice, big.NewInt(100), big.NewInt(12345))
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.Commitment.Sign(), qt.Not(qt.Equals), 0)
	c.Assert(receipt.Label.Sign(), qt.Not(qt.Equals), 0)
	c.Assert(tp.pool.State().HasLeaf(receipt.Commitment), qt.IsTrue)
	c.Assert(tp.book.BalanceOf(alice).Int64(), qt.Equals, int64(900))
	c.Assert(tp.book.Custody().Int64(), qt.Equals, int64(100))

	// labels are unique per deposit
	receipt2, err := tp.pool.Deposit(alice, big.NewInt(100), big.NewInt(12345))
	c.Assert(err, qt.IsNil)
	c.Assert(receipt2.Label.Cmp(receipt.Label), qt.Not(qt.Equals), 0)
}

func TestDepositZeroValue(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t)

	receipt, err := tp.pool.Deposit(alice, big.NewInt(0), big.NewInt(1))
	c.Assert(err, qt.IsNil)
	c.Assert(tp.pool.State().HasLeaf(receipt.Commitment), qt.IsTrue)
}

func TestDepositValueBound(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t)

	_, err := tp.pool.Deposit(alice, types.MaxDepositValue, big.NewInt(1))
	c.Assert(err, qt.ErrorIs, ErrInvalidValue)
	_, err = tp.pool.Deposit(alice, big.NewInt(-1), big.NewInt(1))
	c.Assert(err, qt.ErrorIs, ErrInvalidValue)
}

func TestDepositTransferMismatch(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t)
	tp.book.Credit(alice, big.NewInt(1000))
	tp.book.TransferTax = big.NewInt(1)

	_, err := tp.pool.Deposit(alice, big.NewInt(100), big.NewInt(1))
	c.Assert(err, qt.ErrorIs, ErrAmountMismatch)

	// the failed pull left no state behind
	size, err := tp.pool.State().Size()
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, uint64(0))
}

func TestWindDown(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t)

	c.Assert(tp.pool.WindDown(alice), qt.ErrorIs, ErrOnlyAuthority)
	c.Assert(tp.pool.IsDead(), qt.IsFalse)

	c.Assert(tp.pool.WindDown(authority), qt.IsNil)
	c.Assert(tp.pool.IsDead(), qt.IsTrue)
	c.Assert(tp.pool.WindDown(authority), qt.ErrorIs, ErrPoolDead)

	_, err := tp.pool.Deposit(alice, big.NewInt(1), big.NewInt(1))
	c.Assert(err, qt.ErrorIs, ErrPoolDead)
}

func TestWithdraw(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t)
	tp.book.Credit(alice, big.NewInt(1000))

	_, err := tp.pool.Deposit(alice, big.NewInt(100), big.NewInt(77))
	c.Assert(err, qt.IsNil)

	req := &WithdrawalRequest{Processor: relayer, Recipient: bob}
	signals := tp.withdrawSignals(t, req, big.NewInt(5001), big.NewInt(6001), big.NewInt(40))

	// only the authorized processor may submit
	c.Assert(tp.pool.Withdraw(alice, req, &zk.Proof{}, signals), qt.ErrorIs, ErrOnlyProcessor)

	c.Assert(tp.pool.Withdraw(relayer, req, &zk.Proof{}, signals), qt.IsNil)
	c.Assert(tp.book.BalanceOf(bob).Int64(), qt.Equals, int64(40))
	c.Assert(tp.pool.State().IsSpent(big.NewInt(5001)), qt.IsTrue)
	c.Assert(tp.pool.State().HasLeaf(big.NewInt(6001)), qt.IsTrue)
	c.Assert(tp.withdraw.Calls, qt.Equals, 1)

	// replaying the same nullifier fails
	signals = tp.withdrawSignals(t, req, big.NewInt(5001), big.NewInt(6002), big.NewInt(10))
	c.Assert(tp.pool.Withdraw(relayer, req, &zk.Proof{}, signals), qt.ErrorIs, state.ErrNullifierSpent)
}

func TestWithdrawGuards(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t)
	tp.book.Credit(alice, big.NewInt(1000))
	_, err := tp.pool.Deposit(alice, big.NewInt(100), big.NewInt(77))
	c.Assert(err, qt.IsNil)

	req := &WithdrawalRequest{Processor: relayer, Recipient: bob}

	// unknown state root
	signals := tp.withdrawSignals(t, req, big.NewInt(1), big.NewInt(2), big.NewInt(10))
	signals.StateRoot = big.NewInt(424242)
	c.Assert(tp.pool.Withdraw(relayer, req, &zk.Proof{}, signals), qt.ErrorIs, ErrUnknownStateRoot)

	// authorized set root mismatch
	signals = tp.withdrawSignals(t, req, big.NewInt(1), big.NewInt(2), big.NewInt(10))
	signals.ASPRoot = big.NewInt(424242)
	c.Assert(tp.pool.Withdraw(relayer, req, &zk.Proof{}, signals), qt.ErrorIs, ErrASPRootMismatch)

	// context bound to a different request
	signals = tp.withdrawSignals(t, req, big.NewInt(1), big.NewInt(2), big.NewInt(10))
	other := &WithdrawalRequest{Processor: relayer, Recipient: alice}
	ctx, err := other.Context(tp.pool.Scope())
	c.Assert(err, qt.IsNil)
	signals.Context = ctx
	c.Assert(tp.pool.Withdraw(relayer, req, &zk.Proof{}, signals), qt.ErrorIs, ErrContextMismatch)

	// claimed depth above the maximum
	signals = tp.withdrawSignals(t, req, big.NewInt(1), big.NewInt(2), big.NewInt(10))
	signals.StateTreeDepth = big.NewInt(int64(types.StateTreeMaxLevels + 1))
	c.Assert(tp.pool.Withdraw(relayer, req, &zk.Proof{}, signals), qt.ErrorIs, ErrTreeDepthExceeded)

	// value at the bound
	signals = tp.withdrawSignals(t, req, big.NewInt(1), big.NewInt(2), types.MaxDepositValue)
	c.Assert(tp.pool.Withdraw(relayer, req, &zk.Proof{}, signals), qt.ErrorIs, ErrInvalidValue)

	// rejected proof leaves no state behind
	signals = tp.withdrawSignals(t, req, big.NewInt(1), big.NewInt(2), big.NewInt(10))
	tp.withdraw.Err = zk.ErrProofInvalid
	c.Assert(tp.pool.Withdraw(relayer, req, &zk.Proof{}, signals), qt.ErrorIs, zk.ErrProofInvalid)
	c.Assert(tp.pool.State().IsSpent(big.NewInt(1)), qt.IsFalse)
	c.Assert(tp.book.BalanceOf(bob).Sign(), qt.Equals, 0)
}

// TestValueConservation drains one deposit of 100 through four withdrawals
// of 20, 20, 20 and 40. Every intermediate change commitment is consumed by
// the next withdrawal, and the fully spent chain rejects further attempts.
func TestValueConservation(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t)
	tp.book.Credit(alice, big.NewInt(100))

	_, err := tp.pool.Deposit(alice, big.NewInt(100), big.NewInt(99))
	c.Assert(err, qt.IsNil)

	req := &WithdrawalRequest{Processor: bob, Recipient: bob}
	amounts := []int64{20, 20, 20, 40}
	for i, amount := range amounts {
		nullifier := big.NewInt(int64(7000 + i))
		change := big.NewInt(int64(8000 + i))
		signals := tp.withdrawSignals(t, req, nullifier, change, big.NewInt(amount))
		c.Assert(tp.pool.Withdraw(bob, req, &zk.Proof{}, signals), qt.IsNil)
	}

	c.Assert(tp.book.BalanceOf(bob).Int64(), qt.Equals, int64(100))
	c.Assert(tp.book.Custody().Sign(), qt.Equals, 0)

	// the chain is fully spent: reusing the last nullifier fails
	signals := tp.withdrawSignals(t, req, big.NewInt(7003), big.NewInt(9000), big.NewInt(1))
	c.Assert(tp.pool.Withdraw(bob, req, &zk.Proof{}, signals), qt.ErrorIs, state.ErrNullifierSpent)
}

func TestRagequit(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t)
	tp.book.Credit(alice, big.NewInt(500))

	receipt, err := tp.pool.Deposit(alice, big.NewInt(500), big.NewInt(321))
	c.Assert(err, qt.IsNil)

	nullifier := big.NewInt(9999)
	signals := &zk.RagequitSignals{
		Value:          big.NewInt(500),
		Label:          receipt.Label,
		CommitmentHash: receipt.Commitment,
		NullifierHash:  nullifier,
	}

	// only the original depositor may ragequit
	c.Assert(tp.pool.Ragequit(bob, &zk.Proof{}, signals), qt.ErrorIs, ErrOnlyDepositor)

	// a label never deposited has no depositor record
	bad := &zk.RagequitSignals{
		Value:          big.NewInt(500),
		Label:          big.NewInt(1),
		CommitmentHash: receipt.Commitment,
		NullifierHash:  nullifier,
	}
	c.Assert(tp.pool.Ragequit(alice, &zk.Proof{}, bad), qt.ErrorIs, state.ErrUnknownLabel)

	// a commitment absent from the tree is rejected
	bad = &zk.RagequitSignals{
		Value:          big.NewInt(500),
		Label:          receipt.Label,
		CommitmentHash: big.NewInt(123),
		NullifierHash:  nullifier,
	}
	c.Assert(tp.pool.Ragequit(alice, &zk.Proof{}, bad), qt.ErrorIs, ErrUnknownCommitment)

	c.Assert(tp.pool.Ragequit(alice, &zk.Proof{}, signals), qt.IsNil)
	c.Assert(tp.book.BalanceOf(alice).Int64(), qt.Equals, int64(500))
	c.Assert(tp.book.Custody().Sign(), qt.Equals, 0)

	// ragequit is exclusive: the nullifier is spent for good
	c.Assert(tp.pool.Ragequit(alice, &zk.Proof{}, signals), qt.ErrorIs, state.ErrNullifierSpent)
	req := &WithdrawalRequest{Processor: alice, Recipient: alice}
	wSignals := tp.withdrawSignals(t, req, nullifier, big.NewInt(1), big.NewInt(1))
	c.Assert(tp.pool.Withdraw(alice, req, &zk.Proof{}, wSignals), qt.ErrorIs, state.ErrNullifierSpent)
}

// TestWithdrawAfterWindDown checks that death blocks deposits only.
func TestWithdrawAfterWindDown(t *testing.T) {
	c := qt.New(t)
	tp := newTestPool(t)
	tp.book.Credit(alice, big.NewInt(100))
	_, err := tp.pool.Deposit(alice, big.NewInt(100), big.NewInt(5))
	c.Assert(err, qt.IsNil)

	c.Assert(tp.pool.WindDown(authority), qt.IsNil)

	req := &WithdrawalRequest{Processor: bob, Recipient: bob}
	signals := tp.withdrawSignals(t, req, big.NewInt(1), big.NewInt(2), big.NewInt(100))
	c.Assert(tp.pool.Withdraw(bob, req, &zk.Proof{}, signals), qt.IsNil)
	c.Assert(tp.book.BalanceOf(bob).Int64(), qt.Equals, int64(100))
}
