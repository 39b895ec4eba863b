package processor

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/veil-protocol/veil/pool"
	"github.com/veil-protocol/veil/state"
	"github.com/veil-protocol/veil/storage"
	"github.com/veil-protocol/veil/storage/authset"
	"github.com/veil-protocol/veil/types"
	"github.com/veil-protocol/veil/zk"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	testAuthority = common.HexToAddress("0x0000000000000000000000000000000000000001")
	testAlice     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testBob       = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	testRelayer   = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

type fixture struct {
	pool    *pool.Pool
	book    *pool.AccountBook
	authSet *authset.SetRef
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithVerifier(t, &zk.StaticVerifier{})
}

func newFixtureWithVerifier(t *testing.T, withdrawVerifier zk.Verifier) *fixture {
	t.Helper()
	c := qt.New(t)
	database := metadb.NewTest(t)
	scope, err := pool.ComputeScope(1, common.HexToAddress("0x01"), 1)
	c.Assert(err, qt.IsNil)
	st, err := state.New(database, scope)
	c.Assert(err, qt.IsNil)

	registry := authset.NewRegistry(metadb.NewTest(t))
	ref, err := registry.New(uuid.New())
	c.Assert(err, qt.IsNil)

	book := pool.NewAccountBook()
	p, err := pool.New(pool.Config{
		Storage:          storage.New(database),
		State:            st,
		Authority:        testAuthority,
		WithdrawVerifier: withdrawVerifier,
		RagequitVerifier: &zk.StaticVerifier{},
		AuthorizedSet:    ref,
		Assets:           book,
	})
	c.Assert(err, qt.IsNil)
	return &fixture{pool: p, book: book, authSet: ref}
}

func (f *fixture) request(t *testing.T, nullifier, value int64) *Request {
	t.Helper()
	c := qt.New(t)
	withdrawal := &pool.WithdrawalRequest{Processor: testRelayer, Recipient: testBob}
	root, err := f.pool.State().Root()
	c.Assert(err, qt.IsNil)
	aspRoot, err := f.authSet.LatestRoot()
	c.Assert(err, qt.IsNil)
	ctx, err := withdrawal.Context(f.pool.Scope())
	c.Assert(err, qt.IsNil)
	return &Request{
		Withdrawal: withdrawal,
		Proof:      &zk.Proof{Data: []byte{0x01}},
		Signals: &zk.WithdrawSignals{
			NewCommitmentHash: big.NewInt(nullifier + 1),
			NullifierHash:     big.NewInt(nullifier),
			Value:             big.NewInt(value),
			StateRoot:         root,
			StateTreeDepth:    big.NewInt(int64(types.StateTreeMaxLevels)),
			ASPRoot:           aspRoot,
			ASPTreeDepth:      big.NewInt(int64(types.AuthorizedSetMaxLevels)),
			Context:           ctx,
		},
		Result: make(chan error, 1),
	}
}

func waitResult(t *testing.T, req *Request) error {
	t.Helper()
	select {
	case err := <-req.Result:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for withdrawal result")
		return nil
	}
}

func TestSubmitGuards(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	proc, err := New(testRelayer, f.pool, nil, 4)
	c.Assert(err, qt.IsNil)

	// bound to another processor
	err = proc.Submit(&Request{Withdrawal: &pool.WithdrawalRequest{Processor: testBob, Recipient: testBob}})
	c.Assert(err, qt.Equals, ErrNotProcessor)

	// not started yet
	err = proc.Submit(&Request{Withdrawal: &pool.WithdrawalRequest{Processor: testRelayer, Recipient: testBob}})
	c.Assert(err, qt.Equals, ErrNotRunning)
}

func TestWithdrawalExecution(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	f.book.Credit(testAlice, big.NewInt(1000))
	_, err := f.pool.Deposit(testAlice, big.NewInt(100), big.NewInt(42))
	c.Assert(err, qt.IsNil)

	proc, err := New(testRelayer, f.pool, nil, 4)
	c.Assert(err, qt.IsNil)
	c.Assert(proc.Start(context.Background()), qt.IsNil)
	defer proc.Stop()

	req := f.request(t, 7001, 40)
	c.Assert(proc.Submit(req), qt.IsNil)
	c.Assert(waitResult(t, req), qt.IsNil)
	c.Assert(f.book.BalanceOf(testBob).Int64(), qt.Equals, int64(40))
	c.Assert(f.pool.State().IsSpent(big.NewInt(7001)), qt.IsTrue)

	// a replay of the same nullifier fails inside the worker
	replay := f.request(t, 7001, 40)
	c.Assert(proc.Submit(replay), qt.IsNil)
	c.Assert(waitResult(t, replay), qt.ErrorIs, state.ErrNullifierSpent)
}

func TestStopRejectsSubmissions(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	proc, err := New(testRelayer, f.pool, nil, 4)
	c.Assert(err, qt.IsNil)
	c.Assert(proc.Start(context.Background()), qt.IsNil)
	proc.Stop()

	req := f.request(t, 1, 1)
	c.Assert(proc.Submit(req), qt.Equals, ErrNotRunning)
}

// gateVerifier holds Verify until released, keeping the worker busy.
type gateVerifier struct {
	entered chan struct{}
	release chan struct{}
}

func (v *gateVerifier) Verify(*zk.Proof, []*big.Int) error {
	v.entered <- struct{}{}
	<-v.release
	return nil
}

func TestStopDrainsQueue(t *testing.T) {
	c := qt.New(t)
	gate := &gateVerifier{entered: make(chan struct{}), release: make(chan struct{})}
	f := newFixtureWithVerifier(t, gate)
	f.book.Credit(testAlice, big.NewInt(1000))
	_, err := f.pool.Deposit(testAlice, big.NewInt(200), big.NewInt(42))
	c.Assert(err, qt.IsNil)

	proc, err := New(testRelayer, f.pool, nil, 4)
	c.Assert(err, qt.IsNil)
	c.Assert(proc.Start(context.Background()), qt.IsNil)

	first := f.request(t, 7101, 40)
	second := f.request(t, 7102, 40)
	c.Assert(proc.Submit(first), qt.IsNil)
	<-gate.entered // the worker is inside the first execution
	c.Assert(proc.Submit(second), qt.IsNil)

	stopped := make(chan struct{})
	go func() {
		proc.Stop()
		close(stopped)
	}()
	// Stop flips running and cancels under one lock; once Submit reports
	// ErrNotRunning the cancel is visible to the worker
	for proc.Submit(f.request(t, 7103, 1)) != ErrNotRunning {
		time.Sleep(10 * time.Millisecond)
	}
	gate.release <- struct{}{}

	// the in-flight request completes, the queued one is failed
	c.Assert(waitResult(t, first), qt.IsNil)
	c.Assert(waitResult(t, second), qt.ErrorIs, ErrNotRunning)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the processor to stop")
	}
	c.Assert(f.pool.State().IsSpent(big.NewInt(7102)), qt.IsFalse)
}
