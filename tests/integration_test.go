package tests

import (
	"context"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/veil-protocol/veil/pool"
	"github.com/veil-protocol/veil/processor"
	"github.com/veil-protocol/veil/storage"
	"github.com/veil-protocol/veil/zk"
	"go.vocdoni.io/dvote/log"
)

func init() {
	log.Init(log.LogLevelDebug, "stdout", nil)
}

func TestPoolLifecycle(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	e.book.Credit(alice, big.NewInt(1000))

	var first, second *pool.DepositReceipt

	c.Run("deposit", func(c *qt.C) {
		var err error
		first, err = e.pool.Deposit(alice, big.NewInt(300), precommitment())
		c.Assert(err, qt.IsNil)
		second, err = e.pool.Deposit(alice, big.NewInt(200), precommitment())
		c.Assert(err, qt.IsNil)
		c.Assert(e.book.BalanceOf(alice).Int64(), qt.Equals, int64(500))
		c.Assert(e.book.Custody().Int64(), qt.Equals, int64(500))
	})

	c.Run("authorize labels", func(c *qt.C) {
		c.Assert(e.authSet.Authorize(first.Label), qt.IsNil)
		c.Assert(e.authSet.Authorize(second.Label), qt.IsNil)
		root, err := e.authSet.LatestRoot()
		c.Assert(err, qt.IsNil)
		c.Assert(root.Sign(), qt.Not(qt.Equals), 0)
	})

	c.Run("withdraw through processor", func(c *qt.C) {
		proc, err := processor.New(relayer, e.pool, e.coord, 8)
		c.Assert(err, qt.IsNil)
		c.Assert(proc.Start(context.Background()), qt.IsNil)
		defer proc.Stop()

		withdrawal := &pool.WithdrawalRequest{Processor: relayer, Recipient: bob}
		req := &processor.Request{
			Withdrawal: withdrawal,
			Proof:      &zk.Proof{Data: []byte{0x01}},
			Signals:    e.withdrawSignals(t, withdrawal, big.NewInt(9001), big.NewInt(120)),
			Result:     make(chan error, 1),
		}
		c.Assert(proc.Submit(req), qt.IsNil)
		c.Assert(<-req.Result, qt.IsNil)
		c.Assert(e.book.BalanceOf(bob).Int64(), qt.Equals, int64(120))
		c.Assert(e.pool.State().IsSpent(big.NewInt(9001)), qt.IsTrue)
	})

	c.Run("ragequit", func(c *qt.C) {
		err := e.pool.Ragequit(alice, &zk.Proof{Data: []byte{0x01}}, &zk.RagequitSignals{
			Value:          big.NewInt(200),
			Label:          second.Label,
			CommitmentHash: second.Commitment,
			NullifierHash:  big.NewInt(9002),
		})
		c.Assert(err, qt.IsNil)
		c.Assert(e.book.BalanceOf(alice).Int64(), qt.Equals, int64(700))
	})

	c.Run("wind down", func(c *qt.C) {
		c.Assert(e.pool.WindDown(authority), qt.IsNil)
		_, err := e.pool.Deposit(alice, big.NewInt(10), precommitment())
		c.Assert(err, qt.ErrorIs, pool.ErrPoolDead)

		// exits keep working on a dead pool
		withdrawal := &pool.WithdrawalRequest{Processor: relayer, Recipient: bob}
		err = e.pool.Withdraw(relayer, withdrawal, &zk.Proof{Data: []byte{0x01}},
			e.withdrawSignals(t, withdrawal, big.NewInt(9003), big.NewInt(50)))
		c.Assert(err, qt.IsNil)
		c.Assert(e.book.BalanceOf(bob).Int64(), qt.Equals, int64(170))
	})

	c.Run("operation journal", func(c *qt.C) {
		recs, err := e.stg.Operations(e.pool.Scope())
		c.Assert(err, qt.IsNil)
		// two deposits, two withdrawals, one ragequit
		c.Assert(recs, qt.HasLen, 5)
		c.Assert(recs[0].Kind, qt.Equals, storage.OpDeposit)
		c.Assert(recs[4].Kind, qt.Equals, storage.OpWithdraw)
		c.Assert(recs[4].Value.MathBigInt().Int64(), qt.Equals, int64(50))
	})
}

func TestHybridLifecycle(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	e.book.Credit(alice, big.NewInt(1000))
	c.Assert(e.coord.SetEnabled(authority, true), qt.IsNil)

	c.Run("hybrid deposit", func(c *qt.C) {
		receipt, err := e.coord.Deposit(alice, big.NewInt(400), precommitment(), testAssetID,
			&zk.Proof{Data: []byte{0x01}}, e.mintSignals(alice, e.encrypt(t, alice, 400)))
		c.Assert(err, qt.IsNil)
		c.Assert(e.pool.State().HasLeaf(receipt.Commitment), qt.IsTrue)
		c.Assert(e.decryptBalance(t, alice), qt.Equals, int64(400))
		c.Assert(e.book.Custody().Int64(), qt.Equals, int64(400))
		c.Assert(e.authSet.Authorize(receipt.Label), qt.IsNil)
	})

	c.Run("hybrid withdraw", func(c *qt.C) {
		withdrawal := &pool.WithdrawalRequest{Processor: relayer, Recipient: bob}
		err := e.coord.Withdraw(relayer, alice, testAssetID,
			&zk.Proof{Data: []byte{0x01}}, e.burnSignals(t, alice, e.encrypt(t, alice, 150)),
			withdrawal, &zk.Proof{Data: []byte{0x01}},
			e.withdrawSignals(t, withdrawal, big.NewInt(9100), big.NewInt(150)))
		c.Assert(err, qt.IsNil)
		c.Assert(e.decryptBalance(t, alice), qt.Equals, int64(250))
		c.Assert(e.book.BalanceOf(bob).Int64(), qt.Equals, int64(150))
		c.Assert(e.pool.State().IsSpent(big.NewInt(9100)), qt.IsTrue)
	})

	c.Run("failed pool side discards burn", func(c *qt.C) {
		withdrawal := &pool.WithdrawalRequest{Processor: relayer, Recipient: bob}
		signals := e.withdrawSignals(t, withdrawal, big.NewInt(9101), big.NewInt(50))
		signals.StateRoot = big.NewInt(123456) // unknown root
		err := e.coord.Withdraw(relayer, alice, testAssetID,
			&zk.Proof{Data: []byte{0x01}}, e.burnSignals(t, alice, e.encrypt(t, alice, 50)),
			withdrawal, &zk.Proof{Data: []byte{0x01}}, signals)
		c.Assert(err, qt.ErrorIs, pool.ErrUnknownStateRoot)
		c.Assert(e.decryptBalance(t, alice), qt.Equals, int64(250))
		c.Assert(e.book.BalanceOf(bob).Int64(), qt.Equals, int64(150))
	})
}

func TestConverterRoundTrip(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)

	asset, err := e.ledger.RegisterAsset(authority, testToken, 4)
	c.Assert(err, qt.IsNil)
	e.tokens.Credit(testToken, alice, big.NewInt(100000))

	receipt, err := e.ledger.Deposit(alice, testToken, big.NewInt(12345))
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.AssetID, qt.Equals, asset.ID)
	c.Assert(receipt.Minted.Int64(), qt.Equals, int64(123))
	c.Assert(receipt.Dust.Int64(), qt.Equals, int64(45))
	c.Assert(e.tokens.BalanceOf(testToken, alice).Int64(), qt.Equals, int64(87700))
}
