// Package hybrid binds the anonymity pool and the encrypted ledger so that
// one user-facing operation updates both or neither. The two components are
// attached to a single write transaction; the coordinator is the only owner
// and commits once both sub-operations have staged their effects.
package hybrid

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/veil-protocol/veil/ledger"
	"github.com/veil-protocol/veil/pool"
	"github.com/veil-protocol/veil/storage"
	"github.com/veil-protocol/veil/types"
	"github.com/veil-protocol/veil/zk"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/log"
)

// Coordinator composes one pool instance with the encrypted ledger.
type Coordinator struct {
	db        db.Database
	stg       *storage.Storage
	pool      *pool.Pool
	ledger    *ledger.Ledger
	authority common.Address
}

// New creates a Coordinator. The database must be the one the pool state
// and the ledger were opened over, so their staged writes share one
// transaction.
func New(database db.Database, stg *storage.Storage, p *pool.Pool, l *ledger.Ledger, authority common.Address) *Coordinator {
	return &Coordinator{
		db:        database,
		stg:       stg,
		pool:      p,
		ledger:    l,
		authority: authority,
	}
}

// Enabled reports whether cross-ledger coordination is active. When off,
// Deposit and Withdraw degrade to plain pool operations.
func (c *Coordinator) Enabled() bool {
	return c.stg.HybridEnabled()
}

// SetEnabled toggles coordination. Authority only.
func (c *Coordinator) SetEnabled(caller common.Address, enabled bool) error {
	if caller != c.authority {
		return pool.ErrOnlyAuthority
	}
	if err := c.stg.SetHybridEnabled(enabled); err != nil {
		return err
	}
	log.Infow("hybrid coordination toggled", "enabled", enabled)
	return nil
}

// Deposit performs the pool deposit and, when coordination is enabled, the
// matching ledger mint. The mint is required to succeed: no execution
// leaves a pool commitment without its encrypted balance. The mint proof
// arguments are ignored while coordination is off.
func (c *Coordinator) Deposit(depositor common.Address, value, precommitment *big.Int,
	assetID uint64, mintProof *zk.Proof, mintSignals *zk.MintSignals,
) (*pool.DepositReceipt, error) {
	if !c.Enabled() {
		return c.pool.Deposit(depositor, value, precommitment)
	}

	wTx := c.db.WriteTx()
	defer wTx.Discard()
	if err := c.attach(wTx); err != nil {
		return nil, err
	}
	defer c.detach()

	// the mint stages pure state only, so it goes first; the deposit ends
	// with the external pull, keeping effectful actions last
	if err := c.ledger.Mint(depositor, assetID, mintProof, mintSignals); err != nil {
		return nil, err
	}
	receipt, err := c.pool.Deposit(depositor, value, precommitment)
	if err != nil {
		return nil, err
	}

	c.detach()
	if err := wTx.Commit(); err != nil {
		return nil, err
	}
	c.journal(storage.OpHybridDeposit, depositor, value, receipt.Label, nil)
	log.Debugw("hybrid deposit committed",
		"depositor", depositor.Hex(), "value", value.String())
	return receipt, nil
}

// Withdraw performs the ledger burn and then the pool withdrawal in one
// transaction. A failed burn aborts before any pool state changes; a failed
// withdrawal discards the staged burn. The account is the holder of the
// encrypted balance the burn proof was built against; for relayed
// withdrawals it differs from the submitting processor. The burn arguments
// are ignored while coordination is off.
func (c *Coordinator) Withdraw(caller, account common.Address, assetID uint64,
	burnProof *zk.Proof, burnSignals *zk.BurnSignals,
	req *pool.WithdrawalRequest, poolProof *zk.Proof, poolSignals *zk.WithdrawSignals,
) error {
	if !c.Enabled() {
		return c.pool.Withdraw(caller, req, poolProof, poolSignals)
	}

	wTx := c.db.WriteTx()
	defer wTx.Discard()
	if err := c.attach(wTx); err != nil {
		return err
	}
	defer c.detach()

	if err := c.ledger.Burn(account, assetID, burnProof, burnSignals); err != nil {
		return err
	}
	if err := c.pool.Withdraw(caller, req, poolProof, poolSignals); err != nil {
		return err
	}

	c.detach()
	if err := wTx.Commit(); err != nil {
		return err
	}
	c.journal(storage.OpHybridWithdraw, req.Recipient, poolSignals.Value, nil, poolSignals.NullifierHash)
	log.Debugw("hybrid withdrawal committed",
		"recipient", req.Recipient.Hex(), "value", poolSignals.Value.String())
	return nil
}

// journal appends an audit record for a committed hybrid operation.
// Failures are logged and swallowed.
func (c *Coordinator) journal(kind storage.OperationKind, account common.Address, value, label, nullifier *big.Int) {
	rec := &storage.OperationRecord{
		Kind:    kind,
		Scope:   types.BigIntFrom(c.pool.Scope()),
		Account: account,
		Value:   types.BigIntFrom(value),
	}
	if label != nil {
		rec.Label = types.BigIntFrom(label)
	}
	if nullifier != nil {
		rec.Nullifier = types.BigIntFrom(nullifier)
	}
	if _, err := c.stg.AppendOperation(rec); err != nil {
		log.Warnw("could not journal operation", "kind", string(kind), "err", err.Error())
	}
}

// attach binds both components to the shared transaction.
func (c *Coordinator) attach(wTx db.WriteTx) error {
	if err := c.pool.State().StartBatchWithTx(wTx); err != nil {
		return err
	}
	if err := c.ledger.StartBatchWithTx(wTx); err != nil {
		c.pool.State().Discard()
		return err
	}
	return nil
}

// detach releases both components from the shared transaction without
// committing it. Safe to call twice.
func (c *Coordinator) detach() {
	c.pool.State().Discard()
	c.ledger.Discard()
}
