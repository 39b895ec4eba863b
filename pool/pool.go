// Package pool implements the anonymity pool state machine: deposits insert
// value commitments into the membership tree, withdrawals consume them
// against a zero-knowledge proof, and ragequit is the non-private escape
// hatch for the original depositor. A pool is Active until the authority
// winds it down; death blocks new deposits only.
package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/veil-protocol/veil/crypto/hash/poseidon"
	"github.com/veil-protocol/veil/state"
	"github.com/veil-protocol/veil/storage"
	"github.com/veil-protocol/veil/types"
	"github.com/veil-protocol/veil/zk"
	"go.vocdoni.io/dvote/log"
)

// AuthorizedSetRegistry supplies the latest root of the authorized
// withdrawal set. Withdrawal proofs must match it exactly.
type AuthorizedSetRegistry interface {
	LatestRoot() (*big.Int, error)
}

// Config wires a Pool to its collaborators.
type Config struct {
	Storage          *storage.Storage
	State            *state.State
	Authority        common.Address
	WithdrawVerifier zk.Verifier
	RagequitVerifier zk.Verifier
	AuthorizedSet    AuthorizedSetRegistry
	Assets           AssetTransfer
}

// Pool is one anonymity pool instance bound to a scope.
type Pool struct {
	stg              *storage.Storage
	state            *state.State
	scope            *big.Int
	authority        common.Address
	withdrawVerifier zk.Verifier
	ragequitVerifier zk.Verifier
	authSet          AuthorizedSetRegistry
	assets           AssetTransfer
}

// DepositReceipt reports the outcome of a deposit.
type DepositReceipt struct {
	Commitment *big.Int
	Label      *big.Int
	Root       *big.Int
}

// ComputeScope derives the pool domain separator from the chain, the pool
// instance address and the asset it custodies.
func ComputeScope(chainID uint64, instance common.Address, assetID uint64) (*big.Int, error) {
	return poseidon.MultiPoseidon(
		new(big.Int).SetUint64(chainID),
		new(big.Int).SetBytes(instance.Bytes()),
		new(big.Int).SetUint64(assetID),
	)
}

// New creates a Pool over the given collaborators. The scope is taken from
// the state instance.
func New(cfg Config) (*Pool, error) {
	if cfg.Storage == nil || cfg.State == nil {
		return nil, fmt.Errorf("storage and state are required")
	}
	if cfg.Authority == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if cfg.WithdrawVerifier == nil || cfg.RagequitVerifier == nil {
		return nil, fmt.Errorf("verifiers are required")
	}
	if cfg.AuthorizedSet == nil || cfg.Assets == nil {
		return nil, fmt.Errorf("authorized set registry and asset transfer are required")
	}
	return &Pool{
		stg:              cfg.Storage,
		state:            cfg.State,
		scope:            cfg.State.Scope(),
		authority:        cfg.Authority,
		withdrawVerifier: cfg.WithdrawVerifier,
		ragequitVerifier: cfg.RagequitVerifier,
		authSet:          cfg.AuthorizedSet,
		assets:           cfg.Assets,
	}, nil
}

// Scope returns the pool domain separator.
func (p *Pool) Scope() *big.Int {
	return p.scope
}

// State exposes the underlying membership state read surfaces.
func (p *Pool) State() *state.State {
	return p.state
}

// IsDead reports whether the pool has been wound down.
func (p *Pool) IsDead() bool {
	return p.stg.IsPoolDead(p.scope)
}

// Deposit derives a fresh label, records the depositor under it, inserts
// the commitment hash(value, label, precommitment) and pulls value from the
// depositor. Zero value is legal and produces a spendable commitment. If a
// batch is already open on the state the deposit joins it, otherwise it
// commits on its own.
func (p *Pool) Deposit(depositor common.Address, value, precommitment *big.Int) (*DepositReceipt, error) {
	if p.IsDead() {
		return nil, ErrPoolDead
	}
	if value == nil || value.Sign() < 0 || value.Cmp(types.MaxDepositValue) >= 0 {
		return nil, ErrInvalidValue
	}

	owned := !p.state.InBatch()
	if owned {
		if err := p.state.StartBatch(); err != nil {
			return nil, err
		}
		defer p.state.Discard()
	}

	nonce, err := p.state.NextLabelNonce()
	if err != nil {
		return nil, err
	}
	label, err := poseidon.MultiPoseidon(p.scope, new(big.Int).SetUint64(nonce))
	if err != nil {
		return nil, err
	}
	if err := p.state.SetDepositor(label, depositor); err != nil {
		return nil, err
	}
	commitment, err := poseidon.MultiPoseidon(value, label, precommitment)
	if err != nil {
		return nil, err
	}
	root, err := p.state.Insert(commitment)
	if err != nil {
		return nil, err
	}
	if err := p.assets.Pull(depositor, value); err != nil {
		return nil, err
	}

	if owned {
		if err := p.state.EndBatch(); err != nil {
			return nil, err
		}
		p.journal(storage.OpDeposit, depositor, value, label, nil)
	}
	log.Debugw("deposit accepted",
		"depositor", depositor.Hex(),
		"value", value.String(),
		"label", label.String())
	return &DepositReceipt{Commitment: commitment, Label: label, Root: root}, nil
}

// Withdraw consumes a commitment via its nullifier and inserts the change
// commitment. Only the processor named by the request may submit it. The
// proof must bind a known state root, the registry's latest authorized-set
// root and the context of this exact request.
func (p *Pool) Withdraw(caller common.Address, req *WithdrawalRequest, proof *zk.Proof, signals *zk.WithdrawSignals) error {
	if caller != req.Processor {
		return ErrOnlyProcessor
	}
	if err := p.checkWithdrawSignals(req, signals); err != nil {
		return err
	}
	if err := p.withdrawVerifier.Verify(proof, signals.ToSlice()); err != nil {
		return err
	}

	owned := !p.state.InBatch()
	if owned {
		if err := p.state.StartBatch(); err != nil {
			return err
		}
		defer p.state.Discard()
	}

	if err := p.state.Spend(signals.NullifierHash); err != nil {
		return err
	}
	if _, err := p.state.Insert(signals.NewCommitmentHash); err != nil {
		return err
	}
	if err := p.assets.Push(req.Recipient, signals.Value); err != nil {
		return err
	}

	if owned {
		if err := p.state.EndBatch(); err != nil {
			return err
		}
		p.journal(storage.OpWithdraw, req.Recipient, signals.Value, nil, signals.NullifierHash)
	}
	log.Debugw("withdrawal processed",
		"recipient", req.Recipient.Hex(),
		"value", signals.Value.String(),
		"nullifier", signals.NullifierHash.String())
	return nil
}

// checkWithdrawSignals runs the public-signal guards ahead of proof
// verification.
func (p *Pool) checkWithdrawSignals(req *WithdrawalRequest, signals *zk.WithdrawSignals) error {
	if signals.Value == nil || signals.Value.Sign() < 0 || signals.Value.Cmp(types.MaxDepositValue) >= 0 {
		return ErrInvalidValue
	}
	maxState := big.NewInt(int64(types.StateTreeMaxLevels))
	maxASP := big.NewInt(int64(types.AuthorizedSetMaxLevels))
	if signals.StateTreeDepth.Cmp(maxState) > 0 || signals.ASPTreeDepth.Cmp(maxASP) > 0 {
		return ErrTreeDepthExceeded
	}
	if !p.state.IsKnownRoot(signals.StateRoot) {
		return ErrUnknownStateRoot
	}
	aspRoot, err := p.authSet.LatestRoot()
	if err != nil {
		return fmt.Errorf("could not fetch authorized set root: %w", err)
	}
	if signals.ASPRoot.Cmp(aspRoot) != 0 {
		return ErrASPRootMismatch
	}
	ctx, err := req.Context(p.scope)
	if err != nil {
		return err
	}
	if signals.Context.Cmp(ctx) != 0 {
		return ErrContextMismatch
	}
	return nil
}

// Ragequit returns the full original value of a commitment to its
// depositor, without anonymity. Only the address recorded at deposit time
// may invoke it, and only while the nullifier is unspent.
func (p *Pool) Ragequit(caller common.Address, proof *zk.Proof, signals *zk.RagequitSignals) error {
	depositor, err := p.state.Depositor(signals.Label)
	if err != nil {
		return err
	}
	if caller != depositor {
		return ErrOnlyDepositor
	}
	if !p.state.HasLeaf(signals.CommitmentHash) {
		return ErrUnknownCommitment
	}
	if p.state.IsSpent(signals.NullifierHash) {
		return state.ErrNullifierSpent
	}
	if err := p.ragequitVerifier.Verify(proof, signals.ToSlice()); err != nil {
		return err
	}

	owned := !p.state.InBatch()
	if owned {
		if err := p.state.StartBatch(); err != nil {
			return err
		}
		defer p.state.Discard()
	}

	if err := p.state.Spend(signals.NullifierHash); err != nil {
		return err
	}
	if err := p.assets.Push(depositor, signals.Value); err != nil {
		return err
	}

	if owned {
		if err := p.state.EndBatch(); err != nil {
			return err
		}
		p.journal(storage.OpRagequit, depositor, signals.Value, signals.Label, signals.NullifierHash)
	}
	log.Debugw("ragequit processed",
		"depositor", depositor.Hex(),
		"value", signals.Value.String(),
		"label", signals.Label.String())
	return nil
}

// journal appends an audit record for a committed operation. Failures are
// logged and swallowed: the journal never gates protocol state.
func (p *Pool) journal(kind storage.OperationKind, account common.Address, value, label, nullifier *big.Int) {
	rec := &storage.OperationRecord{
		Kind:    kind,
		Scope:   types.BigIntFrom(p.scope),
		Account: account,
		Value:   types.BigIntFrom(value),
	}
	if label != nil {
		rec.Label = types.BigIntFrom(label)
	}
	if nullifier != nil {
		rec.Nullifier = types.BigIntFrom(nullifier)
	}
	if _, err := p.stg.AppendOperation(rec); err != nil {
		log.Warnw("could not journal operation", "kind", string(kind), "err", err.Error())
	}
}

// WindDown irreversibly marks the pool as dead. Withdrawals and ragequits
// remain possible; new deposits are rejected.
func (p *Pool) WindDown(caller common.Address) error {
	if caller != p.authority {
		return ErrOnlyAuthority
	}
	if p.IsDead() {
		return ErrPoolDead
	}
	if err := p.stg.SetPoolDead(p.scope); err != nil {
		return err
	}
	log.Infow("pool wound down", "scope", p.scope.String())
	return nil
}
