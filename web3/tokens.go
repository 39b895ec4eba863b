// Package web3 provides the on-chain asset transport. The pool and the
// converter move ERC20 value through it: Pull draws tokens from a user into
// the protocol custody account, Push releases them back out.
package web3

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/veil-protocol/veil/pool"
	"github.com/veil-protocol/veil/web3/rpc"
	"go.vocdoni.io/dvote/log"
)

const erc20ABI = `[
	{"name":"transfer","type":"function","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"transferFrom","type":"function","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

// defaultTxTimeout bounds how long a transfer waits to be mined.
const defaultTxTimeout = 2 * time.Minute

// TokenTransport moves ERC20 tokens between user accounts and the protocol
// custody account over a pool of web3 endpoints. It satisfies the ledger's
// token transfer capability; Bind adapts it to the pool's single-asset one.
type TokenTransport struct {
	ChainID  uint64
	web3pool *rpc.Web3Pool
	cli      *rpc.Client
	erc20    abi.ABI
	privKey  *ecdsa.PrivateKey
	address  common.Address
}

// NewTokenTransport connects to the given web3 endpoint and prepares the
// ERC20 call bindings.
func NewTokenTransport(web3rpc string) (*TokenTransport, error) {
	w3pool := rpc.NewWeb3Pool()
	chainID, err := w3pool.AddEndpoint(web3rpc)
	if err != nil {
		return nil, fmt.Errorf("failed to add web3 endpoint: %w", err)
	}
	cli, err := w3pool.Client(chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	return &TokenTransport{
		ChainID:  chainID,
		web3pool: w3pool,
		cli:      cli,
		erc20:    parsed,
	}, nil
}

// AddWeb3Endpoint adds a new web3 endpoint to the pool.
func (t *TokenTransport) AddWeb3Endpoint(web3rpc string) error {
	_, err := t.web3pool.AddEndpoint(web3rpc)
	return err
}

// SetAccountPrivateKey sets the private key of the custody account used for
// signing transfer transactions.
func (t *TokenTransport) SetAccountPrivateKey(hexPrivKey string) error {
	var err error
	t.privKey, err = crypto.HexToECDSA(hexPrivKey)
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}
	t.address = crypto.PubkeyToAddress(t.privKey.PublicKey)
	return nil
}

// AccountAddress returns the custody account address.
func (t *TokenTransport) AccountAddress() common.Address {
	return t.address
}

// authTransactOpts creates the transact options with the configured private
// key. It sets the nonce, the gas tip cap and the gas limit.
func (t *TokenTransport) authTransactOpts() (*bind.TransactOpts, error) {
	if t.privKey == nil {
		return nil, fmt.Errorf("no private key set")
	}
	bChainID := new(big.Int).SetUint64(t.ChainID)
	auth, err := bind.NewKeyedTransactorWithChainID(t.privKey, bChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Debugw("getting nonce", "address", t.address.Hex())
	nonce, err := t.cli.PendingNonceAt(ctx, t.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)
	if auth.GasTipCap, err = t.cli.SuggestGasTipCap(ctx); err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	auth.GasLimit = 1000000
	return auth, nil
}

func (t *TokenTransport) contract(token common.Address) *bind.BoundContract {
	return bind.NewBoundContract(token, t.erc20, t.cli, t.cli, t.cli)
}

// Pull draws amount from the given holder into the custody account via
// transferFrom. The holder must have approved the custody account first.
// Tokens that take a fee on transfer credit custody with less than the
// requested amount; the custody balance delta is checked after mining and
// any divergence fails the pull.
func (t *TokenTransport) Pull(token, from common.Address, amount *big.Int) error {
	auth, err := t.authTransactOpts()
	if err != nil {
		return err
	}
	before, err := t.BalanceOf(token, t.address)
	if err != nil {
		return err
	}
	tx, err := t.contract(token).Transact(auth, "transferFrom", from, t.address, amount)
	if err != nil {
		return fmt.Errorf("transferFrom failed: %w", err)
	}
	if err := t.waitTx(tx.Hash(), defaultTxTimeout); err != nil {
		return err
	}
	after, err := t.BalanceOf(token, t.address)
	if err != nil {
		return err
	}
	return verifyMoved(new(big.Int).Sub(after, before), amount)
}

// Push releases amount from the custody account to the given recipient. As
// with Pull, the custody balance delta must match the requested amount.
func (t *TokenTransport) Push(token, to common.Address, amount *big.Int) error {
	auth, err := t.authTransactOpts()
	if err != nil {
		return err
	}
	before, err := t.BalanceOf(token, t.address)
	if err != nil {
		return err
	}
	tx, err := t.contract(token).Transact(auth, "transfer", to, amount)
	if err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}
	if err := t.waitTx(tx.Hash(), defaultTxTimeout); err != nil {
		return err
	}
	after, err := t.BalanceOf(token, t.address)
	if err != nil {
		return err
	}
	return verifyMoved(new(big.Int).Sub(before, after), amount)
}

// verifyMoved checks that the balance actually moved matches the requested
// amount.
func verifyMoved(moved, requested *big.Int) error {
	if moved.Cmp(requested) != 0 {
		return fmt.Errorf("%w: requested %s, moved %s", pool.ErrAmountMismatch, requested, moved)
	}
	return nil
}

// BalanceOf returns the token balance of the given holder.
func (t *TokenTransport) BalanceOf(token, holder common.Address) (*big.Int, error) {
	var out []any
	if err := t.contract(token).Call(nil, &out, "balanceOf", holder); err != nil {
		return nil, fmt.Errorf("balanceOf failed: %w", err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type")
	}
	return balance, nil
}

// Decimals returns the number of decimals the token reports.
func (t *TokenTransport) Decimals(token common.Address) (uint8, error) {
	var out []any
	if err := t.contract(token).Call(nil, &out, "decimals"); err != nil {
		return 0, fmt.Errorf("decimals failed: %w", err)
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals result type")
	}
	return decimals, nil
}

// waitTx waits until the transaction is mined and succeeded, or the timeout
// elapses.
func (t *TokenTransport) waitTx(hash common.Hash, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		receipt, err := t.cli.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction %s reverted", hash.Hex())
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for transaction %s", hash.Hex())
		case <-ticker.C:
		}
	}
}

// BoundToken is a TokenTransport fixed to one token, matching the pool's
// per-scope asset transfer capability.
type BoundToken struct {
	transport *TokenTransport
	token     common.Address
}

// Bind fixes the transport to one token contract.
func (t *TokenTransport) Bind(token common.Address) *BoundToken {
	return &BoundToken{transport: t, token: token}
}

// Pull moves amount from the given address into the pool's custody.
func (b *BoundToken) Pull(from common.Address, amount *big.Int) error {
	return b.transport.Pull(b.token, from, amount)
}

// Push moves amount from the pool's custody to the given address.
func (b *BoundToken) Push(to common.Address, amount *big.Int) error {
	return b.transport.Push(b.token, to, amount)
}
