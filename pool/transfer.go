package pool

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientFunds is returned by Pull when the source balance
	// cannot cover the requested amount.
	ErrInsufficientFunds = fmt.Errorf("insufficient funds")
	// ErrAmountMismatch is returned when the amount actually moved differs
	// from the requested one (non-standard transfer behavior).
	ErrAmountMismatch = fmt.Errorf("transferred amount mismatch")
)

// AssetTransfer abstracts the external value-transfer mechanism. An
// implementation must verify that the amount actually moved equals the
// requested one and fail with ErrAmountMismatch otherwise.
type AssetTransfer interface {
	// Pull moves amount from the given address into the pool's custody.
	Pull(from common.Address, amount *big.Int) error
	// Push moves amount from the pool's custody to the given address.
	Push(to common.Address, amount *big.Int) error
}

// AccountBook is an in-process AssetTransfer keeping plain balances per
// address plus the pool's own custody balance. It backs single-node
// deployments and tests; an on-chain token adapter satisfies the same
// interface.
type AccountBook struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	custody  *big.Int

	// TransferTax simulates a token that delivers less than requested.
	// Zero for standard behavior.
	TransferTax *big.Int
}

// NewAccountBook creates an empty AccountBook.
func NewAccountBook() *AccountBook {
	return &AccountBook{
		balances: make(map[common.Address]*big.Int),
		custody:  new(big.Int),
	}
}

// Credit adds funds to an address, outside of any pool operation.
func (b *AccountBook) Credit(addr common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[addr] = new(big.Int).Add(b.balance(addr), amount)
}

// BalanceOf returns the plain balance of an address.
func (b *AccountBook) BalanceOf(addr common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.balance(addr))
}

// Custody returns the pool's custody balance.
func (b *AccountBook) Custody() *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.custody)
}

// Pull implements AssetTransfer.
func (b *AccountBook) Pull(from common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balance(from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	received := new(big.Int).Set(amount)
	if b.TransferTax != nil {
		received.Sub(received, b.TransferTax)
	}
	if received.Cmp(amount) != 0 {
		return ErrAmountMismatch
	}
	b.balances[from] = new(big.Int).Sub(bal, amount)
	b.custody.Add(b.custody, received)
	return nil
}

// Push implements AssetTransfer.
func (b *AccountBook) Push(to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.custody.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	b.custody.Sub(b.custody, amount)
	b.balances[to] = new(big.Int).Add(b.balance(to), amount)
	return nil
}

// balance must be called with the mutex held.
func (b *AccountBook) balance(addr common.Address) *big.Int {
	if bal, ok := b.balances[addr]; ok {
		return bal
	}
	return new(big.Int)
}
