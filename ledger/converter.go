package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/veil-protocol/veil/crypto/elgamal"
	"github.com/veil-protocol/veil/types"
	"github.com/veil-protocol/veil/zk"
	"go.vocdoni.io/dvote/log"
)

// TokenTransfer abstracts movement of external fungible tokens in and out
// of the converter's custody.
type TokenTransfer interface {
	Pull(token, from common.Address, amount *big.Int) error
	Push(token, to common.Address, amount *big.Int) error
}

// ConvertReceipt reports the outcome of a converter deposit.
type ConvertReceipt struct {
	AssetID uint64
	// Minted is the credited amount in internal ledger precision.
	Minted *big.Int
	// Dust is the external-precision remainder returned to the depositor.
	Dust *big.Int
}

// Deposit bridges a plain token balance into the encrypted ledger. The
// amount is public, so the ledger encrypts it server-side under the user's
// registered key; no proof is needed. The external amount is rescaled to
// the ledger's internal precision; the truncation remainder stays with the
// depositor, only the convertible portion is pulled.
func (l *Ledger) Deposit(user, token common.Address, amount *big.Int) (*ConvertReceipt, error) {
	if amount == nil || amount.Sign() <= 0 || amount.Cmp(types.MaxDepositValue) >= 0 {
		return nil, ErrInvalidAmount
	}
	if !l.stg.HasAuditor() {
		return nil, ErrAuditorNotSet
	}
	asset, err := l.stg.AssetByToken(token)
	if err != nil {
		return nil, ErrUnknownAsset
	}
	rec, err := l.stg.Identity(user)
	if err != nil {
		return nil, ErrUserNotRegistered
	}

	internal, dust := scaleToInternal(amount, asset.Decimals)
	if internal.Sign() == 0 {
		return nil, fmt.Errorf("%w: amount below internal precision", ErrInvalidAmount)
	}
	converted := new(big.Int).Sub(amount, dust)

	pub := l.curve.New().SetPoint(rec.PublicKeyX.MathBigInt(), rec.PublicKeyY.MathBigInt())
	k, err := elgamal.RandK()
	if err != nil {
		return nil, err
	}
	amountCt, err := elgamal.NewCiphertext(l.curve).Encrypt(internal, pub, k)
	if err != nil {
		return nil, err
	}

	owned := !l.InBatch()
	if owned {
		if err := l.StartBatch(); err != nil {
			return nil, err
		}
		defer l.Discard()
	}

	balance, err := l.Balance(user, asset.ID)
	if err != nil {
		return nil, err
	}
	if balance.IsEmpty() {
		balance.Balance = amountCt
	} else {
		balance.Balance.Add(balance.Balance, amountCt)
	}
	balance.TxIndex++
	if err := l.setBalance(user, asset.ID, balance); err != nil {
		return nil, err
	}

	// the external pull goes last: a transfer failure leaves the staged
	// mint uncommitted and the user keeps the full amount
	if err := l.tokens.Pull(token, user, converted); err != nil {
		return nil, err
	}

	if owned {
		if err := l.EndBatch(); err != nil {
			return nil, err
		}
	}
	log.Debugw("converter deposit",
		"user", user.Hex(), "token", token.Hex(),
		"internal", internal.String(), "dust", dust.String())
	return &ConvertReceipt{AssetID: asset.ID, Minted: internal, Dust: dust}, nil
}

// Withdraw bridges an encrypted balance back out to the plain token. The
// withdrawn amount is public; the burn proof establishes that the encrypted
// subtraction matches it and was built against the exact stored balance.
func (l *Ledger) Withdraw(user common.Address, assetID uint64, amount *big.Int, proof *zk.Proof, signals *zk.BurnSignals) error {
	if amount == nil || amount.Sign() <= 0 || amount.Cmp(types.MaxDepositValue) >= 0 {
		return ErrInvalidAmount
	}
	asset, err := l.stg.AssetByID(assetID)
	if err != nil {
		return ErrUnknownAsset
	}
	external, err := scaleToExternal(amount, asset.Decimals)
	if err != nil {
		return err
	}

	if err := l.Burn(user, assetID, proof, signals); err != nil {
		return err
	}
	if err := l.tokens.Push(asset.Token, user, external); err != nil {
		return err
	}
	log.Debugw("converter withdrawal",
		"user", user.Hex(), "token", asset.Token.Hex(),
		"internal", amount.String(), "external", external.String())
	return nil
}

// scaleToInternal converts an external-precision amount to the ledger's
// internal precision, returning the truncation remainder.
func scaleToInternal(amount *big.Int, extDecimals uint8) (internal, dust *big.Int) {
	if extDecimals >= types.LedgerDecimals {
		factor := pow10(int(extDecimals) - types.LedgerDecimals)
		internal, dust = new(big.Int).DivMod(amount, factor, new(big.Int))
		return internal, dust
	}
	factor := pow10(types.LedgerDecimals - int(extDecimals))
	return new(big.Int).Mul(amount, factor), new(big.Int)
}

// scaleToExternal converts an internal-precision amount back to the
// external token's precision. Amounts that cannot be represented exactly
// are rejected.
func scaleToExternal(amount *big.Int, extDecimals uint8) (*big.Int, error) {
	if extDecimals >= types.LedgerDecimals {
		factor := pow10(int(extDecimals) - types.LedgerDecimals)
		return new(big.Int).Mul(amount, factor), nil
	}
	factor := pow10(types.LedgerDecimals - int(extDecimals))
	external, rem := new(big.Int).DivMod(amount, factor, new(big.Int))
	if rem.Sign() != 0 {
		return nil, fmt.Errorf("%w: not representable in token precision", ErrInvalidAmount)
	}
	return external, nil
}

func pow10(exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}

// TokenBook is an in-process TokenTransfer keeping plain per-token
// balances. It backs single-node deployments and tests.
type TokenBook struct {
	mu       sync.Mutex
	balances map[string]*big.Int
	custody  map[common.Address]*big.Int
}

// NewTokenBook creates an empty TokenBook.
func NewTokenBook() *TokenBook {
	return &TokenBook{
		balances: make(map[string]*big.Int),
		custody:  make(map[common.Address]*big.Int),
	}
}

// Credit adds external token funds to an address.
func (b *TokenBook) Credit(token, addr common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := tokenKey(token, addr)
	b.balances[key] = new(big.Int).Add(b.get(key), amount)
}

// BalanceOf returns the plain token balance of an address.
func (b *TokenBook) BalanceOf(token, addr common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.get(tokenKey(token, addr)))
}

// Custody returns the converter's custody balance for a token.
func (b *TokenBook) Custody(token common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.custody[token]; ok {
		return new(big.Int).Set(c)
	}
	return new(big.Int)
}

// Pull implements TokenTransfer.
func (b *TokenBook) Pull(token, from common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := tokenKey(token, from)
	bal := b.get(key)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient token funds")
	}
	b.balances[key] = new(big.Int).Sub(bal, amount)
	if _, ok := b.custody[token]; !ok {
		b.custody[token] = new(big.Int)
	}
	b.custody[token].Add(b.custody[token], amount)
	return nil
}

// Push implements TokenTransfer.
func (b *TokenBook) Push(token, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.custody[token]
	if !ok || c.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient custody funds")
	}
	c.Sub(c, amount)
	key := tokenKey(token, to)
	b.balances[key] = new(big.Int).Add(b.get(key), amount)
	return nil
}

// get must be called with the mutex held.
func (b *TokenBook) get(key string) *big.Int {
	if bal, ok := b.balances[key]; ok {
		return bal
	}
	return new(big.Int)
}

func tokenKey(token, addr common.Address) string {
	return token.Hex() + "/" + addr.Hex()
}
