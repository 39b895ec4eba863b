package tests

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/veil-protocol/veil/crypto/ecc"
	"github.com/veil-protocol/veil/crypto/elgamal"
	"github.com/veil-protocol/veil/hybrid"
	"github.com/veil-protocol/veil/ledger"
	"github.com/veil-protocol/veil/pool"
	"github.com/veil-protocol/veil/state"
	"github.com/veil-protocol/veil/storage"
	"github.com/veil-protocol/veil/storage/authset"
	"github.com/veil-protocol/veil/types"
	"github.com/veil-protocol/veil/util"
	"github.com/veil-protocol/veil/zk"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	authority = common.HexToAddress("0x0000000000000000000000000000000000000001")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	relayer   = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	auditor   = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	testToken = common.HexToAddress("0x000000000000000000000000000000000000f00d")
)

const testAssetID = uint64(1)

type keyPair struct {
	pub  ecc.Point
	priv *big.Int
}

// env assembles a full protocol node over one database, with accepting
// static verifiers standing in for the circuits.
type env struct {
	stg     *storage.Storage
	pool    *pool.Pool
	ledger  *ledger.Ledger
	coord   *hybrid.Coordinator
	book    *pool.AccountBook
	tokens  *ledger.TokenBook
	authSet *authset.SetRef

	withdraw *zk.StaticVerifier
	ragequit *zk.StaticVerifier
	mint     *zk.StaticVerifier
	burn     *zk.StaticVerifier

	keys map[common.Address]keyPair
}

func newEnv(t *testing.T) *env {
	t.Helper()
	c := qt.New(t)
	database := metadb.NewTest(t)
	stg := storage.New(database)

	scope, err := pool.ComputeScope(1, common.HexToAddress("0x01"), testAssetID)
	c.Assert(err, qt.IsNil)
	st, err := state.New(database, scope)
	c.Assert(err, qt.IsNil)

	registry := authset.NewRegistry(metadb.NewTest(t))
	ref, err := registry.New(uuid.New())
	c.Assert(err, qt.IsNil)

	book := pool.NewAccountBook()
	withdrawVerifier := &zk.StaticVerifier{}
	ragequitVerifier := &zk.StaticVerifier{}
	p, err := pool.New(pool.Config{
		Storage:          stg,
		State:            st,
		Authority:        authority,
		WithdrawVerifier: withdrawVerifier,
		RagequitVerifier: ragequitVerifier,
		AuthorizedSet:    ref,
		Assets:           book,
	})
	c.Assert(err, qt.IsNil)

	mintVerifier := &zk.StaticVerifier{}
	burnVerifier := &zk.StaticVerifier{}
	tokens := ledger.NewTokenBook()
	l, err := ledger.New(ledger.Config{
		Database:         database,
		Storage:          stg,
		Authority:        authority,
		MintVerifier:     mintVerifier,
		BurnVerifier:     burnVerifier,
		TransferVerifier: &zk.StaticVerifier{},
		Tokens:           tokens,
	})
	c.Assert(err, qt.IsNil)

	e := &env{
		stg:      stg,
		pool:     p,
		ledger:   l,
		coord:    hybrid.New(database, stg, p, l, authority),
		book:     book,
		tokens:   tokens,
		authSet:  ref,
		withdraw: withdrawVerifier,
		ragequit: ragequitVerifier,
		mint:     mintVerifier,
		burn:     burnVerifier,
		keys:     make(map[common.Address]keyPair),
	}
	for _, addr := range []common.Address{alice, bob, auditor} {
		pub, priv, err := elgamal.GenerateKey(l.Curve())
		c.Assert(err, qt.IsNil)
		x, y := pub.Point()
		c.Assert(stg.RegisterIdentity(addr, x, y), qt.IsNil)
		e.keys[addr] = keyPair{pub: pub, priv: priv}
	}
	c.Assert(l.SetAuditor(authority, auditor), qt.IsNil)
	return e
}

// precommitment draws a random field-sized precommitment hash.
func precommitment() *big.Int {
	return new(big.Int).SetBytes(util.RandomBytes(31))
}

func (e *env) publicKey(addr common.Address) zk.PublicKey {
	x, y := e.keys[addr].pub.Point()
	return zk.PublicKey{X: x, Y: y}
}

func (e *env) encrypt(t *testing.T, addr common.Address, amount int64) *elgamal.Ciphertext {
	t.Helper()
	k, err := elgamal.RandK()
	qt.Assert(t, err, qt.IsNil)
	ct, err := elgamal.NewCiphertext(e.ledger.Curve()).Encrypt(big.NewInt(amount), e.keys[addr].pub, k)
	qt.Assert(t, err, qt.IsNil)
	return ct
}

func (e *env) decryptBalance(t *testing.T, addr common.Address) int64 {
	t.Helper()
	balance, err := e.ledger.Balance(addr, testAssetID)
	qt.Assert(t, err, qt.IsNil)
	if balance.IsEmpty() {
		return 0
	}
	kp := e.keys[addr]
	_, msg, err := elgamal.Decrypt(kp.pub, kp.priv, balance.Balance.C1, balance.Balance.C2, 100000)
	qt.Assert(t, err, qt.IsNil)
	return msg.Int64()
}

func dummyPCT() *types.PCT {
	p := &types.PCT{
		AuthKeyX: types.NewBigInt(1),
		AuthKeyY: types.NewBigInt(2),
		Nonce:    types.NewBigInt(3),
	}
	for i := range p.Ciphertext {
		p.Ciphertext[i] = types.NewBigInt(int64(i + 10))
	}
	return p
}

func (e *env) mintSignals(addr common.Address, amount *elgamal.Ciphertext) *zk.MintSignals {
	return &zk.MintSignals{
		UserPublicKey:    e.publicKey(addr),
		AuditorPublicKey: e.publicKey(auditor),
		Amount:           zk.EGCTFromCiphertext(amount),
		AuditorPCT:       dummyPCT(),
	}
}

func (e *env) burnSignals(t *testing.T, addr common.Address, amount *elgamal.Ciphertext) *zk.BurnSignals {
	t.Helper()
	balance, err := e.ledger.Balance(addr, testAssetID)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, balance.IsEmpty(), qt.IsFalse)
	return &zk.BurnSignals{
		UserPublicKey:    e.publicKey(addr),
		AuditorPublicKey: e.publicKey(auditor),
		Balance:          zk.EGCTFromCiphertext(balance.Balance),
		Amount:           zk.EGCTFromCiphertext(amount),
		NewBalancePCT:    dummyPCT(),
	}
}

// withdrawSignals builds an accepting signal set rooted in the live state.
func (e *env) withdrawSignals(t *testing.T, req *pool.WithdrawalRequest, nullifier, value *big.Int) *zk.WithdrawSignals {
	t.Helper()
	root, err := e.pool.State().Root()
	qt.Assert(t, err, qt.IsNil)
	aspRoot, err := e.authSet.LatestRoot()
	qt.Assert(t, err, qt.IsNil)
	ctx, err := req.Context(e.pool.Scope())
	qt.Assert(t, err, qt.IsNil)
	return &zk.WithdrawSignals{
		NewCommitmentHash: new(big.Int).Add(nullifier, big.NewInt(1)),
		NullifierHash:     nullifier,
		Value:             value,
		StateRoot:         root,
		StateTreeDepth:    big.NewInt(int64(types.StateTreeMaxLevels)),
		ASPRoot:           aspRoot,
		ASPTreeDepth:      big.NewInt(int64(types.AuthorizedSetMaxLevels)),
		Context:           ctx,
	}
}
