package service

import (
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/veil-protocol/veil/circuits"
	"github.com/veil-protocol/veil/hybrid"
	"github.com/veil-protocol/veil/ledger"
	"github.com/veil-protocol/veil/pool"
	"github.com/veil-protocol/veil/state"
	"github.com/veil-protocol/veil/storage"
	"github.com/veil-protocol/veil/storage/authset"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"
)

// authorizedSetID is the fixed identifier of the association-set tree a node
// maintains. Derived, not random, so a restarted node reloads the same tree.
var authorizedSetID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("veil/authorized-set"))

// ProtocolConfig holds the parameters needed to assemble a protocol node.
type ProtocolConfig struct {
	DataDir   string
	ChainID   uint64
	Instance  common.Address
	AssetID   uint64
	Authority common.Address
	Verifiers *circuits.VerifierSet
	Assets    pool.AssetTransfer
	Tokens    ledger.TokenTransfer
}

// ProtocolService assembles the persistent stores and the protocol
// components on top of a single key-value database.
type ProtocolService struct {
	db          db.Database
	authDB      db.Database
	storage     *storage.Storage
	state       *state.State
	authSets    *authset.Registry
	authSet     *authset.SetRef
	pool        *pool.Pool
	ledger      *ledger.Ledger
	coordinator *hybrid.Coordinator
}

// NewProtocol opens the node database and wires the pool, the encrypted
// ledger and the hybrid coordinator.
func NewProtocol(cfg *ProtocolConfig) (*ProtocolService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing protocol configuration")
	}
	if cfg.Verifiers == nil {
		return nil, fmt.Errorf("missing circuit verifiers")
	}
	database, err := metadb.New(db.TypePebble, filepath.Join(cfg.DataDir, "veil"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	stg := storage.New(database)

	scope, err := pool.ComputeScope(cfg.ChainID, cfg.Instance, cfg.AssetID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute scope: %w", err)
	}
	st, err := state.New(database, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	authDB, err := metadb.New(db.TypePebble, filepath.Join(cfg.DataDir, "authset"))
	if err != nil {
		return nil, fmt.Errorf("failed to open authorized-set database: %w", err)
	}
	authSets := authset.NewRegistry(authDB)
	var ref *authset.SetRef
	if authSets.Exists(authorizedSetID) {
		ref, err = authSets.Load(authorizedSetID)
	} else {
		ref, err = authSets.New(authorizedSetID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open authorized set: %w", err)
	}

	p, err := pool.New(pool.Config{
		Storage:          stg,
		State:            st,
		Authority:        cfg.Authority,
		WithdrawVerifier: cfg.Verifiers.Withdraw,
		RagequitVerifier: cfg.Verifiers.Ragequit,
		AuthorizedSet:    ref,
		Assets:           cfg.Assets,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	l, err := ledger.New(ledger.Config{
		Database:         database,
		Storage:          stg,
		Authority:        cfg.Authority,
		MintVerifier:     cfg.Verifiers.Mint,
		BurnVerifier:     cfg.Verifiers.Burn,
		TransferVerifier: cfg.Verifiers.Transfer,
		Tokens:           cfg.Tokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}

	log.Infow("protocol components ready",
		"scope", scope.String(), "authority", cfg.Authority.Hex())
	return &ProtocolService{
		db:          database,
		authDB:      authDB,
		storage:     stg,
		state:       st,
		authSets:    authSets,
		authSet:     ref,
		pool:        p,
		ledger:      l,
		coordinator: hybrid.New(database, stg, p, l, cfg.Authority),
	}, nil
}

// Pool returns the anonymity pool component.
func (ps *ProtocolService) Pool() *pool.Pool {
	return ps.pool
}

// Ledger returns the encrypted balance ledger component.
func (ps *ProtocolService) Ledger() *ledger.Ledger {
	return ps.ledger
}

// Coordinator returns the hybrid cross-ledger coordinator.
func (ps *ProtocolService) Coordinator() *hybrid.Coordinator {
	return ps.coordinator
}

// Storage returns the artifact storage.
func (ps *ProtocolService) Storage() *storage.Storage {
	return ps.storage
}

// AuthorizedSet returns the association-set tree reference.
func (ps *ProtocolService) AuthorizedSet() *authset.SetRef {
	return ps.authSet
}

// Close releases the underlying databases.
func (ps *ProtocolService) Close() {
	if err := ps.db.Close(); err != nil {
		log.Warnw("failed to close database", "err", err)
	}
	if err := ps.authDB.Close(); err != nil {
		log.Warnw("failed to close authorized-set database", "err", err)
	}
}
