package rpc

// This package contains the Web3Pool struct, a pool of web3 endpoints grouped
// by chainID. Endpoints for the same chain are used in rotation; an endpoint
// that fails is flagged as unavailable and skipped until every endpoint of
// its chain has failed, at which point the whole set is re-enabled and the
// rotation starts over.

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	// DefaultMaxWeb3ClientRetries is the default number of retries to connect to
	// a web3 provider.
	DefaultMaxWeb3ClientRetries = 5
	// checkWeb3EndpointsTimeout is the timeout to check the web3 endpoints.
	checkWeb3EndpointsTimeout = time.Second * 10
)

// Web3Endpoint is one web3 provider bound to a chain.
type Web3Endpoint struct {
	ChainID   uint64
	URI       string
	IsArchive bool
	client    *ethclient.Client
	available bool
}

// EthClient returns the underlying ethclient of the endpoint.
func (e *Web3Endpoint) EthClient() *ethclient.Client {
	return e.client
}

// Web3Iterator rotates over the endpoints of a single chain, skipping the
// ones flagged as unavailable.
type Web3Iterator struct {
	mu        sync.Mutex
	endpoints []*Web3Endpoint
	next      int
}

// NewWeb3Iterator creates an iterator seeded with the given endpoint.
func NewWeb3Iterator(endpoint *Web3Endpoint) *Web3Iterator {
	endpoint.available = true
	return &Web3Iterator{endpoints: []*Web3Endpoint{endpoint}}
}

// Add appends an endpoint to the rotation.
func (it *Web3Iterator) Add(endpoint *Web3Endpoint) {
	it.mu.Lock()
	defer it.mu.Unlock()
	endpoint.available = true
	it.endpoints = append(it.endpoints, endpoint)
}

// Next returns the next available endpoint. When every endpoint has been
// disabled, the whole set is re-enabled and the first one is returned.
func (it *Web3Iterator) Next() (*Web3Endpoint, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if len(it.endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints registered")
	}
	for range it.endpoints {
		e := it.endpoints[it.next%len(it.endpoints)]
		it.next++
		if e.available {
			return e, nil
		}
	}
	// all disabled, reset and start over
	for _, e := range it.endpoints {
		e.available = true
	}
	it.next = 1
	return it.endpoints[0], nil
}

// Disable flags the endpoint with the given URI as unavailable.
func (it *Web3Iterator) Disable(uri string) {
	it.mu.Lock()
	defer it.mu.Unlock()
	for _, e := range it.endpoints {
		if e.URI == uri {
			e.available = false
		}
	}
}

// Available returns the number of available endpoints.
func (it *Web3Iterator) Available() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	n := 0
	for _, e := range it.endpoints {
		if e.available {
			n++
		}
	}
	return n
}

// Disabled returns the number of disabled endpoints.
func (it *Web3Iterator) Disabled() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return len(it.endpoints) - it.availableLocked()
}

func (it *Web3Iterator) availableLocked() int {
	n := 0
	for _, e := range it.endpoints {
		if e.available {
			n++
		}
	}
	return n
}

// Web3Pool groups endpoints by chainID. It provides methods to add and get
// endpoints, and builds Client instances bound to one chain.
type Web3Pool struct {
	mu        sync.RWMutex
	endpoints map[uint64]*Web3Iterator
}

// NewWeb3Pool method returns a new *Web3Pool instance.
func NewWeb3Pool() *Web3Pool {
	return &Web3Pool{
		endpoints: make(map[uint64]*Web3Iterator),
	}
}

// AddEndpoint method adds a new web3 provider URI to the Web3Pool.
// It returns the chainID of the endpoint added to the pool.
func (nm *Web3Pool) AddEndpoint(uri string) (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), checkWeb3EndpointsTimeout)
	defer cancel()
	client, err := connect(ctx, uri)
	if err != nil {
		return 0, fmt.Errorf("error dialing web3 provider uri '%s': %w", uri, err)
	}
	bChainID, err := client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("error getting the chainID from the web3 provider '%s': %w", uri, err)
	}
	chainID := bChainID.Uint64()
	endpoint := &Web3Endpoint{
		ChainID:   chainID,
		URI:       uri,
		client:    client,
		IsArchive: isArchiveNode(ctx, client),
	}
	nm.mu.Lock()
	defer nm.mu.Unlock()
	if _, ok := nm.endpoints[chainID]; !ok {
		nm.endpoints[chainID] = NewWeb3Iterator(endpoint)
	} else {
		nm.endpoints[chainID].Add(endpoint)
	}
	return chainID, nil
}

// Endpoint method returns the next available Web3Endpoint for the chainID
// provided. If no available endpoint is found, returns an error.
func (nm *Web3Pool) Endpoint(chainID uint64) (*Web3Endpoint, error) {
	nm.mu.RLock()
	endpoints, ok := nm.endpoints[chainID]
	nm.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no endpoint found for chainID %d", chainID)
	}
	return endpoints.Next()
}

// DisableEndpoint method sets the available flag to false for the URI provided
// in the chainID provided.
func (nm *Web3Pool) DisableEndpoint(chainID uint64, uri string) {
	nm.mu.RLock()
	endpoints, ok := nm.endpoints[chainID]
	nm.mu.RUnlock()
	if ok {
		endpoints.Disable(uri)
	}
}

// NumberOfEndpoints method returns the total number (or just the available
// ones) of endpoints for the chainID provided.
func (nm *Web3Pool) NumberOfEndpoints(chainID uint64, onlyAvailable bool) int {
	nm.mu.RLock()
	endpoints, ok := nm.endpoints[chainID]
	nm.mu.RUnlock()
	if !ok {
		return 0
	}
	n := endpoints.Available()
	if !onlyAvailable {
		n += endpoints.Disabled()
	}
	return n
}

// Client method returns a new *Client instance for the chainID provided.
// It returns an error if no endpoint is registered for it.
func (nm *Web3Pool) Client(chainID uint64) (*Client, error) {
	if _, err := nm.Endpoint(chainID); err != nil {
		return nil, fmt.Errorf("error getting endpoint for chainID %d: %w", chainID, err)
	}
	return &Client{w3p: nm, chainID: chainID}, nil
}

// connect method returns a new *ethclient.Client instance for the URI provided.
// It retries to connect to the web3 provider if it fails, up to the
// DefaultMaxWeb3ClientRetries times.
func connect(ctx context.Context, uri string) (client *ethclient.Client, err error) {
	for i := 0; i < DefaultMaxWeb3ClientRetries; i++ {
		if client, err = ethclient.DialContext(ctx, uri); err != nil {
			continue
		}
		return
	}
	return nil, fmt.Errorf("error dialing web3 provider uri '%s': %w", uri, err)
}

// isArchiveNode reports whether the web3 client looks like an archive node,
// probing the transactions of block 1.
func isArchiveNode(ctx context.Context, client *ethclient.Client) bool {
	block, err := client.BlockByNumber(ctx, big.NewInt(1))
	if err != nil {
		return strings.Contains(err.Error(), "transaction type not supported")
	}
	if _, err := client.TransactionCount(ctx, block.Hash()); err != nil {
		return strings.Contains(err.Error(), "transaction type not supported")
	}
	return true
}
