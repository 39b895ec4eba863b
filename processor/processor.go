// Package processor runs the withdrawal-processor role. Withdrawal proofs
// bind the spend to a request naming a processor address; this worker holds
// that address and executes submitted requests against the pool, or against
// the hybrid coordinator when the request carries a ledger burn.
package processor

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/veil-protocol/veil/hybrid"
	"github.com/veil-protocol/veil/pool"
	"github.com/veil-protocol/veil/zk"
	"go.vocdoni.io/dvote/log"
)

var (
	// ErrNotProcessor is returned when a submitted request names a
	// different processor address.
	ErrNotProcessor = fmt.Errorf("request is bound to a different processor")
	// ErrQueueFull is returned when the submission queue is saturated.
	ErrQueueFull = fmt.Errorf("withdrawal queue is full")
	// ErrNotRunning is returned when submitting to a stopped processor.
	ErrNotRunning = fmt.Errorf("processor is not running")
)

// Request is one withdrawal submission. The hybrid fields are optional; when
// BurnSignals is set the withdrawal is executed atomically with the ledger
// burn through the coordinator.
type Request struct {
	Withdrawal *pool.WithdrawalRequest
	Proof      *zk.Proof
	Signals    *zk.WithdrawSignals

	// Account holds the encrypted balance the burn proof was built
	// against. Required for hybrid requests.
	Account     common.Address
	AssetID     uint64
	BurnProof   *zk.Proof
	BurnSignals *zk.BurnSignals

	// Result receives the outcome of the execution. Must be buffered or
	// consumed promptly.
	Result chan error
}

// Processor consumes withdrawal requests addressed to it and executes them
// sequentially in the background.
type Processor struct {
	address     common.Address
	pool        *pool.Pool
	coordinator *hybrid.Coordinator
	queue       chan *Request

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a processor for the given address. The coordinator may be nil
// when the node runs without the encrypted ledger.
func New(address common.Address, p *pool.Pool, coordinator *hybrid.Coordinator, queueSize int) (*Processor, error) {
	if address == (common.Address{}) {
		return nil, fmt.Errorf("processor address cannot be zero")
	}
	if p == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	if queueSize <= 0 {
		queueSize = 128
	}
	return &Processor{
		address:     address,
		pool:        p,
		coordinator: coordinator,
		queue:       make(chan *Request, queueSize),
	}, nil
}

// Address returns the processor address withdrawals must be bound to.
func (p *Processor) Address() common.Address {
	return p.address
}

// Start begins the background execution loop. It returns an error if the
// processor is already running.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("processor already running")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true
	p.wg.Add(1)
	go p.run()
	log.Infow("withdrawal processor started", "address", p.address.Hex())
	return nil
}

// Stop halts the execution loop and waits for the in-flight request to
// finish. Requests still queued are failed with ErrNotRunning so their
// submitters unblock. Safe to call multiple times.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()
	p.wg.Wait()
	for {
		select {
		case req := <-p.queue:
			if req.Result != nil {
				req.Result <- ErrNotRunning
			}
		default:
			log.Infow("withdrawal processor stopped")
			return
		}
	}
}

// Submit enqueues a withdrawal request. It fails fast when the request names
// another processor or when the queue is saturated.
func (p *Processor) Submit(req *Request) error {
	if req == nil || req.Withdrawal == nil {
		return fmt.Errorf("nil request")
	}
	if req.Withdrawal.Processor != p.address {
		return ErrNotProcessor
	}
	if req.BurnSignals != nil && req.Account == (common.Address{}) {
		return fmt.Errorf("hybrid request without a burn account")
	}
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return ErrNotRunning
	}
	select {
	case p.queue <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Processor) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case req := <-p.queue:
			err := p.execute(req)
			if err != nil {
				log.Warnw("withdrawal execution failed",
					"recipient", req.Withdrawal.Recipient.Hex(), "err", err)
			} else {
				log.Debugw("withdrawal executed",
					"recipient", req.Withdrawal.Recipient.Hex())
			}
			if req.Result != nil {
				req.Result <- err
			}
		}
		// leave promptly after a cancel so Stop can drain the queue
		select {
		case <-p.ctx.Done():
			return
		default:
		}
	}
}

func (p *Processor) execute(req *Request) error {
	if req.BurnSignals != nil {
		if p.coordinator == nil {
			return fmt.Errorf("hybrid request on a node without coordinator")
		}
		return p.coordinator.Withdraw(p.address, req.Account, req.AssetID,
			req.BurnProof, req.BurnSignals, req.Withdrawal, req.Proof, req.Signals)
	}
	return p.pool.Withdraw(p.address, req.Withdrawal, req.Proof, req.Signals)
}
