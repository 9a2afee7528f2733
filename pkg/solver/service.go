// Package solver drives off-ramp intents through their full lifecycle:
// observe IntentCreated on-chain, quote, execute the fiat transfer once a
// quote is selected, prove the transfer, obtain a witness attestation and
// claim the escrowed USDC. All state transitions go through the local
// ledger so a restart resumes exactly where the previous run stopped.
package solver

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/openramp-hq/openramp-solver/pkg/attestation"
	"github.com/openramp-hq/openramp-solver/pkg/circuitbreaker"
	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/contracts"
	"github.com/openramp-hq/openramp-solver/pkg/health"
	"github.com/openramp-hq/openramp-solver/pkg/ledger"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
	"github.com/openramp-hq/openramp-solver/pkg/metrics"
	"github.com/openramp-hq/openramp-solver/pkg/prover"
	"github.com/openramp-hq/openramp-solver/pkg/rail"
)

// ChainClient is the contract surface the solver needs from the settlement
// chain. *chainclient.Client implements it.
type ChainClient interface {
	Address() common.Address
	ChainID() int64
	SupportsWatch() bool
	LatestBlock(ctx context.Context) (uint64, error)
	UpdateGasPrice(ctx context.Context) (*big.Int, error)
	USDCBalance(ctx context.Context) (*big.Int, error)

	GetIntent(ctx context.Context, intentID common.Hash) (contracts.OffRampIntent, error)
	UsedNullifier(ctx context.Context, nullifier [32]byte) (bool, error)
	QuoteWindow(ctx context.Context) (uint64, error)
	FulfillmentWindow(ctx context.Context) (uint64, error)

	SubmitQuote(ctx context.Context, intentID common.Hash, route uint8, fiatAmount, solverFee *big.Int, estimatedTime uint64) (common.Hash, error)
	SubmitClaim(ctx context.Context, intentID common.Hash, attestation contracts.OffRampPaymentAttestation, signature []byte) (common.Hash, error)

	IntentCreatedEvents(ctx context.Context, fromBlock, toBlock uint64) ([]*contracts.OffRampIntentCreated, error)
	QuoteSelectedEvents(ctx context.Context, fromBlock, toBlock uint64) ([]*contracts.OffRampQuoteSelected, error)
	WatchIntentCreated(ctx context.Context, sink chan<- *contracts.OffRampIntentCreated) (event.Subscription, error)
	WatchQuoteSelected(ctx context.Context, sink chan<- *contracts.OffRampQuoteSelected, solver common.Address) (event.Subscription, error)
}

// Prover produces a selective-disclosure presentation for an executed
// provider transfer.
type Prover interface {
	Prove(ctx context.Context, req prover.Request) (*prover.Result, error)
}

// Attester exchanges a presentation for a witness-signed attestation.
type Attester interface {
	Attest(ctx context.Context, presentation []byte, params attestation.Params) (*attestation.SignedAttestation, error)
}

type jobKind int

const (
	jobQuote jobKind = iota
	jobFulfill
)

type job struct {
	id   common.Hash
	kind jobKind
}

// Service is the solver daemon: event scanner, quoting engine and
// fulfillment pipeline sharing one worker pool.
type Service struct {
	config   *config.Config
	store    *ledger.Store
	chain    ChainClient
	rails    *rail.Registry
	prover   Prover
	attester Attester
	breakers *circuitbreaker.Set
	pricer   *Pricer
	logger   logger.Logger

	workers int
	jobs    chan job
	wg      sync.WaitGroup

	mu       sync.Mutex
	inFlight map[common.Hash]bool

	// Contract parameters, read once at startup. Zero means unknown.
	quoteWindow       uint64
	fulfillmentWindow uint64
}

// NewService wires the solver from its dependencies
func NewService(cfg *config.Config, store *ledger.Store, chain ChainClient, rails *rail.Registry, prv Prover, att Attester, log logger.Logger) *Service {
	return &Service{
		config:   cfg,
		store:    store,
		chain:    chain,
		rails:    rails,
		prover:   prv,
		attester: att,
		breakers: circuitbreaker.NewSet(rails.Routes(), cfg.CircuitBreaker, log),
		pricer:   NewPricer(cfg.Pricing),
		logger:   log,
		workers:  cfg.WorkerCount,
		jobs:     make(chan job, 100), // Buffer for pending work
		inFlight: make(map[common.Hash]bool),
	}
}

// Start runs the solver until the context is cancelled
func (s *Service) Start(ctx context.Context) {
	healthServer := health.NewServer(s.config.MetricsPort, s.chain, s.store, s.breakers, s.InFlight)
	go healthServer.Start()

	s.loadWindows(ctx)

	s.logger.Notice("Starting worker pool with %d workers", s.workers)
	for i := 0; i < s.workers; i++ {
		go s.worker(ctx, i)
	}

	if s.chain.SupportsWatch() {
		go s.watchEvents(ctx)
	}

	go s.metricsUpdater(ctx)

	s.logger.Info("Starting solver %s with polling interval %v", s.chain.Address().Hex(), s.config.PollingInterval)
	ticker := time.NewTicker(s.config.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Notice("Context cancelled, shutting down service")
			close(s.jobs)
			s.wg.Wait() // Wait for all workers to finish
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one poll cycle: advance the chain scan, then queue work the
// ledger says is due.
func (s *Service) tick(ctx context.Context) {
	if err := s.scanChain(ctx); err != nil {
		s.logger.Error("Chain scan failed: %v", err)
	}

	quotable, err := s.store.IntentsAwaitingQuote(ctx)
	if err != nil {
		s.logger.Error("Error listing intents awaiting quotes: %v", err)
	} else {
		for _, intent := range quotable {
			s.enqueue(job{id: intent.ID, kind: jobQuote})
		}
	}

	pending, err := s.store.IntentsAwaitingFulfillment(ctx, s.chain.Address())
	if err != nil {
		s.logger.Error("Error listing committed intents: %v", err)
	} else {
		for _, intent := range pending {
			s.enqueue(job{id: intent.ID, kind: jobFulfill})
		}
	}

	retries, err := s.store.IntentsReadyForRetry(ctx, s.chain.Address(), time.Now().UTC())
	if err != nil {
		s.logger.Error("Error listing retryable intents: %v", err)
	} else {
		for _, intent := range retries {
			s.logger.Debug("Retry due for intent %s (attempt %d)", intent.ID.Hex(), intent.RetryCount+1)
			s.enqueue(job{id: intent.ID, kind: jobFulfill})
		}
	}
}

// enqueue hands a job to the worker pool unless the intent is already queued
// or being processed. The in-flight mark is cleared by the worker.
func (s *Service) enqueue(j job) {
	s.mu.Lock()
	if s.inFlight[j.id] {
		s.mu.Unlock()
		return
	}
	s.inFlight[j.id] = true
	s.mu.Unlock()

	s.wg.Add(1)
	select {
	case s.jobs <- j:
		metrics.PipelinesInFlight.Inc()
	default:
		// Queue full. Drop the job, the next poll picks the intent up again.
		s.clearInFlight(j.id)
		s.wg.Done()
		s.logger.Error("Job queue full, dropping intent %s", j.id.Hex())
	}
}

func (s *Service) clearInFlight(id common.Hash) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

// InFlight returns the number of intents currently queued or being processed
func (s *Service) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// worker consumes jobs until the channel closes. Cancellation propagates
// through the context carried by each blocking call, so draining the
// remaining queue after shutdown is quick.
func (s *Service) worker(ctx context.Context, id int) {
	s.logger.Debug("Starting worker %d", id)
	for j := range s.jobs {
		switch j.kind {
		case jobQuote:
			if err := s.quoteIntent(ctx, j.id); err != nil {
				s.logger.Error("Worker %d: quoting intent %s failed: %v", id, j.id.Hex(), err)
			}
		case jobFulfill:
			s.runFulfillment(ctx, j.id)
		}
		s.clearInFlight(j.id)
		metrics.PipelinesInFlight.Dec()
		s.wg.Done()
	}
	s.logger.Debug("Worker %d shutting down: channel closed", id)
}

// loadWindows reads the contract's quote and fulfillment windows. Both are
// immutable contract parameters, so one read at startup is enough.
func (s *Service) loadWindows(ctx context.Context) {
	if w, err := s.chain.QuoteWindow(ctx); err != nil {
		s.logger.Error("Failed to read quote window: %v", err)
	} else {
		s.quoteWindow = w
	}
	if w, err := s.chain.FulfillmentWindow(ctx); err != nil {
		s.logger.Error("Failed to read fulfillment window: %v", err)
	} else {
		s.fulfillmentWindow = w
	}
}

// scanBatchBlocks caps how many blocks one scan pass covers so a long
// offline stretch cannot turn into an unbounded log query.
const scanBatchBlocks = 5000

// scanChain advances the block checkpoint, applying IntentCreated and
// QuoteSelected events to the local ledger. Handlers are idempotent, so
// overlap with the websocket watcher is harmless.
func (s *Service) scanChain(ctx context.Context) error {
	latest, err := s.chain.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("failed to read latest block: %v", err)
	}

	last, err := s.store.LastScannedBlock(ctx, s.chain.ChainID())
	if err != nil {
		return err
	}

	from := last + 1
	if last == 0 {
		// First run: start near the tip instead of replaying chain history
		if latest == 0 {
			return nil
		}
		from = latest - 1
	}
	if from > latest {
		return nil
	}

	to := latest
	if to-from+1 > scanBatchBlocks {
		to = from + scanBatchBlocks - 1
	}

	created, err := s.chain.IntentCreatedEvents(ctx, from, to)
	if err != nil {
		return err
	}
	for _, ev := range created {
		if err := s.handleIntentCreated(ctx, ev); err != nil {
			s.logger.Error("Error handling IntentCreated for %s: %v", common.Hash(ev.IntentId).Hex(), err)
		}
	}

	selected, err := s.chain.QuoteSelectedEvents(ctx, from, to)
	if err != nil {
		return err
	}
	for _, ev := range selected {
		if err := s.handleQuoteSelected(ctx, ev); err != nil {
			s.logger.Error("Error handling QuoteSelected for %s: %v", common.Hash(ev.IntentId).Hex(), err)
		}
	}

	if err := s.store.SetLastScannedBlock(ctx, s.chain.ChainID(), to); err != nil {
		return err
	}
	metrics.LastScannedBlock.Set(float64(to))
	s.logger.Debug("Scanned blocks %d to %d: %d intents created, %d quotes selected", from, to, len(created), len(selected))
	return nil
}

// metricsUpdater refreshes the gas price and balance gauges in the background
func (s *Service) metricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateCtx, cancel := context.WithTimeout(ctx, 10*time.Second)

			if gasPrice, err := s.chain.UpdateGasPrice(updateCtx); err != nil {
				s.logger.Debug("Gas price refresh failed: %v", err)
			} else {
				gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(gasPrice), big.NewFloat(1e9)).Float64()
				metrics.GasPrice.Set(gwei)
			}

			if balance, err := s.chain.USDCBalance(updateCtx); err != nil {
				s.logger.Debug("USDC balance read failed: %v", err)
			} else {
				units, _ := new(big.Float).SetInt(balance).Float64()
				metrics.USDCBalance.Set(units)
			}

			cancel()
		}
	}
}
