package chainclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// TransactionStatus represents the status of a tracked transaction
type TransactionStatus int

const (
	// TxPending indicates transaction is pending
	TxPending TransactionStatus = iota
	// TxConfirmed indicates transaction is confirmed
	TxConfirmed
	// TxFailed indicates transaction has failed
	TxFailed
)

// TransactionRecord tracks details about a transaction
type TransactionRecord struct {
	Hash      common.Hash
	Nonce     uint64
	CreatedAt time.Time
	UpdatedAt time.Time
	Status    TransactionStatus
}

// NonceManager handles nonce allocation and tracking for the solver account.
// The solver signs with a single key on a single chain, so one counter and one
// pending set suffice.
type NonceManager struct {
	mu           sync.Mutex
	currentNonce uint64
	pendingTxs   map[uint64]*TransactionRecord
	lastSync     time.Time
	syncInterval time.Duration
}

// NewNonceManager creates a new nonce manager
func NewNonceManager() *NonceManager {
	return &NonceManager{
		pendingTxs:   make(map[uint64]*TransactionRecord),
		syncInterval: 5 * time.Minute,
	}
}

// Reserve allocates and returns the next available nonce, resynchronizing with
// the chain when the local counter is stale
func (nm *NonceManager) Reserve(ctx context.Context, client *ethclient.Client, address common.Address) (uint64, error) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if nm.lastSync.IsZero() || time.Since(nm.lastSync) > nm.syncInterval {
		nonce, err := client.PendingNonceAt(ctx, address)
		if err != nil {
			return 0, fmt.Errorf("failed to get pending nonce: %v", err)
		}
		if nonce > nm.currentNonce {
			nm.currentNonce = nonce
		}
		nm.lastSync = time.Now()
	}

	nonce := nm.currentNonce
	nm.currentNonce++
	return nonce, nil
}

// Track records a broadcast transaction against its reserved nonce
func (nm *NonceManager) Track(txHash common.Hash, nonce uint64) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	now := time.Now()
	nm.pendingTxs[nonce] = &TransactionRecord{
		Hash:      txHash,
		Nonce:     nonce,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    TxPending,
	}
}

// Confirmed marks a transaction as mined and releases its nonce from tracking
func (nm *NonceManager) Confirmed(nonce uint64) bool {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if _, exists := nm.pendingTxs[nonce]; !exists {
		return false
	}
	delete(nm.pendingTxs, nonce)
	return true
}

// Failed marks a broadcast transaction as failed. If it held the lowest
// pending nonce the counter rolls back so the nonce is reused, otherwise the
// gap forces a resync on the next Reserve.
func (nm *NonceManager) Failed(nonce uint64) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	delete(nm.pendingTxs, nonce)

	if nonce == nm.lowestPendingLocked(nonce) {
		if nm.currentNonce > nonce {
			nm.currentNonce = nonce
		}
		return
	}
	nm.lastSync = time.Time{}
}

// Release returns a reserved nonce that was never broadcast. Only the most
// recent reservation can be rolled back directly; anything older forces a
// resync.
func (nm *NonceManager) Release(nonce uint64) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if nonce+1 == nm.currentNonce {
		nm.currentNonce = nonce
		return
	}
	nm.lastSync = time.Time{}
}

// Sync synchronizes the nonce counter with the chain
func (nm *NonceManager) Sync(ctx context.Context, client *ethclient.Client, address common.Address) error {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	nonce, err := client.PendingNonceAt(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get pending nonce: %v", err)
	}
	if nonce > nm.currentNonce {
		nm.currentNonce = nonce
	}
	nm.lastSync = time.Now()
	return nil
}

// PendingCount returns the number of tracked in-flight transactions
func (nm *NonceManager) PendingCount() int {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	return len(nm.pendingTxs)
}

// lowestPendingLocked finds the lowest nonce still pending, treating candidate
// as part of the set. Callers must hold nm.mu.
func (nm *NonceManager) lowestPendingLocked(candidate uint64) uint64 {
	lowest := candidate
	for nonce := range nm.pendingTxs {
		if nonce < lowest {
			lowest = nonce
		}
	}
	return lowest
}
