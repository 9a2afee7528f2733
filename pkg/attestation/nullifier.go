package attestation

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru"
)

// Nullifier derives the single-use replay key for a provider transaction id
func Nullifier(transactionID string) common.Hash {
	return crypto.Keccak256Hash([]byte(transactionID))
}

// NullifierRegistry answers whether a payment nullifier has already been
// consumed. The registry is advisory: it exists to fail fast on replays the
// process already knows about, while the on-chain contract remains the
// authoritative guard. Implementations must never report a nullifier as seen
// unless its consumption is confirmed, otherwise re-attestation of a pending
// payment would be rejected.
type NullifierRegistry interface {
	Seen(ctx context.Context, nullifier common.Hash) (bool, error)
	Mark(nullifier common.Hash)
}

// NullifierReader reads the authoritative used-nullifier set
type NullifierReader interface {
	UsedNullifier(ctx context.Context, nullifier [32]byte) (bool, error)
}

// CacheRegistry is an in-memory LRU of known-consumed nullifiers
type CacheRegistry struct {
	cache *lru.Cache
}

// NewCacheRegistry creates a cache registry holding up to size entries
func NewCacheRegistry(size int) (*CacheRegistry, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CacheRegistry{cache: cache}, nil
}

// Seen reports whether the nullifier is a known-consumed entry
func (r *CacheRegistry) Seen(_ context.Context, nullifier common.Hash) (bool, error) {
	return r.cache.Contains(nullifier), nil
}

// Mark records a confirmed-consumed nullifier
func (r *CacheRegistry) Mark(nullifier common.Hash) {
	r.cache.Add(nullifier, struct{}{})
}

// ChainRegistry consults the on-chain used-nullifier set through a reader and
// remembers positive answers in a local cache so repeat replays fail without
// an RPC round trip.
type ChainRegistry struct {
	reader NullifierReader
	local  *CacheRegistry
}

// NewChainRegistry wraps a chain reader with a local cache
func NewChainRegistry(reader NullifierReader, cacheSize int) (*ChainRegistry, error) {
	local, err := NewCacheRegistry(cacheSize)
	if err != nil {
		return nil, err
	}
	return &ChainRegistry{reader: reader, local: local}, nil
}

// Seen checks the local cache first and falls back to the chain
func (r *ChainRegistry) Seen(ctx context.Context, nullifier common.Hash) (bool, error) {
	if seen, _ := r.local.Seen(ctx, nullifier); seen {
		return true, nil
	}
	if r.reader == nil {
		return false, nil
	}
	used, err := r.reader.UsedNullifier(ctx, nullifier)
	if err != nil {
		return false, err
	}
	if used {
		r.local.Mark(nullifier)
	}
	return used, nil
}

// Mark records a confirmed consumption locally
func (r *ChainRegistry) Mark(nullifier common.Hash) {
	r.local.Mark(nullifier)
}
