// Package rail abstracts the payment networks that move fiat to the
// depositor's bank account. Each enabled route is served by one Rail
// implementation, selected through a static registry.
package rail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openramp-hq/openramp-solver/pkg/models"
)

// ErrTransferDeclined indicates the provider rejected the transfer outright.
// No fiat moved, so the caller may treat the intent as failed without a
// retry.
var ErrTransferDeclined = errors.New("transfer declined by provider")

// TransferStatus is the normalized provider transfer state
type TransferStatus string

const (
	// StatusPending means the transfer is accepted but not yet in flight
	StatusPending TransferStatus = "pending"
	// StatusProcessing means the transfer is in flight on the payment network
	StatusProcessing TransferStatus = "processing"
	// StatusCompleted means funds reached the beneficiary
	StatusCompleted TransferStatus = "completed"
	// StatusDeclined means the provider rejected or reversed the transfer
	StatusDeclined TransferStatus = "declined"
)

// Terminal reports whether the status can no longer change
func (s TransferStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusDeclined
}

// TransferRequest describes one outgoing fiat transfer
type TransferRequest struct {
	Route       models.Route
	AmountCents int64
	Currency    models.Currency
	Beneficiary models.Beneficiary
	Reference   string
	// IdempotencyKey makes provider-side retries safe. Callers must reuse
	// the same key when re-submitting the same logical transfer.
	IdempotencyKey string
}

// TransferResult is the provider's acknowledgement of an executed transfer
type TransferResult struct {
	TransferID      string
	AmountSentCents int64
	Status          TransferStatus
}

// Rail moves fiat over one payment network
type Rail interface {
	Route() models.Route
	ExecuteTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	GetTransferStatus(ctx context.Context, transferID string) (TransferStatus, error)
}

// Registry is the static route-to-rail mapping built at startup
type Registry struct {
	rails map[models.Route]Rail
}

// NewRegistry indexes the given rails by their route
func NewRegistry(rails ...Rail) *Registry {
	indexed := make(map[models.Route]Rail, len(rails))
	for _, r := range rails {
		indexed[r.Route()] = r
	}
	return &Registry{rails: indexed}
}

// Lookup returns the rail serving the given route
func (r *Registry) Lookup(route models.Route) (Rail, error) {
	rl, ok := r.rails[route]
	if !ok {
		return nil, fmt.Errorf("no rail configured for route %s", route)
	}
	return rl, nil
}

// Routes lists the routes with a configured rail
func (r *Registry) Routes() []models.Route {
	routes := make([]models.Route, 0, len(r.rails))
	for route := range r.rails {
		routes = append(routes, route)
	}
	return routes
}

// WaitCompleted polls a transfer until it settles, is declined, or the
// context expires. Instant rails usually settle within seconds; the poll
// interval trades provider load against detection latency.
func WaitCompleted(ctx context.Context, r Rail, transferID string, pollInterval time.Duration) (TransferStatus, error) {
	status, err := r.GetTransferStatus(ctx, transferID)
	if err != nil {
		return status, err
	}
	if status.Terminal() {
		return status, nil
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return status, fmt.Errorf("transfer %s not settled: %w", transferID, ctx.Err())
		case <-ticker.C:
			status, err = r.GetTransferStatus(ctx, transferID)
			if err != nil {
				return status, err
			}
			if status.Terminal() {
				return status, nil
			}
		}
	}
}
