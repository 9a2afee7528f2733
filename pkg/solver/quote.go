package solver

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/metrics"
	"github.com/openramp-hq/openramp-solver/pkg/models"
)

// Pricer turns an intent's USDC amount into fiat quote amounts using the
// configured static reference rates. The spread is the solver's margin,
// taken off the rate; the flat fee is charged on-chain in USDC units.
type Pricer struct {
	cfg config.PricingConfig
}

// NewPricer builds a pricer from the pricing configuration
func NewPricer(cfg config.PricingConfig) *Pricer {
	return &Pricer{cfg: cfg}
}

// FiatQuote returns the fiat amount in cents offered for usdcAmount (in
// USDC base units) settling into the given currency. Rounding is always
// down, the depositor never receives more than the rate implies.
func (p *Pricer) FiatQuote(usdcAmount *big.Int, currency models.Currency) (int64, error) {
	rate, ok := p.cfg.Rates[currency]
	if !ok {
		return 0, fmt.Errorf("no rate configured for %s", currency)
	}

	// cents = units * rate * (10000 - spread) / 10000 / 1e6 * 100
	amount := new(big.Float).SetInt(usdcAmount)
	amount.Mul(amount, big.NewFloat(rate))
	amount.Mul(amount, big.NewFloat(float64(10000-p.cfg.SpreadBps)))
	amount.Quo(amount, big.NewFloat(1e8))

	cents, _ := amount.Int64()
	if cents <= 0 {
		return 0, fmt.Errorf("quote for %s units into %s rounds to zero", usdcAmount, currency)
	}
	return cents, nil
}

// Fee returns the flat solver fee in USDC base units
func (p *Pricer) Fee() *big.Int {
	return new(big.Int).Set(p.cfg.FlatFee)
}

// ETA returns the estimated settlement time for a route in seconds
func (p *Pricer) ETA(route models.Route) uint64 {
	if eta, ok := p.cfg.RouteETA[route]; ok {
		return eta
	}
	return 600
}

// quoteIntent submits quotes for every enabled route servicing the intent's
// currency. Quoting is best effort per route: one failed submission does not
// block the others, and the intent stays eligible for the next poll until at
// least one quote lands or the quote window closes.
func (s *Service) quoteIntent(ctx context.Context, id common.Hash) error {
	intent, err := s.store.GetIntent(ctx, id)
	if err != nil {
		return err
	}
	if intent.Status != models.StatusCreated || intent.QuotesSubmitted {
		return nil
	}

	if s.quoteWindow > 0 {
		age := time.Since(intent.CreatedAt)
		if age > time.Duration(s.quoteWindow)*time.Second {
			s.logger.Debug("Intent %s past the quote window (age %v), not quoting", id.Hex(), age)
			return s.store.MarkQuotesSubmitted(ctx, id)
		}
	}

	routes := s.viableRoutes(intent.Currency)
	if len(routes) == 0 {
		s.logger.Debug("No serviceable route for intent %s (%s)", id.Hex(), intent.Currency)
		return s.store.MarkQuotesSubmitted(ctx, id)
	}

	cents, err := s.pricer.FiatQuote(intent.UsdcAmount, intent.Currency)
	if err != nil {
		// Pricing failures are configuration problems, re-quoting every
		// poll will not fix them.
		s.logger.Error("Cannot price intent %s: %v", id.Hex(), err)
		return s.store.MarkQuotesSubmitted(ctx, id)
	}

	submitted := 0
	for _, route := range routes {
		if cb := s.breakers.ForRoute(route); cb != nil && cb.IsEnabled() && cb.IsOpen() {
			s.logger.DebugWithRoute(int(route), "Circuit open, not quoting intent %s", id.Hex())
			continue
		}

		q := &models.Quote{
			IntentID:      id,
			Route:         route,
			FiatAmount:    cents,
			SolverFee:     s.pricer.Fee(),
			EstimatedTime: s.pricer.ETA(route),
			ExpiresAt:     time.Now().UTC().Add(s.config.QuoteValidity),
		}
		if err := s.store.SaveQuote(ctx, q); err != nil {
			s.logger.ErrorWithRoute(int(route), "Failed to save quote for intent %s: %v", id.Hex(), err)
			continue
		}

		txHash, err := s.chain.SubmitQuote(ctx, id, uint8(route), big.NewInt(cents), q.SolverFee, q.EstimatedTime)
		if err != nil {
			s.logger.ErrorWithRoute(int(route), "Failed to submit quote for intent %s: %v", id.Hex(), err)
			continue
		}
		if err := s.store.MarkQuoteSubmitted(ctx, id, route, txHash.Hex()); err != nil {
			s.logger.ErrorWithRoute(int(route), "Quote for intent %s submitted but not persisted: %v", id.Hex(), err)
		}
		metrics.QuotesSubmitted.WithLabelValues(route.String()).Inc()
		s.logger.InfoWithRoute(int(route), "Quoted intent %s: %d cents, fee %s units, eta %ds", id.Hex(), cents, q.SolverFee, q.EstimatedTime)
		submitted++
	}

	if submitted > 0 {
		return s.store.MarkQuotesSubmitted(ctx, id)
	}
	return nil
}

// viableRoutes intersects the routes servicing a currency with the enabled
// set and the rails actually configured.
func (s *Service) viableRoutes(currency models.Currency) []models.Route {
	var routes []models.Route
	for _, route := range models.RoutesForCurrency(currency) {
		if !s.routeEnabled(route) {
			continue
		}
		if _, err := s.rails.Lookup(route); err != nil {
			continue
		}
		routes = append(routes, route)
	}
	return routes
}

func (s *Service) routeEnabled(route models.Route) bool {
	for _, r := range s.config.EnabledRoutes {
		if r == route {
			return true
		}
	}
	return false
}
