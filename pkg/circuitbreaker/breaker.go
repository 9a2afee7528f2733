package circuitbreaker

import (
	"sync"
	"time"

	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
	"github.com/openramp-hq/openramp-solver/pkg/metrics"
	"github.com/openramp-hq/openramp-solver/pkg/models"
)

// CircuitBreaker guards one payment route. Repeated rail failures inside the
// window trip it, pausing new fulfillments on that route until the reset
// timeout passes. Other routes keep settling.
type CircuitBreaker struct {
	route         models.Route
	enabled       bool
	failureCount  int
	failureWindow time.Duration
	failThreshold int
	resetTimeout  time.Duration
	lastFailure   time.Time
	tripped       bool
	tripTime      time.Time
	logger        logger.Logger
	mu            sync.Mutex
}

// NewCircuitBreaker creates a circuit breaker for a payment route
func NewCircuitBreaker(route models.Route, cfg config.CircuitBreakerConfig, log logger.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		route:         route,
		enabled:       cfg.Enabled,
		failThreshold: cfg.Threshold,
		failureWindow: cfg.WindowDuration,
		resetTimeout:  cfg.ResetTimeout,
		logger:        log,
	}
}

// RecordFailure records a failure and trips the circuit if threshold is exceeded
func (cb *CircuitBreaker) RecordFailure() bool {
	if !cb.enabled {
		return false
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()

	// If the circuit is already tripped, check if it's time to try again
	if cb.tripped {
		if time.Since(cb.tripTime) > cb.resetTimeout {
			cb.logger.NoticeWithRoute(int(cb.route), "Circuit breaker attempting reset after timeout")
			cb.setTrippedLocked(false)
			cb.failureCount = 0
		} else {
			return true // Still tripped
		}
	}

	// Reset failure count if outside window
	if time.Since(cb.lastFailure) > cb.failureWindow {
		cb.failureCount = 0
	}

	cb.failureCount++
	cb.lastFailure = now

	if cb.failureCount >= cb.failThreshold {
		cb.setTrippedLocked(true)
		cb.tripTime = now
		cb.logger.ErrorWithRoute(int(cb.route), "Circuit breaker tripped: %d failures in window", cb.failureCount)
		return true
	}

	return false
}

// IsOpen returns true if the circuit is open (tripped)
func (cb *CircuitBreaker) IsOpen() bool {
	if !cb.enabled {
		return false
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	// If tripped but reset timeout has passed, try again
	if cb.tripped && time.Since(cb.tripTime) > cb.resetTimeout {
		cb.setTrippedLocked(false)
		cb.failureCount = 0
		return false
	}

	return cb.tripped
}

// Reset manually resets the circuit breaker
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setTrippedLocked(false)
	cb.failureCount = 0
}

// Route returns the payment route this breaker guards
func (cb *CircuitBreaker) Route() models.Route {
	return cb.route
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() (failureCount int, lastFailure time.Time, failureWindow time.Duration, failThreshold int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount, cb.lastFailure, cb.failureWindow, cb.failThreshold
}

// IsEnabled returns true if the circuit breaker is enabled
func (cb *CircuitBreaker) IsEnabled() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.enabled
}

// setTrippedLocked flips the state and mirrors it to the metrics gauge
func (cb *CircuitBreaker) setTrippedLocked(tripped bool) {
	cb.tripped = tripped
	open := 0.0
	if tripped {
		open = 1.0
	}
	metrics.CircuitBreakerOpen.WithLabelValues(cb.route.String()).Set(open)
}

// Set holds one breaker per serviced payment route
type Set struct {
	breakers map[models.Route]*CircuitBreaker
}

// NewSet builds breakers for the given routes from shared configuration
func NewSet(routes []models.Route, cfg config.CircuitBreakerConfig, log logger.Logger) *Set {
	breakers := make(map[models.Route]*CircuitBreaker, len(routes))
	for _, route := range routes {
		breakers[route] = NewCircuitBreaker(route, cfg, log)
	}
	return &Set{breakers: breakers}
}

// ForRoute returns the breaker guarding the route, or nil when the route is
// not serviced
func (s *Set) ForRoute(route models.Route) *CircuitBreaker {
	return s.breakers[route]
}

// All returns every breaker in the set
func (s *Set) All() []*CircuitBreaker {
	all := make([]*CircuitBreaker, 0, len(s.breakers))
	for _, cb := range s.breakers {
		all = append(all, cb)
	}
	return all
}
