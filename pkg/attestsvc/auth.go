package attestsvc

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// APIKeyHeader carries the solver credential on attest requests
const APIKeyHeader = "x-solver-api-key"

type contextKey int

const solverContextKey contextKey = 0

// solverFrom returns the authenticated solver address, if any
func solverFrom(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(solverContextKey).(common.Address)
	return addr, ok
}

// apiKeyAuth authenticates solvers by api key and enforces a fixed one
// minute request window per key. With no keys configured it passes every
// request through, which is only acceptable for local development.
type apiKeyAuth struct {
	keys  map[string]common.Address
	limit int

	mu      sync.Mutex
	windows map[string]*rateWindow
}

type rateWindow struct {
	start time.Time
	hits  int
}

func newAPIKeyAuth(keys map[string]common.Address, limitPerMin int) *apiKeyAuth {
	return &apiKeyAuth{
		keys:    keys,
		limit:   limitPerMin,
		windows: make(map[string]*rateWindow),
	}
}

func (a *apiKeyAuth) enabled() bool {
	return len(a.keys) > 0
}

// allow counts a request against the key's current window
func (a *apiKeyAuth) allow(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	w := a.windows[key]
	if w == nil || now.Sub(w.start) >= time.Minute {
		a.windows[key] = &rateWindow{start: now, hits: 1}
		return true
	}

	w.hits++
	return w.hits <= a.limit
}

// middleware rejects requests without a known api key and rate limits the
// rest, attaching the solver address to the request context
func (a *apiKeyAuth) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled() {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(APIKeyHeader)
		solver, ok := a.keys[key]
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing api key")
			return
		}

		if !a.allow(key) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "request rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), solverContextKey, solver)))
	})
}
