package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openramp-hq/openramp-solver/pkg/circuitbreaker"
	"github.com/openramp-hq/openramp-solver/pkg/models"
)

// ChainStatus is what the health server reads from the chain client
type ChainStatus interface {
	Address() common.Address
	ChainID() int64
	LatestBlock(ctx context.Context) (uint64, error)
	USDCBalance(ctx context.Context) (*big.Int, error)
}

// LedgerStatus is what the health server reads from the local ledger
type LedgerStatus interface {
	CountByStatus(ctx context.Context) (map[models.IntentStatus]int, error)
}

// Server represents a health check HTTP server
type Server struct {
	port          string
	chain         ChainStatus
	store         LedgerStatus
	breakers      *circuitbreaker.Set
	inFlight      func() int
	metricsAPIKey string
}

// NewServer creates a new health check server. inFlight reports the number
// of running fulfillment pipelines.
func NewServer(port string, chain ChainStatus, store LedgerStatus, breakers *circuitbreaker.Set, inFlight func() int) *Server {
	return &Server{
		port:          port,
		chain:         chain,
		store:         store,
		breakers:      breakers,
		inFlight:      inFlight,
		metricsAPIKey: os.Getenv("METRICS_API_KEY"),
	}
}

// metricsAuthMiddleware is a middleware that checks for a valid API key
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// routes builds the handler table
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Readiness check
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if s.chain == nil || s.store == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Not wired"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, err := s.chain.LatestBlock(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("Chain unreachable: %v", err)))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	// Solver status endpoint
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		status := make(map[string]interface{})

		if s.chain != nil {
			chainStatus := map[string]interface{}{
				"chain_id": s.chain.ChainID(),
				"solver":   s.chain.Address().Hex(),
			}

			if blockNumber, err := s.chain.LatestBlock(r.Context()); err == nil {
				chainStatus["latest_block"] = blockNumber
			}
			if balance, err := s.chain.USDCBalance(r.Context()); err == nil {
				chainStatus["usdc_balance"] = balance.String()
			}

			status["chain"] = chainStatus
		}

		if s.store != nil {
			if counts, err := s.store.CountByStatus(r.Context()); err == nil {
				intents := make(map[string]int, len(counts))
				for st, n := range counts {
					intents[string(st)] = n
				}
				status["intents"] = intents
			}
		}

		if s.breakers != nil {
			circuits := make(map[string]string)
			for _, cb := range s.breakers.All() {
				state := "closed"
				if cb.IsOpen() {
					state = "open"
				}
				circuits[cb.Route().String()] = state
			}
			status["circuits"] = circuits
		}

		if s.inFlight != nil {
			status["pipelines_in_flight"] = s.inFlight()
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding status JSON: %v", err)
		}
	})

	// Circuit breaker admin control endpoint
	mux.HandleFunc("/circuit/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		routeName := r.URL.Query().Get("route")
		if routeName == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("Missing route parameter"))
			return
		}

		route, err := models.ParseRoute(routeName)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("Invalid route"))
			return
		}

		cb := s.breakers.ForRoute(route)
		if cb == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(fmt.Sprintf("No circuit breaker for route %s", route)))
			return
		}

		cb.Reset()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(fmt.Sprintf("Circuit breaker for route %s reset", route)))
	})

	// Expose Prometheus metrics with API key authentication
	mux.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler()))

	return mux
}

// Start starts the health check server
func (s *Server) Start() {
	log.Printf("Starting health and metrics server on port %s", s.port)
	if err := http.ListenAndServe(":"+s.port, s.routes()); err != nil {
		log.Printf("Health server error: %v", err)
	}
}
