package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	IntentsObserved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_intents_observed_total",
		Help: "The total number of intents seen on-chain",
	}, []string{"currency"})

	QuotesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_quotes_submitted_total",
		Help: "The total number of quotes submitted on-chain",
	}, []string{"route"})

	QuotesWon = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_quotes_won_total",
		Help: "The total number of intents committed to this solver",
	}, []string{"route"})

	RailTransfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_rail_transfers_total",
		Help: "The total number of rail transfer submissions by outcome",
	}, []string{"route", "status"})

	RailTransferLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solver_rail_transfer_seconds",
		Help:    "Time from transfer submission to settled status",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // Start at 1s with 10 buckets doubling in size
	}, []string{"route"})

	Attestations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_attestations_total",
		Help: "The total number of attestation requests by outcome code",
	}, []string{"code"})

	ClaimsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_claims_total",
		Help: "The total number of claim transactions by outcome",
	}, []string{"status"})

	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solver_pipeline_seconds",
		Help:    "Time from starting fulfillment to the intent reaching a terminal state",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"route"})

	PipelinesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solver_pipelines_in_flight",
		Help: "The number of fulfillment pipelines currently running",
	})

	// Error tracking
	FulfillmentErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_errors_total",
		Help: "Total number of pipeline errors by stage and class",
	}, []string{"stage", "class"})

	RetriesScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_retries_scheduled_total",
		Help: "Number of fulfillment retries scheduled",
	}, []string{"stage"})

	// FiatSentClaimUnrecoverable counts intents where fiat left the solver
	// account and every claim attempt was exhausted. Page on any increase.
	FiatSentClaimUnrecoverable = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solver_fiat_sent_claim_unrecoverable_total",
		Help: "Intents with an executed fiat transfer and no successful claim after all retries",
	})

	// FulfilledIntents tracks the number of intents settled and claimed by route
	FulfilledIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_fulfilled_intents_total",
		Help: "The total number of successfully fulfilled intents by route",
	}, []string{"route"})

	// FailedIntents tracks the number of intents that reached the failed state
	FailedIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_failed_intents_total",
		Help: "The total number of permanently failed intents by route and stage",
	}, []string{"route", "stage"})

	LastScannedBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solver_last_scanned_block",
		Help: "Highest block number processed by the event scanner",
	})

	USDCBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solver_usdc_balance",
		Help: "Solver USDC balance in token base units",
	})

	GasPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solver_gas_price_gwei",
		Help: "Current gas price in gwei",
	})

	CircuitBreakerOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "solver_circuit_breaker_open",
		Help: "Whether the circuit breaker for a route is open (1) or closed (0)",
	}, []string{"route"})
)
