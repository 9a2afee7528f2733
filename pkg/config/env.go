package config

import (
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openramp-hq/openramp-solver/pkg/logger"
	"github.com/openramp-hq/openramp-solver/pkg/models"
)

const (
	// DefaultChainID is the chain the off-ramp contract is deployed to (Base Sepolia)
	DefaultChainID = 84532

	// DefaultPollingInterval defines the default polling interval in seconds
	DefaultPollingInterval = 5

	// DefaultMetricsPort defines the default port for the metrics server
	DefaultMetricsPort = "8080"

	// DefaultLedgerPath defines the default path of the local ledger database
	DefaultLedgerPath = "solver.db"

	// DefaultWorkerCount defines the default number of fulfillment workers
	DefaultWorkerCount = 5

	// DefaultTxConfirmTimeout bounds the wait for a transaction receipt
	DefaultTxConfirmTimeout = "120s"

	// DefaultRailSettleTimeout bounds the wait for a rail transfer to settle
	DefaultRailSettleTimeout = "180s"

	// DefaultQuoteValidity is how long a submitted quote remains valid
	DefaultQuoteValidity = "300s"

	// DefaultMaxGasPrice defines the maximum gas price for transactions
	DefaultMaxGasPrice = "1000000000" // 1 Gwei

	// DefaultGasMultiplier is the buffer applied to the suggested gas price
	DefaultGasMultiplier = 1.1

	// DefaultEnabledRoutes lists the payment routes serviced when ENABLED_ROUTES is unset
	DefaultEnabledRoutes = "SEPA_INSTANT"

	// DefaultSpreadBps is the pricing spread in basis points taken off the raw FX rate
	DefaultSpreadBps = 80

	// DefaultFlatFee is the flat solver fee in USDC base units
	DefaultFlatFee = "500000" // 0.5 USDC

	// DefaultProverBin is the proof toolchain binary, resolved from PATH when not absolute
	DefaultProverBin = "rampproof"

	// DefaultProverOutputDir is where presentation artifacts are written
	DefaultProverOutputDir = "proofs"

	// DefaultProverTimeout bounds a full two-phase proof generation run
	DefaultProverTimeout = "240s"

	// DefaultAttestServiceURL is the attestation witness service endpoint
	DefaultAttestServiceURL = "http://localhost:4001"

	// DefaultAttestTimeout bounds one attestation request
	DefaultAttestTimeout = "30s"

	// DefaultCircuitBreakerEnabled defines whether the circuit breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before the circuit breaker trips
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the time window for the circuit breaker
	DefaultCircuitBreakerWindow = 5

	// DefaultCircuitBreakerReset defines the reset timeout for the circuit breaker
	DefaultCircuitBreakerReset = 15
)

// usdcAddresses maps chain IDs to USDC contract addresses, used when
// USDC_ADDRESS is unset.
var usdcAddresses = map[int64]string{
	1:        "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	8453:     "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
	84532:    "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
	11155111: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
}

// defaultRates maps currencies to quote rates in fiat units per 1 USDC,
// overridable per currency with RATE_<CODE>.
var defaultRates = map[models.Currency]float64{
	models.CurrencyEUR: 0.92,
	models.CurrencyGBP: 0.79,
	models.CurrencyUSD: 1.00,
	models.CurrencyBRL: 5.40,
	models.CurrencyINR: 83.10,
}

// defaultRouteETA maps routes to estimated completion seconds, overridable
// with ROUTE_ETA_<NAME>.
var defaultRouteETA = map[models.Route]uint64{
	models.RouteSEPAInstant: 600,
	models.RouteFPS:         300,
	models.RouteRTP:         300,
	models.RoutePIX:         120,
	models.RouteUPI:         120,
}

// GetEnvChainID returns the chain ID from environment variables
func GetEnvChainID() (int64, error) {
	chainID := os.Getenv("CHAIN_ID")
	if chainID == "" {
		return DefaultChainID, nil
	}

	id, err := strconv.ParseInt(chainID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid CHAIN_ID value: %s, must be an integer", chainID)
	}
	if id <= 0 {
		return 0, fmt.Errorf("CHAIN_ID must be greater than 0")
	}
	return id, nil
}

// GetEnvWSURL returns the optional websocket RPC endpoint used for event
// subscriptions; when empty the solver falls back to pure polling
func GetEnvWSURL() (string, error) {
	wsURL := os.Getenv("WS_URL")
	if wsURL == "" {
		return "", nil
	}

	if _, err := url.ParseRequestURI(wsURL); err != nil {
		return "", fmt.Errorf("invalid WS_URL value: %s, must be a valid URL", wsURL)
	}
	return wsURL, nil
}

// GetEnvUSDCAddress returns the USDC contract address from environment
// variables, falling back to the known deployment for the chain
func GetEnvUSDCAddress(chainID int64) (string, error) {
	usdcAddress := os.Getenv("USDC_ADDRESS")
	if usdcAddress == "" {
		usdcAddress = usdcAddresses[chainID]
	}
	if usdcAddress == "" {
		return "", nil
	}

	if !common.IsHexAddress(usdcAddress) {
		return "", fmt.Errorf("invalid USDC_ADDRESS value: %s, must be a valid Ethereum address", usdcAddress)
	}
	return usdcAddress, nil
}

// GetEnvPollingInterval returns the polling interval in seconds from environment variables
func GetEnvPollingInterval() (time.Duration, error) {
	pollingInterval := os.Getenv("POLLING_INTERVAL")
	if pollingInterval == "" {
		return time.Duration(DefaultPollingInterval) * time.Second, nil
	}

	// use atoi
	interval, err := strconv.Atoi(pollingInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid POLLING_INTERVAL value: %s, must be an integer", pollingInterval)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("POLLING_INTERVAL must be greater than 0")
	}
	return time.Duration(interval) * time.Second, nil
}

// GetEnvTxConfirmTimeout returns the transaction confirmation timeout from environment variables
func GetEnvTxConfirmTimeout() (time.Duration, error) {
	return getEnvDuration("TX_CONFIRM_TIMEOUT", DefaultTxConfirmTimeout)
}

// GetEnvRailSettleTimeout returns the rail settlement wait timeout from environment variables
func GetEnvRailSettleTimeout() (time.Duration, error) {
	return getEnvDuration("RAIL_SETTLE_TIMEOUT", DefaultRailSettleTimeout)
}

// GetEnvQuoteValidity returns the quote validity window from environment variables
func GetEnvQuoteValidity() (time.Duration, error) {
	return getEnvDuration("QUOTE_VALIDITY", DefaultQuoteValidity)
}

// getEnvDuration parses a duration environment variable with a default
func getEnvDuration(key, def string) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		raw = def
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be a valid duration string", key, raw)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return parsed, nil
}

// GetEnvMetricsPort returns the metrics server port from environment variables
func GetEnvMetricsPort() (string, error) {
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		return DefaultMetricsPort, nil
	}

	// Validate port format
	if _, err := strconv.Atoi(metricsPort); err != nil {
		return "", fmt.Errorf("invalid METRICS_PORT value: %s, must be a valid integer", metricsPort)
	}
	return metricsPort, nil
}

// GetEnvLedgerPath returns the local ledger database path from environment variables
func GetEnvLedgerPath() (string, error) {
	ledgerPath := os.Getenv("LEDGER_DB_PATH")
	if ledgerPath == "" {
		return DefaultLedgerPath, nil
	}
	return ledgerPath, nil
}

// GetEnvWorkerCount returns the number of fulfillment workers from environment variables
func GetEnvWorkerCount() (int, error) {
	workerCount := os.Getenv("WORKER_COUNT")
	if workerCount == "" {
		return DefaultWorkerCount, nil
	}

	count, err := strconv.Atoi(workerCount)
	if err != nil {
		return 0, fmt.Errorf("invalid WORKER_COUNT value: %s, must be an integer", workerCount)
	}
	if count <= 0 {
		return 0, fmt.Errorf("WORKER_COUNT must be greater than 0")
	}
	return count, nil
}

// GetEnvMaxGasPrice returns the maximum gas price from environment variables
func GetEnvMaxGasPrice() (*big.Int, error) {
	maxGasPrice := os.Getenv("MAX_GAS_PRICE")
	if maxGasPrice == "" {
		maxGasPrice = DefaultMaxGasPrice
	}

	maxGasPriceBig := new(big.Int)
	if _, ok := maxGasPriceBig.SetString(maxGasPrice, 10); !ok {
		return nil, fmt.Errorf("invalid MAX_GAS_PRICE value: %s, must be a valid integer string", maxGasPrice)
	}

	if maxGasPriceBig.Cmp(big.NewInt(0)) < 0 {
		return nil, fmt.Errorf("MAX_GAS_PRICE must be greater than or equal to 0")
	}
	return maxGasPriceBig, nil
}

// GetEnvGasMultiplier returns the gas price buffer multiplier from environment variables
func GetEnvGasMultiplier() (float64, error) {
	multiplier := os.Getenv("GAS_MULTIPLIER")
	if multiplier == "" {
		return DefaultGasMultiplier, nil
	}

	parsed, err := strconv.ParseFloat(multiplier, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid GAS_MULTIPLIER value: %s, must be a valid number", multiplier)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("GAS_MULTIPLIER must be greater than 0")
	}
	return parsed, nil
}

// GetEnvEnabledRoutes returns the serviced payment routes from environment variables
func GetEnvEnabledRoutes() ([]models.Route, error) {
	raw := os.Getenv("ENABLED_ROUTES")
	if raw == "" {
		raw = DefaultEnabledRoutes
	}

	seen := make(map[models.Route]bool)
	var routes []models.Route
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		route, err := models.ParseRoute(part)
		if err != nil {
			return nil, fmt.Errorf("invalid ENABLED_ROUTES value: %w", err)
		}
		if seen[route] {
			continue
		}
		seen[route] = true
		routes = append(routes, route)
	}
	return routes, nil
}

// GetEnvRailConfigs returns the rail provider configuration for each enabled
// route, read from <ROUTE>_RAIL_* environment variables
func GetEnvRailConfigs(routes []models.Route) (map[models.Route]RailConfig, error) {
	rails := make(map[models.Route]RailConfig)
	for _, route := range routes {
		prefix := route.String()

		apiURL := os.Getenv(prefix + "_RAIL_API_URL")
		if apiURL != "" {
			if _, err := url.ParseRequestURI(apiURL); err != nil {
				return nil, fmt.Errorf("invalid %s_RAIL_API_URL value: %s, must be a valid URL", prefix, apiURL)
			}
		}

		rails[route] = RailConfig{
			APIURL:      apiURL,
			APILogin:    os.Getenv(prefix + "_RAIL_API_LOGIN"),
			APISecret:   os.Getenv(prefix + "_RAIL_API_SECRET"),
			AccountSlug: os.Getenv(prefix + "_RAIL_ACCOUNT_SLUG"),
		}
	}
	return rails, nil
}

// GetEnvPricing returns the quote pricing parameters from environment variables
func GetEnvPricing() (PricingConfig, error) {
	rates := make(map[models.Currency]float64, len(defaultRates))
	for currency, def := range defaultRates {
		rates[currency] = def

		raw := os.Getenv("RATE_" + currency.String())
		if raw == "" {
			continue
		}
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil || rate <= 0 {
			return PricingConfig{}, fmt.Errorf("invalid RATE_%s value: %s, must be a positive number", currency, raw)
		}
		rates[currency] = rate
	}

	spreadBps := int64(DefaultSpreadBps)
	if raw := os.Getenv("SPREAD_BPS"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 || parsed >= 10000 {
			return PricingConfig{}, fmt.Errorf("invalid SPREAD_BPS value: %s, must be in [0, 10000)", raw)
		}
		spreadBps = parsed
	}

	flatFeeRaw := os.Getenv("SOLVER_FLAT_FEE")
	if flatFeeRaw == "" {
		flatFeeRaw = DefaultFlatFee
	}
	flatFee := new(big.Int)
	if _, ok := flatFee.SetString(flatFeeRaw, 10); !ok || flatFee.Sign() < 0 {
		return PricingConfig{}, fmt.Errorf("invalid SOLVER_FLAT_FEE value: %s, must be a non-negative integer string", flatFeeRaw)
	}

	etas := make(map[models.Route]uint64, len(defaultRouteETA))
	for route, def := range defaultRouteETA {
		etas[route] = def

		raw := os.Getenv("ROUTE_ETA_" + route.String())
		if raw == "" {
			continue
		}
		eta, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || eta == 0 {
			return PricingConfig{}, fmt.Errorf("invalid ROUTE_ETA_%s value: %s, must be a positive integer", route, raw)
		}
		etas[route] = eta
	}

	return PricingConfig{
		Rates:     rates,
		SpreadBps: spreadBps,
		FlatFee:   flatFee,
		RouteETA:  etas,
	}, nil
}

// GetEnvProver returns the proof toolchain configuration from environment variables
func GetEnvProver() (ProverConfig, error) {
	binPath := os.Getenv("PROVER_BIN")
	if binPath == "" {
		binPath = DefaultProverBin
	}

	outputDir := os.Getenv("PROVER_OUTPUT_DIR")
	if outputDir == "" {
		outputDir = DefaultProverOutputDir
	}

	timeout, err := getEnvDuration("PROVER_TIMEOUT", DefaultProverTimeout)
	if err != nil {
		return ProverConfig{}, err
	}

	return ProverConfig{
		BinPath:   binPath,
		OutputDir: outputDir,
		Timeout:   timeout,
	}, nil
}

// GetEnvAttester returns the attestation service client configuration from environment variables
func GetEnvAttester() (AttesterConfig, error) {
	serviceURL := os.Getenv("ATTEST_SERVICE_URL")
	if serviceURL == "" {
		serviceURL = DefaultAttestServiceURL
	}
	if _, err := url.ParseRequestURI(serviceURL); err != nil {
		return AttesterConfig{}, fmt.Errorf("invalid ATTEST_SERVICE_URL value: %s, must be a valid URL", serviceURL)
	}

	timeout, err := getEnvDuration("ATTEST_TIMEOUT", DefaultAttestTimeout)
	if err != nil {
		return AttesterConfig{}, err
	}

	return AttesterConfig{
		ServiceURL: serviceURL,
		APIKey:     os.Getenv("ATTEST_API_KEY"),
		Timeout:    timeout,
	}, nil
}

// GetEnvCircuitBreakerEnabled returns whether the circuit breaker is enabled from environment variables
func GetEnvCircuitBreakerEnabled() (bool, error) {
	enabled := os.Getenv("CIRCUIT_BREAKER_ENABLED")
	if enabled == "" {
		return DefaultCircuitBreakerEnabled, nil
	}

	if enabled == "true" {
		return true, nil
	} else if enabled == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid CIRCUIT_BREAKER_ENABLED value: %s, must be 'true' or 'false'", enabled)
}

// GetEnvCircuitBreakerThreshold returns the circuit breaker threshold from environment variables
func GetEnvCircuitBreakerThreshold() (int, error) {
	threshold := os.Getenv("CIRCUIT_BREAKER_THRESHOLD")
	if threshold == "" {
		return DefaultCircuitBreakerThreshold, nil
	}

	thresholdInt, err := strconv.Atoi(threshold)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_THRESHOLD value: %s, must be an integer", threshold)
	}
	if thresholdInt <= 0 {
		return 0, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must be greater than 0")
	}
	return thresholdInt, nil
}

// GetEnvCircuitBreakerWindow returns the circuit breaker window duration from environment variables
func GetEnvCircuitBreakerWindow() (time.Duration, error) {
	window := os.Getenv("CIRCUIT_BREAKER_WINDOW")
	if window == "" {
		return DefaultCircuitBreakerWindow * time.Second, nil
	}

	// Validate duration format
	parsed, err := time.ParseDuration(window)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_WINDOW value: %s, must be a valid duration string", window)
	}
	return parsed, nil
}

// GetEnvCircuitBreakerReset returns the circuit breaker reset timeout from environment variables
func GetEnvCircuitBreakerReset() (time.Duration, error) {
	reset := os.Getenv("CIRCUIT_BREAKER_RESET")
	if reset == "" {
		return DefaultCircuitBreakerReset * time.Second, nil
	}

	// Validate duration format
	parsed, err := time.ParseDuration(reset)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_RESET value: %s, must be a valid duration string", reset)
	}
	return parsed, nil
}

// GetEnvLogLevel returns the logging level from environment variables
func GetEnvLogLevel() (logger.Level, error) {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return logger.InfoLevel, nil
	}

	switch strings.ToLower(level) {
	case "debug":
		return logger.DebugLevel, nil
	case "info":
		return logger.InfoLevel, nil
	case "notice":
		return logger.NoticeLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	}
	return 0, fmt.Errorf("invalid LOG_LEVEL value: %s, must be 'debug', 'info', 'notice' or 'error'", level)
}

// GetEnvLogColoring returns whether log coloring is enabled from environment variables
func GetEnvLogColoring() (bool, error) {
	coloring := os.Getenv("LOG_COLORING")
	if coloring == "" {
		return true, nil
	}

	if coloring == "true" {
		return true, nil
	} else if coloring == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid LOG_COLORING value: %s, must be 'true' or 'false'", coloring)
}
