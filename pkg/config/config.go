package config

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
	"github.com/openramp-hq/openramp-solver/pkg/models"
)

// Config holds the configuration for the solver daemon
type Config struct {
	RPCURL         string
	WSURL          string
	ChainID        int64
	OffRampAddress string
	USDCAddress    string
	PrivateKey     string

	PollingInterval   time.Duration
	TxConfirmTimeout  time.Duration
	RailSettleTimeout time.Duration
	QuoteValidity     time.Duration
	MaxGasPrice       *big.Int
	GasMultiplier     float64

	LedgerPath  string
	MetricsPort string
	WorkerCount int

	EnabledRoutes []models.Route
	Rails         map[models.Route]RailConfig
	Pricing       PricingConfig
	Prover        ProverConfig
	Attester      AttesterConfig

	CircuitBreaker CircuitBreakerConfig
	LoggerConfig   LoggerConfig
}

// RailConfig holds the API credentials for one payment rail provider
type RailConfig struct {
	APIURL      string
	APILogin    string
	APISecret   string
	AccountSlug string
}

// PricingConfig drives quote computation. Rates are fiat units per 1 USDC,
// FlatFee is in USDC base units, RouteETA in seconds.
type PricingConfig struct {
	Rates     map[models.Currency]float64
	SpreadBps int64
	FlatFee   *big.Int
	RouteETA  map[models.Route]uint64
}

// ProverConfig configures the external proof toolchain invocation
type ProverConfig struct {
	BinPath   string
	OutputDir string
	Timeout   time.Duration
}

// AttesterConfig points the pipeline at the attestation witness service
type AttesterConfig struct {
	ServiceURL string
	APIKey     string
	Timeout    time.Duration
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	chainID, err := GetEnvChainID()
	if err != nil {
		return nil, err
	}

	wsURL, err := GetEnvWSURL()
	if err != nil {
		return nil, err
	}

	usdcAddress, err := GetEnvUSDCAddress(chainID)
	if err != nil {
		return nil, err
	}

	pollingInterval, err := GetEnvPollingInterval()
	if err != nil {
		return nil, err
	}

	txConfirmTimeout, err := GetEnvTxConfirmTimeout()
	if err != nil {
		return nil, err
	}

	railSettleTimeout, err := GetEnvRailSettleTimeout()
	if err != nil {
		return nil, err
	}

	quoteValidity, err := GetEnvQuoteValidity()
	if err != nil {
		return nil, err
	}

	maxGasPrice, err := GetEnvMaxGasPrice()
	if err != nil {
		return nil, err
	}

	gasMultiplier, err := GetEnvGasMultiplier()
	if err != nil {
		return nil, err
	}

	ledgerPath, err := GetEnvLedgerPath()
	if err != nil {
		return nil, err
	}

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	workerCount, err := GetEnvWorkerCount()
	if err != nil {
		return nil, err
	}

	enabledRoutes, err := GetEnvEnabledRoutes()
	if err != nil {
		return nil, err
	}

	rails, err := GetEnvRailConfigs(enabledRoutes)
	if err != nil {
		return nil, err
	}

	pricing, err := GetEnvPricing()
	if err != nil {
		return nil, err
	}

	prover, err := GetEnvProver()
	if err != nil {
		return nil, err
	}

	attester, err := GetEnvAttester()
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvCircuitBreakerEnabled()
	if err != nil {
		return nil, err
	}

	cbThreshold, err := GetEnvCircuitBreakerThreshold()
	if err != nil {
		return nil, err
	}

	cbWindow, err := GetEnvCircuitBreakerWindow()
	if err != nil {
		return nil, err
	}

	cbReset, err := GetEnvCircuitBreakerReset()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCURL:            os.Getenv("RPC_URL"),
		WSURL:             wsURL,
		ChainID:           chainID,
		OffRampAddress:    os.Getenv("OFFRAMP_ADDRESS"),
		USDCAddress:       usdcAddress,
		PrivateKey:        os.Getenv("PRIVATE_KEY"),
		PollingInterval:   pollingInterval,
		TxConfirmTimeout:  txConfirmTimeout,
		RailSettleTimeout: railSettleTimeout,
		QuoteValidity:     quoteValidity,
		MaxGasPrice:       maxGasPrice,
		GasMultiplier:     gasMultiplier,
		LedgerPath:        ledgerPath,
		MetricsPort:       metricsPort,
		WorkerCount:       workerCount,
		EnabledRoutes:     enabledRoutes,
		Rails:             rails,
		Pricing:           pricing,
		Prover:            prover,
		Attester:          attester,
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:        cbEnabled,
			Threshold:      cbThreshold,
			WindowDuration: cbWindow,
			ResetTimeout:   cbReset,
		},
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	// Validate required environment variables
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.PrivateKey == "" {
		return fmt.Errorf("PRIVATE_KEY environment variable is required")
	}
	if cfg.RPCURL == "" {
		return fmt.Errorf("RPC_URL environment variable is required")
	}
	if cfg.OffRampAddress == "" {
		return fmt.Errorf("OFFRAMP_ADDRESS environment variable is required")
	}
	if len(cfg.EnabledRoutes) == 0 {
		return fmt.Errorf("at least one enabled payment route is required")
	}
	for _, route := range cfg.EnabledRoutes {
		rail, ok := cfg.Rails[route]
		if !ok || rail.APIURL == "" {
			return fmt.Errorf("%s_RAIL_API_URL for route %s is required", route, route)
		}
	}
	return nil
}
