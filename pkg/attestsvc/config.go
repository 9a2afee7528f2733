package attestsvc

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
)

const (
	// DefaultPort is the attestation service listen port
	DefaultPort = "4001"

	// DefaultAllowedServers lists the TLS server names accepted as payment evidence
	DefaultAllowedServers = "thirdparty.qonto.com"

	// DefaultRateLimitPerMin caps attest requests per api key per minute
	DefaultRateLimitPerMin = 100

	// DefaultAuditLogPath is where the signing audit trail is appended
	DefaultAuditLogPath = "attestations.jsonl"

	// DefaultVerifyTimeout bounds one toolchain verify invocation
	DefaultVerifyTimeout = "60s"

	// DefaultNullifierCacheSize bounds the in-memory consumed nullifier cache
	DefaultNullifierCacheSize = 4096
)

// Config holds the witness service configuration. The witness private key is
// kept here only long enough to construct the signer and is never logged.
type Config struct {
	Port          string
	WitnessKeyHex string

	ChainID        int64
	OffRampAddress common.Address
	RPCURL         string

	AllowedServers []string
	APIKeys        map[string]common.Address

	RateLimitPerMin    int
	AuditLogPath       string
	NullifierCacheSize int

	VerifyBin     string
	VerifyWorkDir string
	VerifyTimeout time.Duration

	LogLevel    logger.Level
	LogColoring bool
}

// LoadConfig loads the attestation service configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	witnessKey := os.Getenv("WITNESS_PRIVATE_KEY")
	if witnessKey == "" {
		return nil, fmt.Errorf("WITNESS_PRIVATE_KEY environment variable is required")
	}

	chainID, err := config.GetEnvChainID()
	if err != nil {
		return nil, err
	}

	offRampAddress := os.Getenv("OFFRAMP_ADDRESS")
	if offRampAddress == "" {
		return nil, fmt.Errorf("OFFRAMP_ADDRESS environment variable is required")
	}
	if !common.IsHexAddress(offRampAddress) {
		return nil, fmt.Errorf("invalid OFFRAMP_ADDRESS value: %s, must be a valid Ethereum address", offRampAddress)
	}

	apiKeys, err := getEnvAPIKeys()
	if err != nil {
		return nil, err
	}

	rateLimit, err := getEnvRateLimit()
	if err != nil {
		return nil, err
	}

	verifyTimeout, err := getEnvVerifyTimeout()
	if err != nil {
		return nil, err
	}

	cacheSize, err := getEnvNullifierCacheSize()
	if err != nil {
		return nil, err
	}

	logLevel, err := config.GetEnvLogLevel()
	if err != nil {
		return nil, err
	}
	logColoring, err := config.GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = DefaultPort
	}

	auditPath, hasAudit := os.LookupEnv("AUDIT_LOG_PATH")
	if !hasAudit {
		auditPath = DefaultAuditLogPath
	}

	verifyBin := os.Getenv("VERIFY_BIN")
	if verifyBin == "" {
		verifyBin = config.DefaultProverBin
	}

	verifyWorkDir := os.Getenv("VERIFY_WORK_DIR")
	if verifyWorkDir == "" {
		verifyWorkDir = os.TempDir()
	}

	return &Config{
		Port:               port,
		WitnessKeyHex:      witnessKey,
		ChainID:            chainID,
		OffRampAddress:     common.HexToAddress(offRampAddress),
		RPCURL:             os.Getenv("RPC_URL"),
		AllowedServers:     getEnvAllowedServers(),
		APIKeys:            apiKeys,
		RateLimitPerMin:    rateLimit,
		AuditLogPath:       auditPath,
		NullifierCacheSize: cacheSize,
		VerifyBin:          verifyBin,
		VerifyWorkDir:      verifyWorkDir,
		VerifyTimeout:      verifyTimeout,
		LogLevel:           logLevel,
		LogColoring:        logColoring,
	}, nil
}

// getEnvAllowedServers returns the TLS server name allow-list from environment variables
func getEnvAllowedServers() []string {
	raw := os.Getenv("ALLOWED_SERVERS")
	if raw == "" {
		raw = DefaultAllowedServers
	}

	var servers []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			servers = append(servers, s)
		}
	}
	return servers
}

// getEnvAPIKeys parses SOLVER_API_KEYS, a comma separated list of
// key:address pairs. An empty list disables authentication, which is only
// acceptable for local development.
func getEnvAPIKeys() (map[string]common.Address, error) {
	raw := os.Getenv("SOLVER_API_KEYS")
	if raw == "" {
		return nil, nil
	}

	keys := make(map[string]common.Address)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid SOLVER_API_KEYS entry: %q, must be key:address", pair)
		}
		if !common.IsHexAddress(parts[1]) {
			return nil, fmt.Errorf("invalid SOLVER_API_KEYS address for key %q: %s", parts[0], parts[1])
		}
		keys[parts[0]] = common.HexToAddress(parts[1])
	}
	return keys, nil
}

// getEnvRateLimit returns the per-key request rate limit from environment variables
func getEnvRateLimit() (int, error) {
	raw := os.Getenv("RATE_LIMIT_PER_MIN")
	if raw == "" {
		return DefaultRateLimitPerMin, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid RATE_LIMIT_PER_MIN value: %s, must be an integer", raw)
	}
	if limit <= 0 {
		return 0, fmt.Errorf("RATE_LIMIT_PER_MIN must be greater than 0")
	}
	return limit, nil
}

// getEnvVerifyTimeout returns the toolchain verify timeout from environment variables
func getEnvVerifyTimeout() (time.Duration, error) {
	raw := os.Getenv("VERIFY_TIMEOUT")
	if raw == "" {
		raw = DefaultVerifyTimeout
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid VERIFY_TIMEOUT value: %s, must be a duration like 60s", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("VERIFY_TIMEOUT must be greater than 0")
	}
	return d, nil
}

// getEnvNullifierCacheSize returns the consumed nullifier cache size from environment variables
func getEnvNullifierCacheSize() (int, error) {
	raw := os.Getenv("NULLIFIER_CACHE_SIZE")
	if raw == "" {
		return DefaultNullifierCacheSize, nil
	}

	size, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid NULLIFIER_CACHE_SIZE value: %s, must be an integer", raw)
	}
	if size <= 0 {
		return 0, fmt.Errorf("NULLIFIER_CACHE_SIZE must be greater than 0")
	}
	return size, nil
}
