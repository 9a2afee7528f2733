package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openramp-hq/openramp-solver/pkg/attestation"
	"github.com/openramp-hq/openramp-solver/pkg/attestsvc"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
)

func main() {
	// Load configuration from environment variables
	cfg, err := attestsvc.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	stdLogger := logger.NewStdLogger(cfg.LogColoring, cfg.LogLevel)

	// Set up context with cancellation on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signer, err := attestation.NewSigner(cfg.WitnessKeyHex, attestation.Domain{
		ChainID:           cfg.ChainID,
		VerifyingContract: cfg.OffRampAddress,
	})
	if err != nil {
		log.Fatalf("Failed to load witness key: %v", err)
	}

	// With an RPC endpoint the service cross-checks requests against the
	// off-ramp contract and backs replay rejection with the on-chain
	// nullifier set. Without one both degrade to what this process has seen.
	var nullifiers attestation.NullifierRegistry
	var intents attestsvc.IntentReader
	if cfg.RPCURL != "" {
		onchain, err := attestsvc.DialOnChain(ctx, cfg.RPCURL, cfg.OffRampAddress)
		if err != nil {
			log.Fatalf("Failed to connect to chain at %s: %v", cfg.RPCURL, err)
		}
		defer onchain.Close()

		requireAuthorized(ctx, onchain, signer.Address())
		intents = onchain

		nullifiers, err = attestation.NewChainRegistry(onchain, cfg.NullifierCacheSize)
		if err != nil {
			log.Fatalf("Failed to build nullifier registry: %v", err)
		}
	} else {
		stdLogger.Error("No RPC_URL configured, replay protection is limited to nullifiers seen by this process")
		nullifiers, err = attestation.NewCacheRegistry(cfg.NullifierCacheSize)
		if err != nil {
			log.Fatalf("Failed to build nullifier registry: %v", err)
		}
	}

	verifier := attestation.NewToolchainVerifier(cfg.VerifyBin, cfg.VerifyWorkDir, cfg.VerifyTimeout)
	engine := attestation.NewEngine(verifier, signer, nullifiers, cfg.AllowedServers, stdLogger)

	audit, err := attestsvc.OpenAuditLog(cfg.AuditLogPath, stdLogger)
	if err != nil {
		log.Fatalf("Failed to open audit log at %s: %v", cfg.AuditLogPath, err)
	}
	defer audit.Close()

	server := attestsvc.NewServer(cfg, engine, intents, audit, stdLogger)

	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Println("Received termination signal, shutting down gracefully...")
		cancel()
	}()

	// Start the service
	log.Println("Starting the attestation service...")
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Attestation service stopped: %v", err)
	}
}

// requireAuthorized refuses to start when the witness key is not authorized
// on the off-ramp contract. Every attestation signed by an unauthorized
// witness is rejected at claim time, so there is nothing useful the service
// could do by running.
func requireAuthorized(ctx context.Context, onchain *attestsvc.OnChain, witness common.Address) {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	authorized, err := onchain.WitnessAuthorized(checkCtx, witness)
	if err != nil {
		log.Fatalf("Witness authorization check failed: %v", err)
	}
	if !authorized {
		log.Fatalf("Witness %s is not authorized on the off-ramp contract", witness.Hex())
	}
	log.Printf("Witness %s authorized on the off-ramp contract", witness.Hex())
}
