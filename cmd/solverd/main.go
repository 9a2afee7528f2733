package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openramp-hq/openramp-solver/pkg/attestsvc"
	"github.com/openramp-hq/openramp-solver/pkg/chainclient"
	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/ledger"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
	"github.com/openramp-hq/openramp-solver/pkg/prover"
	"github.com/openramp-hq/openramp-solver/pkg/rail"
	"github.com/openramp-hq/openramp-solver/pkg/solver"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	stdLogger := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)

	// Set up context with cancellation on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := ledger.NewStore(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("Failed to open ledger at %s: %v", cfg.LedgerPath, err)
	}
	defer store.Close()

	chain, err := chainclient.New(ctx, cfg, stdLogger)
	if err != nil {
		log.Fatalf("Failed to connect to chain: %v", err)
	}
	defer chain.Close()

	rails := make([]rail.Rail, 0, len(cfg.EnabledRoutes))
	for _, route := range cfg.EnabledRoutes {
		railCfg, ok := cfg.Rails[route]
		if !ok {
			log.Fatalf("Route %s enabled but no rail credentials configured", route)
		}
		rails = append(rails, rail.NewProviderClient(route, railCfg, stdLogger))
	}

	attester := attestsvc.NewClient(cfg.Attester, stdLogger)
	checkWitnessAuthorization(ctx, chain, attester, stdLogger)

	service := solver.NewService(cfg, store, chain, rail.NewRegistry(rails...),
		prover.New(cfg.Prover, stdLogger), attester, stdLogger)

	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Println("Received termination signal, shutting down gracefully...")
		cancel()
	}()

	// Start the service
	log.Println("Starting the solver service...")
	service.Start(ctx)
}

// checkWitnessAuthorization verifies that the witness the attestation
// service signs with is authorized on the off-ramp contract. Claims built on
// an unauthorized witness revert, so catching the misconfiguration here
// saves executing fiat transfers against unclaimable intents. The check is a
// warning, not a fatal: the attestation service may simply not be up yet.
func checkWitnessAuthorization(ctx context.Context, chain *chainclient.Client, attester *attestsvc.Client, log logger.Logger) {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	witness, err := attester.Health(checkCtx)
	if err != nil {
		log.Error("Attestation service unreachable at startup: %v", err)
		return
	}
	authorized, err := chain.IsWitnessAuthorized(checkCtx, witness)
	if err != nil {
		log.Error("Witness authorization check failed: %v", err)
		return
	}
	if !authorized {
		log.Error("Witness %s is NOT authorized on the off-ramp contract, claims will revert", witness.Hex())
		return
	}
	log.Info("Witness %s authorized on the off-ramp contract", witness.Hex())
}
