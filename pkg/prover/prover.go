// Package prover drives the external TLS-notary toolchain that turns a
// completed provider transfer into a verifiable presentation artifact. The
// toolchain owns the cryptography; this package owns process lifetime,
// timeout budgeting and artifact handling.
package prover

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
)

// Request identifies the transfer to prove. IntentID names the artifacts so
// a crash leaves resumable state on disk rather than orphaned temp files.
type Request struct {
	IntentID   string
	TransferID string
}

// Result carries the presentation artifact and where it was written
type Result struct {
	PresentationPath string
	Presentation     []byte
}

// Client invokes the proof toolchain binary. Proving runs in two phases:
// notarization (the MPC-TLS session against the provider, slow) and
// presentation (selective disclosure over the notarized session, fast). The
// configured timeout is an overall budget split three quarters to
// notarization and the remainder to presentation.
type Client struct {
	binPath   string
	outputDir string
	timeout   time.Duration
	logger    logger.Logger
}

// New builds a prover client from the toolchain configuration
func New(cfg config.ProverConfig, log logger.Logger) *Client {
	return &Client{
		binPath:   cfg.BinPath,
		outputDir: cfg.OutputDir,
		timeout:   cfg.Timeout,
		logger:    log,
	}
}

// Prove runs both toolchain phases for the given transfer and returns the
// presentation bytes. Every failure here is transient from the caller's
// point of view: timeouts, crashed subprocesses and unreadable artifacts all
// warrant a retry with a fresh invocation.
func (c *Client) Prove(ctx context.Context, req Request) (*Result, error) {
	if req.TransferID == "" {
		return nil, fmt.Errorf("transfer id is required")
	}
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %v", err)
	}

	base := artifactBase(req.IntentID)
	notarizedPath := filepath.Join(c.outputDir, base+".notarized")
	presentationPath := filepath.Join(c.outputDir, base+".presentation")

	notarizeBudget := c.timeout * 3 / 4
	presentBudget := c.timeout - notarizeBudget

	start := time.Now()
	if err := c.run(ctx, notarizeBudget, "notarize",
		"--transfer-id", req.TransferID,
		"--out", notarizedPath,
	); err != nil {
		return nil, fmt.Errorf("notarize phase: %w", err)
	}
	c.logger.Debug("Notarized transfer %s in %s", req.TransferID, time.Since(start).Round(time.Millisecond))

	if err := c.run(ctx, presentBudget, "present",
		"--notarized", notarizedPath,
		"--out", presentationPath,
	); err != nil {
		return nil, fmt.Errorf("present phase: %w", err)
	}

	presentation, err := os.ReadFile(presentationPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read presentation artifact: %v", err)
	}
	if len(presentation) == 0 {
		return nil, fmt.Errorf("toolchain produced an empty presentation")
	}

	c.logger.Info("Captured proof for transfer %s (%d bytes, total %s)",
		req.TransferID, len(presentation), time.Since(start).Round(time.Millisecond))

	return &Result{
		PresentationPath: presentationPath,
		Presentation:     presentation,
	}, nil
}

// run executes one toolchain phase, force-terminating it when its share of
// the budget expires
func (c *Client) run(ctx context.Context, timeout time.Duration, args ...string) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%s timed out after %s", args[0], timeout)
	}
	if err != nil {
		return fmt.Errorf("%s exited: %v: %s", args[0], err, firstLine(stderr.Bytes()))
	}
	return nil
}

// artifactBase derives a filesystem-safe artifact name from an intent id
func artifactBase(intentID string) string {
	base := strings.TrimPrefix(intentID, "0x")
	if base == "" {
		base = fmt.Sprintf("proof-%d", time.Now().UnixNano())
	}
	return base
}

func firstLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}
