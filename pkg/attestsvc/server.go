// Package attestsvc exposes the attestation engine as an authenticated HTTP
// service and provides the client solvers use to call it. The witness
// private key never crosses this boundary: requests carry payment evidence
// in, signatures come back out.
package attestsvc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"

	"github.com/openramp-hq/openramp-solver/pkg/attestation"
	"github.com/openramp-hq/openramp-solver/pkg/contracts"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
	"github.com/openramp-hq/openramp-solver/pkg/models"
)

// AttestEngine is what the HTTP layer needs from the attestation engine
type AttestEngine interface {
	Attest(ctx context.Context, presentation []byte, params attestation.Params) (*attestation.SignedAttestation, error)
	WitnessAddress() common.Address
}

// IntentReader reads intent tuples for the pre-verification cross-check.
// A nil reader disables the check.
type IntentReader interface {
	GetIntent(ctx context.Context, intentID [32]byte) (contracts.OffRampIntent, error)
}

// Server serves the witness API: POST /api/v1/attest and GET /api/v1/health
type Server struct {
	port    string
	chainID int64
	engine  AttestEngine
	chain   IntentReader
	auth    *apiKeyAuth
	audit   *AuditLog
	logger  logger.Logger
}

// NewServer wires the attestation engine into the HTTP surface
func NewServer(cfg *Config, engine AttestEngine, chain IntentReader, audit *AuditLog, log logger.Logger) *Server {
	return &Server{
		port:    cfg.Port,
		chainID: cfg.ChainID,
		engine:  engine,
		chain:   chain,
		auth:    newAPIKeyAuth(cfg.APIKeys, cfg.RateLimitPerMin),
		audit:   audit,
		logger:  log,
	}
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/api/v1/attest", s.auth.middleware(http.HandlerFunc(s.handleAttest))).Methods("POST")
	r.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")
	return r
}

// Start serves until the context is cancelled, then drains in-flight
// requests for up to five seconds
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	if !s.auth.enabled() {
		s.logger.Error("SOLVER_API_KEYS is not set, the attest endpoint is unauthenticated")
	}
	s.logger.Info("Attestation service listening on port %s, witness %s", s.port, s.engine.WitnessAddress().Hex())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("attestation service stopped: %v", err)
	}
}

// attestRequest is the wire format of an attest call. The presentation is
// the toolchain artifact, base64 encoded.
type attestRequest struct {
	Presentation        string `json:"presentation"`
	IntentHash          string `json:"intent_hash"`
	ExpectedAmountCents int64  `json:"expected_amount_cents"`
	ExpectedBeneficiary string `json:"expected_beneficiary,omitempty"`
}

type paymentJSON struct {
	TransactionID string `json:"transaction_id"`
	AmountCents   int64  `json:"amount_cents"`
	Beneficiary   string `json:"beneficiary,omitempty"`
	Reference     string `json:"reference,omitempty"`
	Timestamp     int64  `json:"timestamp"`
	Server        string `json:"server"`
}

type attestResponse struct {
	Signature string      `json:"signature"`
	Digest    string      `json:"digest"`
	DataHash  string      `json:"data_hash"`
	Payment   paymentJSON `json:"payment"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleAttest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req attestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	intentHash, err := parseHash(req.IntentHash)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("invalid intent_hash: %v", err))
		return
	}

	presentation, err := base64.StdEncoding.DecodeString(req.Presentation)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "presentation must be base64")
		return
	}
	if len(presentation) == 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "presentation is required")
		return
	}

	entry := Entry{IntentHash: intentHash.Hex()}
	solver, haveSolver := solverFrom(r.Context())
	if haveSolver {
		entry.Solver = solver.Hex()
	}

	if s.chain != nil {
		code, msg := s.crossCheck(r.Context(), intentHash, solver, haveSolver, req.ExpectedAmountCents)
		if code != "" {
			entry.Outcome = "rejected"
			entry.Code = code
			entry.Reason = msg
			entry.DurationMs = time.Since(start).Milliseconds()
			s.audit.Record(entry)
			writeError(w, http.StatusUnprocessableEntity, code, msg)
			return
		}
	}

	signed, err := s.engine.Attest(r.Context(), presentation, attestation.Params{
		IntentHash:          intentHash,
		ExpectedAmountCents: req.ExpectedAmountCents,
		ExpectedBeneficiary: req.ExpectedBeneficiary,
	})
	entry.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		var attErr *attestation.Error
		if errors.As(err, &attErr) {
			entry.Outcome = "rejected"
			entry.Code = string(attErr.Code)
			entry.Reason = attErr.Msg
			s.audit.Record(entry)
			writeError(w, http.StatusUnprocessableEntity, string(attErr.Code), attErr.Msg)
			return
		}

		entry.Outcome = "error"
		entry.Reason = err.Error()
		s.audit.Record(entry)
		s.logger.Error("Attest failed for intent %s: %v", intentHash.Hex(), err)
		writeError(w, http.StatusServiceUnavailable, "TRANSIENT", "verification unavailable, retry later")
		return
	}

	entry.Outcome = "signed"
	entry.PaymentID = signed.Payment.TransactionID
	entry.AmountCents = signed.Payment.AmountCents
	entry.ServerName = signed.ServerName
	entry.Digest = signed.Digest.Hex()
	s.audit.Record(entry)

	writeJSON(w, http.StatusOK, attestResponse{
		Signature: hexutil.Encode(signed.Signature),
		Digest:    signed.Digest.Hex(),
		DataHash:  signed.Attestation.DataHash.Hex(),
		Payment: paymentJSON{
			TransactionID: signed.Payment.TransactionID,
			AmountCents:   signed.Payment.AmountCents,
			Beneficiary:   signed.Payment.Beneficiary,
			Reference:     signed.Payment.Reference,
			Timestamp:     signed.Attestation.Timestamp.Int64(),
			Server:        signed.ServerName,
		},
	})
}

// crossCheck rejects requests that contradict the on-chain intent before any
// verification work is spent on them. An unreachable RPC node does not
// reject: the contract re-checks everything at claim time, this is an early
// exit, not the gate.
func (s *Server) crossCheck(ctx context.Context, intentHash common.Hash, solver common.Address, haveSolver bool, expectedCents int64) (string, string) {
	st, err := s.chain.GetIntent(ctx, intentHash)
	if err != nil {
		s.logger.Error("Intent cross-check unavailable for %s: %v", intentHash.Hex(), err)
		return "", ""
	}
	if st.Depositor == (common.Address{}) {
		return "INTENT_UNKNOWN", fmt.Sprintf("intent %s does not exist on chain", intentHash.Hex())
	}
	if st.Status != models.OnchainStatusCommitted {
		return "INTENT_NOT_COMMITTED", fmt.Sprintf("intent %s has on-chain status %d", intentHash.Hex(), st.Status)
	}
	if haveSolver && st.SelectedSolver != solver {
		return "INTENT_MISMATCH", fmt.Sprintf("intent %s is committed to solver %s", intentHash.Hex(), st.SelectedSolver.Hex())
	}
	if expectedCents > 0 && st.SelectedFiatAmount != nil && st.SelectedFiatAmount.Int64() != expectedCents {
		return "INTENT_MISMATCH", fmt.Sprintf("intent %s committed %d cents, request expects %d",
			intentHash.Hex(), st.SelectedFiatAmount.Int64(), expectedCents)
	}
	return "", ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"witness_address": s.engine.WitnessAddress().Hex(),
		"chain_id":        s.chainID,
	})
}

// parseHash decodes a 0x-prefixed 32 byte hex hash
func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	return common.BytesToHash(b), nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
