// Package attestation verifies TLS-session payment proofs and signs
// domain-separated attestations the on-chain verifier will accept. It is the
// only package with access to the witness private key.
package attestation

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/openramp-hq/openramp-solver/pkg/logger"
)

// Params carries the expected payment facts the presentation must prove
type Params struct {
	IntentHash          common.Hash
	ExpectedAmountCents int64
	ExpectedBeneficiary string
}

// SignedAttestation is the engine's output: the typed struct, its digest,
// the witness signature over the digest and the extracted payment facts.
type SignedAttestation struct {
	Attestation Attestation
	Digest      common.Hash
	Signature   []byte
	Payment     PaymentRecord
	ServerName  string
}

// Engine runs the verification and signing sequence. All rejections are
// final for a given artifact: nothing in here is worth retrying, the caller
// must produce a new presentation instead.
type Engine struct {
	verifier   SessionVerifier
	signer     *Signer
	nullifiers NullifierRegistry
	allowed    map[string]bool
	logger     logger.Logger
}

// NewEngine assembles an attestation engine. allowedServers lists the TLS
// server names whose sessions count as payment evidence.
func NewEngine(verifier SessionVerifier, signer *Signer, nullifiers NullifierRegistry, allowedServers []string, log logger.Logger) *Engine {
	allowed := make(map[string]bool, len(allowedServers))
	for _, server := range allowedServers {
		allowed[strings.ToLower(strings.TrimSpace(server))] = true
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Engine{
		verifier:   verifier,
		signer:     signer,
		nullifiers: nullifiers,
		allowed:    allowed,
		logger:     log,
	}
}

// WitnessAddress returns the address the signing key resolves to
func (e *Engine) WitnessAddress() common.Address {
	return e.signer.Address()
}

// Attest verifies a presentation against the expected payment facts and
// returns a signed attestation. The result is a pure function of the
// presentation and params: re-attesting the same artifact yields the same
// digest and signature, and the nullifier registry is consulted but never
// written, so a pending payment can be re-attested after a crash.
func (e *Engine) Attest(ctx context.Context, presentation []byte, params Params) (*SignedAttestation, error) {
	session, err := e.verifier.VerifySession(ctx, presentation)
	if err != nil {
		return nil, err
	}

	if !e.allowed[strings.ToLower(session.ServerName)] {
		return nil, newError(CodeUntrustedServer, "server %q is not in the allow-list", session.ServerName)
	}

	payment, err := ExtractPayment(session.RecvTranscript)
	if err != nil {
		return nil, err
	}

	if !payment.Completed() {
		return nil, newError(CodePaymentNotCompleted, "payment %s has status %q", payment.TransactionID, payment.Status)
	}

	// Under-delivery tolerance is 1%: rounding and intermediary fees may
	// shave the received amount, but anything below 99% of the committed
	// fiat amount is a short payment.
	if params.ExpectedAmountCents > 0 {
		minimum := params.ExpectedAmountCents * 99 / 100
		if payment.AmountCents < minimum {
			return nil, newError(CodeAmountMismatch, "payment delivered %d cents, expected at least %d of %d",
				payment.AmountCents, minimum, params.ExpectedAmountCents)
		}
	}

	if params.ExpectedBeneficiary != "" {
		expected := NormalizeIBAN(params.ExpectedBeneficiary)
		if payment.Beneficiary == "" {
			return nil, newError(CodeIncompletePayload, "transcript does not disclose beneficiary routing info")
		}
		if payment.Beneficiary != expected {
			return nil, newError(CodeBeneficiaryMismatch, "payment went to %s, intent names %s",
				payment.Beneficiary, expected)
		}
	}

	// The replay check must precede signing: a signature over a consumed
	// nullifier must never leave this process.
	nullifier := Nullifier(payment.TransactionID)
	seen, err := e.nullifiers.Seen(ctx, nullifier)
	if err != nil {
		return nil, fmt.Errorf("failed to check nullifier registry: %w", err)
	}
	if seen {
		return nil, newError(CodeReplayDetected, "nullifier %s already consumed", nullifier.Hex())
	}

	att := Attestation{
		IntentHash: params.IntentHash,
		Amount:     big.NewInt(payment.AmountCents),
		Timestamp:  big.NewInt(session.Time.Unix()),
		PaymentID:  payment.TransactionID,
		DataHash:   crypto.Keccak256Hash(session.SentTranscript, session.RecvTranscript),
	}

	signature, digest, err := e.signer.Sign(att)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Attested payment %s for intent %s (amount: %d cents, server: %s)",
		payment.TransactionID, params.IntentHash.Hex(), payment.AmountCents, session.ServerName)

	return &SignedAttestation{
		Attestation: att,
		Digest:      digest,
		Signature:   signature,
		Payment:     *payment,
		ServerName:  session.ServerName,
	}, nil
}
