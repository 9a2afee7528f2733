package attestation

import (
	"context"
	"time"
)

// VerifiedSession is the outcome of checking a presentation's embedded
// authenticity proof. The transcripts contain only the bytes the prover chose
// to disclose; undisclosed ranges arrive redacted.
type VerifiedSession struct {
	ServerName     string
	Time           time.Time
	SentTranscript []byte
	RecvTranscript []byte
}

// SessionVerifier checks that a presentation artifact is authentic and
// returns the disclosed TLS session contents. Implementations must reject
// structurally invalid artifacts with CodeMalformedProof and artifacts whose
// authenticity proof fails with CodeUntrustedServer; any other error is
// treated as transient by callers.
type SessionVerifier interface {
	VerifySession(ctx context.Context, presentation []byte) (*VerifiedSession, error)
}
