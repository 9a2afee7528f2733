package attestation

import (
	"errors"
	"fmt"
)

// Code identifies why a presentation was rejected. Every code is a data
// failure: the same artifact will fail the same way on every call, so none of
// them should be retried.
type Code string

const (
	// CodeMalformedProof means the presentation could not be deserialized
	CodeMalformedProof Code = "MALFORMED_PROOF"
	// CodeUntrustedServer means the authenticity proof failed or the TLS server is not allow-listed
	CodeUntrustedServer Code = "UNTRUSTED_SERVER"
	// CodeIncompletePayload means required payment fields are missing from the transcript
	CodeIncompletePayload Code = "INCOMPLETE_PAYLOAD"
	// CodePaymentNotCompleted means the disclosed payment is not in a completed state
	CodePaymentNotCompleted Code = "PAYMENT_NOT_COMPLETED"
	// CodeAmountMismatch means the disclosed amount under-delivers the expected amount
	CodeAmountMismatch Code = "AMOUNT_MISMATCH"
	// CodeBeneficiaryMismatch means the disclosed routing info does not match the intent
	CodeBeneficiaryMismatch Code = "BENEFICIARY_MISMATCH"
	// CodeReplayDetected means the payment nullifier was already consumed
	CodeReplayDetected Code = "REPLAY_DETECTED"
)

// Error is a rejection produced by the attestation engine
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err is an attestation rejection with the given code
func IsCode(err error, code Code) bool {
	var attErr *Error
	if errors.As(err, &attErr) {
		return attErr.Code == code
	}
	return false
}

// IsRejection reports whether err is any attestation rejection, as opposed to
// a transport or toolchain failure that may succeed on retry
func IsRejection(err error) bool {
	var attErr *Error
	return errors.As(err, &attErr)
}
