package solver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openramp-hq/openramp-solver/pkg/attestation"
	"github.com/openramp-hq/openramp-solver/pkg/chainclient"
	"github.com/openramp-hq/openramp-solver/pkg/circuitbreaker"
	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
	"github.com/openramp-hq/openramp-solver/pkg/models"
	"github.com/openramp-hq/openramp-solver/pkg/rail"
)

func revertedErr() error {
	return fmt.Errorf("claim transaction 0xdead: %w", chainclient.ErrReverted)
}

func TestFulfillHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(20)

	seedCommitted(t, env, id)
	env.service.runFulfillment(ctx, id)

	// The rail was asked for exactly the committed amount.
	require.Len(t, env.rail.requests, 1)
	req := env.rail.requests[0]
	assert.Equal(t, models.RouteSEPAInstant, req.Route)
	assert.Equal(t, int64(9200), req.AmountCents)
	assert.Equal(t, models.CurrencyEUR, req.Currency)
	assert.Equal(t, testRecipient, req.Beneficiary.Name)
	assert.Equal(t, testIBAN, req.Beneficiary.RoutingInfo)
	assert.Equal(t, "intent-"+id.Hex()[2:], req.IdempotencyKey)
	assert.Equal(t, "OFFRAMP-0F000000", req.Reference)

	// The prover saw the executed transfer.
	require.Len(t, env.prover.requests, 1)
	assert.Equal(t, id.Hex(), env.prover.requests[0].IntentID)
	assert.Equal(t, "tr-7f9c2ba4", env.prover.requests[0].TransferID)

	// The attester was given the commit expectations and the presentation.
	require.Len(t, env.attester.calls, 1)
	params := env.attester.calls[0]
	assert.Equal(t, id, params.IntentHash)
	assert.Equal(t, int64(9200), params.ExpectedAmountCents)
	assert.Equal(t, testIBAN, params.ExpectedBeneficiary)
	assert.Equal(t, []byte("presentation-bytes"), env.attester.gotPres[0])

	// The claim carried the signed attestation verbatim.
	require.Len(t, env.chain.claims, 1)
	claim := env.chain.claims[0]
	assert.Equal(t, id, claim.intentID)
	assert.Equal(t, [32]byte(id), claim.attestation.IntentHash)
	assert.Equal(t, int64(9200), claim.attestation.Amount.Int64())
	assert.Equal(t, "7f9c2ba4-e88f-4a5e-9fcd-123456789abc", claim.attestation.PaymentId)
	assert.Len(t, claim.signature, 65)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFulfilled, intent.Status)
	assert.Equal(t, "tr-7f9c2ba4", intent.ProviderTransferID)
	assert.NotEmpty(t, intent.FulfillmentTxRef)
	assert.Nil(t, intent.NextRetryAt)
}

func TestFulfillResumesFromPersistedTransfer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(21)

	seedCommitted(t, env, id)
	_, err := env.store.RecordTransferID(ctx, id, "tr-earlier-run")
	require.NoError(t, err)

	env.service.runFulfillment(ctx, id)

	assert.Empty(t, env.rail.requests, "fiat must not move twice")
	require.Len(t, env.prover.requests, 1)
	assert.Equal(t, "tr-earlier-run", env.prover.requests[0].TransferID)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFulfilled, intent.Status)
	assert.Equal(t, "tr-earlier-run", intent.ProviderTransferID)
}

func TestFulfillRetriesTransientProofFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(22)

	seedCommitted(t, env, id)
	env.prover.errs = []error{
		errors.New("notarize timed out after 3m0s"),
		errors.New("notarize timed out after 3m0s"),
	}

	env.service.runFulfillment(ctx, id)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCommitted, intent.Status)
	assert.Equal(t, 1, intent.RetryCount)
	require.NotNil(t, intent.NextRetryAt)
	assert.Equal(t, "tr-7f9c2ba4", intent.ProviderTransferID)
	assert.Contains(t, intent.LastError, "proof")

	// Two timeouts, then the third attempt succeeds without executing
	// another transfer.
	env.service.runFulfillment(ctx, id)
	env.service.runFulfillment(ctx, id)

	require.Len(t, env.rail.requests, 1)
	intent, err = env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFulfilled, intent.Status)
	assert.Equal(t, 2, intent.RetryCount)
}

func TestTransferDeclinedFailsPermanently(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(23)

	seedCommitted(t, env, id)
	env.rail.execErr = rail.ErrTransferDeclined

	env.service.runFulfillment(ctx, id)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailedPermanent, intent.Status)
	assert.Empty(t, intent.ProviderTransferID, "no fiat moved")
	assert.Nil(t, intent.NextRetryAt)
	assert.Contains(t, intent.LastError, "declined")
}

func TestDeclinedAfterSubmissionSchedulesRetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(24)

	seedCommitted(t, env, id)
	env.rail.statuses = []rail.TransferStatus{rail.StatusDeclined}

	env.service.runFulfillment(ctx, id)

	// Fiat may or may not have reached the beneficiary; the ledger keeps
	// retrying until the cap because the transfer id is set.
	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCommitted, intent.Status)
	assert.Equal(t, 1, intent.RetryCount)
	require.NotNil(t, intent.NextRetryAt)
	assert.Contains(t, intent.LastError, "declined after submission")
}

func TestAttestationRejectionExhaustsRetries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(25)

	seedCommitted(t, env, id)
	env.attester.err = &attestation.Error{Code: attestation.CodeAmountMismatch, Msg: "observed 8900 cents, expected 9200"}

	// The rejection is final for the artifact, but fiat has moved, so the
	// ledger schedules retries until the policy gives up.
	for i := 0; i < 6; i++ {
		env.service.runFulfillment(ctx, id)
	}

	require.Len(t, env.rail.requests, 1, "transfer executed exactly once")
	assert.Len(t, env.attester.calls, 6)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailedPermanent, intent.Status)
	assert.Equal(t, 5, intent.RetryCount)
	assert.Equal(t, "tr-7f9c2ba4", intent.ProviderTransferID)
	assert.Contains(t, intent.LastError, "AMOUNT_MISMATCH")
	assert.Nil(t, intent.NextRetryAt)
}

func TestClaimRevertAlreadyFulfilled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(26)

	seedCommitted(t, env, id)
	env.chain.claimErrs = []error{revertedErr()}

	// The contract says the intent is fulfilled: a previous claim landed.
	st := env.chain.intents[id]
	st.Status = models.OnchainStatusFulfilled
	env.chain.intents[id] = st

	env.service.runFulfillment(ctx, id)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFulfilled, intent.Status)
	assert.Equal(t, "tr-7f9c2ba4", intent.ProviderTransferID)
	assert.Equal(t, 0, intent.RetryCount)
}

func TestRetryReconcilesClaimThatLandedLate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(32)

	seedCommitted(t, env, id)
	env.chain.claimErrs = []error{errors.New("timed out waiting for claim receipt")}

	env.service.runFulfillment(ctx, id)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCommitted, intent.Status)
	assert.Equal(t, 1, intent.RetryCount)
	require.Len(t, env.prover.requests, 1)

	// The claim was mined after the confirmation wait gave up. The retry
	// must notice before regenerating the proof or submitting again.
	st := env.chain.intents[id]
	st.Status = models.OnchainStatusFulfilled
	env.chain.intents[id] = st

	env.service.runFulfillment(ctx, id)

	intent, err = env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFulfilled, intent.Status)
	assert.Equal(t, "tr-7f9c2ba4", intent.ProviderTransferID)
	assert.Len(t, env.prover.requests, 1, "no second proof run")
	assert.Len(t, env.attester.calls, 1, "no second attestation")
	assert.Empty(t, env.chain.claims, "no second claim submission")
}

func TestClaimRevertNullifierConsumed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(27)

	seedCommitted(t, env, id)
	env.chain.claimErrs = []error{revertedErr()}
	env.chain.usedNullifiers[attestation.Nullifier("7f9c2ba4-e88f-4a5e-9fcd-123456789abc")] = true

	env.service.runFulfillment(ctx, id)

	// The payment went to another intent's claim. Nothing to gain from a
	// retry, but the fiat-moved invariant schedules them anyway until the
	// cap so a human sees the alarm trail.
	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCommitted, intent.Status)
	assert.Equal(t, 1, intent.RetryCount)
	require.NotNil(t, intent.NextRetryAt)
	assert.Contains(t, intent.LastError, "consumed")
}

func TestClaimRevertCancelledOnChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(28)

	seedCommitted(t, env, id)
	env.chain.claimErrs = []error{revertedErr()}

	st := env.chain.intents[id]
	st.Status = models.OnchainStatusCancelled
	env.chain.intents[id] = st

	env.service.runFulfillment(ctx, id)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCommitted, intent.Status)
	assert.Equal(t, 1, intent.RetryCount)
	assert.Contains(t, intent.LastError, "cancelled on-chain")
}

func TestClaimRevertPastWindowIsFinal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(31)

	seedCommitted(t, env, id)
	env.chain.claimErrs = []error{revertedErr()}

	// Committed two hours ago against a one hour fulfillment window.
	st := env.chain.intents[id]
	st.CommittedAt = uint64(time.Now().Add(-2 * time.Hour).Unix())
	env.chain.intents[id] = st

	env.service.runFulfillment(ctx, id)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCommitted, intent.Status)
	assert.Equal(t, 1, intent.RetryCount)
	assert.Contains(t, intent.LastError, "window expired")
}

func TestClaimRevertUnknownCauseRetries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(29)

	seedCommitted(t, env, id)
	env.chain.claimErrs = []error{revertedErr()}

	env.service.runFulfillment(ctx, id)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCommitted, intent.Status)
	assert.Equal(t, 1, intent.RetryCount)

	// State unchanged on-chain: the next attempt goes through.
	env.service.runFulfillment(ctx, id)

	intent, err = env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFulfilled, intent.Status)
	require.Len(t, env.chain.claims, 1)
}

func TestCircuitOpenDefersFulfillment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(30)

	seedCommitted(t, env, id)

	cbCfg := config.CircuitBreakerConfig{
		Enabled:        true,
		Threshold:      1,
		WindowDuration: time.Minute,
		ResetTimeout:   time.Minute,
	}
	env.service.breakers = circuitbreaker.NewSet([]models.Route{models.RouteSEPAInstant}, cbCfg, &logger.EmptyLogger{})
	env.service.breakers.ForRoute(models.RouteSEPAInstant).RecordFailure()

	env.service.runFulfillment(ctx, id)

	assert.Empty(t, env.rail.requests)
	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCommitted, intent.Status)
	assert.Equal(t, 0, intent.RetryCount)
}

func TestFulfillSkipsNonCommitted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(31)

	seedCreated(t, env, id)
	env.service.runFulfillment(ctx, id)

	assert.Empty(t, env.rail.requests)
	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, intent.Status)
}
