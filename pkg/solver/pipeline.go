package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openramp-hq/openramp-solver/pkg/attestation"
	"github.com/openramp-hq/openramp-solver/pkg/chainclient"
	"github.com/openramp-hq/openramp-solver/pkg/contracts"
	"github.com/openramp-hq/openramp-solver/pkg/metrics"
	"github.com/openramp-hq/openramp-solver/pkg/models"
	"github.com/openramp-hq/openramp-solver/pkg/prover"
	"github.com/openramp-hq/openramp-solver/pkg/rail"
)

// Pipeline stage names, used in errors and metrics labels.
const (
	stageTransfer    = "transfer"
	stageSettlement  = "settlement"
	stageProof       = "proof"
	stageAttestation = "attestation"
	stageClaim       = "claim"
)

// settlePollInterval is how often a pending rail transfer is re-checked
const settlePollInterval = 5 * time.Second

// runFulfillment drives one committed intent through the fulfillment
// pipeline and records the outcome in the ledger. It is safe to call again
// for the same intent at any point: every stage resumes off persisted state.
func (s *Service) runFulfillment(ctx context.Context, id common.Hash) {
	intent, err := s.store.GetIntent(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load intent %s: %v", id.Hex(), err)
		return
	}
	if intent.Status != models.StatusCommitted {
		s.logger.Debug("Intent %s no longer committed (%s), skipping", id.Hex(), intent.Status)
		return
	}

	// On anything but a first attempt, a claim submitted earlier may have
	// landed after its confirmation wait expired. Check the chain before
	// redoing proof and attestation work, and before any double submission.
	if intent.RetryCount > 0 || intent.FiatMoved() {
		if st, err := s.chain.GetIntent(ctx, id); err == nil && st.Status == models.OnchainStatusFulfilled {
			if rerr := s.reconcileFulfilled(ctx, intent, intent.ProviderTransferID); rerr != nil {
				s.logger.Error("Failed to reconcile fulfilled intent %s: %v", id.Hex(), rerr)
			}
			return
		}
	}

	route := intent.SelectedRoute
	if cb := s.breakers.ForRoute(route); cb != nil && cb.IsEnabled() && cb.IsOpen() {
		failureCount, lastFailure, _, _ := cb.GetState()
		s.logger.NoticeWithRoute(int(route), "Circuit open (%d failures, last %v), deferring intent %s",
			failureCount, lastFailure.Format(time.RFC3339), id.Hex())
		return
	}

	if s.fulfillmentWindow > 0 && intent.CommittedAt != nil {
		deadline := intent.CommittedAt.Add(time.Duration(s.fulfillmentWindow) * time.Second)
		if time.Now().After(deadline) {
			s.logger.NoticeWithRoute(int(route), "Intent %s past the fulfillment window (deadline %s), claim may revert",
				id.Hex(), deadline.Format(time.RFC3339))
		}
	}

	start := time.Now()
	if serr := s.fulfillIntent(ctx, intent); serr != nil {
		s.failIntent(ctx, intent, serr)
		return
	}
	metrics.PipelineDuration.WithLabelValues(route.String()).Observe(time.Since(start).Seconds())
}

// fulfillIntent executes the pipeline stages in order: fiat transfer,
// settlement wait, proof generation, attestation, on-chain claim.
func (s *Service) fulfillIntent(ctx context.Context, intent *models.Intent) *stageError {
	route := intent.SelectedRoute

	r, err := s.rails.Lookup(route)
	if err != nil {
		return failPermanent(stageTransfer, err)
	}

	// Stage 1: move the fiat, unless a previous attempt already did. The
	// persisted transfer id is the resume point after any crash.
	transferID := intent.ProviderTransferID
	if transferID == "" {
		result, err := r.ExecuteTransfer(ctx, rail.TransferRequest{
			Route:       route,
			AmountCents: intent.SelectedFiatAmount,
			Currency:    route.Currency(),
			Beneficiary: models.Beneficiary{
				Name:        intent.RecipientName,
				RoutingInfo: intent.ReceivingInfo,
			},
			Reference:      paymentReference(intent.ID),
			IdempotencyKey: idempotencyKey(intent.ID),
		})
		if err != nil {
			metrics.RailTransfers.WithLabelValues(route.String(), "rejected").Inc()
			if errors.Is(err, rail.ErrTransferDeclined) {
				return failPermanent(stageTransfer, err)
			}
			return failStage(stageTransfer, err)
		}
		metrics.RailTransfers.WithLabelValues(route.String(), string(result.Status)).Inc()

		if _, perr := s.store.RecordTransferID(ctx, intent.ID, result.TransferID); perr != nil {
			// Fiat has left custody but the resume point is not on disk.
			// The idempotency key protects the retry from paying twice.
			s.logger.ErrorWithRoute(int(route), "CRITICAL: transfer %s for intent %s executed but not persisted: %v",
				result.TransferID, intent.ID.Hex(), perr)
			return failStage(stageTransfer, fmt.Errorf("failed to persist transfer id %s: %v", result.TransferID, perr))
		}
		transferID = result.TransferID
		intent.ProviderTransferID = transferID
		s.logger.InfoWithRoute(int(route), "Transfer %s executed for intent %s: %d cents to %q",
			transferID, intent.ID.Hex(), intent.SelectedFiatAmount, intent.RecipientName)
	}

	// Stage 2: wait for the provider to report the transfer settled.
	settleStart := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, s.config.RailSettleTimeout)
	status, err := rail.WaitCompleted(waitCtx, r, transferID, settlePollInterval)
	cancel()
	if err != nil {
		return failStage(stageSettlement, err)
	}
	if status == rail.StatusDeclined {
		// The provider reversed a transfer it had accepted. Whether funds
		// moved needs human eyes, so this is not retried as transient.
		metrics.RailTransfers.WithLabelValues(route.String(), string(rail.StatusDeclined)).Inc()
		return failPermanent(stageSettlement, fmt.Errorf("transfer %s declined after submission", transferID))
	}
	metrics.RailTransferLatency.WithLabelValues(route.String()).Observe(time.Since(settleStart).Seconds())

	// Stage 3: notarize the provider session and build the presentation.
	proof, err := s.prover.Prove(ctx, prover.Request{
		IntentID:   intent.ID.Hex(),
		TransferID: transferID,
	})
	if err != nil {
		return failStage(stageProof, err)
	}

	// Stage 4: exchange the presentation for a witness signature.
	signed, err := s.attester.Attest(ctx, proof.Presentation, attestation.Params{
		IntentHash:          intent.ID,
		ExpectedAmountCents: intent.SelectedFiatAmount,
		ExpectedBeneficiary: intent.ReceivingInfo,
	})
	if err != nil {
		var aerr *attestation.Error
		if errors.As(err, &aerr) {
			metrics.Attestations.WithLabelValues(string(aerr.Code)).Inc()
			return failPermanent(stageAttestation, err)
		}
		return failStage(stageAttestation, err)
	}
	metrics.Attestations.WithLabelValues("signed").Inc()
	s.logger.InfoWithRoute(int(route), "Attestation signed for intent %s: payment %s, digest %s",
		intent.ID.Hex(), signed.Payment.TransactionID, signed.Digest.Hex())

	// Stage 5: claim the escrowed USDC.
	att := contracts.OffRampPaymentAttestation{
		IntentHash: signed.Attestation.IntentHash,
		Amount:     signed.Attestation.Amount,
		Timestamp:  signed.Attestation.Timestamp,
		PaymentId:  signed.Attestation.PaymentID,
		DataHash:   signed.Attestation.DataHash,
	}
	txHash, err := s.chain.SubmitClaim(ctx, intent.ID, att, signed.Signature)
	if err != nil {
		if errors.Is(err, chainclient.ErrReverted) {
			metrics.ClaimsSubmitted.WithLabelValues("reverted").Inc()
			return s.classifyRevert(ctx, intent, signed, transferID)
		}
		metrics.ClaimsSubmitted.WithLabelValues("error").Inc()
		return failStage(stageClaim, err)
	}

	if err := s.store.RecordFulfilled(ctx, intent.ID, txHash.Hex(), transferID); err != nil {
		return failStage(stageClaim, fmt.Errorf("claim %s mined but not persisted: %v", txHash.Hex(), err))
	}
	metrics.ClaimsSubmitted.WithLabelValues("success").Inc()
	metrics.FulfilledIntents.WithLabelValues(route.String()).Inc()
	s.logger.NoticeWithRoute(int(route), "Intent %s fulfilled: claim %s, transfer %s",
		intent.ID.Hex(), txHash.Hex(), transferID)
	return nil
}

// failIntent records a pipeline failure and schedules or refuses a retry
// according to the ledger's rules. Once fiat has moved, the ledger retries
// even failures flagged permanent, up to the backoff cap.
func (s *Service) failIntent(ctx context.Context, intent *models.Intent, serr *stageError) {
	route := intent.SelectedRoute
	metrics.FulfillmentErrors.WithLabelValues(serr.stage, errClass(serr)).Inc()

	if serr.stage == stageTransfer || serr.stage == stageSettlement {
		if cb := s.breakers.ForRoute(route); cb != nil {
			cb.RecordFailure()
		}
	}

	decision, err := s.store.RecordFailure(ctx, intent.ID, serr.Error(), !serr.permanent)
	if err != nil {
		s.logger.Error("Failed to record failure for intent %s: %v", intent.ID.Hex(), err)
		return
	}

	if decision.Permanent {
		metrics.FailedIntents.WithLabelValues(route.String(), serr.stage).Inc()
		if intent.FiatMoved() {
			metrics.FiatSentClaimUnrecoverable.Inc()
			s.logger.ErrorWithRoute(int(route), "CRITICAL: intent %s failed permanently after fiat transfer %s: %v",
				intent.ID.Hex(), intent.ProviderTransferID, serr)
		} else {
			s.logger.ErrorWithRoute(int(route), "Intent %s failed permanently: %v", intent.ID.Hex(), serr)
		}
		return
	}

	metrics.RetriesScheduled.WithLabelValues(serr.stage).Inc()
	s.logger.NoticeWithRoute(int(route), "Intent %s retry %d scheduled for %s: %v",
		intent.ID.Hex(), decision.RetryCount, decision.RetryAt.Format(time.RFC3339), serr)
}

// paymentReference is the statement text attached to the rail transfer. The
// depositor sees it on their bank statement and the attestation transcript
// discloses it back.
func paymentReference(id common.Hash) string {
	return "OFFRAMP-" + strings.ToUpper(id.Hex()[2:10])
}

// idempotencyKey derives the provider idempotency key from the intent id so
// every retry of the same intent reuses it.
func idempotencyKey(id common.Hash) string {
	return "intent-" + id.Hex()[2:]
}
