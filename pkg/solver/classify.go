package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openramp-hq/openramp-solver/pkg/attestation"
	"github.com/openramp-hq/openramp-solver/pkg/metrics"
	"github.com/openramp-hq/openramp-solver/pkg/models"
)

// stageError tags a pipeline failure with the stage it happened in and
// whether retrying the same intent can possibly change the outcome.
type stageError struct {
	stage     string
	permanent bool
	err       error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error { return e.err }

func failStage(stage string, err error) *stageError {
	return &stageError{stage: stage, err: err}
}

func failPermanent(stage string, err error) *stageError {
	return &stageError{stage: stage, permanent: true, err: err}
}

func errClass(serr *stageError) string {
	if serr.permanent {
		return "permanent"
	}
	return "transient"
}

// classifyRevert works out why a claim transaction reverted. Receipts carry
// no revert reason, so contract state is re-read instead. A revert caused by
// the claim having already landed resolves the intent as fulfilled.
func (s *Service) classifyRevert(ctx context.Context, intent *models.Intent, signed *attestation.SignedAttestation, transferID string) *stageError {
	st, err := s.chain.GetIntent(ctx, intent.ID)
	if err != nil {
		return failStage(stageClaim, fmt.Errorf("claim reverted, intent re-read failed: %v", err))
	}

	if st.Status == models.OnchainStatusFulfilled {
		// A previous claim landed, most likely our own from an attempt
		// that crashed before recording.
		if err := s.reconcileFulfilled(ctx, intent, transferID); err != nil {
			return failStage(stageClaim, err)
		}
		return nil
	}

	used, err := s.chain.UsedNullifier(ctx, attestation.Nullifier(signed.Payment.TransactionID))
	if err != nil {
		return failStage(stageClaim, fmt.Errorf("claim reverted, nullifier check failed: %v", err))
	}
	if used {
		// The payment was consumed by a different intent. No new transfer
		// will be issued for this one, so there is nothing left to retry.
		return failPermanent(stageClaim, fmt.Errorf("nullifier for transfer %s already consumed by another claim", transferID))
	}

	if st.Status == models.OnchainStatusCancelled {
		return failPermanent(stageClaim, fmt.Errorf("intent cancelled on-chain after fiat transfer %s", transferID))
	}

	if s.fulfillmentWindow > 0 && st.CommittedAt > 0 {
		deadline := time.Unix(int64(st.CommittedAt+s.fulfillmentWindow), 0)
		if time.Now().After(deadline) {
			return failPermanent(stageClaim, fmt.Errorf("fulfillment window expired %s, claim can never land", deadline.UTC().Format(time.RFC3339)))
		}
	}

	return failStage(stageClaim, errors.New("claim reverted, cause not identifiable from contract state"))
}

// reconcileFulfilled records an intent the chain already shows fulfilled,
// keeping the transfer id that paid for it.
func (s *Service) reconcileFulfilled(ctx context.Context, intent *models.Intent, transferID string) error {
	if err := s.store.RecordFulfilled(ctx, intent.ID, "", transferID); err != nil {
		return err
	}
	metrics.FulfilledIntents.WithLabelValues(intent.SelectedRoute.String()).Inc()
	s.logger.NoticeWithRoute(int(intent.SelectedRoute), "Intent %s already fulfilled on-chain, reconciled locally", intent.ID.Hex())
	return nil
}
