package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openramp-hq/openramp-solver/pkg/contracts"
	"github.com/openramp-hq/openramp-solver/pkg/ledger"
	"github.com/openramp-hq/openramp-solver/pkg/metrics"
	"github.com/openramp-hq/openramp-solver/pkg/models"
)

// handleIntentCreated mirrors a new on-chain intent into the local ledger.
// The event only carries the id, so current state is read back from the
// contract; intents that already moved past the created state are skipped.
func (s *Service) handleIntentCreated(ctx context.Context, ev *contracts.OffRampIntentCreated) error {
	id := common.Hash(ev.IntentId)

	st, err := s.chain.GetIntent(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read intent %s: %v", id.Hex(), err)
	}
	if st.Status != models.OnchainStatusCreated {
		s.logger.Debug("Skipping intent %s: on-chain status %d", id.Hex(), st.Status)
		return nil
	}

	currency := models.Currency(st.Currency)
	if !currency.Valid() {
		s.logger.Debug("Skipping intent %s: unsupported currency %d", id.Hex(), st.Currency)
		return nil
	}

	intent := &models.Intent{
		ID:         id,
		Depositor:  st.Depositor,
		UsdcAmount: st.UsdcAmount,
		Currency:   currency,
		Status:     models.StatusCreated,
		CreatedAt:  time.Unix(int64(st.CreatedAt), 0).UTC(),
	}
	if err := s.store.UpsertIntentOnCreate(ctx, intent); err != nil {
		return err
	}
	metrics.IntentsObserved.WithLabelValues(currency.String()).Inc()
	s.logger.Info("Observed intent %s: %s USDC units into %s", id.Hex(), st.UsdcAmount, currency)
	return nil
}

// handleQuoteSelected reacts to a depositor picking a quote. A selection for
// another solver closes the intent locally; a selection for this solver
// records the commit data that drives fulfillment.
func (s *Service) handleQuoteSelected(ctx context.Context, ev *contracts.OffRampQuoteSelected) error {
	id := common.Hash(ev.IntentId)

	if ev.Solver != s.chain.Address() {
		if err := s.store.MarkCancelled(ctx, id); err != nil {
			return err
		}
		s.logger.Debug("Intent %s went to solver %s", id.Hex(), ev.Solver.Hex())
		return nil
	}

	// Replays of old events must not disturb settled intents.
	if local, err := s.store.GetIntent(ctx, id); err == nil && local.Status.Terminal() {
		return nil
	}

	st, err := s.chain.GetIntent(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read committed intent %s: %v", id.Hex(), err)
	}
	if st.Status != models.OnchainStatusCommitted {
		s.logger.Debug("Skipping selection for intent %s: on-chain status %d", id.Hex(), st.Status)
		return nil
	}

	// The intent may be unknown locally when the selection is the first
	// event this solver observes for it (fresh database, missed range).
	seed := &models.Intent{
		ID:         id,
		Depositor:  st.Depositor,
		UsdcAmount: st.UsdcAmount,
		Currency:   models.Currency(st.Currency),
		Status:     models.StatusCreated,
		CreatedAt:  time.Unix(int64(st.CreatedAt), 0).UTC(),
	}
	if err := s.store.UpsertIntentOnCreate(ctx, seed); err != nil {
		return err
	}

	route := models.Route(st.SelectedRoute)
	commit := ledger.Commit{
		Solver:        ev.Solver,
		Route:         route,
		FiatAmount:    st.SelectedFiatAmount.Int64(),
		ReceivingInfo: st.ReceivingInfo,
		RecipientName: st.RecipientName,
		CommittedAt:   time.Unix(int64(st.CommittedAt), 0).UTC(),
	}
	if err := s.store.RecordCommit(ctx, id, commit); err != nil {
		return fmt.Errorf("failed to record commit for intent %s: %v", id.Hex(), err)
	}
	metrics.QuotesWon.WithLabelValues(route.String()).Inc()
	s.logger.NoticeWithRoute(int(route), "Won intent %s: %d cents to %q", id.Hex(), commit.FiatAmount, st.RecipientName)
	return nil
}
