package solver

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openramp-hq/openramp-solver/pkg/contracts"
)

// watchEvents subscribes to contract events over the websocket endpoint and
// feeds them into the same handlers the block scan uses. The scan remains
// the source of truth; subscriptions only cut reaction latency, so a dropped
// subscription degrades to polling instead of being re-established here.
func (s *Service) watchEvents(ctx context.Context) {
	created := make(chan *contracts.OffRampIntentCreated, 16)
	createdSub, err := s.chain.WatchIntentCreated(ctx, created)
	if err != nil {
		s.logger.Error("IntentCreated subscription unavailable: %v", err)
		return
	}
	defer createdSub.Unsubscribe()

	selected := make(chan *contracts.OffRampQuoteSelected, 16)
	selectedSub, err := s.chain.WatchQuoteSelected(ctx, selected, s.chain.Address())
	if err != nil {
		s.logger.Error("QuoteSelected subscription unavailable: %v", err)
		return
	}
	defer selectedSub.Unsubscribe()

	s.logger.Info("Watching contract events")
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-createdSub.Err():
			s.logger.Error("IntentCreated subscription dropped: %v", err)
			return
		case err := <-selectedSub.Err():
			s.logger.Error("QuoteSelected subscription dropped: %v", err)
			return
		case ev := <-created:
			if err := s.handleIntentCreated(ctx, ev); err != nil {
				s.logger.Error("Error handling IntentCreated: %v", err)
				continue
			}
			s.enqueue(job{id: common.Hash(ev.IntentId), kind: jobQuote})
		case ev := <-selected:
			if err := s.handleQuoteSelected(ctx, ev); err != nil {
				s.logger.Error("Error handling QuoteSelected: %v", err)
				continue
			}
			s.enqueue(job{id: common.Hash(ev.IntentId), kind: jobFulfill})
		}
	}
}
