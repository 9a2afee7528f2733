package solver

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/contracts"
	"github.com/openramp-hq/openramp-solver/pkg/models"
)

func TestHandleIntentCreatedStoresIntent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(1)

	seedCreated(t, env, id)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, intent.Status)
	assert.Equal(t, models.CurrencyEUR, intent.Currency)
	assert.Equal(t, "100000000", intent.UsdcAmount.String())
	assert.Equal(t, otherAddr, intent.Depositor)

	// Replaying the event must not reset anything.
	require.NoError(t, env.store.MarkQuotesSubmitted(ctx, id))
	seedCreated(t, env, id)
	intent, err = env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.True(t, intent.QuotesSubmitted)
}

func TestHandleIntentCreatedSkipsNonCreated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(2)

	env.chain.intents[id] = contracts.OffRampIntent{
		UsdcAmount: big.NewInt(100_000_000),
		Currency:   uint8(models.CurrencyEUR),
		Status:     models.OnchainStatusCancelled,
		CreatedAt:  uint64(time.Now().Unix()),
	}
	err := env.service.handleIntentCreated(ctx, &contracts.OffRampIntentCreated{IntentId: id})
	require.NoError(t, err)

	_, err = env.store.GetIntent(ctx, id)
	assert.Error(t, err)
}

func TestHandleQuoteSelectedRecordsCommit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(3)

	seedCommitted(t, env, id)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCommitted, intent.Status)
	assert.Equal(t, solverAddr, intent.SelectedSolver)
	assert.Equal(t, models.RouteSEPAInstant, intent.SelectedRoute)
	assert.Equal(t, int64(9200), intent.SelectedFiatAmount)
	assert.Equal(t, testIBAN, intent.ReceivingInfo)
	assert.Equal(t, testRecipient, intent.RecipientName)
	require.NotNil(t, intent.CommittedAt)
}

func TestHandleQuoteSelectedForOtherSolver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(4)

	seedCreated(t, env, id)
	err := env.service.handleQuoteSelected(ctx, &contracts.OffRampQuoteSelected{
		IntentId:   id,
		Solver:     otherAddr,
		Route:      uint8(models.RouteSEPAInstant),
		FiatAmount: big.NewInt(9150),
	})
	require.NoError(t, err)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, intent.Status)
}

func TestHandleQuoteSelectedUnknownIntent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(5)

	// Selection observed with no prior IntentCreated (fresh database). The
	// handler seeds the intent from chain state before recording the commit.
	env.chain.intents[id] = contracts.OffRampIntent{
		Depositor:          otherAddr,
		UsdcAmount:         big.NewInt(100_000_000),
		Currency:           uint8(models.CurrencyEUR),
		Status:             models.OnchainStatusCommitted,
		CreatedAt:          uint64(time.Now().Add(-time.Minute).Unix()),
		CommittedAt:        uint64(time.Now().Unix()),
		SelectedSolver:     solverAddr,
		SelectedRoute:      uint8(models.RouteSEPAInstant),
		SelectedFiatAmount: big.NewInt(9200),
		ReceivingInfo:      testIBAN,
		RecipientName:      testRecipient,
	}
	err := env.service.handleQuoteSelected(ctx, &contracts.OffRampQuoteSelected{
		IntentId:   id,
		Solver:     solverAddr,
		Route:      uint8(models.RouteSEPAInstant),
		FiatAmount: big.NewInt(9200),
	})
	require.NoError(t, err)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCommitted, intent.Status)
	assert.Equal(t, int64(9200), intent.SelectedFiatAmount)
}

func TestQuoteIntentSubmitsOnChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(6)

	seedCreated(t, env, id)
	require.NoError(t, env.service.quoteIntent(ctx, id))

	require.Len(t, env.chain.quotes, 1)
	q := env.chain.quotes[0]
	assert.Equal(t, id, q.intentID)
	assert.Equal(t, uint8(models.RouteSEPAInstant), q.route)
	assert.Equal(t, int64(9200), q.fiatAmount.Int64()) // 100 USDC at 0.92, no spread
	assert.Equal(t, int64(500000), q.solverFee.Int64())
	assert.Equal(t, uint64(600), q.estimatedTime)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.True(t, intent.QuotesSubmitted)

	saved, err := env.store.QuotesForIntent(ctx, id)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.True(t, saved[0].Submitted)
	assert.NotEmpty(t, saved[0].TxHash)

	// A second pass is a no-op.
	require.NoError(t, env.service.quoteIntent(ctx, id))
	assert.Len(t, env.chain.quotes, 1)
}

func TestQuoteIntentNoServiceableRoute(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(7)

	// GBP intent: FPS is enabled but no FPS rail is configured.
	env.chain.intents[id] = contracts.OffRampIntent{
		Depositor:  otherAddr,
		UsdcAmount: big.NewInt(100_000_000),
		Currency:   uint8(models.CurrencyGBP),
		Status:     models.OnchainStatusCreated,
		CreatedAt:  uint64(time.Now().Unix()),
	}
	require.NoError(t, env.service.handleIntentCreated(ctx, &contracts.OffRampIntentCreated{IntentId: id}))

	require.NoError(t, env.service.quoteIntent(ctx, id))

	assert.Empty(t, env.chain.quotes)
	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.True(t, intent.QuotesSubmitted)
}

func TestQuoteIntentPastWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(8)

	env.chain.intents[id] = contracts.OffRampIntent{
		Depositor:  otherAddr,
		UsdcAmount: big.NewInt(100_000_000),
		Currency:   uint8(models.CurrencyEUR),
		Status:     models.OnchainStatusCreated,
		CreatedAt:  uint64(time.Now().Add(-30 * time.Minute).Unix()),
	}
	require.NoError(t, env.service.handleIntentCreated(ctx, &contracts.OffRampIntentCreated{IntentId: id}))

	require.NoError(t, env.service.quoteIntent(ctx, id))

	assert.Empty(t, env.chain.quotes)
	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.True(t, intent.QuotesSubmitted)
}

func TestQuoteIntentRetriesAfterSubmitError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(9)

	seedCreated(t, env, id)

	env.chain.quoteErr = errors.New("nonce too low")
	require.NoError(t, env.service.quoteIntent(ctx, id))

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.False(t, intent.QuotesSubmitted, "failed submission must stay eligible for the next poll")

	env.chain.quoteErr = nil
	require.NoError(t, env.service.quoteIntent(ctx, id))

	require.Len(t, env.chain.quotes, 1)
	intent, err = env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.True(t, intent.QuotesSubmitted)
}

func TestScanChainAdvancesCheckpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(10)

	env.chain.intents[id] = contracts.OffRampIntent{
		Depositor:  otherAddr,
		UsdcAmount: big.NewInt(100_000_000),
		Currency:   uint8(models.CurrencyEUR),
		Status:     models.OnchainStatusCreated,
		CreatedAt:  uint64(time.Now().Unix()),
	}
	env.chain.created = append(env.chain.created, &contracts.OffRampIntentCreated{
		IntentId: id,
		Amount:   big.NewInt(100_000_000),
		Currency: uint8(models.CurrencyEUR),
		Raw:      types.Log{BlockNumber: 100},
	})
	env.chain.latest = 100

	require.NoError(t, env.service.scanChain(ctx))

	last, err := env.store.LastScannedBlock(ctx, 84532)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), last)

	intent, err := env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, intent.Status)

	// A selection in a later range is picked up on the next pass.
	st := env.chain.intents[id]
	st.Status = models.OnchainStatusCommitted
	st.CommittedAt = uint64(time.Now().Unix())
	st.SelectedSolver = solverAddr
	st.SelectedRoute = uint8(models.RouteSEPAInstant)
	st.SelectedFiatAmount = big.NewInt(9200)
	st.ReceivingInfo = testIBAN
	st.RecipientName = testRecipient
	env.chain.intents[id] = st
	env.chain.selected = append(env.chain.selected, &contracts.OffRampQuoteSelected{
		IntentId:   id,
		Solver:     solverAddr,
		Route:      uint8(models.RouteSEPAInstant),
		FiatAmount: big.NewInt(9200),
		Raw:        types.Log{BlockNumber: 120},
	})
	env.chain.latest = 150

	require.NoError(t, env.service.scanChain(ctx))

	last, err = env.store.LastScannedBlock(ctx, 84532)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), last)

	intent, err = env.store.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCommitted, intent.Status)

	// Nothing new: the checkpoint stays put.
	require.NoError(t, env.service.scanChain(ctx))
	last, err = env.store.LastScannedBlock(ctx, 84532)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), last)
}

func TestTickQueuesDueWork(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(11)

	seedCreated(t, env, id)
	env.service.tick(ctx)

	require.Equal(t, 1, len(env.service.jobs))
	j := <-env.service.jobs
	assert.Equal(t, id, j.id)
	assert.Equal(t, jobQuote, j.kind)
}

func TestEnqueueDeduplicates(t *testing.T) {
	env := newTestEnv(t)
	id := intentID(12)

	env.service.enqueue(job{id: id, kind: jobQuote})
	env.service.enqueue(job{id: id, kind: jobQuote})

	assert.Equal(t, 1, env.service.InFlight())
	assert.Equal(t, 1, len(env.service.jobs))

	env.service.clearInFlight(id)
	assert.Equal(t, 0, env.service.InFlight())
}

func TestWorkerDrainsQueue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := intentID(13)

	seedCreated(t, env, id)
	env.service.enqueue(job{id: id, kind: jobQuote})

	done := make(chan struct{})
	go func() {
		env.service.worker(ctx, 0)
		close(done)
	}()

	env.service.wg.Wait()
	close(env.service.jobs)
	<-done

	require.Len(t, env.chain.quotes, 1)
	assert.Equal(t, 0, env.service.InFlight())
}

func TestPricerFiatQuote(t *testing.T) {
	p := NewPricer(config.PricingConfig{
		Rates:     map[models.Currency]float64{models.CurrencyEUR: 0.92},
		SpreadBps: 80,
		FlatFee:   big.NewInt(500000),
		RouteETA:  map[models.Route]uint64{models.RouteSEPAInstant: 600},
	})

	cents, err := p.FiatQuote(big.NewInt(100_000_000), models.CurrencyEUR)
	require.NoError(t, err)
	assert.Equal(t, int64(9126), cents, "92.00 EUR less 80 bps, rounded down")

	_, err = p.FiatQuote(big.NewInt(100_000_000), models.CurrencyGBP)
	assert.Error(t, err, "no GBP rate configured")

	_, err = p.FiatQuote(big.NewInt(0), models.CurrencyEUR)
	assert.Error(t, err, "zero quotes are never offered")

	assert.Equal(t, int64(500000), p.Fee().Int64())
	assert.Equal(t, uint64(600), p.ETA(models.RouteSEPAInstant))
}

func TestPricerFeeIsACopy(t *testing.T) {
	p := NewPricer(config.PricingConfig{
		Rates:   map[models.Currency]float64{},
		FlatFee: big.NewInt(500000),
	})
	fee := p.Fee()
	fee.SetInt64(0)
	assert.Equal(t, int64(500000), p.Fee().Int64())
}

var _ ChainClient = (*fakeChain)(nil)
