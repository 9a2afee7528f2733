package ledger

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openramp-hq/openramp-solver/pkg/models"
)

var (
	testSolver      = common.HexToAddress("0x2222222222222222222222222222222222222222")
	otherSolver     = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testBeneficiary = "FR7630006000011234567890189"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestIntent(id byte) *models.Intent {
	return &models.Intent{
		ID:         common.Hash{id},
		Depositor:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
		UsdcAmount: big.NewInt(100_000_000),
		Currency:   models.CurrencyEUR,
		CreatedAt:  time.Now().UTC(),
	}
}

func testCommit() Commit {
	return Commit{
		Solver:        testSolver,
		Route:         models.RouteSEPAInstant,
		FiatAmount:    9200,
		ReceivingInfo: testBeneficiary,
		RecipientName: "Alice Martin",
		CommittedAt:   time.Now().UTC(),
	}
}

func TestUpsertIntentOnCreate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	intent := newTestIntent(1)

	require.NoError(t, store.UpsertIntentOnCreate(ctx, intent))

	got, err := store.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, got.Status)
	assert.Equal(t, intent.Depositor, got.Depositor)
	assert.Zero(t, intent.UsdcAmount.Cmp(got.UsdcAmount))
	assert.Equal(t, models.CurrencyEUR, got.Currency)

	// Duplicate event delivery must not clobber the row.
	dup := newTestIntent(1)
	dup.Depositor = otherSolver
	require.NoError(t, store.UpsertIntentOnCreate(ctx, dup))

	got, err = store.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.Depositor, got.Depositor)
}

func TestGetIntentNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetIntent(context.Background(), common.Hash{0xff})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordCommit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	intent := newTestIntent(1)

	err := store.RecordCommit(ctx, intent.ID, testCommit())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.UpsertIntentOnCreate(ctx, intent))
	require.NoError(t, store.RecordCommit(ctx, intent.ID, testCommit()))

	got, err := store.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCommitted, got.Status)
	assert.Equal(t, testSolver, got.SelectedSolver)
	assert.Equal(t, models.RouteSEPAInstant, got.SelectedRoute)
	assert.Equal(t, int64(9200), got.SelectedFiatAmount)
	assert.Equal(t, testBeneficiary, got.ReceivingInfo)
	assert.NotNil(t, got.CommittedAt)
}

func TestRecordTransferIDSetOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	intent := newTestIntent(1)
	require.NoError(t, store.UpsertIntentOnCreate(ctx, intent))
	require.NoError(t, store.RecordCommit(ctx, intent.ID, testCommit()))

	stored, err := store.RecordTransferID(ctx, intent.ID, "tr-1")
	require.NoError(t, err)
	assert.Equal(t, "tr-1", stored)

	// A second write must return the original id, never overwrite.
	stored, err = store.RecordTransferID(ctx, intent.ID, "tr-2")
	require.NoError(t, err)
	assert.Equal(t, "tr-1", stored)

	got, err := store.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, "tr-1", got.ProviderTransferID)
}

func TestRecordFailureRetrySchedule(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	intent := newTestIntent(1)
	require.NoError(t, store.UpsertIntentOnCreate(ctx, intent))
	require.NoError(t, store.RecordCommit(ctx, intent.ID, testCommit()))

	_, err := store.RecordTransferID(ctx, intent.ID, "tr-1")
	require.NoError(t, err)

	// With the transfer executed, every failure below the cap schedules a
	// retry with doubling delay.
	delays := []time.Duration{
		60 * time.Second,
		120 * time.Second,
		240 * time.Second,
		480 * time.Second,
		960 * time.Second,
	}
	for i, delay := range delays {
		before := time.Now()
		decision, err := store.RecordFailure(ctx, intent.ID, "proof toolchain timed out", false)
		require.NoError(t, err)
		assert.False(t, decision.Permanent, "failure %d must not be permanent", i+1)
		assert.Equal(t, i+1, decision.RetryCount)
		assert.WithinDuration(t, before.Add(delay), decision.RetryAt, 2*time.Second)

		got, err := store.GetIntent(ctx, intent.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCommitted, got.Status)
		assert.Equal(t, i+1, got.RetryCount)
		require.NotNil(t, got.NextRetryAt)
	}

	// The sixth failure exhausts the policy.
	decision, err := store.RecordFailure(ctx, intent.ID, "proof toolchain timed out", false)
	require.NoError(t, err)
	assert.True(t, decision.Permanent)

	got, err := store.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailedPermanent, got.Status)
	assert.Equal(t, "tr-1", got.ProviderTransferID, "transfer id must survive permanent failure")
	assert.Nil(t, got.NextRetryAt)
	assert.Equal(t, "proof toolchain timed out", got.LastError)
}

func TestRecordFailureWithoutTransfer(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t.Run("permanent when not forced", func(t *testing.T) {
		intent := newTestIntent(1)
		require.NoError(t, store.UpsertIntentOnCreate(ctx, intent))
		require.NoError(t, store.RecordCommit(ctx, intent.ID, testCommit()))

		decision, err := store.RecordFailure(ctx, intent.ID, "amount mismatch", false)
		require.NoError(t, err)
		assert.True(t, decision.Permanent)

		got, err := store.GetIntent(ctx, intent.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailedPermanent, got.Status)
	})

	t.Run("scheduled when forced", func(t *testing.T) {
		intent := newTestIntent(2)
		require.NoError(t, store.UpsertIntentOnCreate(ctx, intent))
		require.NoError(t, store.RecordCommit(ctx, intent.ID, testCommit()))

		decision, err := store.RecordFailure(ctx, intent.ID, "rail unreachable", true)
		require.NoError(t, err)
		assert.False(t, decision.Permanent)
		assert.Equal(t, 1, decision.RetryCount)
	})
}

func TestIntentQueries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	fresh := newTestIntent(1)
	quoted := newTestIntent(2)
	committed := newTestIntent(3)
	foreign := newTestIntent(4)
	for _, intent := range []*models.Intent{fresh, quoted, committed, foreign} {
		require.NoError(t, store.UpsertIntentOnCreate(ctx, intent))
	}

	require.NoError(t, store.MarkQuotesSubmitted(ctx, quoted.ID))
	require.NoError(t, store.RecordCommit(ctx, committed.ID, testCommit()))

	foreignCommit := testCommit()
	foreignCommit.Solver = otherSolver
	require.NoError(t, store.RecordCommit(ctx, foreign.ID, foreignCommit))

	awaitingQuote, err := store.IntentsAwaitingQuote(ctx)
	require.NoError(t, err)
	require.Len(t, awaitingQuote, 1)
	assert.Equal(t, fresh.ID, awaitingQuote[0].ID)

	awaitingFulfillment, err := store.IntentsAwaitingFulfillment(ctx, testSolver)
	require.NoError(t, err)
	require.Len(t, awaitingFulfillment, 1)
	assert.Equal(t, committed.ID, awaitingFulfillment[0].ID)

	// A scheduled retry takes the intent out of the awaiting set until due.
	_, err = store.RecordTransferID(ctx, committed.ID, "tr-1")
	require.NoError(t, err)
	_, err = store.RecordFailure(ctx, committed.ID, "claim timeout", false)
	require.NoError(t, err)

	awaitingFulfillment, err = store.IntentsAwaitingFulfillment(ctx, testSolver)
	require.NoError(t, err)
	assert.Empty(t, awaitingFulfillment)

	ready, err := store.IntentsReadyForRetry(ctx, testSolver, time.Now())
	require.NoError(t, err)
	assert.Empty(t, ready)

	ready, err = store.IntentsReadyForRetry(ctx, testSolver, time.Now().Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, committed.ID, ready[0].ID)

	// Another solver never sees our committed intents.
	ready, err = store.IntentsReadyForRetry(ctx, otherSolver, time.Now().Add(2*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestRecordFulfilled(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	intent := newTestIntent(1)
	require.NoError(t, store.UpsertIntentOnCreate(ctx, intent))
	require.NoError(t, store.RecordCommit(ctx, intent.ID, testCommit()))

	_, err := store.RecordTransferID(ctx, intent.ID, "tr-1")
	require.NoError(t, err)
	_, err = store.RecordFailure(ctx, intent.ID, "claim timeout", false)
	require.NoError(t, err)

	require.NoError(t, store.RecordFulfilled(ctx, intent.ID, "0xabc", "tr-1"))

	got, err := store.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFulfilled, got.Status)
	assert.Equal(t, "0xabc", got.FulfillmentTxRef)
	assert.Equal(t, 1, got.RetryCount, "retry history is part of the audit trail")
	assert.Nil(t, got.NextRetryAt)
}

func TestMarkCancelled(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	intent := newTestIntent(1)
	require.NoError(t, store.UpsertIntentOnCreate(ctx, intent))

	require.NoError(t, store.MarkCancelled(ctx, intent.ID))

	got, err := store.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestQuoteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	intent := newTestIntent(1)
	require.NoError(t, store.UpsertIntentOnCreate(ctx, intent))

	quote := &models.Quote{
		IntentID:      intent.ID,
		Route:         models.RouteSEPAInstant,
		FiatAmount:    9200,
		SolverFee:     big.NewInt(500_000),
		EstimatedTime: 600,
		ExpiresAt:     time.Now().Add(5 * time.Minute).UTC(),
	}
	require.NoError(t, store.SaveQuote(ctx, quote))

	// Re-saving the same (intent, route) replaces rather than duplicates.
	quote.FiatAmount = 9150
	require.NoError(t, store.SaveQuote(ctx, quote))

	require.NoError(t, store.MarkQuoteSubmitted(ctx, intent.ID, models.RouteSEPAInstant, "0xdef"))

	quotes, err := store.QuotesForIntent(ctx, intent.ID)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, int64(9150), quotes[0].FiatAmount)
	assert.True(t, quotes[0].Submitted)
	assert.Equal(t, "0xdef", quotes[0].TxHash)
	assert.Zero(t, big.NewInt(500_000).Cmp(quotes[0].SolverFee))
}

func TestScanCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	block, err := store.LastScannedBlock(ctx, 84532)
	require.NoError(t, err)
	assert.Zero(t, block)

	require.NoError(t, store.SetLastScannedBlock(ctx, 84532, 1_234_567))
	require.NoError(t, store.SetLastScannedBlock(ctx, 84532, 1_234_890))

	block, err = store.LastScannedBlock(ctx, 84532)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_234_890), block)
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := byte(1); i <= 3; i++ {
		require.NoError(t, store.UpsertIntentOnCreate(ctx, newTestIntent(i)))
	}
	require.NoError(t, store.RecordCommit(ctx, common.Hash{3}, testCommit()))

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.StatusCreated])
	assert.Equal(t, 1, counts[models.StatusCommitted])
}
