package solver

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/require"

	"github.com/openramp-hq/openramp-solver/pkg/attestation"
	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/contracts"
	"github.com/openramp-hq/openramp-solver/pkg/ledger"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
	"github.com/openramp-hq/openramp-solver/pkg/models"
	"github.com/openramp-hq/openramp-solver/pkg/prover"
	"github.com/openramp-hq/openramp-solver/pkg/rail"
)

var (
	solverAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	otherAddr  = common.HexToAddress("0x2222222222222222222222222222222222222222")

	testIBAN      = "FR7630006000011234567890189"
	testRecipient = "Marie Dupont"
)

type submittedQuote struct {
	intentID      common.Hash
	route         uint8
	fiatAmount    *big.Int
	solverFee     *big.Int
	estimatedTime uint64
}

type submittedClaim struct {
	intentID    common.Hash
	attestation contracts.OffRampPaymentAttestation
	signature   []byte
}

// fakeChain is an in-memory stand-in for the settlement chain.
type fakeChain struct {
	mu sync.Mutex

	address common.Address
	latest  uint64

	intents        map[common.Hash]contracts.OffRampIntent
	created        []*contracts.OffRampIntentCreated
	selected       []*contracts.OffRampQuoteSelected
	usedNullifiers map[[32]byte]bool

	quotes []submittedQuote
	claims []submittedClaim

	quoteErr  error
	claimErrs []error // consumed per SubmitClaim call, nil entry means success
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		address:        solverAddr,
		latest:         100,
		intents:        make(map[common.Hash]contracts.OffRampIntent),
		usedNullifiers: make(map[[32]byte]bool),
	}
}

func (f *fakeChain) Address() common.Address { return f.address }
func (f *fakeChain) ChainID() int64          { return 84532 }
func (f *fakeChain) SupportsWatch() bool     { return false }

func (f *fakeChain) LatestBlock(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, nil
}

func (f *fakeChain) UpdateGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeChain) USDCBalance(ctx context.Context) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeChain) GetIntent(ctx context.Context, intentID common.Hash) (contracts.OffRampIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.intents[intentID]
	if !ok {
		return contracts.OffRampIntent{}, errors.New("intent not found on chain")
	}
	return st, nil
}

func (f *fakeChain) UsedNullifier(ctx context.Context, nullifier [32]byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usedNullifiers[nullifier], nil
}

func (f *fakeChain) QuoteWindow(ctx context.Context) (uint64, error)       { return 300, nil }
func (f *fakeChain) FulfillmentWindow(ctx context.Context) (uint64, error) { return 3600, nil }

func (f *fakeChain) SubmitQuote(ctx context.Context, intentID common.Hash, route uint8, fiatAmount, solverFee *big.Int, estimatedTime uint64) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quoteErr != nil {
		return common.Hash{}, f.quoteErr
	}
	f.quotes = append(f.quotes, submittedQuote{
		intentID:      intentID,
		route:         route,
		fiatAmount:    new(big.Int).Set(fiatAmount),
		solverFee:     new(big.Int).Set(solverFee),
		estimatedTime: estimatedTime,
	})
	return common.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000001"), nil
}

func (f *fakeChain) SubmitClaim(ctx context.Context, intentID common.Hash, att contracts.OffRampPaymentAttestation, signature []byte) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.claimErrs) > 0 {
		err := f.claimErrs[0]
		f.claimErrs = f.claimErrs[1:]
		if err != nil {
			return common.Hash{}, err
		}
	}
	f.claims = append(f.claims, submittedClaim{
		intentID:    intentID,
		attestation: att,
		signature:   append([]byte(nil), signature...),
	})
	return common.HexToHash("0xbbbb000000000000000000000000000000000000000000000000000000000002"), nil
}

func (f *fakeChain) IntentCreatedEvents(ctx context.Context, fromBlock, toBlock uint64) ([]*contracts.OffRampIntentCreated, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*contracts.OffRampIntentCreated
	for _, ev := range f.created {
		if ev.Raw.BlockNumber >= fromBlock && ev.Raw.BlockNumber <= toBlock {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeChain) QuoteSelectedEvents(ctx context.Context, fromBlock, toBlock uint64) ([]*contracts.OffRampQuoteSelected, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*contracts.OffRampQuoteSelected
	for _, ev := range f.selected {
		if ev.Raw.BlockNumber >= fromBlock && ev.Raw.BlockNumber <= toBlock {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeChain) WatchIntentCreated(ctx context.Context, sink chan<- *contracts.OffRampIntentCreated) (event.Subscription, error) {
	return nil, errors.New("watching not supported")
}

func (f *fakeChain) WatchQuoteSelected(ctx context.Context, sink chan<- *contracts.OffRampQuoteSelected, solver common.Address) (event.Subscription, error) {
	return nil, errors.New("watching not supported")
}

// fakeRail records transfer requests and plays back scripted statuses.
type fakeRail struct {
	mu sync.Mutex

	route      models.Route
	transferID string
	requests   []rail.TransferRequest
	execErr    error
	statuses   []rail.TransferStatus // consumed per poll, last one repeats
}

func (f *fakeRail) Route() models.Route { return f.route }

func (f *fakeRail) ExecuteTransfer(ctx context.Context, req rail.TransferRequest) (*rail.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.execErr != nil {
		return nil, f.execErr
	}
	f.requests = append(f.requests, req)
	return &rail.TransferResult{
		TransferID:      f.transferID,
		AmountSentCents: req.AmountCents,
		Status:          rail.StatusProcessing,
	}, nil
}

func (f *fakeRail) GetTransferStatus(ctx context.Context, transferID string) (rail.TransferStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return rail.StatusCompleted, nil
	}
	status := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return status, nil
}

// fakeProver returns canned presentation bytes.
type fakeProver struct {
	mu sync.Mutex

	requests     []prover.Request
	errs         []error // consumed per call, nil entry means success
	presentation []byte
}

func (f *fakeProver) Prove(ctx context.Context, req prover.Request) (*prover.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &prover.Result{
		PresentationPath: "/tmp/proof.presentation",
		Presentation:     f.presentation,
	}, nil
}

// fakeAttester signs whatever the params expect unless told to fail.
type fakeAttester struct {
	mu sync.Mutex

	calls   []attestation.Params
	gotPres [][]byte
	err     error
	payment attestation.PaymentRecord
}

func (f *fakeAttester) Attest(ctx context.Context, presentation []byte, params attestation.Params) (*attestation.SignedAttestation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	f.gotPres = append(f.gotPres, append([]byte(nil), presentation...))
	if f.err != nil {
		return nil, f.err
	}

	pay := f.payment
	if pay.TransactionID == "" {
		pay.TransactionID = "7f9c2ba4-e88f-4a5e-9fcd-123456789abc"
	}
	if pay.AmountCents == 0 {
		pay.AmountCents = params.ExpectedAmountCents
	}
	if pay.Status == "" {
		pay.Status = "completed"
	}

	return &attestation.SignedAttestation{
		Attestation: attestation.Attestation{
			IntentHash: params.IntentHash,
			Amount:     big.NewInt(pay.AmountCents),
			Timestamp:  big.NewInt(1718000000),
			PaymentID:  pay.TransactionID,
			DataHash:   common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222"),
		},
		Digest:     common.HexToHash("0x3333333333333333333333333333333333333333333333333333333333333333"),
		Signature:  bytes.Repeat([]byte{0xab}, 65),
		Payment:    pay,
		ServerName: "thirdparty.qonto.com",
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		ChainID:           84532,
		PollingInterval:   time.Second,
		RailSettleTimeout: 2 * time.Second,
		QuoteValidity:     5 * time.Minute,
		WorkerCount:       2,
		EnabledRoutes:     []models.Route{models.RouteSEPAInstant, models.RouteFPS},
		Pricing: config.PricingConfig{
			Rates: map[models.Currency]float64{
				models.CurrencyEUR: 0.92,
				models.CurrencyGBP: 0.79,
			},
			SpreadBps: 0,
			FlatFee:   big.NewInt(500000),
			RouteETA: map[models.Route]uint64{
				models.RouteSEPAInstant: 600,
				models.RouteFPS:         300,
			},
		},
		CircuitBreaker: config.CircuitBreakerConfig{Enabled: false},
	}
}

type testEnv struct {
	service  *Service
	store    *ledger.Store
	chain    *fakeChain
	rail     *fakeRail
	prover   *fakeProver
	attester *fakeAttester
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := ledger.NewStore(filepath.Join(t.TempDir(), "solver.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	chain := newFakeChain()
	sepaRail := &fakeRail{route: models.RouteSEPAInstant, transferID: "tr-7f9c2ba4"}
	prv := &fakeProver{presentation: []byte("presentation-bytes")}
	att := &fakeAttester{}

	svc := NewService(testConfig(), store, chain, rail.NewRegistry(sepaRail), prv, att, &logger.EmptyLogger{})
	svc.quoteWindow = 300
	svc.fulfillmentWindow = 3600

	return &testEnv{
		service:  svc,
		store:    store,
		chain:    chain,
		rail:     sepaRail,
		prover:   prv,
		attester: att,
	}
}

// seedCreated registers an intent on the fake chain and mirrors it locally.
func seedCreated(t *testing.T, env *testEnv, id common.Hash) {
	t.Helper()
	env.chain.intents[id] = contracts.OffRampIntent{
		Depositor:  otherAddr,
		UsdcAmount: big.NewInt(100_000_000), // 100 USDC
		Currency:   uint8(models.CurrencyEUR),
		Status:     models.OnchainStatusCreated,
		CreatedAt:  uint64(time.Now().Unix()),
	}
	err := env.service.handleIntentCreated(context.Background(), &contracts.OffRampIntentCreated{
		IntentId:  id,
		Depositor: otherAddr,
		Amount:    big.NewInt(100_000_000),
		Currency:  uint8(models.CurrencyEUR),
	})
	require.NoError(t, err)
}

// seedCommitted moves a seeded intent into the committed state with this
// solver selected on the SEPA route.
func seedCommitted(t *testing.T, env *testEnv, id common.Hash) {
	t.Helper()
	seedCreated(t, env, id)

	st := env.chain.intents[id]
	st.Status = models.OnchainStatusCommitted
	st.CommittedAt = uint64(time.Now().Unix())
	st.SelectedSolver = solverAddr
	st.SelectedRoute = uint8(models.RouteSEPAInstant)
	st.SelectedFiatAmount = big.NewInt(9200)
	st.ReceivingInfo = testIBAN
	st.RecipientName = testRecipient
	env.chain.intents[id] = st

	err := env.service.handleQuoteSelected(context.Background(), &contracts.OffRampQuoteSelected{
		IntentId:   id,
		Solver:     solverAddr,
		Route:      uint8(models.RouteSEPAInstant),
		FiatAmount: big.NewInt(9200),
	})
	require.NoError(t, err)
}

func intentID(n byte) common.Hash {
	var id common.Hash
	id[0] = 0x0f
	id[31] = n
	return id
}
