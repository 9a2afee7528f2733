package health

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openramp-hq/openramp-solver/pkg/circuitbreaker"
	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
	"github.com/openramp-hq/openramp-solver/pkg/models"
)

type fakeChain struct {
	block    uint64
	blockErr error
	balance  *big.Int
}

func (f *fakeChain) Address() common.Address { return common.HexToAddress("0x1234") }
func (f *fakeChain) ChainID() int64          { return 84532 }

func (f *fakeChain) LatestBlock(context.Context) (uint64, error) {
	return f.block, f.blockErr
}

func (f *fakeChain) USDCBalance(context.Context) (*big.Int, error) {
	return f.balance, nil
}

type fakeLedger struct {
	counts map[models.IntentStatus]int
}

func (f *fakeLedger) CountByStatus(context.Context) (map[models.IntentStatus]int, error) {
	return f.counts, nil
}

func newTestServer(t *testing.T) (*Server, *fakeChain, *circuitbreaker.Set) {
	t.Helper()
	chain := &fakeChain{block: 1000, balance: big.NewInt(250000000)}
	store := &fakeLedger{counts: map[models.IntentStatus]int{
		models.StatusCommitted: 2,
		models.StatusFulfilled: 7,
	}}
	breakers := circuitbreaker.NewSet(
		[]models.Route{models.RouteSEPAInstant},
		config.CircuitBreakerConfig{Enabled: true, Threshold: 1, WindowDuration: time.Minute, ResetTimeout: time.Minute},
		&logger.EmptyLogger{},
	)
	srv := NewServer("0", chain, store, breakers, func() int { return 3 })
	return srv, chain, breakers
}

func TestHealthAndReady(t *testing.T) {
	srv, chain, _ := newTestServer(t)
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/ready")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	chain.blockErr = errors.New("connection refused")
	resp, err = http.Get(ts.URL + "/ready")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, breakers := newTestServer(t)
	breakers.ForRoute(models.RouteSEPAInstant).RecordFailure()

	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))

	chain := status["chain"].(map[string]interface{})
	assert.Equal(t, float64(84532), chain["chain_id"])
	assert.Equal(t, float64(1000), chain["latest_block"])
	assert.Equal(t, "250000000", chain["usdc_balance"])

	intents := status["intents"].(map[string]interface{})
	assert.Equal(t, float64(2), intents["committed"])
	assert.Equal(t, float64(7), intents["fulfilled"])

	circuits := status["circuits"].(map[string]interface{})
	assert.Equal(t, "open", circuits["SEPA_INSTANT"])

	assert.Equal(t, float64(3), status["pipelines_in_flight"])
}

func TestCircuitResetEndpoint(t *testing.T) {
	srv, _, breakers := newTestServer(t)
	cb := breakers.ForRoute(models.RouteSEPAInstant)
	cb.RecordFailure()
	require.True(t, cb.IsOpen())

	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/circuit/reset?route=SEPA_INSTANT")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/circuit/reset?route=SEPA_INSTANT", "", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, cb.IsOpen())

	resp, err = http.Post(ts.URL+"/circuit/reset?route=FPS", "", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/circuit/reset?route=nope", "", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsAuth(t *testing.T) {
	t.Setenv("METRICS_API_KEY", "metrics-secret")
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer metrics-secret")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
