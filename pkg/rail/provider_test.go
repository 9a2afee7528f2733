package rail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
	"github.com/openramp-hq/openramp-solver/pkg/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*ProviderClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewProviderClient(models.RouteSEPAInstant, config.RailConfig{
		APIURL:      server.URL,
		APILogin:    "login",
		APISecret:   "secret",
		AccountSlug: "main-account",
	}, &logger.EmptyLogger{})
	return client, server
}

func testTransferRequest() TransferRequest {
	return TransferRequest{
		Route:       models.RouteSEPAInstant,
		AmountCents: 9200,
		Currency:    models.CurrencyEUR,
		Beneficiary: models.Beneficiary{
			Name:        "Jordan Petit",
			RoutingInfo: "FR7630006000011234567890189",
		},
		Reference:      "intent-0xabc",
		IdempotencyKey: "11111111-2222-4333-8444-555555555555",
	}
}

func TestExecuteTransfer(t *testing.T) {
	var gotReq transferRequestEnvelope
	var gotIdempotency, gotAuth string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/transfers", r.URL.Path)
		gotIdempotency = r.Header.Get("X-Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"transfer":{"id":"tr-123","status":"processing","amount_cents":9200}}`)
	}))

	result, err := client.ExecuteTransfer(context.Background(), testTransferRequest())
	require.NoError(t, err)

	assert.Equal(t, "tr-123", result.TransferID)
	assert.Equal(t, int64(9200), result.AmountSentCents)
	assert.Equal(t, StatusProcessing, result.Status)

	assert.Equal(t, "11111111-2222-4333-8444-555555555555", gotIdempotency)
	assert.Equal(t, "login:secret", gotAuth)
	assert.Equal(t, "FR7630006000011234567890189", gotReq.Transfer.CreditIBAN)
	assert.Equal(t, "Jordan Petit", gotReq.Transfer.BeneficiaryName)
	assert.Equal(t, int64(9200), gotReq.Transfer.AmountCents)
	assert.Equal(t, "EUR", gotReq.Transfer.Currency)
	assert.Equal(t, "sepa_instant", gotReq.Transfer.Scheme)
	assert.Equal(t, "main-account", gotReq.Transfer.AccountSlug)
}

func TestExecuteTransferDeclined(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"transfer":{"id":"tr-9","status":"declined"}}`)
	}))

	_, err := client.ExecuteTransfer(context.Background(), testTransferRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransferDeclined))
}

func TestExecuteTransferRejectedByProvider(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"errors":[{"code":"insufficient_funds"}]}`)
	}))

	_, err := client.ExecuteTransfer(context.Background(), testTransferRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransferDeclined))
	assert.Contains(t, err.Error(), "insufficient_funds")
}

func TestExecuteTransferValidation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request should not reach the provider")
	}))

	t.Run("wrong route", func(t *testing.T) {
		req := testTransferRequest()
		req.Route = models.RoutePIX
		_, err := client.ExecuteTransfer(context.Background(), req)
		assert.Error(t, err)
	})

	t.Run("wrong currency", func(t *testing.T) {
		req := testTransferRequest()
		req.Currency = models.CurrencyGBP
		_, err := client.ExecuteTransfer(context.Background(), req)
		assert.Error(t, err)
	})

	t.Run("missing routing info", func(t *testing.T) {
		req := testTransferRequest()
		req.Beneficiary.RoutingInfo = ""
		_, err := client.ExecuteTransfer(context.Background(), req)
		assert.Error(t, err)
	})
}

func TestGetTransferStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/transfers/tr-123", r.URL.Path)
		fmt.Fprint(w, `{"transfer":{"id":"tr-123","status":"settled","amount_cents":9200}}`)
	}))

	status, err := client.GetTransferStatus(context.Background(), "tr-123")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, StatusCompleted, normalizeStatus("settled"))
	assert.Equal(t, StatusCompleted, normalizeStatus("Completed"))
	assert.Equal(t, StatusProcessing, normalizeStatus("processing"))
	assert.Equal(t, StatusDeclined, normalizeStatus("canceled"))
	assert.Equal(t, StatusDeclined, normalizeStatus("reversed"))
	assert.Equal(t, StatusPending, normalizeStatus("created"))
	assert.Equal(t, StatusPending, normalizeStatus(""))
}

type flippingRail struct {
	route     models.Route
	remaining int32
}

func (f *flippingRail) Route() models.Route { return f.route }

func (f *flippingRail) ExecuteTransfer(_ context.Context, _ TransferRequest) (*TransferResult, error) {
	return &TransferResult{TransferID: "tr-1", Status: StatusPending}, nil
}

func (f *flippingRail) GetTransferStatus(_ context.Context, _ string) (TransferStatus, error) {
	if atomic.AddInt32(&f.remaining, -1) > 0 {
		return StatusProcessing, nil
	}
	return StatusCompleted, nil
}

func TestWaitCompleted(t *testing.T) {
	r := &flippingRail{route: models.RouteSEPAInstant, remaining: 3}

	status, err := WaitCompleted(context.Background(), r, "tr-1", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
}

func TestWaitCompletedTimeout(t *testing.T) {
	r := &flippingRail{route: models.RouteSEPAInstant, remaining: 1 << 30}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := WaitCompleted(ctx, r, "tr-1", time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRegistry(t *testing.T) {
	sepa := &flippingRail{route: models.RouteSEPAInstant}
	pix := &flippingRail{route: models.RoutePIX}
	registry := NewRegistry(sepa, pix)

	got, err := registry.Lookup(models.RouteSEPAInstant)
	require.NoError(t, err)
	assert.Same(t, Rail(sepa), got)

	_, err = registry.Lookup(models.RouteUPI)
	assert.Error(t, err)

	assert.ElementsMatch(t, []models.Route{models.RouteSEPAInstant, models.RoutePIX}, registry.Routes())
}
