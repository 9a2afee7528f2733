package rail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
	"github.com/openramp-hq/openramp-solver/pkg/models"
)

// schemes maps a route to the provider API's transfer scheme identifier
var schemes = map[models.Route]string{
	models.RouteSEPAInstant: "sepa_instant",
	models.RouteFPS:         "fps",
	models.RouteRTP:         "rtp",
	models.RoutePIX:         "pix",
	models.RouteUPI:         "upi",
}

// ProviderClient is a Rail backed by a banking provider's REST API. One
// instance serves one route; routes on the same provider share credentials
// but keep separate instances so the registry stays a plain map.
type ProviderClient struct {
	route       models.Route
	baseURL     string
	login       string
	secret      string
	accountSlug string
	httpClient  *http.Client
	logger      logger.Logger
}

type transferPayload struct {
	AccountSlug     string `json:"account_slug,omitempty"`
	CreditIBAN      string `json:"credit_iban"`
	BeneficiaryName string `json:"beneficiary_name"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	Reference       string `json:"reference,omitempty"`
	Scheme          string `json:"scheme"`
}

type transferRequestEnvelope struct {
	Transfer transferPayload `json:"transfer"`
}

type transferEnvelope struct {
	Transfer transferRecord `json:"transfer"`
}

type transferRecord struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents"`
}

// NewProviderClient builds a rail client for one route from its credentials
func NewProviderClient(route models.Route, cfg config.RailConfig, log logger.Logger) *ProviderClient {
	return &ProviderClient{
		route:       route,
		baseURL:     strings.TrimRight(cfg.APIURL, "/"),
		login:       cfg.APILogin,
		secret:      cfg.APISecret,
		accountSlug: cfg.AccountSlug,
		httpClient:  createHTTPClient(),
		logger:      log,
	}
}

// Route returns the payment route this client serves
func (c *ProviderClient) Route() models.Route {
	return c.route
}

// ExecuteTransfer submits an instant transfer and returns the provider's acknowledgement
func (c *ProviderClient) ExecuteTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.Route != c.route {
		return nil, fmt.Errorf("rail serves route %s, got %s", c.route, req.Route)
	}
	if req.Currency != c.route.Currency() {
		return nil, fmt.Errorf("route %s settles %s, got %s", c.route, c.route.Currency(), req.Currency)
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("invalid transfer amount: %d", req.AmountCents)
	}
	if req.Beneficiary.RoutingInfo == "" {
		return nil, fmt.Errorf("beneficiary routing info is required")
	}

	payload := transferPayload{
		AccountSlug:     c.accountSlug,
		CreditIBAN:      req.Beneficiary.RoutingInfo,
		BeneficiaryName: req.Beneficiary.Name,
		AmountCents:     req.AmountCents,
		Currency:        req.Currency.String(),
		Reference:       req.Reference,
		Scheme:          schemes[c.route],
	}
	requestBody, err := json.Marshal(transferRequestEnvelope{Transfer: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transfers", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer request: %v", err)
	}
	c.setHeaders(httpReq)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("X-Idempotency-Key", req.IdempotencyKey)
	}

	record, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	status := normalizeStatus(record.Status)
	if status == StatusDeclined {
		return nil, fmt.Errorf("transfer %s: %w", record.ID, ErrTransferDeclined)
	}

	sent := record.AmountCents
	if sent == 0 {
		sent = req.AmountCents
	}

	c.logger.InfoWithRoute(int(c.route), "Transfer %s accepted (%d %s cents, status: %s)",
		record.ID, sent, req.Currency, status)

	return &TransferResult{
		TransferID:      record.ID,
		AmountSentCents: sent,
		Status:          status,
	}, nil
}

// GetTransferStatus reads the current state of a previously executed transfer
func (c *ProviderClient) GetTransferStatus(ctx context.Context, transferID string) (TransferStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transfers/"+transferID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build status request: %v", err)
	}
	c.setHeaders(httpReq)

	record, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	return normalizeStatus(record.Status), nil
}

func (c *ProviderClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.login+":"+c.secret)
}

// do sends the request and decodes the transfer envelope, reading the body
// regardless of status code so error responses surface their content
func (c *ProviderClient) do(req *http.Request) (*transferRecord, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Error("Failed to close response body: %v", err)
		}
	}(resp.Body)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("provider rejected request (%d): %s: %w", resp.StatusCode, string(bodyBytes), ErrTransferDeclined)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var envelope transferEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode transfer response: %v, body: %s", err, string(bodyBytes))
	}
	if envelope.Transfer.ID == "" {
		// Some endpoints return the record without the wrapper
		var record transferRecord
		if err := json.Unmarshal(bodyBytes, &record); err != nil || record.ID == "" {
			return nil, fmt.Errorf("transfer response missing id, body: %s", string(bodyBytes))
		}
		return &record, nil
	}
	return &envelope.Transfer, nil
}

// normalizeStatus folds provider status vocabularies into TransferStatus
func normalizeStatus(s string) TransferStatus {
	switch strings.ToLower(s) {
	case "settled", "completed", "executed", "processed":
		return StatusCompleted
	case "processing", "in_progress":
		return StatusProcessing
	case "declined", "canceled", "cancelled", "failed", "reversed":
		return StatusDeclined
	default:
		return StatusPending
	}
}

// createHTTPClient builds an HTTP client with sane connection pooling
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
