package attestsvc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/openramp-hq/openramp-solver/pkg/attestation"
	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
)

// Client calls the attestation service on behalf of the solver pipeline.
// Rejections come back as *attestation.Error with the service's code, so the
// caller classifies them exactly as if the engine ran in-process.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates an attestation service client from the solver configuration
func NewClient(cfg config.AttesterConfig, log logger.Logger) *Client {
	return &Client{
		endpoint:   strings.TrimRight(cfg.ServiceURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: createHTTPClient(cfg.Timeout),
		logger:     log,
	}
}

// Attest submits a presentation for verification and returns the witness
// signature over the payment attestation
func (c *Client) Attest(ctx context.Context, presentation []byte, params attestation.Params) (*attestation.SignedAttestation, error) {
	body, err := json.Marshal(attestRequest{
		Presentation:        base64.StdEncoding.EncodeToString(presentation),
		IntentHash:          params.IntentHash.Hex(),
		ExpectedAmountCents: params.ExpectedAmountCents,
		ExpectedBeneficiary: params.ExpectedBeneficiary,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode attest request: %v", err)
	}

	url := fmt.Sprintf("%s/api/v1/attest", c.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create attest request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attestation service unreachable: %v", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	// Read the response body regardless of status code
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read attestation response: %v", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return decodeSigned(respBody, params.IntentHash)
	case http.StatusUnprocessableEntity:
		var er errorResponse
		if err := json.Unmarshal(respBody, &er); err != nil || er.Code == "" {
			return nil, fmt.Errorf("attestation rejected with unreadable body: %s", string(respBody))
		}
		return nil, &attestation.Error{Code: attestation.Code(er.Code), Msg: er.Message}
	default:
		return nil, fmt.Errorf("attestation service returned status %d: %s", resp.StatusCode, string(respBody))
	}
}

// Health checks the service and returns its witness address
func (c *Client) Health(ctx context.Context) (common.Address, error) {
	url := fmt.Sprintf("%s/api/v1/health", c.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to create health request: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return common.Address{}, fmt.Errorf("attestation service unreachable: %v", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to read health response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return common.Address{}, fmt.Errorf("attestation service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var health struct {
		Witness string `json:"witness_address"`
	}
	if err := json.Unmarshal(respBody, &health); err != nil {
		return common.Address{}, fmt.Errorf("failed to parse health response: %v", err)
	}
	if !common.IsHexAddress(health.Witness) {
		return common.Address{}, fmt.Errorf("health response carries no witness address")
	}
	return common.HexToAddress(health.Witness), nil
}

// decodeSigned rebuilds the signed attestation from the service response
func decodeSigned(body []byte, intentHash common.Hash) (*attestation.SignedAttestation, error) {
	var resp attestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse attestation response: %v", err)
	}

	signature, err := hexutil.Decode(resp.Signature)
	if err != nil {
		return nil, fmt.Errorf("attestation response carries a malformed signature: %v", err)
	}
	if len(signature) != 65 {
		return nil, fmt.Errorf("attestation signature must be 65 bytes, got %d", len(signature))
	}
	if resp.Payment.TransactionID == "" {
		return nil, fmt.Errorf("attestation response is missing the payment id")
	}

	return &attestation.SignedAttestation{
		Attestation: attestation.Attestation{
			IntentHash: intentHash,
			Amount:     big.NewInt(resp.Payment.AmountCents),
			Timestamp:  big.NewInt(resp.Payment.Timestamp),
			PaymentID:  resp.Payment.TransactionID,
			DataHash:   common.HexToHash(resp.DataHash),
		},
		Digest:    common.HexToHash(resp.Digest),
		Signature: signature,
		Payment: attestation.PaymentRecord{
			TransactionID: resp.Payment.TransactionID,
			AmountCents:   resp.Payment.AmountCents,
			Beneficiary:   resp.Payment.Beneficiary,
			Reference:     resp.Payment.Reference,
		},
		ServerName: resp.Payment.Server,
	}, nil
}

// createHTTPClient creates an HTTP client with connection pooling
func createHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
