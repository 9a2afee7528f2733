package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Length bounds enforced by the off-ramp contract on commit data.
const (
	MaxReceivingInfoLen = 256
	MaxRecipientNameLen = 128
)

// Intent is the local mirror of one on-chain off-ramp intent plus the
// solver's own bookkeeping fields. Rows are never deleted.
type Intent struct {
	ID          common.Hash    `json:"id"`
	Depositor   common.Address `json:"depositor"`
	UsdcAmount  *big.Int       `json:"usdc_amount"`
	Currency    Currency       `json:"currency"`
	Status      IntentStatus   `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	CommittedAt *time.Time     `json:"committed_at,omitempty"`

	// Populated by the commit observation. SelectedFiatAmount is in cents.
	SelectedSolver     common.Address `json:"selected_solver"`
	SelectedRoute      Route          `json:"selected_route"`
	SelectedFiatAmount int64          `json:"selected_fiat_amount"`
	ReceivingInfo      string         `json:"receiving_info"`
	RecipientName      string         `json:"recipient_name"`

	// Local-only pipeline state. ProviderTransferID is the resume point:
	// once set, fiat has left solver custody and failures must retry.
	QuotesSubmitted    bool       `json:"quotes_submitted"`
	FulfillmentTxRef   string     `json:"fulfillment_tx_ref,omitempty"`
	ProviderTransferID string     `json:"provider_transfer_id,omitempty"`
	LastError          string     `json:"last_error,omitempty"`
	RetryCount         int        `json:"retry_count"`
	NextRetryAt        *time.Time `json:"next_retry_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// FiatMoved reports whether a provider transfer was already executed for
// this intent.
func (i *Intent) FiatMoved() bool {
	return i.ProviderTransferID != ""
}

// Quote is one solver offer against an intent for a single payment route.
// FiatAmount is in cents, SolverFee in USDC base units and EstimatedTime in
// seconds.
type Quote struct {
	IntentID      common.Hash `json:"intent_id"`
	Route         Route       `json:"route"`
	FiatAmount    int64       `json:"fiat_amount"`
	SolverFee     *big.Int    `json:"solver_fee"`
	EstimatedTime uint64      `json:"estimated_time"`
	ExpiresAt     time.Time   `json:"expires_at"`
	Submitted     bool        `json:"submitted"`
	TxHash        string      `json:"tx_hash,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Beneficiary identifies the fiat recipient of a rail transfer.
type Beneficiary struct {
	Name        string `json:"name"`
	RoutingInfo string `json:"routing_info"` // IBAN or equivalent
}
