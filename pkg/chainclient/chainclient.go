// Package chainclient wraps the RPC connection to the settlement chain and the
// off-ramp contract binding. All reads and writes the solver performs against
// the chain go through this package.
package chainclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"

	"github.com/openramp-hq/openramp-solver/pkg/config"
	"github.com/openramp-hq/openramp-solver/pkg/contracts"
	"github.com/openramp-hq/openramp-solver/pkg/logger"
)

// ErrReverted indicates a transaction was mined but its receipt carries a
// failed status. The revert reason is not available from the receipt; callers
// that need it must re-read contract state.
var ErrReverted = errors.New("transaction reverted")

// Client contains the RPC connection and contract bindings for the settlement chain
type Client struct {
	chainID        int64
	rpcURL         string
	wsURL          string
	offRampAddress common.Address

	eth       *ethclient.Client
	wsEth     *ethclient.Client
	offRamp   *contracts.OffRamp
	wsWatcher *contracts.OffRampFilterer
	usdc      *contracts.ERC20Caller

	auth    *bind.TransactOpts
	address common.Address

	gasMultiplier  float64
	maxGasPrice    *big.Int
	confirmTimeout time.Duration

	nonces *NonceManager
	logger logger.Logger

	// guards auth, which carries mutable gas price and nonce fields
	mu sync.Mutex
}

// New connects to the chain and binds the off-ramp and USDC contracts
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Client, error) {
	c := &Client{
		chainID:        cfg.ChainID,
		rpcURL:         cfg.RPCURL,
		wsURL:          cfg.WSURL,
		offRampAddress: common.HexToAddress(cfg.OffRampAddress),
		gasMultiplier:  cfg.GasMultiplier,
		maxGasPrice:    cfg.MaxGasPrice,
		confirmTimeout: cfg.TxConfirmTimeout,
		nonces:         NewNonceManager(),
		logger:         log,
	}
	if err := c.connect(ctx, cfg.PrivateKey, cfg.USDCAddress); err != nil {
		return nil, fmt.Errorf("failed to connect to chain %d: %v", cfg.ChainID, err)
	}
	return c, nil
}

// connect establishes connections to blockchain RPC and initializes contract instances
func (c *Client) connect(ctx context.Context, privateKey, usdcAddress string) error {
	client, err := ethclient.Dial(c.rpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to client: %v", err)
	}
	c.eth = client

	auth, err := createAuthenticator(ctx, client, privateKey)
	if err != nil {
		return fmt.Errorf("failed to create authenticator: %v", err)
	}
	c.auth = auth
	c.address = auth.From

	offRamp, err := contracts.NewOffRamp(c.offRampAddress, client)
	if err != nil {
		return fmt.Errorf("failed to initialize contract: %v", err)
	}
	c.offRamp = offRamp

	if usdcAddress != "" {
		usdc, err := contracts.NewERC20Caller(common.HexToAddress(usdcAddress), client)
		if err != nil {
			return fmt.Errorf("failed to initialize USDC binding: %v", err)
		}
		c.usdc = usdc
	}

	// The websocket endpoint is optional. Without it event watching is
	// unavailable and callers fall back to polling.
	if c.wsURL != "" {
		wsClient, err := ethclient.Dial(c.wsURL)
		if err != nil {
			return fmt.Errorf("failed to connect to websocket endpoint: %v", err)
		}
		c.wsEth = wsClient

		watcher, err := contracts.NewOffRampFilterer(c.offRampAddress, wsClient)
		if err != nil {
			return fmt.Errorf("failed to initialize event watcher: %v", err)
		}
		c.wsWatcher = watcher
	}

	return nil
}

// Address returns the solver's transaction signing address
func (c *Client) Address() common.Address {
	return c.address
}

// ChainID returns the configured chain ID
func (c *Client) ChainID() int64 {
	return c.chainID
}

// SupportsWatch reports whether a websocket endpoint is available for event subscriptions
func (c *Client) SupportsWatch() bool {
	return c.wsWatcher != nil
}

// LatestBlock gets the latest block number from the chain
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	if c.eth == nil {
		return 0, fmt.Errorf("client not connected")
	}
	return c.eth.BlockNumber(ctx)
}

// UpdateGasPrice updates the gas price based on current network conditions
func (c *Client) UpdateGasPrice(ctx context.Context) (*big.Int, error) {
	if c.eth == nil {
		return nil, fmt.Errorf("client not connected")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	gasPrice, err := c.eth.SuggestGasPrice(timeoutCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %v", err)
	}

	// Apply gas multiplier (e.g. 1.1 = 10% buffer)
	multipliedGasPrice := new(big.Float).Mul(
		new(big.Float).SetInt(gasPrice),
		big.NewFloat(c.gasMultiplier),
	)

	finalGasPrice := new(big.Int)
	multipliedGasPrice.Int(finalGasPrice)

	// Never exceed the configured ceiling
	if c.maxGasPrice != nil && c.maxGasPrice.Sign() > 0 && finalGasPrice.Cmp(c.maxGasPrice) > 0 {
		finalGasPrice = new(big.Int).Set(c.maxGasPrice)
	}

	c.mu.Lock()
	c.auth.GasPrice = finalGasPrice
	c.mu.Unlock()

	return finalGasPrice, nil
}

// GetIntent reads the on-chain intent record
func (c *Client) GetIntent(ctx context.Context, intentID common.Hash) (contracts.OffRampIntent, error) {
	opts := &bind.CallOpts{Context: ctx}
	return c.offRamp.GetIntent(opts, intentID)
}

// UsedNullifier reports whether a payment nullifier has already been consumed on chain
func (c *Client) UsedNullifier(ctx context.Context, nullifier [32]byte) (bool, error) {
	opts := &bind.CallOpts{Context: ctx}
	return c.offRamp.UsedNullifiers(opts, nullifier)
}

// IsWitnessAuthorized reports whether the contract accepts attestations signed by witness
func (c *Client) IsWitnessAuthorized(ctx context.Context, witness common.Address) (bool, error) {
	opts := &bind.CallOpts{Context: ctx}
	return c.offRamp.AuthorizedWitnesses(opts, witness)
}

// FulfillmentWindow returns the contract's fulfillment deadline in seconds
func (c *Client) FulfillmentWindow(ctx context.Context) (uint64, error) {
	opts := &bind.CallOpts{Context: ctx}
	return c.offRamp.FulfillmentWindow(opts)
}

// QuoteWindow returns the contract's quoting deadline in seconds
func (c *Client) QuoteWindow(ctx context.Context) (uint64, error) {
	opts := &bind.CallOpts{Context: ctx}
	return c.offRamp.QuoteWindow(opts)
}

// USDCBalance returns the solver's USDC balance in base units
func (c *Client) USDCBalance(ctx context.Context) (*big.Int, error) {
	if c.usdc == nil {
		return nil, fmt.Errorf("USDC binding not configured")
	}
	opts := &bind.CallOpts{Context: ctx}
	return c.usdc.BalanceOf(opts, c.address)
}

// SubmitQuote submits a quote for an open intent and waits for it to be mined
func (c *Client) SubmitQuote(ctx context.Context, intentID common.Hash, route uint8, fiatAmount, solverFee *big.Int, estimatedTime uint64) (common.Hash, error) {
	return c.transact(ctx, "submitQuote", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.offRamp.SubmitQuote(opts, intentID, route, fiatAmount, solverFee, estimatedTime)
	})
}

// SubmitClaim submits a signed payment attestation to settle a committed intent
func (c *Client) SubmitClaim(ctx context.Context, intentID common.Hash, attestation contracts.OffRampPaymentAttestation, signature []byte) (common.Hash, error) {
	return c.transact(ctx, "claim", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.offRamp.Claim(opts, intentID, attestation, signature)
	})
}

// transact runs a contract write with a fresh gas price and a reserved nonce,
// then waits for the receipt. A mined-but-failed receipt returns ErrReverted.
func (c *Client) transact(ctx context.Context, method string, send func(*bind.TransactOpts) (*types.Transaction, error)) (common.Hash, error) {
	if _, err := c.UpdateGasPrice(ctx); err != nil {
		c.logger.Info("Warning: failed to update gas price, using previous value: %v", err)
	}

	nonce, err := c.nonces.Reserve(ctx, c.eth, c.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce for %s: %v", method, err)
	}

	c.mu.Lock()
	txOpts := *c.auth
	c.mu.Unlock()
	txOpts.Nonce = big.NewInt(int64(nonce))
	txOpts.Context = ctx

	tx, err := send(&txOpts)
	if err != nil {
		c.nonces.Release(nonce)
		return common.Hash{}, fmt.Errorf("failed to send %s: %w", method, err)
	}
	c.nonces.Track(tx.Hash(), nonce)

	c.logger.Debug("%s transaction sent: %s (nonce: %d)", method, tx.Hash().Hex(), nonce)

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.eth, tx)
	if err != nil {
		c.nonces.Failed(nonce)
		return tx.Hash(), fmt.Errorf("failed to wait for %s transaction %s: %w", method, tx.Hash().Hex(), err)
	}

	if receipt.Status == 0 {
		c.nonces.Confirmed(nonce)
		return tx.Hash(), fmt.Errorf("%s transaction %s: %w", method, tx.Hash().Hex(), ErrReverted)
	}

	c.nonces.Confirmed(nonce)
	c.logger.Debug("%s transaction mined: %s (gas used: %d)", method, tx.Hash().Hex(), receipt.GasUsed)
	return tx.Hash(), nil
}

// IntentCreatedEvents returns the IntentCreated events emitted in the block range
func (c *Client) IntentCreatedEvents(ctx context.Context, fromBlock, toBlock uint64) ([]*contracts.OffRampIntentCreated, error) {
	opts := &bind.FilterOpts{Start: fromBlock, End: &toBlock, Context: ctx}
	it, err := c.offRamp.FilterIntentCreated(opts, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to filter IntentCreated logs: %v", err)
	}
	defer it.Close()

	var events []*contracts.OffRampIntentCreated
	for it.Next() {
		events = append(events, it.Event)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("failed to read IntentCreated logs: %v", err)
	}
	return events, nil
}

// QuoteSelectedEvents returns all QuoteSelected events in the block range.
// Selections won by other solvers matter too: they tell the scan an intent
// left local scope.
func (c *Client) QuoteSelectedEvents(ctx context.Context, fromBlock, toBlock uint64) ([]*contracts.OffRampQuoteSelected, error) {
	opts := &bind.FilterOpts{Start: fromBlock, End: &toBlock, Context: ctx}
	it, err := c.offRamp.FilterQuoteSelected(opts, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to filter QuoteSelected logs: %v", err)
	}
	defer it.Close()

	var events []*contracts.OffRampQuoteSelected
	for it.Next() {
		events = append(events, it.Event)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("failed to read QuoteSelected logs: %v", err)
	}
	return events, nil
}

// WatchIntentCreated subscribes to new IntentCreated events over the websocket endpoint
func (c *Client) WatchIntentCreated(ctx context.Context, sink chan<- *contracts.OffRampIntentCreated) (event.Subscription, error) {
	if c.wsWatcher == nil {
		return nil, fmt.Errorf("websocket endpoint not configured")
	}
	opts := &bind.WatchOpts{Context: ctx}
	return c.wsWatcher.WatchIntentCreated(opts, sink, nil, nil)
}

// WatchQuoteSelected subscribes to QuoteSelected events for the given solver
func (c *Client) WatchQuoteSelected(ctx context.Context, sink chan<- *contracts.OffRampQuoteSelected, solver common.Address) (event.Subscription, error) {
	if c.wsWatcher == nil {
		return nil, fmt.Errorf("websocket endpoint not configured")
	}
	opts := &bind.WatchOpts{Context: ctx}
	return c.wsWatcher.WatchQuoteSelected(opts, sink, nil, []common.Address{solver})
}

// Close releases the underlying RPC connections
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
	if c.wsEth != nil {
		c.wsEth.Close()
	}
}

// createAuthenticator builds the keyed transactor for the solver account
func createAuthenticator(ctx context.Context, client *ethclient.Client, privateKeyHex string) (*bind.TransactOpts, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %v", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %v", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %v", err)
	}

	return auth, nil
}
