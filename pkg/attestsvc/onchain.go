package attestsvc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/openramp-hq/openramp-solver/pkg/contracts"
)

// OnChain exposes the read-only contract views the witness service consults:
// intent tuples, the consumed nullifier registry and the witness
// authorization list. It satisfies attestation.NullifierReader.
type OnChain struct {
	client *ethclient.Client
	caller *contracts.OffRampCaller
}

// DialOnChain connects to the RPC endpoint and binds the off-ramp views
func DialOnChain(ctx context.Context, rpcURL string, offRampAddress common.Address) (*OnChain, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %v", err)
	}

	caller, err := contracts.NewOffRampCaller(offRampAddress, client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to bind off-ramp contract: %v", err)
	}

	return &OnChain{client: client, caller: caller}, nil
}

// GetIntent reads the full intent tuple
func (o *OnChain) GetIntent(ctx context.Context, intentID [32]byte) (contracts.OffRampIntent, error) {
	return o.caller.GetIntent(&bind.CallOpts{Context: ctx}, intentID)
}

// UsedNullifier reports whether a claim has already consumed the nullifier
func (o *OnChain) UsedNullifier(ctx context.Context, nullifier [32]byte) (bool, error) {
	return o.caller.UsedNullifiers(&bind.CallOpts{Context: ctx}, nullifier)
}

// WitnessAuthorized reports whether the contract accepts signatures from the
// given witness address
func (o *OnChain) WitnessAuthorized(ctx context.Context, witness common.Address) (bool, error) {
	return o.caller.AuthorizedWitnesses(&bind.CallOpts{Context: ctx}, witness)
}

// Close releases the RPC connection
func (o *OnChain) Close() {
	o.client.Close()
}
