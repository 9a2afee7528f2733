package attestation

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	// DomainName is the EIP-712 domain name shared with the on-chain verifier
	DomainName = "OpenRampPaymentVerifier"
	// DomainVersion is the EIP-712 domain version shared with the on-chain verifier
	DomainVersion = "1"
	// PrimaryType is the typed struct signed by the witness
	PrimaryType = "PaymentAttestation"
)

// Domain carries the chain-specific half of the EIP-712 domain separator. The
// on-chain verifier re-derives the same digest from the same parameters, so
// these must match the deployed contract exactly.
type Domain struct {
	ChainID           int64
	VerifyingContract common.Address
}

// Attestation is the typed payload the witness signs. Amount is in fiat
// cents, Timestamp is the verified session time in unix seconds, PaymentID is
// the rail provider's transfer identifier and doubles as the nullifier seed,
// DataHash commits to the full disclosed transcript.
type Attestation struct {
	IntentHash common.Hash
	Amount     *big.Int
	Timestamp  *big.Int
	PaymentID  string
	DataHash   common.Hash
}

func typedData(domain Domain, att Attestation) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"PaymentAttestation": []apitypes.Type{
				{Name: "intentHash", Type: "bytes32"},
				{Name: "amount", Type: "uint256"},
				{Name: "timestamp", Type: "uint256"},
				{Name: "paymentId", Type: "string"},
				{Name: "dataHash", Type: "bytes32"},
			},
		},
		PrimaryType: PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              DomainName,
			Version:           DomainVersion,
			ChainId:           math.NewHexOrDecimal256(domain.ChainID),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"intentHash": att.IntentHash.Hex(),
			"amount":     (*math.HexOrDecimal256)(att.Amount),
			"timestamp":  (*math.HexOrDecimal256)(att.Timestamp),
			"paymentId":  att.PaymentID,
			"dataHash":   att.DataHash.Hex(),
		},
	}
}

// Digest computes the domain-separated EIP-712 digest for an attestation
func Digest(domain Domain, att Attestation) (common.Hash, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData(domain, att))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash typed data: %v", err)
	}
	return common.BytesToHash(hash), nil
}

// Signer signs attestation digests with the witness private key. The key
// stays in process memory and is never exposed through any accessor.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	domain  Domain
}

// NewSigner parses the witness private key and binds it to a signing domain
func NewSigner(privateKeyHex string, domain Domain) (*Signer, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("witness private key is required")
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse witness private key: %v", err)
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		domain:  domain,
	}, nil
}

// Address returns the witness address derived from the signing key
func (s *Signer) Address() common.Address {
	return s.address
}

// Domain returns the signing domain
func (s *Signer) Domain() Domain {
	return s.domain
}

// Sign computes the attestation digest and signs it. The returned signature
// is 65 bytes r||s||v with v in {27, 28}, the form Solidity's ecrecover
// expects.
func (s *Signer) Sign(att Attestation) ([]byte, common.Hash, error) {
	digest, err := Digest(s.domain, att)
	if err != nil {
		return nil, common.Hash{}, err
	}

	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to sign digest: %v", err)
	}
	sig[64] += 27

	return sig, digest, nil
}
