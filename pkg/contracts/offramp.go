package contracts

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// OffRampIntent is an auto generated low-level Go binding around an user-defined struct.
type OffRampIntent struct {
	Depositor          common.Address
	UsdcAmount         *big.Int
	Currency           uint8
	Status             uint8
	CreatedAt          uint64
	CommittedAt        uint64
	SelectedSolver     common.Address
	SelectedRoute      uint8
	SelectedFiatAmount *big.Int
	ReceivingInfo      string
	RecipientName      string
	TransferRef        [32]byte
}

// OffRampQuote is an auto generated low-level Go binding around an user-defined struct.
type OffRampQuote struct {
	FiatAmount    *big.Int
	SolverFee     *big.Int
	EstimatedTime uint64
	CreatedAt     uint64
}

// OffRampPaymentAttestation is an auto generated low-level Go binding around an user-defined struct.
type OffRampPaymentAttestation struct {
	IntentHash [32]byte
	Amount     *big.Int
	Timestamp  *big.Int
	PaymentId  string
	DataHash   [32]byte
}

// OffRampABI is the ABI of the OffRamp contract
const OffRampABI = `[
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "bytes32",
				"name": "intentId",
				"type": "bytes32"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "depositor",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "amount",
				"type": "uint256"
			},
			{
				"indexed": false,
				"internalType": "uint8",
				"name": "currency",
				"type": "uint8"
			}
		],
		"name": "IntentCreated",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "bytes32",
				"name": "intentId",
				"type": "bytes32"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "solver",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint8",
				"name": "route",
				"type": "uint8"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "fiatAmount",
				"type": "uint256"
			}
		],
		"name": "QuoteSelected",
		"type": "event"
	},
	{
		"inputs": [
			{
				"internalType": "address",
				"name": "witness",
				"type": "address"
			}
		],
		"name": "authorizedWitnesses",
		"outputs": [
			{
				"internalType": "bool",
				"name": "",
				"type": "bool"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "bytes32",
				"name": "intentId",
				"type": "bytes32"
			},
			{
				"components": [
					{
						"internalType": "bytes32",
						"name": "intentHash",
						"type": "bytes32"
					},
					{
						"internalType": "uint256",
						"name": "amount",
						"type": "uint256"
					},
					{
						"internalType": "uint256",
						"name": "timestamp",
						"type": "uint256"
					},
					{
						"internalType": "string",
						"name": "paymentId",
						"type": "string"
					},
					{
						"internalType": "bytes32",
						"name": "dataHash",
						"type": "bytes32"
					}
				],
				"internalType": "struct OffRamp.PaymentAttestation",
				"name": "attestation",
				"type": "tuple"
			},
			{
				"internalType": "bytes",
				"name": "signature",
				"type": "bytes"
			}
		],
		"name": "claim",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "fulfillmentWindow",
		"outputs": [
			{
				"internalType": "uint64",
				"name": "",
				"type": "uint64"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "bytes32",
				"name": "intentId",
				"type": "bytes32"
			}
		],
		"name": "getIntent",
		"outputs": [
			{
				"components": [
					{
						"internalType": "address",
						"name": "depositor",
						"type": "address"
					},
					{
						"internalType": "uint256",
						"name": "usdcAmount",
						"type": "uint256"
					},
					{
						"internalType": "uint8",
						"name": "currency",
						"type": "uint8"
					},
					{
						"internalType": "uint8",
						"name": "status",
						"type": "uint8"
					},
					{
						"internalType": "uint64",
						"name": "createdAt",
						"type": "uint64"
					},
					{
						"internalType": "uint64",
						"name": "committedAt",
						"type": "uint64"
					},
					{
						"internalType": "address",
						"name": "selectedSolver",
						"type": "address"
					},
					{
						"internalType": "uint8",
						"name": "selectedRoute",
						"type": "uint8"
					},
					{
						"internalType": "uint256",
						"name": "selectedFiatAmount",
						"type": "uint256"
					},
					{
						"internalType": "string",
						"name": "receivingInfo",
						"type": "string"
					},
					{
						"internalType": "string",
						"name": "recipientName",
						"type": "string"
					},
					{
						"internalType": "bytes32",
						"name": "transferRef",
						"type": "bytes32"
					}
				],
				"internalType": "struct OffRamp.Intent",
				"name": "",
				"type": "tuple"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "bytes32",
				"name": "intentId",
				"type": "bytes32"
			},
			{
				"internalType": "address",
				"name": "solver",
				"type": "address"
			},
			{
				"internalType": "uint8",
				"name": "route",
				"type": "uint8"
			}
		],
		"name": "getQuote",
		"outputs": [
			{
				"components": [
					{
						"internalType": "uint256",
						"name": "fiatAmount",
						"type": "uint256"
					},
					{
						"internalType": "uint256",
						"name": "solverFee",
						"type": "uint256"
					},
					{
						"internalType": "uint64",
						"name": "estimatedTime",
						"type": "uint64"
					},
					{
						"internalType": "uint64",
						"name": "createdAt",
						"type": "uint64"
					}
				],
				"internalType": "struct OffRamp.Quote",
				"name": "",
				"type": "tuple"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "quoteWindow",
		"outputs": [
			{
				"internalType": "uint64",
				"name": "",
				"type": "uint64"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "uint8",
				"name": "route",
				"type": "uint8"
			}
		],
		"name": "routeCurrency",
		"outputs": [
			{
				"internalType": "uint8",
				"name": "",
				"type": "uint8"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "selectionWindow",
		"outputs": [
			{
				"internalType": "uint64",
				"name": "",
				"type": "uint64"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "bytes32",
				"name": "intentId",
				"type": "bytes32"
			},
			{
				"internalType": "uint8",
				"name": "route",
				"type": "uint8"
			},
			{
				"internalType": "uint256",
				"name": "fiatAmount",
				"type": "uint256"
			},
			{
				"internalType": "uint256",
				"name": "solverFee",
				"type": "uint256"
			},
			{
				"internalType": "uint64",
				"name": "estimatedTime",
				"type": "uint64"
			}
		],
		"name": "submitQuote",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"internalType": "bytes32",
				"name": "nullifier",
				"type": "bytes32"
			}
		],
		"name": "usedNullifiers",
		"outputs": [
			{
				"internalType": "bool",
				"name": "",
				"type": "bool"
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// OffRamp is an auto generated Go binding around an Ethereum contract.
type OffRamp struct {
	OffRampCaller     // Read-only binding to the contract
	OffRampTransactor // Write-only binding to the contract
	OffRampFilterer   // Log filterer for contract events
}

// OffRampCaller is an auto generated read-only Go binding around an Ethereum contract.
type OffRampCaller struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// OffRampTransactor is an auto generated write-only Go binding around an Ethereum contract.
type OffRampTransactor struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// OffRampFilterer is an auto generated log filtering Go binding around an Ethereum contract events.
type OffRampFilterer struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// OffRampSession is an auto generated Go binding around an Ethereum contract,
// with pre-set call and transact options.
type OffRampSession struct {
	Contract     *OffRamp          // Generic contract binding to set the session for
	CallOpts     bind.CallOpts     // Call options to use throughout this session
	TransactOpts bind.TransactOpts // Transaction auth options to use throughout this session
}

// OffRampCallerSession is an auto generated read-only Go binding around an Ethereum contract,
// with pre-set call options.
type OffRampCallerSession struct {
	Contract *OffRampCaller // Generic contract caller binding to set the session for
	CallOpts bind.CallOpts  // Call options to use throughout this session
}

// OffRampTransactorSession is an auto generated write-only Go binding around an Ethereum contract,
// with pre-set transact options.
type OffRampTransactorSession struct {
	Contract     *OffRampTransactor // Generic contract transactor binding to set the session for
	TransactOpts bind.TransactOpts  // Transaction auth options to use throughout this session
}

// OffRampRaw is an auto generated low-level Go binding around an Ethereum contract.
type OffRampRaw struct {
	Contract *OffRamp // Generic contract binding to access the raw methods on
}

// OffRampCallerRaw is an auto generated low-level read-only Go binding around an Ethereum contract.
type OffRampCallerRaw struct {
	Contract *OffRampCaller // Generic read-only contract binding to access the raw methods on
}

// OffRampTransactorRaw is an auto generated low-level write-only Go binding around an Ethereum contract.
type OffRampTransactorRaw struct {
	Contract *OffRampTransactor // Generic write-only contract binding to access the raw methods on
}

// NewOffRamp creates a new instance of OffRamp, bound to a specific deployed contract.
func NewOffRamp(address common.Address, backend bind.ContractBackend) (*OffRamp, error) {
	contract, err := bindOffRamp(address, backend, backend, backend)
	if err != nil {
		return nil, err
	}
	return &OffRamp{OffRampCaller: OffRampCaller{contract: contract}, OffRampTransactor: OffRampTransactor{contract: contract}, OffRampFilterer: OffRampFilterer{contract: contract}}, nil
}

// NewOffRampCaller creates a new read-only instance of OffRamp, bound to a specific deployed contract.
func NewOffRampCaller(address common.Address, caller bind.ContractCaller) (*OffRampCaller, error) {
	contract, err := bindOffRamp(address, caller, nil, nil)
	if err != nil {
		return nil, err
	}
	return &OffRampCaller{contract: contract}, nil
}

// NewOffRampTransactor creates a new write-only instance of OffRamp, bound to a specific deployed contract.
func NewOffRampTransactor(address common.Address, transactor bind.ContractTransactor) (*OffRampTransactor, error) {
	contract, err := bindOffRamp(address, nil, transactor, nil)
	if err != nil {
		return nil, err
	}
	return &OffRampTransactor{contract: contract}, nil
}

// NewOffRampFilterer creates a new log filterer instance of OffRamp, bound to a specific deployed contract.
func NewOffRampFilterer(address common.Address, filterer bind.ContractFilterer) (*OffRampFilterer, error) {
	contract, err := bindOffRamp(address, nil, nil, filterer)
	if err != nil {
		return nil, err
	}
	return &OffRampFilterer{contract: contract}, nil
}

// bindOffRamp binds a generic wrapper to an already deployed contract.
func bindOffRamp(address common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor, filterer bind.ContractFilterer) (*bind.BoundContract, error) {
	parsed, err := abi.JSON(strings.NewReader(OffRampABI))
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(address, parsed, caller, transactor, filterer), nil
}

// Call invokes the (constant) contract method with params as input values and
// sets the output to result. The result type might be a single field for simple
// returns, a slice of interfaces for anonymous returns and a struct for named
// returns.
func (_OffRamp *OffRampRaw) Call(opts *bind.CallOpts, result *[]interface{}, method string, params ...interface{}) error {
	return _OffRamp.Contract.OffRampCaller.contract.Call(opts, result, method, params...)
}

// Transfer initiates a plain transaction to move funds to the contract, calling
// its default method if one is available.
func (_OffRamp *OffRampRaw) Transfer(opts *bind.TransactOpts) (*types.Transaction, error) {
	return _OffRamp.Contract.OffRampTransactor.contract.Transfer(opts)
}

// Transact invokes the (paid) contract method with params as input values.
func (_OffRamp *OffRampRaw) Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	return _OffRamp.Contract.OffRampTransactor.contract.Transact(opts, method, params...)
}

// Call invokes the (constant) contract method with params as input values and
// sets the output to result. The result type might be a single field for simple
// returns, a slice of interfaces for anonymous returns and a struct for named
// returns.
func (_OffRamp *OffRampCallerRaw) Call(opts *bind.CallOpts, result *[]interface{}, method string, params ...interface{}) error {
	return _OffRamp.Contract.contract.Call(opts, result, method, params...)
}

// Transfer initiates a plain transaction to move funds to the contract, calling
// its default method if one is available.
func (_OffRamp *OffRampTransactorRaw) Transfer(opts *bind.TransactOpts) (*types.Transaction, error) {
	return _OffRamp.Contract.contract.Transfer(opts)
}

// Transact invokes the (paid) contract method with params as input values.
func (_OffRamp *OffRampTransactorRaw) Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	return _OffRamp.Contract.contract.Transact(opts, method, params...)
}

// AuthorizedWitnesses is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function authorizedWitnesses(address witness) view returns(bool)
func (_OffRamp *OffRampCaller) AuthorizedWitnesses(opts *bind.CallOpts, witness common.Address) (bool, error) {
	var out []interface{}
	err := _OffRamp.contract.Call(opts, &out, "authorizedWitnesses", witness)

	if err != nil {
		return *new(bool), err
	}

	out0 := *abi.ConvertType(out[0], new(bool)).(*bool)

	return out0, err
}

// AuthorizedWitnesses is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function authorizedWitnesses(address witness) view returns(bool)
func (_OffRamp *OffRampSession) AuthorizedWitnesses(witness common.Address) (bool, error) {
	return _OffRamp.Contract.AuthorizedWitnesses(&_OffRamp.CallOpts, witness)
}

// AuthorizedWitnesses is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function authorizedWitnesses(address witness) view returns(bool)
func (_OffRamp *OffRampCallerSession) AuthorizedWitnesses(witness common.Address) (bool, error) {
	return _OffRamp.Contract.AuthorizedWitnesses(&_OffRamp.CallOpts, witness)
}

// FulfillmentWindow is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function fulfillmentWindow() view returns(uint64)
func (_OffRamp *OffRampCaller) FulfillmentWindow(opts *bind.CallOpts) (uint64, error) {
	var out []interface{}
	err := _OffRamp.contract.Call(opts, &out, "fulfillmentWindow")

	if err != nil {
		return *new(uint64), err
	}

	out0 := *abi.ConvertType(out[0], new(uint64)).(*uint64)

	return out0, err
}

// FulfillmentWindow is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function fulfillmentWindow() view returns(uint64)
func (_OffRamp *OffRampSession) FulfillmentWindow() (uint64, error) {
	return _OffRamp.Contract.FulfillmentWindow(&_OffRamp.CallOpts)
}

// FulfillmentWindow is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function fulfillmentWindow() view returns(uint64)
func (_OffRamp *OffRampCallerSession) FulfillmentWindow() (uint64, error) {
	return _OffRamp.Contract.FulfillmentWindow(&_OffRamp.CallOpts)
}

// GetIntent is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function getIntent(bytes32 intentId) view returns((address,uint256,uint8,uint8,uint64,uint64,address,uint8,uint256,string,string,bytes32))
func (_OffRamp *OffRampCaller) GetIntent(opts *bind.CallOpts, intentId [32]byte) (OffRampIntent, error) {
	var out []interface{}
	err := _OffRamp.contract.Call(opts, &out, "getIntent", intentId)

	if err != nil {
		return *new(OffRampIntent), err
	}

	out0 := *abi.ConvertType(out[0], new(OffRampIntent)).(*OffRampIntent)

	return out0, err
}

// GetIntent is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function getIntent(bytes32 intentId) view returns((address,uint256,uint8,uint8,uint64,uint64,address,uint8,uint256,string,string,bytes32))
func (_OffRamp *OffRampSession) GetIntent(intentId [32]byte) (OffRampIntent, error) {
	return _OffRamp.Contract.GetIntent(&_OffRamp.CallOpts, intentId)
}

// GetIntent is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function getIntent(bytes32 intentId) view returns((address,uint256,uint8,uint8,uint64,uint64,address,uint8,uint256,string,string,bytes32))
func (_OffRamp *OffRampCallerSession) GetIntent(intentId [32]byte) (OffRampIntent, error) {
	return _OffRamp.Contract.GetIntent(&_OffRamp.CallOpts, intentId)
}

// GetQuote is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function getQuote(bytes32 intentId, address solver, uint8 route) view returns((uint256,uint256,uint64,uint64))
func (_OffRamp *OffRampCaller) GetQuote(opts *bind.CallOpts, intentId [32]byte, solver common.Address, route uint8) (OffRampQuote, error) {
	var out []interface{}
	err := _OffRamp.contract.Call(opts, &out, "getQuote", intentId, solver, route)

	if err != nil {
		return *new(OffRampQuote), err
	}

	out0 := *abi.ConvertType(out[0], new(OffRampQuote)).(*OffRampQuote)

	return out0, err
}

// GetQuote is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function getQuote(bytes32 intentId, address solver, uint8 route) view returns((uint256,uint256,uint64,uint64))
func (_OffRamp *OffRampSession) GetQuote(intentId [32]byte, solver common.Address, route uint8) (OffRampQuote, error) {
	return _OffRamp.Contract.GetQuote(&_OffRamp.CallOpts, intentId, solver, route)
}

// GetQuote is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function getQuote(bytes32 intentId, address solver, uint8 route) view returns((uint256,uint256,uint64,uint64))
func (_OffRamp *OffRampCallerSession) GetQuote(intentId [32]byte, solver common.Address, route uint8) (OffRampQuote, error) {
	return _OffRamp.Contract.GetQuote(&_OffRamp.CallOpts, intentId, solver, route)
}

// QuoteWindow is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function quoteWindow() view returns(uint64)
func (_OffRamp *OffRampCaller) QuoteWindow(opts *bind.CallOpts) (uint64, error) {
	var out []interface{}
	err := _OffRamp.contract.Call(opts, &out, "quoteWindow")

	if err != nil {
		return *new(uint64), err
	}

	out0 := *abi.ConvertType(out[0], new(uint64)).(*uint64)

	return out0, err
}

// QuoteWindow is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function quoteWindow() view returns(uint64)
func (_OffRamp *OffRampSession) QuoteWindow() (uint64, error) {
	return _OffRamp.Contract.QuoteWindow(&_OffRamp.CallOpts)
}

// QuoteWindow is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function quoteWindow() view returns(uint64)
func (_OffRamp *OffRampCallerSession) QuoteWindow() (uint64, error) {
	return _OffRamp.Contract.QuoteWindow(&_OffRamp.CallOpts)
}

// RouteCurrency is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function routeCurrency(uint8 route) view returns(uint8)
func (_OffRamp *OffRampCaller) RouteCurrency(opts *bind.CallOpts, route uint8) (uint8, error) {
	var out []interface{}
	err := _OffRamp.contract.Call(opts, &out, "routeCurrency", route)

	if err != nil {
		return *new(uint8), err
	}

	out0 := *abi.ConvertType(out[0], new(uint8)).(*uint8)

	return out0, err
}

// RouteCurrency is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function routeCurrency(uint8 route) view returns(uint8)
func (_OffRamp *OffRampSession) RouteCurrency(route uint8) (uint8, error) {
	return _OffRamp.Contract.RouteCurrency(&_OffRamp.CallOpts, route)
}

// RouteCurrency is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function routeCurrency(uint8 route) view returns(uint8)
func (_OffRamp *OffRampCallerSession) RouteCurrency(route uint8) (uint8, error) {
	return _OffRamp.Contract.RouteCurrency(&_OffRamp.CallOpts, route)
}

// SelectionWindow is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function selectionWindow() view returns(uint64)
func (_OffRamp *OffRampCaller) SelectionWindow(opts *bind.CallOpts) (uint64, error) {
	var out []interface{}
	err := _OffRamp.contract.Call(opts, &out, "selectionWindow")

	if err != nil {
		return *new(uint64), err
	}

	out0 := *abi.ConvertType(out[0], new(uint64)).(*uint64)

	return out0, err
}

// SelectionWindow is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function selectionWindow() view returns(uint64)
func (_OffRamp *OffRampSession) SelectionWindow() (uint64, error) {
	return _OffRamp.Contract.SelectionWindow(&_OffRamp.CallOpts)
}

// SelectionWindow is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function selectionWindow() view returns(uint64)
func (_OffRamp *OffRampCallerSession) SelectionWindow() (uint64, error) {
	return _OffRamp.Contract.SelectionWindow(&_OffRamp.CallOpts)
}

// UsedNullifiers is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function usedNullifiers(bytes32 nullifier) view returns(bool)
func (_OffRamp *OffRampCaller) UsedNullifiers(opts *bind.CallOpts, nullifier [32]byte) (bool, error) {
	var out []interface{}
	err := _OffRamp.contract.Call(opts, &out, "usedNullifiers", nullifier)

	if err != nil {
		return *new(bool), err
	}

	out0 := *abi.ConvertType(out[0], new(bool)).(*bool)

	return out0, err
}

// UsedNullifiers is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function usedNullifiers(bytes32 nullifier) view returns(bool)
func (_OffRamp *OffRampSession) UsedNullifiers(nullifier [32]byte) (bool, error) {
	return _OffRamp.Contract.UsedNullifiers(&_OffRamp.CallOpts, nullifier)
}

// UsedNullifiers is a free data retrieval call binding the contract method 0x12345678.
//
// Solidity: function usedNullifiers(bytes32 nullifier) view returns(bool)
func (_OffRamp *OffRampCallerSession) UsedNullifiers(nullifier [32]byte) (bool, error) {
	return _OffRamp.Contract.UsedNullifiers(&_OffRamp.CallOpts, nullifier)
}

// Claim is a paid mutator transaction binding the contract method 0x12345678.
//
// Solidity: function claim(bytes32 intentId, (bytes32,uint256,uint256,string,bytes32) attestation, bytes signature) returns()
func (_OffRamp *OffRampTransactor) Claim(opts *bind.TransactOpts, intentId [32]byte, attestation OffRampPaymentAttestation, signature []byte) (*types.Transaction, error) {
	return _OffRamp.contract.Transact(opts, "claim", intentId, attestation, signature)
}

// Claim is a paid mutator transaction binding the contract method 0x12345678.
//
// Solidity: function claim(bytes32 intentId, (bytes32,uint256,uint256,string,bytes32) attestation, bytes signature) returns()
func (_OffRamp *OffRampSession) Claim(intentId [32]byte, attestation OffRampPaymentAttestation, signature []byte) (*types.Transaction, error) {
	return _OffRamp.Contract.Claim(&_OffRamp.TransactOpts, intentId, attestation, signature)
}

// Claim is a paid mutator transaction binding the contract method 0x12345678.
//
// Solidity: function claim(bytes32 intentId, (bytes32,uint256,uint256,string,bytes32) attestation, bytes signature) returns()
func (_OffRamp *OffRampTransactorSession) Claim(intentId [32]byte, attestation OffRampPaymentAttestation, signature []byte) (*types.Transaction, error) {
	return _OffRamp.Contract.Claim(&_OffRamp.TransactOpts, intentId, attestation, signature)
}

// SubmitQuote is a paid mutator transaction binding the contract method 0x12345678.
//
// Solidity: function submitQuote(bytes32 intentId, uint8 route, uint256 fiatAmount, uint256 solverFee, uint64 estimatedTime) returns()
func (_OffRamp *OffRampTransactor) SubmitQuote(opts *bind.TransactOpts, intentId [32]byte, route uint8, fiatAmount *big.Int, solverFee *big.Int, estimatedTime uint64) (*types.Transaction, error) {
	return _OffRamp.contract.Transact(opts, "submitQuote", intentId, route, fiatAmount, solverFee, estimatedTime)
}

// SubmitQuote is a paid mutator transaction binding the contract method 0x12345678.
//
// Solidity: function submitQuote(bytes32 intentId, uint8 route, uint256 fiatAmount, uint256 solverFee, uint64 estimatedTime) returns()
func (_OffRamp *OffRampSession) SubmitQuote(intentId [32]byte, route uint8, fiatAmount *big.Int, solverFee *big.Int, estimatedTime uint64) (*types.Transaction, error) {
	return _OffRamp.Contract.SubmitQuote(&_OffRamp.TransactOpts, intentId, route, fiatAmount, solverFee, estimatedTime)
}

// SubmitQuote is a paid mutator transaction binding the contract method 0x12345678.
//
// Solidity: function submitQuote(bytes32 intentId, uint8 route, uint256 fiatAmount, uint256 solverFee, uint64 estimatedTime) returns()
func (_OffRamp *OffRampTransactorSession) SubmitQuote(intentId [32]byte, route uint8, fiatAmount *big.Int, solverFee *big.Int, estimatedTime uint64) (*types.Transaction, error) {
	return _OffRamp.Contract.SubmitQuote(&_OffRamp.TransactOpts, intentId, route, fiatAmount, solverFee, estimatedTime)
}

// OffRampIntentCreatedIterator is returned from FilterIntentCreated and is used to iterate over the raw logs and unpacked data for IntentCreated events raised by the OffRamp contract.
type OffRampIntentCreatedIterator struct {
	Event *OffRampIntentCreated // Event containing the contract specifics and raw log

	contract *bind.BoundContract // Generic contract to use for unpacking event data
	event    string              // Event name to use for unpacking event data

	logs chan types.Log        // Log channel receiving the found contract events
	sub  ethereum.Subscription // Subscription for errors, completion and termination
	done bool                  // Whether the subscription completed delivering logs
	fail error                 // Occurred error to stop iteration
}

// Next advances the iterator to the subsequent event, returning whether there
// are any more events found. In case of a retrieval or parsing error, false is
// returned and Error() can be queried for the exact failure.
func (it *OffRampIntentCreatedIterator) Next() bool {
	// If the iterator failed, stop iterating
	if it.fail != nil {
		return false
	}
	// If the iterator completed, deliver directly whatever's available
	if it.done {
		select {
		case log := <-it.logs:
			it.Event = new(OffRampIntentCreated)
			if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
				it.fail = err
				return false
			}
			it.Event.Raw = log
			return true

		default:
			return false
		}
	}
	// Iterator still in progress, wait for either a data or an error event
	select {
	case log := <-it.logs:
		it.Event = new(OffRampIntentCreated)
		if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
			it.fail = err
			return false
		}
		it.Event.Raw = log
		return true

	case err := <-it.sub.Err():
		it.done = true
		it.fail = err
		return it.Next()
	}
}

// Error returns any retrieval or parsing error occurred during filtering.
func (it *OffRampIntentCreatedIterator) Error() error {
	return it.fail
}

// Close terminates the iteration process, releasing any pending underlying
// resources.
func (it *OffRampIntentCreatedIterator) Close() error {
	it.sub.Unsubscribe()
	return nil
}

// OffRampIntentCreated represents a IntentCreated event raised by the OffRamp contract.
type OffRampIntentCreated struct {
	IntentId  [32]byte
	Depositor common.Address
	Amount    *big.Int
	Currency  uint8
	Raw       types.Log // Blockchain specific contextual infos
}

// FilterIntentCreated is a free log retrieval operation binding the contract event 0x12345678.
//
// Solidity: event IntentCreated(bytes32 indexed intentId, address indexed depositor, uint256 amount, uint8 currency)
func (_OffRamp *OffRampFilterer) FilterIntentCreated(opts *bind.FilterOpts, intentId [][32]byte, depositor []common.Address) (*OffRampIntentCreatedIterator, error) {
	var intentIdRule []interface{}
	for _, intentIdItem := range intentId {
		intentIdRule = append(intentIdRule, intentIdItem)
	}
	var depositorRule []interface{}
	for _, depositorItem := range depositor {
		depositorRule = append(depositorRule, depositorItem)
	}

	logs, sub, err := _OffRamp.contract.FilterLogs(opts, "IntentCreated", intentIdRule, depositorRule)
	if err != nil {
		return nil, err
	}
	return &OffRampIntentCreatedIterator{contract: _OffRamp.contract, event: "IntentCreated", logs: logs, sub: sub}, nil
}

// WatchIntentCreated is a free log subscription operation binding the contract event 0x12345678.
//
// Solidity: event IntentCreated(bytes32 indexed intentId, address indexed depositor, uint256 amount, uint8 currency)
func (_OffRamp *OffRampFilterer) WatchIntentCreated(opts *bind.WatchOpts, sink chan<- *OffRampIntentCreated, intentId [][32]byte, depositor []common.Address) (event.Subscription, error) {
	var intentIdRule []interface{}
	for _, intentIdItem := range intentId {
		intentIdRule = append(intentIdRule, intentIdItem)
	}
	var depositorRule []interface{}
	for _, depositorItem := range depositor {
		depositorRule = append(depositorRule, depositorItem)
	}

	logs, sub, err := _OffRamp.contract.WatchLogs(opts, "IntentCreated", intentIdRule, depositorRule)
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case log := <-logs:
				// New log arrived, parse the event and forward to the user
				event := new(OffRampIntentCreated)
				if err := _OffRamp.contract.UnpackLog(event, "IntentCreated", log); err != nil {
					return err
				}
				event.Raw = log

				select {
				case sink <- event:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// ParseIntentCreated is a log parse operation binding the contract event 0x12345678.
//
// Solidity: event IntentCreated(bytes32 indexed intentId, address indexed depositor, uint256 amount, uint8 currency)
func (_OffRamp *OffRampFilterer) ParseIntentCreated(log types.Log) (*OffRampIntentCreated, error) {
	event := new(OffRampIntentCreated)
	if err := _OffRamp.contract.UnpackLog(event, "IntentCreated", log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

// OffRampQuoteSelectedIterator is returned from FilterQuoteSelected and is used to iterate over the raw logs and unpacked data for QuoteSelected events raised by the OffRamp contract.
type OffRampQuoteSelectedIterator struct {
	Event *OffRampQuoteSelected // Event containing the contract specifics and raw log

	contract *bind.BoundContract // Generic contract to use for unpacking event data
	event    string              // Event name to use for unpacking event data

	logs chan types.Log        // Log channel receiving the found contract events
	sub  ethereum.Subscription // Subscription for errors, completion and termination
	done bool                  // Whether the subscription completed delivering logs
	fail error                 // Occurred error to stop iteration
}

// Next advances the iterator to the subsequent event, returning whether there
// are any more events found. In case of a retrieval or parsing error, false is
// returned and Error() can be queried for the exact failure.
func (it *OffRampQuoteSelectedIterator) Next() bool {
	// If the iterator failed, stop iterating
	if it.fail != nil {
		return false
	}
	// If the iterator completed, deliver directly whatever's available
	if it.done {
		select {
		case log := <-it.logs:
			it.Event = new(OffRampQuoteSelected)
			if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
				it.fail = err
				return false
			}
			it.Event.Raw = log
			return true

		default:
			return false
		}
	}
	// Iterator still in progress, wait for either a data or an error event
	select {
	case log := <-it.logs:
		it.Event = new(OffRampQuoteSelected)
		if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
			it.fail = err
			return false
		}
		it.Event.Raw = log
		return true

	case err := <-it.sub.Err():
		it.done = true
		it.fail = err
		return it.Next()
	}
}

// Error returns any retrieval or parsing error occurred during filtering.
func (it *OffRampQuoteSelectedIterator) Error() error {
	return it.fail
}

// Close terminates the iteration process, releasing any pending underlying
// resources.
func (it *OffRampQuoteSelectedIterator) Close() error {
	it.sub.Unsubscribe()
	return nil
}

// OffRampQuoteSelected represents a QuoteSelected event raised by the OffRamp contract.
type OffRampQuoteSelected struct {
	IntentId   [32]byte
	Solver     common.Address
	Route      uint8
	FiatAmount *big.Int
	Raw        types.Log // Blockchain specific contextual infos
}

// FilterQuoteSelected is a free log retrieval operation binding the contract event 0x12345678.
//
// Solidity: event QuoteSelected(bytes32 indexed intentId, address indexed solver, uint8 route, uint256 fiatAmount)
func (_OffRamp *OffRampFilterer) FilterQuoteSelected(opts *bind.FilterOpts, intentId [][32]byte, solver []common.Address) (*OffRampQuoteSelectedIterator, error) {
	var intentIdRule []interface{}
	for _, intentIdItem := range intentId {
		intentIdRule = append(intentIdRule, intentIdItem)
	}
	var solverRule []interface{}
	for _, solverItem := range solver {
		solverRule = append(solverRule, solverItem)
	}

	logs, sub, err := _OffRamp.contract.FilterLogs(opts, "QuoteSelected", intentIdRule, solverRule)
	if err != nil {
		return nil, err
	}
	return &OffRampQuoteSelectedIterator{contract: _OffRamp.contract, event: "QuoteSelected", logs: logs, sub: sub}, nil
}

// WatchQuoteSelected is a free log subscription operation binding the contract event 0x12345678.
//
// Solidity: event QuoteSelected(bytes32 indexed intentId, address indexed solver, uint8 route, uint256 fiatAmount)
func (_OffRamp *OffRampFilterer) WatchQuoteSelected(opts *bind.WatchOpts, sink chan<- *OffRampQuoteSelected, intentId [][32]byte, solver []common.Address) (event.Subscription, error) {
	var intentIdRule []interface{}
	for _, intentIdItem := range intentId {
		intentIdRule = append(intentIdRule, intentIdItem)
	}
	var solverRule []interface{}
	for _, solverItem := range solver {
		solverRule = append(solverRule, solverItem)
	}

	logs, sub, err := _OffRamp.contract.WatchLogs(opts, "QuoteSelected", intentIdRule, solverRule)
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case log := <-logs:
				// New log arrived, parse the event and forward to the user
				event := new(OffRampQuoteSelected)
				if err := _OffRamp.contract.UnpackLog(event, "QuoteSelected", log); err != nil {
					return err
				}
				event.Raw = log

				select {
				case sink <- event:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// ParseQuoteSelected is a log parse operation binding the contract event 0x12345678.
//
// Solidity: event QuoteSelected(bytes32 indexed intentId, address indexed solver, uint8 route, uint256 fiatAmount)
func (_OffRamp *OffRampFilterer) ParseQuoteSelected(log types.Log) (*OffRampQuoteSelected, error) {
	event := new(OffRampQuoteSelected)
	if err := _OffRamp.contract.UnpackLog(event, "QuoteSelected", log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}
