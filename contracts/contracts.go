package contracts

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const gatewayABIJSON = `[{
	"type": "function",
	"name": "call",
	"stateMutability": "payable",
	"inputs": [
		{"name": "receiver", "type": "address"},
		{"name": "payload", "type": "bytes"},
		{"name": "revertOptions", "type": "tuple", "components": [
			{"name": "revertAddress", "type": "address"},
			{"name": "callOnRevert", "type": "bool"},
			{"name": "abortAddress", "type": "address"},
			{"name": "revertMessage", "type": "bytes"},
			{"name": "onRevertGasLimit", "type": "uint256"}
		]}
	],
	"outputs": []
}]`

const ownableABIJSON = `[
	{"type": "function", "name": "owner", "stateMutability": "view", "inputs": [],
	 "outputs": [{"name": "", "type": "address"}]},
	{"type": "function", "name": "transferOwnership", "stateMutability": "nonpayable",
	 "inputs": [{"name": "newOwner", "type": "address"}], "outputs": []}
]`

const erc721ABIJSON = `[
	{"type": "function", "name": "name", "stateMutability": "view", "inputs": [],
	 "outputs": [{"name": "", "type": "string"}]},
	{"type": "function", "name": "symbol", "stateMutability": "view", "inputs": [],
	 "outputs": [{"name": "", "type": "string"}]},
	{"type": "function", "name": "balanceOf", "stateMutability": "view",
	 "inputs": [{"name": "owner", "type": "address"}],
	 "outputs": [{"name": "", "type": "uint256"}]}
]`

var (
	GatewayABI = mustParse(gatewayABIJSON)
	OwnableABI = mustParse(ownableABIJSON)
	ERC721ABI  = mustParse(erc721ABIJSON)

	transferParamsArgs = mustArguments(
		"string", "string", "string", "string", "string", "string", "address",
	)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI definition: %s", err))
	}
	return parsed
}

func mustArguments(kinds ...string) abi.Arguments {
	args := make(abi.Arguments, 0, len(kinds))
	for _, kind := range kinds {
		typ, err := abi.NewType(kind, "", nil)
		if err != nil {
			panic(fmt.Sprintf("invalid ABI type %s: %s", kind, err))
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args
}

// RevertOptions mirrors the gateway's revert options tuple.
type RevertOptions struct {
	RevertAddress    common.Address
	CallOnRevert     bool
	AbortAddress     common.Address
	RevertMessage    []byte
	OnRevertGasLimit *big.Int
}

func PackGatewayCall(receiver common.Address, payload []byte, opts RevertOptions) ([]byte, error) {
	if opts.OnRevertGasLimit == nil {
		opts.OnRevertGasLimit = big.NewInt(0)
	}
	if opts.RevertMessage == nil {
		opts.RevertMessage = []byte{}
	}
	return GatewayABI.Pack("call", receiver, payload, opts)
}

func UnpackGatewayCall(data []byte) (common.Address, []byte, RevertOptions, error) {
	var opts RevertOptions
	args, err := unpackInput(GatewayABI, "call", data)
	if err != nil {
		return common.Address{}, nil, opts, err
	}
	opts = *abi.ConvertType(args[2], new(RevertOptions)).(*RevertOptions)
	return args[0].(common.Address), args[1].([]byte), opts, nil
}

func PackOwner() ([]byte, error) {
	return OwnableABI.Pack("owner")
}

func UnpackOwner(out []byte) (common.Address, error) {
	res, err := OwnableABI.Unpack("owner", out)
	if err != nil {
		return common.Address{}, fmt.Errorf("cannot decode owner(): %w", err)
	}
	return res[0].(common.Address), nil
}

func PackTransferOwnership(newOwner common.Address) ([]byte, error) {
	return OwnableABI.Pack("transferOwnership", newOwner)
}

func UnpackTransferOwnership(data []byte) (common.Address, error) {
	args, err := unpackInput(OwnableABI, "transferOwnership", data)
	if err != nil {
		return common.Address{}, err
	}
	return args[0].(common.Address), nil
}

func PackName() ([]byte, error)   { return ERC721ABI.Pack("name") }
func PackSymbol() ([]byte, error) { return ERC721ABI.Pack("symbol") }

func PackBalanceOf(holder common.Address) ([]byte, error) {
	return ERC721ABI.Pack("balanceOf", holder)
}

func UnpackString(method string, out []byte) (string, error) {
	res, err := ERC721ABI.Unpack(method, out)
	if err != nil {
		return "", fmt.Errorf("cannot decode %s(): %w", method, err)
	}
	return res[0].(string), nil
}

func UnpackBalance(out []byte) (*big.Int, error) {
	res, err := ERC721ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("cannot decode balanceOf(): %w", err)
	}
	return res[0].(*big.Int), nil
}

// TransferParams is the structured payload sent for transfer intents.
type TransferParams struct {
	Action    string
	FromChain string
	ToChain   string
	FromToken string
	ToToken   string
	Amount    string
	Recipient common.Address
}

func PackTransferParams(p TransferParams) ([]byte, error) {
	return transferParamsArgs.Pack(p.Action, p.FromChain, p.ToChain, p.FromToken, p.ToToken, p.Amount, p.Recipient)
}

func UnpackTransferParams(data []byte) (TransferParams, error) {
	res, err := transferParamsArgs.Unpack(data)
	if err != nil {
		return TransferParams{}, err
	}
	return TransferParams{
		Action:    res[0].(string),
		FromChain: res[1].(string),
		ToChain:   res[2].(string),
		FromToken: res[3].(string),
		ToToken:   res[4].(string),
		Amount:    res[5].(string),
		Recipient: res[6].(common.Address),
	}, nil
}

// MethodName returns the name of the method the calldata selects in def.
func MethodName(def abi.ABI, data []byte) (string, bool) {
	if len(data) < 4 {
		return "", false
	}
	m, err := def.MethodById(data[:4])
	if err != nil {
		return "", false
	}
	return m.Name, true
}

func unpackInput(def abi.ABI, method string, data []byte) ([]interface{}, error) {
	name, ok := MethodName(def, data)
	if !ok || name != method {
		return nil, fmt.Errorf("calldata does not select %s", method)
	}
	args, err := def.Methods[method].Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s input: %w", method, err)
	}
	return args, nil
}
