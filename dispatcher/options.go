package dispatcher

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"crosschainctl/contracts"
	"crosschainctl/types"
)

type RevertOptions = contracts.RevertOptions

// additionalParams keys that override revert options
const (
	ParamRevertAddress    = "revertAddress"
	ParamCallOnRevert     = "callOnRevert"
	ParamAbortAddress     = "abortAddress"
	ParamRevertMessage    = "revertMessage"
	ParamOnRevertGasLimit = "onRevertGasLimit"
)

// DefaultRevertOptions does not call back, uses zero addresses, an empty
// message and no gas reserve.
func DefaultRevertOptions() RevertOptions {
	return RevertOptions{
		RevertMessage:    []byte{},
		OnRevertGasLimit: big.NewInt(0),
	}
}

func copyRevertOptions(o RevertOptions) RevertOptions {
	out := o
	out.RevertMessage = append([]byte{}, o.RevertMessage...)
	if o.OnRevertGasLimit != nil {
		out.OnRevertGasLimit = new(big.Int).Set(o.OnRevertGasLimit)
	} else {
		out.OnRevertGasLimit = big.NewInt(0)
	}
	return out
}

// applyRevertOverrides returns base with any revert keys of params applied.
// A returned error names the offending parameter.
func applyRevertOverrides(base RevertOptions, params map[string]interface{}) (RevertOptions, string, error) {
	opts := copyRevertOptions(base)

	if v, ok := params[ParamRevertAddress]; ok {
		addr, err := paramAddress(v)
		if err != nil {
			return opts, ParamRevertAddress, err
		}
		opts.RevertAddress = addr
	}

	if v, ok := params[ParamAbortAddress]; ok {
		addr, err := paramAddress(v)
		if err != nil {
			return opts, ParamAbortAddress, err
		}
		opts.AbortAddress = addr
	}

	if v, ok := params[ParamCallOnRevert]; ok {
		switch b := v.(type) {
		case bool:
			opts.CallOnRevert = b
		case string:
			switch strings.ToLower(b) {
			case "true":
				opts.CallOnRevert = true
			case "false":
				opts.CallOnRevert = false
			default:
				return opts, ParamCallOnRevert, fmt.Errorf("not a boolean: %q", b)
			}
		default:
			return opts, ParamCallOnRevert, fmt.Errorf("not a boolean: %v", v)
		}
	}

	if v, ok := params[ParamRevertMessage]; ok {
		s, isString := v.(string)
		if !isString {
			return opts, ParamRevertMessage, fmt.Errorf("not a string: %v", v)
		}
		var p types.Payload
		raw, _ := json.Marshal(s)
		if err := p.UnmarshalJSON(raw); err != nil {
			return opts, ParamRevertMessage, err
		}
		opts.RevertMessage = []byte(p)
	}

	if v, ok := params[ParamOnRevertGasLimit]; ok {
		limit, err := paramUint(v)
		if err != nil {
			return opts, ParamOnRevertGasLimit, err
		}
		opts.OnRevertGasLimit = limit
	}

	return opts, "", nil
}

// validateRevertOptions enforces that a callback has somewhere to go.
func validateRevertOptions(o RevertOptions) error {
	if o.CallOnRevert && o.RevertAddress == (common.Address{}) {
		return fmt.Errorf("%s requires a non-zero %s", ParamCallOnRevert, ParamRevertAddress)
	}
	if o.OnRevertGasLimit != nil && o.OnRevertGasLimit.Sign() < 0 {
		return fmt.Errorf("%s must not be negative", ParamOnRevertGasLimit)
	}
	return nil
}

func paramAddress(v interface{}) (common.Address, error) {
	s, ok := v.(string)
	if !ok {
		return common.Address{}, fmt.Errorf("not an address: %v", v)
	}
	if !types.ValidAddress(s) {
		return common.Address{}, fmt.Errorf("not an address: %q", s)
	}
	return common.HexToAddress(s), nil
}

func paramUint(v interface{}) (*big.Int, error) {
	var n *big.Int
	switch x := v.(type) {
	case float64:
		if x != float64(int64(x)) {
			return nil, fmt.Errorf("not an integer: %v", x)
		}
		n = big.NewInt(int64(x))
	case int:
		n = big.NewInt(int64(x))
	case int64:
		n = big.NewInt(x)
	case uint64:
		n = new(big.Int).SetUint64(x)
	case json.Number:
		parsed, ok := new(big.Int).SetString(x.String(), 10)
		if !ok {
			return nil, fmt.Errorf("not an integer: %s", x)
		}
		n = parsed
	case string:
		parsed, err := hexutil.DecodeBig(x)
		if err != nil {
			dec, ok := new(big.Int).SetString(x, 10)
			if !ok {
				return nil, fmt.Errorf("not an integer: %q", x)
			}
			parsed = dec
		}
		n = parsed
	default:
		return nil, fmt.Errorf("not an integer: %v", v)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("must not be negative: %s", n)
	}
	return n, nil
}
