package types

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
)

// Action is the kind of operation an intent asks for.
type Action string

const (
	ActionTransfer           Action = "transfer"
	ActionCrossChainTransfer Action = "cross_chain_transfer"
	ActionCrossChainMessage  Action = "cross_chain_message"
)

// older interpreters emit this name for cross-chain messages
const legacyActionCrossChainTalk = "cross_chain_talk"

var amountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

func ParseAction(s string) (Action, error) {
	switch strings.TrimSpace(s) {
	case string(ActionTransfer):
		return ActionTransfer, nil
	case string(ActionCrossChainTransfer):
		return ActionCrossChainTransfer, nil
	case string(ActionCrossChainMessage), legacyActionCrossChainTalk:
		return ActionCrossChainMessage, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Intent is a requested action as produced by an upstream interpreter.
// It is consumed once by the dispatcher and never modified.
type Intent struct {
	Action           Action                 `json:"action"`
	FromChain        string                 `json:"fromChain,omitempty"`
	ToChain          string                 `json:"toChain,omitempty"`
	FromToken        string                 `json:"fromToken,omitempty"`
	ToToken          string                 `json:"toToken,omitempty"`
	Amount           string                 `json:"amount,omitempty"` // decimal string, never a float
	Recipient        string                 `json:"recipient,omitempty"`
	Message          Payload                `json:"message,omitempty"`
	AdditionalParams map[string]interface{} `json:"additionalParams,omitempty"`
}

// IntentResponse is the envelope an interpreter returns around an intent.
type IntentResponse struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid intent: field %s: %s", e.Field, e.Reason)
}

// Validate checks the cross-field rules of an intent and names the first
// offending field.
func Validate(in *Intent) error {
	if in == nil {
		return &ValidationError{Field: "intent", Reason: "missing"}
	}

	switch in.Action {
	case ActionTransfer, ActionCrossChainTransfer, ActionCrossChainMessage:
	case "":
		return &ValidationError{Field: "action", Reason: "missing"}
	default:
		return &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", in.Action)}
	}

	if in.Action == ActionCrossChainMessage && len(in.Message) == 0 {
		return &ValidationError{Field: "message", Reason: "required for " + string(ActionCrossChainMessage)}
	}

	if in.Action == ActionCrossChainTransfer {
		if in.FromChain == "" {
			return &ValidationError{Field: "fromChain", Reason: "required for " + string(ActionCrossChainTransfer)}
		}
		if in.ToChain == "" {
			return &ValidationError{Field: "toChain", Reason: "required for " + string(ActionCrossChainTransfer)}
		}
		if strings.EqualFold(in.FromChain, in.ToChain) {
			return &ValidationError{Field: "toChain", Reason: fmt.Sprintf("must differ from fromChain %q", in.FromChain)}
		}
	}

	if in.Amount != "" && !amountPattern.MatchString(in.Amount) {
		return &ValidationError{Field: "amount", Reason: fmt.Sprintf("%q is not a non-negative decimal", in.Amount)}
	}

	if in.Recipient != "" && !ValidAddress(in.Recipient) {
		return &ValidationError{Field: "recipient", Reason: fmt.Sprintf("%q is not a valid address", in.Recipient)}
	}

	return nil
}

// ValidAddress reports whether s is a 20-byte hex address; mixed-case input
// must carry a correct EIP-55 checksum.
func ValidAddress(s string) bool {
	if !common.IsHexAddress(s) {
		return false
	}
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		// single-case input carries no checksum
		return ethav.Validate(common.HexToAddress(s).Hex()) == nil
	}
	return ethav.Validate(s) == nil
}

// DecodeIntent accepts a bare intent or an IntentResponse envelope.
func DecodeIntent(data []byte) (*Intent, error) {
	var env struct {
		Intent *Intent `json:"intent"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("cannot decode intent: %w", err)
	}
	if env.Intent != nil {
		return env.Intent, nil
	}

	var in Intent
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("cannot decode intent: %w", err)
	}
	return &in, nil
}
