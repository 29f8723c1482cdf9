package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ValidateIntent(t *testing.T) {
	cases := []struct {
		name  string
		in    Intent
		field string
	}{
		{name: "plain transfer", in: Intent{Action: ActionTransfer, Amount: "1.5"}},
		{name: "missing action", in: Intent{}, field: "action"},
		{name: "unknown action", in: Intent{Action: "swap"}, field: "action"},
		{name: "message without payload", in: Intent{Action: ActionCrossChainMessage, ToChain: "zetachain"}, field: "message"},
		{name: "message with payload", in: Intent{Action: ActionCrossChainMessage, Message: Payload("ipfs://talktoearn_test")}},
		{name: "transfer same chain", in: Intent{Action: ActionCrossChainTransfer, FromChain: "bsc", ToChain: "BSC"}, field: "toChain"},
		{name: "transfer missing source", in: Intent{Action: ActionCrossChainTransfer, ToChain: "bsc"}, field: "fromChain"},
		{name: "transfer missing destination", in: Intent{Action: ActionCrossChainTransfer, FromChain: "zetachain"}, field: "toChain"},
		{name: "transfer across chains", in: Intent{Action: ActionCrossChainTransfer, FromChain: "zetachain", ToChain: "bsc", Amount: "10"}},
		{name: "negative amount", in: Intent{Action: ActionTransfer, Amount: "-1"}, field: "amount"},
		{name: "float exponent amount", in: Intent{Action: ActionTransfer, Amount: "1e18"}, field: "amount"},
		{name: "bad recipient", in: Intent{Action: ActionTransfer, Recipient: "0x1234"}, field: "recipient"},
		{name: "good recipient", in: Intent{Action: ActionTransfer, Recipient: "0xf33d6e8180d7a86ebe60daeb5b6aae96ab0f3483"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := tc.in
			err := Validate(&in)
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tc.field, verr.Field)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func Test_ValidateNilIntent(t *testing.T) {
	var verr *ValidationError
	require.True(t, errors.As(Validate(nil), &verr))
	assert.Equal(t, "intent", verr.Field)
}

func Test_ParseActionLegacyAlias(t *testing.T) {
	a, err := ParseAction("cross_chain_talk")
	require.NoError(t, err)
	assert.Equal(t, ActionCrossChainMessage, a)

	_, err = ParseAction("bridge")
	assert.Error(t, err)
}

func Test_IntentResponseJSON(t *testing.T) {
	raw := `{
		"intent": {
			"action": "cross_chain_talk",
			"fromChain": "bsc",
			"toChain": "zetachain",
			"message": "ipfs://talktoearn_test",
			"additionalParams": {"callOnRevert": false}
		},
		"confidence": 0.92,
		"reasoning": "user asked to talk to earn"
	}`

	var resp IntentResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	assert.Equal(t, ActionCrossChainMessage, resp.Intent.Action)
	assert.Equal(t, []byte("ipfs://talktoearn_test"), []byte(resp.Intent.Message))
	assert.Equal(t, false, resp.Intent.AdditionalParams["callOnRevert"])
	assert.InDelta(t, 0.92, resp.Confidence, 1e-9)
	assert.NoError(t, Validate(&resp.Intent))
}

func Test_PayloadHex(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`"0xdeadbeef"`), &p))
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, []byte(p))

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `"0xdeadbeef"`, string(out))

	// odd-length hex is not hex, keep it as text
	require.NoError(t, json.Unmarshal([]byte(`"0xabc"`), &p))
	assert.Equal(t, "0xabc", string(p))
}

func Test_ValidAddress(t *testing.T) {
	assert.True(t, ValidAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"))
	assert.True(t, ValidAddress("0x6a5b86085ce2818ae41ac0a089c83fd100a7bcb8"))
	assert.False(t, ValidAddress("0x6a5b86085ce2818ae41ac0a089c83fd100a7bc"))
	assert.False(t, ValidAddress("manager"))
	assert.False(t, ValidAddress(""))
}

func Test_DecodeIntent(t *testing.T) {
	bare := []byte(`{"action":"cross_chain_message","fromChain":"bsc_testnet","toChain":"zeta_testnet","message":"ipfs://bafy"}`)
	in, err := DecodeIntent(bare)
	require.NoError(t, err)
	assert.Equal(t, ActionCrossChainMessage, in.Action)
	assert.Equal(t, Payload("ipfs://bafy"), in.Message)

	wrapped := []byte(`{"intent":{"action":"cross_chain_talk","message":"0x6869"},"confidence":0.93,"reasoning":"user asked to send hi"}`)
	in, err = DecodeIntent(wrapped)
	require.NoError(t, err)
	assert.Equal(t, ActionCrossChainMessage, in.Action)
	assert.Equal(t, Payload("hi"), in.Message)

	_, err = DecodeIntent([]byte(`{"action":"swap"}`))
	assert.ErrorContains(t, err, "unknown action")

	_, err = DecodeIntent([]byte(`not json`))
	assert.Error(t, err)
}
