package dispatcher

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosschainctl/chain"
	"crosschainctl/chain/chaintest"
	"crosschainctl/contracts"
	"crosschainctl/resolver"
	"crosschainctl/types"
)

var (
	operator = common.HexToAddress("0xf33d6e8180D7A86EBe60DaeB5b6AAe96aB0f3483")
	manager  = common.HexToAddress("0x6a5B86085CE2818Ae41aC0A089C83fd100a7bCB8")
	binding  = resolver.Binding{
		Network: "bsc_testnet",
		ChainID: 97,
		Address: "0x0c487a766110c85d301d96e33579c5b317fa4995",
		Source:  resolver.SourceRegistryByName,
	}
)

func newDispatcher() *Dispatcher {
	return New(log.New("test", "dispatcher"), Config{DefaultRevert: DefaultRevertOptions()})
}

func messageIntent() *types.Intent {
	return &types.Intent{
		Action:    types.ActionCrossChainMessage,
		FromChain: "bsc",
		ToChain:   "zetachain",
		Message:   types.Payload("ipfs://talktoearn_test"),
	}
}

func Test_DispatchMessage(t *testing.T) {
	c := chaintest.New(operator)

	call, handle, err := newDispatcher().Dispatch(context.Background(), messageIntent(), binding, manager, c)
	require.NoError(t, err)

	sent := c.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, common.HexToAddress(binding.Address), sent[0].To)
	assert.Equal(t, 0, sent[0].Value.Sign())

	receiver, payload, opts, err := contracts.UnpackGatewayCall(sent[0].Data)
	require.NoError(t, err)
	assert.Equal(t, manager, receiver)
	assert.Equal(t, []byte("ipfs://talktoearn_test"), payload)
	assert.False(t, opts.CallOnRevert)
	assert.Equal(t, common.Address{}, opts.RevertAddress)
	assert.Equal(t, 0, opts.OnRevertGasLimit.Sign())

	assert.Equal(t, manager, call.Receiver)
	assert.Equal(t, sent[0].Hash, handle.TxHash)
	assert.Equal(t, sent[0].Hash.Hex(), handle.TrackingHint())
	assert.Equal(t, operator, handle.Sender)
	assert.Equal(t, uint64(97), handle.ChainID)
	assert.NotEmpty(t, handle.ID)

	rec := handle.Record()
	assert.Equal(t, types.SubmissionSubmitted, rec.Status)
	assert.Equal(t, handle.ID, rec.ID)
	assert.Equal(t, handle.TrackingHint(), rec.TxHash)
	assert.Equal(t, binding.Network, rec.Network)
}

func Test_DispatchRejectsBeforeSubmitting(t *testing.T) {
	cases := []struct {
		name     string
		in       *types.Intent
		binding  resolver.Binding
		receiver common.Address
		kind     error
	}{
		{
			name:     "message without payload",
			in:       &types.Intent{Action: types.ActionCrossChainMessage},
			binding:  binding,
			receiver: manager,
			kind:     ErrInvalidIntent,
		},
		{
			name:     "transfer to same chain",
			in:       &types.Intent{Action: types.ActionCrossChainTransfer, FromChain: "bsc", ToChain: "bsc"},
			binding:  binding,
			receiver: manager,
			kind:     ErrInvalidIntent,
		},
		{
			name:     "empty binding",
			in:       messageIntent(),
			binding:  resolver.Binding{Network: "bsc_testnet"},
			receiver: manager,
			kind:     ErrUnresolvedBinding,
		},
		{
			name:     "malformed binding",
			in:       messageIntent(),
			binding:  resolver.Binding{Network: "bsc_testnet", Address: "gateway", Source: resolver.SourceOverride},
			receiver: manager,
			kind:     ErrUnresolvedBinding,
		},
		{
			name:     "zero receiver",
			in:       messageIntent(),
			binding:  binding,
			receiver: common.Address{},
			kind:     ErrInvalidIntent,
		},
		{
			name: "call on revert without revert address",
			in: &types.Intent{
				Action:           types.ActionCrossChainMessage,
				Message:          types.Payload("hi"),
				AdditionalParams: map[string]interface{}{ParamCallOnRevert: true},
			},
			binding:  binding,
			receiver: manager,
			kind:     ErrInvalidIntent,
		},
		{
			name: "negative gas limit",
			in: &types.Intent{
				Action:           types.ActionCrossChainMessage,
				Message:          types.Payload("hi"),
				AdditionalParams: map[string]interface{}{ParamOnRevertGasLimit: float64(-5)},
			},
			binding:  binding,
			receiver: manager,
			kind:     ErrInvalidIntent,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := chaintest.New(operator)
			_, handle, err := newDispatcher().Dispatch(context.Background(), tc.in, tc.binding, tc.receiver, c)
			require.Error(t, err)
			assert.Nil(t, handle)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)

			var derr *DispatchError
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, tc.binding.Network, derr.Network)
			assert.Empty(t, c.Sent())
		})
	}
}

func Test_DispatchRejectsBindingOnAnotherChain(t *testing.T) {
	c := chaintest.New(operator)
	zeta := resolver.Binding{
		Network: "zeta_testnet",
		ChainID: 7001,
		Address: "0x6c533f7fe93fae114d0954697069df33c9b74fd7",
		Source:  resolver.SourceRegistryByName,
	}

	call, handle, err := newDispatcher().Dispatch(context.Background(), messageIntent(), zeta, manager, c)
	require.Error(t, err)
	assert.Nil(t, call)
	assert.Nil(t, handle)
	assert.True(t, errors.Is(err, ErrUnresolvedBinding))
	assert.Contains(t, err.Error(), "chain 7001")
	assert.Contains(t, err.Error(), "chain 97")
	assert.Empty(t, c.Sent())

	// an unknown chain id is not checked
	zeta.ChainID = 0
	_, handle, err = newDispatcher().Dispatch(context.Background(), messageIntent(), zeta, manager, c)
	require.NoError(t, err)
	assert.NotNil(t, handle)
	assert.Len(t, c.Sent(), 1)
}

func Test_DispatchRevertOverrides(t *testing.T) {
	c := chaintest.New(operator)
	in := messageIntent()
	in.AdditionalParams = map[string]interface{}{
		ParamRevertAddress:    "0xf33d6e8180d7a86ebe60daeb5b6aae96ab0f3483",
		ParamCallOnRevert:     true,
		ParamRevertMessage:    "refund me",
		ParamOnRevertGasLimit: float64(200000),
		"unrelated":           "ignored",
	}

	call, _, err := newDispatcher().Dispatch(context.Background(), in, binding, manager, c)
	require.NoError(t, err)
	assert.True(t, call.RevertOptions.CallOnRevert)
	assert.Equal(t, operator, call.RevertOptions.RevertAddress)
	assert.Equal(t, []byte("refund me"), call.RevertOptions.RevertMessage)
	assert.Equal(t, int64(200000), call.RevertOptions.OnRevertGasLimit.Int64())

	_, _, opts, err := contracts.UnpackGatewayCall(c.Sent()[0].Data)
	require.NoError(t, err)
	assert.True(t, opts.CallOnRevert)
	assert.Equal(t, operator, opts.RevertAddress)
}

func Test_DispatchDefaultsAreNotShared(t *testing.T) {
	d := New(log.New(), Config{DefaultRevert: RevertOptions{RevertMessage: []byte("x"), OnRevertGasLimit: big.NewInt(7)}})

	call, err := d.Build(messageIntent(), binding, manager)
	require.NoError(t, err)
	call.RevertOptions.OnRevertGasLimit.SetInt64(99)
	call.RevertOptions.RevertMessage[0] = 'y'

	again, err := d.Build(messageIntent(), binding, manager)
	require.NoError(t, err)
	assert.Equal(t, int64(7), again.RevertOptions.OnRevertGasLimit.Int64())
	assert.Equal(t, []byte("x"), again.RevertOptions.RevertMessage)
}

func Test_DispatchTransferPayload(t *testing.T) {
	c := chaintest.New(operator)
	in := &types.Intent{
		Action:    types.ActionCrossChainTransfer,
		FromChain: "zetachain",
		ToChain:   "bsc",
		FromToken: "ZETA",
		ToToken:   "BNB",
		Amount:    "12.5",
		Recipient: "0xf33d6e8180d7a86ebe60daeb5b6aae96ab0f3483",
	}

	call, _, err := newDispatcher().Dispatch(context.Background(), in, binding, manager, c)
	require.NoError(t, err)

	params, err := contracts.UnpackTransferParams(call.Payload)
	require.NoError(t, err)
	assert.Equal(t, "cross_chain_transfer", params.Action)
	assert.Equal(t, "12.5", params.Amount)
	assert.Equal(t, operator, params.Recipient)
}

func Test_DispatchSubmissionRejected(t *testing.T) {
	c := chaintest.New(operator)
	cause := errors.New("insufficient funds for gas * price + value")
	c.SubmitErr = cause

	call, handle, err := newDispatcher().Dispatch(context.Background(), messageIntent(), binding, manager, c)
	require.Error(t, err)
	assert.NotNil(t, call)
	assert.Nil(t, handle)
	assert.True(t, errors.Is(err, ErrSubmissionRejected))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), binding.Address)
}

func Test_AwaitSubmission(t *testing.T) {
	d := newDispatcher()

	c := chaintest.New(operator)
	_, handle, err := d.Dispatch(context.Background(), messageIntent(), binding, manager, c)
	require.NoError(t, err)
	receipt, err := d.AwaitSubmission(context.Background(), handle, c, time.Second)
	require.NoError(t, err)
	assert.Equal(t, handle.TxHash, receipt.TxHash)

	reverting := chaintest.New(operator)
	reverting.RevertAll = true
	_, handle, err = d.Dispatch(context.Background(), messageIntent(), binding, manager, reverting)
	require.NoError(t, err)
	_, err = d.AwaitSubmission(context.Background(), handle, reverting, time.Second)
	assert.True(t, errors.Is(err, ErrSubmissionRejected))
	assert.True(t, errors.Is(err, chain.ErrReverted))

	slow := chaintest.New(operator)
	slow.WithholdReceipts = true
	_, handle, err = d.Dispatch(context.Background(), messageIntent(), binding, manager, slow)
	require.NoError(t, err)
	_, err = d.AwaitSubmission(context.Background(), handle, slow, time.Millisecond)
	assert.True(t, errors.Is(err, chain.ErrConfirmationTimeout))
	var derr *DispatchError
	assert.False(t, errors.As(err, &derr))
}
