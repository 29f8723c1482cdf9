package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"crosschainctl/chain"
	"crosschainctl/contracts"
	"crosschainctl/resolver"
	"crosschainctl/types"
)

// RelayCall is the single gateway call built for an intent.
type RelayCall struct {
	Gateway       common.Address
	Receiver      common.Address
	Payload       []byte
	RevertOptions RevertOptions
	Value         *big.Int
}

func (c *RelayCall) Calldata() ([]byte, error) {
	return contracts.PackGatewayCall(c.Receiver, c.Payload, c.RevertOptions)
}

// SubmissionHandle correlates a submitted gateway call with the
// cross-chain transaction tracked by an external indexer.
type SubmissionHandle struct {
	ID          string         `json:"id"`
	TxHash      common.Hash    `json:"txHash"`
	Network     string         `json:"network"`
	ChainID     uint64         `json:"chainId,omitempty"`
	Gateway     common.Address `json:"gateway"`
	Receiver    common.Address `json:"receiver"`
	Sender      common.Address `json:"sender"`
	SubmittedAt time.Time      `json:"submittedAt"`
}

// TrackingHint is the identifier to hand to a CCTX tracker.
func (h *SubmissionHandle) TrackingHint() string {
	return h.TxHash.Hex()
}

// Record is the handle in the form the submission tracker stores.
func (h *SubmissionHandle) Record() *types.Submission {
	return &types.Submission{
		ID:          h.ID,
		Status:      types.SubmissionSubmitted,
		TxHash:      h.TrackingHint(),
		Network:     h.Network,
		ChainID:     h.ChainID,
		Gateway:     h.Gateway.Hex(),
		Receiver:    h.Receiver.Hex(),
		Sender:      h.Sender.Hex(),
		SubmittedAt: h.SubmittedAt,
		UpdatedAt:   h.SubmittedAt,
	}
}

type Config struct {
	// DefaultRevert applies when an intent carries no revert overrides.
	DefaultRevert RevertOptions
	// Value is attached to every gateway call. Keep it zero unless the
	// gateway's fee model requires otherwise.
	Value *big.Int
}

type Dispatcher struct {
	log log.Logger
	cfg Config
}

func New(logger log.Logger, cfg Config) *Dispatcher {
	if cfg.Value == nil {
		cfg.Value = big.NewInt(0)
	}
	cfg.DefaultRevert = copyRevertOptions(cfg.DefaultRevert)
	return &Dispatcher{log: logger, cfg: cfg}
}

// Build validates the intent and binding and assembles the gateway call
// without touching the network.
func (d *Dispatcher) Build(in *types.Intent, binding resolver.Binding, receiver common.Address) (*RelayCall, error) {
	fail := func(kind error, detail string, cause error) error {
		return &DispatchError{Kind: kind, Network: binding.Network, Gateway: binding.Address, Detail: detail, Cause: cause}
	}

	if err := types.Validate(in); err != nil {
		return nil, fail(ErrInvalidIntent, "", err)
	}

	if binding.Address == "" {
		return nil, fail(ErrUnresolvedBinding, "empty gateway address", nil)
	}
	if !common.IsHexAddress(binding.Address) {
		return nil, fail(ErrUnresolvedBinding, fmt.Sprintf("malformed gateway address (source %s)", binding.Source), nil)
	}

	if receiver == (common.Address{}) {
		return nil, fail(ErrInvalidIntent, "receiver contract is the zero address", nil)
	}

	payload, err := encodePayload(in)
	if err != nil {
		return nil, fail(ErrInvalidIntent, "cannot encode payload", err)
	}

	opts, param, err := applyRevertOverrides(d.cfg.DefaultRevert, in.AdditionalParams)
	if err != nil {
		return nil, fail(ErrInvalidIntent, "additionalParams."+param, err)
	}
	if err := validateRevertOptions(opts); err != nil {
		return nil, fail(ErrInvalidIntent, "revert options", err)
	}

	return &RelayCall{
		Gateway:       common.HexToAddress(binding.Address),
		Receiver:      receiver,
		Payload:       payload,
		RevertOptions: opts,
		Value:         new(big.Int).Set(d.cfg.Value),
	}, nil
}

// Dispatch submits the intent through the bound gateway in a single
// attempt. A binding whose chain id differs from the signer's is rejected
// before anything is sent. It returns once the transaction is broadcast; cross-chain
// settlement is not awaited.
func (d *Dispatcher) Dispatch(ctx context.Context, in *types.Intent, binding resolver.Binding, receiver common.Address, signer chain.Signer) (*RelayCall, *SubmissionHandle, error) {
	call, err := d.Build(in, binding, receiver)
	if err != nil {
		d.log.Warn("Rejected dispatch", "network", binding.Network, "err", err)
		return nil, nil, err
	}

	// a gateway address means nothing on another chain
	if id := signer.ChainID(); binding.ChainID != 0 && id != nil && binding.ChainID != id.Uint64() {
		err := &DispatchError{
			Kind:    ErrUnresolvedBinding,
			Network: binding.Network,
			Gateway: binding.Address,
			Detail:  fmt.Sprintf("gateway is on chain %d but the signer submits on chain %d", binding.ChainID, id.Uint64()),
		}
		d.log.Warn("Rejected dispatch", "network", binding.Network, "err", err)
		return nil, nil, err
	}

	calldata, err := call.Calldata()
	if err != nil {
		return nil, nil, &DispatchError{Kind: ErrInvalidIntent, Network: binding.Network, Gateway: binding.Address, Detail: "cannot pack gateway call", Cause: err}
	}

	unlock := chain.LockSigner(signer.Address())
	txHash, err := signer.SubmitTransaction(ctx, call.Gateway, calldata, call.Value)
	unlock()
	if err != nil {
		d.log.Error("Gateway call rejected", "network", binding.Network, "gateway", call.Gateway, "err", err)
		return call, nil, &DispatchError{Kind: ErrSubmissionRejected, Network: binding.Network, Gateway: binding.Address, Cause: err}
	}

	handle := &SubmissionHandle{
		ID:          uuid.New().String(),
		TxHash:      txHash,
		Network:     binding.Network,
		ChainID:     binding.ChainID,
		Gateway:     call.Gateway,
		Receiver:    call.Receiver,
		Sender:      signer.Address(),
		SubmittedAt: time.Now().UTC(),
	}

	d.log.Info("Submitted cross-chain call",
		"id", handle.ID,
		"network", binding.Network,
		"gateway", call.Gateway,
		"source", binding.Source,
		"receiver", call.Receiver,
		"action", in.Action,
		"tx", txHash.Hex(),
	)

	return call, handle, nil
}

// AwaitSubmission waits for the gateway transaction to be mined on the
// source network. A timeout leaves the outcome unknown: the transaction
// may still land.
func (d *Dispatcher) AwaitSubmission(ctx context.Context, h *SubmissionHandle, signer chain.Signer, timeout time.Duration) (*ethtypes.Receipt, error) {
	receipt, err := signer.WaitForConfirmation(ctx, h.TxHash, timeout)
	if err == nil {
		d.log.Info("Gateway call mined", "id", h.ID, "tx", h.TxHash.Hex(), "block", receipt.BlockNumber)
		return receipt, nil
	}

	if errors.Is(err, chain.ErrReverted) {
		d.log.Error("Gateway call reverted", "id", h.ID, "tx", h.TxHash.Hex())
		return receipt, &DispatchError{Kind: ErrSubmissionRejected, Network: h.Network, Gateway: h.Gateway.Hex(), Detail: "reverted on source network", Cause: err}
	}

	d.log.Warn("Gateway call outcome unknown", "id", h.ID, "tx", h.TxHash.Hex(), "err", err)
	return nil, fmt.Errorf("submission %s (tx %s) outcome unknown: %w", h.ID, h.TxHash.Hex(), err)
}

func encodePayload(in *types.Intent) ([]byte, error) {
	if in.Action == types.ActionCrossChainMessage {
		return append([]byte{}, in.Message...), nil
	}

	var recipient common.Address
	if in.Recipient != "" {
		recipient = common.HexToAddress(in.Recipient)
	}
	return contracts.PackTransferParams(contracts.TransferParams{
		Action:    string(in.Action),
		FromChain: in.FromChain,
		ToChain:   in.ToChain,
		FromToken: in.FromToken,
		ToToken:   in.ToToken,
		Amount:    in.Amount,
		Recipient: recipient,
	})
}
