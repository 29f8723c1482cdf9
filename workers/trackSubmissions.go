package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"crosschainctl/types"
)

type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

type SubmissionStore interface {
	FindAllSubmissionsByStatus(status string) ([]*types.Submission, error)
	ChangeSubmissionStatus(sub *types.Submission, prevStatus string) error
}

// Tracker moves submitted gateway calls to confirmed or reverted once their
// source-chain receipt exists. It never resubmits anything.
type Tracker struct {
	store    SubmissionStore
	receipts ReceiptSource
	log      log.Logger
}

func NewTracker(store SubmissionStore, receipts ReceiptSource, logger log.Logger) *Tracker {
	return &Tracker{store: store, receipts: receipts, log: logger}
}

// Poll makes one pass over the submitted set and returns how many
// submissions it settled.
func (t *Tracker) Poll(ctx context.Context) (int, error) {
	pending, err := t.store.FindAllSubmissionsByStatus(types.SubmissionSubmitted)
	if err != nil {
		return 0, fmt.Errorf("cannot list submitted calls: %w", err)
	}

	settled := 0
	for _, sub := range pending {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}

		receipt, err := t.receipts.TransactionReceipt(ctx, common.HexToHash(sub.TxHash))
		if errors.Is(err, ethereum.NotFound) {
			continue
		}
		if err != nil {
			t.log.Warn("Cannot get receipt", "id", sub.ID, "tx", sub.TxHash, "err", err)
			continue
		}

		sub.UpdatedAt = time.Now().UTC()
		if receipt.BlockNumber != nil {
			sub.BlockNumber = receipt.BlockNumber.Uint64()
		}
		if receipt.Status == ethtypes.ReceiptStatusSuccessful {
			sub.Status = types.SubmissionConfirmed
		} else {
			sub.Status = types.SubmissionReverted
			sub.Detail = fmt.Sprintf("gateway call reverted in block %d", sub.BlockNumber)
		}

		if err := t.store.ChangeSubmissionStatus(sub, types.SubmissionSubmitted); err != nil {
			t.log.Error("Cannot update submission status", "id", sub.ID, "status", sub.Status, "err", err)
			continue
		}
		settled++

		t.log.Info("Submission settled on source chain",
			"id", sub.ID,
			"network", sub.Network,
			"tx", sub.TxHash,
			"status", sub.Status,
			"block", sub.BlockNumber,
		)
	}
	return settled, nil
}

func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := t.Poll(ctx); err != nil && ctx.Err() == nil {
			t.log.Error("Submission tracking pass failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
