package authority

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"crosschainctl/chain"
	"crosschainctl/contracts"
)

var (
	ErrTransferRejected = errors.New("authority transfer rejected")
	ErrRefusedUnknown   = errors.New("controller is an unrecognized third party")
	ErrOperatorMismatch = errors.New("signer is not the local operator")
)

type RemediationError struct {
	Kind       error
	Subject    string
	Contract   common.Address
	Controller common.Address
	TxHash     common.Hash
	Cause      error
}

func (e *RemediationError) Error() string {
	msg := fmt.Sprintf("remediate %s (%s), controller %s: %s", e.Subject, e.Contract.Hex(), e.Controller.Hex(), e.Kind)
	if e.TxHash != (common.Hash{}) {
		msg += fmt.Sprintf(" (tx %s)", e.TxHash.Hex())
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RemediationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

type Outcome struct {
	Before Record
	After  Record
	// TxHash is zero when the record was already aligned.
	TxHash common.Hash
}

func (o Outcome) NoOp() bool {
	return o.TxHash == (common.Hash{})
}

// Remediator hands authority from the local operator to the expected
// controller.
type Remediator struct {
	checker *Checker
	signer  chain.Signer
	timeout time.Duration
	log     log.Logger
}

func NewRemediator(signer chain.Signer, timeout time.Duration, logger log.Logger) *Remediator {
	return &Remediator{
		checker: NewChecker(signer, logger),
		signer:  signer,
		timeout: timeout,
		log:     logger,
	}
}

// Remediate re-checks rec and, only when the operator still holds
// authority, submits one transferOwnership and confirms it landed by
// reading the controller again. Running it on an aligned record is a no-op.
func (r *Remediator) Remediate(ctx context.Context, rec Record) (Outcome, error) {
	if rec.LocalOperator != r.signer.Address() {
		return Outcome{}, &RemediationError{
			Kind:     ErrOperatorMismatch,
			Subject:  rec.Subject,
			Contract: rec.Contract,
			Cause:    fmt.Errorf("record operator %s, signer %s", rec.LocalOperator.Hex(), r.signer.Address().Hex()),
		}
	}

	unlock := chain.LockSigner(r.signer.Address())
	defer unlock()

	before, status, err := r.checker.Check(ctx, rec)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Before: before, After: before}

	switch status {
	case Aligned:
		r.log.Info("Authority already aligned", "subject", rec.Subject, "controller", before.CurrentController)
		return out, nil
	case Unknown:
		r.log.Error("Refusing to move authority held by a third party",
			"subject", rec.Subject, "contract", rec.Contract, "controller", before.CurrentController, "expected", rec.ExpectedController)
		return out, &RemediationError{Kind: ErrRefusedUnknown, Subject: rec.Subject, Contract: rec.Contract, Controller: before.CurrentController}
	}

	calldata, err := contracts.PackTransferOwnership(rec.ExpectedController)
	if err != nil {
		return out, err
	}

	r.log.Info("Transferring authority", "subject", rec.Subject, "contract", rec.Contract, "to", rec.ExpectedController)

	txHash, err := r.signer.SubmitTransaction(ctx, rec.Contract, calldata, big.NewInt(0))
	if err != nil {
		return out, &RemediationError{Kind: ErrTransferRejected, Subject: rec.Subject, Contract: rec.Contract, Controller: before.CurrentController, Cause: err}
	}
	out.TxHash = txHash

	if _, err := r.signer.WaitForConfirmation(ctx, txHash, r.timeout); err != nil {
		return out, &RemediationError{Kind: ErrTransferRejected, Subject: rec.Subject, Contract: rec.Contract, Controller: before.CurrentController, TxHash: txHash, Cause: err}
	}

	// an included transaction can still leave state unchanged
	after, status, err := r.checker.Check(ctx, rec)
	if err != nil {
		return out, &RemediationError{Kind: ErrTransferRejected, Subject: rec.Subject, Contract: rec.Contract, Controller: before.CurrentController, TxHash: txHash, Cause: err}
	}
	out.After = after
	if status != Aligned {
		return out, &RemediationError{
			Kind:       ErrTransferRejected,
			Subject:    rec.Subject,
			Contract:   rec.Contract,
			Controller: after.CurrentController,
			TxHash:     txHash,
			Cause:      fmt.Errorf("controller is still %s after confirmation", after.CurrentController.Hex()),
		}
	}

	r.log.Info("Authority transferred", "subject", rec.Subject, "controller", after.CurrentController, "tx", txHash.Hex())
	return out, nil
}
