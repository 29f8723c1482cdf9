package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrConfirmationTimeout = errors.New("transaction not confirmed before timeout")
	ErrReverted            = errors.New("transaction reverted")
)

// Reader performs side-effect free contract queries.
type Reader interface {
	// ReadContractState executes an eth_call against the latest state.
	ReadContractState(ctx context.Context, address common.Address, query []byte) ([]byte, error)
	HasCode(ctx context.Context, address common.Address) (bool, error)
}

// Signer submits state-mutating transactions under a single identity.
// Callers serialize submissions per signer with LockSigner.
type Signer interface {
	Reader
	Address() common.Address
	ChainID() *big.Int
	SubmitTransaction(ctx context.Context, to common.Address, payload []byte, value *big.Int) (common.Hash, error)
	// WaitForConfirmation returns ErrConfirmationTimeout if no receipt shows up
	// within timeout, and the receipt together with ErrReverted if it failed.
	WaitForConfirmation(ctx context.Context, txHash common.Hash, timeout time.Duration) (*ethtypes.Receipt, error)
}

var signerLocks sync.Map // common.Address -> *sync.Mutex

// LockSigner blocks until no other mutating operation holds addr and
// returns the matching unlock function.
func LockSigner(addr common.Address) func() {
	v, _ := signerLocks.LoadOrStore(addr, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
