// Package chaintest provides an in-memory chain.Signer that understands the
// Ownable and ERC721 calls used by this module.
package chaintest

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"crosschainctl/chain"
	"crosschainctl/contracts"
)

type Tx struct {
	Hash  common.Hash
	To    common.Address
	Data  []byte
	Value *big.Int
}

type Chain struct {
	From common.Address
	ID   *big.Int

	Owners   map[common.Address]common.Address
	NoCode   map[common.Address]bool
	Names    map[common.Address]string
	Symbols  map[common.Address]string
	Balances map[common.Address]map[common.Address]int64

	SubmitErr error
	ReadErr   error
	// RevertAll makes every receipt fail.
	RevertAll bool
	// IgnoreTransfers lands ownership transfers without changing state.
	IgnoreTransfers bool
	// WithholdReceipts makes every confirmation wait time out.
	WithholdReceipts bool

	mu       sync.Mutex
	sent     []Tx
	receipts map[common.Hash]*ethtypes.Receipt
}

var _ chain.Signer = (*Chain)(nil)

func New(from common.Address) *Chain {
	return &Chain{
		From:     from,
		ID:       big.NewInt(97),
		Owners:   make(map[common.Address]common.Address),
		NoCode:   make(map[common.Address]bool),
		Names:    make(map[common.Address]string),
		Symbols:  make(map[common.Address]string),
		Balances: make(map[common.Address]map[common.Address]int64),
		receipts: make(map[common.Hash]*ethtypes.Receipt),
	}
}

func (c *Chain) Address() common.Address { return c.From }
func (c *Chain) ChainID() *big.Int       { return c.ID }

// Sent returns the transactions submitted so far.
func (c *Chain) Sent() []Tx {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Tx, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *Chain) HasCode(ctx context.Context, address common.Address) (bool, error) {
	if c.ReadErr != nil {
		return false, c.ReadErr
	}
	return !c.NoCode[address], nil
}

func (c *Chain) ReadContractState(ctx context.Context, address common.Address, query []byte) ([]byte, error) {
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if name, ok := contracts.MethodName(contracts.OwnableABI, query); ok && name == "owner" {
		return contracts.OwnableABI.Methods["owner"].Outputs.Pack(c.Owners[address])
	}
	if name, ok := contracts.MethodName(contracts.ERC721ABI, query); ok {
		switch name {
		case "name":
			return contracts.ERC721ABI.Methods["name"].Outputs.Pack(c.Names[address])
		case "symbol":
			return contracts.ERC721ABI.Methods["symbol"].Outputs.Pack(c.Symbols[address])
		case "balanceOf":
			args, err := contracts.ERC721ABI.Methods["balanceOf"].Inputs.Unpack(query[4:])
			if err != nil {
				return nil, err
			}
			holder := args[0].(common.Address)
			return contracts.ERC721ABI.Methods["balanceOf"].Outputs.Pack(big.NewInt(c.Balances[address][holder]))
		}
	}
	return nil, errors.New("execution reverted")
}

func (c *Chain) SubmitTransaction(ctx context.Context, to common.Address, payload []byte, value *big.Int) (common.Hash, error) {
	if c.SubmitErr != nil {
		return common.Hash{}, c.SubmitErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], uint64(len(c.sent)))
	hash := crypto.Keccak256Hash(c.From.Bytes(), nonce[:], payload)

	status := ethtypes.ReceiptStatusSuccessful
	if c.RevertAll {
		status = ethtypes.ReceiptStatusFailed
	} else if name, ok := contracts.MethodName(contracts.OwnableABI, payload); ok && name == "transferOwnership" {
		status = c.applyTransfer(to, payload)
	}

	c.sent = append(c.sent, Tx{Hash: hash, To: to, Data: payload, Value: value})
	c.receipts[hash] = &ethtypes.Receipt{
		Status:      status,
		TxHash:      hash,
		BlockNumber: big.NewInt(int64(len(c.sent))),
	}
	return hash, nil
}

// mimics Ownable's onlyOwner check
func (c *Chain) applyTransfer(contract common.Address, payload []byte) uint64 {
	newOwner, err := contracts.UnpackTransferOwnership(payload)
	if err != nil || c.Owners[contract] != c.From {
		return ethtypes.ReceiptStatusFailed
	}
	if !c.IgnoreTransfers {
		c.Owners[contract] = newOwner
	}
	return ethtypes.ReceiptStatusSuccessful
}

func (c *Chain) WaitForConfirmation(ctx context.Context, txHash common.Hash, timeout time.Duration) (*ethtypes.Receipt, error) {
	if c.WithholdReceipts {
		return nil, fmt.Errorf("tx %s: %w", txHash.Hex(), chain.ErrConfirmationTimeout)
	}
	c.mu.Lock()
	receipt, ok := c.receipts[txHash]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("tx %s: %w", txHash.Hex(), chain.ErrConfirmationTimeout)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("tx %s: %w", txHash.Hex(), chain.ErrReverted)
	}
	return receipt, nil
}
