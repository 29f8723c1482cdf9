package EVMRPC

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"crosschainctl/chain"
)

var errNoEndpoints = errors.New("no RPC endpoints configured")

// WithClient runs f against each endpoint in turn until one succeeds. Only
// use it for reads: a mutating call must not be replayed on another node.
func WithClient[T any](ctx context.Context, rpcList []string, f func(client *ethclient.Client) (T, error)) (res T, err error) {
	err = errNoEndpoints
	var client *ethclient.Client
	for _, url := range rpcList {
		client, err = ethclient.DialContext(ctx, url)
		if err != nil {
			log.Warn("Error connecting to RPC", "url", url, "err", err)
			continue
		}

		res, err = f(client)
		client.Close()
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
	return
}

// Reader implements chain.Reader over a list of equivalent endpoints.
type Reader struct {
	rpcList []string
}

var _ chain.Reader = (*Reader)(nil)

func NewReader(rpcList []string) *Reader {
	return &Reader{rpcList: rpcList}
}

func (r *Reader) ReadContractState(ctx context.Context, address common.Address, query []byte) ([]byte, error) {
	return WithClient(ctx, r.rpcList, func(client *ethclient.Client) ([]byte, error) {
		return client.CallContract(ctx, ethereum.CallMsg{To: &address, Data: query}, nil)
	})
}

func (r *Reader) HasCode(ctx context.Context, address common.Address) (bool, error) {
	code, err := WithClient(ctx, r.rpcList, func(client *ethclient.Client) ([]byte, error) {
		return client.CodeAt(ctx, address, nil)
	})
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// TransactionReceipt returns ethereum.NotFound while the transaction is
// pending on every endpoint.
func (r *Reader) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return WithClient(ctx, r.rpcList, func(client *ethclient.Client) (*ethtypes.Receipt, error) {
		return client.TransactionReceipt(ctx, txHash)
	})
}

// dial returns the first endpoint that accepts a connection.
func (r *Reader) dial(ctx context.Context) (*ethclient.Client, string, error) {
	var lastErr error = errNoEndpoints
	for _, url := range r.rpcList {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			log.Warn("Error connecting to RPC", "url", url, "err", err)
			lastErr = err
			continue
		}
		return client, url, nil
	}
	return nil, "", fmt.Errorf("cannot connect to any RPC endpoint: %w", lastErr)
}
