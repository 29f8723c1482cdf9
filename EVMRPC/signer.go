package EVMRPC

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"crosschainctl/chain"
)

const defaultPollInterval = 2 * time.Second

// Signer submits transactions with a local private key.
type Signer struct {
	*Reader

	key          *ecdsa.PrivateKey
	address      common.Address
	chainID      *big.Int
	pollInterval time.Duration
	log          log.Logger
}

var _ chain.Signer = (*Signer)(nil)

func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, errors.New("empty private key")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("error instantiating private key: %w", err)
	}
	return key, nil
}

// NewSigner loads the key and asks the network for its chain id. If
// expectedChainID is non-zero it must match.
func NewSigner(ctx context.Context, rpcList []string, privateKey string, expectedChainID uint64, logger log.Logger) (*Signer, error) {
	key, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	reader := NewReader(rpcList)
	chainID, err := WithClient(ctx, rpcList, func(client *ethclient.Client) (*big.Int, error) {
		return client.ChainID(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("error getting chain id: %w", err)
	}
	if expectedChainID != 0 && chainID.Uint64() != expectedChainID {
		return nil, fmt.Errorf("RPC reports chain id %s, configured %d", chainID, expectedChainID)
	}

	s := &Signer{
		Reader:       reader,
		key:          key,
		address:      crypto.PubkeyToAddress(key.PublicKey),
		chainID:      chainID,
		pollInterval: defaultPollInterval,
		log:          logger,
	}
	logger.Info("Signer ready", "address", s.address, "chainId", chainID)
	return s, nil
}

func (s *Signer) Address() common.Address { return s.address }

func (s *Signer) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

// SubmitTransaction signs and broadcasts one legacy transaction through a
// single endpoint. It is never retried: a failed send may still have been
// accepted by the node.
func (s *Signer) SubmitTransaction(ctx context.Context, to common.Address, payload []byte, value *big.Int) (common.Hash, error) {
	if value == nil {
		value = big.NewInt(0)
	}

	client, url, err := s.dial(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	defer client.Close()

	nonce, err := client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("error getting nonce for wallet: %w", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("error getting suggested gas price: %w", err)
	}

	// a revert here means the call would fail on chain; nothing is sent
	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:     s.address,
		To:       &to,
		GasPrice: gasPrice,
		Value:    value,
		Data:     payload,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("error estimating gas: %w", err)
	}
	gas = gas * 12 / 10

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     payload,
	})
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("error signing transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("error sending transaction via %s: %w", url, err)
	}

	s.log.Info("Transaction sent", "tx", signed.Hash().Hex(), "to", to, "nonce", nonce, "gas", gas, "gasPrice", gasPrice)
	return signed.Hash(), nil
}

// WaitForConfirmation polls for the receipt until it appears, ctx is done or
// timeout elapses. A zero timeout waits as long as ctx allows.
func (s *Signer) WaitForConfirmation(ctx context.Context, txHash common.Hash, timeout time.Duration) (*ethtypes.Receipt, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := WithClient(ctx, s.rpcList, func(client *ethclient.Client) (*ethtypes.Receipt, error) {
			return client.TransactionReceipt(ctx, txHash)
		})
		if err == nil {
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("tx %s in block %s: %w", txHash.Hex(), receipt.BlockNumber, chain.ErrReverted)
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			s.log.Debug("Error fetching receipt", "tx", txHash.Hex(), "err", err)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("tx %s: %w", txHash.Hex(), chain.ErrConfirmationTimeout)
			}
			return nil, fmt.Errorf("tx %s: stopped waiting: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
