package verifier

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"crosschainctl/chain"
	"crosschainctl/contracts"
)

// Collection is what a holder sees of an NFT contract.
type Collection struct {
	Contract common.Address `json:"contract"`
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Holder   common.Address `json:"holder"`
	Balance  *big.Int       `json:"balance"`
}

// InspectCollection reads name, symbol and the holder's balance. It fails
// if there is no contract at the address.
func InspectCollection(ctx context.Context, reader chain.Reader, nft, holder common.Address) (*Collection, error) {
	hasCode, err := reader.HasCode(ctx, nft)
	if err != nil {
		return nil, fmt.Errorf("cannot read code at %s: %w", nft.Hex(), err)
	}
	if !hasCode {
		return nil, fmt.Errorf("no contract code at %s", nft.Hex())
	}

	c := &Collection{Contract: nft, Holder: holder}

	for method, dst := range map[string]*string{"name": &c.Name, "symbol": &c.Symbol} {
		query, err := contracts.ERC721ABI.Pack(method)
		if err != nil {
			return nil, err
		}
		out, err := reader.ReadContractState(ctx, nft, query)
		if err != nil {
			return nil, fmt.Errorf("%s() on %s: %w", method, nft.Hex(), err)
		}
		if *dst, err = contracts.UnpackString(method, out); err != nil {
			return nil, err
		}
	}

	query, err := contracts.PackBalanceOf(holder)
	if err != nil {
		return nil, err
	}
	out, err := reader.ReadContractState(ctx, nft, query)
	if err != nil {
		return nil, fmt.Errorf("balanceOf(%s) on %s: %w", holder.Hex(), nft.Hex(), err)
	}
	if c.Balance, err = contracts.UnpackBalance(out); err != nil {
		return nil, err
	}

	return c, nil
}
