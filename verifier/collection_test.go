package verifier

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosschainctl/chain/chaintest"
)

func Test_InspectCollection(t *testing.T) {
	c := chaintest.New(operator)
	c.Names[nft] = "UniversalAI NFT"
	c.Symbols[nft] = "UAIN"
	c.Balances[nft] = map[common.Address]int64{operator: 2}

	col, err := InspectCollection(context.Background(), c, nft, operator)
	require.NoError(t, err)
	assert.Equal(t, "UniversalAI NFT", col.Name)
	assert.Equal(t, "UAIN", col.Symbol)
	assert.Equal(t, int64(2), col.Balance.Int64())

	col, err = InspectCollection(context.Background(), c, nft, stranger)
	require.NoError(t, err)
	assert.Equal(t, 0, col.Balance.Sign())
}

func Test_InspectCollectionWithoutCode(t *testing.T) {
	c := chaintest.New(operator)
	c.NoCode[nft] = true

	_, err := InspectCollection(context.Background(), c, nft, operator)
	assert.ErrorContains(t, err, "no contract code")
}
