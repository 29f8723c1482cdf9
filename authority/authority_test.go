package authority

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosschainctl/chain"
	"crosschainctl/chain/chaintest"
)

var (
	addrA = common.HexToAddress("0xAAA")
	addrB = common.HexToAddress("0xBBB")
	addrC = common.HexToAddress("0xCCC")
	nft   = common.HexToAddress("0xB7277D1C77B6239910f0F67ad72A23cB13a6Df66")
)

func Test_ClassifyTable(t *testing.T) {
	cases := []struct {
		current, expected, local common.Address
		want                     Status
	}{
		{addrB, addrB, addrA, Aligned},
		{addrA, addrA, addrA, Aligned},
		{addrA, addrB, addrA, NeedsRemediation},
		{addrC, addrB, addrA, Unknown},
		{common.Address{}, addrB, addrA, Unknown},
		{addrA, addrA, addrB, Aligned},
		{addrB, addrA, addrB, NeedsRemediation},
		{common.Address{}, addrB, common.Address{}, Unknown},
		{common.Address{}, common.Address{}, common.Address{}, Aligned},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.current, tc.expected, tc.local),
			"current=%s expected=%s local=%s", tc.current.Hex(), tc.expected.Hex(), tc.local.Hex())
	}

	// the table is total: every triple drawn from {A,B,C} lands in exactly one class
	addrs := []common.Address{addrA, addrB, addrC}
	for _, cur := range addrs {
		for _, exp := range addrs {
			for _, loc := range addrs {
				got := Classify(cur, exp, loc)
				switch {
				case cur == exp:
					assert.Equal(t, Aligned, got)
				case cur == loc:
					assert.Equal(t, NeedsRemediation, got)
				default:
					assert.Equal(t, Unknown, got)
				}
			}
		}
	}
}

func Test_StatusText(t *testing.T) {
	b, err := NeedsRemediation.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "NeedsRemediation", string(b))
	assert.Equal(t, "Status(9)", Status(9).String())
}

func nftRecord() Record {
	return Record{Subject: "nft", Contract: nft, ExpectedController: addrB, LocalOperator: addrA}
}

func Test_CheckRenouncedWithoutOperator(t *testing.T) {
	c := chaintest.New(addrA)

	rec := Record{Subject: "nft", Contract: nft, ExpectedController: addrB}
	checked, status, err := NewChecker(c, log.New()).Check(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, checked.CurrentController)
	assert.Equal(t, Unknown, status)
}

func Test_CheckReadsLiveController(t *testing.T) {
	c := chaintest.New(addrA)
	c.Owners[nft] = addrC

	rec, status, err := NewChecker(c, log.New()).Check(context.Background(), nftRecord())
	require.NoError(t, err)
	assert.Equal(t, Unknown, status)
	assert.Equal(t, addrC, rec.CurrentController)

	c.Owners[nft] = addrB
	rec, status, err = NewChecker(c, log.New()).Check(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, Aligned, status)
	assert.Equal(t, addrB, rec.CurrentController)
}

func Test_CheckReadError(t *testing.T) {
	c := chaintest.New(addrA)
	c.ReadErr = errors.New("connection refused")

	_, status, err := NewChecker(c, log.New()).Check(context.Background(), nftRecord())
	require.Error(t, err)
	assert.Equal(t, Unknown, status)
	assert.Contains(t, err.Error(), nft.Hex())
}

func Test_RemediateHandsOverAuthority(t *testing.T) {
	c := chaintest.New(addrA)
	c.Owners[nft] = addrA

	checker := NewChecker(c, log.New())
	_, status, err := checker.Check(context.Background(), nftRecord())
	require.NoError(t, err)
	require.Equal(t, NeedsRemediation, status)

	out, err := NewRemediator(c, time.Second, log.New()).Remediate(context.Background(), nftRecord())
	require.NoError(t, err)
	assert.False(t, out.NoOp())
	assert.Equal(t, addrA, out.Before.CurrentController)
	assert.Equal(t, addrB, out.After.CurrentController)
	require.Len(t, c.Sent(), 1)
	assert.Equal(t, nft, c.Sent()[0].To)

	rec, status, err := checker.Check(context.Background(), nftRecord())
	require.NoError(t, err)
	assert.Equal(t, Aligned, status)
	assert.Equal(t, addrB, rec.CurrentController)
}

func Test_RemediateIsIdempotent(t *testing.T) {
	c := chaintest.New(addrA)
	c.Owners[nft] = addrA
	r := NewRemediator(c, time.Second, log.New())

	_, err := r.Remediate(context.Background(), nftRecord())
	require.NoError(t, err)
	require.Len(t, c.Sent(), 1)

	out, err := r.Remediate(context.Background(), nftRecord())
	require.NoError(t, err)
	assert.True(t, out.NoOp())
	assert.Len(t, c.Sent(), 1)
}

func Test_RemediateRefusesThirdParty(t *testing.T) {
	c := chaintest.New(addrA)
	c.Owners[nft] = addrC

	_, err := NewRemediator(c, time.Second, log.New()).Remediate(context.Background(), nftRecord())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRefusedUnknown))
	assert.Contains(t, err.Error(), addrC.Hex())
	assert.Empty(t, c.Sent())
}

func Test_RemediateOperatorMismatch(t *testing.T) {
	c := chaintest.New(addrC)
	c.Owners[nft] = addrA

	_, err := NewRemediator(c, time.Second, log.New()).Remediate(context.Background(), nftRecord())
	assert.True(t, errors.Is(err, ErrOperatorMismatch))
	assert.Empty(t, c.Sent())
}

func Test_RemediateTransferFailures(t *testing.T) {
	cases := []struct {
		name  string
		setup func(c *chaintest.Chain)
		cause error
	}{
		{"submission rejected", func(c *chaintest.Chain) { c.SubmitErr = errors.New("nonce too low") }, nil},
		{"reverted", func(c *chaintest.Chain) { c.RevertAll = true }, chain.ErrReverted},
		{"not confirmed", func(c *chaintest.Chain) { c.WithholdReceipts = true }, chain.ErrConfirmationTimeout},
		{"landed without effect", func(c *chaintest.Chain) { c.IgnoreTransfers = true }, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := chaintest.New(addrA)
			c.Owners[nft] = addrA
			tc.setup(c)

			_, err := NewRemediator(c, time.Millisecond, log.New()).Remediate(context.Background(), nftRecord())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTransferRejected), "got %v", err)
			if tc.cause != nil {
				assert.True(t, errors.Is(err, tc.cause))
			}
			assert.Equal(t, addrA, c.Owners[nft])
		})
	}
}
