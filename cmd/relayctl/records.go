package main

import (
	"github.com/ethereum/go-ethereum/common"

	"crosschainctl/authority"
	"crosschainctl/config"
	"crosschainctl/verifier"
)

// authorityRecords lists the invariants to check: the deployment pair for
// the configured contracts followed by the configured extras.
func authorityRecords(cfg *config.Configuration, operator common.Address) []authority.Record {
	var records []authority.Record

	manager := common.HexToAddress(cfg.Contracts.Manager)
	switch {
	case cfg.Contracts.NFT != "" && cfg.Contracts.Manager != "":
		records = append(records, verifier.DeploymentRecords(common.HexToAddress(cfg.Contracts.NFT), manager, operator)...)
	case cfg.Contracts.Manager != "":
		records = append(records, verifier.DeploymentRecords(common.Address{}, manager, operator)[1])
	}

	for _, inv := range cfg.Invariants {
		var expected common.Address
		switch inv.Expected {
		case config.AliasOperator:
			expected = operator
		case config.AliasManager:
			expected = manager
		default:
			expected = common.HexToAddress(inv.Expected)
		}
		records = append(records, authority.Record{
			Subject:            inv.Subject,
			Contract:           common.HexToAddress(inv.Contract),
			ExpectedController: expected,
			LocalOperator:      operator,
		})
	}
	return records
}

func filterRecords(records []authority.Record, subject string) []authority.Record {
	if subject == "" {
		return records
	}
	var out []authority.Record
	for _, r := range records {
		if r.Subject == subject {
			out = append(out, r)
		}
	}
	return out
}
