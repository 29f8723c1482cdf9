package handlers

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"crosschainctl/authority"
	"crosschainctl/chain"
	"crosschainctl/registry"
	"crosschainctl/types"
	"crosschainctl/verifier"
)

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

type Store interface {
	Ping() error
	FindAllSubmissionsByStatus(status string) ([]*types.Submission, error)
	SaveReport(report interface{}) error
	LastReport() (json.RawMessage, error)
}

type Verifier interface {
	VerifyAll(ctx context.Context, records []authority.Record) verifier.Report
}

// Handlers serves the read-only API. Nothing reachable from here signs or
// submits a transaction.
type Handlers struct {
	Store    Store
	Verifier Verifier
	Reader   chain.Reader
	// Registry returns a fresh registry view for every request.
	Registry func() (registry.Registry, error)
	Override string
	Records  []authority.Record
	NFT      common.Address
	Log      log.Logger
}
