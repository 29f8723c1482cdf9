package authority

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"crosschainctl/chain"
	"crosschainctl/contracts"
)

type Status int

const (
	// Aligned: the expected controller holds authority.
	Aligned Status = iota
	// NeedsRemediation: the local operator still holds authority and can
	// hand it over.
	NeedsRemediation
	// Unknown: a third party holds authority. Never fixed automatically.
	Unknown
)

func (s Status) String() string {
	switch s {
	case Aligned:
		return "Aligned"
	case NeedsRemediation:
		return "NeedsRemediation"
	case Unknown:
		return "Unknown"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Record describes who should and who does control a governed contract.
type Record struct {
	Subject            string         `json:"subject"`
	Contract           common.Address `json:"contract"`
	ExpectedController common.Address `json:"expectedController"`
	CurrentController  common.Address `json:"currentController"`
	LocalOperator      common.Address `json:"localOperator"`
}

// Status derives the classification from the controller fields.
func (r Record) Status() Status {
	return Classify(r.CurrentController, r.ExpectedController, r.LocalOperator)
}

// Classify is total over all address triples. Aligned takes precedence, so
// current == expected == local is Aligned. A zero local operator never
// holds authority, so a renounced contract with no operator is Unknown.
func Classify(current, expected, local common.Address) Status {
	switch {
	case current == expected:
		return Aligned
	case current == local && local != (common.Address{}):
		return NeedsRemediation
	default:
		return Unknown
	}
}

// Checker reads the controlling identity of governed contracts.
type Checker struct {
	reader chain.Reader
	log    log.Logger
}

func NewChecker(reader chain.Reader, logger log.Logger) *Checker {
	return &Checker{reader: reader, log: logger}
}

// Check reads owner() of rec.Contract from live state and returns rec with
// CurrentController filled in.
func (c *Checker) Check(ctx context.Context, rec Record) (Record, Status, error) {
	query, err := contracts.PackOwner()
	if err != nil {
		return rec, Unknown, err
	}

	out, err := c.reader.ReadContractState(ctx, rec.Contract, query)
	if err != nil {
		return rec, Unknown, fmt.Errorf("cannot read controller of %s (%s): %w", rec.Subject, rec.Contract.Hex(), err)
	}

	current, err := contracts.UnpackOwner(out)
	if err != nil {
		return rec, Unknown, fmt.Errorf("%s (%s): %w", rec.Subject, rec.Contract.Hex(), err)
	}

	rec.CurrentController = current
	status := rec.Status()

	c.log.Debug("Checked authority",
		"subject", rec.Subject,
		"contract", rec.Contract,
		"current", current,
		"expected", rec.ExpectedController,
		"status", status,
	)

	return rec, status, nil
}
