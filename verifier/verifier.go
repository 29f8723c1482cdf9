package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"crosschainctl/authority"
	"crosschainctl/chain"
)

type Entry struct {
	Subject string           `json:"subject"`
	Status  authority.Status `json:"status"`
	Detail  string           `json:"detail"`
	Record  authority.Record `json:"record"`
}

type Report struct {
	ID         string    `json:"id"`
	CheckedAt  time.Time `json:"checkedAt"`
	Entries    []Entry   `json:"entries"`
	AllAligned bool      `json:"allAligned"`
}

// Verifier checks a set of authority invariants. It only reads.
type Verifier struct {
	reader  chain.Reader
	checker *authority.Checker
	log     log.Logger
}

func New(reader chain.Reader, logger log.Logger) *Verifier {
	return &Verifier{
		reader:  reader,
		checker: authority.NewChecker(reader, logger),
		log:     logger,
	}
}

// VerifyAll checks every record in order. A record that cannot be read is
// reported as Unknown with the read error as detail.
func (v *Verifier) VerifyAll(ctx context.Context, records []authority.Record) Report {
	report := Report{
		ID:         uuid.New().String(),
		CheckedAt:  time.Now().UTC(),
		Entries:    make([]Entry, 0, len(records)),
		AllAligned: true,
	}

	for _, rec := range records {
		entry := v.verifyOne(ctx, rec)
		if entry.Status != authority.Aligned {
			report.AllAligned = false
		}
		report.Entries = append(report.Entries, entry)
	}

	v.log.Info("Verified deployment", "records", len(records), "allAligned", report.AllAligned)
	return report
}

func (v *Verifier) verifyOne(ctx context.Context, rec authority.Record) Entry {
	entry := Entry{Subject: rec.Subject, Status: authority.Unknown, Record: rec}

	hasCode, err := v.reader.HasCode(ctx, rec.Contract)
	if err != nil {
		entry.Detail = fmt.Sprintf("cannot read code at %s: %s", rec.Contract.Hex(), err)
		return entry
	}
	if !hasCode {
		entry.Detail = fmt.Sprintf("no contract code at %s", rec.Contract.Hex())
		return entry
	}

	checked, status, err := v.checker.Check(ctx, rec)
	if err != nil {
		entry.Detail = err.Error()
		return entry
	}
	entry.Record = checked
	entry.Status = status
	entry.Detail = describe(checked, status)

	if status != authority.Aligned {
		v.log.Warn("Authority invariant violated", "subject", rec.Subject, "status", status, "detail", entry.Detail)
	}
	return entry
}

func describe(rec authority.Record, status authority.Status) string {
	switch status {
	case authority.Aligned:
		return fmt.Sprintf("controller %s is the expected controller", rec.CurrentController.Hex())
	case authority.NeedsRemediation:
		return fmt.Sprintf("controller is still the operator %s, expected %s; run remediation", rec.CurrentController.Hex(), rec.ExpectedController.Hex())
	default:
		return fmt.Sprintf("controller %s is neither the expected %s nor the operator %s; manual review required",
			rec.CurrentController.Hex(), rec.ExpectedController.Hex(), rec.LocalOperator.Hex())
	}
}

// DeploymentRecords returns the invariants of a manager/collection
// deployment: the manager controls the collection, and the operator
// controls the manager.
func DeploymentRecords(nft, manager, operator common.Address) []authority.Record {
	return []authority.Record{
		{
			Subject:            "nft authority belongs to manager",
			Contract:           nft,
			ExpectedController: manager,
			LocalOperator:      operator,
		},
		{
			Subject:            "manager ownership belongs to operator",
			Contract:           manager,
			ExpectedController: operator,
			LocalOperator:      operator,
		},
	}
}
