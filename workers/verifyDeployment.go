package workers

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"crosschainctl/authority"
	"crosschainctl/verifier"
)

type ReportStore interface {
	SaveReport(report interface{}) error
}

type Verifier interface {
	VerifyAll(ctx context.Context, records []authority.Record) verifier.Report
}

// VerifyWorker re-checks the authority invariants on a schedule. Misaligned
// entries are only reported.
type VerifyWorker struct {
	verifier Verifier
	store    ReportStore
	records  []authority.Record
	log      log.Logger
}

func NewVerifyWorker(v Verifier, store ReportStore, records []authority.Record, logger log.Logger) *VerifyWorker {
	return &VerifyWorker{verifier: v, store: store, records: records, log: logger}
}

func (w *VerifyWorker) RunOnce(ctx context.Context) verifier.Report {
	report := w.verifier.VerifyAll(ctx, w.records)

	for _, e := range report.Entries {
		switch e.Status {
		case authority.Aligned:
		case authority.NeedsRemediation:
			w.log.Warn("Invariant needs remediation", "subject", e.Subject, "contract", e.Record.Contract, "detail", e.Detail)
		default:
			w.log.Error("Invariant in unknown state", "subject", e.Subject, "contract", e.Record.Contract, "detail", e.Detail)
		}
	}

	if err := w.store.SaveReport(report); err != nil {
		w.log.Error("Cannot store verification report", "id", report.ID, "err", err)
	}

	w.log.Info("Deployment verified", "id", report.ID, "entries", len(report.Entries), "allAligned", report.AllAligned)
	return report
}

func (w *VerifyWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		w.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
