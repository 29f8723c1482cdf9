package handlers

import (
	"net/http"
)

// Verify runs the deployment verification now and stores the report.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	report := h.Verifier.VerifyAll(r.Context(), h.Records)

	if err := h.Store.SaveReport(report); err != nil {
		// the caller still gets the fresh report
		h.Log.Error("Cannot store verification report", "id", report.ID, "err", err)
	}

	responseJSON(w, report, http.StatusOK)
}

func (h *Handlers) LastReport(w http.ResponseWriter, r *http.Request) {
	raw, err := h.Store.LastReport()
	if err != nil {
		responseError(w, "", "storage unavailable", http.StatusInternalServerError)
		return
	}
	if raw == nil {
		responseError(w, "", "no verification has run yet", http.StatusNotFound)
		return
	}
	responseRaw(w, raw, http.StatusOK)
}
