package handlers

import (
	"net/http"

	"github.com/go-chi/chi"

	"crosschainctl/types"
)

func (h *Handlers) GetSubmissions(w http.ResponseWriter, r *http.Request) {
	status := chi.URLParam(r, "status")

	known := false
	for _, s := range types.SubmissionStatuses {
		known = known || s == status
	}
	if !known {
		responseError(w, "status", "unknown submission status", http.StatusBadRequest)
		return
	}

	subs, err := h.Store.FindAllSubmissionsByStatus(status)
	if err != nil {
		h.Log.Error("Cannot list submissions", "status", status, "err", err)
		responseError(w, "", "storage unavailable", http.StatusInternalServerError)
		return
	}

	responseJSON(w, subs, http.StatusOK)
}
