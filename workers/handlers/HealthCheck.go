package handlers

import (
	"net/http"
)

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(); err != nil {
		h.Log.Warn("Health check failed", "err", err)
		responseError(w, "", "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	responseJSON(w, &APIResponse{
		Status: "ok",
	}, http.StatusOK)
}
