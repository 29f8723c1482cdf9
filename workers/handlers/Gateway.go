package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"crosschainctl/resolver"
)

// Gateway resolves the gateway binding for a network, optionally by chain id.
func (h *Handlers) Gateway(w http.ResponseWriter, r *http.Request) {
	network := chi.URLParam(r, "network")

	var chainID uint64
	if s := r.URL.Query().Get("chainId"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			responseError(w, "chainId", "chainId must be a decimal integer", http.StatusBadRequest)
			return
		}
		chainID = id
	}

	reg, err := h.Registry()
	if err != nil {
		h.Log.Error("Cannot load registry", "err", err)
		responseError(w, "", "registry unavailable", http.StatusInternalServerError)
		return
	}

	binding, err := resolver.Resolve(reg, network, chainID, h.Override)
	if errors.Is(err, resolver.ErrNoGatewayFound) {
		responseError(w, "network", err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		responseError(w, "network", err.Error(), http.StatusInternalServerError)
		return
	}

	responseJSON(w, binding, http.StatusOK)
}
