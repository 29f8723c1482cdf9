package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi"

	"crosschainctl/types"
	"crosschainctl/verifier"
)

// Balance reports the configured collection as seen by a holder.
func (h *Handlers) Balance(w http.ResponseWriter, r *http.Request) {
	holder := chi.URLParam(r, "holder")
	if !types.ValidAddress(holder) {
		responseError(w, "holder", "No ethereum address or invalid address provided", http.StatusBadRequest)
		return
	}
	if h.NFT == (common.Address{}) {
		responseError(w, "", "no collection configured", http.StatusNotFound)
		return
	}

	col, err := verifier.InspectCollection(r.Context(), h.Reader, h.NFT, common.HexToAddress(holder))
	if err != nil {
		h.Log.Error("Cannot inspect collection", "nft", h.NFT, "holder", holder, "err", err)
		responseError(w, "", "cannot read collection", http.StatusBadGateway)
		return
	}

	responseJSON(w, col, http.StatusOK)
}
