package handler

import (
	"net/http"

	"github.com/workbenchapp/worknet-proposer/internal/service"
)

// ProposerHandler reports the active proposer.
type ProposerHandler struct {
	svc *service.WorkgroupService
}

// NewProposerHandler creates a new ProposerHandler.
func NewProposerHandler(svc *service.WorkgroupService) *ProposerHandler {
	return &ProposerHandler{svc: svc}
}

// Get returns the proposer kind, wallet and payer.
func (h *ProposerHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.ProposerInfo(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}
