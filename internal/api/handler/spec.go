package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
	"github.com/workbenchapp/worknet-proposer/internal/service"
)

// SpecHandler handles spec endpoints of a work group.
type SpecHandler struct {
	svc *service.WorkgroupService
}

// NewSpecHandler creates a new SpecHandler.
func NewSpecHandler(svc *service.WorkgroupService) *SpecHandler {
	return &SpecHandler{svc: svc}
}

// List lists the specs of a work group.
func (h *SpecHandler) List(w http.ResponseWriter, r *http.Request) {
	specs, err := h.svc.ListSpecs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, specs)
}

// Create proposes a new spec.
func (h *SpecHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSpecRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.CreateSpec(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondResult(w, result)
}

// Close proposes removing a spec.
func (h *SpecHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req domain.CloseRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.CloseSpec(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondResult(w, result)
}
