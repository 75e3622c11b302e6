package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
	"github.com/workbenchapp/worknet-proposer/internal/service"
)

// WorkgroupHandler handles work group endpoints.
type WorkgroupHandler struct {
	svc *service.WorkgroupService
}

// NewWorkgroupHandler creates a new WorkgroupHandler.
func NewWorkgroupHandler(svc *service.WorkgroupService) *WorkgroupHandler {
	return &WorkgroupHandler{svc: svc}
}

// Create proposes a new work group.
func (h *WorkgroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateWorkGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.CreateWorkGroup(r.Context(), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondResult(w, result)
}

// Get reads a work group from the ledger.
func (h *WorkgroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, err := h.svc.GetWorkGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

// Close proposes closing a work group.
func (h *WorkgroupHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req domain.CloseRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.CloseWorkGroup(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondResult(w, result)
}
