package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
	"github.com/workbenchapp/worknet-proposer/internal/service"
)

// DeploymentHandler handles deployment endpoints of a work group.
type DeploymentHandler struct {
	svc *service.WorkgroupService
}

// NewDeploymentHandler creates a new DeploymentHandler.
func NewDeploymentHandler(svc *service.WorkgroupService) *DeploymentHandler {
	return &DeploymentHandler{svc: svc}
}

// List lists the deployments of a work group.
func (h *DeploymentHandler) List(w http.ResponseWriter, r *http.Request) {
	deployments, err := h.svc.ListDeployments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, deployments)
}

// Create proposes a new deployment.
func (h *DeploymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDeploymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.CreateDeployment(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondResult(w, result)
}

// Close proposes removing a deployment.
func (h *DeploymentHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req domain.CloseRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.CloseDeployment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondResult(w, result)
}

// Schedule proposes scheduling one replica of a deployment on a device.
func (h *DeploymentHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req domain.ScheduleDeploymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.ScheduleDeployment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondResult(w, result)
}
