package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
	"github.com/workbenchapp/worknet-proposer/internal/service"
)

// DeviceHandler handles device endpoints of a work group.
type DeviceHandler struct {
	svc *service.WorkgroupService
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(svc *service.WorkgroupService) *DeviceHandler {
	return &DeviceHandler{svc: svc}
}

// List lists the devices of a work group.
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.ListDevices(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, devices)
}

// Register proposes registering a device. An empty body registers the local
// agent's device.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterDeviceRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.RegisterDevice(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondResult(w, result)
}

// Close proposes removing a device.
func (h *DeviceHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req domain.CloseRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.CloseDevice(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "authority"), &req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondResult(w, result)
}
