package handler

import (
	"net/http"

	"github.com/workbenchapp/worknet-proposer/internal/agent"
)

// AgentHandler proxies read-only data from the local device agent.
type AgentHandler struct {
	client *agent.Client
}

// NewAgentHandler creates a new AgentHandler. client may be nil when no agent
// is configured.
func NewAgentHandler(client *agent.Client) *AgentHandler {
	return &AgentHandler{client: client}
}

func (h *AgentHandler) ready(w http.ResponseWriter) bool {
	if h.client == nil {
		respondError(w, http.StatusServiceUnavailable, "no device agent configured")
		return false
	}
	return true
}

// Device returns the agent's device info. ?proxy= asks for another device.
func (h *AgentHandler) Device(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	info, err := h.client.Device(r.Context(), r.URL.Query().Get("proxy"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// WireGuard returns the agent's wireguard state as reported.
func (h *AgentHandler) WireGuard(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	state, err := h.client.WireGuard(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// Endpoints returns the service endpoints the agent exposes.
func (h *AgentHandler) Endpoints(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	endpoints, err := h.client.Endpoints(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, endpoints)
}
