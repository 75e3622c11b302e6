package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-logr/logr"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
	"github.com/workbenchapp/worknet-proposer/internal/storage"
	"github.com/workbenchapp/worknet-proposer/internal/validation"
)

// APIKeyHandler issues and revokes the keys operators propose with.
type APIKeyHandler struct {
	store storage.Storage
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(store storage.Storage) *APIKeyHandler {
	return &APIKeyHandler{store: store}
}

// Create issues a key. Its secret is only in this response.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	var errs validation.ValidationErrors
	if !errs.Check("name", req.Name, validation.ValidateKeyName(name)) {
		respondValidationErrors(w, errs)
		return
	}

	issued, err := domain.GenerateAPIKey(name, time.Now())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := h.store.CreateAPIKey(r.Context(), &issued.APIKey); err != nil {
		handleError(w, r, err)
		return
	}

	logr.FromContextOrDiscard(r.Context()).Info("Issued API key", "key", issued.KeyPrefix, "name", issued.Name)
	respondJSON(w, http.StatusCreated, issued)
}

// List lists the stored keys without their secrets.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, keys)
}

// Delete revokes a key. Submissions it made keep its prefix as their actor.
// Revoking the last key lets the bootstrap key in again.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteAPIKey(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}

	logr.FromContextOrDiscard(r.Context()).Info("Revoked API key", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
