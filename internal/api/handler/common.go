package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/workbenchapp/worknet-proposer/internal/agent"
	"github.com/workbenchapp/worknet-proposer/internal/domain"
	"github.com/workbenchapp/worknet-proposer/internal/validation"
	"github.com/workbenchapp/worknet-proposer/internal/worknet"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, &domain.APIError{
		Code:    status,
		Message: message,
	})
}

// respondResult writes a submission result. A failed submission is a 502 and
// an unconfirmed one a 202, both with the full result as body.
func respondResult(w http.ResponseWriter, result *domain.SubmissionResult) {
	switch result.Status {
	case domain.StatusSuccess:
		respondJSON(w, http.StatusOK, result)
	case domain.StatusUnconfirmed:
		respondJSON(w, http.StatusAccepted, result)
	default:
		respondJSON(w, http.StatusBadGateway, result)
	}
}

// handleError converts domain errors to HTTP errors.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		respondValidationErrors(w, verrs)
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, worknet.ErrNoLicenseTokens):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrGovernanceNotFound):
		respondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrContentFetch):
		respondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, agent.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logr.FromContextOrDiscard(r.Context()).Error(err, "request failed", "path", r.URL.Path)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

// decodeOptionalJSON decodes JSON from a request body that may be empty.
func decodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.ErrInvalidInput
	}
	return nil
}

// respondValidationErrors writes a JSON response for multiple validation errors.
func respondValidationErrors(w http.ResponseWriter, errs validation.ValidationErrors) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"errors": errs,
	})
}
