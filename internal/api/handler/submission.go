package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/workbenchapp/worknet-proposer/internal/storage"
	"github.com/workbenchapp/worknet-proposer/internal/validation"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// SubmissionHandler serves the submission journal.
type SubmissionHandler struct {
	store storage.Storage
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(store storage.Storage) *SubmissionHandler {
	return &SubmissionHandler{store: store}
}

// List lists journaled submissions, newest first. ?operation= narrows the
// list to the steps of one operation.
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	if op := r.URL.Query().Get("operation"); op != "" {
		subs, err := h.store.ListSubmissionsForOperation(r.Context(), op)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, subs)
		return
	}

	var errs validation.ValidationErrors
	limit := queryInt(r, "limit", defaultPageSize, &errs)
	offset := queryInt(r, "offset", 0, &errs)
	if limit < 1 || limit > maxPageSize {
		errs.Reject("limit", strconv.Itoa(limit), validation.CodeOutOfRange, "must be between 1 and "+strconv.Itoa(maxPageSize))
	}
	if offset < 0 {
		errs.Reject("offset", strconv.Itoa(offset), validation.CodeOutOfRange, "must not be negative")
	}
	if errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}

	subs, err := h.store.ListSubmissions(r.Context(), limit, offset)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, subs)
}

// Get returns one journaled submission.
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.store.GetSubmission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func queryInt(r *http.Request, name string, def int, errs *validation.ValidationErrors) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		errs.Reject(name, raw, validation.CodeInvalid, "must be an integer")
		return def
	}
	return n
}
