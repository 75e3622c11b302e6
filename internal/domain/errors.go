package domain

import "errors"

// Common errors used throughout the application.
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrGovernanceNotFound  = errors.New("governance not found")
	ErrContentFetch        = errors.New("fetching spec content failed")
	ErrUnsignedTransaction = errors.New("transaction is not fully signed")
	ErrTransactionCount    = errors.New("unexpected number of transactions")
	ErrSubmissionFailed    = errors.New("submission failed")
	ErrConfirmationTimeout = errors.New("transaction not confirmed in time")
)

// APIError represents an error response from the API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}
