package domain

import (
	"fmt"
	"time"
)

// SubmissionStatus is the lifecycle state of a submitted transaction.
type SubmissionStatus string

const (
	StatusPending     SubmissionStatus = "pending"
	StatusSuccess     SubmissionStatus = "success"
	StatusFailed      SubmissionStatus = "failed"
	StatusUnconfirmed SubmissionStatus = "unconfirmed"
)

// Submission is the journal record of one transaction sent to the ledger.
// Governed operations produce two, one per proposal step.
type Submission struct {
	ID           string           `json:"id" db:"id"`
	OperationID  string           `json:"operation_id" db:"operation_id"`
	Operation    string           `json:"operation" db:"operation"`
	Kind         string           `json:"kind" db:"kind"`
	Step         string           `json:"step" db:"step"`
	StepIndex    int              `json:"step_index" db:"step_index"`
	Status       SubmissionStatus `json:"status" db:"status"`
	Signature    string           `json:"signature,omitempty" db:"signature"`
	Message      string           `json:"message,omitempty" db:"message"`
	Logs         string           `json:"logs,omitempty" db:"logs"` // newline separated
	ExplorerURL  string           `json:"explorer_url,omitempty" db:"explorer_url"`
	InspectorURL string           `json:"inspector_url,omitempty" db:"inspector_url"`
	ProposalURL  string           `json:"proposal_url,omitempty" db:"proposal_url"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	SubmittedBy  string           `json:"submitted_by,omitempty" db:"submitted_by"`
}

// SubmissionResult is the outcome of submitting every transaction of an
// operation.
type SubmissionResult struct {
	OperationID string            `json:"operation_id"`
	Operation   string            `json:"operation"`
	Kind        string            `json:"kind"`
	Status      SubmissionStatus  `json:"status"`
	Message     string            `json:"message,omitempty"`
	ProposalURL string            `json:"proposal_url,omitempty"`
	Addresses   map[string]string `json:"addresses,omitempty"`
	Steps       []*Submission     `json:"steps"`
}

// Err returns nil for a successful result and an error wrapping
// ErrSubmissionFailed or ErrConfirmationTimeout otherwise.
func (r *SubmissionResult) Err() error {
	switch r.Status {
	case StatusSuccess:
		return nil
	case StatusUnconfirmed:
		return fmt.Errorf("%s: %w", r.Operation, ErrConfirmationTimeout)
	default:
		return fmt.Errorf("%s: %w: %s", r.Operation, ErrSubmissionFailed, r.Message)
	}
}
