package submit

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
)

// Reporter is notified as each step of a submission progresses.
type Reporter interface {
	Pending(ctx context.Context, sub *domain.Submission)
	Success(ctx context.Context, sub *domain.Submission)
	Failure(ctx context.Context, sub *domain.Submission)
}

// LogReporter writes submission progress to the context's logger.
type LogReporter struct{}

// Pending logs the step about to be sent.
func (LogReporter) Pending(ctx context.Context, sub *domain.Submission) {
	logr.FromContextOrDiscard(ctx).Info(sub.Step, "operation", sub.OperationID, "step", sub.StepIndex)
}

// Success logs a confirmed step, or one still waiting for confirmation.
func (LogReporter) Success(ctx context.Context, sub *domain.Submission) {
	log := logr.FromContextOrDiscard(ctx)
	if sub.Status == domain.StatusUnconfirmed {
		log.Info("transaction not confirmed in time", "operation", sub.OperationID,
			"signature", sub.Signature, "explorer", sub.ExplorerURL)
		return
	}
	log.Info("transaction confirmed", "operation", sub.OperationID, "signature", sub.Signature,
		"explorer", sub.ExplorerURL, "proposal", sub.ProposalURL)
}

// Failure logs a failed step with its classified message.
func (LogReporter) Failure(ctx context.Context, sub *domain.Submission) {
	logr.FromContextOrDiscard(ctx).Error(domain.ErrSubmissionFailed, sub.Message,
		"operation", sub.OperationID, "step", sub.Step, "inspect", sub.InspectorURL)
}
