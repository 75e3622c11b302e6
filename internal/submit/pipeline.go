// Package submit sends signed proposal transactions to the ledger in order,
// waits for each to confirm and journals every step.
package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
	"github.com/workbenchapp/worknet-proposer/internal/ledger"
	"github.com/workbenchapp/worknet-proposer/internal/proposer"
	"github.com/workbenchapp/worknet-proposer/internal/storage"
	"github.com/workbenchapp/worknet-proposer/internal/wallet"
)

const (
	// DefaultConfirmTimeout bounds the wait for one transaction to confirm.
	DefaultConfirmTimeout = 90 * time.Second
	// DefaultPollInterval is the delay between signature status queries.
	DefaultPollInterval = 500 * time.Millisecond
)

var errNotConfirmed = errors.New("transaction not confirmed yet")

// Options tunes a Pipeline. Zero values take the defaults.
type Options struct {
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	Reporter       Reporter
}

// Pipeline submits the transactions of a proposal.
type Pipeline struct {
	submitter ledger.Submitter
	endpoint  string
	store     storage.Storage
	opts      Options
	now       func() time.Time
}

// New creates a pipeline sending through submitter. endpoint is the RPC URL
// used for explorer links.
func New(submitter ledger.Submitter, endpoint string, store storage.Storage, opts Options) *Pipeline {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Reporter == nil {
		opts.Reporter = LogReporter{}
	}
	return &Pipeline{
		submitter: submitter,
		endpoint:  endpoint,
		store:     store,
		opts:      opts,
		now:       time.Now,
	}
}

// step is one transaction of an operation with its progress label.
type step struct {
	label string
	tx    *solana.Transaction
}

func steps(operation string, details *proposer.ProposalDetails) ([]step, error) {
	if details == nil {
		return nil, fmt.Errorf("%w: no proposal", domain.ErrTransactionCount)
	}
	txs := details.Transactions

	var out []step
	switch details.Kind {
	case proposer.KindGoverned:
		if len(txs) != 2 {
			return nil, fmt.Errorf("%w: governed proposal for %s has %d transactions, want 2", domain.ErrTransactionCount, operation, len(txs))
		}
		out = []step{
			{"Creating new DAO proposal for " + operation, txs[0]},
			{"Inserting transaction for " + operation + " to proposal", txs[1]},
		}
	case proposer.KindDirect:
		if len(txs) != 1 {
			return nil, fmt.Errorf("%w: %s has %d transactions, want 1", domain.ErrTransactionCount, operation, len(txs))
		}
		out = []step{{"Running " + operation, txs[0]}}
	default:
		return nil, fmt.Errorf("%w: unknown proposer kind %q", domain.ErrInvalidInput, details.Kind)
	}

	for i, s := range out {
		if s.tx == nil {
			return nil, fmt.Errorf("%w: transaction %d of %s is missing", domain.ErrTransactionCount, i, operation)
		}
		if err := wallet.FullySigned(s.tx); err != nil {
			return nil, fmt.Errorf("transaction %d of %s: %w", i, operation, err)
		}
	}
	return out, nil
}

// Submit sends every transaction of details in order and waits for each to
// reach confirmed commitment. A governed proposal's second transaction is
// only sent once the first has confirmed.
//
// The returned error covers problems detected before anything is sent, such
// as unsigned transactions. Ledger failures are reported in the result, as is
// a journaling failure after the first step has landed. Each step is
// journaled as submitted by the actor recorded with domain.WithActor.
func (p *Pipeline) Submit(ctx context.Context, operation string, details *proposer.ProposalDetails) (*domain.SubmissionResult, error) {
	plan, err := steps(operation, details)
	if err != nil {
		return nil, err
	}

	result := &domain.SubmissionResult{
		OperationID: uuid.New().String(),
		Operation:   proposer.Verb(details.Kind, operation),
		Kind:        string(details.Kind),
		Status:      domain.StatusSuccess,
	}
	actor := domain.ActorFromContext(ctx)
	log := logr.FromContextOrDiscard(ctx).WithValues("operation", result.Operation, "operationID", result.OperationID)
	ctx = logr.NewContext(ctx, log)

	for i, s := range plan {
		sub := &domain.Submission{
			ID:          uuid.New().String(),
			OperationID: result.OperationID,
			Operation:   result.Operation,
			Kind:        result.Kind,
			Step:        s.label,
			StepIndex:   i,
			Status:      domain.StatusPending,
			CreatedAt:   p.now(),
			SubmittedBy: actor,
		}
		if err := p.store.CreateSubmission(ctx, sub); err != nil {
			if i == 0 {
				return nil, fmt.Errorf("journaling %q: %w", s.label, err)
			}
			// Earlier steps already landed; keep them in the result.
			log.Error(err, "Failed to journal step, not sending it", "step", s.label)
			result.Status = domain.StatusFailed
			result.Message = fmt.Sprintf("%s was not sent: journaling failed: %v", s.label, err)
			break
		}
		p.opts.Reporter.Pending(ctx, sub)

		p.send(ctx, sub, s.tx)
		if sub.Status == domain.StatusSuccess && i == 0 && details.Kind == proposer.KindGoverned {
			sub.ProposalURL = details.URL
			result.ProposalURL = details.URL
		}

		completed := p.now()
		sub.CompletedAt = &completed
		if err := p.store.UpdateSubmission(ctx, sub); err != nil {
			log.Error(err, "Warning: failed to update submission record", "submission", sub.ID)
		}
		result.Steps = append(result.Steps, sub)

		if sub.Status == domain.StatusFailed {
			p.opts.Reporter.Failure(ctx, sub)
		} else {
			p.opts.Reporter.Success(ctx, sub)
		}

		if sub.Status != domain.StatusSuccess {
			result.Status = sub.Status
			result.Message = sub.Message
			break
		}
	}

	return result, nil
}

// send submits tx and records the outcome on sub.
func (p *Pipeline) send(ctx context.Context, sub *domain.Submission, tx *solana.Transaction) {
	sig, err := p.submitter.Send(ctx, tx)
	if err != nil {
		p.fail(sub, tx, err)
		return
	}
	sub.Signature = sig.String()
	sub.ExplorerURL = ExplorerURL(p.endpoint, sig)

	err = p.confirm(ctx, sig)
	var txErr *ledger.TransactionError
	switch {
	case err == nil:
		sub.Status = domain.StatusSuccess
	case errors.As(err, &txErr):
		p.fail(sub, tx, err)
	default:
		sub.Status = domain.StatusUnconfirmed
		sub.Message = fmt.Sprintf("transaction %s not confirmed within %s: %v", sig, p.opts.ConfirmTimeout, err)
	}
}

func (p *Pipeline) fail(sub *domain.Submission, tx *solana.Transaction, err error) {
	msg, logs := Classify(err)
	sub.Status = domain.StatusFailed
	sub.Message = msg
	sub.Logs = strings.Join(logs, "\n")
	sub.InspectorURL = InspectorURL(p.endpoint, tx)
}

// confirm polls the signature until it reaches confirmed commitment, fails on
// chain, or the confirm timeout passes.
func (p *Pipeline) confirm(ctx context.Context, sig solana.Signature) error {
	backoff := retry.WithMaxDuration(p.opts.ConfirmTimeout, retry.NewConstant(p.opts.PollInterval))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		st, err := p.submitter.SignatureStatus(ctx, sig)
		if err != nil {
			return retry.RetryableError(err)
		}
		if st == nil {
			return retry.RetryableError(errNotConfirmed)
		}
		if st.Err != nil {
			return st.Err
		}
		if !st.Confirmation.Reached(ledger.ConfirmationConfirmed) {
			return retry.RetryableError(errNotConfirmed)
		}
		return nil
	})
}
