// Package proposer turns instructions into the transactions that carry them,
// either directly under the wallet's authority or as a governance proposal.
package proposer

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrNoInstructions is returned when there is nothing to propose.
var ErrNoInstructions = errors.New("no instructions to propose")

// Kind identifies a proposer variant.
type Kind string

const (
	// KindDirect executes immediately under the wallet's authority.
	KindDirect Kind = "direct"
	// KindGoverned routes the operation through a governance proposal.
	KindGoverned Kind = "governed"
)

// Verb labels an operation for display: governed operations are proposed,
// direct ones are just performed.
func Verb(kind Kind, operation string) string {
	if kind == KindGoverned {
		return "Propose " + operation
	}
	return operation
}

// ProposalDetails is the output of ProposeTxn: unsigned transactions in
// submission order, plus the proposal page for governed proposals.
type ProposalDetails struct {
	Kind         Kind
	Transactions []*solana.Transaction
	URL          string
	// Proposal is the proposal account; zero for direct proposals.
	Proposal solana.PublicKey
}

// Proposer converts instructions into ProposalDetails.
type Proposer interface {
	Kind() Kind
	// Payer returns the account that funds and authorizes operations.
	Payer(ctx context.Context) (solana.PublicKey, error)
	ProposeTxn(ctx context.Context, instructions []solana.Instruction, name, details string) (*ProposalDetails, error)
}
