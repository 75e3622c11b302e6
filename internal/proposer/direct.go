package proposer

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/workbenchapp/worknet-proposer/internal/ledger"
)

// Direct wraps instructions into one transaction paid and signed by the
// wallet.
type Direct struct {
	wallet solana.PublicKey
	reader ledger.Reader
}

// Ensure Direct implements Proposer.
var _ Proposer = (*Direct)(nil)

// NewDirect creates a new Direct proposer.
func NewDirect(wallet solana.PublicKey, reader ledger.Reader) *Direct {
	return &Direct{wallet: wallet, reader: reader}
}

// Kind returns KindDirect.
func (d *Direct) Kind() Kind {
	return KindDirect
}

// Payer returns the wallet.
func (d *Direct) Payer(ctx context.Context) (solana.PublicKey, error) {
	return d.wallet, nil
}

// ProposeTxn returns a single transaction holding every instruction in order.
func (d *Direct) ProposeTxn(ctx context.Context, instructions []solana.Instruction, name, details string) (*ProposalDetails, error) {
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}

	hash, err := d.reader.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, hash, solana.TransactionPayer(d.wallet))
	if err != nil {
		return nil, fmt.Errorf("building transaction: %w", err)
	}
	return &ProposalDetails{
		Kind:         KindDirect,
		Transactions: []*solana.Transaction{tx},
	}, nil
}
