package proposer

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/go-logr/logr"

	"github.com/workbenchapp/worknet-proposer/internal/governance"
	"github.com/workbenchapp/worknet-proposer/internal/ledger"
)

// Governed wraps instructions into a governance proposal. The work group's
// authority is the governance's native treasury, which signs the wrapped
// instructions when the proposal executes.
type Governed struct {
	wallet     solana.PublicKey
	governance solana.PublicKey
	client     *governance.Client
	reader     ledger.Reader
	cluster    string

	mu       sync.Mutex
	treasury *solana.PublicKey
}

// Ensure Governed implements Proposer.
var _ Proposer = (*Governed)(nil)

// NewGoverned creates a proposer for the governance at address. cluster is
// used in proposal URLs.
func NewGoverned(wallet, address solana.PublicKey, client *governance.Client, reader ledger.Reader, cluster string) *Governed {
	return &Governed{
		wallet:     wallet,
		governance: address,
		client:     client,
		reader:     reader,
		cluster:    cluster,
	}
}

// Kind returns KindGoverned.
func (g *Governed) Kind() Kind {
	return KindGoverned
}

// Governance returns the governance address proposals are made under.
func (g *Governed) Governance() solana.PublicKey {
	return g.governance
}

// Payer returns the governance's native treasury. It is derived once.
func (g *Governed) Payer(ctx context.Context) (solana.PublicKey, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.treasury != nil {
		return *g.treasury, nil
	}
	addr, err := g.client.PDAs().NativeTreasury(g.governance)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("deriving treasury of %s: %w", g.governance, err)
	}
	g.treasury = &addr.Key
	return addr.Key, nil
}

// ProposeTxn returns two transactions: A creates the proposal and adds the
// wallet as signatory, B inserts every instruction and signs off.
func (g *Governed) ProposeTxn(ctx context.Context, instructions []solana.Instruction, name, details string) (*ProposalDetails, error) {
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}
	log := logr.FromContextOrDiscard(ctx)

	state, err := g.client.Lookup(ctx, g.governance, g.wallet)
	if err != nil {
		return nil, err
	}

	params := state.Params(g.client.PDAs().Program, g.wallet, name, details)
	proposal, err := governance.BuildProposal(params, instructions)
	if err != nil {
		return nil, fmt.Errorf("building proposal: %w", err)
	}
	log.V(1).Info("built proposal",
		"realm", params.Realm,
		"governance", params.Governance,
		"proposal", proposal.Address,
		"index", params.ProposalIndex,
		"createTokenOwnerRecord", params.CreateTokenOwnerRecord,
	)

	hash, err := g.reader.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting latest blockhash: %w", err)
	}

	create, err := solana.NewTransaction(proposal.Create, hash, solana.TransactionPayer(g.wallet))
	if err != nil {
		return nil, fmt.Errorf("building proposal transaction: %w", err)
	}
	insert, err := solana.NewTransaction(proposal.Insert, hash, solana.TransactionPayer(g.wallet))
	if err != nil {
		return nil, fmt.Errorf("building insert transaction: %w", err)
	}

	return &ProposalDetails{
		Kind:         KindGoverned,
		Transactions: []*solana.Transaction{create, insert},
		URL:          governance.ProposalURL(params.Realm, proposal.Address, g.cluster),
		Proposal:     proposal.Address,
	}, nil
}
