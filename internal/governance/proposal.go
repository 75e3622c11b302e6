package governance

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/go-logr/logr"

	"github.com/workbenchapp/worknet-proposer/internal/ledger"
)

// governanceAccountTypes lists the account types sharing the governance
// header layout.
var governanceAccountTypes = map[uint8]bool{
	3: true, 4: true, 9: true, 10: true, // V1 account, program, mint, token governance
	accountTypeGovernanceV2: true, 19: true, 20: true, 21: true,
}

// Governance is the decoded header of a governance account.
type Governance struct {
	Address         solana.PublicKey `json:"address"`
	Realm           solana.PublicKey `json:"realm"`
	GovernedAccount solana.PublicKey `json:"governed_account"`
	ProposalsCount  uint32           `json:"proposals_count"`
}

type governanceHeader struct {
	AccountType     uint8
	Realm           solana.PublicKey
	GovernedAccount solana.PublicKey
	ProposalsCount  uint32
}

// State is the ledger state a new proposal depends on.
type State struct {
	Governance Governance
	// ProposalIndex is the number of proposals already created under the
	// governance, which is the seed of the next proposal.
	ProposalIndex uint32
	// TokenOwnerRecordExists is false when the wallet has never deposited
	// into the realm and a record must be created first.
	TokenOwnerRecordExists bool
}

// Client reads governance state from the ledger.
type Client struct {
	pdas   PDAs
	reader ledger.Reader
}

// NewClient creates a client for the given governance program.
func NewClient(program solana.PublicKey, reader ledger.Reader) *Client {
	return &Client{pdas: PDAs{Program: program}, reader: reader}
}

// PDAs returns the address deriver for the client's program.
func (c *Client) PDAs() PDAs {
	return c.pdas
}

// Governance loads and decodes a governance account.
func (c *Client) Governance(ctx context.Context, address solana.PublicKey) (*Governance, error) {
	acct, err := c.reader.GetAccount(ctx, address)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: no account at %s", ErrGovernanceNotFound, address)
	}
	if err != nil {
		return nil, err
	}
	if !acct.Owner.Equals(c.pdas.Program) || len(acct.Data) == 0 || !governanceAccountTypes[acct.Data[0]] {
		return nil, fmt.Errorf("%w: %s is not a governance account", ErrGovernanceNotFound, address)
	}

	var hdr governanceHeader
	if err := bin.NewBorshDecoder(acct.Data).Decode(&hdr); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrGovernanceNotFound, address, err)
	}
	return &Governance{
		Address:         address,
		Realm:           hdr.Realm,
		GovernedAccount: hdr.GovernedAccount,
		ProposalsCount:  hdr.ProposalsCount,
	}, nil
}

// ProposalCount counts the proposals stored under a governance.
func (c *Client) ProposalCount(ctx context.Context, governance solana.PublicKey) (uint32, error) {
	var count uint32
	for _, accountType := range []uint8{accountTypeProposalV1, accountTypeProposalV2} {
		proposals, err := c.reader.GetProgramAccounts(ctx, c.pdas.Program,
			ledger.Memcmp{Offset: 0, Bytes: []byte{accountType}},
			ledger.Memcmp{Offset: 1, Bytes: governance.Bytes()},
		)
		if err != nil {
			return 0, fmt.Errorf("listing proposals of %s: %w", governance, err)
		}
		count += uint32(len(proposals))
	}
	return count, nil
}

// Lookup gathers everything needed to build a proposal from wallet under
// governance.
func (c *Client) Lookup(ctx context.Context, governance, wallet solana.PublicKey) (*State, error) {
	log := logr.FromContextOrDiscard(ctx)

	gov, err := c.Governance(ctx, governance)
	if err != nil {
		return nil, err
	}

	index, err := c.ProposalCount(ctx, governance)
	if err != nil {
		return nil, err
	}

	record, err := c.pdas.TokenOwnerRecord(gov.Realm, gov.GovernedAccount, wallet)
	if err != nil {
		return nil, err
	}
	_, err = c.reader.GetAccount(ctx, record.Key)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		log.V(1).Info("token owner record missing, will create", "record", record.Key)
	case err != nil:
		return nil, fmt.Errorf("reading token owner record %s: %w", record.Key, err)
	}

	return &State{
		Governance:             *gov,
		ProposalIndex:          index,
		TokenOwnerRecordExists: err == nil,
	}, nil
}

// Params turns looked-up state into proposal parameters.
func (s *State) Params(program, wallet solana.PublicKey, name, descriptionLink string) ProposalParams {
	return ProposalParams{
		Program:                program,
		Realm:                  s.Governance.Realm,
		Governance:             s.Governance.Address,
		Mint:                   s.Governance.GovernedAccount,
		Wallet:                 wallet,
		ProposalIndex:          s.ProposalIndex,
		CreateTokenOwnerRecord: !s.TokenOwnerRecordExists,
		Name:                   name,
		DescriptionLink:        descriptionLink,
	}
}

// ProposalParams describes a proposal to build.
type ProposalParams struct {
	Program    solana.PublicKey
	Realm      solana.PublicKey
	Governance solana.PublicKey
	// Mint is the governing token mint the wallet's record is kept for.
	Mint          solana.PublicKey
	Wallet        solana.PublicKey
	ProposalIndex uint32
	// CreateTokenOwnerRecord prepends the record creation to Create.
	CreateTokenOwnerRecord bool
	Name                   string
	DescriptionLink        string
}

// Proposal is a built proposal split into its two transactions.
type Proposal struct {
	Address          solana.PublicKey
	TokenOwnerRecord solana.PublicKey
	SignatoryRecord  solana.PublicKey
	// Create creates the proposal and adds the wallet as signatory.
	Create []solana.Instruction
	// Insert inserts one transaction per wrapped instruction, in order, then
	// signs the proposal off.
	Insert []solana.Instruction
}

// BuildProposal wraps instructions in a proposal. It only derives addresses
// and encodes instructions; nothing is read from the ledger.
func BuildProposal(p ProposalParams, instructions []solana.Instruction) (*Proposal, error) {
	if len(instructions) > 1<<16 {
		return nil, fmt.Errorf("too many instructions for one proposal: %d", len(instructions))
	}
	pdas := PDAs{Program: p.Program}
	b := builder{program: p.Program}

	record, err := pdas.TokenOwnerRecord(p.Realm, p.Mint, p.Wallet)
	if err != nil {
		return nil, err
	}
	proposal, err := pdas.Proposal(p.Governance, p.Mint, p.ProposalIndex)
	if err != nil {
		return nil, err
	}
	signatory, err := pdas.SignatoryRecord(proposal.Key, p.Wallet)
	if err != nil {
		return nil, err
	}
	realmConfig, err := pdas.RealmConfig(p.Realm)
	if err != nil {
		return nil, err
	}

	out := &Proposal{
		Address:          proposal.Key,
		TokenOwnerRecord: record.Key,
		SignatoryRecord:  signatory.Key,
	}

	if p.CreateTokenOwnerRecord {
		ix, err := b.createTokenOwnerRecord(p.Realm, p.Wallet, record.Key, p.Mint, p.Wallet)
		if err != nil {
			return nil, err
		}
		out.Create = append(out.Create, ix)
	}

	create, err := b.createProposal(p.Realm, proposal.Key, p.Governance, record.Key, p.Mint, p.Wallet, p.Wallet, realmConfig.Key, p.Name, p.DescriptionLink)
	if err != nil {
		return nil, err
	}
	addSignatory, err := b.addSignatory(proposal.Key, record.Key, p.Wallet, signatory.Key, p.Wallet, p.Wallet)
	if err != nil {
		return nil, err
	}
	out.Create = append(out.Create, create, addSignatory)

	for i, wrapped := range instructions {
		data, err := NewInstructionData(wrapped)
		if err != nil {
			return nil, err
		}
		proposalTx, err := pdas.ProposalTransaction(proposal.Key, 0, uint16(i))
		if err != nil {
			return nil, err
		}
		insert, err := b.insertTransaction(p.Governance, proposal.Key, record.Key, p.Wallet, proposalTx.Key, p.Wallet, uint16(i), data)
		if err != nil {
			return nil, err
		}
		out.Insert = append(out.Insert, insert)
	}

	signOff, err := b.signOffProposal(p.Realm, p.Governance, proposal.Key, p.Wallet, signatory.Key)
	if err != nil {
		return nil, err
	}
	out.Insert = append(out.Insert, signOff)
	return out, nil
}
