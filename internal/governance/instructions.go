package governance

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Vote types accepted by CreateProposal.
const voteTypeSingleChoice uint8 = 0

type createTokenOwnerRecordArgs struct {
	Instruction uint8
}

type createProposalArgs struct {
	Instruction     uint8
	Name            string
	DescriptionLink string
	VoteType        uint8
	Options         []string
	UseDenyOption   bool
}

type addSignatoryArgs struct {
	Instruction uint8
	Signatory   solana.PublicKey
}

// AccountMetaData is an account reference stored inside a proposal
// transaction.
type AccountMetaData struct {
	Pubkey     solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// InstructionData is an instruction stored inside a proposal transaction. It
// is executed by the governance program once the proposal passes.
type InstructionData struct {
	ProgramID solana.PublicKey
	Accounts  []AccountMetaData
	Data      []byte
}

type insertTransactionArgs struct {
	Instruction  uint8
	Option       uint8
	Index        uint16
	HoldUpTime   uint32
	Instructions []InstructionData
}

type signOffProposalArgs struct {
	Instruction uint8
}

// NewInstructionData captures a built instruction for storage in a proposal.
func NewInstructionData(ix solana.Instruction) (InstructionData, error) {
	data, err := ix.Data()
	if err != nil {
		return InstructionData{}, fmt.Errorf("reading instruction data: %w", err)
	}
	out := InstructionData{ProgramID: ix.ProgramID(), Data: data}
	for _, meta := range ix.Accounts() {
		out.Accounts = append(out.Accounts, AccountMetaData{
			Pubkey:     meta.PublicKey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		})
	}
	return out, nil
}

// builder assembles raw governance instructions.
type builder struct {
	program solana.PublicKey
}

func (b builder) instruction(args any, accounts ...*solana.AccountMeta) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, fmt.Errorf("encoding governance instruction: %w", err)
	}
	return solana.NewInstruction(b.program, accounts, buf.Bytes()), nil
}

func payerMeta(k solana.PublicKey) *solana.AccountMeta {
	return solana.Meta(k).WRITE().SIGNER()
}

func (b builder) createTokenOwnerRecord(realm, owner, record, mint, payer solana.PublicKey) (solana.Instruction, error) {
	return b.instruction(createTokenOwnerRecordArgs{Instruction: ixCreateTokenOwnerRecord},
		solana.Meta(realm),
		solana.Meta(owner),
		solana.Meta(record).WRITE(),
		solana.Meta(mint),
		payerMeta(payer),
		solana.Meta(solana.SystemProgramID),
	)
}

func (b builder) createProposal(realm, proposal, governance, record, mint, authority, payer, realmConfig solana.PublicKey, name, descriptionLink string) (solana.Instruction, error) {
	return b.instruction(createProposalArgs{
		Instruction:     ixCreateProposal,
		Name:            name,
		DescriptionLink: descriptionLink,
		VoteType:        voteTypeSingleChoice,
		Options:         []string{"Approve"},
		UseDenyOption:   true,
	},
		solana.Meta(realm),
		solana.Meta(proposal).WRITE(),
		solana.Meta(governance).WRITE(),
		solana.Meta(record).WRITE(),
		solana.Meta(mint),
		solana.Meta(authority).SIGNER(),
		payerMeta(payer),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(realmConfig),
	)
}

func (b builder) addSignatory(proposal, record, authority, signatoryRecord, payer, signatory solana.PublicKey) (solana.Instruction, error) {
	return b.instruction(addSignatoryArgs{Instruction: ixAddSignatory, Signatory: signatory},
		solana.Meta(proposal).WRITE(),
		solana.Meta(record),
		solana.Meta(authority).SIGNER(),
		solana.Meta(signatoryRecord).WRITE(),
		payerMeta(payer),
		solana.Meta(solana.SystemProgramID),
	)
}

func (b builder) insertTransaction(governance, proposal, record, authority, proposalTx, payer solana.PublicKey, index uint16, data InstructionData) (solana.Instruction, error) {
	return b.instruction(insertTransactionArgs{
		Instruction:  ixInsertTransaction,
		Option:       0,
		Index:        index,
		HoldUpTime:   0,
		Instructions: []InstructionData{data},
	},
		solana.Meta(governance),
		solana.Meta(proposal).WRITE(),
		solana.Meta(record),
		solana.Meta(authority).SIGNER(),
		solana.Meta(proposalTx).WRITE(),
		payerMeta(payer),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	)
}

func (b builder) signOffProposal(realm, governance, proposal, signatory, signatoryRecord solana.PublicKey) (solana.Instruction, error) {
	return b.instruction(signOffProposalArgs{Instruction: ixSignOffProposal},
		solana.Meta(realm).WRITE(),
		solana.Meta(governance).WRITE(),
		solana.Meta(proposal).WRITE(),
		solana.Meta(signatory).SIGNER(),
		solana.Meta(signatoryRecord).WRITE(),
	)
}
