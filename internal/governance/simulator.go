package governance

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/workbenchapp/worknet-proposer/internal/ledger"
	"github.com/workbenchapp/worknet-proposer/internal/ledger/memory"
)

// Program error codes raised by the simulator, as the governance program
// numbers them.
const (
	errInvalidStateCannotEditTransactions = 0x20b
	errInvalidStateCannotSignOff          = 0x20c
	errTooManyOutstandingProposals        = 0x23c
	errInvalidProposalIndex               = 0x1f9
	errInvalidTokenOwnerRecord            = 0x1fd
)

// maxOutstandingProposals is how many draft or voting proposals a single
// token owner record may hold.
const maxOutstandingProposals = 10

// Proposal states.
const (
	proposalStateDraft uint8 = iota
	proposalStateSigningOff
	proposalStateVoting
)

// Simulated account layouts. Each keeps the leading fields of the real V2
// layout so that memcmp filters and header decoding behave the same.
const (
	accountTypeProposalTransactionV2 = 13
	accountTypeRealmV2               = 16
	accountTypeTokenOwnerRecordV2    = 17
	accountTypeSignatoryRecordV2     = 22
)

type simRealm struct {
	AccountType   uint8
	CommunityMint solana.PublicKey
	Name          string
}

type simTokenOwnerRecord struct {
	AccountType         uint8
	Realm               solana.PublicKey
	Mint                solana.PublicKey
	Owner               solana.PublicKey
	DepositAmount       uint64
	OutstandingProposal uint8
}

type simProposal struct {
	AccountType          uint8
	Governance           solana.PublicKey
	Mint                 solana.PublicKey
	State                uint8
	TokenOwnerRecord     solana.PublicKey
	SignatoriesCount     uint8
	SignatoriesSignedOff uint8
	TransactionsCount    uint16
	Name                 string
	DescriptionLink      string
}

type simSignatoryRecord struct {
	AccountType uint8
	Proposal    solana.PublicKey
	Signatory   solana.PublicKey
	SignedOff   bool
}

type simProposalTransaction struct {
	AccountType  uint8
	Proposal     solana.PublicKey
	Option       uint8
	Index        uint16
	HoldUpTime   uint32
	Instructions []InstructionData
}

// Simulator executes the proposal lifecycle subset of the governance program
// against the in-memory ledger.
type Simulator struct {
	pdas PDAs
}

// NewSimulator creates a simulator for the given program.
func NewSimulator(program solana.PublicKey) *Simulator {
	return &Simulator{pdas: PDAs{Program: program}}
}

// Install registers the simulator with a ledger.
func (s *Simulator) Install(l *memory.Ledger) {
	l.Register(s.pdas.Program, s.Execute)
}

// SeedGovernance stores a realm and a governance over mint. It returns the
// governance address.
func (s *Simulator) SeedGovernance(l *memory.Ledger, realm, mint solana.PublicKey) (solana.PublicKey, error) {
	realmData, err := encodeSim(simRealm{AccountType: accountTypeRealmV2, CommunityMint: mint, Name: "simulated"})
	if err != nil {
		return solana.PublicKey{}, err
	}
	l.SetAccount(realm, &ledger.Account{Owner: s.pdas.Program, Data: realmData})

	governance, err := deriveGovernance(s.pdas.Program, realm, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	govData, err := encodeSim(governanceHeader{AccountType: accountTypeGovernanceV2, Realm: realm, GovernedAccount: mint})
	if err != nil {
		return solana.PublicKey{}, err
	}
	l.SetAccount(governance, &ledger.Account{Owner: s.pdas.Program, Data: govData})
	return governance, nil
}

func deriveGovernance(program, realm, governed solana.PublicKey) (solana.PublicKey, error) {
	key, _, err := solana.FindProgramAddress([][]byte{[]byte("account-governance"), realm.Bytes(), governed.Bytes()}, program)
	return key, err
}

func encodeSim(v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func customError(st *memory.State, code uint32, msg string) error {
	st.Logf("Program log: GOVERNANCE-ERROR: %s", msg)
	return fmt.Errorf("custom program error: 0x%x", code)
}

func (s *Simulator) load(st *memory.State, key solana.PublicKey, v any) bool {
	acct, ok := st.Account(key)
	if !ok || !acct.Owner.Equals(s.pdas.Program) {
		return false
	}
	return bin.NewBorshDecoder(acct.Data).Decode(v) == nil
}

func (s *Simulator) store(st *memory.State, key solana.PublicKey, v any) error {
	data, err := encodeSim(v)
	if err != nil {
		return err
	}
	st.SetAccount(key, &ledger.Account{Owner: s.pdas.Program, Data: data})
	return nil
}

// Execute applies one governance instruction.
func (s *Simulator) Execute(st *memory.State, ix memory.Instruction) error {
	if len(ix.Data) == 0 {
		return fmt.Errorf("invalid instruction data")
	}
	switch ix.Data[0] {
	case ixCreateTokenOwnerRecord:
		return s.createTokenOwnerRecord(st, ix)
	case ixCreateProposal:
		return s.createProposal(st, ix)
	case ixAddSignatory:
		return s.addSignatory(st, ix)
	case ixInsertTransaction:
		return s.insertTransaction(st, ix)
	case ixSignOffProposal:
		return s.signOffProposal(st, ix)
	default:
		return fmt.Errorf("invalid instruction data")
	}
}

func (s *Simulator) createTokenOwnerRecord(st *memory.State, ix memory.Instruction) error {
	realm, owner, recordKey, mint := ix.Account(0), ix.Account(1), ix.Account(2), ix.Account(3)
	want, err := s.pdas.TokenOwnerRecord(realm, mint, owner)
	if err != nil || !want.Key.Equals(recordKey) {
		return customError(st, errInvalidTokenOwnerRecord, "Invalid TokenOwnerRecord address")
	}
	if st.Exists(recordKey) {
		st.Logf("Allocate: account Address { address: %s, base: None } already in use", recordKey)
		return fmt.Errorf("custom program error: 0x0")
	}
	st.Logf("Program log: GOVERNANCE-INSTRUCTION: CreateTokenOwnerRecord")
	return s.store(st, recordKey, simTokenOwnerRecord{
		AccountType: accountTypeTokenOwnerRecordV2,
		Realm:       realm,
		Mint:        mint,
		Owner:       owner,
	})
}

func (s *Simulator) createProposal(st *memory.State, ix memory.Instruction) error {
	var args createProposalArgs
	if err := bin.NewBorshDecoder(ix.Data).Decode(&args); err != nil {
		return fmt.Errorf("invalid instruction data")
	}
	proposalKey, governanceKey, recordKey, mint := ix.Account(1), ix.Account(2), ix.Account(3), ix.Account(4)
	st.Logf("Program log: GOVERNANCE-INSTRUCTION: CreateProposal")

	var gov governanceHeader
	if !s.load(st, governanceKey, &gov) {
		return fmt.Errorf("invalid account data for instruction")
	}
	var record simTokenOwnerRecord
	if !s.load(st, recordKey, &record) {
		return customError(st, errInvalidTokenOwnerRecord, "Invalid TokenOwnerRecord account")
	}
	if record.OutstandingProposal >= maxOutstandingProposals {
		return customError(st, errTooManyOutstandingProposals, "Too many outstanding proposals")
	}

	want, err := s.pdas.Proposal(governanceKey, mint, gov.ProposalsCount)
	if err != nil || !want.Key.Equals(proposalKey) || st.Exists(proposalKey) {
		return customError(st, errInvalidProposalIndex, "Invalid proposal index")
	}

	if err := s.store(st, proposalKey, simProposal{
		AccountType:      accountTypeProposalV2,
		Governance:       governanceKey,
		Mint:             mint,
		State:            proposalStateDraft,
		TokenOwnerRecord: recordKey,
		Name:             args.Name,
		DescriptionLink:  args.DescriptionLink,
	}); err != nil {
		return err
	}

	gov.ProposalsCount++
	record.OutstandingProposal++
	if err := s.store(st, governanceKey, gov); err != nil {
		return err
	}
	return s.store(st, recordKey, record)
}

func (s *Simulator) addSignatory(st *memory.State, ix memory.Instruction) error {
	var args addSignatoryArgs
	if err := bin.NewBorshDecoder(ix.Data).Decode(&args); err != nil {
		return fmt.Errorf("invalid instruction data")
	}
	proposalKey, recordKey := ix.Account(0), ix.Account(3)
	st.Logf("Program log: GOVERNANCE-INSTRUCTION: AddSignatory")

	var proposal simProposal
	if !s.load(st, proposalKey, &proposal) {
		return fmt.Errorf("invalid account data for instruction")
	}
	if proposal.State != proposalStateDraft {
		return customError(st, errInvalidStateCannotEditTransactions, "Invalid state: Can't edit Signatories")
	}

	proposal.SignatoriesCount++
	if err := s.store(st, recordKey, simSignatoryRecord{
		AccountType: accountTypeSignatoryRecordV2,
		Proposal:    proposalKey,
		Signatory:   args.Signatory,
	}); err != nil {
		return err
	}
	return s.store(st, proposalKey, proposal)
}

func (s *Simulator) insertTransaction(st *memory.State, ix memory.Instruction) error {
	var args insertTransactionArgs
	if err := bin.NewBorshDecoder(ix.Data).Decode(&args); err != nil {
		return fmt.Errorf("invalid instruction data")
	}
	proposalKey, txKey := ix.Account(1), ix.Account(4)
	st.Logf("Program log: GOVERNANCE-INSTRUCTION: InsertTransaction")

	var proposal simProposal
	if !s.load(st, proposalKey, &proposal) {
		return fmt.Errorf("invalid account data for instruction")
	}
	if proposal.State != proposalStateDraft {
		return customError(st, errInvalidStateCannotEditTransactions, "Invalid state: Can't edit transactions")
	}
	if st.Exists(txKey) {
		st.Logf("Allocate: account Address { address: %s, base: None } already in use", txKey)
		return fmt.Errorf("custom program error: 0x0")
	}

	proposal.TransactionsCount++
	if err := s.store(st, txKey, simProposalTransaction{
		AccountType:  accountTypeProposalTransactionV2,
		Proposal:     proposalKey,
		Option:       args.Option,
		Index:        args.Index,
		HoldUpTime:   args.HoldUpTime,
		Instructions: args.Instructions,
	}); err != nil {
		return err
	}
	return s.store(st, proposalKey, proposal)
}

func (s *Simulator) signOffProposal(st *memory.State, ix memory.Instruction) error {
	proposalKey, recordKey := ix.Account(2), ix.Account(4)
	st.Logf("Program log: GOVERNANCE-INSTRUCTION: SignOffProposal")

	var proposal simProposal
	if !s.load(st, proposalKey, &proposal) {
		return fmt.Errorf("invalid account data for instruction")
	}
	if proposal.State != proposalStateDraft && proposal.State != proposalStateSigningOff {
		return customError(st, errInvalidStateCannotSignOff, "Invalid state: Can't sign off")
	}
	var record simSignatoryRecord
	if !s.load(st, recordKey, &record) || record.SignedOff {
		return fmt.Errorf("invalid account data for instruction")
	}

	record.SignedOff = true
	proposal.SignatoriesSignedOff++
	proposal.State = proposalStateSigningOff
	if proposal.SignatoriesSignedOff == proposal.SignatoriesCount {
		proposal.State = proposalStateVoting
	}
	if err := s.store(st, recordKey, record); err != nil {
		return err
	}
	return s.store(st, proposalKey, proposal)
}
