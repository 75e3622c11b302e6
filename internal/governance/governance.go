// Package governance builds SPL governance (Realms) V2 proposals that wrap
// arbitrary instructions, and reads the governance state needed to do so.
package governance

import (
	"encoding/binary"
	"fmt"
	"net/url"

	"github.com/gagliardetto/solana-go"

	"github.com/workbenchapp/worknet-proposer/internal/derive"
	"github.com/workbenchapp/worknet-proposer/internal/domain"
)

// DefaultProgramID is the public SPL governance deployment used by Realms.
var DefaultProgramID = solana.MustPublicKeyFromBase58("GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw")

// ErrGovernanceNotFound is returned when an address does not hold a
// governance account.
var ErrGovernanceNotFound = domain.ErrGovernanceNotFound

// Account type tags stored in the first byte of every governance account.
const (
	accountTypeProposalV1   = 5
	accountTypeProposalV2   = 14
	accountTypeGovernanceV2 = 18
)

// Instruction indices of the governance program.
const (
	ixCreateProposal         = 6
	ixAddSignatory           = 7
	ixInsertTransaction      = 9
	ixSignOffProposal        = 12
	ixCreateTokenOwnerRecord = 23
)

const (
	seedGovernance     = "governance"
	seedNativeTreasury = "native-treasury"
	seedRealmConfig    = "realm-config"
)

// PDAs derives governance program addresses.
type PDAs struct {
	Program solana.PublicKey
}

// TokenOwnerRecord derives the record tracking owner's deposit of mint in
// realm.
func (p PDAs) TokenOwnerRecord(realm, mint, owner solana.PublicKey) (derive.Address, error) {
	return derive.Derive(p.Program, derive.Str(seedGovernance), derive.Key(realm), derive.Key(mint), derive.Key(owner))
}

// Proposal derives the address of the index-th proposal of a governance.
func (p PDAs) Proposal(governance, mint solana.PublicKey, index uint32) (derive.Address, error) {
	var seed [4]byte
	binary.LittleEndian.PutUint32(seed[:], index)
	return derive.Derive(p.Program, derive.Str(seedGovernance), derive.Key(governance), derive.Key(mint), seed[:])
}

// SignatoryRecord derives the record of a signatory on a proposal.
func (p PDAs) SignatoryRecord(proposal, signatory solana.PublicKey) (derive.Address, error) {
	return derive.Derive(p.Program, derive.Str(seedGovernance), derive.Key(proposal), derive.Key(signatory))
}

// ProposalTransaction derives the account holding the index-th transaction
// of a proposal option.
func (p PDAs) ProposalTransaction(proposal solana.PublicKey, option uint8, index uint16) (derive.Address, error) {
	var seed [2]byte
	binary.LittleEndian.PutUint16(seed[:], index)
	return derive.Derive(p.Program, derive.Str(seedGovernance), derive.Key(proposal), []byte{option}, seed[:])
}

// NativeTreasury derives the SOL treasury of a governance. It pays for and
// signs everything a passed proposal executes.
func (p PDAs) NativeTreasury(governance solana.PublicKey) (derive.Address, error) {
	return derive.Derive(p.Program, derive.Str(seedNativeTreasury), derive.Key(governance))
}

// RealmConfig derives the config account of a realm.
func (p PDAs) RealmConfig(realm solana.PublicKey) (derive.Address, error) {
	return derive.Derive(p.Program, derive.Str(seedRealmConfig), derive.Key(realm))
}

// ProposalURL returns the Realms page for a proposal.
func ProposalURL(realm, proposal solana.PublicKey, cluster string) string {
	return fmt.Sprintf("https://app.realms.today/dao/%s/proposal/%s?cluster=%s", realm, proposal, url.QueryEscape(cluster))
}
