// Package ledger is the boundary between the proposal subsystem and the
// cluster. Reads and writes go through the narrow Reader and Submitter
// interfaces so that the RPC client and the in-memory shim are
// interchangeable.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
)

// ErrAccountNotFound is returned when an account does not exist. It wraps
// domain.ErrNotFound.
var ErrAccountNotFound = fmt.Errorf("account %w", domain.ErrNotFound)

// Account is the subset of account state the subsystem reads.
type Account struct {
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// KeyedAccount is an account together with its address.
type KeyedAccount struct {
	Key     solana.PublicKey
	Account *Account
}

// Memcmp matches accounts whose data contains Bytes at Offset.
type Memcmp struct {
	Offset uint64
	Bytes  []byte
}

// Matches reports whether data satisfies the filter.
func (m Memcmp) Matches(data []byte) bool {
	end := m.Offset + uint64(len(m.Bytes))
	if end > uint64(len(data)) {
		return false
	}
	return string(data[m.Offset:end]) == string(m.Bytes)
}

// TokenAccount is a decoded SPL token account.
type TokenAccount struct {
	Address solana.PublicKey `json:"address"`
	Mint    solana.PublicKey `json:"mint"`
	Owner   solana.PublicKey `json:"owner"`
	Amount  uint64           `json:"amount"`
}

// Reader defines read-only ledger queries.
type Reader interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	GetAccount(ctx context.Context, key solana.PublicKey) (*Account, error)
	GetProgramAccounts(ctx context.Context, program solana.PublicKey, filters ...Memcmp) ([]KeyedAccount, error)
	TokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]TokenAccount, error)
	TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
}

// Confirmation is the commitment a transaction has reached.
type Confirmation string

const (
	ConfirmationProcessed Confirmation = "processed"
	ConfirmationConfirmed Confirmation = "confirmed"
	ConfirmationFinalized Confirmation = "finalized"
)

// Reached reports whether c is at least as strong as want.
func (c Confirmation) Reached(want Confirmation) bool {
	rank := map[Confirmation]int{
		ConfirmationProcessed: 1,
		ConfirmationConfirmed: 2,
		ConfirmationFinalized: 3,
	}
	return rank[c] >= rank[want]
}

// SignatureStatus reports what the cluster knows about a signature.
type SignatureStatus struct {
	Confirmation Confirmation
	Err          error
}

// Submitter sends transactions and reports their status.
type Submitter interface {
	Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// SignatureStatus returns nil when the cluster has not seen the
	// signature yet.
	SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)
}

// Ledger is the full read/write boundary.
type Ledger interface {
	Reader
	Submitter
	Endpoint() string
}

// TransactionError is an on-chain failure, either from preflight simulation
// or from execution. Logs carries the program log lines when available.
type TransactionError struct {
	Message string
	Logs    []string
}

// Error implements the error interface.
func (e *TransactionError) Error() string {
	if len(e.Logs) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Logs, "; ")
}
