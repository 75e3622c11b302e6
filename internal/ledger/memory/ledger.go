// Package memory provides a simulated in-process ledger. It backs the
// LEDGER_SHIM mode and the package tests: programs are plugged in as
// Executors and every transaction is applied atomically.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/workbenchapp/worknet-proposer/internal/ledger"
)

// Instruction is a compiled instruction with its accounts resolved.
type Instruction struct {
	Program  solana.PublicKey
	Accounts []*solana.AccountMeta
	Data     []byte
}

// Account returns the i-th account key, or the zero key when absent.
func (ix Instruction) Account(i int) solana.PublicKey {
	if i < 0 || i >= len(ix.Accounts) {
		return solana.PublicKey{}
	}
	return ix.Accounts[i].PublicKey
}

// Executor applies an instruction to the state. It runs with the ledger
// lock held and must not call back into the Ledger.
type Executor func(st *State, ix Instruction) error

// Submission records a transaction handed to Send.
type Submission struct {
	Signature solana.Signature
	Tx        *solana.Transaction
	Err       error
}

// Ledger is an in-memory ledger.Ledger.
type Ledger struct {
	mu          sync.RWMutex
	state       *State
	executors   map[solana.PublicKey]Executor
	statuses    map[solana.Signature]*ledger.SignatureStatus
	submissions []Submission
	slot        uint64
}

// Ensure Ledger implements ledger.Ledger.
var _ ledger.Ledger = (*Ledger)(nil)

// New creates an empty ledger with the system program installed.
func New() *Ledger {
	l := &Ledger{
		state:     newState(),
		executors: make(map[solana.PublicKey]Executor),
		statuses:  make(map[solana.Signature]*ledger.SignatureStatus),
	}
	l.Register(solana.SystemProgramID, executeSystem)
	return l
}

// Endpoint identifies the shim in explorer links.
func (l *Ledger) Endpoint() string {
	return "memory://ledger"
}

// Register installs an executor for a program.
func (l *Ledger) Register(program solana.PublicKey, exec Executor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.executors[program] = exec
}

// Airdrop credits lamports to an account, creating it if needed.
func (l *Ledger) Airdrop(key solana.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.state.ensure(key, solana.SystemProgramID)
	acct.Lamports += lamports
}

// SetAccount stores raw account state.
func (l *Ledger) SetAccount(key solana.PublicKey, acct *ledger.Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.SetAccount(key, acct)
}

// SetTokenAccount stores a token account.
func (l *Ledger) SetTokenAccount(ta ledger.TokenAccount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.SetToken(ta)
}

// Submissions returns every transaction handed to Send, in order.
func (l *Ledger) Submissions() []Submission {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Submission, len(l.submissions))
	copy(out, l.submissions)
	return out
}

// LatestBlockhash returns a hash that changes with every landed transaction.
func (l *Ledger) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], l.slot)
	return solana.Hash(sha256.Sum256(buf[:])), nil
}

// GetAccount returns a copy of the stored account.
func (l *Ledger) GetAccount(ctx context.Context, key solana.PublicKey) (*ledger.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.state.Account(key)
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return acct, nil
}

// GetProgramAccounts lists accounts owned by program matching all filters,
// ordered by key.
func (l *Ledger) GetProgramAccounts(ctx context.Context, program solana.PublicKey, filters ...ledger.Memcmp) ([]ledger.KeyedAccount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []ledger.KeyedAccount
	for key, acct := range l.state.accounts {
		if !acct.Owner.Equals(program) {
			continue
		}
		matched := true
		for _, f := range filters {
			if !f.Matches(acct.Data) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, ledger.KeyedAccount{Key: key, Account: cloneAccount(acct)})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out, nil
}

// TokenAccountsByOwner lists owner's token accounts for mint, ordered by address.
func (l *Ledger) TokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) ([]ledger.TokenAccount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []ledger.TokenAccount
	for _, ta := range l.state.tokens {
		if ta.Owner.Equals(owner) && ta.Mint.Equals(mint) {
			out = append(out, *ta)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.String() < out[j].Address.String()
	})
	return out, nil
}

// TokenBalance returns the amount held by a token account.
func (l *Ledger) TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ta, ok := l.state.Token(account)
	if !ok {
		return 0, ledger.ErrAccountNotFound
	}
	return ta.Amount, nil
}

// Send verifies signatures and executes the transaction atomically. A failed
// instruction rolls back all state changes and is returned as a
// *ledger.TransactionError carrying the program logs, like a failed preflight.
func (l *Ledger) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(tx.Signatures) == 0 {
		err := &ledger.TransactionError{Message: "transaction is not signed"}
		l.submissions = append(l.submissions, Submission{Tx: tx, Err: err})
		return solana.Signature{}, err
	}
	sig := tx.Signatures[0]

	if err := tx.VerifySignatures(); err != nil {
		txErr := &ledger.TransactionError{Message: fmt.Sprintf("signature verification failed: %v", err)}
		l.submissions = append(l.submissions, Submission{Signature: sig, Tx: tx, Err: txErr})
		return solana.Signature{}, txErr
	}

	if err := l.execute(tx); err != nil {
		l.submissions = append(l.submissions, Submission{Signature: sig, Tx: tx, Err: err})
		return solana.Signature{}, err
	}

	l.slot++
	l.statuses[sig] = &ledger.SignatureStatus{Confirmation: ledger.ConfirmationConfirmed}
	l.submissions = append(l.submissions, Submission{Signature: sig, Tx: tx})
	return sig, nil
}

// SignatureStatus reports landed transactions as confirmed.
func (l *Ledger) SignatureStatus(ctx context.Context, sig solana.Signature) (*ledger.SignatureStatus, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st, ok := l.statuses[sig]
	if !ok {
		return nil, nil
	}
	out := *st
	return &out, nil
}

func (l *Ledger) execute(tx *solana.Transaction) error {
	working := l.state.clone()

	for i := range tx.Message.Instructions {
		ci := &tx.Message.Instructions[i]
		program, err := tx.ResolveProgramIDIndex(ci.ProgramIDIndex)
		if err != nil {
			return &ledger.TransactionError{Message: fmt.Sprintf("resolving program of instruction %d: %v", i, err)}
		}
		accounts, err := ci.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			return &ledger.TransactionError{Message: fmt.Sprintf("resolving accounts of instruction %d: %v", i, err)}
		}

		exec, ok := l.executors[program]
		if !ok {
			return &ledger.TransactionError{
				Message: "Transaction simulation failed: Attempt to load a program that does not exist",
				Logs:    working.logs,
			}
		}

		working.Logf("Program %s invoke [1]", program)
		if err := exec(working, Instruction{Program: program, Accounts: accounts, Data: ci.Data}); err != nil {
			working.Logf("Program %s failed: %v", program, err)
			return &ledger.TransactionError{
				Message: fmt.Sprintf("Transaction simulation failed: Error processing Instruction %d: %v", i, err),
				Logs:    working.logs,
			}
		}
		working.Logf("Program %s success", program)
	}

	working.logs = nil
	l.state = working
	return nil
}

// executeSystem handles native SOL transfers.
func executeSystem(st *State, ix Instruction) error {
	decoded, err := system.DecodeInstruction(ix.Accounts, ix.Data)
	if err != nil {
		return fmt.Errorf("invalid instruction data")
	}
	transfer, ok := decoded.Impl.(*system.Transfer)
	if !ok {
		return fmt.Errorf("unsupported system instruction")
	}

	from := transfer.GetFundingAccount().PublicKey
	to := transfer.GetRecipientAccount().PublicKey
	return st.TransferLamports(from, to, *transfer.Lamports)
}
