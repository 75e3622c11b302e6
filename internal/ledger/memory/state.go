package memory

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/workbenchapp/worknet-proposer/internal/ledger"
)

// State is the mutable account state visible to executors.
type State struct {
	accounts map[solana.PublicKey]*ledger.Account
	tokens   map[solana.PublicKey]*ledger.TokenAccount
	logs     []string
}

func newState() *State {
	return &State{
		accounts: make(map[solana.PublicKey]*ledger.Account),
		tokens:   make(map[solana.PublicKey]*ledger.TokenAccount),
	}
}

func (s *State) clone() *State {
	out := newState()
	for k, v := range s.accounts {
		out.accounts[k] = cloneAccount(v)
	}
	for k, v := range s.tokens {
		ta := *v
		out.tokens[k] = &ta
	}
	return out
}

func cloneAccount(a *ledger.Account) *ledger.Account {
	out := *a
	out.Data = append([]byte(nil), a.Data...)
	return &out
}

// Logf appends a program log line.
func (s *State) Logf(format string, args ...any) {
	s.logs = append(s.logs, fmt.Sprintf(format, args...))
}

// Account returns a copy of the account at key.
func (s *State) Account(key solana.PublicKey) (*ledger.Account, bool) {
	acct, ok := s.accounts[key]
	if !ok {
		return nil, false
	}
	return cloneAccount(acct), true
}

// Exists reports whether an account is stored at key.
func (s *State) Exists(key solana.PublicKey) bool {
	_, ok := s.accounts[key]
	return ok
}

// SetAccount stores account state at key.
func (s *State) SetAccount(key solana.PublicKey, acct *ledger.Account) {
	s.accounts[key] = cloneAccount(acct)
}

// DeleteAccount removes the account at key.
func (s *State) DeleteAccount(key solana.PublicKey) {
	delete(s.accounts, key)
}

func (s *State) ensure(key, owner solana.PublicKey) *ledger.Account {
	acct, ok := s.accounts[key]
	if !ok {
		acct = &ledger.Account{Owner: owner}
		s.accounts[key] = acct
	}
	return acct
}

// TransferLamports moves lamports between accounts.
func (s *State) TransferLamports(from, to solana.PublicKey, lamports uint64) error {
	src, ok := s.accounts[from]
	if !ok || src.Lamports < lamports {
		s.Logf("Transfer: insufficient lamports, need %d", lamports)
		return fmt.Errorf("custom program error: 0x1")
	}
	src.Lamports -= lamports
	s.ensure(to, solana.SystemProgramID).Lamports += lamports
	return nil
}

// Token returns a copy of the token account at key.
func (s *State) Token(key solana.PublicKey) (ledger.TokenAccount, bool) {
	ta, ok := s.tokens[key]
	if !ok {
		return ledger.TokenAccount{}, false
	}
	return *ta, true
}

// SetToken stores a token account.
func (s *State) SetToken(ta ledger.TokenAccount) {
	s.tokens[ta.Address] = &ta
}

// DeleteToken removes a token account.
func (s *State) DeleteToken(key solana.PublicKey) {
	delete(s.tokens, key)
}

// TransferTokens moves amount between two token accounts of the same mint.
// The destination is created for owner when it does not exist.
func (s *State) TransferTokens(from, to, owner solana.PublicKey, amount uint64) error {
	src, ok := s.tokens[from]
	if !ok {
		return fmt.Errorf("token account %s not found", from)
	}
	if src.Amount < amount {
		s.Logf("Program log: Error: insufficient funds")
		return fmt.Errorf("custom program error: 0x1")
	}
	dst, ok := s.tokens[to]
	if !ok {
		dst = &ledger.TokenAccount{Address: to, Mint: src.Mint, Owner: owner}
		s.tokens[to] = dst
	}
	if !dst.Mint.Equals(src.Mint) {
		return fmt.Errorf("custom program error: 0x3")
	}
	src.Amount -= amount
	dst.Amount += amount
	return nil
}
