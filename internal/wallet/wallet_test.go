package wallet

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
)

func transferTx(t *testing.T, payer, from solana.PublicKey) *solana.Transaction {
	t.Helper()
	ix := system.NewTransferInstruction(1, from, solana.NewWallet().PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(payer))
	if err != nil {
		t.Fatalf("NewTransaction() error = %v", err)
	}
	return tx
}

func TestSignAll(t *testing.T) {
	k := NewKeypair(solana.NewWallet().PrivateKey)
	txs := []*solana.Transaction{
		transferTx(t, k.PublicKey(), k.PublicKey()),
		transferTx(t, k.PublicKey(), k.PublicKey()),
	}

	for i, tx := range txs {
		if err := FullySigned(tx); !errors.Is(err, domain.ErrUnsignedTransaction) {
			t.Errorf("FullySigned(tx %d) before signing error = %v, want ErrUnsignedTransaction", i, err)
		}
	}
	if err := k.SignAll(txs); err != nil {
		t.Fatalf("SignAll() error = %v", err)
	}
	for i, tx := range txs {
		if err := FullySigned(tx); err != nil {
			t.Errorf("FullySigned(tx %d) error = %v", i, err)
		}
	}
}

func TestSignAllMissingSigner(t *testing.T) {
	k := NewKeypair(solana.NewWallet().PrivateKey)
	other := solana.NewWallet().PublicKey()
	txs := []*solana.Transaction{
		transferTx(t, k.PublicKey(), k.PublicKey()),
		transferTx(t, k.PublicKey(), other),
	}

	err := k.SignAll(txs)
	if !errors.Is(err, ErrMissingSigner) {
		t.Fatalf("SignAll() error = %v, want ErrMissingSigner", err)
	}
	if len(txs[0].Signatures) != 0 {
		t.Error("first transaction was signed although the batch failed")
	}
}

func TestLoadKeypair(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "id.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	k, err := LoadKeypair(path)
	if err != nil {
		t.Fatalf("LoadKeypair() error = %v", err)
	}
	if !k.PublicKey().Equals(key.PublicKey()) {
		t.Errorf("PublicKey() = %s, want %s", k.PublicKey(), key.PublicKey())
	}

	if _, err := LoadKeypair(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadKeypair() of a missing file should fail")
	}
}
