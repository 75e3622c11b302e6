package proposer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/workbenchapp/worknet-proposer/internal/derive"
	"github.com/workbenchapp/worknet-proposer/internal/governance"
	"github.com/workbenchapp/worknet-proposer/internal/ledger"
	"github.com/workbenchapp/worknet-proposer/internal/ledger/memory"
	"github.com/workbenchapp/worknet-proposer/internal/worknet"
)

func transfers(n int) []solana.Instruction {
	from := solana.NewWallet().PublicKey()
	out := make([]solana.Instruction, n)
	for i := range out {
		out[i] = system.NewTransferInstruction(uint64(100+i), from, solana.NewWallet().PublicKey()).Build()
	}
	return out
}

func TestVerb(t *testing.T) {
	tests := []struct {
		kind Kind
		op   string
		want string
	}{
		{KindDirect, "Create Workgroup", "Create Workgroup"},
		{KindGoverned, "Create Workgroup", "Propose Create Workgroup"},
		{KindGoverned, "Schedule Deployment", "Propose Schedule Deployment"},
	}

	for _, tt := range tests {
		if got := Verb(tt.kind, tt.op); got != tt.want {
			t.Errorf("Verb(%q, %q) = %q, want %q", tt.kind, tt.op, got, tt.want)
		}
	}
}

func TestDirectKeepsOrder(t *testing.T) {
	l := memory.New()
	wallet := solana.NewWallet().PublicKey()
	d := NewDirect(wallet, l)

	for _, n := range []int{1, 3} {
		ixs := transfers(n)
		details, err := d.ProposeTxn(context.Background(), ixs, "transfers", "")
		if err != nil {
			t.Fatalf("ProposeTxn() error = %v", err)
		}
		if details.Kind != KindDirect || details.URL != "" {
			t.Errorf("ProposeTxn() = kind %q url %q, want direct without url", details.Kind, details.URL)
		}
		if len(details.Transactions) != 1 {
			t.Fatalf("ProposeTxn() returned %d transactions, want 1", len(details.Transactions))
		}

		tx := details.Transactions[0]
		if !tx.Message.AccountKeys[0].Equals(wallet) {
			t.Errorf("fee payer = %s, want %s", tx.Message.AccountKeys[0], wallet)
		}
		if len(tx.Message.Instructions) != n {
			t.Fatalf("transaction has %d instructions, want %d", len(tx.Message.Instructions), n)
		}
		for i, ix := range ixs {
			want, _ := ix.Data()
			if string(tx.Message.Instructions[i].Data) != string(want) {
				t.Errorf("instruction %d is out of order", i)
			}
		}
	}

	if _, err := d.ProposeTxn(context.Background(), nil, "empty", ""); !errors.Is(err, ErrNoInstructions) {
		t.Errorf("ProposeTxn(nil) error = %v, want ErrNoInstructions", err)
	}
}

func TestDirectCreateWorkGroup(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	wallet := solana.NewWallet().PublicKey()
	l.SetTokenAccount(ledger.TokenAccount{
		Address: solana.NewWallet().PublicKey(),
		Mint:    worknet.DefaultLicenseMint,
		Owner:   wallet,
		Amount:  1_000_000_000,
	})

	factory := worknet.NewFactory(worknet.DefaultProgramID, worknet.DefaultLicenseMint, worknet.DefaultSignalServerURL, l, nil)
	d := NewDirect(wallet, l)

	payer, err := d.Payer(ctx)
	if err != nil {
		t.Fatalf("Payer() error = %v", err)
	}
	b, err := factory.CreateWorkGroup(ctx, payer, "abc-def-ghi", "default", solana.PublicKey{})
	if err != nil {
		t.Fatalf("CreateWorkGroup() error = %v", err)
	}
	details, err := d.ProposeTxn(ctx, b.Instructions, "Create Workgroup", "")
	if err != nil {
		t.Fatalf("ProposeTxn() error = %v", err)
	}
	if len(details.Transactions) != 1 || len(details.Transactions[0].Message.Instructions) != 1 {
		t.Fatalf("want a single transaction with a single instruction")
	}

	tx := details.Transactions[0]
	accounts, err := tx.Message.Instructions[0].ResolveInstructionAccounts(&tx.Message)
	if err != nil {
		t.Fatalf("ResolveInstructionAccounts() error = %v", err)
	}
	want := derive.MustDerive(worknet.DefaultProgramID, []byte("abc-def-ghi"), []byte("work_group"))
	if !accounts[1].PublicKey.Equals(want.Key) {
		t.Errorf("group account = %s, want %s", accounts[1].PublicKey, want.Key)
	}
}

func newGoverned(t *testing.T) (*Governed, *memory.Ledger, solana.PublicKey, solana.PublicKey) {
	t.Helper()
	l := memory.New()
	sim := governance.NewSimulator(governance.DefaultProgramID)
	sim.Install(l)

	realm := solana.NewWallet().PublicKey()
	address, err := sim.SeedGovernance(l, realm, solana.NewWallet().PublicKey())
	if err != nil {
		t.Fatalf("SeedGovernance() error = %v", err)
	}
	wallet := solana.NewWallet().PublicKey()
	client := governance.NewClient(governance.DefaultProgramID, l)
	return NewGoverned(wallet, address, client, l, "devnet"), l, realm, wallet
}

func TestGovernedPayer(t *testing.T) {
	g, _, _, _ := newGoverned(t)
	ctx := context.Background()

	first, err := g.Payer(ctx)
	if err != nil {
		t.Fatalf("Payer() error = %v", err)
	}
	want, _ := governance.PDAs{Program: governance.DefaultProgramID}.NativeTreasury(g.Governance())
	if !first.Equals(want.Key) {
		t.Errorf("Payer() = %s, want treasury %s", first, want.Key)
	}

	second, _ := g.Payer(ctx)
	if !second.Equals(first) {
		t.Errorf("Payer() changed between calls: %s then %s", first, second)
	}
}

func TestGovernedProposeTxn(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"one instruction", 1},
		{"register device", 2},
		{"many instructions", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, realm, wallet := newGoverned(t)
			ixs := transfers(tt.n)

			details, err := g.ProposeTxn(context.Background(), ixs, "Create Workgroup", "https://example.com/details")
			if err != nil {
				t.Fatalf("ProposeTxn() error = %v", err)
			}
			if details.Kind != KindGoverned {
				t.Errorf("Kind = %q, want governed", details.Kind)
			}
			if len(details.Transactions) != 2 {
				t.Fatalf("ProposeTxn() returned %d transactions, want 2", len(details.Transactions))
			}

			a, b := details.Transactions[0], details.Transactions[1]
			if a.Message.RecentBlockhash != b.Message.RecentBlockhash {
				t.Error("transactions A and B use different blockhashes")
			}
			for i, tx := range details.Transactions {
				if !tx.Message.AccountKeys[0].Equals(wallet) {
					t.Errorf("transaction %d fee payer = %s, want %s", i, tx.Message.AccountKeys[0], wallet)
				}
			}

			// A holds the record creation for a fresh wallet, the proposal and
			// the signatory.
			if len(a.Message.Instructions) != 3 {
				t.Errorf("A has %d instructions, want 3", len(a.Message.Instructions))
			}
			if len(b.Message.Instructions) != tt.n+1 {
				t.Fatalf("B has %d instructions, want %d", len(b.Message.Instructions), tt.n+1)
			}
			for i, ix := range ixs {
				want, _ := ix.Data()
				if !strings.Contains(string(b.Message.Instructions[i].Data), string(want)) {
					t.Errorf("insert %d does not carry caller instruction %d", i, i)
				}
			}
			last := b.Message.Instructions[tt.n].Data
			if len(last) != 1 || last[0] != 12 {
				t.Errorf("last instruction of B = %v, want sign-off", last)
			}

			if !strings.Contains(details.URL, realm.String()) || !strings.Contains(details.URL, details.Proposal.String()) || !strings.HasSuffix(details.URL, "?cluster=devnet") {
				t.Errorf("URL = %q", details.URL)
			}
		})
	}
}

func TestGovernedUnknownGovernance(t *testing.T) {
	l := memory.New()
	client := governance.NewClient(governance.DefaultProgramID, l)
	g := NewGoverned(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), client, l, "custom")

	_, err := g.ProposeTxn(context.Background(), transfers(1), "x", "")
	if !errors.Is(err, governance.ErrGovernanceNotFound) {
		t.Errorf("ProposeTxn() error = %v, want ErrGovernanceNotFound", err)
	}
}
