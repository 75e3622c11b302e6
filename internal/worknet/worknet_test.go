package worknet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/workbenchapp/worknet-proposer/internal/ledger"
	"github.com/workbenchapp/worknet-proposer/internal/ledger/memory"
)

type staticFetcher struct {
	content []byte
	err     error
}

func (f staticFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.content, f.err
}

// testNet is a memory ledger with the worknet simulator installed and a
// funded payer holding license tokens.
type testNet struct {
	t       *testing.T
	ledger  *memory.Ledger
	factory *Factory
	reader  *Accounts
	payer   solana.PrivateKey
}

func newTestNet(t *testing.T) *testNet {
	t.Helper()

	l := memory.New()
	NewSimulator(DefaultProgramID, DefaultLicenseMint).Install(l)

	payer := solana.NewWallet().PrivateKey
	l.Airdrop(payer.PublicKey(), 10*solana.LAMPORTS_PER_SOL)

	ata, _, err := solana.FindAssociatedTokenAddress(payer.PublicKey(), DefaultLicenseMint)
	if err != nil {
		t.Fatalf("FindAssociatedTokenAddress() error = %v", err)
	}
	l.SetTokenAccount(ledger.TokenAccount{
		Address: ata,
		Mint:    DefaultLicenseMint,
		Owner:   payer.PublicKey(),
		Amount:  5 * licenseDepositAmount,
	})

	fetcher := staticFetcher{content: []byte("services:\n  web:\n    image: nginx\n")}
	return &testNet{
		t:       t,
		ledger:  l,
		factory: NewFactory(DefaultProgramID, DefaultLicenseMint, DefaultSignalServerURL, l, fetcher),
		reader:  NewAccounts(DefaultProgramID, l),
		payer:   payer,
	}
}

// submit signs the built instructions with the payer and sends them.
func (n *testNet) submit(b *Built, err error) error {
	t := n.t
	t.Helper()
	if err != nil {
		t.Fatalf("building instructions: %v", err)
	}

	ctx := context.Background()
	hash, err := n.ledger.LatestBlockhash(ctx)
	if err != nil {
		t.Fatalf("LatestBlockhash() error = %v", err)
	}
	tx, err := solana.NewTransaction(b.Instructions, hash, solana.TransactionPayer(n.payer.PublicKey()))
	if err != nil {
		t.Fatalf("NewTransaction() error = %v", err)
	}
	if _, err := tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(n.payer.PublicKey()) {
			return &n.payer
		}
		return nil
	}); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	_, err = n.ledger.Send(ctx, tx)
	return err
}

func TestInstructionDiscriminator(t *testing.T) {
	tests := []struct {
		name string
		want [8]byte
	}{
		{InstructionCreateWorkGroup, [8]byte{80, 126, 215, 230, 103, 167, 176, 145}},
		{InstructionRegisterDevice, [8]byte{210, 151, 56, 68, 22, 158, 90, 193}},
		{InstructionCreateWorkSpec, [8]byte{119, 183, 41, 136, 102, 42, 255, 215}},
		{InstructionCreateDeployment, [8]byte{55, 207, 186, 101, 21, 218, 102, 171}},
		{InstructionSchedule, [8]byte{149, 203, 229, 209, 47, 51, 221, 206}},
		{InstructionCloseDevice, [8]byte{156, 69, 71, 242, 206, 207, 38, 134}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InstructionDiscriminator(tt.name); got != tt.want {
				t.Errorf("InstructionDiscriminator(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if got, want := AccountDiscriminator(AccountWorkGroup), [8]byte{58, 241, 147, 80, 128, 170, 54, 35}; got != want {
		t.Errorf("AccountDiscriminator(%q) = %v, want %v", AccountWorkGroup, got, want)
	}
}

func TestWorkGroupAddress(t *testing.T) {
	pdas := PDAs{Program: DefaultProgramID}
	got, err := pdas.WorkGroup("abc-def-ghi")
	if err != nil {
		t.Fatalf("WorkGroup() error = %v", err)
	}

	want, bump, err := solana.FindProgramAddress([][]byte{[]byte("abc-def-ghi"), []byte("work_group")}, DefaultProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress() error = %v", err)
	}
	if !got.Key.Equals(want) || got.Bump != bump {
		t.Errorf("WorkGroup() = %s/%d, want %s/%d", got.Key, got.Bump, want, bump)
	}

	if _, err := pdas.WorkGroup("an-identifier-that-is-much-longer-than-32-bytes"); err == nil {
		t.Error("WorkGroup() with a long identifier should fail")
	}
}

func TestRegisterDeviceInstructions(t *testing.T) {
	n := newTestNet(t)
	deviceKey := solana.NewWallet().PublicKey()

	b, err := n.factory.RegisterDevice(n.payer.PublicKey(), "abc-def-ghi", deviceKey)
	if err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	if len(b.Instructions) != 2 {
		t.Fatalf("RegisterDevice() built %d instructions, want 2", len(b.Instructions))
	}
	if got := b.Instructions[0].ProgramID(); !got.Equals(solana.SystemProgramID) {
		t.Errorf("first instruction program = %s, want system program", got)
	}
	if got := b.Instructions[1].ProgramID(); !got.Equals(DefaultProgramID) {
		t.Errorf("second instruction program = %s, want worknet program", got)
	}

	accounts := b.Instructions[0].Accounts()
	if !accounts[1].PublicKey.Equals(deviceKey) {
		t.Errorf("funding transfer recipient = %s, want %s", accounts[1].PublicKey, deviceKey)
	}
}

func TestCreateSpecFetch(t *testing.T) {
	const doc = "services:\n  db:\n    image: postgres\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/compose.yml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(doc))
	}))
	defer srv.Close()

	l := memory.New()
	factory := NewFactory(DefaultProgramID, DefaultLicenseMint, DefaultSignalServerURL, l, NewHTTPFetcher(0))
	payer := solana.NewWallet().PublicKey()

	b, err := factory.CreateSpec(context.Background(), payer, "abc-def-ghi", "db", srv.URL+"/compose.yml", "")
	if err != nil {
		t.Fatalf("CreateSpec() error = %v", err)
	}
	sum := sha256.Sum256([]byte(doc))
	if want := hex.EncodeToString(sum[:]); b.Digest != want {
		t.Errorf("CreateSpec() digest = %s, want %s", b.Digest, want)
	}

	var args CreateWorkSpecArgs
	data, _ := b.Instructions[0].Data()
	if err := decodeInstruction(InstructionCreateWorkSpec, data, &args); err != nil {
		t.Fatalf("decoding create_work_spec: %v", err)
	}
	if args.ContentsSha256 != b.Digest || args.Mutable || args.WorkType != WorkTypeDockerCompose {
		t.Errorf("create_work_spec args = %+v", args)
	}

	_, err = factory.CreateSpec(context.Background(), payer, "abc-def-ghi", "db", srv.URL+"/missing.yml", "")
	if !errors.Is(err, ErrContentFetch) {
		t.Errorf("CreateSpec() on 404 error = %v, want ErrContentFetch", err)
	}
}

func TestCreateWorkGroupWithoutLicense(t *testing.T) {
	l := memory.New()
	factory := NewFactory(DefaultProgramID, DefaultLicenseMint, DefaultSignalServerURL, l, staticFetcher{})

	_, err := factory.CreateWorkGroup(context.Background(), solana.NewWallet().PublicKey(), "abc-def-ghi", "test", solana.PublicKey{})
	if !errors.Is(err, ErrNoLicenseTokens) {
		t.Errorf("CreateWorkGroup() error = %v, want ErrNoLicenseTokens", err)
	}
}

func TestScheduleDeployment(t *testing.T) {
	n := newTestNet(t)
	ctx := context.Background()
	payer := n.payer.PublicKey()
	deviceKey := solana.NewWallet().PublicKey()
	const identifier = "abc-def-ghi"

	if err := n.submit(n.factory.CreateWorkGroup(ctx, payer, identifier, "test group", solana.PublicKey{})); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := n.submit(n.factory.RegisterDevice(payer, identifier, deviceKey)); err != nil {
		t.Fatalf("register device: %v", err)
	}
	if err := n.submit(n.factory.CreateSpec(ctx, payer, identifier, "web", "https://example.com/web.yml", "")); err != nil {
		t.Fatalf("create spec: %v", err)
	}
	if err := n.submit(n.factory.CreateDeployment(payer, identifier, "web", "nginx_test_run", 1)); err != nil {
		t.Fatalf("create deployment: %v", err)
	}

	groupKey, group, err := n.reader.WorkGroup(ctx, identifier)
	if err != nil {
		t.Fatalf("WorkGroup() error = %v", err)
	}
	if len(group.Devices) != 1 || len(group.Specs) != 1 || len(group.Deployments) != 1 {
		t.Errorf("group lists = %d devices, %d specs, %d deployments", len(group.Devices), len(group.Specs), len(group.Deployments))
	}

	before, err := n.reader.ScheduledReplicas(ctx, groupKey, "nginx_test_run", deviceKey)
	if err != nil {
		t.Fatalf("ScheduledReplicas() error = %v", err)
	}
	if err := n.submit(n.factory.ScheduleDeployment(payer, identifier, "nginx_test_run", deviceKey)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	after, err := n.reader.ScheduledReplicas(ctx, groupKey, "nginx_test_run", deviceKey)
	if err != nil {
		t.Fatalf("ScheduledReplicas() error = %v", err)
	}
	if after != before+1 {
		t.Errorf("device replicas = %d, want %d", after, before+1)
	}

	// All replicas are scheduled, so another schedule is rejected on-chain.
	err = n.submit(n.factory.ScheduleDeployment(payer, identifier, "nginx_test_run", deviceKey))
	var txErr *ledger.TransactionError
	if !errors.As(err, &txErr) {
		t.Fatalf("second schedule error = %v, want *ledger.TransactionError", err)
	}
	pe, ok := LookupProgramError(txErr.Message)
	if !ok || pe.Code != ErrInsufficientReplicaTokens.Code {
		t.Errorf("second schedule error = %v, want %s", err, ErrInsufficientReplicaTokens.Hex())
	}
}

func TestCloseDeviceLeavesPlaceholder(t *testing.T) {
	n := newTestNet(t)
	ctx := context.Background()
	payer := n.payer.PublicKey()
	deviceKey := solana.NewWallet().PublicKey()

	if err := n.submit(n.factory.CreateWorkGroup(ctx, payer, "grp", "group", solana.PublicKey{})); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := n.submit(n.factory.RegisterDevice(payer, "grp", deviceKey)); err != nil {
		t.Fatalf("register device: %v", err)
	}
	if err := n.submit(n.factory.CloseDevice(payer, "grp", deviceKey)); err != nil {
		t.Fatalf("close device: %v", err)
	}

	_, group, err := n.reader.WorkGroup(ctx, "grp")
	if err != nil {
		t.Fatalf("WorkGroup() error = %v", err)
	}
	if len(group.Devices) != 1 || !group.Devices[0].Equals(solana.SystemProgramID) {
		t.Errorf("devices after close = %v, want [system program]", group.Devices)
	}
}

func TestCloseWorkGroupReturnsLicense(t *testing.T) {
	n := newTestNet(t)
	ctx := context.Background()
	payer := n.payer.PublicKey()

	if err := n.submit(n.factory.CreateWorkGroup(ctx, payer, "grp", "group", solana.PublicKey{})); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := n.submit(n.factory.CloseWorkGroup(payer, "grp")); err != nil {
		t.Fatalf("close group: %v", err)
	}

	if _, _, err := n.reader.WorkGroup(ctx, "grp"); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Errorf("WorkGroup() after close error = %v, want ErrAccountNotFound", err)
	}
	ata, _, _ := solana.FindAssociatedTokenAddress(payer, DefaultLicenseMint)
	balance, err := n.ledger.TokenBalance(ctx, ata)
	if err != nil {
		t.Fatalf("TokenBalance() error = %v", err)
	}
	if balance != 5*licenseDepositAmount {
		t.Errorf("license balance = %d, want %d", balance, 5*licenseDepositAmount)
	}
}

func TestLookupProgramError(t *testing.T) {
	tests := []struct {
		text   string
		want   uint32
		wantOK bool
	}{
		{"Error processing Instruction 0: custom program error: 0x1771", 6001, true},
		{"custom program error: 0x1770", 6000, true},
		{"custom program error: 0x23c", 0, false},
		{"insufficient lamports", 0, false},
	}

	for _, tt := range tests {
		pe, ok := LookupProgramError(tt.text)
		if ok != tt.wantOK || pe.Code != tt.want {
			t.Errorf("LookupProgramError(%q) = %d, %v, want %d, %v", tt.text, pe.Code, ok, tt.want, tt.wantOK)
		}
	}
}
