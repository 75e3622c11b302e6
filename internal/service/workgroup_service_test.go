package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/workbenchapp/worknet-proposer/internal/agent"
	"github.com/workbenchapp/worknet-proposer/internal/domain"
	"github.com/workbenchapp/worknet-proposer/internal/governance"
	"github.com/workbenchapp/worknet-proposer/internal/ledger"
	"github.com/workbenchapp/worknet-proposer/internal/ledger/memory"
	"github.com/workbenchapp/worknet-proposer/internal/proposer"
	storemem "github.com/workbenchapp/worknet-proposer/internal/storage/memory"
	"github.com/workbenchapp/worknet-proposer/internal/submit"
	"github.com/workbenchapp/worknet-proposer/internal/validation"
	"github.com/workbenchapp/worknet-proposer/internal/wallet"
	"github.com/workbenchapp/worknet-proposer/internal/worknet"
)

const composeFile = "services:\n  web:\n    image: nginx\n"

type staticFetcher struct{}

func (staticFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return []byte(composeFile), nil
}

type fixture struct {
	svc    *WorkgroupService
	ledger *memory.Ledger
	store  *storemem.Store
	key    solana.PrivateKey
}

// newFixture wires a service against a memory ledger running the worknet and
// governance simulators. The wallet is funded and holds license tokens.
func newFixture(t *testing.T, governed bool, agentClient *agent.Client) *fixture {
	t.Helper()

	l := memory.New()
	worknet.NewSimulator(worknet.DefaultProgramID, worknet.DefaultLicenseMint).Install(l)
	govSim := governance.NewSimulator(governance.DefaultProgramID)
	govSim.Install(l)

	key := solana.NewWallet().PrivateKey
	l.Airdrop(key.PublicKey(), 10*solana.LAMPORTS_PER_SOL)
	ata, _, err := solana.FindAssociatedTokenAddress(key.PublicKey(), worknet.DefaultLicenseMint)
	if err != nil {
		t.Fatalf("FindAssociatedTokenAddress() error = %v", err)
	}
	l.SetTokenAccount(ledger.TokenAccount{
		Address: ata,
		Mint:    worknet.DefaultLicenseMint,
		Owner:   key.PublicKey(),
		Amount:  100 * solana.LAMPORTS_PER_SOL,
	})

	cluster := ledger.ExplorerCluster(l.Endpoint())
	var p proposer.Proposer = proposer.NewDirect(key.PublicKey(), l)
	if governed {
		address, err := govSim.SeedGovernance(l, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
		if err != nil {
			t.Fatalf("SeedGovernance() error = %v", err)
		}
		client := governance.NewClient(governance.DefaultProgramID, l)
		p = proposer.NewGoverned(key.PublicKey(), address, client, l, cluster)
	}

	store := storemem.New()
	svc := NewWorkgroupService(Options{
		Factory:  worknet.NewFactory(worknet.DefaultProgramID, worknet.DefaultLicenseMint, worknet.DefaultSignalServerURL, l, staticFetcher{}),
		Accounts: worknet.NewAccounts(worknet.DefaultProgramID, l),
		Proposer: p,
		Signer:   wallet.NewKeypair(key),
		Pipeline: submit.New(l, l.Endpoint(), store, submit.Options{PollInterval: time.Millisecond}),
		Agent:    agentClient,
		Cluster:  cluster,
	})
	return &fixture{svc: svc, ledger: l, store: store, key: key}
}

// mustSucceed returns a check for an operation's outcome, used as
// mustSucceed(t, "Op")(svc.Op(...)).
func mustSucceed(t *testing.T, what string) func(*domain.SubmissionResult, error) *domain.SubmissionResult {
	return func(result *domain.SubmissionResult, err error) *domain.SubmissionResult {
		t.Helper()
		if err != nil {
			t.Fatalf("%s error = %v", what, err)
		}
		if result.Status != domain.StatusSuccess {
			t.Fatalf("%s status = %s, message %q", what, result.Status, result.Message)
		}
		return result
	}
}

func TestValidationRejectsBeforeSubmitting(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()
	tests := []struct {
		name  string
		run   func() (*domain.SubmissionResult, error)
		field string
		code  validation.Code
	}{
		{"short identifier", func() (*domain.SubmissionResult, error) {
			return f.svc.CreateWorkGroup(ctx, &domain.CreateWorkGroupRequest{Identifier: "ab", Name: "default"})
		}, "identifier", validation.CodeTooShort},
		{"short group name", func() (*domain.SubmissionResult, error) {
			return f.svc.CreateWorkGroup(ctx, &domain.CreateWorkGroupRequest{Identifier: "abc-def-ghi", Name: " a "})
		}, "name", validation.CodeTooShort},
		{"bad deposit account", func() (*domain.SubmissionResult, error) {
			return f.svc.CreateWorkGroup(ctx, &domain.CreateWorkGroupRequest{Identifier: "abc-def-ghi", Name: "default", DepositAccount: "nope"})
		}, "deposit_account", validation.CodeInvalidAddress},
		{"zero replicas", func() (*domain.SubmissionResult, error) {
			return f.svc.CreateDeployment(ctx, "abc-def-ghi", &domain.CreateDeploymentRequest{Name: "web", SpecName: "web", Replicas: 0})
		}, "replicas", validation.CodeOutOfRange},
		{"spec url", func() (*domain.SubmissionResult, error) {
			return f.svc.CreateSpec(ctx, "abc-def-ghi", &domain.CreateSpecRequest{Name: "web", URL: "ftp://example.com/web.yml"})
		}, "url", validation.CodeInvalidURL},
		{"device key", func() (*domain.SubmissionResult, error) {
			return f.svc.ScheduleDeployment(ctx, "abc-def-ghi", "web", &domain.ScheduleDeploymentRequest{DeviceKey: "not-a-key"})
		}, "device_key", validation.CodeInvalidAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.run()
			var errs validation.ValidationErrors
			if !errors.As(err, &errs) {
				t.Fatalf("error = %v, want ValidationErrors", err)
			}
			if errs[0].Field != tt.field || errs[0].Code != tt.code {
				t.Errorf("first error = %s/%s, want %s/%s", errs[0].Field, errs[0].Code, tt.field, tt.code)
			}
		})
	}

	if got := len(f.ledger.Submissions()); got != 0 {
		t.Errorf("ledger saw %d submissions, want none", got)
	}
}

func TestDirectWorkGroupLifecycle(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()
	const identifier = "abc-def-ghi"
	device := solana.NewWallet().PublicKey()

	result := mustSucceed(t, "CreateWorkGroup")(f.svc.CreateWorkGroup(ctx, &domain.CreateWorkGroupRequest{Identifier: identifier, Name: "default"}))
	if result.Kind != string(proposer.KindDirect) || len(result.Steps) != 1 || result.ProposalURL != "" {
		t.Errorf("CreateWorkGroup result = kind %q, %d steps, url %q", result.Kind, len(result.Steps), result.ProposalURL)
	}
	if result.Addresses["group"] == "" {
		t.Errorf("Addresses = %v, want the work group address", result.Addresses)
	}

	mustSucceed(t, "RegisterDevice")(f.svc.RegisterDevice(ctx, identifier, &domain.RegisterDeviceRequest{DeviceKey: device.String()}))
	mustSucceed(t, "CreateSpec")(f.svc.CreateSpec(ctx, identifier, &domain.CreateSpecRequest{Name: "web", URL: "https://example.com/web.yml"}))
	mustSucceed(t, "CreateDeployment")(f.svc.CreateDeployment(ctx, identifier, &domain.CreateDeploymentRequest{Name: "nginx_test_run", SpecName: "web", Replicas: 1}))
	mustSucceed(t, "ScheduleDeployment")(f.svc.ScheduleDeployment(ctx, identifier, "nginx_test_run", &domain.ScheduleDeploymentRequest{DeviceKey: device.String()}))

	group, err := f.svc.GetWorkGroup(ctx, identifier)
	if err != nil {
		t.Fatalf("GetWorkGroup() error = %v", err)
	}
	if group.Name != "default" || group.Identifier != identifier || group.Address != result.Addresses["group"] {
		t.Errorf("GetWorkGroup() = %+v", group)
	}
	if len(group.Devices) != 1 || len(group.Specs) != 1 || len(group.Deployments) != 1 {
		t.Errorf("group lists = %d devices, %d specs, %d deployments", len(group.Devices), len(group.Specs), len(group.Deployments))
	}

	specs, err := f.svc.ListSpecs(ctx, identifier)
	if err != nil {
		t.Fatalf("ListSpecs() error = %v", err)
	}
	if len(specs) != 1 || specs[0].Name != "web" || specs[0].ContentsSha256 != worknet.ContentDigest([]byte(composeFile)) {
		t.Errorf("ListSpecs() = %+v", specs)
	}

	deployments, err := f.svc.ListDeployments(ctx, identifier)
	if err != nil {
		t.Fatalf("ListDeployments() error = %v", err)
	}
	if len(deployments) != 1 || deployments[0].Unscheduled != 0 {
		t.Errorf("ListDeployments() = %+v, want one fully scheduled deployment", deployments)
	}

	// Every replica is scheduled, so the ledger rejects another one.
	result, err = f.svc.ScheduleDeployment(ctx, identifier, "nginx_test_run", &domain.ScheduleDeploymentRequest{DeviceKey: device.String()})
	if err != nil {
		t.Fatalf("ScheduleDeployment() error = %v", err)
	}
	if result.Status != domain.StatusFailed || !strings.HasPrefix(result.Message, "Unknown error. ") {
		t.Errorf("second schedule = %s %q, want an unknown error", result.Status, result.Message)
	}
	if result.Steps[0].InspectorURL == "" {
		t.Error("failed step has no inspector link")
	}
	if !errors.Is(result.Err(), domain.ErrSubmissionFailed) {
		t.Errorf("Err() = %v, want ErrSubmissionFailed", result.Err())
	}

	journal, err := f.store.ListSubmissions(ctx, 100, 0)
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(journal) != 6 {
		t.Fatalf("journal has %d entries, want 6", len(journal))
	}
	if journal[0].Operation != OpScheduleDeployment+" nginx_test_run" || journal[0].Status != domain.StatusFailed {
		t.Errorf("latest journal entry = %q %s", journal[0].Operation, journal[0].Status)
	}
}

func TestCloseResources(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()
	const identifier = "abc-def-ghi"
	closing := &domain.CloseRequest{}

	mustSucceed(t, "CreateWorkGroup")(f.svc.CreateWorkGroup(ctx, &domain.CreateWorkGroupRequest{Identifier: identifier, Name: "default"}))
	mustSucceed(t, "CreateSpec")(f.svc.CreateSpec(ctx, identifier, &domain.CreateSpecRequest{Name: "web", URL: "https://example.com/web.yml"}))
	mustSucceed(t, "CreateDeployment")(f.svc.CreateDeployment(ctx, identifier, &domain.CreateDeploymentRequest{Name: "nginx_test_run", SpecName: "web", Replicas: 2}))

	mustSucceed(t, "CloseDeployment")(f.svc.CloseDeployment(ctx, identifier, "nginx_test_run", closing))
	mustSucceed(t, "CloseSpec")(f.svc.CloseSpec(ctx, identifier, "web", closing))

	specs, err := f.svc.ListSpecs(ctx, identifier)
	if err != nil {
		t.Fatalf("ListSpecs() error = %v", err)
	}
	deployments, err := f.svc.ListDeployments(ctx, identifier)
	if err != nil {
		t.Fatalf("ListDeployments() error = %v", err)
	}
	if len(specs) != 0 || len(deployments) != 0 {
		t.Errorf("after close: %d specs, %d deployments, want none", len(specs), len(deployments))
	}

	mustSucceed(t, "CloseWorkGroup")(f.svc.CloseWorkGroup(ctx, identifier, closing))
	if _, err := f.svc.GetWorkGroup(ctx, identifier); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetWorkGroup() after close error = %v, want ErrNotFound", err)
	}
}

func TestGetWorkGroupNotFound(t *testing.T) {
	f := newFixture(t, false, nil)
	if _, err := f.svc.GetWorkGroup(context.Background(), "missing-group"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetWorkGroup() error = %v, want ErrNotFound", err)
	}
}

func TestRegisterDeviceFromAgent(t *testing.T) {
	device := solana.NewWallet().PublicKey()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"deviceWallet":"` + device.String() + `"}`))
	}))
	defer srv.Close()

	f := newFixture(t, false, agent.New(srv.URL, time.Second))
	ctx := context.Background()
	mustSucceed(t, "CreateWorkGroup")(f.svc.CreateWorkGroup(ctx, &domain.CreateWorkGroupRequest{Identifier: "abc-def-ghi", Name: "default"}))
	mustSucceed(t, "RegisterDevice")(f.svc.RegisterDevice(ctx, "abc-def-ghi", &domain.RegisterDeviceRequest{}))

	devices, err := f.svc.ListDevices(ctx, "abc-def-ghi")
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 1 || devices[0].Address == "" {
		t.Fatalf("ListDevices() = %+v, want the agent's device", devices)
	}
}

func TestGovernedRegisterDevice(t *testing.T) {
	f := newFixture(t, true, nil)
	ctx := context.Background()

	info, err := f.svc.ProposerInfo(ctx)
	if err != nil {
		t.Fatalf("ProposerInfo() error = %v", err)
	}
	if !info.Governed || info.Governance == "" || info.Payer == info.Wallet {
		t.Errorf("ProposerInfo() = %+v, want a governed proposer paying from the treasury", info)
	}

	device := solana.NewWallet().PublicKey()
	result := mustSucceed(t, "RegisterDevice")(f.svc.RegisterDevice(ctx, "abc-def-ghi", &domain.RegisterDeviceRequest{DeviceKey: device.String()}))
	if result.Kind != string(proposer.KindGoverned) || len(result.Steps) != 2 {
		t.Fatalf("RegisterDevice result = kind %q, %d steps", result.Kind, len(result.Steps))
	}
	if result.ProposalURL == "" || !strings.Contains(result.Operation, "Propose "+OpRegisterDevice) {
		t.Errorf("RegisterDevice result = operation %q, url %q", result.Operation, result.ProposalURL)
	}
	if got := len(f.ledger.Submissions()); got != 2 {
		t.Errorf("ledger saw %d submissions, want 2", got)
	}

	// The wrapped instructions only run once the proposal executes.
	if _, err := f.svc.GetWorkGroup(ctx, "abc-def-ghi"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetWorkGroup() error = %v, want ErrNotFound", err)
	}
}
