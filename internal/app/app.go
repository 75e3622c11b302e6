// Package app wires configuration into a ready WorkgroupService.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-logr/logr"

	"github.com/workbenchapp/worknet-proposer/internal/agent"
	"github.com/workbenchapp/worknet-proposer/internal/config"
	"github.com/workbenchapp/worknet-proposer/internal/governance"
	"github.com/workbenchapp/worknet-proposer/internal/ledger"
	"github.com/workbenchapp/worknet-proposer/internal/ledger/memory"
	"github.com/workbenchapp/worknet-proposer/internal/proposer"
	"github.com/workbenchapp/worknet-proposer/internal/service"
	"github.com/workbenchapp/worknet-proposer/internal/storage/sql"
	"github.com/workbenchapp/worknet-proposer/internal/submit"
	"github.com/workbenchapp/worknet-proposer/internal/wallet"
	"github.com/workbenchapp/worknet-proposer/internal/worknet"
)

const fetchTimeout = 30 * time.Second

// shimLicenseTokens is the license balance given to the wallet on the
// simulated ledger.
const shimLicenseTokens = 100_000_000_000

// App holds the wired components.
type App struct {
	Store   *sql.Store
	Ledger  ledger.Ledger
	Service *service.WorkgroupService
}

// New builds every component from cfg. The caller must Close the App.
func New(cfg *config.Config, log logr.Logger) (*App, error) {
	if cfg.Database.Driver == "sqlite3" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	store, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	a, err := build(cfg, log, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg *config.Config, log logr.Logger, store *sql.Store) (*App, error) {
	program := solana.MustPublicKeyFromBase58(cfg.Ledger.ProgramID)
	licenseMint := solana.MustPublicKeyFromBase58(cfg.Ledger.LicenseMint)
	govProgram := solana.MustPublicKeyFromBase58(cfg.Governance.ProgramID)

	signer := wallet.NewKeypair(solana.NewWallet().PrivateKey)
	if cfg.Wallet.Keypair != "" {
		k, err := wallet.LoadKeypair(cfg.Wallet.Keypair)
		if err != nil {
			return nil, err
		}
		signer = k
	}

	var l ledger.Ledger
	var governanceAddr solana.PublicKey
	if cfg.Governed() {
		governanceAddr = solana.MustPublicKeyFromBase58(cfg.Governance.Address)
	}
	if cfg.UseLedgerShim() {
		log.Info("Using simulated ledger", "wallet", signer.PublicKey())
		shim, addr, err := newShim(program, licenseMint, govProgram, signer.PublicKey(), cfg.Governed())
		if err != nil {
			return nil, err
		}
		if cfg.Governed() {
			log.Info("Seeded simulated governance", "governance", addr)
			governanceAddr = addr
		}
		l = shim
	} else {
		l = ledger.New(cfg.Ledger.RPCURL, cfg.Submission.SkipPreflight)
	}

	cluster := ledger.ExplorerCluster(l.Endpoint())
	var p proposer.Proposer
	if cfg.Governed() {
		client := governance.NewClient(govProgram, l)
		p = proposer.NewGoverned(signer.PublicKey(), governanceAddr, client, l, cluster)
	} else {
		p = proposer.NewDirect(signer.PublicKey(), l)
	}
	log.Info("Proposer ready", "kind", p.Kind(), "wallet", signer.PublicKey(), "cluster", cluster)

	var agentClient *agent.Client
	if cfg.Agent.URL != "" {
		agentClient = agent.New(cfg.Agent.URL, cfg.Agent.Timeout)
	}

	pipeline := submit.New(l, l.Endpoint(), store, submit.Options{
		ConfirmTimeout: cfg.Submission.ConfirmTimeout,
		PollInterval:   cfg.Submission.PollInterval,
		Reporter:       submit.LogReporter{},
	})

	svc := service.NewWorkgroupService(service.Options{
		Factory:        worknet.NewFactory(program, licenseMint, cfg.Ledger.SignalServerURL, l, worknet.NewHTTPFetcher(fetchTimeout)),
		Accounts:       worknet.NewAccounts(program, l),
		Proposer:       p,
		Signer:         signer,
		Pipeline:       pipeline,
		Agent:          agentClient,
		DescriptionURL: cfg.Governance.DescriptionURL,
		Cluster:        cluster,
	})

	return &App{Store: store, Ledger: l, Service: svc}, nil
}

// newShim creates a simulated ledger running the worknet and governance
// programs, with owner funded in SOL and license tokens.
func newShim(program, licenseMint, govProgram, owner solana.PublicKey, governed bool) (*memory.Ledger, solana.PublicKey, error) {
	l := memory.New()
	worknet.NewSimulator(program, licenseMint).Install(l)
	govSim := governance.NewSimulator(govProgram)
	govSim.Install(l)

	l.Airdrop(owner, 100*solana.LAMPORTS_PER_SOL)
	if err := fundLicense(l, owner, licenseMint); err != nil {
		return nil, solana.PublicKey{}, err
	}

	if !governed {
		return l, solana.PublicKey{}, nil
	}
	address, err := govSim.SeedGovernance(l, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("seeding governance: %w", err)
	}
	// Governed operations pay from the treasury.
	treasury, err := governance.PDAs{Program: govProgram}.NativeTreasury(address)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	if err := fundLicense(l, treasury.Key, licenseMint); err != nil {
		return nil, solana.PublicKey{}, err
	}
	return l, address, nil
}

func fundLicense(l *memory.Ledger, owner, licenseMint solana.PublicKey) error {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, licenseMint)
	if err != nil {
		return err
	}
	l.SetTokenAccount(ledger.TokenAccount{Address: ata, Mint: licenseMint, Owner: owner, Amount: shimLicenseTokens})
	return nil
}

// Close releases the journal store.
func (a *App) Close() error {
	return a.Store.Close()
}
