package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/gagliardetto/solana-go"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Ledger     LedgerConfig
	Wallet     WalletConfig
	Governance GovernanceConfig
	Submission SubmissionConfig
	Agent      AgentConfig
	Log        LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host        string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port        int    `env:"SERVER_PORT" envDefault:"8080"`
	APIKey      string `env:"API_KEY"` // Bootstrap key, accepted until the first key is issued
	CORSOrigins string `env:"SERVER_CORS_ORIGINS" envDefault:"*"`
}

// GetCORSOrigins returns the allowed CORS origins as a slice.
func (c *ServerConfig) GetCORSOrigins() []string {
	if c.CORSOrigins == "" {
		return nil
	}
	origins := strings.Split(c.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

// DatabaseConfig holds submission journal configuration.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"data/worknet-proposer.db"`
}

// LedgerConfig holds cluster and program configuration.
type LedgerConfig struct {
	RPCURL          string `env:"LEDGER_RPC_URL" envDefault:"https://api.devnet.solana.com"`
	Shim            bool   `env:"LEDGER_SHIM" envDefault:"false"` // Simulated in-memory ledger for testing (disables RPC)
	ProgramID       string `env:"WORKNET_PROGRAM_ID" envDefault:"EdUCoDdRnT5HsQ2Ejy3TWMTQP8iUyMQB4WzoNh45pNX9"`
	LicenseMint     string `env:"LICENSE_MINT" envDefault:"Ew5hokTuULRDsgnhKThGv3nrw3RPjiHASQZNcRNTHJ9Z"`
	SignalServerURL string `env:"SIGNAL_SERVER_URL" envDefault:"http://signal.daonetes.org:8080"`
}

// WalletConfig holds the signing wallet.
type WalletConfig struct {
	Keypair string `env:"WALLET_KEYPAIR"` // Path to a solana-keygen JSON file; optional with LEDGER_SHIM
}

// GovernanceConfig selects governed proposals when Address is set.
type GovernanceConfig struct {
	ProgramID      string `env:"GOVERNANCE_PROGRAM_ID" envDefault:"GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw"`
	Address        string `env:"GOVERNANCE_ADDRESS"`
	DescriptionURL string `env:"PROPOSAL_DESCRIPTION_URL"`
}

// SubmissionConfig holds confirmation behaviour.
type SubmissionConfig struct {
	ConfirmTimeout time.Duration `env:"CONFIRM_TIMEOUT" envDefault:"90s"`
	PollInterval   time.Duration `env:"CONFIRM_POLL_INTERVAL" envDefault:"500ms"`
	SkipPreflight  bool          `env:"SKIP_PREFLIGHT" envDefault:"false"`
}

// AgentConfig holds the local device agent endpoint.
type AgentConfig struct {
	URL     string        `env:"AGENT_URL" envDefault:"http://localhost:9495"`
	Timeout time.Duration `env:"AGENT_TIMEOUT" envDefault:"5s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Development bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Ledger); err != nil {
		return nil, fmt.Errorf("parsing ledger config: %w", err)
	}
	if err := env.Parse(&cfg.Wallet); err != nil {
		return nil, fmt.Errorf("parsing wallet config: %w", err)
	}
	if err := env.Parse(&cfg.Governance); err != nil {
		return nil, fmt.Errorf("parsing governance config: %w", err)
	}
	if err := env.Parse(&cfg.Submission); err != nil {
		return nil, fmt.Errorf("parsing submission config: %w", err)
	}
	if err := env.Parse(&cfg.Agent); err != nil {
		return nil, fmt.Errorf("parsing agent config: %w", err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return nil, fmt.Errorf("parsing log config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Wallet.Keypair == "" && !c.Ledger.Shim {
		return fmt.Errorf("WALLET_KEYPAIR is required")
	}

	keys := []struct {
		name, value string
	}{
		{"WORKNET_PROGRAM_ID", c.Ledger.ProgramID},
		{"LICENSE_MINT", c.Ledger.LicenseMint},
		{"GOVERNANCE_PROGRAM_ID", c.Governance.ProgramID},
	}
	for _, k := range keys {
		if _, err := solana.PublicKeyFromBase58(k.value); err != nil {
			return fmt.Errorf("%s is not a valid address: %w", k.name, err)
		}
	}
	if c.Governance.Address != "" {
		if _, err := solana.PublicKeyFromBase58(c.Governance.Address); err != nil {
			return fmt.Errorf("GOVERNANCE_ADDRESS is not a valid address: %w", err)
		}
	}

	if c.Submission.ConfirmTimeout <= 0 {
		return fmt.Errorf("CONFIRM_TIMEOUT must be positive")
	}
	if c.Submission.PollInterval <= 0 {
		return fmt.Errorf("CONFIRM_POLL_INTERVAL must be positive")
	}

	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.Database.Driver)
	}

	return nil
}

// UseLedgerShim returns true if the simulated ledger should be used instead
// of RPC.
func (c *Config) UseLedgerShim() bool {
	return c.Ledger.Shim
}

// Governed returns true if operations are routed through a governance
// proposal.
func (c *Config) Governed() bool {
	return c.Governance.Address != ""
}
