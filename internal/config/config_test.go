package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WALLET_KEYPAIR", "/tmp/id.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
	if cfg.Ledger.RPCURL != "https://api.devnet.solana.com" {
		t.Errorf("RPCURL = %q", cfg.Ledger.RPCURL)
	}
	if cfg.Submission.ConfirmTimeout != 90*time.Second || cfg.Submission.PollInterval != 500*time.Millisecond {
		t.Errorf("Submission = %+v", cfg.Submission)
	}
	if cfg.Governed() || cfg.UseLedgerShim() {
		t.Errorf("Governed() = %v, UseLedgerShim() = %v, want both false", cfg.Governed(), cfg.UseLedgerShim())
	}
	if got := cfg.Server.GetCORSOrigins(); len(got) != 1 || got[0] != "*" {
		t.Errorf("GetCORSOrigins() = %v", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WALLET_KEYPAIR", "/tmp/id.json")
	t.Setenv("GOVERNANCE_ADDRESS", "DPiH3H3c7t47BMxqTxLsuPQpEC6Kne8GA9VXbxpnZxFE")
	t.Setenv("LEDGER_SHIM", "true")
	t.Setenv("CONFIRM_TIMEOUT", "2m")
	t.Setenv("SERVER_CORS_ORIGINS", "http://localhost:3000, https://app.daonetes.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Governed() || !cfg.UseLedgerShim() {
		t.Errorf("Governed() = %v, UseLedgerShim() = %v, want both true", cfg.Governed(), cfg.UseLedgerShim())
	}
	if cfg.Submission.ConfirmTimeout != 2*time.Minute {
		t.Errorf("ConfirmTimeout = %v", cfg.Submission.ConfirmTimeout)
	}
	origins := cfg.Server.GetCORSOrigins()
	if len(origins) != 2 || origins[1] != "https://app.daonetes.org" {
		t.Errorf("GetCORSOrigins() = %v", origins)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("CONFIRM_TIMEOUT", "soon")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parsing submission config") {
		t.Errorf("Load() error = %v, want a submission config error", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "sqlite3"},
			Ledger: LedgerConfig{
				ProgramID:   "EdUCoDdRnT5HsQ2Ejy3TWMTQP8iUyMQB4WzoNh45pNX9",
				LicenseMint: "Ew5hokTuULRDsgnhKThGv3nrw3RPjiHASQZNcRNTHJ9Z",
			},
			Wallet:     WalletConfig{Keypair: "id.json"},
			Governance: GovernanceConfig{ProgramID: "GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw"},
			Submission: SubmissionConfig{ConfirmTimeout: time.Second, PollInterval: time.Millisecond},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing wallet", func(c *Config) { c.Wallet.Keypair = "" }, "WALLET_KEYPAIR"},
		{"shim without wallet", func(c *Config) { c.Wallet.Keypair = ""; c.Ledger.Shim = true }, ""},
		{"bad program", func(c *Config) { c.Ledger.ProgramID = "nope" }, "WORKNET_PROGRAM_ID"},
		{"bad mint", func(c *Config) { c.Ledger.LicenseMint = "" }, "LICENSE_MINT"},
		{"bad governance", func(c *Config) { c.Governance.Address = "0000" }, "GOVERNANCE_ADDRESS"},
		{"zero timeout", func(c *Config) { c.Submission.ConfirmTimeout = 0 }, "CONFIRM_TIMEOUT"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "DB_DRIVER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
