package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/workbenchapp/worknet-proposer/internal/config"
	"github.com/workbenchapp/worknet-proposer/internal/domain"
)

func shimConfig(t *testing.T, governed bool) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite3", DSN: filepath.Join(t.TempDir(), "data", "journal.db")},
		Ledger: config.LedgerConfig{
			Shim:            true,
			ProgramID:       "EdUCoDdRnT5HsQ2Ejy3TWMTQP8iUyMQB4WzoNh45pNX9",
			LicenseMint:     "Ew5hokTuULRDsgnhKThGv3nrw3RPjiHASQZNcRNTHJ9Z",
			SignalServerURL: "http://signal.daonetes.org:8080",
		},
		Governance: config.GovernanceConfig{ProgramID: "GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw"},
		Submission: config.SubmissionConfig{ConfirmTimeout: time.Second, PollInterval: time.Millisecond},
	}
	if governed {
		// Replaced by the seeded governance on the shim.
		cfg.Governance.Address = "DPiH3H3c7t47BMxqTxLsuPQpEC6Kne8GA9VXbxpnZxFE"
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return cfg
}

func TestShim(t *testing.T) {
	tests := []struct {
		name     string
		governed bool
		steps    int
	}{
		{"direct", false, 1},
		{"governed", true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(shimConfig(t, tt.governed), logr.Discard())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer a.Close()

			ctx := context.Background()
			result, err := a.Service.CreateWorkGroup(ctx, &domain.CreateWorkGroupRequest{Identifier: "abc-def-ghi", Name: "default"})
			if err != nil {
				t.Fatalf("CreateWorkGroup() error = %v", err)
			}
			if result.Status != domain.StatusSuccess || len(result.Steps) != tt.steps {
				t.Fatalf("CreateWorkGroup() = %s with %d steps, message %q", result.Status, len(result.Steps), result.Message)
			}

			journal, err := a.Store.ListSubmissionsForOperation(ctx, result.OperationID)
			if err != nil {
				t.Fatalf("ListSubmissionsForOperation() error = %v", err)
			}
			if len(journal) != tt.steps {
				t.Errorf("journal has %d steps, want %d", len(journal), tt.steps)
			}
			for i, sub := range journal {
				if sub.StepIndex != i || sub.Status != domain.StatusSuccess {
					t.Errorf("journal step %d = index %d status %s", i, sub.StepIndex, sub.Status)
				}
			}
		})
	}
}
