// Package storagetest holds the behaviour every storage.Storage backend
// shares, so each backend runs the same checks.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
	"github.com/workbenchapp/worknet-proposer/internal/storage"
)

// Run exercises a fresh store returned by open for every subtest.
func Run(t *testing.T, open func(t *testing.T) storage.Storage) {
	t.Run("api keys", func(t *testing.T) { testAPIKeys(t, open(t)) })
	t.Run("submission lifecycle", func(t *testing.T) { testSubmissionLifecycle(t, open(t)) })
	t.Run("submission listing", func(t *testing.T) { testSubmissionListing(t, open(t)) })
}

func step(operationID string, index int, created time.Time) *domain.Submission {
	return &domain.Submission{
		ID:          uuid.New().String(),
		OperationID: operationID,
		Operation:   "Propose Create Workgroup",
		Kind:        "governed",
		Step:        "creating proposal",
		StepIndex:   index,
		Status:      domain.StatusPending,
		CreatedAt:   created,
		SubmittedBy: "key:wnp_0123abcd",
	}
}

func testAPIKeys(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	defer store.Close()

	count, err := store.CountAPIKeys(ctx)
	if err != nil || count != 0 {
		t.Fatalf("CountAPIKeys() = %d, %v, want 0", count, err)
	}

	key := &domain.APIKey{
		ID:        uuid.New().String(),
		Name:      "ci",
		KeyHash:   "abc123",
		KeyPrefix: "wnp_0123",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := store.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey() error = %v", err)
	}
	dup := *key
	dup.ID = uuid.New().String()
	if err := store.CreateAPIKey(ctx, &dup); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("CreateAPIKey(duplicate hash) error = %v, want ErrAlreadyExists", err)
	}

	got, err := store.GetAPIKeyByHash(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetAPIKeyByHash() error = %v", err)
	}
	if got.ID != key.ID || got.Name != "ci" {
		t.Errorf("GetAPIKeyByHash() = %+v", got)
	}
	if _, err := store.GetAPIKeyByHash(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetAPIKeyByHash(unknown) error = %v, want ErrNotFound", err)
	}

	if err := store.UpdateAPIKeyLastUsed(ctx, key.ID); err != nil {
		t.Fatalf("UpdateAPIKeyLastUsed() error = %v", err)
	}
	keys, err := store.ListAPIKeys(ctx)
	if err != nil || len(keys) != 1 {
		t.Fatalf("ListAPIKeys() = %d keys, %v", len(keys), err)
	}
	if keys[0].LastUsedAt == nil {
		t.Error("LastUsedAt not set after UpdateAPIKeyLastUsed")
	}

	if err := store.DeleteAPIKey(ctx, key.ID); err != nil {
		t.Fatalf("DeleteAPIKey() error = %v", err)
	}
	if err := store.DeleteAPIKey(ctx, key.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteAPIKey(again) error = %v, want ErrNotFound", err)
	}
}

func testSubmissionLifecycle(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	defer store.Close()

	created := time.Now().UTC().Truncate(time.Second)
	sub := step(uuid.New().String(), 0, created)
	if err := store.CreateSubmission(ctx, sub); err != nil {
		t.Fatalf("CreateSubmission() error = %v", err)
	}
	if err := store.CreateSubmission(ctx, step(sub.OperationID, 0, created)); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("CreateSubmission(same step) error = %v, want ErrAlreadyExists", err)
	}

	done := created.Add(2 * time.Second)
	sub.Status = domain.StatusFailed
	sub.Signature = "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"
	sub.Message = "Too many proposals outstanding. Cancel some. CODE=0x23c"
	sub.Logs = "Program log: Error: too many\nProgram failed"
	sub.InspectorURL = "https://explorer.solana.com/tx/inspector?cluster=devnet&message=AQ%3D%3D"
	sub.CompletedAt = &done
	if err := store.UpdateSubmission(ctx, sub); err != nil {
		t.Fatalf("UpdateSubmission() error = %v", err)
	}

	got, err := store.GetSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	if got.Status != domain.StatusFailed || got.Message != sub.Message || got.Logs != sub.Logs || got.Signature != sub.Signature {
		t.Errorf("GetSubmission() = %+v, want the updated record", got)
	}
	if got.SubmittedBy != sub.SubmittedBy {
		t.Errorf("SubmittedBy = %q, want %q", got.SubmittedBy, sub.SubmittedBy)
	}
	if got.InspectorURL != sub.InspectorURL {
		t.Errorf("InspectorURL = %q, want %q", got.InspectorURL, sub.InspectorURL)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, done)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}

	missing := step("x", 0, created)
	if err := store.UpdateSubmission(ctx, missing); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateSubmission(unknown) error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetSubmission(ctx, missing.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetSubmission(unknown) error = %v, want ErrNotFound", err)
	}
}

func testSubmissionListing(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	defer store.Close()

	base := time.Now().UTC().Truncate(time.Second)
	first := uuid.New().String()
	second := uuid.New().String()
	for _, sub := range []*domain.Submission{
		step(first, 0, base),
		step(first, 1, base),
		step(second, 0, base.Add(time.Minute)),
	} {
		if err := store.CreateSubmission(ctx, sub); err != nil {
			t.Fatalf("CreateSubmission() error = %v", err)
		}
	}

	steps, err := store.ListSubmissionsForOperation(ctx, first)
	if err != nil {
		t.Fatalf("ListSubmissionsForOperation() error = %v", err)
	}
	if len(steps) != 2 || steps[0].StepIndex != 0 || steps[1].StepIndex != 1 {
		t.Errorf("ListSubmissionsForOperation() = %d steps, want steps 0 and 1 in order", len(steps))
	}

	tests := []struct {
		name   string
		limit  int
		offset int
		want   []string
	}{
		{"all", 10, 0, []string{second, first, first}},
		{"first page", 1, 0, []string{second}},
		{"second page", 2, 1, []string{first, first}},
		{"past the end", 10, 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs, err := store.ListSubmissions(ctx, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("ListSubmissions() error = %v", err)
			}
			if len(subs) != len(tt.want) {
				t.Fatalf("ListSubmissions(%d, %d) returned %d, want %d", tt.limit, tt.offset, len(subs), len(tt.want))
			}
			for i, id := range tt.want {
				if subs[i].OperationID != id {
					t.Errorf("ListSubmissions()[%d] operation = %s, want %s", i, subs[i].OperationID, id)
				}
			}
		})
	}
}
