package storage

import (
	"context"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
)

// Storage persists the submission journal and the API keys that guard it.
type Storage interface {
	Close() error

	// API Keys
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
	CountAPIKeys(ctx context.Context) (int, error)

	// Submissions
	CreateSubmission(ctx context.Context, sub *domain.Submission) error
	UpdateSubmission(ctx context.Context, sub *domain.Submission) error
	GetSubmission(ctx context.Context, id string) (*domain.Submission, error)
	// ListSubmissions returns the newest submissions first.
	ListSubmissions(ctx context.Context, limit, offset int) ([]*domain.Submission, error)
	// ListSubmissionsForOperation returns the steps of one operation in
	// submission order.
	ListSubmissionsForOperation(ctx context.Context, operationID string) ([]*domain.Submission, error)
}
