package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
)

// Store is an in-memory implementation of the storage interface for testing.
type Store struct {
	mu sync.RWMutex

	apiKeys     map[string]*domain.APIKey
	submissions map[string]*domain.Submission
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		apiKeys:     make(map[string]*domain.APIKey),
		submissions: make(map[string]*domain.Submission),
	}
}

func (s *Store) Close() error { return nil }

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apiKeys[key.ID]; exists {
		return domain.ErrAlreadyExists
	}
	for _, existing := range s.apiKeys {
		if existing.KeyHash == key.KeyHash {
			return domain.ErrAlreadyExists
		}
	}
	cp := *key
	s.apiKeys[key.ID] = &cp
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.apiKeys {
		if key.KeyHash == keyHash {
			cp := *key
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]*domain.APIKey, 0, len(s.apiKeys))
	for _, key := range s.apiKeys {
		cp := *key
		keys = append(keys, &cp)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apiKeys[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.apiKeys, id)
	return nil
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, exists := s.apiKeys[id]
	if !exists {
		return domain.ErrNotFound
	}
	now := time.Now()
	key.LastUsedAt = &now
	return nil
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apiKeys), nil
}

// ============================================
// Submissions
// ============================================

func (s *Store) CreateSubmission(ctx context.Context, sub *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.submissions[sub.ID]; exists {
		return domain.ErrAlreadyExists
	}
	for _, existing := range s.submissions {
		if existing.OperationID == sub.OperationID && existing.StepIndex == sub.StepIndex {
			return domain.ErrAlreadyExists
		}
	}
	cp := *sub
	s.submissions[sub.ID] = &cp
	return nil
}

func (s *Store) UpdateSubmission(ctx context.Context, sub *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.submissions[sub.ID]
	if !exists {
		return domain.ErrNotFound
	}
	existing.Status = sub.Status
	existing.Signature = sub.Signature
	existing.Message = sub.Message
	existing.Logs = sub.Logs
	existing.ExplorerURL = sub.ExplorerURL
	existing.InspectorURL = sub.InspectorURL
	existing.ProposalURL = sub.ProposalURL
	existing.CompletedAt = sub.CompletedAt
	return nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, exists := s.submissions[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *Store) ListSubmissions(ctx context.Context, limit, offset int) ([]*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs := make([]*domain.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		cp := *sub
		subs = append(subs, &cp)
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.After(subs[j].CreatedAt)
		}
		return subs[i].StepIndex > subs[j].StepIndex
	})

	if offset >= len(subs) {
		return []*domain.Submission{}, nil
	}
	subs = subs[offset:]
	if limit >= 0 && limit < len(subs) {
		subs = subs[:limit]
	}
	return subs, nil
}

func (s *Store) ListSubmissionsForOperation(ctx context.Context, operationID string) ([]*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs := []*domain.Submission{}
	for _, sub := range s.submissions {
		if sub.OperationID == operationID {
			cp := *sub
			subs = append(subs, &cp)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].StepIndex < subs[j].StepIndex
	})
	return subs, nil
}
