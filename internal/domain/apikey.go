package domain

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	apiKeyScheme = "wnp_"
	// The prefix is the scheme plus 8 hex digits of the secret.
	apiKeyPrefixLen = len(apiKeyScheme) + 8

	// BootstrapKeyID marks the configured bootstrap key, which has no stored
	// record.
	BootstrapKeyID = "bootstrap"
)

// APIKey is an operator credential for the proposal API. Only the SHA-256 of
// the secret is stored; the prefix names the key in listings, logs and the
// submission journal.
type APIKey struct {
	ID         string     `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	KeyHash    string     `json:"-" db:"key_hash"`
	KeyPrefix  string     `json:"key_prefix" db:"key_prefix"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// Actor is how the key appears in a submission's submitted_by column.
func (k *APIKey) Actor() string {
	return "key:" + k.KeyPrefix
}

// BootstrapAPIKey stands in for the configured bootstrap key.
func BootstrapAPIKey() *APIKey {
	return &APIKey{ID: BootstrapKeyID, Name: "Bootstrap Key", KeyPrefix: BootstrapKeyID}
}

// CreateAPIKeyRequest is the request body for creating an API key.
type CreateAPIKeyRequest struct {
	Name string `json:"name"`
}

// IssuedAPIKey is a newly generated key together with its secret. The secret
// is returned once and never stored.
type IssuedAPIKey struct {
	APIKey
	Key string `json:"key"`
}

// GenerateAPIKey mints a random "wnp_" key called name.
func GenerateAPIKey(name string, now time.Time) (*IssuedAPIKey, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating API key: %w", err)
	}
	secret := apiKeyScheme + hex.EncodeToString(raw)
	return &IssuedAPIKey{
		APIKey: APIKey{
			ID:        uuid.New().String(),
			Name:      name,
			KeyHash:   HashAPIKey(secret),
			KeyPrefix: secret[:apiKeyPrefixLen],
			CreatedAt: now.UTC(),
		},
		Key: secret,
	}, nil
}

// HashAPIKey returns the hex SHA-256 stored for a key secret.
func HashAPIKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

type actorKey struct{}

// WithActor records who is proposing. Submissions made with the returned
// context are journaled as submitted by actor.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor set by WithActor, or "".
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}
