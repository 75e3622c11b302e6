package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-logr/logr"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
	"github.com/workbenchapp/worknet-proposer/internal/storage"
)

// Auth creates bearer token middleware. bootstrapKey is only accepted while
// no API keys are stored. The request logger gains the key prefix, and any
// submission made by the request is journaled with the key as its actor.
func Auth(store storage.Storage, bootstrapKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key, status, message := authenticate(ctx, store, bootstrapKey, r.Header.Get("Authorization"))
			if key == nil {
				reject(w, status, message)
				return
			}

			log := logr.FromContextOrDiscard(ctx).WithValues("apiKey", key.KeyPrefix)
			if key.ID != domain.BootstrapKeyID {
				go func() {
					if err := store.UpdateAPIKeyLastUsed(context.Background(), key.ID); err != nil {
						log.Error(err, "Warning: failed to record API key use")
					}
				}()
			}

			ctx = logr.NewContext(ctx, log)
			ctx = domain.WithActor(ctx, key.Actor())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate resolves the bearer key in header. A nil key comes with the
// status and message to reject the request with.
func authenticate(ctx context.Context, store storage.Storage, bootstrapKey, header string) (*domain.APIKey, int, string) {
	if header == "" {
		return nil, http.StatusUnauthorized, "missing authorization header"
	}
	secret, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, http.StatusUnauthorized, "invalid authorization header format"
	}
	if secret == "" {
		return nil, http.StatusUnauthorized, "empty API key"
	}

	count, err := store.CountAPIKeys(ctx)
	if err != nil {
		logr.FromContextOrDiscard(ctx).Error(err, "Failed to count API keys")
		return nil, http.StatusInternalServerError, "internal server error"
	}
	if count == 0 && bootstrapKey != "" && subtle.ConstantTimeCompare([]byte(secret), []byte(bootstrapKey)) == 1 {
		return domain.BootstrapAPIKey(), 0, ""
	}

	key, err := store.GetAPIKeyByHash(ctx, domain.HashAPIKey(secret))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, http.StatusUnauthorized, "invalid API key"
	case err != nil:
		logr.FromContextOrDiscard(ctx).Error(err, "Failed to look up API key")
		return nil, http.StatusInternalServerError, "internal server error"
	}
	return key, 0, ""
}

func reject(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&domain.APIError{Code: status, Message: message})
}
