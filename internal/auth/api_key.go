/*-------------------------------------------------------------------------
 *
 * api_key.go
 *    API key lifecycle management
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/auth/api_key.go
 *
 *-------------------------------------------------------------------------
 */

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/db"
	"github.com/atelierflow/docflow/internal/metrics"
)

type APIKeyManager struct {
	queries *db.Queries
}

func NewAPIKeyManager(queries *db.Queries) *APIKeyManager {
	return &APIKeyManager{queries: queries}
}

/* GenerateAPIKey generates a new API key scoped to a workspace */
func (m *APIKeyManager) GenerateAPIKey(ctx context.Context, workspaceID uuid.UUID, rateLimit int, roles []string) (string, *db.APIKey, error) {
	/* Generate random key (32 bytes = 44 base64 chars) */
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate key: %w", err)
	}

	key := base64.URLEncoding.EncodeToString(keyBytes)
	keyPrefix := GetKeyPrefix(key)
	keyHash, err := HashSecret(key)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash key: %w", err)
	}

	apiKey := &db.APIKey{
		WorkspaceID:     workspaceID,
		KeyHash:         keyHash,
		KeyPrefix:       keyPrefix,
		RateLimitPerMin: rateLimit,
		Roles:           roles,
	}

	if err := m.queries.CreateAPIKey(ctx, apiKey); err != nil {
		return "", nil, fmt.Errorf("failed to create API key: %w", err)
	}

	return key, apiKey, nil
}

/* ValidateAPIKey validates an API key and returns the key record */
func (m *APIKeyManager) ValidateAPIKey(ctx context.Context, key string) (*db.APIKey, error) {
	prefix := GetKeyPrefix(key)
	metrics.DebugWithContext(ctx, "Validating API key", map[string]interface{}{
		"key_prefix": prefix,
		"key_length": len(key),
	})

	/* Find candidates by prefix; prefixes may collide */
	candidates, err := m.queries.GetAPIKeyByPrefix(ctx, prefix)
	if err != nil {
		metrics.WarnWithContext(ctx, "API key lookup failed", map[string]interface{}{
			"key_prefix": prefix,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("API key lookup failed: prefix=%s, error=%w", prefix, err)
	}

	for i := range candidates {
		apiKey := &candidates[i]
		if !VerifySecret(key, apiKey.KeyHash) {
			continue
		}

		if apiKey.ExpiresAt != nil && apiKey.ExpiresAt.Before(time.Now()) {
			return nil, fmt.Errorf("API key expired: prefix=%s", prefix)
		}

		/* Update last used */
		_ = m.queries.UpdateAPIKeyLastUsed(ctx, apiKey.ID)

		return apiKey, nil
	}

	metrics.WarnWithContext(ctx, "API key verification failed", map[string]interface{}{
		"key_prefix": prefix,
	})
	return nil, fmt.Errorf("invalid API key: key verification failed")
}

/* DeleteAPIKey deletes an API key */
func (m *APIKeyManager) DeleteAPIKey(ctx context.Context, id uuid.UUID) error {
	return m.queries.DeleteAPIKey(ctx, id)
}
