/*-------------------------------------------------------------------------
 *
 * context.go
 *    Context helper functions for API handlers
 *
 * Provides functions to extract the authenticated identity from request
 * context.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/api/context.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/db"
)

type contextKey string

const identityContextKey contextKey = "identity"

/* Identity is the authenticated caller: a workspace member via JWT, or a
 * service caller via API key. UserID is nil for key-only callers. */
type Identity struct {
	UserID      *uuid.UUID
	WorkspaceID uuid.UUID
	Role        string
	APIKey      *db.APIKey
}

/* WithIdentity stores the identity on the context */
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

/* GetIdentityFromContext gets the identity from context */
func GetIdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	return id, ok
}

/* MustGetIdentityFromContext gets the identity from context or returns error */
func MustGetIdentityFromContext(ctx context.Context) (*Identity, error) {
	id, ok := GetIdentityFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("identity not found in context: authentication required")
	}
	return id, nil
}
