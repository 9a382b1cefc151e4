/*-------------------------------------------------------------------------
 *
 * models.go
 *    Database models for DocFlow
 *
 * Defines data structures for workspaces, members, documents,
 * notifications, and API keys.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/db/models.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Workspace struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type WorkspaceMember struct {
	ID           uuid.UUID `db:"id"`
	WorkspaceID  uuid.UUID `db:"workspace_id"`
	Email        string    `db:"email"`
	DisplayName  string    `db:"display_name"`
	Role         string    `db:"role"`
	PasswordHash *string   `db:"password_hash"`
	JoinedAt     time.Time `db:"joined_at"`
}

type Document struct {
	ID           uuid.UUID  `db:"id"`
	WorkspaceID  uuid.UUID  `db:"workspace_id"`
	Name         string     `db:"name"`
	DocumentType string     `db:"document_type"`
	Status       string     `db:"status"`
	SubmittedBy  *uuid.UUID `db:"submitted_by"`
	Metadata     JSONBMap   `db:"metadata"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

type Notification struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Message   *string   `db:"message"`
	ActionURL *string   `db:"action_url"`
	Read      bool      `db:"read"`
	CreatedAt time.Time `db:"created_at"`
}

type APIKey struct {
	ID              uuid.UUID      `db:"id"`
	WorkspaceID     uuid.UUID      `db:"workspace_id"`
	KeyHash         string         `db:"key_hash"`
	KeyPrefix       string         `db:"key_prefix"`
	RateLimitPerMin int            `db:"rate_limit_per_minute"`
	Roles           pq.StringArray `db:"roles"`
	CreatedAt       time.Time      `db:"created_at"`
	LastUsedAt      *time.Time     `db:"last_used_at"`
	ExpiresAt       *time.Time     `db:"expires_at"`
}
