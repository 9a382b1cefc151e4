/*-------------------------------------------------------------------------
 *
 * queries.go
 *    Core database queries for DocFlow
 *
 * Implements workspace, member, document, and API key queries plus the
 * transaction helper shared by all query files.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/db/queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

/* ErrAlreadyResolved is returned when a guarded update targets a row that
 * has already left the pending state. */
var ErrAlreadyResolved = errors.New("record already resolved")

/* DBTX is satisfied by both *sqlx.DB and *sqlx.Tx so the same queries can
 * run inside or outside a transaction. */
type DBTX interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

/* Queries provides database query methods */
type Queries struct {
	DB DBTX

	raw      *sqlx.DB
	connInfo func() string
}

/* NewQueries creates a new queries instance */
func NewQueries(db *DB) *Queries {
	return &Queries{
		DB:       db.DB,
		raw:      db.DB,
		connInfo: db.GetConnInfoString,
	}
}

/* WithTx runs fn inside a transaction. When q is already transactional the
 * function runs directly on the current transaction. */
func (q *Queries) WithTx(ctx context.Context, fn func(*Queries) error) error {
	if q.raw == nil {
		/* Already inside a transaction */
		return fn(q)
	}

	tx, err := q.raw.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txq := &Queries{DB: tx, connInfo: q.connInfo}
	if err := fn(txq); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w (rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

/* formatQueryError creates a detailed error message for query failures */
func (q *Queries) formatQueryError(operation, table string, err error) error {
	conn := "unknown connection"
	if q.connInfo != nil {
		conn = q.connInfo()
	}
	return fmt.Errorf("%s on %s failed (connection: %s): %w", operation, table, conn, err)
}

/* Workspace queries */

const createWorkspaceQuery = `
	INSERT INTO docflow.workspaces (id, name, created_at)
	VALUES ($1, $2, $3)`

func (q *Queries) CreateWorkspace(ctx context.Context, ws *Workspace) error {
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}
	ws.CreatedAt = time.Now()

	_, err := q.DB.ExecContext(ctx, createWorkspaceQuery, ws.ID, ws.Name, ws.CreatedAt)
	if err != nil {
		return q.formatQueryError("INSERT", "docflow.workspaces", err)
	}
	return nil
}

const getWorkspaceByIDQuery = `
	SELECT id, name, created_at
	FROM docflow.workspaces
	WHERE id = $1`

func (q *Queries) GetWorkspaceByID(ctx context.Context, id uuid.UUID) (*Workspace, error) {
	var ws Workspace
	err := q.DB.GetContext(ctx, &ws, getWorkspaceByIDQuery, id)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.workspaces", err)
	}
	return &ws, nil
}

/* Workspace member queries */

const createMemberQuery = `
	INSERT INTO docflow.workspace_members (id, workspace_id, email, display_name, role, password_hash, joined_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (q *Queries) CreateMember(ctx context.Context, m *WorkspaceMember) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.JoinedAt = time.Now()

	_, err := q.DB.ExecContext(ctx, createMemberQuery,
		m.ID, m.WorkspaceID, m.Email, m.DisplayName, m.Role, m.PasswordHash, m.JoinedAt)
	if err != nil {
		return q.formatQueryError("INSERT", "docflow.workspace_members", err)
	}
	return nil
}

const getMemberByIDQuery = `
	SELECT id, workspace_id, email, display_name, role, password_hash, joined_at
	FROM docflow.workspace_members
	WHERE id = $1`

func (q *Queries) GetMemberByID(ctx context.Context, id uuid.UUID) (*WorkspaceMember, error) {
	var m WorkspaceMember
	err := q.DB.GetContext(ctx, &m, getMemberByIDQuery, id)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.workspace_members", err)
	}
	return &m, nil
}

const getMemberByEmailQuery = `
	SELECT id, workspace_id, email, display_name, role, password_hash, joined_at
	FROM docflow.workspace_members
	WHERE workspace_id = $1 AND email = $2`

func (q *Queries) GetMemberByEmail(ctx context.Context, workspaceID uuid.UUID, email string) (*WorkspaceMember, error) {
	var m WorkspaceMember
	err := q.DB.GetContext(ctx, &m, getMemberByEmailQuery, workspaceID, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, q.formatQueryError("SELECT", "docflow.workspace_members", err)
	}
	return &m, nil
}

const findMemberByRoleQuery = `
	SELECT id, workspace_id, email, display_name, role, password_hash, joined_at
	FROM docflow.workspace_members
	WHERE workspace_id = $1 AND role = $2
	ORDER BY joined_at ASC
	LIMIT 1`

/* FindMemberByRole returns the longest-standing member holding the role, or
 * nil when the workspace has none. */
func (q *Queries) FindMemberByRole(ctx context.Context, workspaceID uuid.UUID, role string) (*WorkspaceMember, error) {
	var m WorkspaceMember
	err := q.DB.GetContext(ctx, &m, findMemberByRoleQuery, workspaceID, role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, q.formatQueryError("SELECT", "docflow.workspace_members", err)
	}
	return &m, nil
}

const listMembersQuery = `
	SELECT id, workspace_id, email, display_name, role, password_hash, joined_at
	FROM docflow.workspace_members
	WHERE workspace_id = $1
	ORDER BY joined_at ASC`

func (q *Queries) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]WorkspaceMember, error) {
	members := []WorkspaceMember{}
	err := q.DB.SelectContext(ctx, &members, listMembersQuery, workspaceID)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.workspace_members", err)
	}
	return members, nil
}

/* Document queries */

const createDocumentQuery = `
	INSERT INTO docflow.documents (id, workspace_id, name, document_type, status, submitted_by, metadata, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func (q *Queries) CreateDocument(ctx context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = "draft"
	}
	if d.Metadata == nil {
		d.Metadata = JSONBMap{}
	}
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := q.DB.ExecContext(ctx, createDocumentQuery,
		d.ID, d.WorkspaceID, d.Name, d.DocumentType, d.Status, d.SubmittedBy, d.Metadata, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return q.formatQueryError("INSERT", "docflow.documents", err)
	}
	return nil
}

const getDocumentByIDQuery = `
	SELECT id, workspace_id, name, document_type, status, submitted_by, metadata, created_at, updated_at
	FROM docflow.documents
	WHERE id = $1`

func (q *Queries) GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	var d Document
	err := q.DB.GetContext(ctx, &d, getDocumentByIDQuery, id)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.documents", err)
	}
	return &d, nil
}

const listDocumentsQuery = `
	SELECT id, workspace_id, name, document_type, status, submitted_by, metadata, created_at, updated_at
	FROM docflow.documents
	WHERE workspace_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

func (q *Queries) ListDocumentsByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]Document, error) {
	docs := []Document{}
	err := q.DB.SelectContext(ctx, &docs, listDocumentsQuery, workspaceID, limit, offset)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.documents", err)
	}
	return docs, nil
}

const setDocumentStatusQuery = `
	UPDATE docflow.documents
	SET status = $2, updated_at = NOW()
	WHERE id = $1`

func (q *Queries) SetDocumentStatus(ctx context.Context, id uuid.UUID, status string) error {
	result, err := q.DB.ExecContext(ctx, setDocumentStatusQuery, id, status)
	if err != nil {
		return q.formatQueryError("UPDATE", "docflow.documents", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

const deleteDocumentQuery = `
	DELETE FROM docflow.documents
	WHERE id = $1`

func (q *Queries) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	result, err := q.DB.ExecContext(ctx, deleteDocumentQuery, id)
	if err != nil {
		return q.formatQueryError("DELETE", "docflow.documents", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

/* API key queries */

const createAPIKeyQuery = `
	INSERT INTO docflow.api_keys (id, workspace_id, key_hash, key_prefix, rate_limit_per_minute, roles, created_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (q *Queries) CreateAPIKey(ctx context.Context, k *APIKey) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	k.CreatedAt = time.Now()

	_, err := q.DB.ExecContext(ctx, createAPIKeyQuery,
		k.ID, k.WorkspaceID, k.KeyHash, k.KeyPrefix, k.RateLimitPerMin, k.Roles, k.CreatedAt, k.ExpiresAt)
	if err != nil {
		return q.formatQueryError("INSERT", "docflow.api_keys", err)
	}
	return nil
}

const getAPIKeyByPrefixQuery = `
	SELECT id, workspace_id, key_hash, key_prefix, rate_limit_per_minute, roles, created_at, last_used_at, expires_at
	FROM docflow.api_keys
	WHERE key_prefix = $1`

func (q *Queries) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]APIKey, error) {
	keys := []APIKey{}
	err := q.DB.SelectContext(ctx, &keys, getAPIKeyByPrefixQuery, prefix)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.api_keys", err)
	}
	return keys, nil
}

const updateAPIKeyLastUsedQuery = `
	UPDATE docflow.api_keys
	SET last_used_at = NOW()
	WHERE id = $1`

func (q *Queries) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := q.DB.ExecContext(ctx, updateAPIKeyLastUsedQuery, id)
	if err != nil {
		return q.formatQueryError("UPDATE", "docflow.api_keys", err)
	}
	return nil
}

const deleteAPIKeyQuery = `
	DELETE FROM docflow.api_keys
	WHERE id = $1`

func (q *Queries) DeleteAPIKey(ctx context.Context, id uuid.UUID) error {
	result, err := q.DB.ExecContext(ctx, deleteAPIKeyQuery, id)
	if err != nil {
		return q.formatQueryError("DELETE", "docflow.api_keys", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("API key not found: %s", id)
	}
	return nil
}
