/*-------------------------------------------------------------------------
 *
 * store.go
 *    Data access contract for the approval engine
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/approval/store.go
 *
 *-------------------------------------------------------------------------
 */

package approval

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/db"
)

/* Instance statuses */
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
)

/* Approver types */
const (
	ApproverUser = "user"
	ApproverRole = "role"
	ApproverAny  = "any"
)

/* Document statuses driven by the approval lifecycle */
const (
	DocumentPendingApproval = "pending_approval"
	DocumentValidated       = "validated"
	DocumentRejected        = "rejected"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrNoSteps          = errors.New("workflow has no steps")
	ErrWorkflowInactive = errors.New("workflow is not active")
	ErrInstanceActive   = errors.New("document already has an active approval chain")
	ErrNoApprover       = errors.New("approval step has no resolvable approver")
)

/* Store is the data access surface the engine runs against */
type Store interface {
	WithTx(ctx context.Context, fn func(Store) error) error

	GetDocumentByID(ctx context.Context, id uuid.UUID) (*db.Document, error)
	SetDocumentStatus(ctx context.Context, id uuid.UUID, status string) error

	GetWorkflowByID(ctx context.Context, id uuid.UUID) (*db.Workflow, error)
	ListWorkflowSteps(ctx context.Context, workflowID uuid.UUID) ([]db.WorkflowStep, error)

	GetMemberByID(ctx context.Context, id uuid.UUID) (*db.WorkspaceMember, error)
	FindMemberByRole(ctx context.Context, workspaceID uuid.UUID, role string) (*db.WorkspaceMember, error)

	CreateApprovalInstance(ctx context.Context, inst *db.ApprovalInstance) error
	GetApprovalInstanceByID(ctx context.Context, id uuid.UUID) (*db.ApprovalInstance, error)
	GetActiveInstanceByDocument(ctx context.Context, documentID uuid.UUID) (*db.ApprovalInstance, error)
	AdvanceApprovalInstance(ctx context.Context, id uuid.UUID, step int) error
	FinalizeApprovalInstance(ctx context.Context, id uuid.UUID, status string) error

	CreateDocumentApproval(ctx context.Context, a *db.DocumentApproval) error
	GetDocumentApprovalByID(ctx context.Context, id uuid.UUID) (*db.DocumentApproval, error)
	ResolveDocumentApproval(ctx context.Context, id uuid.UUID, status string, comment *string, actorID uuid.UUID) error
	ClaimDocumentApproval(ctx context.Context, id, approverID uuid.UUID) error
	ListApprovalsByInstance(ctx context.Context, instanceID uuid.UUID) ([]db.DocumentApproval, error)
}

/* queriesStore adapts db.Queries to the Store interface */
type queriesStore struct {
	*db.Queries
}

/* NewStore wraps the query layer as an engine store */
func NewStore(queries *db.Queries) Store {
	return &queriesStore{Queries: queries}
}

func (s *queriesStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return s.Queries.WithTx(ctx, func(txq *db.Queries) error {
		return fn(&queriesStore{Queries: txq})
	})
}
