/*-------------------------------------------------------------------------
 *
 * approval_queries.go
 *    Approval instance and step approval queries for DocFlow
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/db/approval_queries.go
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
)

const createApprovalInstanceQuery = `
	INSERT INTO docflow.approval_instances (id, document_id, workflow_id, current_step, status, started_by, started_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (q *Queries) CreateApprovalInstance(ctx context.Context, inst *ApprovalInstance) error {
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	if inst.CurrentStep == 0 {
		inst.CurrentStep = 1
	}
	if inst.Status == "" {
		inst.Status = "pending"
	}
	inst.StartedAt = time.Now()

	_, err := q.DB.ExecContext(ctx, createApprovalInstanceQuery,
		inst.ID, inst.DocumentID, inst.WorkflowID, inst.CurrentStep, inst.Status, inst.StartedBy, inst.StartedAt)
	if err != nil {
		return q.formatQueryError("INSERT", "docflow.approval_instances", err)
	}
	return nil
}

const getApprovalInstanceByIDQuery = `
	SELECT id, document_id, workflow_id, current_step, status, started_by, started_at, completed_at
	FROM docflow.approval_instances
	WHERE id = $1`

func (q *Queries) GetApprovalInstanceByID(ctx context.Context, id uuid.UUID) (*ApprovalInstance, error) {
	var inst ApprovalInstance
	err := q.DB.GetContext(ctx, &inst, getApprovalInstanceByIDQuery, id)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.approval_instances", err)
	}
	return &inst, nil
}

const getActiveInstanceByDocumentQuery = `
	SELECT id, document_id, workflow_id, current_step, status, started_by, started_at, completed_at
	FROM docflow.approval_instances
	WHERE document_id = $1 AND status IN ('pending', 'in_progress')
	LIMIT 1`

/* GetActiveInstanceByDocument returns the active instance for a document,
 * or nil when none is running. */
func (q *Queries) GetActiveInstanceByDocument(ctx context.Context, documentID uuid.UUID) (*ApprovalInstance, error) {
	var inst ApprovalInstance
	err := q.DB.GetContext(ctx, &inst, getActiveInstanceByDocumentQuery, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, q.formatQueryError("SELECT", "docflow.approval_instances", err)
	}
	return &inst, nil
}

const listInstancesByDocumentQuery = `
	SELECT id, document_id, workflow_id, current_step, status, started_by, started_at, completed_at
	FROM docflow.approval_instances
	WHERE document_id = $1
	ORDER BY started_at DESC`

func (q *Queries) ListInstancesByDocument(ctx context.Context, documentID uuid.UUID) ([]ApprovalInstance, error) {
	instances := []ApprovalInstance{}
	err := q.DB.SelectContext(ctx, &instances, listInstancesByDocumentQuery, documentID)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.approval_instances", err)
	}
	return instances, nil
}

const advanceApprovalInstanceQuery = `
	UPDATE docflow.approval_instances
	SET current_step = $2, status = 'in_progress'
	WHERE id = $1 AND status IN ('pending', 'in_progress')`

/* AdvanceApprovalInstance moves an active instance to the given step. */
func (q *Queries) AdvanceApprovalInstance(ctx context.Context, id uuid.UUID, step int) error {
	result, err := q.DB.ExecContext(ctx, advanceApprovalInstanceQuery, id, step)
	if err != nil {
		return q.formatQueryError("UPDATE", "docflow.approval_instances", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyResolved
	}
	return nil
}

const finalizeApprovalInstanceQuery = `
	UPDATE docflow.approval_instances
	SET status = $2, completed_at = NOW()
	WHERE id = $1 AND status IN ('pending', 'in_progress')`

/* FinalizeApprovalInstance terminates an active instance with the given
 * status. Returns ErrAlreadyResolved when the instance already finished. */
func (q *Queries) FinalizeApprovalInstance(ctx context.Context, id uuid.UUID, status string) error {
	result, err := q.DB.ExecContext(ctx, finalizeApprovalInstanceQuery, id, status)
	if err != nil {
		return q.formatQueryError("UPDATE", "docflow.approval_instances", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyResolved
	}
	return nil
}

/* Step approval queries */

const createDocumentApprovalQuery = `
	INSERT INTO docflow.document_approvals (id, instance_id, step_id, approver_id, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

func (q *Queries) CreateDocumentApproval(ctx context.Context, a *DocumentApproval) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = "pending"
	}
	a.CreatedAt = time.Now()

	_, err := q.DB.ExecContext(ctx, createDocumentApprovalQuery,
		a.ID, a.InstanceID, a.StepID, a.ApproverID, a.Status, a.CreatedAt)
	if err != nil {
		return q.formatQueryError("INSERT", "docflow.document_approvals", err)
	}
	return nil
}

const getDocumentApprovalByIDQuery = `
	SELECT id, instance_id, step_id, approver_id, status, comment, created_at, resolved_at
	FROM docflow.document_approvals
	WHERE id = $1`

func (q *Queries) GetDocumentApprovalByID(ctx context.Context, id uuid.UUID) (*DocumentApproval, error) {
	var a DocumentApproval
	err := q.DB.GetContext(ctx, &a, getDocumentApprovalByIDQuery, id)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.document_approvals", err)
	}
	return &a, nil
}

const resolveDocumentApprovalQuery = `
	UPDATE docflow.document_approvals
	SET status = $2, comment = $3, approver_id = COALESCE(approver_id, $4), resolved_at = NOW()
	WHERE id = $1 AND status = 'pending'`

/* ResolveDocumentApproval records a decision on a pending approval.
 * Deciding an unclaimed approval implicitly claims it for the actor.
 * Returns ErrAlreadyResolved when the approval was decided before. */
func (q *Queries) ResolveDocumentApproval(ctx context.Context, id uuid.UUID, status string, comment *string, actorID uuid.UUID) error {
	result, err := q.DB.ExecContext(ctx, resolveDocumentApprovalQuery, id, status, comment, actorID)
	if err != nil {
		return q.formatQueryError("UPDATE", "docflow.document_approvals", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyResolved
	}
	return nil
}

const claimDocumentApprovalQuery = `
	UPDATE docflow.document_approvals
	SET approver_id = $2
	WHERE id = $1 AND approver_id IS NULL AND status = 'pending'`

/* ClaimDocumentApproval assigns an unclaimed pending approval to a member.
 * Returns ErrAlreadyResolved when the approval is claimed or decided. */
func (q *Queries) ClaimDocumentApproval(ctx context.Context, id, approverID uuid.UUID) error {
	result, err := q.DB.ExecContext(ctx, claimDocumentApprovalQuery, id, approverID)
	if err != nil {
		return q.formatQueryError("UPDATE", "docflow.document_approvals", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyResolved
	}
	return nil
}

const listApprovalsByInstanceQuery = `
	SELECT id, instance_id, step_id, approver_id, status, comment, created_at, resolved_at
	FROM docflow.document_approvals
	WHERE instance_id = $1
	ORDER BY created_at ASC`

func (q *Queries) ListApprovalsByInstance(ctx context.Context, instanceID uuid.UUID) ([]DocumentApproval, error) {
	approvals := []DocumentApproval{}
	err := q.DB.SelectContext(ctx, &approvals, listApprovalsByInstanceQuery, instanceID)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.document_approvals", err)
	}
	return approvals, nil
}

/* PendingApproval joins a pending approval with its document context for
 * the reviewer inbox. */
type PendingApproval struct {
	Approval     DocumentApproval `db:"-" json:"approval"`
	ApprovalID   uuid.UUID        `db:"approval_id" json:"-"`
	InstanceID   uuid.UUID        `db:"instance_id" json:"-"`
	DocumentID   uuid.UUID        `db:"document_id" json:"document_id"`
	DocumentName string           `db:"document_name" json:"document_name"`
	StepName     *string          `db:"step_name" json:"step_name,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

const listPendingApprovalsForUserQuery = `
	SELECT a.id AS approval_id, a.instance_id, i.document_id, d.name AS document_name,
	       s.name AS step_name, a.created_at
	FROM docflow.document_approvals a
	JOIN docflow.approval_instances i ON i.id = a.instance_id
	JOIN docflow.documents d ON d.id = i.document_id
	LEFT JOIN docflow.workflow_steps s ON s.id = a.step_id
	WHERE a.status = 'pending'
	  AND i.status IN ('pending', 'in_progress')
	  AND (a.approver_id = $1 OR a.approver_id IS NULL)
	  AND d.workspace_id = $2
	ORDER BY a.created_at ASC`

/* ListPendingApprovalsForUser returns pending approvals assigned to the
 * member plus unclaimed pool approvals in the workspace. */
func (q *Queries) ListPendingApprovalsForUser(ctx context.Context, userID, workspaceID uuid.UUID) ([]PendingApproval, error) {
	pending := []PendingApproval{}
	err := q.DB.SelectContext(ctx, &pending, listPendingApprovalsForUserQuery, userID, workspaceID)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.document_approvals", err)
	}
	return pending, nil
}

/* OverdueApproval is a pending approval whose step auto-approve deadline
 * has passed. */
type OverdueApproval struct {
	ApprovalID      uuid.UUID `db:"approval_id"`
	InstanceID      uuid.UUID `db:"instance_id"`
	ApproverID      uuid.UUID `db:"approver_id"`
	AutoApproveDays int       `db:"auto_approve_days"`
	CreatedAt       time.Time `db:"created_at"`
}

/* Unclaimed pool approvals are excluded: auto-approval acts on behalf of
 * the assigned approver and there is nobody to act for. */
const listOverduePendingApprovalsQuery = `
	SELECT a.id AS approval_id, a.instance_id, a.approver_id, s.auto_approve_days, a.created_at
	FROM docflow.document_approvals a
	JOIN docflow.workflow_steps s ON s.id = a.step_id
	WHERE a.status = 'pending'
	  AND a.approver_id IS NOT NULL
	  AND s.auto_approve_days IS NOT NULL
	  AND a.created_at < NOW() - (s.auto_approve_days || ' days')::interval
	ORDER BY a.created_at ASC
	LIMIT $1`

func (q *Queries) ListOverduePendingApprovals(ctx context.Context, limit int) ([]OverdueApproval, error) {
	overdue := []OverdueApproval{}
	err := q.DB.SelectContext(ctx, &overdue, listOverduePendingApprovalsQuery, limit)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.document_approvals", err)
	}
	return overdue, nil
}
