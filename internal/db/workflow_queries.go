/*-------------------------------------------------------------------------
 *
 * workflow_queries.go
 *    Workflow definition queries for DocFlow
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/db/workflow_queries.go
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

const createWorkflowQuery = `
	INSERT INTO docflow.workflows (id, workspace_id, name, description, document_types, is_active, created_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func (q *Queries) CreateWorkflow(ctx context.Context, w *Workflow) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := q.DB.ExecContext(ctx, createWorkflowQuery,
		w.ID, w.WorkspaceID, w.Name, w.Description, w.DocumentTypes, w.IsActive, w.CreatedBy, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return q.formatQueryError("INSERT", "docflow.workflows", err)
	}
	return nil
}

const getWorkflowByIDQuery = `
	SELECT id, workspace_id, name, description, document_types, is_active, created_by, created_at, updated_at
	FROM docflow.workflows
	WHERE id = $1`

func (q *Queries) GetWorkflowByID(ctx context.Context, id uuid.UUID) (*Workflow, error) {
	var w Workflow
	err := q.DB.GetContext(ctx, &w, getWorkflowByIDQuery, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, q.formatQueryError("SELECT", "docflow.workflows", err)
	}
	return &w, nil
}

const listWorkflowsQuery = `
	SELECT id, workspace_id, name, description, document_types, is_active, created_by, created_at, updated_at
	FROM docflow.workflows
	WHERE workspace_id = $1
	ORDER BY created_at DESC`

func (q *Queries) ListWorkflows(ctx context.Context, workspaceID uuid.UUID) ([]Workflow, error) {
	workflows := []Workflow{}
	err := q.DB.SelectContext(ctx, &workflows, listWorkflowsQuery, workspaceID)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.workflows", err)
	}
	return workflows, nil
}

const updateWorkflowQuery = `
	UPDATE docflow.workflows
	SET name = $2, description = $3, document_types = $4, is_active = $5, updated_at = NOW()
	WHERE id = $1`

func (q *Queries) UpdateWorkflow(ctx context.Context, w *Workflow) error {
	result, err := q.DB.ExecContext(ctx, updateWorkflowQuery,
		w.ID, w.Name, w.Description, w.DocumentTypes, w.IsActive)
	if err != nil {
		return q.formatQueryError("UPDATE", "docflow.workflows", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("workflow not found: %s", w.ID)
	}
	return nil
}

const setWorkflowActiveQuery = `
	UPDATE docflow.workflows
	SET is_active = $2, updated_at = NOW()
	WHERE id = $1`

func (q *Queries) SetWorkflowActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := q.DB.ExecContext(ctx, setWorkflowActiveQuery, id, active)
	if err != nil {
		return q.formatQueryError("UPDATE", "docflow.workflows", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("workflow not found: %s", id)
	}
	return nil
}

const deleteWorkflowQuery = `
	DELETE FROM docflow.workflows
	WHERE id = $1`

func (q *Queries) DeleteWorkflow(ctx context.Context, id uuid.UUID) error {
	result, err := q.DB.ExecContext(ctx, deleteWorkflowQuery, id)
	if err != nil {
		return q.formatQueryError("DELETE", "docflow.workflows", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("workflow not found: %s", id)
	}
	return nil
}

/* Workflow step queries */

const createWorkflowStepQuery = `
	INSERT INTO docflow.workflow_steps (id, workflow_id, step_order, name, approver_type, approver_user_id, approver_role, required, auto_approve_days, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (q *Queries) CreateWorkflowStep(ctx context.Context, s *WorkflowStep) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()

	_, err := q.DB.ExecContext(ctx, createWorkflowStepQuery,
		s.ID, s.WorkflowID, s.StepOrder, s.Name, s.ApproverType, s.ApproverUserID, s.ApproverRole, s.Required, s.AutoApproveDays, s.CreatedAt)
	if err != nil {
		return q.formatQueryError("INSERT", "docflow.workflow_steps", err)
	}
	return nil
}

const listWorkflowStepsQuery = `
	SELECT id, workflow_id, step_order, name, approver_type, approver_user_id, approver_role, required, auto_approve_days, created_at
	FROM docflow.workflow_steps
	WHERE workflow_id = $1
	ORDER BY step_order ASC`

func (q *Queries) ListWorkflowSteps(ctx context.Context, workflowID uuid.UUID) ([]WorkflowStep, error) {
	steps := []WorkflowStep{}
	err := q.DB.SelectContext(ctx, &steps, listWorkflowStepsQuery, workflowID)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.workflow_steps", err)
	}
	return steps, nil
}

const deleteWorkflowStepsQuery = `
	DELETE FROM docflow.workflow_steps
	WHERE workflow_id = $1`

/* DeleteWorkflowSteps removes every step of a workflow. Used by the
 * full-replacement update path. */
func (q *Queries) DeleteWorkflowSteps(ctx context.Context, workflowID uuid.UUID) error {
	_, err := q.DB.ExecContext(ctx, deleteWorkflowStepsQuery, workflowID)
	if err != nil {
		return q.formatQueryError("DELETE", "docflow.workflow_steps", err)
	}
	return nil
}
