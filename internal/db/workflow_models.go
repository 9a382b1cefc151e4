/*-------------------------------------------------------------------------
 *
 * workflow_models.go
 *    Approval workflow models
 *
 * Defines data structures for workflow templates and their ordered steps.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/db/workflow_models.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Workflow struct {
	ID            uuid.UUID      `db:"id"`
	WorkspaceID   uuid.UUID      `db:"workspace_id"`
	Name          string         `db:"name"`
	Description   *string        `db:"description"`
	DocumentTypes pq.StringArray `db:"document_types"`
	IsActive      bool           `db:"is_active"`
	CreatedBy     *uuid.UUID     `db:"created_by"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

type WorkflowStep struct {
	ID              uuid.UUID  `db:"id"`
	WorkflowID      uuid.UUID  `db:"workflow_id"`
	StepOrder       int        `db:"step_order"`
	Name            string     `db:"name"`
	ApproverType    string     `db:"approver_type"`
	ApproverUserID  *uuid.UUID `db:"approver_user_id"`
	ApproverRole    *string    `db:"approver_role"`
	Required        bool       `db:"required"`
	AutoApproveDays *int       `db:"auto_approve_days"`
	CreatedAt       time.Time  `db:"created_at"`
}
