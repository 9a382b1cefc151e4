/*-------------------------------------------------------------------------
 *
 * approval_models.go
 *    Approval instance models
 *
 * Defines data structures for approval instances and per-step approval
 * decisions.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/db/approval_models.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"time"

	"github.com/google/uuid"
)

type ApprovalInstance struct {
	ID          uuid.UUID  `db:"id"`
	DocumentID  uuid.UUID  `db:"document_id"`
	WorkflowID  *uuid.UUID `db:"workflow_id"`
	CurrentStep int        `db:"current_step"`
	Status      string     `db:"status"`
	StartedBy   uuid.UUID  `db:"started_by"`
	StartedAt   time.Time  `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

type DocumentApproval struct {
	ID         uuid.UUID  `db:"id"`
	InstanceID uuid.UUID  `db:"instance_id"`
	StepID     *uuid.UUID `db:"step_id"`
	ApproverID *uuid.UUID `db:"approver_id"`
	Status     string     `db:"status"`
	Comment    *string    `db:"comment"`
	CreatedAt  time.Time  `db:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
}
