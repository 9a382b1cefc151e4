/*-------------------------------------------------------------------------
 *
 * engine.go
 *    Sequential document approval engine
 *
 * Drives approval chains through their steps: starting a chain against a
 * workflow definition, recording step decisions, advancing to the next
 * step, and terminating with a document status change. All state
 * transitions for one decision happen in a single transaction;
 * notifications fire after commit.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/approval/engine.go
 *
 *-------------------------------------------------------------------------
 */

package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/db"
	"github.com/atelierflow/docflow/internal/metrics"
)

/* Notifier receives approval lifecycle events after the transaction that
 * produced them commits. Implementations must not fail the caller. */
type Notifier interface {
	ApprovalRequested(ctx context.Context, doc *db.Document, inst *db.ApprovalInstance, approval *db.DocumentApproval, step *db.WorkflowStep, actor uuid.UUID)
	ApprovalCompleted(ctx context.Context, doc *db.Document, inst *db.ApprovalInstance)
	ApprovalRejected(ctx context.Context, doc *db.Document, inst *db.ApprovalInstance, rejectedBy uuid.UUID, comment *string)
}

/* Engine runs sequential approval chains */
type Engine struct {
	store    Store
	notifier Notifier
}

/* NewEngine creates an approval engine */
func NewEngine(store Store, notifier Notifier) *Engine {
	return &Engine{store: store, notifier: notifier}
}

/* Start begins an approval chain for a document against a workflow.
 *
 * The instance and the first step's approval row are created together;
 * the document moves to pending_approval. One active chain per document
 * is enforced here and by a partial unique index underneath. */
func (e *Engine) Start(ctx context.Context, documentID, workflowID, startedBy uuid.UUID) (*db.ApprovalInstance, error) {
	var (
		inst     *db.ApprovalInstance
		approval *db.DocumentApproval
		doc      *db.Document
		step     db.WorkflowStep
	)

	err := e.store.WithTx(ctx, func(s Store) error {
		var err error
		doc, err = s.GetDocumentByID(ctx, documentID)
		if err != nil {
			return err
		}

		workflow, err := s.GetWorkflowByID(ctx, workflowID)
		if err != nil {
			return err
		}
		if workflow == nil {
			return fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
		}
		if !workflow.IsActive {
			return ErrWorkflowInactive
		}

		active, err := s.GetActiveInstanceByDocument(ctx, documentID)
		if err != nil {
			return err
		}
		if active != nil {
			return ErrInstanceActive
		}

		steps, err := s.ListWorkflowSteps(ctx, workflowID)
		if err != nil {
			return err
		}
		if len(steps) == 0 {
			return ErrNoSteps
		}
		step = steps[0]

		approverID, err := resolveApprover(ctx, s, &step, doc.WorkspaceID, startedBy)
		if err != nil {
			return err
		}

		wfID := workflowID
		inst = &db.ApprovalInstance{
			DocumentID:  documentID,
			WorkflowID:  &wfID,
			CurrentStep: 1,
			Status:      StatusInProgress,
			StartedBy:   startedBy,
		}
		if err := s.CreateApprovalInstance(ctx, inst); err != nil {
			return err
		}

		stepID := step.ID
		approval = &db.DocumentApproval{
			InstanceID: inst.ID,
			StepID:     &stepID,
			ApproverID: approverID,
			Status:     StatusPending,
		}
		if err := s.CreateDocumentApproval(ctx, approval); err != nil {
			return err
		}

		return s.SetDocumentStatus(ctx, documentID, DocumentPendingApproval)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordApprovalStarted()
	metrics.InfoWithContext(ctx, "Approval chain started", map[string]interface{}{
		"instance_id": inst.ID.String(),
		"document_id": documentID.String(),
		"workflow_id": workflowID.String(),
		"started_by":  startedBy.String(),
	})

	if e.notifier != nil {
		e.notifier.ApprovalRequested(ctx, doc, inst, approval, &step, startedBy)
	}

	return inst, nil
}

/* Approve records an approval decision on a pending step.
 *
 * When a later step exists the chain advances and a new approval row is
 * created for it; otherwise the instance finalizes as approved and the
 * document becomes validated. Deciding an unclaimed pool approval
 * implicitly claims it. A second decision on the same step fails with
 * db.ErrAlreadyResolved. */
func (e *Engine) Approve(ctx context.Context, approvalID, actorID uuid.UUID, comment *string) (*db.ApprovalInstance, error) {
	var (
		inst         *db.ApprovalInstance
		doc          *db.Document
		nextApproval *db.DocumentApproval
		nextStep     db.WorkflowStep
		completed    bool
	)

	err := e.store.WithTx(ctx, func(s Store) error {
		approval, err := s.GetDocumentApprovalByID(ctx, approvalID)
		if err != nil {
			return err
		}

		if err := s.ResolveDocumentApproval(ctx, approvalID, StatusApproved, comment, actorID); err != nil {
			return err
		}

		inst, err = s.GetApprovalInstanceByID(ctx, approval.InstanceID)
		if err != nil {
			return err
		}
		doc, err = s.GetDocumentByID(ctx, inst.DocumentID)
		if err != nil {
			return err
		}
		if inst.WorkflowID == nil {
			return fmt.Errorf("approval instance %s has no workflow", inst.ID)
		}

		steps, err := s.ListWorkflowSteps(ctx, *inst.WorkflowID)
		if err != nil {
			return err
		}
		if len(steps) == 0 {
			return ErrNoSteps
		}

		idx := stepIndex(steps, approval, inst)

		if idx+1 < len(steps) {
			nextStep = steps[idx+1]
			approverID, err := resolveApprover(ctx, s, &nextStep, doc.WorkspaceID, actorID)
			if err != nil {
				return err
			}

			stepID := nextStep.ID
			nextApproval = &db.DocumentApproval{
				InstanceID: inst.ID,
				StepID:     &stepID,
				ApproverID: approverID,
				Status:     StatusPending,
			}
			if err := s.CreateDocumentApproval(ctx, nextApproval); err != nil {
				return err
			}
			if err := s.AdvanceApprovalInstance(ctx, inst.ID, idx+2); err != nil {
				return err
			}
			inst.CurrentStep = idx + 2
			inst.Status = StatusInProgress
			return nil
		}

		completed = true
		if err := s.FinalizeApprovalInstance(ctx, inst.ID, StatusApproved); err != nil {
			return err
		}
		inst.Status = StatusApproved
		now := time.Now()
		inst.CompletedAt = &now
		return s.SetDocumentStatus(ctx, inst.DocumentID, DocumentValidated)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordApprovalDecision(StatusApproved)

	if completed {
		metrics.RecordApprovalChainCompleted(StatusApproved, time.Since(inst.StartedAt))
		metrics.InfoWithContext(ctx, "Approval chain completed", map[string]interface{}{
			"instance_id": inst.ID.String(),
			"document_id": inst.DocumentID.String(),
		})
		if e.notifier != nil {
			e.notifier.ApprovalCompleted(ctx, doc, inst)
		}
	} else if e.notifier != nil {
		e.notifier.ApprovalRequested(ctx, doc, inst, nextApproval, &nextStep, actorID)
	}

	return inst, nil
}

/* Reject records a rejection on a pending step and terminates the chain.
 *
 * The instance finalizes as rejected regardless of position in the chain
 * and no further approval rows are created. */
func (e *Engine) Reject(ctx context.Context, approvalID, actorID uuid.UUID, comment *string) (*db.ApprovalInstance, error) {
	var (
		inst *db.ApprovalInstance
		doc  *db.Document
	)

	err := e.store.WithTx(ctx, func(s Store) error {
		approval, err := s.GetDocumentApprovalByID(ctx, approvalID)
		if err != nil {
			return err
		}

		if err := s.ResolveDocumentApproval(ctx, approvalID, StatusRejected, comment, actorID); err != nil {
			return err
		}

		inst, err = s.GetApprovalInstanceByID(ctx, approval.InstanceID)
		if err != nil {
			return err
		}
		doc, err = s.GetDocumentByID(ctx, inst.DocumentID)
		if err != nil {
			return err
		}

		if err := s.FinalizeApprovalInstance(ctx, inst.ID, StatusRejected); err != nil {
			return err
		}
		inst.Status = StatusRejected
		now := time.Now()
		inst.CompletedAt = &now
		return s.SetDocumentStatus(ctx, inst.DocumentID, DocumentRejected)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordApprovalDecision(StatusRejected)
	metrics.RecordApprovalChainCompleted(StatusRejected, time.Since(inst.StartedAt))
	metrics.InfoWithContext(ctx, "Approval chain rejected", map[string]interface{}{
		"instance_id": inst.ID.String(),
		"document_id": inst.DocumentID.String(),
		"rejected_by": actorID.String(),
	})

	if e.notifier != nil {
		e.notifier.ApprovalRejected(ctx, doc, inst, actorID, comment)
	}

	return inst, nil
}

/* Claim assigns an unclaimed pool approval to a member */
func (e *Engine) Claim(ctx context.Context, approvalID, actorID uuid.UUID) error {
	if err := e.store.ClaimDocumentApproval(ctx, approvalID, actorID); err != nil {
		return err
	}
	metrics.InfoWithContext(ctx, "Pool approval claimed", map[string]interface{}{
		"approval_id": approvalID.String(),
		"claimed_by":  actorID.String(),
	})
	return nil
}

/* stepIndex locates the decided step in the ordered step list. The step
 * reference on the approval row wins; the instance's current_step is the
 * fallback for rows created before step references were recorded. */
func stepIndex(steps []db.WorkflowStep, approval *db.DocumentApproval, inst *db.ApprovalInstance) int {
	if approval.StepID != nil {
		for i := range steps {
			if steps[i].ID == *approval.StepID {
				return i
			}
		}
	}
	idx := inst.CurrentStep - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(steps) {
		idx = len(steps) - 1
	}
	return idx
}
