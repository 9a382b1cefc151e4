/*-------------------------------------------------------------------------
 *
 * resolver.go
 *    Step approver resolution
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/approval/resolver.go
 *
 *-------------------------------------------------------------------------
 */

package approval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/db"
	"github.com/atelierflow/docflow/internal/metrics"
)

/* resolveApprover resolves who a step's approval is assigned to.
 *
 * A nil result with nil error means the approval goes to the workspace
 * pool and must be claimed before or while deciding. Role resolution
 * picks the longest-standing member holding the role; when the workspace
 * has nobody in that role the approval falls back to the actor who
 * triggered the step so the chain cannot stall silently. */
func resolveApprover(ctx context.Context, s Store, step *db.WorkflowStep, workspaceID, actorID uuid.UUID) (*uuid.UUID, error) {
	switch step.ApproverType {
	case ApproverUser:
		if step.ApproverUserID == nil {
			return nil, fmt.Errorf("%w: step %s has approver_type user but no user", ErrNoApprover, step.ID)
		}
		return step.ApproverUserID, nil

	case ApproverRole:
		if step.ApproverRole == nil || *step.ApproverRole == "" {
			return nil, fmt.Errorf("%w: step %s has approver_type role but no role", ErrNoApprover, step.ID)
		}
		member, err := s.FindMemberByRole(ctx, workspaceID, *step.ApproverRole)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve role approver: %w", err)
		}
		if member == nil {
			metrics.WarnWithContext(ctx, "No member holds approver role, falling back to actor", map[string]interface{}{
				"step_id":      step.ID.String(),
				"role":         *step.ApproverRole,
				"workspace_id": workspaceID.String(),
				"actor_id":     actorID.String(),
			})
			fallback := actorID
			return &fallback, nil
		}
		return &member.ID, nil

	case ApproverAny:
		/* Pool approval, claimed later */
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: unknown approver_type %q", ErrNoApprover, step.ApproverType)
	}
}
