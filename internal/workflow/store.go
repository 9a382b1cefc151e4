/*-------------------------------------------------------------------------
 *
 * store.go
 *    Workflow definition management
 *
 * A workflow definition is a named, ordered list of approval steps bound
 * to a workspace. Updates replace the step list wholesale; step order is
 * normalized to a dense 1..N sequence from the input order.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/workflow/store.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/db"
)

var (
	ErrNotFound     = errors.New("workflow not found")
	ErrInvalidSteps = errors.New("invalid workflow steps")
)

/* StepInput describes one step of a definition being created or updated */
type StepInput struct {
	Order           int        `json:"order"`
	Name            string     `json:"name"`
	ApproverType    string     `json:"approver_type"`
	ApproverUserID  *uuid.UUID `json:"approver_user_id,omitempty"`
	ApproverRole    *string    `json:"approver_role,omitempty"`
	Required        *bool      `json:"required,omitempty"`
	AutoApproveDays *int       `json:"auto_approve_days,omitempty"`
}

/* Definition is a workflow with its ordered steps attached */
type Definition struct {
	db.Workflow
	Steps []db.WorkflowStep `json:"steps"`
}

/* Store manages workflow definitions */
type Store struct {
	queries *db.Queries
}

func NewStore(queries *db.Queries) *Store {
	return &Store{queries: queries}
}

/* Get returns a workflow with its steps, or ErrNotFound */
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Definition, error) {
	wf, err := s.queries.GetWorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, ErrNotFound
	}

	steps, err := s.queries.ListWorkflowSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Definition{Workflow: *wf, Steps: steps}, nil
}

/* List returns all workflows of a workspace with steps attached */
func (s *Store) List(ctx context.Context, workspaceID uuid.UUID) ([]Definition, error) {
	workflows, err := s.queries.ListWorkflows(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	defs := make([]Definition, 0, len(workflows))
	for _, wf := range workflows {
		steps, err := s.queries.ListWorkflowSteps(ctx, wf.ID)
		if err != nil {
			return nil, err
		}
		defs = append(defs, Definition{Workflow: wf, Steps: steps})
	}
	return defs, nil
}

/* Create stores a new workflow and its steps in one transaction */
func (s *Store) Create(ctx context.Context, wf *db.Workflow, steps []StepInput) (*Definition, error) {
	normalized, err := NormalizeSteps(steps)
	if err != nil {
		return nil, err
	}

	err = s.queries.WithTx(ctx, func(txq *db.Queries) error {
		if err := txq.CreateWorkflow(ctx, wf); err != nil {
			return err
		}
		for i := range normalized {
			normalized[i].WorkflowID = wf.ID
			if err := txq.CreateWorkflowStep(ctx, &normalized[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Definition{Workflow: *wf, Steps: normalized}, nil
}

/* Update replaces a workflow's fields and its whole step list.
 *
 * Running approval chains keep their existing step references; only new
 * chains see the updated definition. */
func (s *Store) Update(ctx context.Context, wf *db.Workflow, steps []StepInput) (*Definition, error) {
	normalized, err := NormalizeSteps(steps)
	if err != nil {
		return nil, err
	}

	err = s.queries.WithTx(ctx, func(txq *db.Queries) error {
		if err := txq.UpdateWorkflow(ctx, wf); err != nil {
			return err
		}
		if err := txq.DeleteWorkflowSteps(ctx, wf.ID); err != nil {
			return err
		}
		for i := range normalized {
			normalized[i].WorkflowID = wf.ID
			if err := txq.CreateWorkflowStep(ctx, &normalized[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Definition{Workflow: *wf, Steps: normalized}, nil
}

/* Delete removes a workflow and its steps */
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	return s.queries.WithTx(ctx, func(txq *db.Queries) error {
		if err := txq.DeleteWorkflowSteps(ctx, id); err != nil {
			return err
		}
		return txq.DeleteWorkflow(ctx, id)
	})
}

/* ToggleActive flips a workflow's availability for new chains */
func (s *Store) ToggleActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.queries.SetWorkflowActive(ctx, id, active)
}

/* NormalizeSteps validates step inputs and renumbers them to a dense
 * 1..N order following the input ordering. Ties on the order field keep
 * their relative input position. */
func NormalizeSteps(inputs []StepInput) ([]db.WorkflowStep, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: workflow requires at least one step", ErrInvalidSteps)
	}

	indexed := make([]int, len(inputs))
	for i := range indexed {
		indexed[i] = i
	}
	sort.SliceStable(indexed, func(a, b int) bool {
		return inputs[indexed[a]].Order < inputs[indexed[b]].Order
	})

	steps := make([]db.WorkflowStep, 0, len(inputs))
	for pos, idx := range indexed {
		in := inputs[idx]
		if in.Name == "" {
			return nil, fmt.Errorf("%w: step %d has no name", ErrInvalidSteps, pos+1)
		}

		switch in.ApproverType {
		case "user":
			if in.ApproverUserID == nil {
				return nil, fmt.Errorf("%w: step %q has approver_type user but no approver_user_id", ErrInvalidSteps, in.Name)
			}
		case "role":
			if in.ApproverRole == nil || *in.ApproverRole == "" {
				return nil, fmt.Errorf("%w: step %q has approver_type role but no approver_role", ErrInvalidSteps, in.Name)
			}
		case "any":
			/* No binding to validate */
		default:
			return nil, fmt.Errorf("%w: step %q has unknown approver_type %q", ErrInvalidSteps, in.Name, in.ApproverType)
		}

		if in.AutoApproveDays != nil && *in.AutoApproveDays <= 0 {
			return nil, fmt.Errorf("%w: step %q has non-positive auto_approve_days", ErrInvalidSteps, in.Name)
		}

		required := true
		if in.Required != nil {
			required = *in.Required
		}

		steps = append(steps, db.WorkflowStep{
			StepOrder:       pos + 1,
			Name:            in.Name,
			ApproverType:    in.ApproverType,
			ApproverUserID:  in.ApproverUserID,
			ApproverRole:    in.ApproverRole,
			Required:        required,
			AutoApproveDays: in.AutoApproveDays,
		})
	}

	return steps, nil
}
