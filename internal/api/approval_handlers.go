/*-------------------------------------------------------------------------
 *
 * approval_handlers.go
 *    Approval chain handlers for DocFlow
 *
 * Provides HTTP handlers for starting approval chains and recording
 * approve, reject, and claim actions.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/api/approval_handlers.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/atelierflow/docflow/internal/approval"
	"github.com/atelierflow/docflow/internal/db"
	"github.com/atelierflow/docflow/internal/validation"
)

type StartApprovalRequest struct {
	DocumentID string `json:"document_id"`
	WorkflowID string `json:"workflow_id"`
}

type DecisionRequest struct {
	Comment *string `json:"comment,omitempty"`
}

type ApprovalInstanceResponse struct {
	ID          uuid.UUID  `json:"id"`
	DocumentID  uuid.UUID  `json:"document_id"`
	WorkflowID  *uuid.UUID `json:"workflow_id,omitempty"`
	CurrentStep int        `json:"current_step"`
	Status      string     `json:"status"`
	StartedBy   uuid.UUID  `json:"started_by"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type DocumentApprovalResponse struct {
	ID         uuid.UUID  `json:"id"`
	InstanceID uuid.UUID  `json:"instance_id"`
	StepID     *uuid.UUID `json:"step_id,omitempty"`
	ApproverID *uuid.UUID `json:"approver_id,omitempty"`
	Status     string     `json:"status"`
	Comment    *string    `json:"comment,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func (h *Handlers) StartApproval(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	identity, apiErr := h.memberIdentity(r)
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	var req StartApprovalRequest
	if !decodeBody(w, r, &req) {
		return
	}

	documentID, err := validation.ValidateUUIDRequired(req.DocumentID, "document_id")
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusBadRequest, "invalid approval request", err, requestID, nil))
		return
	}
	workflowID, err := validation.ValidateUUIDRequired(req.WorkflowID, "workflow_id")
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusBadRequest, "invalid approval request", err, requestID, nil))
		return
	}

	/* Workspace scoping happens here; the engine trusts its caller. */
	doc, lookupErr := h.loadWorkspaceDocument(r, req.DocumentID)
	if lookupErr != nil {
		respondError(w, WrapError(lookupErr, requestID))
		return
	}

	inst, err := h.engine.Start(r.Context(), documentID, workflowID, *identity.UserID)
	if err != nil {
		respondError(w, approvalError(r, "approval start failed", err, requestID, map[string]interface{}{
			"document_id": doc.ID.String(),
			"workflow_id": workflowID.String(),
		}))
		return
	}

	respondJSON(w, http.StatusCreated, toInstanceResponse(inst))
}

func (h *Handlers) ApproveStep(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.engine.Approve, "approval failed")
}

func (h *Handlers) RejectStep(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.engine.Reject, "rejection failed")
}

func (h *Handlers) decide(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, approvalID, actorID uuid.UUID, comment *string) (*db.ApprovalInstance, error), message string) {
	requestID := GetRequestID(r.Context())

	identity, apiErr := h.memberIdentity(r)
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	approvalID, err := validation.ValidateUUIDRequired(mux.Vars(r)["id"], "approval_id")
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusBadRequest, "invalid approval ID", err, requestID, nil))
		return
	}

	var req DecisionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	inst, err := action(r.Context(), approvalID, *identity.UserID, req.Comment)
	if err != nil {
		respondError(w, approvalError(r, message, err, requestID, map[string]interface{}{
			"approval_id": approvalID.String(),
		}))
		return
	}

	respondJSON(w, http.StatusOK, toInstanceResponse(inst))
}

func (h *Handlers) ClaimStep(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	identity, apiErr := h.memberIdentity(r)
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	approvalID, err := validation.ValidateUUIDRequired(mux.Vars(r)["id"], "approval_id")
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusBadRequest, "invalid approval ID", err, requestID, nil))
		return
	}

	if err := h.engine.Claim(r.Context(), approvalID, *identity.UserID); err != nil {
		respondError(w, approvalError(r, "claim failed", err, requestID, map[string]interface{}{
			"approval_id": approvalID.String(),
		}))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetApprovalInstance(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	inst, apiErr := h.loadWorkspaceInstance(r, mux.Vars(r)["id"])
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	approvals, err := h.queries.ListApprovalsByInstance(r.Context(), inst.ID)
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "approval listing failed", err, requestID, nil))
		return
	}

	out := make([]DocumentApprovalResponse, 0, len(approvals))
	for _, a := range approvals {
		out = append(out, toApprovalResponse(&a))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"instance":  toInstanceResponse(inst),
		"approvals": out,
	})
}

func (h *Handlers) ListDocumentApprovalInstances(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	doc, apiErr := h.loadWorkspaceDocument(r, mux.Vars(r)["id"])
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	instances, err := h.queries.ListInstancesByDocument(r.Context(), doc.ID)
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "instance listing failed", err, requestID, nil))
		return
	}

	out := make([]ApprovalInstanceResponse, 0, len(instances))
	for i := range instances {
		out = append(out, toInstanceResponse(&instances[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

/* Helper functions */

func (h *Handlers) loadWorkspaceInstance(r *http.Request, rawID string) (*db.ApprovalInstance, *APIError) {
	identity, err := MustGetIdentityFromContext(r.Context())
	if err != nil {
		return nil, ErrUnauthorized
	}

	id, err := validation.ValidateUUIDRequired(rawID, "instance_id")
	if err != nil {
		return nil, NewError(http.StatusBadRequest, "invalid instance ID", err)
	}

	inst, err := h.queries.GetApprovalInstanceByID(r.Context(), id)
	if err != nil {
		return nil, ErrNotFound
	}

	doc, err := h.queries.GetDocumentByID(r.Context(), inst.DocumentID)
	if err != nil {
		return nil, ErrNotFound
	}
	if doc.WorkspaceID != identity.WorkspaceID {
		return nil, ErrNotFound
	}
	return inst, nil
}

/* approvalError maps engine errors to HTTP statuses */
func approvalError(r *http.Request, message string, err error, requestID string, fields map[string]interface{}) *APIError {
	switch {
	case errors.Is(err, db.ErrAlreadyResolved):
		return NewError(http.StatusConflict, "approval already resolved", err)
	case errors.Is(err, approval.ErrWorkflowNotFound):
		return NewError(http.StatusNotFound, "workflow not found", err)
	case errors.Is(err, approval.ErrInstanceActive):
		return NewError(http.StatusConflict, "document already has an active approval chain", err)
	case errors.Is(err, approval.ErrNoSteps):
		return NewError(http.StatusUnprocessableEntity, "workflow has no steps", err)
	case errors.Is(err, approval.ErrWorkflowInactive):
		return NewError(http.StatusUnprocessableEntity, "workflow is inactive", err)
	case errors.Is(err, approval.ErrNoApprover):
		return NewError(http.StatusUnprocessableEntity, "no approver could be resolved", err)
	}
	return NewErrorWithContext(r.Context(), http.StatusInternalServerError, message, err, requestID, fields)
}

func toInstanceResponse(inst *db.ApprovalInstance) ApprovalInstanceResponse {
	return ApprovalInstanceResponse{
		ID:          inst.ID,
		DocumentID:  inst.DocumentID,
		WorkflowID:  inst.WorkflowID,
		CurrentStep: inst.CurrentStep,
		Status:      inst.Status,
		StartedBy:   inst.StartedBy,
		StartedAt:   inst.StartedAt,
		CompletedAt: inst.CompletedAt,
	}
}

func toApprovalResponse(a *db.DocumentApproval) DocumentApprovalResponse {
	return DocumentApprovalResponse{
		ID:         a.ID,
		InstanceID: a.InstanceID,
		StepID:     a.StepID,
		ApproverID: a.ApproverID,
		Status:     a.Status,
		Comment:    a.Comment,
		CreatedAt:  a.CreatedAt,
		ResolvedAt: a.ResolvedAt,
	}
}
