/*-------------------------------------------------------------------------
 *
 * workflow_handlers.go
 *    Workflow definition handlers for DocFlow
 *
 * Provides HTTP handlers for creating, editing, listing, and toggling
 * workflow definitions.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/api/workflow_handlers.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/atelierflow/docflow/internal/db"
	"github.com/atelierflow/docflow/internal/validation"
	"github.com/atelierflow/docflow/internal/workflow"
)

type WorkflowRequest struct {
	Name          string               `json:"name"`
	Description   *string              `json:"description,omitempty"`
	DocumentTypes []string             `json:"document_types,omitempty"`
	IsActive      *bool                `json:"is_active,omitempty"`
	Steps         []workflow.StepInput `json:"steps"`
}

type WorkflowStepResponse struct {
	ID              uuid.UUID  `json:"id"`
	Order           int        `json:"order"`
	Name            string     `json:"name"`
	ApproverType    string     `json:"approver_type"`
	ApproverUserID  *uuid.UUID `json:"approver_user_id,omitempty"`
	ApproverRole    *string    `json:"approver_role,omitempty"`
	Required        bool       `json:"required"`
	AutoApproveDays *int       `json:"auto_approve_days,omitempty"`
}

type WorkflowResponse struct {
	ID            uuid.UUID              `json:"id"`
	WorkspaceID   uuid.UUID              `json:"workspace_id"`
	Name          string                 `json:"name"`
	Description   *string                `json:"description,omitempty"`
	DocumentTypes []string               `json:"document_types"`
	IsActive      bool                   `json:"is_active"`
	CreatedBy     *uuid.UUID             `json:"created_by,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	Steps         []WorkflowStepResponse `json:"steps"`
}

func (h *Handlers) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	identity, err := MustGetIdentityFromContext(r.Context())
	if err != nil {
		respondError(w, WrapError(ErrUnauthorized, requestID))
		return
	}

	var req WorkflowRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateWorkflowRequest(&req); apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	wf := &db.Workflow{
		WorkspaceID:   identity.WorkspaceID,
		Name:          req.Name,
		Description:   req.Description,
		DocumentTypes: req.DocumentTypes,
		IsActive:      true,
		CreatedBy:     identity.UserID,
	}
	if req.IsActive != nil {
		wf.IsActive = *req.IsActive
	}

	def, err := h.workflows.Create(r.Context(), wf, req.Steps)
	if err != nil {
		respondError(w, workflowError(r, "workflow creation failed", err, requestID))
		return
	}

	respondJSON(w, http.StatusCreated, toWorkflowResponse(def))
}

func (h *Handlers) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	def, apiErr := h.loadWorkspaceWorkflow(r, mux.Vars(r)["id"])
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	respondJSON(w, http.StatusOK, toWorkflowResponse(def))
}

func (h *Handlers) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	identity, err := MustGetIdentityFromContext(r.Context())
	if err != nil {
		respondError(w, WrapError(ErrUnauthorized, requestID))
		return
	}

	defs, err := h.workflows.List(r.Context(), identity.WorkspaceID)
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "workflow listing failed", err, requestID, nil))
		return
	}

	out := make([]WorkflowResponse, 0, len(defs))
	for i := range defs {
		out = append(out, toWorkflowResponse(&defs[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handlers) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	def, apiErr := h.loadWorkspaceWorkflow(r, mux.Vars(r)["id"])
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	var req WorkflowRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateWorkflowRequest(&req); apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	wf := &def.Workflow
	wf.Name = req.Name
	wf.Description = req.Description
	wf.DocumentTypes = req.DocumentTypes
	if req.IsActive != nil {
		wf.IsActive = *req.IsActive
	}

	updated, err := h.workflows.Update(r.Context(), wf, req.Steps)
	if err != nil {
		respondError(w, workflowError(r, "workflow update failed", err, requestID))
		return
	}

	respondJSON(w, http.StatusOK, toWorkflowResponse(updated))
}

func (h *Handlers) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	def, apiErr := h.loadWorkspaceWorkflow(r, mux.Vars(r)["id"])
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	if err := h.workflows.Delete(r.Context(), def.ID); err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "workflow deletion failed", err, requestID, nil))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type ToggleWorkflowRequest struct {
	IsActive bool `json:"is_active"`
}

func (h *Handlers) ToggleWorkflow(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	def, apiErr := h.loadWorkspaceWorkflow(r, mux.Vars(r)["id"])
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	var req ToggleWorkflowRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.workflows.ToggleActive(r.Context(), def.ID, req.IsActive); err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "workflow toggle failed", err, requestID, nil))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":        def.ID,
		"is_active": req.IsActive,
	})
}

/* Helper functions */

func validateWorkflowRequest(req *WorkflowRequest) *APIError {
	if err := validation.ValidateRequired(req.Name, "name"); err != nil {
		return NewError(http.StatusBadRequest, "invalid workflow", err)
	}
	if err := validation.ValidateMaxLength(req.Name, "name", 255); err != nil {
		return NewError(http.StatusBadRequest, "invalid workflow", err)
	}
	return nil
}

/* workflowError maps step validation failures to 400 */
func workflowError(r *http.Request, message string, err error, requestID string) *APIError {
	if errors.Is(err, workflow.ErrInvalidSteps) {
		return NewError(http.StatusBadRequest, message, err)
	}
	return NewErrorWithContext(r.Context(), http.StatusInternalServerError, message, err, requestID, nil)
}

func (h *Handlers) loadWorkspaceWorkflow(r *http.Request, rawID string) (*workflow.Definition, *APIError) {
	identity, err := MustGetIdentityFromContext(r.Context())
	if err != nil {
		return nil, ErrUnauthorized
	}

	id, err := validation.ValidateUUIDRequired(rawID, "workflow_id")
	if err != nil {
		return nil, NewError(http.StatusBadRequest, "invalid workflow ID", err)
	}

	def, err := h.workflows.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, NewError(http.StatusInternalServerError, "workflow lookup failed", err)
	}
	if def.WorkspaceID != identity.WorkspaceID {
		return nil, ErrNotFound
	}
	return def, nil
}

func toWorkflowResponse(def *workflow.Definition) WorkflowResponse {
	steps := make([]WorkflowStepResponse, 0, len(def.Steps))
	for _, s := range def.Steps {
		steps = append(steps, WorkflowStepResponse{
			ID:              s.ID,
			Order:           s.StepOrder,
			Name:            s.Name,
			ApproverType:    s.ApproverType,
			ApproverUserID:  s.ApproverUserID,
			ApproverRole:    s.ApproverRole,
			Required:        s.Required,
			AutoApproveDays: s.AutoApproveDays,
		})
	}
	return WorkflowResponse{
		ID:            def.ID,
		WorkspaceID:   def.WorkspaceID,
		Name:          def.Name,
		Description:   def.Description,
		DocumentTypes: def.DocumentTypes,
		IsActive:      def.IsActive,
		CreatedBy:     def.CreatedBy,
		CreatedAt:     def.CreatedAt,
		UpdatedAt:     def.UpdatedAt,
		Steps:         steps,
	}
}
