/*-------------------------------------------------------------------------
 *
 * handlers.go
 *    API handlers for DocFlow
 *
 * Provides HTTP handlers for login, documents, notifications, and the
 * reviewer inbox.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/api/handlers.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/atelierflow/docflow/internal/approval"
	"github.com/atelierflow/docflow/internal/auth"
	"github.com/atelierflow/docflow/internal/db"
	"github.com/atelierflow/docflow/internal/metrics"
	"github.com/atelierflow/docflow/internal/notifications"
	"github.com/atelierflow/docflow/internal/validation"
	"github.com/atelierflow/docflow/internal/workflow"
)

const maxBodySize = 1024 * 1024

type Handlers struct {
	queries   *db.Queries
	workflows *workflow.Store
	engine    *approval.Engine
	tokens    *auth.TokenManager
	broker    *notifications.Broker
}

func NewHandlers(queries *db.Queries, workflows *workflow.Store, engine *approval.Engine, tokens *auth.TokenManager, broker *notifications.Broker) *Handlers {
	return &Handlers{
		queries:   queries,
		workflows: workflows,
		engine:    engine,
		tokens:    tokens,
		broker:    broker,
	}
}

/* Login */

type LoginRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type LoginResponse struct {
	Token       string    `json:"token"`
	UserID      uuid.UUID `json:"user_id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	workspaceID, err := validation.ValidateUUIDRequired(req.WorkspaceID, "workspace_id")
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusBadRequest, "invalid workspace ID", err, requestID, nil))
		return
	}
	if err := validation.ValidateRequired(req.Email, "email"); err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusBadRequest, "invalid login request", err, requestID, nil))
		return
	}

	member, err := h.queries.GetMemberByEmail(r.Context(), workspaceID, req.Email)
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "login failed", err, requestID, nil))
		return
	}
	if member == nil || member.PasswordHash == nil || !auth.VerifySecret(req.Password, *member.PasswordHash) {
		respondError(w, WrapError(ErrUnauthorized, requestID))
		return
	}

	token, err := h.tokens.GenerateToken(member.ID, member.WorkspaceID, member.Role)
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "token generation failed", err, requestID, nil))
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		Token:       token,
		UserID:      member.ID,
		WorkspaceID: member.WorkspaceID,
		Role:        member.Role,
		DisplayName: member.DisplayName,
	})
}

/* Documents */

type CreateDocumentRequest struct {
	Name         string                 `json:"name"`
	DocumentType string                 `json:"document_type"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

type DocumentResponse struct {
	ID           uuid.UUID              `json:"id"`
	WorkspaceID  uuid.UUID              `json:"workspace_id"`
	Name         string                 `json:"name"`
	DocumentType string                 `json:"document_type"`
	Status       string                 `json:"status"`
	SubmittedBy  *uuid.UUID             `json:"submitted_by,omitempty"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

func (h *Handlers) CreateDocument(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	identity, err := MustGetIdentityFromContext(r.Context())
	if err != nil {
		respondError(w, WrapError(ErrUnauthorized, requestID))
		return
	}

	var req CreateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := validation.ValidateRequired(req.Name, "name"); err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusBadRequest, "invalid document", err, requestID, nil))
		return
	}
	if err := validation.ValidateMaxLength(req.Name, "name", 512); err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusBadRequest, "invalid document", err, requestID, nil))
		return
	}
	if err := validation.ValidateRequired(req.DocumentType, "document_type"); err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusBadRequest, "invalid document", err, requestID, nil))
		return
	}

	doc := &db.Document{
		WorkspaceID:  identity.WorkspaceID,
		Name:         req.Name,
		DocumentType: req.DocumentType,
		SubmittedBy:  identity.UserID,
		Metadata:     db.FromMap(req.Metadata),
	}

	if err := h.queries.CreateDocument(r.Context(), doc); err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "document creation failed", err, requestID, map[string]interface{}{
			"document_name": req.Name,
		}))
		return
	}

	respondJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	doc, apiErr := h.loadWorkspaceDocument(r, mux.Vars(r)["id"])
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	respondJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	identity, err := MustGetIdentityFromContext(r.Context())
	if err != nil {
		respondError(w, WrapError(ErrUnauthorized, requestID))
		return
	}

	limit, offset, apiErr := parsePagination(r)
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	docs, err := h.queries.ListDocumentsByWorkspace(r.Context(), identity.WorkspaceID, limit, offset)
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "document listing failed", err, requestID, nil))
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	doc, apiErr := h.loadWorkspaceDocument(r, mux.Vars(r)["id"])
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	active, err := h.queries.GetActiveInstanceByDocument(r.Context(), doc.ID)
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "document deletion failed", err, requestID, nil))
		return
	}
	if active != nil {
		respondError(w, WrapError(NewError(http.StatusConflict, "document has an active approval chain", nil), requestID))
		return
	}

	if err := h.queries.DeleteDocument(r.Context(), doc.ID); err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "document deletion failed", err, requestID, nil))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/* Notifications */

type NotificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   *string   `json:"message,omitempty"`
	ActionURL *string   `json:"action_url,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	identity, apiErr := h.memberIdentity(r)
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	limit, offset, apiErr := parsePagination(r)
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	items, err := h.queries.ListNotifications(r.Context(), *identity.UserID, limit, offset)
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "notification listing failed", err, requestID, nil))
		return
	}
	unread, err := h.queries.CountUnreadNotifications(r.Context(), *identity.UserID)
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "notification listing failed", err, requestID, nil))
		return
	}

	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			ActionURL: n.ActionURL,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": out,
		"unread_count":  unread,
	})
}

func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	identity, apiErr := h.memberIdentity(r)
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	id, err := validation.ValidateUUIDRequired(mux.Vars(r)["id"], "notification_id")
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusBadRequest, "invalid notification ID", err, requestID, nil))
		return
	}

	if err := h.queries.MarkNotificationRead(r.Context(), id, *identity.UserID); err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	identity, apiErr := h.memberIdentity(r)
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	updated, err := h.queries.MarkAllNotificationsRead(r.Context(), *identity.UserID)
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "marking notifications read failed", err, requestID, nil))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}

/* Reviewer inbox */

func (h *Handlers) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	identity, apiErr := h.memberIdentity(r)
	if apiErr != nil {
		respondError(w, WrapError(apiErr, requestID))
		return
	}

	pending, err := h.queries.ListPendingApprovalsForUser(r.Context(), *identity.UserID, identity.WorkspaceID)
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "pending approval listing failed", err, requestID, nil))
		return
	}

	type pendingResponse struct {
		ApprovalID   uuid.UUID `json:"approval_id"`
		InstanceID   uuid.UUID `json:"instance_id"`
		DocumentID   uuid.UUID `json:"document_id"`
		DocumentName string    `json:"document_name"`
		StepName     *string   `json:"step_name,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
	}

	out := make([]pendingResponse, 0, len(pending))
	for _, p := range pending {
		out = append(out, pendingResponse{
			ApprovalID:   p.ApprovalID,
			InstanceID:   p.InstanceID,
			DocumentID:   p.DocumentID,
			DocumentName: p.DocumentName,
			StepName:     p.StepName,
			CreatedAt:    p.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

/* System metrics */

func (h *Handlers) GetSystemMetrics(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	snapshot, err := metrics.CollectSystemMetrics(r.Context())
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusInternalServerError, "system metrics collection failed", err, requestID, nil))
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

/* Helper functions */

func toDocumentResponse(d *db.Document) DocumentResponse {
	return DocumentResponse{
		ID:           d.ID,
		WorkspaceID:  d.WorkspaceID,
		Name:         d.Name,
		DocumentType: d.DocumentType,
		Status:       d.Status,
		SubmittedBy:  d.SubmittedBy,
		Metadata:     d.Metadata.ToMap(),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

/* loadWorkspaceDocument fetches a document and checks workspace ownership */
func (h *Handlers) loadWorkspaceDocument(r *http.Request, rawID string) (*db.Document, *APIError) {
	identity, err := MustGetIdentityFromContext(r.Context())
	if err != nil {
		return nil, ErrUnauthorized
	}

	id, err := validation.ValidateUUIDRequired(rawID, "document_id")
	if err != nil {
		return nil, NewError(http.StatusBadRequest, "invalid document ID", err)
	}

	doc, err := h.queries.GetDocumentByID(r.Context(), id)
	if err != nil {
		return nil, ErrNotFound
	}
	if doc.WorkspaceID != identity.WorkspaceID {
		return nil, ErrNotFound
	}
	return doc, nil
}

/* memberIdentity requires a member-scoped (JWT) identity */
func (h *Handlers) memberIdentity(r *http.Request) (*Identity, *APIError) {
	identity, err := MustGetIdentityFromContext(r.Context())
	if err != nil {
		return nil, ErrUnauthorized
	}
	if identity.UserID == nil {
		return nil, NewError(http.StatusForbidden, "member credentials required", nil)
	}
	return identity, nil
}

func parsePagination(r *http.Request) (limit, offset int, apiErr *APIError) {
	limit, offset = 50, 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, NewError(http.StatusBadRequest, "invalid limit", err)
		}
		limit = v
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, NewError(http.StatusBadRequest, "invalid offset", err)
		}
		offset = v
	}

	if err := validation.ValidateLimit(limit); err != nil {
		return 0, 0, NewError(http.StatusBadRequest, "invalid limit", err)
	}
	if err := validation.ValidateOffset(offset); err != nil {
		return 0, 0, NewError(http.StatusBadRequest, "invalid offset", err)
	}
	return limit, offset, nil
}

/* decodeBody reads, size-checks, and decodes a JSON request body */
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	requestID := GetRequestID(r.Context())

	bodyBytes, err := validation.ReadAndValidateBody(r, maxBodySize)
	if err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusBadRequest, "request body validation failed", err, requestID, nil))
		return false
	}
	r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	/* An absent body means all-default fields */
	if len(bodyBytes) == 0 {
		return true
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, NewErrorWithContext(r.Context(), http.StatusBadRequest, "request body parsing failed", err, requestID, map[string]interface{}{
			"body_size": len(bodyBytes),
		}))
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err *APIError) {
	response := ErrorResponse{
		Error: err.Message,
		Code:  err.Code,
	}
	if err.Err != nil {
		response.Message = err.Err.Error()
	}
	if err.RequestID != "" {
		w.Header().Set("X-Request-ID", err.RequestID)
	}
	respondJSON(w, err.Code, response)
}
