/*-------------------------------------------------------------------------
 *
 * dispatcher.go
 *    Approval event notification dispatcher
 *
 * Turns approval lifecycle events into in-app notification rows, live
 * broker fanout, and optional email and webhook deliveries. Dispatch
 * runs after the producing transaction committed; failures are logged
 * and never propagate back to the approval flow.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/notifications/dispatcher.go
 *
 *-------------------------------------------------------------------------
 */

package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/db"
	"github.com/atelierflow/docflow/internal/metrics"
)

/* Notification types */
const (
	TypeApprovalRequest  = "approval_request"
	TypeDocumentApproved = "document_approved"
	TypeDocumentRejected = "document_rejected"
)

const deliveryTimeout = 15 * time.Second

/* store is the slice of the query layer the dispatcher needs */
type store interface {
	CreateNotification(ctx context.Context, n *db.Notification) error
	GetMemberByID(ctx context.Context, id uuid.UUID) (*db.WorkspaceMember, error)
}

/* Dispatcher delivers approval events across channels */
type Dispatcher struct {
	store      store
	broker     *Broker
	email      *EmailService
	webhook    *WebhookService
	webhookURL string
	baseURL    string
}

/* NewDispatcher creates a notification dispatcher. Email and webhook
 * channels are optional. */
func NewDispatcher(s store, broker *Broker, email *EmailService, webhook *WebhookService, webhookURL, baseURL string) *Dispatcher {
	return &Dispatcher{
		store:      s,
		broker:     broker,
		email:      email,
		webhook:    webhook,
		webhookURL: webhookURL,
		baseURL:    baseURL,
	}
}

/* ApprovalRequested notifies the assigned approver of a new pending step.
 * Pool approvals have no assignee and produce no in-app row; the webhook
 * still fires so external systems can track the chain. Approvers are not
 * notified about steps resolved to themselves by their own action — the
 * actor is the starter on chain start and the deciding approver on an
 * advance. */
func (d *Dispatcher) ApprovalRequested(ctx context.Context, doc *db.Document, inst *db.ApprovalInstance, approval *db.DocumentApproval, step *db.WorkflowStep, actor uuid.UUID) {
	stepName := ""
	if step != nil {
		stepName = step.Name
	}

	if approval.ApproverID != nil && *approval.ApproverID != actor {
		message := fmt.Sprintf("%q is waiting for your review at step %q.", doc.Name, stepName)
		d.deliver(ctx, *approval.ApproverID, TypeApprovalRequest, "Approval requested", &message, doc.ID)
	}

	d.sendWebhook(ctx, map[string]interface{}{
		"event":       TypeApprovalRequest,
		"document_id": doc.ID.String(),
		"instance_id": inst.ID.String(),
		"approval_id": approval.ID.String(),
		"step":        stepName,
	})
}

/* ApprovalCompleted notifies the chain starter that the document cleared
 * every step. */
func (d *Dispatcher) ApprovalCompleted(ctx context.Context, doc *db.Document, inst *db.ApprovalInstance) {
	message := fmt.Sprintf("%q passed all approval steps and is now validated.", doc.Name)
	d.deliver(ctx, inst.StartedBy, TypeDocumentApproved, "Document approved", &message, doc.ID)

	d.sendWebhook(ctx, map[string]interface{}{
		"event":       TypeDocumentApproved,
		"document_id": doc.ID.String(),
		"instance_id": inst.ID.String(),
	})
}

/* ApprovalRejected notifies the chain starter of a rejection, carrying
 * the reviewer's comment when present. Starters rejecting their own
 * chain are not notified. */
func (d *Dispatcher) ApprovalRejected(ctx context.Context, doc *db.Document, inst *db.ApprovalInstance, rejectedBy uuid.UUID, comment *string) {
	if rejectedBy != inst.StartedBy {
		message := fmt.Sprintf("%q was rejected.", doc.Name)
		if comment != nil && *comment != "" {
			message = fmt.Sprintf("%q was rejected: %s", doc.Name, *comment)
		}
		d.deliver(ctx, inst.StartedBy, TypeDocumentRejected, "Document rejected", &message, doc.ID)
	}

	payload := map[string]interface{}{
		"event":       TypeDocumentRejected,
		"document_id": doc.ID.String(),
		"instance_id": inst.ID.String(),
		"rejected_by": rejectedBy.String(),
	}
	if comment != nil {
		payload["comment"] = *comment
	}
	d.sendWebhook(ctx, payload)
}

/* deliver writes the in-app row, publishes it to live subscribers, and
 * emails the recipient when the email channel is configured */
func (d *Dispatcher) deliver(ctx context.Context, userID uuid.UUID, notifType, title string, message *string, documentID uuid.UUID) {
	actionURL := d.baseURL + "/documents/" + documentID.String()

	n := &db.Notification{
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		ActionURL: &actionURL,
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		metrics.RecordNotificationDispatched("in_app", "error")
		metrics.ErrorWithContext(ctx, "Failed to store notification", err, map[string]interface{}{
			"user_id": userID.String(),
			"type":    notifType,
		})
		return
	}
	metrics.RecordNotificationDispatched("in_app", "ok")

	if d.broker != nil {
		d.broker.Publish(ctx, *n)
	}

	if d.email != nil && d.email.IsEnabled() {
		body := title
		if message != nil {
			body = *message
		}
		go d.sendEmail(userID, title, body)
	}
}

func (d *Dispatcher) sendEmail(userID uuid.UUID, subject, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	member, err := d.store.GetMemberByID(ctx, userID)
	if err != nil {
		metrics.RecordNotificationDispatched("email", "error")
		metrics.ErrorWithContext(ctx, "Failed to resolve notification recipient", err, map[string]interface{}{
			"user_id": userID.String(),
		})
		return
	}

	if err := d.email.SendEmail(ctx, member.Email, subject, body); err != nil {
		metrics.RecordNotificationDispatched("email", "error")
		metrics.ErrorWithContext(ctx, "Failed to send notification email", err, map[string]interface{}{
			"user_id": userID.String(),
		})
		return
	}
	metrics.RecordNotificationDispatched("email", "ok")
}

func (d *Dispatcher) sendWebhook(ctx context.Context, payload map[string]interface{}) {
	if d.webhook == nil || d.webhookURL == "" {
		return
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		if err := d.webhook.SendWebhook(sendCtx, d.webhookURL, payload); err != nil {
			metrics.RecordNotificationDispatched("webhook", "error")
			metrics.ErrorWithContext(sendCtx, "Failed to send webhook", err, map[string]interface{}{
				"url": d.webhookURL,
			})
			return
		}
		metrics.RecordNotificationDispatched("webhook", "ok")
	}()
}
