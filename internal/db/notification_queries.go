/*-------------------------------------------------------------------------
 *
 * notification_queries.go
 *    In-app notification queries for DocFlow
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/db/notification_queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const createNotificationQuery = `
	INSERT INTO docflow.notifications (id, user_id, type, title, message, action_url, read, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (q *Queries) CreateNotification(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()

	_, err := q.DB.ExecContext(ctx, createNotificationQuery,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.ActionURL, n.Read, n.CreatedAt)
	if err != nil {
		return q.formatQueryError("INSERT", "docflow.notifications", err)
	}
	return nil
}

const listNotificationsQuery = `
	SELECT id, user_id, type, title, message, action_url, read, created_at
	FROM docflow.notifications
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

func (q *Queries) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, error) {
	notifications := []Notification{}
	err := q.DB.SelectContext(ctx, &notifications, listNotificationsQuery, userID, limit, offset)
	if err != nil {
		return nil, q.formatQueryError("SELECT", "docflow.notifications", err)
	}
	return notifications, nil
}

const countUnreadNotificationsQuery = `
	SELECT COUNT(*)
	FROM docflow.notifications
	WHERE user_id = $1 AND read = FALSE`

func (q *Queries) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := q.DB.GetContext(ctx, &count, countUnreadNotificationsQuery, userID)
	if err != nil {
		return 0, q.formatQueryError("SELECT", "docflow.notifications", err)
	}
	return count, nil
}

const markNotificationReadQuery = `
	UPDATE docflow.notifications
	SET read = TRUE
	WHERE id = $1 AND user_id = $2`

func (q *Queries) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	result, err := q.DB.ExecContext(ctx, markNotificationReadQuery, id, userID)
	if err != nil {
		return q.formatQueryError("UPDATE", "docflow.notifications", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("notification not found: %s", id)
	}
	return nil
}

const markAllNotificationsReadQuery = `
	UPDATE docflow.notifications
	SET read = TRUE
	WHERE user_id = $1 AND read = FALSE`

func (q *Queries) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := q.DB.ExecContext(ctx, markAllNotificationsReadQuery, userID)
	if err != nil {
		return 0, q.formatQueryError("UPDATE", "docflow.notifications", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
