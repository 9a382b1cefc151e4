/*-------------------------------------------------------------------------
 *
 * websocket.go
 *    WebSocket handler for DocFlow API
 *
 * Provides WebSocket support for streaming in-app notifications to
 * connected members in real time.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/api/websocket.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/atelierflow/docflow/internal/auth"
	"github.com/atelierflow/docflow/internal/db"
	"github.com/atelierflow/docflow/internal/metrics"
	"github.com/atelierflow/docflow/internal/notifications"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true /* Allow all origins in development */
	},
	HandshakeTimeout: 10 * time.Second,
}

const (
	/* WebSocket connection timeouts */
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

/* connectionState tracks the state of a WebSocket connection */
type connectionState struct {
	conn   *websocket.Conn
	userID uuid.UUID
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
}

/* HandleNotificationStream streams a member's notifications over WebSocket */
func HandleNotificationStream(broker *notifications.Broker, tokens *auth.TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logCtx := metrics.WithRequestIDLogContext(r.Context(), GetRequestID(r.Context()))

		/* Authenticate before upgrading connection */
		userID, err := authenticateWebSocket(r, tokens)
		if err != nil {
			metrics.WarnWithContext(logCtx, "WebSocket authentication failed", map[string]interface{}{
				"error": err.Error(),
			})
			http.Error(w, "Authentication failed", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			metrics.WarnWithContext(logCtx, "WebSocket upgrade failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetReadLimit(maxMessageSize)
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		ctx, cancel := context.WithCancel(r.Context())
		state := &connectionState{
			conn:   conn,
			userID: userID,
			ctx:    ctx,
			cancel: cancel,
		}

		feed, unsubscribe := broker.Subscribe(userID)
		defer unsubscribe()

		go state.pingLoop()
		go state.readLoop(logCtx)

		metrics.DebugWithContext(logCtx, "WebSocket notification stream opened", map[string]interface{}{
			"user_id": userID.String(),
		})

		state.streamNotifications(feed, logCtx)
		state.close()
	}
}

/* authenticateWebSocket resolves the member behind a WebSocket request */
func authenticateWebSocket(r *http.Request, tokens *auth.TokenManager) (uuid.UUID, error) {
	/* Try to get the token from a query parameter first */
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Fields(authHeader)
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenStr = parts[1]
			}
		}
	}

	if tokenStr == "" {
		return uuid.Nil, fmt.Errorf("token is required")
	}

	claims, err := tokens.ValidateToken(tokenStr)
	if err != nil {
		return uuid.Nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID in token: %w", err)
	}
	return userID, nil
}

/* streamNotifications forwards broker events until the connection drops */
func (s *connectionState) streamNotifications(feed <-chan db.Notification, logCtx context.Context) {
	for {
		select {
		case n, ok := <-feed:
			if !ok {
				return
			}

			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := s.conn.WriteJSON(map[string]interface{}{
				"type":         "notification",
				"notification": toNotificationResponse(&n),
			})
			s.mu.Unlock()
			if err != nil {
				metrics.WarnWithContext(logCtx, "WebSocket notification write failed", map[string]interface{}{
					"error":   err.Error(),
					"user_id": s.userID.String(),
				})
				return
			}

		case <-s.ctx.Done():
			return
		}
	}
}

/* readLoop drains client frames so pongs and close messages are seen */
func (s *connectionState) readLoop(logCtx context.Context) {
	defer s.cancel()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				metrics.WarnWithContext(logCtx, "WebSocket read error", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}
	}
}

/* pingLoop sends periodic ping messages to keep connection alive */
func (s *connectionState) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
		case <-s.ctx.Done():
			return
		}
	}
}

/* close closes the WebSocket connection */
func (s *connectionState) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	s.cancel()

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = s.conn.Close()
}

func toNotificationResponse(n *db.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		ActionURL: n.ActionURL,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
