/*-------------------------------------------------------------------------
 *
 * broker.go
 *    In-process notification fanout
 *
 * Fans freshly created notifications out to per-user subscriber channels
 * so websocket sessions see events without polling. Slow subscribers
 * drop events rather than block the dispatcher.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/notifications/broker.go
 *
 *-------------------------------------------------------------------------
 */

package notifications

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/db"
	"github.com/atelierflow/docflow/internal/metrics"
)

const subscriberBuffer = 16

/* Broker fans notifications out to per-user subscribers */
type Broker struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan db.Notification]struct{}
}

/* NewBroker creates a notification broker */
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[uuid.UUID]map[chan db.Notification]struct{}),
	}
}

/* Subscribe registers a channel for a user's notifications. The returned
 * cancel function must be called when the subscriber goes away. */
func (b *Broker) Subscribe(userID uuid.UUID) (<-chan db.Notification, func()) {
	ch := make(chan db.Notification, subscriberBuffer)

	b.mu.Lock()
	if b.subscribers[userID] == nil {
		b.subscribers[userID] = make(map[chan db.Notification]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if subs, ok := b.subscribers[userID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(b.subscribers, userID)
			}
		}
		b.mu.Unlock()
	}

	return ch, cancel
}

/* Publish delivers a notification to the user's live subscribers */
func (b *Broker) Publish(ctx context.Context, n db.Notification) {
	b.mu.RLock()
	subs := b.subscribers[n.UserID]
	channels := make([]chan db.Notification, 0, len(subs))
	for ch := range subs {
		channels = append(channels, ch)
	}
	b.mu.RUnlock()

	for _, ch := range channels {
		select {
		case ch <- n:
		default:
			metrics.WarnWithContext(ctx, "Dropping notification for slow subscriber", map[string]interface{}{
				"user_id":         n.UserID.String(),
				"notification_id": n.ID.String(),
			})
		}
	}
}

/* SubscriberCount reports live subscribers for a user */
func (b *Broker) SubscriberCount(userID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[userID])
}
