/*-------------------------------------------------------------------------
 *
 * broker_test.go
 *    Tests for the notification broker
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/notifications/broker_test.go
 *
 *-------------------------------------------------------------------------
 */

package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/db"
)

func TestBrokerDeliversToSubscriber(t *testing.T) {
	b := NewBroker()
	userID := uuid.New()

	ch, cancel := b.Subscribe(userID)
	defer cancel()

	n := db.Notification{ID: uuid.New(), UserID: userID, Type: TypeApprovalRequest, Title: "Approval requested"}
	b.Publish(context.Background(), n)

	select {
	case got := <-ch:
		if got.ID != n.ID {
			t.Errorf("expected notification %s, got %s", n.ID, got.ID)
		}
	default:
		t.Fatal("expected notification on subscriber channel")
	}
}

func TestBrokerScopesDeliveryToUser(t *testing.T) {
	b := NewBroker()

	ch, cancel := b.Subscribe(uuid.New())
	defer cancel()

	b.Publish(context.Background(), db.Notification{ID: uuid.New(), UserID: uuid.New()})

	select {
	case <-ch:
		t.Fatal("notification leaked to another user's subscriber")
	default:
	}
}

func TestBrokerCancelRemovesSubscriber(t *testing.T) {
	b := NewBroker()
	userID := uuid.New()

	_, cancel := b.Subscribe(userID)
	if b.SubscriberCount(userID) != 1 {
		t.Fatalf("expected 1 subscriber, got %d", b.SubscriberCount(userID))
	}
	cancel()
	if b.SubscriberCount(userID) != 0 {
		t.Errorf("expected 0 subscribers after cancel, got %d", b.SubscriberCount(userID))
	}
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker()
	userID := uuid.New()

	ch, cancel := b.Subscribe(userID)
	defer cancel()

	/* Overfill the buffer; publishing must not block */
	for i := 0; i < subscriberBuffer+5; i++ {
		b.Publish(context.Background(), db.Notification{ID: uuid.New(), UserID: userID})
	}

	if len(ch) != subscriberBuffer {
		t.Errorf("expected %d buffered notifications, got %d", subscriberBuffer, len(ch))
	}
}
