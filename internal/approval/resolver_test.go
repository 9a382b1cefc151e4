/*-------------------------------------------------------------------------
 *
 * resolver_test.go
 *    Tests for step approver resolution
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/approval/resolver_test.go
 *
 *-------------------------------------------------------------------------
 */

package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/db"
)

func TestResolveUserApprover(t *testing.T) {
	store := newFakeStore()
	target := uuid.New()
	step := &db.WorkflowStep{ApproverType: ApproverUser, ApproverUserID: &target}

	got, err := resolveApprover(context.Background(), store, step, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || *got != target {
		t.Errorf("expected %s, got %v", target, got)
	}
}

func TestResolveUserApproverMissingUser(t *testing.T) {
	store := newFakeStore()
	step := &db.WorkflowStep{ApproverType: ApproverUser}

	_, err := resolveApprover(context.Background(), store, step, uuid.New(), uuid.New())
	if !errors.Is(err, ErrNoApprover) {
		t.Errorf("expected ErrNoApprover, got %v", err)
	}
}

func TestResolveRoleApproverPicksLongestStanding(t *testing.T) {
	store := newFakeStore()
	workspaceID := uuid.New()

	older := member(workspaceID, "director")
	older.JoinedAt = time.Now().Add(-48 * time.Hour)
	newer := member(workspaceID, "director")
	store.members[older.ID] = older
	store.members[newer.ID] = newer

	role := "director"
	step := &db.WorkflowStep{ApproverType: ApproverRole, ApproverRole: &role}

	got, err := resolveApprover(context.Background(), store, step, workspaceID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || *got != older.ID {
		t.Errorf("expected longest-standing member %s, got %v", older.ID, got)
	}
}

func TestResolveRoleApproverFallsBackToActor(t *testing.T) {
	store := newFakeStore()
	role := "director"
	step := &db.WorkflowStep{ApproverType: ApproverRole, ApproverRole: &role}
	actor := uuid.New()

	got, err := resolveApprover(context.Background(), store, step, uuid.New(), actor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || *got != actor {
		t.Errorf("expected fallback to actor %s, got %v", actor, got)
	}
}

func TestResolveAnyApproverIsPool(t *testing.T) {
	store := newFakeStore()
	step := &db.WorkflowStep{ApproverType: ApproverAny}

	got, err := resolveApprover(context.Background(), store, step, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil approver for pool step, got %v", got)
	}
}

func TestResolveUnknownApproverType(t *testing.T) {
	store := newFakeStore()
	step := &db.WorkflowStep{ApproverType: "committee"}

	_, err := resolveApprover(context.Background(), store, step, uuid.New(), uuid.New())
	if !errors.Is(err, ErrNoApprover) {
		t.Errorf("expected ErrNoApprover, got %v", err)
	}
}
