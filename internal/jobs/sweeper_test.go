/*-------------------------------------------------------------------------
 *
 * sweeper_test.go
 *    Tests for the deadline sweeper
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/jobs/sweeper_test.go
 *
 *-------------------------------------------------------------------------
 */

package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/db"
)

type fakeLister struct {
	overdue []db.OverdueApproval
	err     error
}

func (f *fakeLister) ListOverduePendingApprovals(ctx context.Context, limit int) ([]db.OverdueApproval, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.overdue) > limit {
		return f.overdue[:limit], nil
	}
	return f.overdue, nil
}

type fakeDecider struct {
	approved []uuid.UUID
	actors   []uuid.UUID
	comments []*string
	failOn   map[uuid.UUID]error
}

func (f *fakeDecider) Approve(ctx context.Context, approvalID, actorID uuid.UUID, comment *string) (*db.ApprovalInstance, error) {
	if err, ok := f.failOn[approvalID]; ok {
		return nil, err
	}
	f.approved = append(f.approved, approvalID)
	f.actors = append(f.actors, actorID)
	f.comments = append(f.comments, comment)
	return &db.ApprovalInstance{ID: uuid.New()}, nil
}

func TestSweepOnceApprovesOverdue(t *testing.T) {
	approver := uuid.New()
	lister := &fakeLister{overdue: []db.OverdueApproval{
		{ApprovalID: uuid.New(), InstanceID: uuid.New(), ApproverID: approver, AutoApproveDays: 5},
	}}
	decider := &fakeDecider{}

	s := NewSweeper(lister, decider, time.Hour)
	if got := s.SweepOnce(context.Background()); got != 1 {
		t.Fatalf("expected 1 auto-approval, got %d", got)
	}

	if len(decider.approved) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decider.approved))
	}
	if decider.actors[0] != approver {
		t.Error("expected auto-approval to act as the assigned approver")
	}
	if decider.comments[0] == nil || !strings.Contains(*decider.comments[0], "5 days") {
		t.Error("expected auto-approval comment naming the deadline")
	}
}

func TestSweepOnceContinuesPastFailures(t *testing.T) {
	failing := uuid.New()
	ok := uuid.New()
	lister := &fakeLister{overdue: []db.OverdueApproval{
		{ApprovalID: failing, ApproverID: uuid.New(), AutoApproveDays: 3},
		{ApprovalID: ok, ApproverID: uuid.New(), AutoApproveDays: 3},
	}}
	decider := &fakeDecider{failOn: map[uuid.UUID]error{failing: db.ErrAlreadyResolved}}

	s := NewSweeper(lister, decider, time.Hour)
	if got := s.SweepOnce(context.Background()); got != 1 {
		t.Fatalf("expected 1 auto-approval, got %d", got)
	}
	if len(decider.approved) != 1 || decider.approved[0] != ok {
		t.Error("expected the non-failing row to be approved")
	}
}

func TestSweepOnceToleratesListError(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}
	decider := &fakeDecider{}

	s := NewSweeper(lister, decider, time.Hour)
	if got := s.SweepOnce(context.Background()); got != 0 {
		t.Errorf("expected 0 auto-approvals on list failure, got %d", got)
	}
}

func TestSweeperStartStop(t *testing.T) {
	lister := &fakeLister{}
	decider := &fakeDecider{}

	s := NewSweeper(lister, decider, 10*time.Millisecond)
	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	s.Stop()
}
