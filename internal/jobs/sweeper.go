/*-------------------------------------------------------------------------
 *
 * sweeper.go
 *    Deadline sweeper for overdue approvals
 *
 * Periodically auto-approves pending approvals whose step deadline
 * (auto_approve_days) has passed, acting on behalf of the assigned
 * approver. One failing row does not stop the sweep.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/jobs/sweeper.go
 *
 *-------------------------------------------------------------------------
 */

package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/db"
	"github.com/atelierflow/docflow/internal/metrics"
)

const sweepBatchSize = 100

/* overdueLister lists pending approvals past their step deadline */
type overdueLister interface {
	ListOverduePendingApprovals(ctx context.Context, limit int) ([]db.OverdueApproval, error)
}

/* decider records approval decisions */
type decider interface {
	Approve(ctx context.Context, approvalID, actorID uuid.UUID, comment *string) (*db.ApprovalInstance, error)
}

/* Sweeper drives periodic auto-approval of overdue steps */
type Sweeper struct {
	lister   overdueLister
	decider  decider
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

/* NewSweeper creates a deadline sweeper */
func NewSweeper(lister overdueLister, decider decider, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		lister:   lister,
		decider:  decider,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

/* Start launches the sweep loop */
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.SweepOnce(ctx)
			}
		}
	}()
}

/* Stop terminates the sweep loop and waits for it to exit */
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

/* SweepOnce runs a single sweep pass and returns how many approvals were
 * auto-approved */
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	overdue, err := s.lister.ListOverduePendingApprovals(ctx, sweepBatchSize)
	if err != nil {
		metrics.ErrorWithContext(ctx, "Overdue approval sweep failed", err, nil)
		return 0
	}

	approved := 0
	for _, o := range overdue {
		comment := fmt.Sprintf("Auto-approved after %d days without a decision.", o.AutoApproveDays)
		if _, err := s.decider.Approve(ctx, o.ApprovalID, o.ApproverID, &comment); err != nil {
			/* Row may have been decided between listing and deciding */
			metrics.WarnWithContext(ctx, "Auto-approval skipped", map[string]interface{}{
				"approval_id": o.ApprovalID.String(),
				"error":       err.Error(),
			})
			continue
		}
		approved++
		metrics.RecordAutoApproval()
		metrics.InfoWithContext(ctx, "Approval auto-approved past deadline", map[string]interface{}{
			"approval_id": o.ApprovalID.String(),
			"instance_id": o.InstanceID.String(),
			"age_days":    o.AutoApproveDays,
		})
	}

	return approved
}
