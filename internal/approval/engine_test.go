/*-------------------------------------------------------------------------
 *
 * engine_test.go
 *    Tests for the sequential approval engine
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/approval/engine_test.go
 *
 *-------------------------------------------------------------------------
 */

package approval

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/db"
)

/* fakeStore is an in-memory Store for engine tests */
type fakeStore struct {
	documents map[uuid.UUID]*db.Document
	workflows map[uuid.UUID]*db.Workflow
	steps     map[uuid.UUID][]db.WorkflowStep
	members   map[uuid.UUID]*db.WorkspaceMember
	instances map[uuid.UUID]*db.ApprovalInstance
	approvals map[uuid.UUID]*db.DocumentApproval
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		documents: map[uuid.UUID]*db.Document{},
		workflows: map[uuid.UUID]*db.Workflow{},
		steps:     map[uuid.UUID][]db.WorkflowStep{},
		members:   map[uuid.UUID]*db.WorkspaceMember{},
		instances: map[uuid.UUID]*db.ApprovalInstance{},
		approvals: map[uuid.UUID]*db.DocumentApproval{},
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(f)
}

func (f *fakeStore) GetDocumentByID(ctx context.Context, id uuid.UUID) (*db.Document, error) {
	d, ok := f.documents[id]
	if !ok {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	return d, nil
}

func (f *fakeStore) SetDocumentStatus(ctx context.Context, id uuid.UUID, status string) error {
	d, ok := f.documents[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	d.Status = status
	return nil
}

func (f *fakeStore) GetWorkflowByID(ctx context.Context, id uuid.UUID) (*db.Workflow, error) {
	return f.workflows[id], nil
}

func (f *fakeStore) ListWorkflowSteps(ctx context.Context, workflowID uuid.UUID) ([]db.WorkflowStep, error) {
	return f.steps[workflowID], nil
}

func (f *fakeStore) GetMemberByID(ctx context.Context, id uuid.UUID) (*db.WorkspaceMember, error) {
	m, ok := f.members[id]
	if !ok {
		return nil, fmt.Errorf("member not found: %s", id)
	}
	return m, nil
}

func (f *fakeStore) FindMemberByRole(ctx context.Context, workspaceID uuid.UUID, role string) (*db.WorkspaceMember, error) {
	var oldest *db.WorkspaceMember
	for _, m := range f.members {
		if m.WorkspaceID != workspaceID || m.Role != role {
			continue
		}
		if oldest == nil || m.JoinedAt.Before(oldest.JoinedAt) {
			oldest = m
		}
	}
	return oldest, nil
}

func (f *fakeStore) CreateApprovalInstance(ctx context.Context, inst *db.ApprovalInstance) error {
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	if inst.CurrentStep == 0 {
		inst.CurrentStep = 1
	}
	if inst.Status == "" {
		inst.Status = StatusPending
	}
	inst.StartedAt = time.Now()
	cp := *inst
	f.instances[inst.ID] = &cp
	return nil
}

func (f *fakeStore) GetApprovalInstanceByID(ctx context.Context, id uuid.UUID) (*db.ApprovalInstance, error) {
	inst, ok := f.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance not found: %s", id)
	}
	cp := *inst
	return &cp, nil
}

func (f *fakeStore) GetActiveInstanceByDocument(ctx context.Context, documentID uuid.UUID) (*db.ApprovalInstance, error) {
	for _, inst := range f.instances {
		if inst.DocumentID == documentID && (inst.Status == StatusPending || inst.Status == StatusInProgress) {
			cp := *inst
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) AdvanceApprovalInstance(ctx context.Context, id uuid.UUID, step int) error {
	inst, ok := f.instances[id]
	if !ok || (inst.Status != StatusPending && inst.Status != StatusInProgress) {
		return db.ErrAlreadyResolved
	}
	inst.CurrentStep = step
	inst.Status = StatusInProgress
	return nil
}

func (f *fakeStore) FinalizeApprovalInstance(ctx context.Context, id uuid.UUID, status string) error {
	inst, ok := f.instances[id]
	if !ok || (inst.Status != StatusPending && inst.Status != StatusInProgress) {
		return db.ErrAlreadyResolved
	}
	inst.Status = status
	now := time.Now()
	inst.CompletedAt = &now
	return nil
}

func (f *fakeStore) CreateDocumentApproval(ctx context.Context, a *db.DocumentApproval) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	a.CreatedAt = time.Now()
	cp := *a
	f.approvals[a.ID] = &cp
	return nil
}

func (f *fakeStore) GetDocumentApprovalByID(ctx context.Context, id uuid.UUID) (*db.DocumentApproval, error) {
	a, ok := f.approvals[id]
	if !ok {
		return nil, fmt.Errorf("approval not found: %s", id)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ResolveDocumentApproval(ctx context.Context, id uuid.UUID, status string, comment *string, actorID uuid.UUID) error {
	a, ok := f.approvals[id]
	if !ok || a.Status != StatusPending {
		return db.ErrAlreadyResolved
	}
	a.Status = status
	a.Comment = comment
	if a.ApproverID == nil {
		actor := actorID
		a.ApproverID = &actor
	}
	now := time.Now()
	a.ResolvedAt = &now
	return nil
}

func (f *fakeStore) ClaimDocumentApproval(ctx context.Context, id, approverID uuid.UUID) error {
	a, ok := f.approvals[id]
	if !ok || a.Status != StatusPending || a.ApproverID != nil {
		return db.ErrAlreadyResolved
	}
	claimer := approverID
	a.ApproverID = &claimer
	return nil
}

func (f *fakeStore) ListApprovalsByInstance(ctx context.Context, instanceID uuid.UUID) ([]db.DocumentApproval, error) {
	out := []db.DocumentApproval{}
	for _, a := range f.approvals {
		if a.InstanceID == instanceID {
			out = append(out, *a)
		}
	}
	return out, nil
}

/* fakeNotifier records lifecycle events */
type fakeNotifier struct {
	requested []uuid.UUID
	actors    []uuid.UUID
	completed []uuid.UUID
	rejected  []uuid.UUID
	comments  []*string
}

func (n *fakeNotifier) ApprovalRequested(ctx context.Context, doc *db.Document, inst *db.ApprovalInstance, approval *db.DocumentApproval, step *db.WorkflowStep, actor uuid.UUID) {
	n.requested = append(n.requested, approval.ID)
	n.actors = append(n.actors, actor)
}

func (n *fakeNotifier) ApprovalCompleted(ctx context.Context, doc *db.Document, inst *db.ApprovalInstance) {
	n.completed = append(n.completed, inst.ID)
}

func (n *fakeNotifier) ApprovalRejected(ctx context.Context, doc *db.Document, inst *db.ApprovalInstance, rejectedBy uuid.UUID, comment *string) {
	n.rejected = append(n.rejected, inst.ID)
	n.comments = append(n.comments, comment)
}

/* fixture builds a workspace with a two-step user/user workflow */
type fixture struct {
	store      *fakeStore
	notifier   *fakeNotifier
	engine     *Engine
	workspace  uuid.UUID
	document   *db.Document
	workflow   *db.Workflow
	approver1  *db.WorkspaceMember
	approver2  *db.WorkspaceMember
	submitter  *db.WorkspaceMember
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newFakeStore()
	notifier := &fakeNotifier{}

	workspaceID := uuid.New()
	submitter := member(workspaceID, "architect")
	approver1 := member(workspaceID, "project_manager")
	approver2 := member(workspaceID, "director")
	store.members[submitter.ID] = submitter
	store.members[approver1.ID] = approver1
	store.members[approver2.ID] = approver2

	doc := &db.Document{
		ID:           uuid.New(),
		WorkspaceID:  workspaceID,
		Name:         "Permit application",
		DocumentType: "permit",
		Status:       "draft",
	}
	store.documents[doc.ID] = doc

	wf := &db.Workflow{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        "Permit review",
		IsActive:    true,
	}
	store.workflows[wf.ID] = wf
	store.steps[wf.ID] = []db.WorkflowStep{
		userStep(wf.ID, 1, "PM review", approver1.ID),
		userStep(wf.ID, 2, "Director sign-off", approver2.ID),
	}

	return &fixture{
		store:     store,
		notifier:  notifier,
		engine:    NewEngine(store, notifier),
		workspace: workspaceID,
		document:  doc,
		workflow:  wf,
		approver1: approver1,
		approver2: approver2,
		submitter: submitter,
	}
}

func member(workspaceID uuid.UUID, role string) *db.WorkspaceMember {
	return &db.WorkspaceMember{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Email:       uuid.NewString() + "@atelier.example",
		Role:        role,
		JoinedAt:    time.Now(),
	}
}

func userStep(workflowID uuid.UUID, order int, name string, approverID uuid.UUID) db.WorkflowStep {
	id := approverID
	return db.WorkflowStep{
		ID:             uuid.New(),
		WorkflowID:     workflowID,
		StepOrder:      order,
		Name:           name,
		ApproverType:   ApproverUser,
		ApproverUserID: &id,
		Required:       true,
	}
}

func (f *fixture) pendingApproval(t *testing.T, instID uuid.UUID) *db.DocumentApproval {
	t.Helper()
	for _, a := range f.store.approvals {
		if a.InstanceID == instID && a.Status == StatusPending {
			return a
		}
	}
	t.Fatal("no pending approval found")
	return nil
}

func TestStartCreatesInstanceAndFirstApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inst, err := f.engine.Start(ctx, f.document.ID, f.workflow.ID, f.submitter.ID)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if inst.CurrentStep != 1 {
		t.Errorf("expected current step 1, got %d", inst.CurrentStep)
	}
	if inst.Status != StatusInProgress {
		t.Errorf("expected status in_progress, got %s", inst.Status)
	}
	if f.document.Status != DocumentPendingApproval {
		t.Errorf("expected document pending_approval, got %s", f.document.Status)
	}

	a := f.pendingApproval(t, inst.ID)
	if a.ApproverID == nil || *a.ApproverID != f.approver1.ID {
		t.Error("expected first approval assigned to step 1 approver")
	}
	if len(f.notifier.requested) != 1 {
		t.Errorf("expected 1 request notification, got %d", len(f.notifier.requested))
	}
}

func TestStartFailsWithoutSteps(t *testing.T) {
	f := newFixture(t)
	f.store.steps[f.workflow.ID] = nil

	_, err := f.engine.Start(context.Background(), f.document.ID, f.workflow.ID, f.submitter.ID)
	if !errors.Is(err, ErrNoSteps) {
		t.Errorf("expected ErrNoSteps, got %v", err)
	}
	if f.document.Status != "draft" {
		t.Errorf("document status should be unchanged, got %s", f.document.Status)
	}
}

func TestStartFailsOnInactiveWorkflow(t *testing.T) {
	f := newFixture(t)
	f.workflow.IsActive = false

	_, err := f.engine.Start(context.Background(), f.document.ID, f.workflow.ID, f.submitter.ID)
	if !errors.Is(err, ErrWorkflowInactive) {
		t.Errorf("expected ErrWorkflowInactive, got %v", err)
	}
}

func TestStartFailsWhenChainAlreadyActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, f.document.ID, f.workflow.ID, f.submitter.ID); err != nil {
		t.Fatalf("first Start returned error: %v", err)
	}
	_, err := f.engine.Start(ctx, f.document.ID, f.workflow.ID, f.submitter.ID)
	if !errors.Is(err, ErrInstanceActive) {
		t.Errorf("expected ErrInstanceActive, got %v", err)
	}
}

func TestApproveAdvancesThenCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inst, err := f.engine.Start(ctx, f.document.ID, f.workflow.ID, f.submitter.ID)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	first := f.pendingApproval(t, inst.ID)
	if _, err := f.engine.Approve(ctx, first.ID, f.approver1.ID, nil); err != nil {
		t.Fatalf("first Approve returned error: %v", err)
	}

	stored := f.store.instances[inst.ID]
	if stored.CurrentStep != 2 {
		t.Errorf("expected current step 2, got %d", stored.CurrentStep)
	}
	if stored.Status != StatusInProgress {
		t.Errorf("expected status in_progress, got %s", stored.Status)
	}

	second := f.pendingApproval(t, inst.ID)
	if second.ApproverID == nil || *second.ApproverID != f.approver2.ID {
		t.Error("expected second approval assigned to step 2 approver")
	}

	if _, err := f.engine.Approve(ctx, second.ID, f.approver2.ID, nil); err != nil {
		t.Fatalf("second Approve returned error: %v", err)
	}

	stored = f.store.instances[inst.ID]
	if stored.Status != StatusApproved {
		t.Errorf("expected status approved, got %s", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if f.document.Status != DocumentValidated {
		t.Errorf("expected document validated, got %s", f.document.Status)
	}
	if len(f.notifier.completed) != 1 {
		t.Errorf("expected 1 completion notification, got %d", len(f.notifier.completed))
	}
	/* Start plus the advancement to step 2 */
	if len(f.notifier.requested) != 2 {
		t.Errorf("expected 2 request notifications, got %d", len(f.notifier.requested))
	}
}

func TestRequestNotificationsCarryDecidingActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inst, err := f.engine.Start(ctx, f.document.ID, f.workflow.ID, f.submitter.ID)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	first := f.pendingApproval(t, inst.ID)
	if _, err := f.engine.Approve(ctx, first.ID, f.approver1.ID, nil); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	/* The notifier suppresses self-notification by comparing the next
	 * approver against whoever acted, so the chain start must carry the
	 * submitter and the advancement the deciding approver */
	if len(f.notifier.actors) != 2 {
		t.Fatalf("expected 2 request notifications, got %d", len(f.notifier.actors))
	}
	if f.notifier.actors[0] != f.submitter.ID {
		t.Error("expected chain-start notification to carry the submitter as actor")
	}
	if f.notifier.actors[1] != f.approver1.ID {
		t.Error("expected advancement notification to carry the step 1 approver as actor")
	}
}

func TestRejectTerminatesChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inst, err := f.engine.Start(ctx, f.document.ID, f.workflow.ID, f.submitter.ID)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	first := f.pendingApproval(t, inst.ID)
	comment := "Missing structural calculations"
	if _, err := f.engine.Reject(ctx, first.ID, f.approver1.ID, &comment); err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}

	stored := f.store.instances[inst.ID]
	if stored.Status != StatusRejected {
		t.Errorf("expected status rejected, got %s", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if f.document.Status != DocumentRejected {
		t.Errorf("expected document rejected, got %s", f.document.Status)
	}

	approvals, _ := f.store.ListApprovalsByInstance(ctx, inst.ID)
	if len(approvals) != 1 {
		t.Errorf("expected no further approval rows after rejection, got %d", len(approvals))
	}
	if len(f.notifier.rejected) != 1 {
		t.Fatalf("expected 1 rejection notification, got %d", len(f.notifier.rejected))
	}
	if f.notifier.comments[0] == nil || *f.notifier.comments[0] != comment {
		t.Error("expected rejection comment to reach notifier")
	}
}

func TestSecondDecisionOnSameStepFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inst, err := f.engine.Start(ctx, f.document.ID, f.workflow.ID, f.submitter.ID)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	first := f.pendingApproval(t, inst.ID)
	if _, err := f.engine.Approve(ctx, first.ID, f.approver1.ID, nil); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	if _, err := f.engine.Approve(ctx, first.ID, f.approver1.ID, nil); !errors.Is(err, db.ErrAlreadyResolved) {
		t.Errorf("expected ErrAlreadyResolved on duplicate decision, got %v", err)
	}
}

func TestPoolStepIsUnassignedAndClaimable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.steps[f.workflow.ID] = []db.WorkflowStep{{
		ID:           uuid.New(),
		WorkflowID:   f.workflow.ID,
		StepOrder:    1,
		Name:         "Anyone reviews",
		ApproverType: ApproverAny,
		Required:     true,
	}}

	inst, err := f.engine.Start(ctx, f.document.ID, f.workflow.ID, f.submitter.ID)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	a := f.pendingApproval(t, inst.ID)
	if a.ApproverID != nil {
		t.Error("expected pool approval to start unassigned")
	}

	if err := f.engine.Claim(ctx, a.ID, f.approver1.ID); err != nil {
		t.Fatalf("Claim returned error: %v", err)
	}
	claimed := f.store.approvals[a.ID]
	if claimed.ApproverID == nil || *claimed.ApproverID != f.approver1.ID {
		t.Error("expected claim to assign the approval")
	}

	/* Second claim loses */
	if err := f.engine.Claim(ctx, a.ID, f.approver2.ID); !errors.Is(err, db.ErrAlreadyResolved) {
		t.Errorf("expected ErrAlreadyResolved on second claim, got %v", err)
	}
}

func TestDecidingUnclaimedPoolApprovalImplicitlyClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.steps[f.workflow.ID] = []db.WorkflowStep{{
		ID:           uuid.New(),
		WorkflowID:   f.workflow.ID,
		StepOrder:    1,
		Name:         "Anyone reviews",
		ApproverType: ApproverAny,
		Required:     true,
	}}

	inst, err := f.engine.Start(ctx, f.document.ID, f.workflow.ID, f.submitter.ID)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	a := f.pendingApproval(t, inst.ID)
	if _, err := f.engine.Approve(ctx, a.ID, f.approver2.ID, nil); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	decided := f.store.approvals[a.ID]
	if decided.ApproverID == nil || *decided.ApproverID != f.approver2.ID {
		t.Error("expected deciding actor to be recorded as approver")
	}
	if f.document.Status != DocumentValidated {
		t.Errorf("expected document validated, got %s", f.document.Status)
	}
}

func TestApproveFallsBackToCurrentStepWithoutStepRef(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inst, err := f.engine.Start(ctx, f.document.ID, f.workflow.ID, f.submitter.ID)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	first := f.pendingApproval(t, inst.ID)
	f.store.approvals[first.ID].StepID = nil

	if _, err := f.engine.Approve(ctx, first.ID, f.approver1.ID, nil); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	if f.store.instances[inst.ID].CurrentStep != 2 {
		t.Errorf("expected advancement via current_step fallback, got step %d", f.store.instances[inst.ID].CurrentStep)
	}
}
