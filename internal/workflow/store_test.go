/*-------------------------------------------------------------------------
 *
 * store_test.go
 *    Tests for workflow step normalization
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/workflow/store_test.go
 *
 *-------------------------------------------------------------------------
 */

package workflow

import (
	"testing"

	"github.com/google/uuid"
)

func TestNormalizeStepsRenumbersSparseOrders(t *testing.T) {
	approver := uuid.New()
	role := "director"

	steps, err := NormalizeSteps([]StepInput{
		{Order: 10, Name: "PM review", ApproverType: "user", ApproverUserID: &approver},
		{Order: 3, Name: "Intake", ApproverType: "any"},
		{Order: 25, Name: "Sign-off", ApproverType: "role", ApproverRole: &role},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	wantNames := []string{"Intake", "PM review", "Sign-off"}
	for i, want := range wantNames {
		if steps[i].Name != want {
			t.Errorf("step %d: expected %q, got %q", i, want, steps[i].Name)
		}
		if steps[i].StepOrder != i+1 {
			t.Errorf("step %d: expected order %d, got %d", i, i+1, steps[i].StepOrder)
		}
	}
}

func TestNormalizeStepsKeepsInputPositionOnTies(t *testing.T) {
	steps, err := NormalizeSteps([]StepInput{
		{Order: 1, Name: "First", ApproverType: "any"},
		{Order: 1, Name: "Second", ApproverType: "any"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if steps[0].Name != "First" || steps[1].Name != "Second" {
		t.Errorf("expected stable order on ties, got %q then %q", steps[0].Name, steps[1].Name)
	}
}

func TestNormalizeStepsRejectsEmpty(t *testing.T) {
	if _, err := NormalizeSteps(nil); err == nil {
		t.Error("expected error for empty step list")
	}
}

func TestNormalizeStepsValidatesApproverBinding(t *testing.T) {
	if _, err := NormalizeSteps([]StepInput{
		{Order: 1, Name: "PM review", ApproverType: "user"},
	}); err == nil {
		t.Error("expected error for user step without user")
	}

	if _, err := NormalizeSteps([]StepInput{
		{Order: 1, Name: "Sign-off", ApproverType: "role"},
	}); err == nil {
		t.Error("expected error for role step without role")
	}

	if _, err := NormalizeSteps([]StepInput{
		{Order: 1, Name: "Review", ApproverType: "committee"},
	}); err == nil {
		t.Error("expected error for unknown approver type")
	}
}

func TestNormalizeStepsDefaultsRequired(t *testing.T) {
	optional := false
	steps, err := NormalizeSteps([]StepInput{
		{Order: 1, Name: "Intake", ApproverType: "any"},
		{Order: 2, Name: "Courtesy review", ApproverType: "any", Required: &optional},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !steps[0].Required {
		t.Error("expected required to default to true")
	}
	if steps[1].Required {
		t.Error("expected explicit required=false to be kept")
	}
}

func TestNormalizeStepsRejectsBadAutoApprove(t *testing.T) {
	days := 0
	if _, err := NormalizeSteps([]StepInput{
		{Order: 1, Name: "Intake", ApproverType: "any", AutoApproveDays: &days},
	}); err == nil {
		t.Error("expected error for non-positive auto_approve_days")
	}
}
