/*-------------------------------------------------------------------------
 *
 * common_test.go
 *    Tests for common validation functions
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/validation/common_test.go
 *
 *-------------------------------------------------------------------------
 */

package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestValidateRequired(t *testing.T) {
	if err := ValidateRequired("", "name"); err == nil {
		t.Error("expected error for empty value")
	}
	if err := ValidateRequired("permit application", "name"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateMaxLength(t *testing.T) {
	if err := ValidateMaxLength("abcdef", "name", 5); err == nil {
		t.Error("expected error for value over limit")
	}
	if err := ValidateMaxLength("abcde", "name", 5); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateUUIDRequired(t *testing.T) {
	if _, err := ValidateUUIDRequired("", "document_id"); err == nil {
		t.Error("expected error for empty value")
	}
	if _, err := ValidateUUIDRequired("not-a-uuid", "document_id"); err == nil {
		t.Error("expected error for malformed UUID")
	}

	want := uuid.New()
	got, err := ValidateUUIDRequired(want.String(), "document_id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestReadAndValidateBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader("hello"))
	body, err := ReadAndValidateBody(r, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("expected 'hello', got %s", body)
	}

	r = httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 20)))
	if _, err := ReadAndValidateBody(r, 10); err == nil {
		t.Error("expected error for oversized body")
	}
}

func TestValidateLimitOffset(t *testing.T) {
	if err := ValidateLimit(-1); err == nil {
		t.Error("expected error for negative limit")
	}
	if err := ValidateLimit(5000); err == nil {
		t.Error("expected error for excessive limit")
	}
	if err := ValidateLimit(100); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateOffset(-1); err == nil {
		t.Error("expected error for negative offset")
	}
	if err := ValidateOffset(0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
