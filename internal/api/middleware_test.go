/*-------------------------------------------------------------------------
 *
 * middleware_test.go
 *    Tests for API middleware and response helpers
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/api/middleware_test.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/auth"
)

func testAuthMiddleware(t *testing.T) func(http.Handler) http.Handler {
	t.Helper()

	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	return AuthMiddleware(auth.NewAPIKeyManager(nil), tokens, auth.NewRateLimiter())
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	mw := testAuthMiddleware(t)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached without credentials")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/documents", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	mw := testAuthMiddleware(t)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	for _, header := range []string{"Bearer", "Digest abc", "Bearer a b c"} {
		req := httptest.NewRequest("GET", "/api/v1/documents", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestAuthMiddlewareBearerToken(t *testing.T) {
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	mw := AuthMiddleware(auth.NewAPIKeyManager(nil), tokens, auth.NewRateLimiter())

	userID := uuid.New()
	workspaceID := uuid.New()
	token, err := tokens.GenerateToken(userID, workspaceID, "architect")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	var got *Identity
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = MustGetIdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got == nil {
		t.Fatal("expected identity in handler context")
	}
	if got.UserID == nil || *got.UserID != userID {
		t.Error("identity user ID does not match token")
	}
	if got.WorkspaceID != workspaceID {
		t.Error("identity workspace ID does not match token")
	}
	if got.Role != "architect" {
		t.Errorf("unexpected role: %s", got.Role)
	}
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	issuer, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	token := issueExpiredToken(t, issuer)

	mw := AuthMiddleware(auth.NewAPIKeyManager(nil), issuer, auth.NewRateLimiter())
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached with an expired token")
	}))

	req := httptest.NewRequest("GET", "/api/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func issueExpiredToken(t *testing.T, tm *auth.TokenManager) string {
	t.Helper()

	expired, err := auth.NewTokenManager("test-secret", time.Nanosecond)
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	token, err := expired.GenerateToken(uuid.New(), uuid.New(), "architect")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	return token
}

func TestAuthMiddlewareSkipsHealthAndMetrics(t *testing.T) {
	mw := testAuthMiddleware(t)

	for _, path := range []string{"/health", "/metrics"} {
		reached := false
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))

		if !reached {
			t.Errorf("path %s should bypass auth", path)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/documents", nil))

	if seen == "" {
		t.Error("expected a generated request ID in context")
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Error("response header should echo the request ID")
	}
}

func TestRequestIDMiddlewarePreservesClientID(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/v1/documents", nil)
	req.Header.Set("X-Request-ID", "client-id-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "client-id-123" {
		t.Errorf("expected client request ID to be kept, got %q", seen)
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	handler := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight should not reach the handler")
	}))

	req := httptest.NewRequest("OPTIONS", "/api/v1/documents", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS origin header")
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := SecurityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/documents", nil))

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected frame options header")
	}
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, WrapError(ErrNotFound, "req-42"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") != "req-42" {
		t.Error("expected request ID header on error response")
	}

	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Code != http.StatusNotFound {
		t.Errorf("unexpected body code: %d", body.Code)
	}
	if body.Error == "" {
		t.Error("expected error message in body")
	}
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/documents?limit=10&offset=20", nil)
	limit, offset, apiErr := parsePagination(req)
	if apiErr != nil {
		t.Fatalf("unexpected error: %v", apiErr)
	}
	if limit != 10 || offset != 20 {
		t.Errorf("expected 10/20, got %d/%d", limit, offset)
	}

	req = httptest.NewRequest("GET", "/api/v1/documents", nil)
	limit, offset, apiErr = parsePagination(req)
	if apiErr != nil {
		t.Fatalf("unexpected error: %v", apiErr)
	}
	if limit != 50 || offset != 0 {
		t.Errorf("expected defaults 50/0, got %d/%d", limit, offset)
	}

	for _, query := range []string{"limit=-1", "limit=5000", "offset=-2", "limit=abc"} {
		req = httptest.NewRequest("GET", "/api/v1/documents?"+query, nil)
		if _, _, apiErr = parsePagination(req); apiErr == nil {
			t.Errorf("query %q: expected error", query)
		}
	}
}
