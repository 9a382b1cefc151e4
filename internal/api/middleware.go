/*-------------------------------------------------------------------------
 *
 * middleware.go
 *    HTTP middleware for DocFlow API
 *
 * Provides authentication, CORS, logging, and security header middleware
 * for the DocFlow HTTP API server.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/api/middleware.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/atelierflow/docflow/internal/auth"
	"github.com/atelierflow/docflow/internal/metrics"
)

/* AuthMiddleware authenticates requests via member JWT or API key.
 *
 * The Authorization header carries either "Bearer <jwt>" for workspace
 * members or "ApiKey <key>" for service callers. API key requests are
 * rate limited per key. */
func AuthMiddleware(keyManager *auth.APIKeyManager, tokens *auth.TokenManager, rateLimiter *auth.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			/* Skip auth for health and metrics endpoints */
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			requestID := GetRequestID(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, WrapError(ErrUnauthorized, requestID))
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 {
				respondError(w, WrapError(ErrUnauthorized, requestID))
				return
			}
			scheme, credential := strings.ToLower(parts[0]), parts[1]

			var identity *Identity

			switch scheme {
			case "apikey":
				apiKey, err := keyManager.ValidateAPIKey(r.Context(), credential)
				if err != nil {
					metrics.WarnWithContext(r.Context(), "API key validation failed", map[string]interface{}{
						"key_prefix": auth.GetKeyPrefix(credential),
						"error":      err.Error(),
					})
					respondError(w, WrapError(ErrUnauthorized, requestID))
					return
				}

				if !rateLimiter.CheckLimit(apiKey.ID.String(), apiKey.RateLimitPerMin) {
					metrics.RecordRateLimitRejected(apiKey.ID.String())
					respondError(w, WrapError(NewError(http.StatusTooManyRequests, "rate limit exceeded", nil), requestID))
					return
				}
				metrics.RecordRateLimitAllowed(apiKey.ID.String())

				role := "service"
				if len(apiKey.Roles) > 0 {
					role = apiKey.Roles[0]
				}
				identity = &Identity{
					WorkspaceID: apiKey.WorkspaceID,
					Role:        role,
					APIKey:      apiKey,
				}

			case "bearer":
				claims, err := tokens.ValidateToken(credential)
				if err != nil {
					metrics.WarnWithContext(r.Context(), "Token validation failed", map[string]interface{}{
						"error": err.Error(),
					})
					respondError(w, WrapError(ErrUnauthorized, requestID))
					return
				}

				userID, err := uuid.Parse(claims.UserID)
				if err != nil {
					respondError(w, WrapError(ErrUnauthorized, requestID))
					return
				}
				workspaceID, err := uuid.Parse(claims.WorkspaceID)
				if err != nil {
					respondError(w, WrapError(ErrUnauthorized, requestID))
					return
				}

				identity = &Identity{
					UserID:      &userID,
					WorkspaceID: workspaceID,
					Role:        claims.Role,
				}

			default:
				respondError(w, WrapError(ErrUnauthorized, requestID))
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			ctx = metrics.WithWorkspaceIDLogContext(ctx, identity.WorkspaceID)
			if identity.UserID != nil {
				ctx = metrics.WithUserIDLogContext(ctx, *identity.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

/* SecurityHeadersMiddleware adds security headers to all HTTP responses */
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

/* CORSMiddleware adds CORS headers */
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

/* LoggingMiddleware logs requests with structured logging and metrics */
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		/* Wrap response writer to capture status code */
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		metrics.RecordHTTPRequest(r.Method, r.URL.Path, wrapped.statusCode, duration)
		metrics.DebugWithContext(r.Context(), "Request handled", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.statusCode,
			"duration_ms": duration.Milliseconds(),
		})
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
