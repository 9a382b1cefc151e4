/*-------------------------------------------------------------------------
 *
 * errors.go
 *    API error types and helpers
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/api/errors.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/atelierflow/docflow/internal/metrics"
)

/* APIError carries an HTTP status code alongside the error */
type APIError struct {
	Code      int
	Message   string
	Err       error
	RequestID string
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

/* ErrorResponse is the JSON error envelope */
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

/* Common errors */
var (
	ErrNotFound     = &APIError{Code: http.StatusNotFound, Message: "resource not found"}
	ErrUnauthorized = &APIError{Code: http.StatusUnauthorized, Message: "unauthorized"}
	ErrForbidden    = &APIError{Code: http.StatusForbidden, Message: "forbidden"}
	ErrConflict     = &APIError{Code: http.StatusConflict, Message: "conflict"}
)

/* NewError creates an API error */
func NewError(code int, message string, err error) *APIError {
	return &APIError{Code: code, Message: message, Err: err}
}

/* NewErrorWithContext creates an API error and logs it with request context */
func NewErrorWithContext(ctx context.Context, code int, message string, err error, requestID string, fields map[string]interface{}) *APIError {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["status_code"] = code

	if code >= 500 {
		metrics.ErrorWithContext(ctx, message, err, fields)
	} else {
		if err != nil {
			fields["error"] = err.Error()
		}
		metrics.WarnWithContext(ctx, message, fields)
	}

	return &APIError{Code: code, Message: message, Err: err, RequestID: requestID}
}

/* WrapError attaches a request ID to a shared error value */
func WrapError(err *APIError, requestID string) *APIError {
	return &APIError{Code: err.Code, Message: err.Message, Err: err.Err, RequestID: requestID}
}
