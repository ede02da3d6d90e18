// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "fmt"

// ErrorCode enumerates the structured error codes surfaced to callers.
type ErrorCode string

const (
	// CodeValidationError marks malformed or out-of-bound input. Not retryable.
	CodeValidationError ErrorCode = "VALIDATION_ERROR"

	// CodeRateLimitExceeded marks an admission guard rejection.
	// Retryable after backoff.
	CodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// CodeAnalysisAborted marks a batch analysis failure. Shared by
	// every paragraph in the failed batch. Retryable.
	CodeAnalysisAborted ErrorCode = "ANALYSIS_ABORTED"

	// CodeRevisionMismatch marks a stale save attempt. Caller must
	// reload before retrying.
	CodeRevisionMismatch ErrorCode = "REVISION_MISMATCH"

	// CodeUnauthorized marks a missing or invalid credential.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeInternalError marks an unexpected fault.
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// Retryable reports whether a caller may retry an operation that
// failed with this code without changing the request.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CodeRateLimitExceeded, CodeAnalysisAborted:
		return true
	}
	return false
}

// APIError is a structured engine error mapped onto the HTTP error
// envelope at the transport boundary.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`

	// Revision carries the stored revision on REVISION_MISMATCH so
	// the caller can reload and retry.
	Revision int `json:"revision,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError builds an APIError with the given code and message.
func NewAPIError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// NewRevisionMismatch builds the conflict error for a stale save,
// carrying the revision currently stored for the path.
func NewRevisionMismatch(stored int) *APIError {
	return &APIError{
		Code:     CodeRevisionMismatch,
		Message:  fmt.Sprintf("stored revision is %d", stored),
		Revision: stored,
	}
}
