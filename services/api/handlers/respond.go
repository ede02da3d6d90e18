// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the LucidLines HTTP endpoints.
//
// All failures share one envelope:
//
//	{
//	  "requestId": "req_...",          // when known
//	  "error": {
//	    "code": "RATE_LIMIT_EXCEEDED",
//	    "message": "...",
//	    "retryable": true
//	  }
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

// errorBody is the inner error object of the envelope.
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// errorEnvelope is the wire shape of every failure response.
type errorEnvelope struct {
	RequestID string    `json:"requestId,omitempty"`
	Error     errorBody `json:"error"`
}

// statusFor maps an error code to its HTTP status.
func statusFor(code datatypes.ErrorCode) int {
	switch code {
	case datatypes.CodeValidationError:
		return http.StatusBadRequest
	case datatypes.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case datatypes.CodeRevisionMismatch:
		return http.StatusConflict
	case datatypes.CodeUnauthorized:
		return http.StatusUnauthorized
	case datatypes.CodeAnalysisAborted:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the standard envelope. Non-APIError values
// are wrapped as INTERNAL_ERROR; requestID may be empty when the
// failure happened before a request id was assigned.
func writeError(c *gin.Context, requestID string, err error) {
	var apiErr *datatypes.APIError
	if !errors.As(err, &apiErr) {
		apiErr = datatypes.NewAPIError(datatypes.CodeInternalError, err.Error())
	}

	c.JSON(statusFor(apiErr.Code), errorEnvelope{
		RequestID: requestID,
		Error: errorBody{
			Code:      string(apiErr.Code),
			Message:   apiErr.Message,
			Retryable: apiErr.Code.Retryable(),
		},
	})
}
