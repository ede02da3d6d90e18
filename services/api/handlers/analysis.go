// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/lucidlines/services/analysis"
	"github.com/AleutianAI/lucidlines/services/analysis/analyzer"
	"github.com/AleutianAI/lucidlines/services/api/middleware"
	"github.com/AleutianAI/lucidlines/services/api/observability"
	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

// analysisResponse is the success body for a dispatched batch.
type analysisResponse struct {
	RequestID     string                `json:"requestId"`
	DocumentID    string                `json:"documentId"`
	PersonaMode   datatypes.PersonaMode `json:"personaMode"`
	PromptVersion string                `json:"promptVersion"`
	Results       []analyzer.Result     `json:"results"`
}

// AnalyzeParagraphs handles POST /v1/analysis/paragraphs.
//
// The request body is an analysis request (documentId, personaMode,
// promptVersion, 1..20 paragraphs of at most 10k characters each).
// Detailed bounds checking lives in the dispatcher; the handler only
// rejects bodies that are not JSON at all.
func AnalyzeParagraphs(d *analysis.Dispatcher, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			writeError(c, "", datatypes.NewAPIError(datatypes.CodeUnauthorized, "unauthorized"))
			return
		}

		var req analyzer.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, "", datatypes.NewAPIError(datatypes.CodeValidationError, err.Error()))
			if metrics != nil {
				metrics.RecordRequest(observability.EndpointAnalyze, false)
				metrics.RecordError(observability.EndpointAnalyze, string(datatypes.CodeValidationError))
			}
			return
		}

		// Assign the request id here so failure envelopes can carry it;
		// the prompt version default is echoed back in the response.
		req.RequestID = datatypes.NewRequestID()
		if req.PromptVersion == "" {
			req.PromptVersion = datatypes.PromptVersion
		}

		if metrics != nil {
			metrics.BatchStarted()
		}
		start := time.Now()

		res, err := d.Dispatch(c.Request.Context(), authInfo.UserID, req)

		if err != nil {
			if metrics != nil {
				metrics.BatchEnded(time.Since(start).Seconds(), false)
				metrics.RecordRequest(observability.EndpointAnalyze, false)
				if apiErr, ok := asAPIError(err); ok {
					metrics.RecordError(observability.EndpointAnalyze, string(apiErr.Code))
				}
			}
			slog.Warn("analysis request failed", "user_id", authInfo.UserID, "error", err)
			writeError(c, req.RequestID, err)
			return
		}

		if metrics != nil {
			metrics.BatchEnded(time.Since(start).Seconds(), true)
			metrics.RecordRequest(observability.EndpointAnalyze, true)
			model := ""
			if len(res.Results) > 0 {
				model = res.Results[0].Model
			}
			metrics.RecordTokens(res.InputTokens, res.OutputTokens, model)
		}

		c.JSON(http.StatusOK, analysisResponse{
			RequestID:     res.RequestID,
			DocumentID:    req.DocumentID,
			PersonaMode:   req.Persona(),
			PromptVersion: req.PromptVersion,
			Results:       res.Results,
		})
	}
}

func asAPIError(err error) (*datatypes.APIError, bool) {
	var apiErr *datatypes.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
