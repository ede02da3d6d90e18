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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/lucidlines/services/analysis/usage"
	"github.com/AleutianAI/lucidlines/services/api/middleware"
	"github.com/AleutianAI/lucidlines/services/api/observability"
	"github.com/AleutianAI/lucidlines/services/document/datatypes"
)

// GetUsage handles GET /v1/me/usage, returning the caller's today and
// month-to-date aggregates.
func GetUsage(ledger usage.Ledger, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			writeError(c, "", datatypes.NewAPIError(datatypes.CodeUnauthorized, "unauthorized"))
			return
		}

		u, err := ledger.GetUsage(c.Request.Context(), authInfo.UserID)
		if err != nil {
			slog.Error("usage lookup failed", "user_id", authInfo.UserID, "error", err)
			if metrics != nil {
				metrics.RecordRequest(observability.EndpointUsage, false)
			}
			writeError(c, "", datatypes.NewAPIError(datatypes.CodeInternalError, "failed to read usage"))
			return
		}

		if metrics != nil {
			metrics.RecordRequest(observability.EndpointUsage, true)
		}
		c.JSON(http.StatusOK, u)
	}
}
