// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

const maxAuditBody = 64 << 10

// ActionRecorder persists audit entries.
type ActionRecorder interface {
	RecordAction(ctx context.Context, entry *models.AuditLog)
}

// AuditLogMiddleware records every mutating request in the group it is
// attached to. JSON bodies are stored with password fields redacted.
func AuditLogMiddleware(recorder ActionRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		var requestData map[string]interface{}
		if c.ContentType() == gin.MIMEJSON && c.Request.Body != nil {
			body, _ := io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
			if len(body) > 0 && json.Unmarshal(body, &requestData) == nil {
				redact(requestData)
			}
		}

		c.Next()

		entry := &models.AuditLog{
			Action:       c.Request.Method + " " + c.FullPath(),
			ResourceType: extractResourceType(c.Request.URL.Path),
			Status:       c.Writer.Status(),
			NewValues:    models.JSONB(requestData),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
		}
		if userID, ok := utils.GetUserUUIDFromContext(c); ok {
			entry.UserID = &userID
		}
		if id, err := uuid.Parse(c.Param("id")); err == nil {
			entry.ResourceID = &id
		}

		ctx := context.WithoutCancel(c.Request.Context())
		go recorder.RecordAction(ctx, entry)
	}
}

func redact(values map[string]interface{}) {
	for key := range values {
		if strings.Contains(strings.ToLower(key), "password") {
			values[key] = "[REDACTED]"
		}
	}
}

// "/v1/admin/products/<id>" gives "products".
func extractResourceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for len(parts) > 0 && (parts[0] == "v1" || parts[0] == "admin") {
		parts = parts[1:]
	}
	if len(parts) == 0 || parts[0] == "" {
		return "unknown"
	}
	return parts[0]
}

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}
		if userID, ok := utils.GetUserIDFromContext(c); ok {
			fields["user_id"] = userID
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		entry := logrus.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request processed")
		}
	}
}
