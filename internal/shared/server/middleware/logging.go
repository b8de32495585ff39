package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"content-analyzer/internal/shared/metrics"
	"content-analyzer/internal/shared/telemetry"
)

// Logging emits one structured line per request and records its latency.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := metrics.SinceMillis(start)
		metrics.ObserveHTTPDurationMs(elapsed)

		userID, _ := c.Get(userIDKey)
		isGuest, _ := c.Get(isGuestKey)
		runID, _ := c.Get("runId")
		resultID, _ := c.Get("resultId")
		setID, _ := c.Get("questionSetId")

		telemetry.Info("request.complete", map[string]any{
			"request_id":      RequestIDFromContext(c),
			"method":          c.Request.Method,
			"path":            c.Request.URL.Path,
			"status":          c.Writer.Status(),
			"duration_ms":     elapsed,
			"user_id":         userID,
			"is_guest":        isGuest,
			"run_id":          runID,
			"result_id":       resultID,
			"question_set_id": setID,
			"client_ip":       c.ClientIP(),
			"user_agent":      c.Request.UserAgent(),
		})
	}
}
