package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"jobhelper/internal/shared/telemetry"
)

// SessionIDKey and PhaseKey are set by handlers so the request log can
// carry the session the request acted on.
const (
	SessionIDKey = "sessionId"
	PhaseKey     = "phase"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		telemetry.Info("request.complete", map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"session_id":  c.GetString(SessionIDKey),
			"phase":       c.GetString(PhaseKey),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
	}
}
