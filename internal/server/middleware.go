package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/satfarm/farmcarbon/internal/logging"
)

// TraceHeader carries the request trace ID in both directions.
const TraceHeader = "X-Trace-ID"

const traceKey = "trace_id"

// TraceID reads the trace ID from the request header, generating one when
// absent, stores it on the request context and echoes it in the response.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(TraceHeader))
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(traceKey, id)
		c.Request = c.Request.WithContext(logging.WithTraceID(c.Request.Context(), id))
		c.Header(TraceHeader, id)
		c.Next()
	}
}

// AccessLog writes one structured line per request.
func AccessLog(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}
		event.
			Str(logging.FieldTraceID, c.GetString(traceKey)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Int64(logging.FieldDurationMs, time.Since(start).Milliseconds()).
			Msg("request handled")
	}
}

func traceIDOf(c *gin.Context) string {
	return c.GetString(traceKey)
}
