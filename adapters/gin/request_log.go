package authgin

import (
	"time"

	"github.com/PaulFidika/casting/adapters/ginutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns a request id, exposes a request-scoped logger to
// handlers and logs one line per request. The Authorization header is never
// logged.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Header(RequestIDHeader, rid)
		ginutil.SetRequestID(c, rid)
		entry := log.WithField("request_id", rid)
		ginutil.SetLogger(c, entry)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}
		if outcome := AuthOutcome(c); outcome != "" {
			fields["auth"] = outcome
		}
		e := entry.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= 500:
			e.Error("request")
		case status >= 400:
			e.Warn("request")
		default:
			e.Info("request")
		}
	}
}
