// Package ginutil holds the response envelopes and rate-limit plumbing shared
// by the gin handlers.
package ginutil

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Rate-limit buckets.
const (
	RLRead  = "read"
	RLWrite = "write"
	RLLogin = "login"
)

// RateLimiter is satisfied by both the memory and the redis limiter.
type RateLimiter interface {
	AllowNamed(ctx context.Context, bucket, key string) (bool, error)
}

// AllowNamed applies bucket to the client IP. A nil limiter, or a limiter
// error, lets the request through.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.AllowNamed(c.Request.Context(), bucket, c.ClientIP())
	if err != nil {
		Logger(c).WithError(err).WithField("bucket", bucket).Warn("rate limiter unavailable")
		return true
	}
	return ok
}

const loggerKey = "casting.logger"

// SetLogger stores a request-scoped logger on the gin context.
func SetLogger(c *gin.Context, l logrus.FieldLogger) { c.Set(loggerKey, l) }

// Logger returns the request-scoped logger, or the standard logger.
func Logger(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(logrus.FieldLogger); ok {
			return l
		}
	}
	return logrus.StandardLogger()
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": status, "message": message})
}

func BadRequest(c *gin.Context, message string) { fail(c, http.StatusBadRequest, message) }

func NotFound(c *gin.Context, message string) { fail(c, http.StatusNotFound, message) }

func Unprocessable(c *gin.Context, message string) {
	fail(c, http.StatusUnprocessableEntity, message)
}

func ServerErr(c *gin.Context, message string) { fail(c, http.StatusInternalServerError, message) }

func TooMany(c *gin.Context) { fail(c, http.StatusTooManyRequests, "too_many_requests") }

// OK writes a success envelope carrying fields.
func OK(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

const requestIDKey = "casting.request_id"

// SetRequestID stores the request id on the gin context.
func SetRequestID(c *gin.Context, id string) { c.Set(requestIDKey, id) }

// RequestID returns the id set by the request logger, if any.
func RequestID(c *gin.Context) string { return c.GetString(requestIDKey) }
