package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var sensitiveHeaders = []string{"authorization", "cookie"}

// scrub copies h with credential-bearing headers redacted.
func scrub(h http.Header) http.Header {
	clone := h.Clone()
	for k := range clone {
		lower := strings.ToLower(k)
		for _, s := range sensitiveHeaders {
			if strings.Contains(lower, s) {
				clone[k] = []string{"[redacted]"}
			}
		}
	}
	return clone
}

// RequestLogger logs every request once on the way in (debug) and once on
// completion. Bodies are never logged: they carry passwords and tokens.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ce := log.Check(zap.DebugLevel, "incoming request"); ce != nil {
			ce.Write(
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("origin", c.GetHeader("Origin")),
				zap.Any("hdr", scrub(c.Request.Header)),
			)
		}

		ts := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(ts)),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("client_ip", c.ClientIP()),
		}

		for _, e := range c.Errors {
			log.Error("handler error", append(fields, zap.Error(e.Err))...)
		}

		switch {
		case c.IsAborted() && status >= http.StatusInternalServerError:
			log.Error("aborted", fields...)
		case c.IsAborted():
			log.Warn("aborted", fields...)
		case status >= http.StatusInternalServerError:
			log.Error("completed", fields...)
		default:
			log.Info("completed", fields...)
		}
	}
}
