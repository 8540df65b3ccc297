// Package correlation is C10: correlation ID propagation and an aggregated
// health check. Grounded on the teacher's gin middleware style (a plain
// gin.HandlerFunc registered with router.Use) and klog structured logging.
package correlation

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderName  = "X-Correlation-Id"
	contextKey  = "correlationID"
)

// Middleware assigns a correlation ID to every request: it honors one the
// caller already supplied in X-Correlation-Id, generating a fresh UUID
// otherwise, and echoes it back on the response for client-side tracing.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKey, id)
		c.Header(HeaderName, id)
		c.Next()
	}
}

// FromContext reads the correlation ID a gin handler's context was
// tagged with by Middleware.
func FromContext(c *gin.Context) string {
	v, _ := c.Get(contextKey)
	s, _ := v.(string)
	return s
}

// Checker reports this dependency's health. A nil error means healthy.
type Checker func(ctx context.Context) error

// Status is the /healthz response body.
type Status struct {
	Healthy bool              `json:"healthy"`
	Checks  map[string]string `json:"checks"`
}

// Handler aggregates a set of named checkers (database, blob storage,
// ...), each given a bounded timeout, and reports 200 only if every one
// succeeds.
func Handler(checkers map[string]Checker, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := Status{Healthy: true, Checks: map[string]string{}}
		for name, check := range checkers {
			ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
			if err := check(ctx); err != nil {
				status.Healthy = false
				status.Checks[name] = err.Error()
			} else {
				status.Checks[name] = "ok"
			}
			cancel()
		}
		code := 200
		if !status.Healthy {
			code = 503
		}
		c.JSON(code, status)
	}
}
