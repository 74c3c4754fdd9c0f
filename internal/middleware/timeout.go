package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/httputil"
)

type TimeoutConfig struct {
	Duration time.Duration
}

func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{Duration: 30 * time.Second}
}

// Timeout caps the request context deadline. Handlers and repositories pass
// that context down to the database driver, which aborts the statement when
// the deadline passes; here we only translate an expired deadline into a
// uniform error envelope when nothing was written yet.
func Timeout(cfg TimeoutConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Duration)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			httputil.RespondWithError(c, errors.Internal(ctx.Err()))
			c.Abort()
		}
	}
}
