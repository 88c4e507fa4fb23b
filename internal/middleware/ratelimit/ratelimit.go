package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nmalenkov/storefront/pkg/logging"
)

// Counter is the sliding-window counter the limiter delegates to. The
// production implementation lives in redis; tests use an in-memory one.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

const (
	BucketAPI  = "api"
	BucketAuth = "auth"
)

type Limiter struct {
	Counter Counter
}

func New(counter Counter) *Limiter {
	return &Limiter{Counter: counter}
}

// Limit caps requests per caller identity in a trailing window. The
// key combines the bucket with the authenticated user id when present,
// falling back to the client IP. A counter outage fails open.
func (l *Limiter) Limit(bucket string, max int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l == nil || l.Counter == nil {
				return next(c)
			}

			identity := c.RealIP()
			if uid, ok := c.Get("user_id").(string); ok && uid != "" {
				identity = "user:" + uid
			}
			key := fmt.Sprintf("ratelimit:%s:%s", bucket, identity)

			n, err := l.Counter.Incr(c.Request().Context(), key, window)
			if err != nil {
				logging.FromContext(c.Request().Context()).Warn("rate limit counter error", "error", err)
				return next(c)
			}
			if n > int64(max) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}
