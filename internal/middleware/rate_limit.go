package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/deppfellow/bicycle-gateway/internal/errs"
	"github.com/deppfellow/bicycle-gateway/internal/server"
	"github.com/labstack/echo/v4"
)

const rateLimitKeyPrefix = "gateway:ratelimit"

// RateLimitMiddleware is a fixed-window limiter keyed by client IP and
// backed by Redis. It fails open: when Redis is unavailable requests pass.
type RateLimitMiddleware struct {
	server *server.Server
	now    func() time.Time
}

func NewRateLimitMiddleware(s *server.Server) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		server: s,
		now:    time.Now,
	}
}

// Limit enforces the configured budget. It is a pass-through when rate
// limiting is disabled.
func (r *RateLimitMiddleware) Limit() echo.MiddlewareFunc {
	cfg := r.server.Config.RateLimit

	if !cfg.Enabled || r.server.Redis == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			count, err := r.hit(c.Request().Context(), c.RealIP(), cfg.Window)
			if err != nil {
				GetLogger(c).Warn().
					Err(err).
					Msg("rate limiter unavailable, allowing request")
				return next(c)
			}

			remaining := int64(cfg.Requests) - count
			if remaining < 0 {
				remaining = 0
			}

			header := c.Response().Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
			header.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Requests) {
				r.RecordRateLimitHit(c.Path())
				if r.server.Metrics != nil {
					r.server.Metrics.ObserveRateLimited()
				}
				header.Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
				return errs.NewTooManyRequestsError("Too many requests")
			}

			return next(c)
		}
	}
}

// hit counts one request for client in the current window and returns the
// window's total so far.
func (r *RateLimitMiddleware) hit(ctx context.Context, client string, window time.Duration) (int64, error) {
	bucket := r.now().UnixNano() / int64(window)
	key := fmt.Sprintf("%s:%s:%d", rateLimitKeyPrefix, client, bucket)

	pipe := r.server.Redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	return incr.Val(), nil
}

// RecordRateLimitHit reports a rejected request to New Relic as a custom event.
func (r *RateLimitMiddleware) RecordRateLimitHit(endpoint string) {
	if r.server.LoggerService != nil && r.server.LoggerService.GetApplication() != nil {
		r.server.LoggerService.GetApplication().RecordCustomEvent("RateLimitHit", map[string]interface{}{
			"endpoint": endpoint,
		})
	}
}
