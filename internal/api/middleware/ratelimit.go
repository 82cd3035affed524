package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/wlcham/notes-server/internal/pkg/metrics"
)

// Limiter decides whether one more request for key fits its budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c echo.Context) string

// ByIP counts requests per client address.
func ByIP(c echo.Context) string {
	return c.RealIP()
}

// ByIdentity counts requests per authenticated user, falling back to the
// client address. It must run after Auth.
func ByIdentity(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return "user:" + id.UserID
	}
	return c.RealIP()
}

// RateLimit rejects requests over budget with 429. Limiter failures are
// logged and the request is let through.
func RateLimit(limiter Limiter, scope string, key KeyFunc, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			allowed, err := limiter.Allow(c.Request().Context(), key(c))
			if err != nil {
				log.Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}
			if !allowed {
				metrics.RateLimitRejectedTotal.WithLabelValues(scope).Inc()
				c.Response().Header().Set("Retry-After", "1")
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later")
			}
			return next(c)
		}
	}
}
