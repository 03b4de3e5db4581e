package middleware

import (
	"SwanPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Allower admits or rejects one request for a key.
type Allower interface {
	Allow(key string) bool
}

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(c echo.Context) string

// RealIPKey keys requests by client address.
func RealIPKey(c echo.Context) string { return c.RealIP() }

// RateLimit rejects requests once a's budget for the request key is spent.
// reject renders the rejection.
func RateLimit(a Allower, key KeyFunc, reject echo.HandlerFunc, l *logger.Logger) echo.MiddlewareFunc {
	if key == nil {
		key = RealIPKey
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			k := key(c)
			if a.Allow(k) {
				return next(c)
			}
			if l != nil {
				l.Debug("request rate limited", logger.String("key", k), logger.String("path", c.Path()))
			}
			return reject(c)
		}
	}
}
