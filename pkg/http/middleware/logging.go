package middleware

import (
	"time"

	"SwanPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per HTTP request. Streaming routes log when
// the client goes away, so their latency is the session length.
func RequestLogging(l *logger.Logger) echo.MiddlewareFunc {
	if l == nil {
		l = logger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("uri", req.RequestURI),
				logger.String("remote", c.RealIP()),
				logger.Int("status", res.Status),
				logger.Duration("latency", time.Since(start)),
				logger.Int64("bytes", res.Size),
			}
			switch {
			case res.Status >= 500:
				l.Error("http request", append(fields, logger.Error(err))...)
			case res.Status >= 400:
				l.Warn("http request", fields...)
			default:
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
