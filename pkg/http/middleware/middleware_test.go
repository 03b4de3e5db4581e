package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"SwanPulse/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countAllower struct{ left int }

func (a *countAllower) Allow(string) bool {
	if a.left == 0 {
		return false
	}
	a.left--
	return true
}

func serve(e *echo.Echo, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(Recover(logger.NewWriter(&buf, zerolog.DebugLevel)))
	e.GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := serve(e, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "kaboom")
}

func TestRateLimit(t *testing.T) {
	e := echo.New()
	reject := func(c echo.Context) error { return c.NoContent(http.StatusTooManyRequests) }
	e.Use(RateLimit(&countAllower{left: 1}, nil, reject, nil))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodGet, "/", nil).Code)
}

func TestHTTPMetrics_UsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	e := echo.New()
	e.Use(m.Middleware(nil, 0))
	e.GET("/api/:kind", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	serve(e, http.MethodGet, "/api/peak", nil)
	serve(e, http.MethodGet, "/api/blackswan", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/:kind", http.MethodGet, "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight.WithLabelValues("/api/:kind", http.MethodGet)))
}

func TestHTTPMetrics_RecordsHandlerErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	e := echo.New()
	e.Use(m.Middleware(nil, 0))
	e.GET("/missing", func(echo.Context) error { return echo.ErrNotFound })

	rec := serve(e, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/missing", http.MethodGet, "404")))
}

func TestCORS(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins: []string{"https://app.example"},
		AllowMethods: []string{http.MethodGet},
		MaxAge:       60,
	}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodGet, "/", map[string]string{"Origin": "https://app.example"})
	assert.Equal(t, "https://app.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = serve(e, http.MethodGet, "/", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = serve(e, http.MethodOptions, "/", map[string]string{"Origin": "https://app.example"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "60", rec.Header().Get(echo.HeaderAccessControlMaxAge))
	assert.True(t, strings.Contains(rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodGet))
}
