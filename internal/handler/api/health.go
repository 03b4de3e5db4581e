package api

import (
	"SwanPulse/internal/domain/models"
	"SwanPulse/internal/stream"
	xhttp "SwanPulse/pkg/http"

	"github.com/labstack/echo/v4"
)

const (
	healthOK       = "ok"
	healthIdle     = "idle"
	healthDegraded = "degraded"
)

type healthReport struct {
	Status           string                 `json:"status"`
	Connection       models.ConnectionState `json:"connection"`
	Stats            models.StreamStats     `json:"stats"`
	ReconnectPending bool                   `json:"reconnectPending"`
}

// HealthHandler reports upstream stream health. It always answers 200: a
// dropped upstream is reported, not treated as the relay being down.
type HealthHandler struct {
	stream *stream.Manager
}

func NewHealthHandler(m *stream.Manager) *HealthHandler {
	return &HealthHandler{stream: m}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	state := h.stream.State()
	stats := h.stream.Stats()
	status := healthOK
	switch {
	case stats.Subscribers == 0:
		status = healthIdle
	case !state.IsConnected:
		status = healthDegraded
	}
	return xhttp.SuccessResponse(c, healthReport{
		Status:           status,
		Connection:       state,
		Stats:            stats,
		ReconnectPending: h.stream.ReconnectPending(),
	})
}
