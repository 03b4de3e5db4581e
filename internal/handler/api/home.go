package api

import (
	"net/http"
	"time"

	"SwanPulse/internal/stream"
	xhttp "SwanPulse/pkg/http"
	xlogger "SwanPulse/pkg/logger"
	"SwanPulse/pkg/sse"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HomeHandler relays the shared home stream to HTTP clients.
type HomeHandler struct {
	logger    *xlogger.Logger
	stream    *stream.Manager
	heartbeat time.Duration
}

func NewHomeHandler(logger *xlogger.Logger, m *stream.Manager, heartbeat time.Duration) *HomeHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &HomeHandler{logger: logger, stream: m, heartbeat: heartbeat}
}

func (h *HomeHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/home")
	g.GET("", h.Stream)
	g.GET("/latest", h.Latest)
}

// Stream serves GET /api/home as text/event-stream. Each request holds one
// view for its lifetime.
func (h *HomeHandler) Stream(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	log := h.logger.With(xlogger.String("client", uuid.NewString()), xlogger.String("transport", "sse"))
	v := stream.NewView(h.stream)
	defer v.Close()
	log.Debug("relay client attached")

	enc := sse.NewEncoder(res)
	var r relay
	push := func() error {
		frames, err := r.frames(v.State())
		if err != nil {
			return err
		}
		for _, f := range frames {
			if err := enc.Encode(f); err != nil {
				return err
			}
		}
		return nil
	}
	if err := push(); err != nil {
		log.Debug("relay write failed", xlogger.Error(err))
		return nil
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("relay client detached")
			return nil
		case <-ticker.C:
			if err := enc.Comment("ping"); err != nil {
				return nil
			}
		case <-v.Changes():
			if err := push(); err != nil {
				log.Debug("relay write failed", xlogger.Error(err))
				return nil
			}
		}
	}
}

// Latest serves GET /api/home/latest. It reads the shared state without
// subscribing, so it never opens the upstream connection by itself.
func (h *HomeHandler) Latest(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, stream.Snapshot(h.stream))
}
