package api

import (
	"net/http"
	"net/url"
	"time"

	"SwanPulse/internal/stream"
	xlogger "SwanPulse/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsWriteWait   = 10 * time.Second
	wsMaxReadSize = 512
)

// SocketHandler relays the home stream over WebSocket. Every change pushes
// the full view state as one JSON text message.
type SocketHandler struct {
	logger    *xlogger.Logger
	stream    *stream.Manager
	heartbeat time.Duration
	upgrader  websocket.Upgrader
}

// NewSocketHandler builds the handler. origins follows the CORS list:
// "*" admits any origin.
func NewSocketHandler(logger *xlogger.Logger, m *stream.Manager, heartbeat time.Duration, origins []string) *SocketHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &SocketHandler{
		logger:    logger,
		stream:    m,
		heartbeat: heartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(origins),
		},
	}
}

func (h *SocketHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/home", h.Serve)
}

func (h *SocketHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already answered
		h.logger.Debug("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	log := h.logger.With(xlogger.String("client", uuid.NewString()), xlogger.String("transport", "ws"))
	v := stream.NewView(h.stream)
	defer v.Close()
	log.Debug("relay client attached")

	// Client messages are ignored; reading is only for control frames and
	// for noticing the close.
	readWait := 2 * h.heartbeat
	conn.SetReadLimit(wsMaxReadSize)
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	push := func() error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v.State())
	}
	if err := push(); err != nil {
		return nil
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	ctx := c.Request().Context()
	for {
		select {
		case <-gone:
			log.Debug("relay client detached")
			return nil
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(wsWriteWait))
			return nil
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
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

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		// same host is always fine
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
