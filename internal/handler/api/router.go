package api

import (
	xhttp "SwanPulse/pkg/http"

	"github.com/labstack/echo/v4"
)

// StreamingPaths are the routes that hold a response open for the life of
// the client.
var StreamingPaths = []string{"/api/home", "/ws/home"}

// Router registers every relay route on one echo instance.
type Router struct {
	handlers []xhttp.Handler
}

func NewRouter(home *HomeHandler, socket *SocketHandler, health *HealthHandler, history *HistoryHandler) *Router {
	return &Router{handlers: []xhttp.Handler{home, socket, health, history}}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}
