package api

import (
	"errors"

	"SwanPulse/internal/domain/models"
	"SwanPulse/internal/usecase"
	xhttp "SwanPulse/pkg/http"
	"SwanPulse/pkg/http/middleware"
	xlogger "SwanPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HistoryHandler proxies the platform history and chart routes.
type HistoryHandler struct {
	logger  *xlogger.Logger
	history *usecase.HistoryService
	limiter middleware.Allower
}

// NewHistoryHandler builds the handler. A nil limiter admits everything.
func NewHistoryHandler(logger *xlogger.Logger, history *usecase.HistoryService, limiter middleware.Allower) *HistoryHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &HistoryHandler{logger: logger, history: history, limiter: limiter}
}

func (h *HistoryHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/platform")
	if h.limiter != nil {
		g.Use(middleware.RateLimit(h.limiter, middleware.RealIPKey, rejectRateLimited, h.logger))
	}
	g.POST("/:kind/history", h.History)
	g.POST("/:kind/chart", h.Chart)
}

func (h *HistoryHandler) History(c echo.Context) error {
	return h.serve(c, models.ViewHistory)
}

func (h *HistoryHandler) Chart(c echo.Context) error {
	return h.serve(c, models.ViewChart)
}

func (h *HistoryHandler) serve(c echo.Context, view models.HistoryView) error {
	kind := models.ScoreKind(c.Param("kind"))
	if !kind.Valid() {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("unknown score kind %q", kind))
	}
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	if view == models.ViewChart {
		res, err := h.history.Chart(ctx, kind, req.UID)
		if err != nil {
			return h.fail(c, err)
		}
		return xhttp.ArrayResponse(c, res)
	}
	res, err := h.history.History(ctx, kind, req.UID)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.ArrayResponse(c, res)
}

func (h *HistoryHandler) fail(c echo.Context, err error) error {
	if errors.Is(err, usecase.ErrUnknownKind) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	}
	h.logger.Error("history usecase error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

func rejectRateLimited(c echo.Context) error {
	return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
}
