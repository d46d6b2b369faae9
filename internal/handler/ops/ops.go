package ops

import (
	"time"

	"github.com/labstack/echo/v4"

	domrepo "MandiCast/internal/domain/repository"
	"MandiCast/internal/services/bundle"
	xhttp "MandiCast/pkg/http"
	xlogger "MandiCast/pkg/logger"
)

// Handler exposes the operational surface: liveness, readiness and
// model catalogue. The farmer-facing advice API lives elsewhere; this
// service only serves operators and scrapers.
type Handler struct {
	logger   *xlogger.Logger
	registry *bundle.Registry
	history  domrepo.PriceHistory
}

func NewHandler(logger *xlogger.Logger, registry *bundle.Registry, history domrepo.PriceHistory) *Handler {
	return &Handler{logger: logger, registry: registry, history: history}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Ready)
	g := e.Group("/ops")
	g.GET("/models", h.Models)
	g.GET("/commodities", h.Commodities)
	g.GET("/logs", h.Logs)
}

func (h *Handler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Ready fails while storage is unreachable so the orchestrator keeps
// traffic away until the overseer can actually evaluate.
func (h *Handler) Ready(c echo.Context) error {
	if h.history != nil {
		if err := h.history.Health(c.Request().Context()); err != nil {
			h.logger.Warn("readiness: storage unreachable", xlogger.Error(err))
			return xhttp.ServiceUnavailableResponse(c, map[string]string{"storage": err.Error()})
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ready"})
}

// Models lists loaded bundles. An optional at parameter backdates the
// lag-freshness cutoff when replaying old snapshots.
func (h *Handler) Models(c echo.Context) error {
	at := xhttp.ParseTimeDefault(c.QueryParam("at"), time.Now())
	return xhttp.SuccessResponse(c, h.registry.Info(at))
}

func (h *Handler) Commodities(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.registry.Commodities())
}

// Logs serves the aggregated recent error entries for quick triage
// without log-store access.
func (h *Handler) Logs(c echo.Context) error {
	entries := h.logger.RecentErrors()
	if limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return xhttp.SuccessResponse(c, entries)
}
