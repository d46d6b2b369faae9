package advice

import (
	"errors"

	"github.com/labstack/echo/v4"

	"MandiCast/internal/domain/models"
	"MandiCast/internal/services/bundle"
	"MandiCast/internal/usecase"
	xhttp "MandiCast/pkg/http"
	xlogger "MandiCast/pkg/logger"
)

// Handler serves the farmer-facing advice endpoint. Requests bind from
// query parameters so the endpoint stays reachable from SMS gateways
// that can only issue GETs.
type Handler struct {
	logger  *xlogger.Logger
	advisor *usecase.Advisor
}

func NewHandler(logger *xlogger.Logger, advisor *usecase.Advisor) *Handler {
	return &Handler{logger: logger, advisor: advisor}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/advice", h.Advice)
}

func (h *Handler) Advice(c echo.Context) error {
	req := &models.AdviceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.advisor.Advise(c.Request().Context(), req.Commodity, req.Market,
		req.QuantityQtl, req.HorizonDays, req.StorageDays)
	if err != nil {
		if errors.Is(err, bundle.ErrNotFound) {
			return xhttp.AppErrorResponse(c,
				xhttp.NotFoundErrorf("no model for commodity %q", req.Commodity).WithError(err))
		}
		h.logger.Error("advice usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c,
			xhttp.InternalError("advice pipeline failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
