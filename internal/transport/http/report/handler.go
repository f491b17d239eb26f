package report

import (
	"github.com/labstack/echo/v4"

	"github.com/compralink/procura/internal/presentation/http/response"
	service "github.com/compralink/procura/internal/service/report"
	"go.opentelemetry.io/otel"
)

var httpTracer = otel.Tracer("github.com/compralink/procura/transport/http/report")

// Handler exposes financial report endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a report Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/relatorio/setores", h.spendBySector)
}

func (h *Handler) spendBySector(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "relatorio.spendBySector")
	defer span.End()

	rows, err := h.svc.SpendBySector(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(rows).Build()
}
