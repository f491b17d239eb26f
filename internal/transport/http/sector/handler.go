package sector

import (
	"github.com/labstack/echo/v4"

	"github.com/compralink/procura/internal/presentation/http/response"
	service "github.com/compralink/procura/internal/service/budget"
	"github.com/compralink/procura/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/compralink/procura/transport/http/sector")

// Handler exposes sector budget endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a sector Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/setores/:codsetor")
	g.PUT("/limite", h.setLimit)
	g.GET("/saldo", h.getBalance)
}

func (h *Handler) setLimit(c echo.Context) error {
	b := response.New(c)

	codSetor := c.Param("codsetor")
	if codSetor == "" {
		return b.WithError(errorbank.BadRequest("codigo de setor e obrigatorio")).Build()
	}

	var payload struct {
		Saldo                 float64 `json:"saldo"`
		AlteradoPorCodUsuario int64   `json:"alteradoPorCodUsuario"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("payload invalido", errorbank.WithCause(err))).Build()
	}
	if payload.AlteradoPorCodUsuario <= 0 {
		return b.WithError(errorbank.BadRequest("alteradoPorCodUsuario e obrigatorio")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "setores.setLimit", trace.WithAttributes(
		attribute.String("sector.cod", codSetor),
		attribute.Float64("sector.limite.novo", payload.Saldo),
	))
	defer span.End()

	if err := h.svc.SetLimit(ctx, codSetor, payload.Saldo, payload.AlteradoPorCodUsuario); err != nil {
		return b.WithError(err).Build()
	}

	return b.Build()
}

func (h *Handler) getBalance(c echo.Context) error {
	b := response.New(c)

	codSetor := c.Param("codsetor")
	if codSetor == "" {
		return b.WithError(errorbank.BadRequest("codigo de setor e obrigatorio")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "setores.getBalance", trace.WithAttributes(attribute.String("sector.cod", codSetor)))
	defer span.End()

	balance, err := h.svc.GetBalance(ctx, codSetor)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(balance).Build()
}
