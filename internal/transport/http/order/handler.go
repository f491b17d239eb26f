package order

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/compralink/procura/internal/entity"
	"github.com/compralink/procura/internal/presentation/http/response"
	service "github.com/compralink/procura/internal/service/order"
	"github.com/compralink/procura/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/compralink/procura/transport/http/order")

// Handler exposes order lifecycle endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.PUT("/pedido/:id/status", h.updateStatus)
	e.GET("/pedido/:id", h.getDetail)
	e.GET("/pedidos", h.listByStatus)
}

func (h *Handler) updateStatus(c echo.Context) error {
	b := response.New(c)

	numero, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("numero de pedido invalido", errorbank.WithCause(err))).Build()
	}

	var payload struct {
		NewStatus       int  `json:"newStatus"`
		ConditionStatus *int `json:"conditionStatus"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("payload invalido", errorbank.WithCause(err))).Build()
	}

	newStatus, err := entity.ParseStatus(payload.NewStatus)
	if err != nil {
		return b.WithError(errorbank.BadRequest("status invalido", errorbank.WithCause(err))).Build()
	}

	var expected *entity.Status
	if payload.ConditionStatus != nil {
		cond, err := entity.ParseStatus(*payload.ConditionStatus)
		if err != nil {
			return b.WithError(errorbank.BadRequest("status de condicao invalido", errorbank.WithCause(err))).Build()
		}
		if cond.Terminal() {
			return b.WithError(errorbank.BadRequest("pedido ja finalizado nao pode mudar de status")).Build()
		}
		expected = &cond
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "pedido.updateStatus", trace.WithAttributes(
		attribute.Int64("order.numero", numero),
		attribute.Int("order.status.new", payload.NewStatus),
	))
	defer span.End()

	if err := h.svc.Transition(ctx, numero, newStatus, expected); err != nil {
		return b.WithError(err).Build()
	}

	return b.Build()
}

func (h *Handler) getDetail(c echo.Context) error {
	b := response.New(c)

	numero, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("numero de pedido invalido", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "pedido.getDetail", trace.WithAttributes(attribute.Int64("order.numero", numero)))
	defer span.End()

	detail, err := h.svc.GetDetail(ctx, numero)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(detail).Build()
}

func (h *Handler) listByStatus(c echo.Context) error {
	b := response.New(c)

	raw := c.QueryParam("status")
	statusInt := int(entity.StatusPendingApproval)
	if raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return b.WithError(errorbank.BadRequest("status invalido", errorbank.WithCause(err))).Build()
		}
		statusInt = v
	}
	status, err := entity.ParseStatus(statusInt)
	if err != nil {
		return b.WithError(errorbank.BadRequest("status invalido", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "pedido.listByStatus", trace.WithAttributes(attribute.Int("order.status", statusInt)))
	defer span.End()

	orders, err := h.svc.ListByStatus(ctx, status)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(orders).Build()
}
