package cart

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/compralink/procura/internal/presentation/http/response"
	service "github.com/compralink/procura/internal/service/cart"
	"github.com/compralink/procura/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/compralink/procura/transport/http/cart")

// Handler exposes cart endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a cart Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/carrinho/:userId")
	g.GET("", h.list)
	g.POST("/items", h.addItem)
	g.PUT("/items/:codprod", h.setQuantity)
	g.DELETE("/items/:codprod", h.removeItem)
	g.POST("/submit", h.submit)
}

func userID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("userId"), 10, 64)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	uid, err := userID(c)
	if err != nil {
		return b.WithError(errorbank.BadRequest("usuario invalido", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "carrinho.list", trace.WithAttributes(attribute.Int64("user.id", uid)))
	defer span.End()

	items, err := h.svc.ListItems(ctx, uid)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(items).Build()
}

func (h *Handler) addItem(c echo.Context) error {
	b := response.New(c)

	uid, err := userID(c)
	if err != nil {
		return b.WithError(errorbank.BadRequest("usuario invalido", errorbank.WithCause(err))).Build()
	}

	var payload struct {
		CodProd int64   `json:"codprod"`
		Qt      float64 `json:"qt"`
		PVenda  float64 `json:"pvenda"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("payload invalido", errorbank.WithCause(err))).Build()
	}
	if payload.CodProd <= 0 {
		return b.WithError(errorbank.BadRequest("codprod e obrigatorio")).Build()
	}
	if payload.Qt <= 0 {
		return b.WithError(errorbank.BadRequest("quantidade deve ser maior que zero")).Build()
	}
	if payload.PVenda < 0 {
		return b.WithError(errorbank.BadRequest("preco nao pode ser negativo")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "carrinho.addItem", trace.WithAttributes(
		attribute.Int64("user.id", uid),
		attribute.Int64("product.cod", payload.CodProd),
	))
	defer span.End()

	if err := h.svc.AddItem(ctx, uid, payload.CodProd, payload.Qt, payload.PVenda); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).Build()
}

func (h *Handler) setQuantity(c echo.Context) error {
	b := response.New(c)

	uid, err := userID(c)
	if err != nil {
		return b.WithError(errorbank.BadRequest("usuario invalido", errorbank.WithCause(err))).Build()
	}
	codProd, err := strconv.ParseInt(c.Param("codprod"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("codprod invalido", errorbank.WithCause(err))).Build()
	}

	var payload struct {
		Qt float64 `json:"qt"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("payload invalido", errorbank.WithCause(err))).Build()
	}
	// Zero is rejected here, not in the core: removal is its own endpoint.
	if payload.Qt <= 0 {
		return b.WithError(errorbank.BadRequest("quantidade deve ser maior que zero")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "carrinho.setQuantity", trace.WithAttributes(
		attribute.Int64("user.id", uid),
		attribute.Int64("product.cod", codProd),
	))
	defer span.End()

	if err := h.svc.SetQuantity(ctx, uid, codProd, payload.Qt); err != nil {
		return b.WithError(err).Build()
	}

	return b.Build()
}

func (h *Handler) removeItem(c echo.Context) error {
	b := response.New(c)

	uid, err := userID(c)
	if err != nil {
		return b.WithError(errorbank.BadRequest("usuario invalido", errorbank.WithCause(err))).Build()
	}
	codProd, err := strconv.ParseInt(c.Param("codprod"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("codprod invalido", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "carrinho.removeItem", trace.WithAttributes(
		attribute.Int64("user.id", uid),
		attribute.Int64("product.cod", codProd),
	))
	defer span.End()

	if err := h.svc.RemoveItem(ctx, uid, codProd); err != nil {
		return b.WithError(err).Build()
	}

	return b.Build()
}

func (h *Handler) submit(c echo.Context) error {
	b := response.New(c)

	uid, err := userID(c)
	if err != nil {
		return b.WithError(errorbank.BadRequest("usuario invalido", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "carrinho.submit", trace.WithAttributes(attribute.Int64("user.id", uid)))
	defer span.End()

	message, err := h.svc.Submit(ctx, uid)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithMessage(message).Build()
}
