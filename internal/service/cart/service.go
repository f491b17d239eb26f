package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/compralink/procura/internal/dto"
	"github.com/compralink/procura/internal/entity"
	orderrepo "github.com/compralink/procura/internal/repository/order"
	productrepo "github.com/compralink/procura/internal/repository/product"
	ordersvc "github.com/compralink/procura/internal/service/order"
	"github.com/compralink/procura/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/compralink/procura/service/cart")

// cartStore is the slice of the order repository the cart needs.
type cartStore interface {
	FindDraftByUser(ctx context.Context, userID int64) (*entity.Order, error)
	NextNumber(ctx context.Context) (int64, error)
	CreateHeader(ctx context.Context, order *entity.Order) error
	GetItem(ctx context.Context, numero, codProduto int64) (*entity.OrderItem, error)
	InsertItem(ctx context.Context, item *entity.OrderItem) error
	UpdateItemQuantity(ctx context.Context, numero, codProduto int64, quantidade float64) error
	DeleteItem(ctx context.Context, numero, codProduto int64) error
	CountItems(ctx context.Context, numero int64) (int, error)
	ListItems(ctx context.Context, numero int64) ([]orderrepo.CartLine, error)
}

type catalog interface {
	GetByCode(ctx context.Context, codProduto int64) (*entity.Product, error)
}

// transitioner is the submit path into the status state machine.
type transitioner interface {
	Transition(ctx context.Context, numero int64, newStatus entity.Status, expected *entity.Status) error
}

// Service owns the open cart of each user: the single Draft header, its
// lines, and the promotion to PendingApproval on submit. Every mutation is
// committed immediately; there is no staging.
type Service struct {
	orders   cartStore
	products catalog
	engine   transitioner
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders   *orderrepo.Repository
	Products *productrepo.Repository
	Engine   *ordersvc.Service
	Logger   *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return newService(p.Orders, p.Products, p.Engine, p.Logger)
}

func newService(orders cartStore, products catalog, engine transitioner, logger *zap.Logger) *Service {
	return &Service{
		orders:   orders,
		products: products,
		engine:   engine,
		logger:   logger,
	}
}

// ResolveOrCreateHeader returns the user's open order number, allocating a
// new Draft header when none exists. Numbers are handed out as max+1.
//
// The lookup and the insert are deliberately two separate statements with no
// surrounding transaction; two truly concurrent first-adds by the same user
// can race into two Draft headers. Sequential use is idempotent, which is
// the contract the portal relies on.
func (s *Service) ResolveOrCreateHeader(ctx context.Context, userID int64) (int64, error) {
	ctx, span := serviceTracer.Start(ctx, "CartService.ResolveOrCreateHeader", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	draft, err := s.orders.FindDraftByUser(ctx, userID)
	if err == nil {
		return draft.Numero, nil
	}
	if !errors.Is(err, orderrepo.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return 0, errorbank.Internal("failed to resolve cart", errorbank.WithCause(err))
	}

	numero, err := s.orders.NextNumber(ctx)
	if errors.Is(err, orderrepo.ErrAllocation) {
		span.SetStatus(codes.Error, "allocation failed")
		return 0, errorbank.Internal("falha ao alocar numero de pedido", errorbank.WithCause(err))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return 0, errorbank.Internal("failed to allocate order number", errorbank.WithCause(err))
	}

	now := time.Now().UTC()
	header := &entity.Order{
		Numero:     numero,
		CodUsuario: userID,
		Status:     entity.StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.orders.CreateHeader(ctx, header); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return 0, errorbank.Internal("failed to create cart header", errorbank.WithCause(err))
	}

	s.logger.Info("cart header created", zap.Int64("numero", numero), zap.Int64("usuario", userID))
	return numero, nil
}

// AddItem puts qt units of a product into the user's cart with the given
// unit-price snapshot. Repeated adds of the same product accumulate; they
// never overwrite the stored quantity.
func (s *Service) AddItem(ctx context.Context, userID, codProduto int64, qt, pvenda float64) error {
	ctx, span := serviceTracer.Start(ctx, "CartService.AddItem", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("product.cod", codProduto),
	))
	defer span.End()

	if _, err := s.products.GetByCode(ctx, codProduto); err != nil {
		if errors.Is(err, productrepo.ErrNotFound) {
			return errorbank.NotFound("produto nao encontrado")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to load product", errorbank.WithCause(err))
	}

	numero, err := s.ResolveOrCreateHeader(ctx, userID)
	if err != nil {
		return err
	}

	existing, err := s.orders.GetItem(ctx, numero, codProduto)
	switch {
	case err == nil:
		if err := s.orders.UpdateItemQuantity(ctx, numero, codProduto, existing.Quantidade+qt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return errorbank.Internal("failed to merge cart item", errorbank.WithCause(err))
		}
	case errors.Is(err, orderrepo.ErrNotFound):
		item := &entity.OrderItem{
			Numero:     numero,
			CodProduto: codProduto,
			Quantidade: qt,
			PrecoVenda: pvenda,
		}
		if err := s.orders.InsertItem(ctx, item); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return errorbank.Internal("failed to add cart item", errorbank.WithCause(err))
		}
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to load cart item", errorbank.WithCause(err))
	}

	return nil
}

// SetQuantity overwrites the stored quantity of a line in the user's open
// cart. Range checks live at the boundary; the core applies whatever arrives.
func (s *Service) SetQuantity(ctx context.Context, userID, codProduto int64, qt float64) error {
	ctx, span := serviceTracer.Start(ctx, "CartService.SetQuantity", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("product.cod", codProduto),
	))
	defer span.End()

	draft, err := s.orders.FindDraftByUser(ctx, userID)
	if errors.Is(err, orderrepo.ErrNotFound) {
		return errorbank.NotFound("carrinho nao encontrado")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to resolve cart", errorbank.WithCause(err))
	}

	if err := s.orders.UpdateItemQuantity(ctx, draft.Numero, codProduto, qt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to update cart item", errorbank.WithCause(err))
	}
	return nil
}

// RemoveItem deletes a line from the user's open cart. Removing a line that
// is not there, or having no open cart at all, is a no-op.
func (s *Service) RemoveItem(ctx context.Context, userID, codProduto int64) error {
	ctx, span := serviceTracer.Start(ctx, "CartService.RemoveItem", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("product.cod", codProduto),
	))
	defer span.End()

	draft, err := s.orders.FindDraftByUser(ctx, userID)
	if errors.Is(err, orderrepo.ErrNotFound) {
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to resolve cart", errorbank.WithCause(err))
	}

	if err := s.orders.DeleteItem(ctx, draft.Numero, codProduto); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to remove cart item", errorbank.WithCause(err))
	}
	return nil
}

// ListItems returns the user's cart joined with product metadata. A user
// without an open cart gets an empty list, not an error.
func (s *Service) ListItems(ctx context.Context, userID int64) ([]dto.CartItemResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "CartService.ListItems", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	draft, err := s.orders.FindDraftByUser(ctx, userID)
	if errors.Is(err, orderrepo.ErrNotFound) {
		return []dto.CartItemResponse{}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to resolve cart", errorbank.WithCause(err))
	}

	lines, err := s.orders.ListItems(ctx, draft.Numero)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list cart items", errorbank.WithCause(err))
	}

	items := make([]dto.CartItemResponse, 0, len(lines))
	for _, line := range lines {
		items = append(items, dto.CartItemResponse{
			ID:         line.CodProduto,
			Nome:       line.Nome,
			Quantidade: line.Quantidade,
			Preco:      line.PrecoVenda,
			Unit:       line.Unidade,
			ImgURL:     line.ImgURL,
		})
	}
	return items, nil
}

// Submit promotes the user's Draft cart to PendingApproval through the
// unconditional write path of the state machine; the user owns the Draft
// header exclusively, so no precondition is asserted.
func (s *Service) Submit(ctx context.Context, userID int64) (string, error) {
	ctx, span := serviceTracer.Start(ctx, "CartService.Submit", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	draft, err := s.orders.FindDraftByUser(ctx, userID)
	if errors.Is(err, orderrepo.ErrNotFound) {
		return "", errorbank.Internal("nenhum carrinho aberto para este usuario")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return "", errorbank.Internal("failed to resolve cart", errorbank.WithCause(err))
	}

	count, err := s.orders.CountItems(ctx, draft.Numero)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return "", errorbank.Internal("failed to inspect cart", errorbank.WithCause(err))
	}
	if count == 0 {
		return "", errorbank.BadRequest("carrinho vazio nao pode ser enviado")
	}

	if err := s.engine.Transition(ctx, draft.Numero, entity.StatusPendingApproval, nil); err != nil {
		return "", err
	}

	s.logger.Info("cart submitted", zap.Int64("numero", draft.Numero), zap.Int64("usuario", userID))
	return fmt.Sprintf("pedido %d enviado para aprovacao", draft.Numero), nil
}
