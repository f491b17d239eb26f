package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/compralink/procura/internal/config"
	"github.com/compralink/procura/internal/dto"
	"github.com/compralink/procura/internal/entity"
	"github.com/compralink/procura/internal/messaging"
	repo "github.com/compralink/procura/internal/repository/order"
	sectorrepo "github.com/compralink/procura/internal/repository/sector"
	userrepo "github.com/compralink/procura/internal/repository/user"
	"github.com/compralink/procura/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/compralink/procura/service/order")

// orderStore is the slice of the order repository the state machine needs.
type orderStore interface {
	GetByNumber(ctx context.Context, numero int64) (*entity.Order, error)
	GetStatus(ctx context.Context, numero int64) (entity.Status, error)
	UpdateStatus(ctx context.Context, numero int64, newStatus entity.Status, expected *entity.Status) (bool, error)
	ListItems(ctx context.Context, numero int64) ([]repo.CartLine, error)
	ListByStatus(ctx context.Context, status entity.Status) ([]repo.OrderSummary, error)
}

type userStore interface {
	GetByID(ctx context.Context, userID int64) (*entity.User, error)
}

type sectorStore interface {
	GetByCode(ctx context.Context, codSetor string) (*entity.Sector, error)
}

// Service is the order status state machine plus the read surfaces built on
// top of the same rows.
type Service struct {
	orders    orderStore
	users     userStore
	sectors   sectorStore
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders  *repo.Repository
	Users   *userrepo.Repository
	Sectors *sectorrepo.Repository
	Config  config.Config
	Logger  *zap.Logger

	Publisher messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return newService(p.Orders, p.Users, p.Sectors, p.Logger, p.Publisher, messagingConfig{
		enabled: p.Config.Messaging.Enabled,
		topic:   p.Config.Messaging.Kafka.Topic,
	})
}

func newService(orders orderStore, users userStore, sectors sectorStore, logger *zap.Logger, publisher messaging.Client, mc messagingConfig) *Service {
	return &Service{
		orders:    orders,
		users:     users,
		sectors:   sectors,
		logger:    logger,
		publisher: publisher,
		messaging: mc,
	}
}

// Transition validates and applies a status change.
//
// With expected set, the write is a single conditional statement; zero
// affected rows means another caller got there first, and the error carries
// the freshly re-read status. This conditional write is the only concurrency
// control in the system: of two approvers racing out of InAnalysis, only the
// one whose precondition still matches the stored row succeeds.
//
// With expected nil the write is unconditional. That path is reserved for
// the cart submit, where the caller owns its own Draft header exclusively.
func (s *Service) Transition(ctx context.Context, numero int64, newStatus entity.Status, expected *entity.Status) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Transition", trace.WithAttributes(
		attribute.Int64("order.numero", numero),
		attribute.Int("order.status.new", int(newStatus)),
	))
	defer span.End()

	if expected != nil && !transitionAllowed(*expected, newStatus) {
		return errorbank.BadRequest(
			fmt.Sprintf("transicao de status invalida: %s -> %s", *expected, newStatus))
	}

	applied, err := s.orders.UpdateStatus(ctx, numero, newStatus, expected)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to update order status", errorbank.WithCause(err))
	}

	if !applied {
		actual, err := s.orders.GetStatus(ctx, numero)
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("pedido nao encontrado")
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return errorbank.Internal("failed to load order status", errorbank.WithCause(err))
		}
		// The row exists but the precondition no longer matched.
		span.SetAttributes(attribute.Int("order.status.actual", int(actual)))
		return errorbank.StaleStatus(int(actual))
	}

	s.logger.Info("order status changed",
		zap.Int64("numero", numero),
		zap.Stringer("para", newStatus),
	)
	s.publishStatusChanged(ctx, numero, newStatus, expected)
	return nil
}

// GetStatus returns the stored status of an order.
func (s *Service) GetStatus(ctx context.Context, numero int64) (entity.Status, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.GetStatus", trace.WithAttributes(attribute.Int64("order.numero", numero)))
	defer span.End()

	status, err := s.orders.GetStatus(ctx, numero)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, errorbank.NotFound("pedido nao encontrado")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return 0, errorbank.Internal("failed to load order status", errorbank.WithCause(err))
	}
	return status, nil
}

// GetDetail assembles the order header with requester, sector and lines for
// the approval screen.
func (s *Service) GetDetail(ctx context.Context, numero int64) (*dto.OrderDetailResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.GetDetail", trace.WithAttributes(attribute.Int64("order.numero", numero)))
	defer span.End()

	header, err := s.orders.GetByNumber(ctx, numero)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errorbank.NotFound("pedido nao encontrado")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	requester, err := s.users.GetByID(ctx, header.CodUsuario)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load requester", errorbank.WithCause(err))
	}

	detail := &dto.OrderDetailResponse{
		Numero:    header.Numero,
		Status:    int(header.Status),
		CreatedAt: header.CreatedAt,
		UpdatedAt: header.UpdatedAt,
		Solicitante: dto.RequesterResponse{
			CodUsuario: requester.CodUsuario,
			Nome:       requester.Nome,
			Email:      requester.Email,
		},
	}

	if requester.CodSetor != nil {
		sector, err := s.sectors.GetByCode(ctx, *requester.CodSetor)
		if err != nil && !errors.Is(err, sectorrepo.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return nil, errorbank.Internal("failed to load sector", errorbank.WithCause(err))
		}
		if sector != nil {
			detail.Setor = &dto.SectorResponse{CodSetor: sector.CodSetor, Nome: sector.Nome}
		}
	}

	lines, err := s.orders.ListItems(ctx, numero)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order items", errorbank.WithCause(err))
	}

	detail.Itens = make([]dto.OrderItemResponse, 0, len(lines))
	for _, line := range lines {
		detail.Itens = append(detail.Itens, dto.OrderItemResponse{
			CodProduto: line.CodProduto,
			Nome:       line.Nome,
			Quantidade: line.Quantidade,
			PrecoVenda: line.PrecoVenda,
		})
		detail.Total += line.Quantidade * line.PrecoVenda
	}

	return detail, nil
}

// ListByStatus returns the approver queue for one status, ordered by last
// modification.
func (s *Service) ListByStatus(ctx context.Context, status entity.Status) ([]dto.OrderSummaryResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListByStatus", trace.WithAttributes(attribute.Int("order.status", int(status))))
	defer span.End()

	rows, err := s.orders.ListByStatus(ctx, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}

	out := make([]dto.OrderSummaryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.OrderSummaryResponse{
			Numero:      row.Numero,
			Status:      int(row.Status),
			CodUsuario:  row.CodUsuario,
			Solicitante: row.Nome,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return out, nil
}

func (s *Service) publishStatusChanged(ctx context.Context, numero int64, newStatus entity.Status, expected *entity.Status) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := StatusChangedEvent{
		Numero: numero,
		Para:   int(newStatus),
		Em:     time.Now().UTC(),
	}
	if expected != nil {
		de := int(*expected)
		event.De = &de
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal status changed", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("pedido-%d", numero)), payload); err != nil {
		s.logger.Error("publish status changed", zap.Error(err))
	}
}

// StatusChangedEvent is emitted on every successful status transition. De is
// absent for unconditional writes, where the prior status was not asserted.
type StatusChangedEvent struct {
	Numero int64     `json:"numero"`
	De     *int      `json:"de,omitempty"`
	Para   int       `json:"para"`
	Em     time.Time `json:"em"`
}
