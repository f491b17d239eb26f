package order

import (
	"context"
	"encoding/json"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/compralink/procura/internal/cache"
	"github.com/compralink/procura/internal/config"
	"github.com/compralink/procura/internal/entity"
	"github.com/compralink/procura/internal/messaging"
	orderrepo "github.com/compralink/procura/internal/repository/order"
	userrepo "github.com/compralink/procura/internal/repository/user"
	budgetsvc "github.com/compralink/procura/internal/service/budget"
	ordersvc "github.com/compralink/procura/internal/service/order"
	"github.com/compralink/procura/internal/worker"
)

var workerTracer = otel.Tracer("github.com/compralink/procura/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewStatusChangedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewStatusChangedHandler builds the handler for order status transitions.
// Besides logging the transition, an approval drops the cached balance of
// the requester's sector so the next advisory read recomputes spend.
func NewStatusChangedHandler(
	logger *zap.Logger,
	cfg config.Config,
	store cache.Store,
	orders *orderrepo.Repository,
	users *userrepo.Repository,
) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.pedidos.statusChanged", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.StatusChangedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode status changed", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		logger.Info("order status change processed",
			zap.Int64("numero", event.Numero),
			zap.Int("para", event.Para),
			zap.Time("em", event.Em),
		)

		if entity.Status(event.Para) != entity.StatusApproved {
			return nil
		}

		header, err := orders.GetByNumber(ctx, event.Numero)
		if err != nil {
			if errors.Is(err, orderrepo.ErrNotFound) {
				logger.Warn("approved order vanished", zap.Int64("numero", event.Numero))
				return nil
			}
			span.RecordError(err)
			return err
		}

		requester, err := users.GetByID(ctx, header.CodUsuario)
		if err != nil {
			if errors.Is(err, userrepo.ErrNotFound) {
				return nil
			}
			span.RecordError(err)
			return err
		}
		if requester.CodSetor == nil {
			return nil
		}

		key := budgetsvc.BalanceCacheKey(*requester.CodSetor)
		if err := store.Delete(ctx, key); err != nil {
			logger.Warn("balance cache invalidation failed",
				zap.String("setor", *requester.CodSetor), zap.Error(err))
		}
		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
