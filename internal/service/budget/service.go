package budget

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

	"github.com/compralink/procura/internal/cache"
	"github.com/compralink/procura/internal/config"
	"github.com/compralink/procura/internal/dto"
	"github.com/compralink/procura/internal/entity"
	sectorrepo "github.com/compralink/procura/internal/repository/sector"
	"github.com/compralink/procura/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/compralink/procura/service/budget")

// sectorStore is the slice of the sector repository the evaluator needs.
type sectorStore interface {
	GetByCode(ctx context.Context, codSetor string) (*entity.Sector, error)
	ApprovedSpend(ctx context.Context, codSetor string) (float64, error)
	SetLimitWithAudit(ctx context.Context, codSetor string, novoLimite float64, actorUserID int64) (*entity.SectorLimitChange, error)
}

// Service computes sector budget positions and applies audited limit
// changes. Budget is advisory context for approvers: a negative available
// balance is reported, never enforced as a gate on submission or approval.
type Service struct {
	sectors  sectorStore
	cache    cache.Store
	cacheTTL time.Duration
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Sectors *sectorrepo.Repository
	Cache   cache.Store
	Config  config.Config
	Logger  *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return newService(p.Sectors, p.Cache, p.Config.Cache.BalanceTTL, p.Logger)
}

func newService(sectors sectorStore, store cache.Store, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		sectors:  sectors,
		cache:    store,
		cacheTTL: ttl,
		logger:   logger,
	}
}

// BalanceCacheKey names the cached balance of one sector. The worker uses
// the same key to invalidate on approvals.
func BalanceCacheKey(codSetor string) string {
	return fmt.Sprintf("setores:saldo:%s", codSetor)
}

// GetBalance returns the sector's limit, the spend consumed by Approved
// orders, and what remains. Available may be negative. The result is cached
// briefly; the TTL bounds how stale an advisory number can get when the
// invalidation events are not flowing.
func (s *Service) GetBalance(ctx context.Context, codSetor string) (*dto.SectorBalanceResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "BudgetService.GetBalance", trace.WithAttributes(attribute.String("sector.cod", codSetor)))
	defer span.End()

	if cached, err := s.fromCache(ctx, codSetor); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("balance cache read failed", zap.String("setor", codSetor), zap.Error(err))
	}

	sector, err := s.sectors.GetByCode(ctx, codSetor)
	if errors.Is(err, sectorrepo.ErrNotFound) {
		return nil, errorbank.NotFound("setor nao encontrado")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load sector", errorbank.WithCause(err))
	}

	spent, err := s.sectors.ApprovedSpend(ctx, codSetor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to compute sector spend", errorbank.WithCause(err))
	}

	balance := &dto.SectorBalanceResponse{
		Limite:     sector.Limite,
		Gasto:      spent,
		Disponivel: sector.Limite - spent,
	}

	if err := s.toCache(ctx, codSetor, balance); err != nil {
		s.logger.Warn("balance cache write failed", zap.String("setor", codSetor), zap.Error(err))
	}
	return balance, nil
}

// SetLimit writes the new limit and its audit record atomically, then drops
// the cached balance.
func (s *Service) SetLimit(ctx context.Context, codSetor string, novoLimite float64, actorUserID int64) error {
	ctx, span := serviceTracer.Start(ctx, "BudgetService.SetLimit", trace.WithAttributes(
		attribute.String("sector.cod", codSetor),
		attribute.Float64("sector.limite.novo", novoLimite),
	))
	defer span.End()

	if novoLimite < 0 {
		return errorbank.BadRequest("limite nao pode ser negativo")
	}

	change, err := s.sectors.SetLimitWithAudit(ctx, codSetor, novoLimite, actorUserID)
	if errors.Is(err, sectorrepo.ErrNotFound) {
		return errorbank.NotFound("setor nao encontrado")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to change sector limit", errorbank.WithCause(err))
	}

	if err := s.cache.Delete(ctx, BalanceCacheKey(codSetor)); err != nil {
		s.logger.Warn("balance cache invalidation failed", zap.String("setor", codSetor), zap.Error(err))
	}

	s.logger.Info("sector limit changed",
		zap.String("setor", codSetor),
		zap.Float64("anterior", change.LimiteAnterior),
		zap.Float64("novo", change.LimiteNovo),
		zap.Int64("alteradoPor", actorUserID),
	)
	return nil
}

func (s *Service) fromCache(ctx context.Context, codSetor string) (*dto.SectorBalanceResponse, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, BalanceCacheKey(codSetor))
	if err != nil {
		return nil, err
	}
	var balance dto.SectorBalanceResponse
	if err := json.Unmarshal(bytes, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

func (s *Service) toCache(ctx context.Context, codSetor string, balance *dto.SectorBalanceResponse) error {
	if s.cache == nil {
		return nil
	}
	bytes, err := json.Marshal(balance)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, BalanceCacheKey(codSetor), bytes, s.cacheTTL)
}
