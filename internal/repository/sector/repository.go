package sector

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/compralink/procura/internal/config"
	"github.com/compralink/procura/internal/database"
	"github.com/compralink/procura/internal/entity"
)

var repoTracer = otel.Tracer("github.com/compralink/procura/repository/sector")

// ErrNotFound is returned when a sector is missing.
var ErrNotFound = errors.New("sector not found")

// Repository encapsulates read/write access for sectors, their spend
// aggregates and the limit-change audit trail.
type Repository struct {
	conns  *database.Connections
	writer *bun.DB
	reader *bun.DB
	tenant string
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections, cfg config.Config) *Repository {
	return &Repository{
		conns:  conns,
		writer: conns.Writer,
		reader: conns.Reader,
		tenant: cfg.Tenant.ClientID,
	}
}

// GetByCode fetches a sector by its code.
func (r *Repository) GetByCode(ctx context.Context, codSetor string) (*entity.Sector, error) {
	ctx, span := repoTracer.Start(ctx, "SectorRepository.GetByCode", trace.WithAttributes(attribute.String("sector.cod", codSetor)))
	defer span.End()

	sector := new(entity.Sector)
	err := r.reader.NewSelect().Model(sector).
		Where("cod_setor = ?", codSetor).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return sector, nil
}

// SetLimitWithAudit updates the sector's limit and appends the audit record
// in one transaction. A limit change without its audit record, or the
// reverse, must never be observable.
func (r *Repository) SetLimitWithAudit(ctx context.Context, codSetor string, novoLimite float64, actorUserID int64) (*entity.SectorLimitChange, error) {
	ctx, span := repoTracer.Start(ctx, "SectorRepository.SetLimitWithAudit", trace.WithAttributes(
		attribute.String("sector.cod", codSetor),
		attribute.Float64("sector.limite.novo", novoLimite),
	))
	defer span.End()

	change := &entity.SectorLimitChange{
		CodSetor:   codSetor,
		LimiteNovo: novoLimite,
		CodUsuario: actorUserID,
		CreatedAt:  time.Now().UTC(),
	}

	err := r.conns.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		sector := new(entity.Sector)
		err := tx.NewSelect().Model(sector).
			Where("cod_setor = ?", codSetor).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		change.LimiteAnterior = sector.Limite

		if _, err := tx.NewUpdate().
			Model((*entity.Sector)(nil)).
			Set("limite = ?", novoLimite).
			Where("cod_setor = ?", codSetor).
			Exec(ctx); err != nil {
			return err
		}

		_, err = tx.NewInsert().Model(change).Exec(ctx)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "limit change failed")
		}
		return nil, err
	}
	return change, nil
}

// ApprovedSpend sums quantidade * preco_venda over all lines of Approved
// orders placed by users of the sector. Orders in any other status do not
// count.
func (r *Repository) ApprovedSpend(ctx context.Context, codSetor string) (float64, error) {
	ctx, span := repoTracer.Start(ctx, "SectorRepository.ApprovedSpend", trace.WithAttributes(attribute.String("sector.cod", codSetor)))
	defer span.End()

	var spent sql.NullFloat64
	err := r.reader.NewSelect().
		ColumnExpr("SUM(i.quantidade * i.preco_venda)").
		TableExpr("order_items AS i").
		Join("JOIN orders AS o ON o.numero = i.numero").
		Join("JOIN users AS u ON u.cod_usuario = o.cod_usuario").
		Where("o.tenant = ?", r.tenant).
		Where("o.status = ?", entity.StatusApproved).
		Where("u.cod_setor = ?", codSetor).
		Scan(ctx, &spent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate failed")
		return 0, err
	}
	if !spent.Valid {
		return 0, nil
	}
	return spent.Float64, nil
}

// SpendRow is the per-sector rollup used by the financial report.
type SpendRow struct {
	CodSetor string  `bun:"cod_setor"`
	Nome     string  `bun:"nome"`
	Limite   float64 `bun:"limite"`
	Gasto    float64 `bun:"gasto"`
}

// SpendBySector rolls up approved spend against the limit for every sector,
// highest spend first. Sectors without approved orders report zero.
func (r *Repository) SpendBySector(ctx context.Context) ([]SpendRow, error) {
	ctx, span := repoTracer.Start(ctx, "SectorRepository.SpendBySector")
	defer span.End()

	rows := make([]SpendRow, 0)
	err := r.reader.NewSelect().
		Model((*entity.Sector)(nil)).
		ColumnExpr("sector.cod_setor, sector.nome, sector.limite").
		ColumnExpr("COALESCE(g.gasto, 0) AS gasto").
		Join(`LEFT JOIN (
			SELECT u.cod_setor, SUM(i.quantidade * i.preco_venda) AS gasto
			FROM order_items AS i
			JOIN orders AS o ON o.numero = i.numero
			JOIN users AS u ON u.cod_usuario = o.cod_usuario
			WHERE o.tenant = ? AND o.status = ?
			GROUP BY u.cod_setor
		) AS g ON g.cod_setor = sector.cod_setor`, r.tenant, entity.StatusApproved).
		Order("gasto DESC").
		Scan(ctx, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate failed")
		return nil, err
	}
	return rows, nil
}
