package report

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"

	"github.com/compralink/procura/internal/dto"
	sectorrepo "github.com/compralink/procura/internal/repository/sector"
	"github.com/compralink/procura/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/compralink/procura/service/report")

type spendStore interface {
	SpendBySector(ctx context.Context) ([]sectorrepo.SpendRow, error)
}

// Service is the read-only financial rollup derived from the order tables.
type Service struct {
	sectors spendStore
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Sectors *sectorrepo.Repository
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{sectors: p.Sectors}
}

// SpendBySector returns approved spend against the limit for every sector.
func (s *Service) SpendBySector(ctx context.Context) ([]dto.SectorSpendResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "ReportService.SpendBySector")
	defer span.End()

	rows, err := s.sectors.SpendBySector(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to aggregate sector spend", errorbank.WithCause(err))
	}

	out := make([]dto.SectorSpendResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.SectorSpendResponse{
			CodSetor:   row.CodSetor,
			Nome:       row.Nome,
			Limite:     row.Limite,
			Gasto:      row.Gasto,
			Disponivel: row.Limite - row.Gasto,
		})
	}
	return out, nil
}
