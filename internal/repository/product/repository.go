package product

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/compralink/procura/internal/database"
	"github.com/compralink/procura/internal/entity"
)

var repoTracer = otel.Tracer("github.com/compralink/procura/repository/product")

// ErrNotFound is returned when a product is missing from the catalog.
var ErrNotFound = errors.New("product not found")

// Repository provides read access to the product catalog.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a repository backed by the read connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// GetByCode fetches a catalog entry by product code.
func (r *Repository) GetByCode(ctx context.Context, codProduto int64) (*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.GetByCode", trace.WithAttributes(attribute.Int64("product.cod", codProduto)))
	defer span.End()

	product := new(entity.Product)
	err := r.reader.NewSelect().Model(product).
		Where("cod_produto = ?", codProduto).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return product, nil
}
