package order

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

var repoTracer = otel.Tracer("github.com/compralink/procura/repository/order")

// ErrNotFound is returned when an order header or line is missing.
var ErrNotFound = errors.New("order not found")

// ErrAllocation is returned when the order-number query yields no usable
// row. This indicates a store-level inconsistency, not something a local
// retry can fix.
var ErrAllocation = errors.New("order number allocation failed")

// Repository encapsulates read/write access for order headers and lines.
// All queries are scoped to the configured tenant.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
	tenant string
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections, cfg config.Config) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
		tenant: cfg.Tenant.ClientID,
	}
}

// FindDraftByUser returns the user's open cart header, or ErrNotFound.
func (r *Repository) FindDraftByUser(ctx context.Context, userID int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.FindDraftByUser", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Where("tenant = ?", r.tenant).
		Where("cod_usuario = ?", userID).
		Where("status = ?", entity.StatusDraft).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// NextNumber allocates the next order number as max(numero)+1, starting at 1
// when no orders exist. The aggregate always produces one row; an empty
// result set means the table is in an unexpected state and maps to
// ErrAllocation.
func (r *Repository) NextNumber(ctx context.Context) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.NextNumber")
	defer span.End()

	var max sql.NullInt64
	err := r.writer.NewSelect().
		ColumnExpr("MAX(numero)").
		Model((*entity.Order)(nil)).
		Where("tenant = ?", r.tenant).
		Scan(ctx, &max)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "no aggregate row")
		return 0, ErrAllocation
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return 0, err
	}
	if !max.Valid {
		return 1, nil
	}
	return max.Int64 + 1, nil
}

// CreateHeader inserts a new order header.
func (r *Repository) CreateHeader(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CreateHeader", trace.WithAttributes(attribute.Int64("order.numero", order.Numero)))
	defer span.End()

	order.Tenant = r.tenant
	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByNumber fetches an order header by its number.
func (r *Repository) GetByNumber(ctx context.Context, numero int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByNumber", trace.WithAttributes(attribute.Int64("order.numero", numero)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Where("tenant = ?", r.tenant).
		Where("numero = ?", numero).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// GetStatus re-reads the stored status through the writer so that conflict
// payloads reflect the committed value, never a replica's stale view.
func (r *Repository) GetStatus(ctx context.Context, numero int64) (entity.Status, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetStatus", trace.WithAttributes(attribute.Int64("order.numero", numero)))
	defer span.End()

	var status entity.Status
	err := r.writer.NewSelect().
		Column("status").
		Model((*entity.Order)(nil)).
		Where("tenant = ?", r.tenant).
		Where("numero = ?", numero).
		Scan(ctx, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return 0, err
	}
	return status, nil
}

// UpdateStatus writes the new status and bumps updated_at. When expected is
// non-nil the write is conditional on the stored status still matching; the
// single-statement WHERE clause is what makes concurrent transitions safe.
// Returns whether a row was actually updated.
func (r *Repository) UpdateStatus(ctx context.Context, numero int64, newStatus entity.Status, expected *entity.Status) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.numero", numero),
		attribute.Int("order.status.new", int(newStatus)),
	))
	defer span.End()

	q := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("status = ?", newStatus).
		Set("updated_at = ?", time.Now().UTC()).
		Where("tenant = ?", r.tenant).
		Where("numero = ?", numero)
	if expected != nil {
		span.SetAttributes(attribute.Int("order.status.expected", int(*expected)))
		q = q.Where("status = ?", *expected)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return affected > 0, nil
}

// GetItem fetches a single cart line, or ErrNotFound.
func (r *Repository) GetItem(ctx context.Context, numero, codProduto int64) (*entity.OrderItem, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetItem", trace.WithAttributes(
		attribute.Int64("order.numero", numero),
		attribute.Int64("product.cod", codProduto),
	))
	defer span.End()

	item := new(entity.OrderItem)
	err := r.reader.NewSelect().Model(item).
		Where("numero = ?", numero).
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
	return item, nil
}

// InsertItem creates a new cart line.
func (r *Repository) InsertItem(ctx context.Context, item *entity.OrderItem) error {
	if item == nil {
		return errors.New("nil item")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.InsertItem", trace.WithAttributes(attribute.Int64("order.numero", item.Numero)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(item).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// UpdateItemQuantity overwrites the stored quantity of a cart line.
func (r *Repository) UpdateItemQuantity(ctx context.Context, numero, codProduto int64, quantidade float64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateItemQuantity", trace.WithAttributes(
		attribute.Int64("order.numero", numero),
		attribute.Int64("product.cod", codProduto),
	))
	defer span.End()

	_, err := r.writer.NewUpdate().
		Model((*entity.OrderItem)(nil)).
		Set("quantidade = ?", quantidade).
		Where("numero = ?", numero).
		Where("cod_produto = ?", codProduto).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// DeleteItem removes a cart line. Deleting an absent line is not an error.
func (r *Repository) DeleteItem(ctx context.Context, numero, codProduto int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.DeleteItem", trace.WithAttributes(
		attribute.Int64("order.numero", numero),
		attribute.Int64("product.cod", codProduto),
	))
	defer span.End()

	_, err := r.writer.NewDelete().
		Model((*entity.OrderItem)(nil)).
		Where("numero = ?", numero).
		Where("cod_produto = ?", codProduto).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}

// CountItems returns how many lines an order carries.
func (r *Repository) CountItems(ctx context.Context, numero int64) (int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CountItems", trace.WithAttributes(attribute.Int64("order.numero", numero)))
	defer span.End()

	count, err := r.reader.NewSelect().
		Model((*entity.OrderItem)(nil)).
		Where("numero = ?", numero).
		Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
		return 0, err
	}
	return count, nil
}

// CartLine is a cart line joined with the product metadata the portal
// renders. Rows come out of the store already typed; nothing downstream
// handles loose maps.
type CartLine struct {
	CodProduto int64   `bun:"cod_produto"`
	Nome       string  `bun:"nome"`
	Quantidade float64 `bun:"quantidade"`
	PrecoVenda float64 `bun:"preco_venda"`
	Unidade    string  `bun:"unidade"`
	ImgURL     string  `bun:"img_url"`
}

// ListItems returns all lines of an order joined with product metadata.
func (r *Repository) ListItems(ctx context.Context, numero int64) ([]CartLine, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListItems", trace.WithAttributes(attribute.Int64("order.numero", numero)))
	defer span.End()

	lines := make([]CartLine, 0)
	err := r.reader.NewSelect().
		Model((*entity.OrderItem)(nil)).
		ColumnExpr("order_item.cod_produto, order_item.quantidade, order_item.preco_venda").
		ColumnExpr("p.nome, p.unidade, p.img_url").
		Join("JOIN products AS p ON p.cod_produto = order_item.cod_produto").
		Where("order_item.numero = ?", numero).
		Order("order_item.cod_produto ASC").
		Scan(ctx, &lines)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return lines, nil
}

// OrderSummary is one row of the approver queue listing.
type OrderSummary struct {
	Numero     int64         `bun:"numero"`
	Status     entity.Status `bun:"status"`
	CodUsuario int64         `bun:"cod_usuario"`
	Nome       string        `bun:"nome"`
	UpdatedAt  time.Time     `bun:"updated_at"`
}

// ListByStatus returns order headers in the given status joined with the
// requester's name, most recently touched first.
func (r *Repository) ListByStatus(ctx context.Context, status entity.Status) ([]OrderSummary, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListByStatus", trace.WithAttributes(attribute.Int("order.status", int(status))))
	defer span.End()

	rows := make([]OrderSummary, 0)
	err := r.reader.NewSelect().
		Model((*entity.Order)(nil)).
		ColumnExpr(`"order".numero, "order".status, "order".cod_usuario, "order".updated_at`).
		ColumnExpr("u.nome").
		Join(`JOIN users AS u ON u.cod_usuario = "order".cod_usuario`).
		Where(`"order".tenant = ?`, r.tenant).
		Where(`"order".status = ?`, status).
		Order("updated_at DESC").
		Scan(ctx, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return rows, nil
}
