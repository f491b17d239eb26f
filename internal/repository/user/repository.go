package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/compralink/procura/internal/config"
	"github.com/compralink/procura/internal/database"
	"github.com/compralink/procura/internal/entity"
)

var repoTracer = otel.Tracer("github.com/compralink/procura/repository/user")

// ErrNotFound is returned when a user is missing.
var ErrNotFound = errors.New("user not found")

// Repository provides read access to portal users within the tenant.
type Repository struct {
	reader *bun.DB
	tenant string
}

// NewRepository wires a repository backed by the read connection.
func NewRepository(conns *database.Connections, cfg config.Config) *Repository {
	return &Repository{reader: conns.Reader, tenant: cfg.Tenant.ClientID}
}

// GetByID fetches a user by id.
func (r *Repository) GetByID(ctx context.Context, userID int64) (*entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.GetByID", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	u := new(entity.User)
	err := r.reader.NewSelect().Model(u).
		Where("tenant = ?", r.tenant).
		Where("cod_usuario = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return u, nil
}
