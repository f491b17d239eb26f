package seeder

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/compralink/procura/internal/config"
	"github.com/compralink/procura/internal/database"
	"github.com/compralink/procura/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	tenant string
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, cfg config.Config, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, tenant: cfg.Tenant.ClientID, logger: logger}
}

// All seeds sectors, users and products if they are missing.
func (s *Seeder) All(ctx context.Context) error {
	if err := s.Sectors(ctx); err != nil {
		return err
	}
	if err := s.Users(ctx); err != nil {
		return err
	}
	return s.Products(ctx)
}

// Sectors seeds example sectors if they are missing.
func (s *Seeder) Sectors(ctx context.Context) error {
	samples := []entity.Sector{
		{CodSetor: "RH", Nome: "Recursos Humanos", Limite: 50000},
		{CodSetor: "TI", Nome: "Tecnologia da Informacao", Limite: 120000},
		{CodSetor: "LOG", Nome: "Logistica", Limite: 80000},
	}

	for _, sample := range samples {
		sector := sample
		_, err := s.db.NewInsert().Model(&sector).
			On("CONFLICT (cod_setor) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded sectors", zap.Int("count", len(samples)))
	}
	return nil
}

// Users seeds example users if they are missing.
func (s *Seeder) Users(ctx context.Context) error {
	rh := "RH"
	ti := "TI"
	samples := []entity.User{
		{Tenant: s.tenant, Nome: "Ana Souza", Email: "ana.souza@example.com", SenhaHash: "$2a$10$seeded", Papel: entity.RoleRequester, CodSetor: &rh},
		{Tenant: s.tenant, Nome: "Bruno Lima", Email: "bruno.lima@example.com", SenhaHash: "$2a$10$seeded", Papel: entity.RoleRequester, CodSetor: &ti},
		{Tenant: s.tenant, Nome: "Carla Mendes", Email: "carla.mendes@example.com", SenhaHash: "$2a$10$seeded", Papel: entity.RoleApprover},
		{Tenant: s.tenant, Nome: "Diego Alves", Email: "diego.alves@example.com", SenhaHash: "$2a$10$seeded", Papel: entity.RoleAdmin},
	}

	for _, sample := range samples {
		user := sample
		_, err := s.db.NewInsert().Model(&user).
			On("CONFLICT (tenant, email) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded users", zap.Int("count", len(samples)))
	}
	return nil
}

// Products seeds example catalog entries if they are missing.
func (s *Seeder) Products(ctx context.Context) error {
	samples := []entity.Product{
		{CodProduto: 1001, Nome: "Papel A4 500 folhas", Preco: 28.90, Unidade: "PCT", ImgURL: "https://cdn.example.com/produtos/1001.jpg"},
		{CodProduto: 1002, Nome: "Caneta esferografica azul", Preco: 2.50, Unidade: "UN", ImgURL: "https://cdn.example.com/produtos/1002.jpg"},
		{CodProduto: 2001, Nome: "Notebook 14 polegadas", Preco: 3499.00, Unidade: "UN", ImgURL: "https://cdn.example.com/produtos/2001.jpg"},
		{CodProduto: 3001, Nome: "Cafe torrado 1kg", Preco: 42.00, Unidade: "PCT", ImgURL: "https://cdn.example.com/produtos/3001.jpg"},
	}

	for _, sample := range samples {
		product := sample
		_, err := s.db.NewInsert().Model(&product).
			On("CONFLICT (cod_produto) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded products", zap.Int("count", len(samples)))
	}
	return nil
}
