package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Order is a purchase order header. Headers are created implicitly on the
// first add-to-cart (status Draft) and are never physically deleted; the row
// doubles as the audit trail of the order's lifecycle.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	Numero     int64     `bun:"numero,pk"`
	Tenant     string    `bun:"tenant,notnull"`
	CodUsuario int64     `bun:"cod_usuario,notnull"`
	Status     Status    `bun:"status,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero"`
}

// OrderItem is a cart line. Identity is (numero, cod_produto); the unit
// price is snapshotted at add-time and frozen once the header leaves Draft.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	Numero     int64   `bun:"numero,pk"`
	CodProduto int64   `bun:"cod_produto,pk"`
	Quantidade float64 `bun:"quantidade,notnull"`
	PrecoVenda float64 `bun:"preco_venda,notnull"`
}
