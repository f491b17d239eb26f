package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Sector is an organizational budget-holding unit. The limit is mutated only
// through the budget service, which appends a SectorLimitChange in the same
// transaction.
type Sector struct {
	bun.BaseModel `bun:"table:sectors"`

	CodSetor string  `bun:"cod_setor,pk"`
	Nome     string  `bun:"nome,notnull"`
	Limite   float64 `bun:"limite,notnull"`
}

// SectorLimitChange is one append-only audit record per limit mutation.
type SectorLimitChange struct {
	bun.BaseModel `bun:"table:sector_limit_changes"`

	ID             int64     `bun:"id,pk,autoincrement"`
	CodSetor       string    `bun:"cod_setor,notnull"`
	LimiteAnterior float64   `bun:"limite_anterior,notnull"`
	LimiteNovo     float64   `bun:"limite_novo,notnull"`
	CodUsuario     int64     `bun:"cod_usuario,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
