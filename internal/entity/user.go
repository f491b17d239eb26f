package entity

import "github.com/uptrace/bun"

// Role classifies what a user may do in the portal.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleApprover  Role = "aprovador"
	RoleRequester Role = "solicitante"
)

// User is a portal account. CodSetor is nullable for non-requesters; email
// is unique within a tenant.
type User struct {
	bun.BaseModel `bun:"table:users"`

	CodUsuario int64   `bun:"cod_usuario,pk,autoincrement"`
	Tenant     string  `bun:"tenant,notnull"`
	Nome       string  `bun:"nome,notnull"`
	Email      string  `bun:"email,notnull"`
	SenhaHash  string  `bun:"senha_hash,notnull"`
	Papel      Role    `bun:"papel,notnull"`
	CodSetor   *string `bun:"cod_setor"`
}
