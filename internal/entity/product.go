package entity

import "github.com/uptrace/bun"

// Product is a catalog entry. Prices here are the current list price; cart
// lines keep their own snapshot taken at add-time.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	CodProduto int64   `bun:"cod_produto,pk"`
	Nome       string  `bun:"nome,notnull"`
	Preco      float64 `bun:"preco,notnull"`
	Unidade    string  `bun:"unidade"`
	ImgURL     string  `bun:"img_url"`
}
