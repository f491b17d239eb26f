package dto

import "time"

// OrderItemResponse is one line of an order as exposed over HTTP.
type OrderItemResponse struct {
	CodProduto int64   `json:"codprod"`
	Nome       string  `json:"nome"`
	Quantidade float64 `json:"qt"`
	PrecoVenda float64 `json:"pvenda"`
}

// OrderDetailResponse combines an order header with its requester, sector
// and line items for the approval screen.
type OrderDetailResponse struct {
	Numero      int64               `json:"numero"`
	Status      int                 `json:"status"`
	CreatedAt   time.Time           `json:"criadoEm"`
	UpdatedAt   time.Time           `json:"atualizadoEm"`
	Solicitante RequesterResponse   `json:"solicitante"`
	Setor       *SectorResponse     `json:"setor,omitempty"`
	Itens       []OrderItemResponse `json:"itens"`
	Total       float64             `json:"total"`
}

// RequesterResponse identifies the user that owns the order.
type RequesterResponse struct {
	CodUsuario int64  `json:"codUsuario"`
	Nome       string `json:"nome"`
	Email      string `json:"email"`
}

// OrderSummaryResponse is one row of the approver queue listing.
type OrderSummaryResponse struct {
	Numero      int64     `json:"numero"`
	Status      int       `json:"status"`
	CodUsuario  int64     `json:"codUsuario"`
	Solicitante string    `json:"solicitante"`
	UpdatedAt   time.Time `json:"atualizadoEm"`
}
