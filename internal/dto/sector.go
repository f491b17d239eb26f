package dto

// SectorResponse identifies a sector in nested payloads.
type SectorResponse struct {
	CodSetor string `json:"codSetor"`
	Nome     string `json:"nome"`
}

// SectorBalanceResponse is the advisory budget position of a sector.
// Disponivel may be negative; over-budget is reported, never enforced here.
type SectorBalanceResponse struct {
	Limite     float64 `json:"limite"`
	Gasto      float64 `json:"gasto"`
	Disponivel float64 `json:"disponivel"`
}

// SectorSpendResponse is one row of the spend-by-sector report.
type SectorSpendResponse struct {
	CodSetor   string  `json:"codSetor"`
	Nome       string  `json:"nome"`
	Limite     float64 `json:"limite"`
	Gasto      float64 `json:"gasto"`
	Disponivel float64 `json:"disponivel"`
}
