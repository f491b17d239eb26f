package dto

// CartItemResponse is one cart line joined with product metadata, in the
// shape the portal frontend renders.
type CartItemResponse struct {
	ID         int64   `json:"id"`
	Nome       string  `json:"nome"`
	Quantidade float64 `json:"quantidade"`
	Preco      float64 `json:"preco"`
	Unit       string  `json:"unit"`
	ImgURL     string  `json:"imgUrl"`
}
