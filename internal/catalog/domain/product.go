package domain

// Product is a catalog entry. UnitPrice is in the smallest currency unit.
type Product struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	UnitPrice   int64  `json:"unit_price"`
	Available   bool   `json:"available"`
}
