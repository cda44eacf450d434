package domain

import (
	"github.com/shopspring/decimal"
)

// Product is the hydrated detail served by GET /products/{id}.
// Stock is the live level at fetch time.
type Product struct {
	ID          int64           `json:"id_producto"`
	Name        string          `json:"nombre"`
	Brand       string          `json:"marca"`
	Image       string          `json:"imagen"`
	Description string          `json:"descripcion"`
	Category    string          `json:"categoria,omitempty"`
	Price       decimal.Decimal `json:"precio"`
	Stock       int             `json:"stock"`

	// Shipping dimensions (kg / cm)
	Weight float64 `json:"peso"`
	Height float64 `json:"alto"`
	Width  float64 `json:"ancho"`
	Length float64 `json:"largo"`
}

func (p *Product) InStock() bool {
	return p != nil && p.Stock > 0
}

// ProductPatch is the admin partial update for a product.
type ProductPatch struct {
	Stock *int             `json:"stock,omitempty"`
	Price *decimal.Decimal `json:"precio,omitempty"`
}
