package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Country struct {
	ID   int64  `json:"id_pais"`
	Name string `json:"nombre"`
}

type Province struct {
	ID      int64    `json:"id_provincia"`
	Name    string   `json:"nombre"`
	Country *Country `json:"pais,omitempty"`
}

type Locality struct {
	ID       int64     `json:"id_localidad"`
	Name     string    `json:"nombre"`
	Province *Province `json:"provincia,omitempty"`
}

// Address is a saved shipping address.
type Address struct {
	ID         int64    `json:"id_direccion"`
	Street     string   `json:"calle"`
	Unit       string   `json:"departamento,omitempty"`
	PostalCode string   `json:"codigo_postal"`
	Locality   Locality `json:"localidad"`
}

func (a Address) ProvinceName() string {
	if a.Locality.Province == nil {
		return ""
	}
	return a.Locality.Province.Name
}

// AddressInput is the payload of POST /addresses.
type AddressInput struct {
	Street     string `json:"calle" validate:"required"`
	Unit       string `json:"departamento,omitempty"`
	PostalCode string `json:"codigo_postal" validate:"required,len=4,number"`
	LocalityID int64  `json:"id_localidad" validate:"gt=0"`
}

// Validate checks the input before any request is sent. Surrounding
// whitespace does not count as content.
func (in AddressInput) Validate() error {
	in.Street = strings.TrimSpace(in.Street)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
	return Validate(in)
}

// ShippingItem is a line item reduced to what the carrier quote needs.
type ShippingItem struct {
	Weight      float64 `json:"peso"`
	Height      float64 `json:"alto"`
	Width       float64 `json:"ancho"`
	Length      float64 `json:"largo"`
	Description string  `json:"descripcion"`
	Quantity    int     `json:"cantidad"`
}

type ShippingDirection struct {
	Locality   string `json:"localidad"`
	Province   string `json:"provincia"`
	PostalCode string `json:"codigo_postal"`
}

// ShippingRequest is the body of POST /shipping.
type ShippingRequest struct {
	Items     []ShippingItem    `json:"items"`
	Direction ShippingDirection `json:"direction"`
}

// ShippingQuote is the last calculated cost, tied to the address and the cart it was computed for.
type ShippingQuote struct {
	Cost         decimal.Decimal `json:"cost"`
	AddressID    int64           `json:"addressId"`
	Signature    string          `json:"signature"`
	CalculatedAt time.Time       `json:"calculatedAt"`
}

// ShippingItemsFrom reduces hydrated line items. Lines without detail are skipped.
func ShippingItemsFrom(items []LineItem) []ShippingItem {
	out := make([]ShippingItem, 0, len(items))
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		out = append(out, ShippingItem{
			Weight:      item.Product.Weight,
			Height:      item.Product.Height,
			Width:       item.Product.Width,
			Length:      item.Product.Length,
			Description: item.Product.Name,
			Quantity:    item.Quantity,
		})
	}
	return out
}

// CartSignature identifies the product/quantity makeup of a cart.
func CartSignature(items []LineItem) string {
	sorted := make([]LineItem, len(items))
	copy(sorted, items)
	// Line ids change when a reload assigns them; product ids do not.
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	var b strings.Builder
	for _, item := range sorted {
		fmt.Fprintf(&b, "%d:%d;", item.ProductID, item.Quantity)
	}
	return b.String()
}
