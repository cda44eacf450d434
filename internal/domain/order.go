package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID           int64           `json:"id_orden"`
	Status       string          `json:"estado"`
	Total        decimal.Decimal `json:"total"`
	ShippingCost decimal.Decimal `json:"costo_envio"`
	AddressID    int64           `json:"id_direccion"`
	Items        []OrderItem     `json:"detalles"`
	CreatedAt    time.Time       `json:"fecha"`
}

type OrderItem struct {
	ProductID int64           `json:"id_producto"`
	Quantity  int             `json:"cantidad"`
	UnitPrice decimal.Decimal `json:"precio"`
	Product   *Product        `json:"producto,omitempty"`
}

// CheckoutRequest is the body of POST /orders.
type CheckoutRequest struct {
	AddressID    int64           `json:"id_direccion"`
	ShippingCost decimal.Decimal `json:"costo_envio"`
	Items        []CartMutation  `json:"items"`
}

// CheckoutResult carries the created order and the payment provider handoff URL.
type CheckoutResult struct {
	OrderID    int64  `json:"id_orden"`
	PaymentURL string `json:"init_point"`
}

// OrderStatusPatch is the body of PATCH /admin/orders/{id}.
type OrderStatusPatch struct {
	Status string `json:"estado"`
}
