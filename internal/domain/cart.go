package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// LineItem is one product-quantity-price record of the cart.
// UnitPrice is the snapshot taken when the line was created.
type LineItem struct {
	ID        int64           `json:"id_carrito_detalle"`
	ProductID int64           `json:"id_producto"`
	Quantity  int             `json:"cantidad"`
	UnitPrice decimal.Decimal `json:"precio"`
	Product   *Product        `json:"producto,omitempty"`
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// HasStockIssue reports whether the requested quantity exceeds the hydrated stock.
// Lines without hydrated detail are not flagged.
func (l LineItem) HasStockIssue() bool {
	return l.Product != nil && l.Quantity > l.Product.Stock
}

// CartResponse is the body of GET /cart.
type CartResponse struct {
	Details []LineItem `json:"detalles"`
}

// CartMutation is the body of POST /cart/add and PATCH /cart/update.
type CartMutation struct {
	ProductID int64 `json:"id_producto"`
	Quantity  int   `json:"cantidad"`
}

// SortLineItems orders lines by line-item id ascending. Unsaved lines (id 0) go last.
func SortLineItems(items []LineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].ID, items[j].ID
		if a == 0 || b == 0 {
			return a != 0 && b == 0
		}
		return a < b
	})
}

// CartTotal sums quantity x unit price over lines whose product is in stock.
func CartTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if !item.Product.InStock() {
			continue
		}
		total = total.Add(item.Subtotal())
	}
	return total
}

// StockIssues filters the lines whose quantity exceeds available stock.
func StockIssues(items []LineItem) []LineItem {
	var issues []LineItem
	for _, item := range items {
		if item.HasStockIssue() {
			issues = append(issues, item)
		}
	}
	return issues
}
