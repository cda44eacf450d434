package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCartTotalExcludesOutOfStock(t *testing.T) {
	items := []LineItem{
		{ID: 1, ProductID: 10, Quantity: 2, UnitPrice: decimal.RequireFromString("1500.50"), Product: &Product{ID: 10, Stock: 4}},
		{ID: 2, ProductID: 11, Quantity: 1, UnitPrice: decimal.RequireFromString("999"), Product: &Product{ID: 11, Stock: 0}},
		{ID: 3, ProductID: 12, Quantity: 3, UnitPrice: decimal.RequireFromString("10")},
	}

	got := CartTotal(items)
	if !got.Equal(decimal.RequireFromString("3001")) {
		t.Fatalf("expected 3001, got %s", got)
	}
}

func TestSortLineItemsPutsUnsavedLast(t *testing.T) {
	items := []LineItem{{ID: 0, ProductID: 9}, {ID: 7}, {ID: 3}, {ID: 0, ProductID: 8}}
	SortLineItems(items)

	if items[0].ID != 3 || items[1].ID != 7 {
		t.Fatalf("unexpected order %+v", items)
	}
	if items[2].ProductID != 9 || items[3].ProductID != 8 {
		t.Fatalf("expected unsaved lines to keep insertion order, got %+v", items)
	}
}

func TestStockIssues(t *testing.T) {
	items := []LineItem{
		{ProductID: 1, Quantity: 5, Product: &Product{Stock: 3}},
		{ProductID: 2, Quantity: 1, Product: &Product{Stock: 3}},
		{ProductID: 3, Quantity: 1},
	}
	issues := StockIssues(items)
	if len(issues) != 1 || issues[0].ProductID != 1 {
		t.Fatalf("unexpected issues %+v", issues)
	}
}

func TestCartSignatureIgnoresOrder(t *testing.T) {
	a := []LineItem{{ID: 1, ProductID: 1, Quantity: 2}, {ID: 2, ProductID: 2, Quantity: 1}}
	b := []LineItem{{ID: 2, ProductID: 2, Quantity: 1}, {ID: 1, ProductID: 1, Quantity: 2}}
	if CartSignature(a) != CartSignature(b) {
		t.Fatalf("signatures differ: %q vs %q", CartSignature(a), CartSignature(b))
	}
	b[0].Quantity = 3
	if CartSignature(a) == CartSignature(b) {
		t.Fatalf("expected quantity change to alter signature")
	}
}

func TestCartSignatureIgnoresLineIDs(t *testing.T) {
	pending := []LineItem{{ID: 0, ProductID: 2, Quantity: 1}, {ID: 5, ProductID: 9, Quantity: 3}}
	reloaded := []LineItem{{ID: 3, ProductID: 2, Quantity: 1}, {ID: 5, ProductID: 9, Quantity: 3}}
	if CartSignature(pending) != CartSignature(reloaded) {
		t.Fatalf("signatures differ: %q vs %q", CartSignature(pending), CartSignature(reloaded))
	}
}
