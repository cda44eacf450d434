package store

import (
	"context"
	"errors"
	"testing"

	"skincare-client/internal/domain"

	"github.com/shopspring/decimal"
)

type fixedUser struct{ user *domain.User }

func (f fixedUser) User() *domain.User { return f.user }

func TestAdminRequiresRole(t *testing.T) {
	fb := newFakeBackend()
	ctx := context.Background()

	anon := NewAdminService(fb, fixedUser{}, newProducts(fb))
	if err := anon.UpdateStock(ctx, 1, 3); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	customer := NewAdminService(fb, fixedUser{&domain.User{ID: 2, Role: domain.RoleCustomer}}, newProducts(fb))
	if _, err := customer.Orders(ctx, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(fb.calls) != 0 {
		t.Fatalf("no request expected, got %v", fb.calls)
	}
}

func TestAdminUpdatePriceInvalidatesCache(t *testing.T) {
	fb := newFakeBackend()
	fb.addProduct(1, "Serum", 1000, 5)
	products := newProducts(fb)
	ctx := context.Background()
	if _, err := products.Fetch(ctx, 1, false); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	s := NewAdminService(fb, fixedUser{&domain.User{ID: 1, Role: domain.RoleAdmin}}, products)
	if err := s.UpdatePrice(ctx, 1, decimal.Zero); err == nil {
		t.Fatal("zero price should be rejected")
	}
	if err := s.UpdatePrice(ctx, 1, decimal.NewFromInt(1100)); err != nil {
		t.Fatalf("update price: %v", err)
	}
	if _, ok := products.Get(1); ok {
		t.Fatal("cached product should be invalidated")
	}
	if fb.count("PATCH /admin/products/1") != 1 {
		t.Fatal("expected one patch")
	}
}

func TestAdminOrderStatus(t *testing.T) {
	fb := newFakeBackend()
	s := NewAdminService(fb, fixedUser{&domain.User{ID: 1, Role: domain.RoleAdmin}}, newProducts(fb))
	ctx := context.Background()

	if err := s.UpdateOrderStatus(ctx, 4, "perdido"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if err := s.UpdateOrderStatus(ctx, 4, domain.OrderStatusShipped); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if _, err := s.Orders(ctx, domain.OrderStatusPaid); err != nil {
		t.Fatalf("orders: %v", err)
	}
	if fb.count("GET /admin/orders?estado=pagado") != 1 {
		t.Fatal("expected filtered listing")
	}
}

func TestAdminPurgeProducts(t *testing.T) {
	fb := newFakeBackend()
	fb.addProduct(1, "Serum", 1000, 5)
	fb.addProduct(2, "Cream", 800, 2)
	products := newProducts(fb)
	ctx := context.Background()
	for _, id := range []int64{1, 2} {
		if _, err := products.Fetch(ctx, id, false); err != nil {
			t.Fatalf("fetch %d: %v", id, err)
		}
	}

	customer := NewAdminService(fb, fixedUser{&domain.User{ID: 2, Role: domain.RoleCustomer}}, products)
	if err := customer.PurgeProducts(); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, ok := products.Get(1); !ok {
		t.Fatal("cache should be untouched after a rejected purge")
	}

	admin := NewAdminService(fb, fixedUser{&domain.User{ID: 1, Role: domain.RoleAdmin}}, products)
	if err := admin.PurgeProducts(); err != nil {
		t.Fatalf("purge: %v", err)
	}
	for _, id := range []int64{1, 2} {
		if _, ok := products.Get(id); ok {
			t.Fatalf("product %d should be purged", id)
		}
	}
}
