package v1

import (
	"net/http"

	"skincare-client/internal/delivery/http/middleware"
	"skincare-client/internal/store"
)

// Stores is everything the gateway exposes.
type Stores struct {
	Auth      *store.AuthStore
	Cart      *store.CartStore
	Favorites *store.FavoritesStore
	Addresses *store.AddressStore
	Orders    *store.OrdersStore
	Search    *store.SearchStore
	Admin     *store.AdminService
}

// RegisterRoutes mounts the gateway under /api/v1.
//
// The gateway fronts one process-wide session: every caller acts as
// whoever last logged in, admin routes included. It is meant for a UI on
// the same machine and binds to loopback unless HOST is changed.
func RegisterRoutes(mux *http.ServeMux, s Stores) {
	sessionHandler := NewSessionHandler(s.Auth)
	cartHandler := NewCartHandler(s.Cart)
	favoriteHandler := NewFavoriteHandler(s.Favorites)
	addressHandler := NewAddressHandler(s.Addresses, s.Cart)
	orderHandler := NewOrderHandler(s.Orders)
	searchHandler := NewSearchHandler(s.Search)
	adminHandler := NewAdminHandler(s.Admin)

	requireSession := middleware.RequireSession(s.Auth)
	protected := func(h http.HandlerFunc) http.Handler {
		return requireSession(h)
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return requireSession(middleware.AdminMiddleware(h))
	}

	// Session
	mux.HandleFunc("GET /api/v1/session", sessionHandler.Status)
	mux.HandleFunc("POST /api/v1/session", sessionHandler.Login)
	mux.HandleFunc("DELETE /api/v1/session", sessionHandler.Logout)
	mux.HandleFunc("POST /api/v1/session/check", sessionHandler.Check)

	// Catalog
	mux.HandleFunc("GET /api/v1/search", searchHandler.Search)
	mux.HandleFunc("GET /api/v1/provinces", addressHandler.Provinces)
	mux.HandleFunc("GET /api/v1/provinces/{id}/localities", addressHandler.Localities)

	// Cart
	mux.Handle("GET /api/v1/cart", protected(cartHandler.GetCart))
	mux.Handle("POST /api/v1/cart/reload", protected(cartHandler.Reload))
	mux.Handle("POST /api/v1/cart/items", protected(cartHandler.AddToCart))
	mux.Handle("PATCH /api/v1/cart/items/{productId}", protected(cartHandler.UpdateQuantity))
	mux.Handle("DELETE /api/v1/cart/items/{productId}", protected(cartHandler.RemoveFromCart))
	mux.Handle("POST /api/v1/cart/stock-check", protected(cartHandler.CheckStock))
	mux.Handle("POST /api/v1/cart/adjust", protected(cartHandler.Adjust))
	mux.Handle("POST /api/v1/cart/open", protected(cartHandler.Open))
	mux.Handle("POST /api/v1/cart/close", protected(cartHandler.Close))

	// Favorites
	mux.Handle("GET /api/v1/favorites", protected(favoriteHandler.List))
	mux.Handle("POST /api/v1/favorites", protected(favoriteHandler.Add))
	mux.Handle("GET /api/v1/favorites/{productId}", protected(favoriteHandler.Status))
	mux.Handle("DELETE /api/v1/favorites/{productId}", protected(favoriteHandler.Remove))
	mux.Handle("POST /api/v1/favorites/{productId}/toggle", protected(favoriteHandler.Toggle))

	// Addresses & shipping
	mux.Handle("GET /api/v1/addresses", protected(addressHandler.List))
	mux.Handle("POST /api/v1/addresses", protected(addressHandler.Create))
	mux.Handle("DELETE /api/v1/addresses/{id}", protected(addressHandler.Delete))
	mux.Handle("PUT /api/v1/addresses/selected", protected(addressHandler.Select))
	mux.Handle("POST /api/v1/shipping", protected(addressHandler.Shipping))

	// Orders
	mux.Handle("GET /api/v1/orders", protected(orderHandler.GetMyOrders))
	mux.Handle("GET /api/v1/orders/{id}", protected(orderHandler.GetOrder))
	mux.Handle("POST /api/v1/checkout", protected(orderHandler.Checkout))

	// Admin
	mux.Handle("GET /api/v1/admin/orders", adminOnly(adminHandler.ListOrders))
	mux.Handle("GET /api/v1/admin/orders/statuses", adminOnly(adminHandler.Statuses))
	mux.Handle("PATCH /api/v1/admin/orders/{id}", adminOnly(adminHandler.UpdateOrderStatus))
	mux.Handle("PATCH /api/v1/admin/products/{id}", adminOnly(adminHandler.UpdateProduct))
	mux.Handle("DELETE /api/v1/admin/cache/products", adminOnly(adminHandler.PurgeCache))

	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	}
	mux.HandleFunc("GET /api/v1/health", healthHandler)
	mux.HandleFunc("GET /health", healthHandler)
}
