package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"skincare-client/internal/domain"
	"skincare-client/internal/infrastructure/api"
	"skincare-client/internal/infrastructure/broadcast"
	memcache "skincare-client/internal/infrastructure/cache"
	"skincare-client/internal/infrastructure/session"
	"skincare-client/internal/store"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

// backend is a minimal REST API the gateway stores talk to.
type backend struct {
	mu    sync.Mutex
	role  string
	lines []domain.LineItem
}

func (b *backend) handler(t *testing.T) http.Handler {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	write := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	empty := func(w http.ResponseWriter, r *http.Request) { write(w, map[string]interface{}{"body": []int{}}) }

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		write(w, domain.LoginResponse{
			Token: token,
			User:  domain.User{ID: 1, Name: "Ana", Email: "ana@example.com", Role: b.role},
		})
	})
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		write(w, domain.CartResponse{Details: b.lines})
	})
	mux.HandleFunc("POST /cart/add", func(w http.ResponseWriter, r *http.Request) {
		var m domain.CartMutation
		json.NewDecoder(r.Body).Decode(&m)
		b.mu.Lock()
		b.lines = append(b.lines, domain.LineItem{ID: int64(len(b.lines) + 1), ProductID: m.ProductID, Quantity: m.Quantity, UnitPrice: decimal.NewFromInt(1000)})
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"body":{"id_producto":%s,"nombre":"Serum","precio":"1000","stock":5}}`, r.PathValue("id"))
	})
	mux.HandleFunc("GET /favorites", empty)
	mux.HandleFunc("GET /addresses", empty)
	mux.HandleFunc("GET /orders", empty)
	return mux
}

type gateway struct {
	mux     *http.ServeMux
	backend *backend
}

func newGateway(t *testing.T, role string) *gateway {
	t.Helper()
	b := &backend{role: role}
	srv := httptest.NewServer(b.handler(t))
	t.Cleanup(srv.Close)

	var auth *store.AuthStore
	tokens := api.TokenFunc(func() string { return auth.Token() })
	client := api.NewClient(srv.URL, 2*time.Second, tokens)
	c := memcache.NewMemoryCache(0, time.Minute)
	products := store.NewProductCache(c, client, 0)

	cart := store.NewCartStore(client, tokens, products, store.CartOptions{MaxQuantity: 10, HydrateConcurrency: 2})
	favorites := store.NewFavoritesStore(client, tokens, products, 2)
	addresses := store.NewAddressStore(client, tokens, c, time.Hour)
	orders := store.NewOrdersStore(client, tokens, products, cart, addresses, 2)
	auth = store.NewAuthStore(client, session.NewMemoryStore(), broadcast.NewMemoryBus(), cart, cart, favorites, addresses, orders)

	mux := http.NewServeMux()
	RegisterRoutes(mux, Stores{
		Auth:      auth,
		Cart:      cart,
		Favorites: favorites,
		Addresses: addresses,
		Orders:    orders,
		Search:    store.NewSearchStore(client),
		Admin:     store.NewAdminService(client, auth, products),
	})
	return &gateway{mux: mux, backend: b}
}

func (g *gateway) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	g.mux.ServeHTTP(rec, req)
	return rec
}

func (g *gateway) login(t *testing.T) {
	t.Helper()
	rec := g.do(t, http.MethodPost, "/api/v1/session", `{"email":"ana@example.com","password":"secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	g := newGateway(t, domain.RoleCustomer)
	for _, path := range []string{"/api/v1/cart", "/api/v1/favorites", "/api/v1/orders"} {
		if rec := g.do(t, http.MethodGet, path, ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestLoginAndAddToCart(t *testing.T) {
	g := newGateway(t, domain.RoleCustomer)
	g.login(t)

	rec := g.do(t, http.MethodPost, "/api/v1/cart/items", `{"id_producto":1,"cantidad":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool               `json:"success"`
		Data    store.CartSnapshot `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data.Count != 1 || resp.Data.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart %+v", resp.Data)
	}
	if resp.Data.Total.String() != "2000" {
		t.Fatalf("unexpected total %s", resp.Data.Total)
	}

	rec = g.do(t, http.MethodDelete, "/api/v1/session", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: %d", rec.Code)
	}
	if rec := g.do(t, http.MethodGet, "/api/v1/cart", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestGatewayErrorMapping(t *testing.T) {
	g := newGateway(t, domain.RoleCustomer)
	g.login(t)

	rec := g.do(t, http.MethodPost, "/api/v1/shipping", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("shipping without address: expected 400, got %d", rec.Code)
	}

	rec = g.do(t, http.MethodPost, "/api/v1/addresses", `{"calle":"","codigo_postal":"12"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid address: expected 422, got %d", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Fields["codigo_postal"] == "" {
		t.Fatalf("expected field errors, got %+v", body)
	}

	if rec := g.do(t, http.MethodPatch, "/api/v1/cart/items/abc", `{"cantidad":1}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rec.Code)
	}
}

func TestAdminRoutesNeedAdminRole(t *testing.T) {
	g := newGateway(t, domain.RoleCustomer)
	g.login(t)
	if rec := g.do(t, http.MethodGet, "/api/v1/admin/orders", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	admin := newGateway(t, domain.RoleAdmin)
	admin.login(t)
	if rec := admin.do(t, http.MethodGet, "/api/v1/admin/orders/statuses", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("wrap: %w", domain.ErrNoAddressSelected), http.StatusBadRequest},
		{domain.ErrStockIssues, http.StatusConflict},
		{domain.ErrUpdateInProgress, http.StatusConflict},
		{&domain.APIError{Status: http.StatusNotFound}, http.StatusNotFound},
		{&domain.APIError{Status: http.StatusBadRequest, Message: "x"}, http.StatusBadRequest},
		{&domain.APIError{Status: http.StatusServiceUnavailable}, http.StatusBadGateway},
		{fmt.Errorf("%w: dial", domain.ErrTransport), http.StatusBadGateway},
		{&domain.ValidationError{Fields: map[string]string{"a": "b"}}, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}
