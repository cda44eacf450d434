package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"skincare-client/internal/domain"
	"skincare-client/internal/infrastructure/api"
	memcache "skincare-client/internal/infrastructure/cache"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// fakeBackend is an in-memory stand-in for the REST API.
type fakeBackend struct {
	mu         sync.Mutex
	products   map[int64]domain.Product
	cart       []domain.LineItem
	nextLineID int64
	favorites  []int64
	addresses  []domain.Address
	nextAddrID int64
	orders     []domain.Order
	shipping   decimal.Decimal
	login      domain.LoginResponse
	password   string
	calls      []string
	fail       map[string]error
	canceled   map[string]bool

	// hold, when set, may return a channel the request waits on before it is served.
	// The wait ignores cancellation so late replies can be simulated.
	hold func(key string, body interface{}) <-chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products:   make(map[int64]domain.Product),
		nextLineID: 100,
		nextAddrID: 10,
		fail:       make(map[string]error),
		canceled:   make(map[string]bool),
		shipping:   decimal.NewFromInt(1500),
	}
}

func (f *fakeBackend) addProduct(id int64, name string, price int64, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[id] = domain.Product{
		ID: id, Name: name, Price: decimal.NewFromInt(price), Stock: stock,
		Weight: 0.2, Height: 10, Width: 5, Length: 5,
	}
}

func (f *fakeBackend) setStock(id int64, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	p.Stock = stock
	f.products[id] = p
}

func (f *fakeBackend) setFail(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, key)
		return
	}
	f.fail[key] = err
}

func (f *fakeBackend) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

func (f *fakeBackend) serverCart() []domain.LineItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.LineItem, len(f.cart))
	copy(out, f.cart)
	return out
}

func (f *fakeBackend) Get(ctx context.Context, path string) (*api.Response, error) {
	return f.do(ctx, http.MethodGet, path, nil)
}

func (f *fakeBackend) Post(ctx context.Context, path string, body interface{}) (*api.Response, error) {
	return f.do(ctx, http.MethodPost, path, body)
}

func (f *fakeBackend) Patch(ctx context.Context, path string, body interface{}) (*api.Response, error) {
	return f.do(ctx, http.MethodPatch, path, body)
}

func (f *fakeBackend) Delete(ctx context.Context, path string, body interface{}) (*api.Response, error) {
	return f.do(ctx, http.MethodDelete, path, body)
}

func (f *fakeBackend) do(ctx context.Context, method, path string, body interface{}) (*api.Response, error) {
	key := method + " " + path

	f.mu.Lock()
	f.calls = append(f.calls, key)
	hold := f.hold
	f.mu.Unlock()

	if hold != nil {
		if ch := hold(key, body); ch != nil {
			<-ch
			f.mu.Lock()
			f.canceled[key] = ctx.Err() != nil
			f.mu.Unlock()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[key]; err != nil {
		return nil, err
	}
	return f.route(method, path, body)
}

// route serves one request. Caller holds f.mu.
func (f *fakeBackend) route(method, path string, body interface{}) (*api.Response, error) {
	switch {
	case method == http.MethodGet && path == "/cart":
		return jsonResp(domain.CartResponse{Details: f.cart})

	case method == http.MethodPost && path == "/cart/add":
		m := body.(domain.CartMutation)
		for i := range f.cart {
			if f.cart[i].ProductID == m.ProductID {
				f.cart[i].Quantity += m.Quantity
				return jsonResp(nil)
			}
		}
		f.nextLineID++
		f.cart = append(f.cart, domain.LineItem{
			ID: f.nextLineID, ProductID: m.ProductID, Quantity: m.Quantity, UnitPrice: f.products[m.ProductID].Price,
		})
		return jsonResp(nil)

	case method == http.MethodPatch && path == "/cart/update":
		m := body.(domain.CartMutation)
		for i := range f.cart {
			if f.cart[i].ProductID == m.ProductID {
				f.cart[i].Quantity = m.Quantity
			}
		}
		return jsonResp(nil)

	case method == http.MethodDelete && strings.HasPrefix(path, "/cart/remove/"):
		id := pathID(path)
		kept := f.cart[:0:0]
		for _, item := range f.cart {
			if item.ProductID != id {
				kept = append(kept, item)
			}
		}
		f.cart = kept
		return jsonResp(nil)

	case method == http.MethodGet && strings.HasPrefix(path, "/products/search"):
		u, _ := url.Parse(path)
		q := strings.ToLower(u.Query().Get("query"))
		var out []domain.Product
		for _, p := range f.products {
			if strings.Contains(strings.ToLower(p.Name), q) {
				out = append(out, p)
			}
		}
		return jsonResp(domain.Envelope[[]domain.Product]{Body: out})

	case method == http.MethodGet && strings.HasPrefix(path, "/products/"):
		p, ok := f.products[pathID(path)]
		if !ok {
			return nil, &domain.APIError{Status: http.StatusNotFound, Message: "producto no encontrado"}
		}
		return jsonResp(domain.Envelope[domain.Product]{Body: p})

	case method == http.MethodGet && path == "/favorites":
		out := make([]domain.Favorite, 0, len(f.favorites))
		for _, id := range f.favorites {
			out = append(out, domain.Favorite{ProductID: id})
		}
		return jsonResp(domain.Envelope[[]domain.Favorite]{Body: out})

	case method == http.MethodPost && path == "/favorites":
		f.favorites = append(f.favorites, body.(domain.FavoriteMutation).ProductID)
		return jsonResp(nil)

	case method == http.MethodDelete && path == "/favorites":
		id := body.(domain.FavoriteMutation).ProductID
		kept := f.favorites[:0:0]
		for _, fid := range f.favorites {
			if fid != id {
				kept = append(kept, fid)
			}
		}
		f.favorites = kept
		return jsonResp(nil)

	case method == http.MethodGet && path == "/addresses":
		return jsonResp(domain.Envelope[[]domain.Address]{Body: f.addresses})

	case method == http.MethodPost && path == "/addresses":
		in := body.(domain.AddressInput)
		f.nextAddrID++
		f.addresses = append(f.addresses, domain.Address{
			ID: f.nextAddrID, Street: in.Street, Unit: in.Unit, PostalCode: in.PostalCode,
			Locality: domain.Locality{ID: in.LocalityID, Name: "Rosario", Province: &domain.Province{ID: 1, Name: "Santa Fe"}},
		})
		return jsonResp(nil)

	case method == http.MethodDelete && strings.HasPrefix(path, "/addresses/"):
		id := pathID(path)
		kept := f.addresses[:0:0]
		for _, a := range f.addresses {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		f.addresses = kept
		return jsonResp(nil)

	case method == http.MethodPost && path == "/shipping":
		return jsonResp(domain.Envelope[decimal.Decimal]{Body: f.shipping})

	case method == http.MethodGet && path == "/provinces":
		return jsonResp(domain.Envelope[[]domain.Province]{Body: []domain.Province{{ID: 1, Name: "Santa Fe"}}})

	case method == http.MethodGet && strings.HasPrefix(path, "/provinces/"):
		return jsonResp(domain.Envelope[[]domain.Locality]{Body: []domain.Locality{{ID: 7, Name: "Rosario"}}})

	case method == http.MethodPost && path == "/orders":
		req := body.(domain.CheckoutRequest)
		order := domain.Order{
			ID:           int64(len(f.orders) + 1),
			Status:       domain.OrderStatusPending,
			ShippingCost: req.ShippingCost,
			AddressID:    req.AddressID,
			CreatedAt:    time.Date(2026, 1, len(f.orders)+1, 0, 0, 0, 0, time.UTC),
		}
		for _, item := range req.Items {
			order.Items = append(order.Items, domain.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		f.orders = append(f.orders, order)
		f.cart = nil
		return jsonResp(domain.Envelope[domain.CheckoutResult]{Body: domain.CheckoutResult{
			OrderID: order.ID, PaymentURL: fmt.Sprintf("https://pay.example/%d", order.ID),
		}})

	case method == http.MethodGet && path == "/orders":
		return jsonResp(domain.Envelope[[]domain.Order]{Body: f.orders})

	case method == http.MethodGet && strings.HasPrefix(path, "/orders/"):
		id := pathID(path)
		for _, o := range f.orders {
			if o.ID == id {
				return jsonResp(domain.Envelope[domain.Order]{Body: o})
			}
		}
		return nil, &domain.APIError{Status: http.StatusNotFound}

	case method == http.MethodPost && path == "/auth/login":
		req := body.(domain.LoginRequest)
		if req.Password != f.password || f.login.Token == "" {
			return nil, &domain.APIError{Status: http.StatusUnauthorized, Message: "credenciales invalidas"}
		}
		return jsonResp(f.login)

	case method == http.MethodGet && path == "/auth/me":
		return jsonResp(domain.Envelope[domain.User]{Body: f.login.User})

	case method == http.MethodPatch && strings.HasPrefix(path, "/admin/"):
		return jsonResp(nil)

	case method == http.MethodGet && strings.HasPrefix(path, "/admin/orders"):
		return jsonResp(domain.Envelope[[]domain.Order]{Body: f.orders})
	}
	return nil, &domain.APIError{Status: http.StatusNotFound, Message: "no route " + method + " " + path}
}

func pathID(path string) int64 {
	id, _ := strconv.ParseInt(path[strings.LastIndex(path, "/")+1:], 10, 64)
	return id
}

func jsonResp(v interface{}) (*api.Response, error) {
	if v == nil {
		return &api.Response{Status: http.StatusOK, Body: []byte(`{}`)}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &api.Response{Status: http.StatusOK, Body: b}, nil
}

func loggedIn() api.TokenSource {
	return api.TokenFunc(func() string { return "tok" })
}

func newProducts(fb *fakeBackend) *ProductCache {
	return NewProductCache(memcache.NewMemoryCache(0, time.Minute), fb, 0)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOptimisticReloadsOnlyOnFailure(t *testing.T) {
	var applied, reloaded int
	err := optimistic(context.Background(),
		func() { applied++ },
		func(context.Context) error { return nil },
		func(context.Context) error { reloaded++; return nil },
	)
	if err != nil || applied != 1 || reloaded != 0 {
		t.Fatalf("success path: err=%v applied=%d reloaded=%d", err, applied, reloaded)
	}

	remoteErr := errors.New("rejected")
	err = optimistic(context.Background(),
		func() { applied++ },
		func(context.Context) error { return remoteErr },
		func(context.Context) error { reloaded++; return nil },
	)
	if !errors.Is(err, remoteErr) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if reloaded != 1 {
		t.Fatalf("expected one reconciling reload, got %d", reloaded)
	}
}

func TestOptimisticReloadSurvivesCanceledCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var reloadErr error
	_ = optimistic(ctx, nil,
		func(context.Context) error { cancel(); return context.Canceled },
		func(rctx context.Context) error { reloadErr = rctx.Err(); return nil },
	)
	if reloadErr != nil {
		t.Fatalf("reload context should not be canceled, got %v", reloadErr)
	}
}

func TestInflightRejectsSecondBegin(t *testing.T) {
	f := newInflight()
	if !f.begin(1) {
		t.Fatal("first begin should succeed")
	}
	if f.begin(1) {
		t.Fatal("second begin on same id should fail")
	}
	if !f.begin(2) {
		t.Fatal("other ids are independent")
	}
	f.end(1)
	if f.has(1) {
		t.Fatal("id 1 should be released")
	}
	if got := f.list(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("unexpected busy list %v", got)
	}
}

func TestProductCacheFetch(t *testing.T) {
	fb := newFakeBackend()
	fb.addProduct(1, "Serum", 100, 4)
	pc := newProducts(fb)
	ctx := context.Background()

	if _, err := pc.Fetch(ctx, 1, false); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	fb.setStock(1, 0)
	p, err := pc.Fetch(ctx, 1, false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if p.Stock != 4 || fb.count("GET /products/1") != 1 {
		t.Fatalf("expected cached hit, stock=%d calls=%d", p.Stock, fb.count("GET /products/1"))
	}

	p, err = pc.Fetch(ctx, 1, true)
	if err != nil {
		t.Fatalf("forced fetch: %v", err)
	}
	if p.Stock != 0 {
		t.Fatalf("forced fetch should see live stock, got %d", p.Stock)
	}

	p.Stock = 99
	if cached, _ := pc.Get(1); cached.Stock != 0 {
		t.Fatal("Get must return a copy")
	}

	if _, err := pc.Fetch(ctx, 42, false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
