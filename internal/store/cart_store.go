package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"skincare-client/internal/domain"
	"skincare-client/internal/infrastructure/api"
	"skincare-client/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type CartOptions struct {
	MaxQuantity        int
	HydrateConcurrency int
}

// CartSnapshot is a consistent read of the cart for rendering.
type CartSnapshot struct {
	Items    []domain.LineItem `json:"detalles"`
	Count    int               `json:"count"`
	Total    decimal.Decimal   `json:"total"`
	Updating []int64           `json:"updating"`
	Open     bool              `json:"open"`
	Loading  bool              `json:"loading"`
	Error    string            `json:"error,omitempty"`
}

// CartStore mirrors the server cart of the authenticated user.
type CartStore struct {
	api      Requester
	tokens   api.TokenSource
	products *ProductCache
	opts     CartOptions
	log      zerolog.Logger
	updating *inflight

	mu      sync.RWMutex
	items   []domain.LineItem
	loading bool
	errMsg  string
	open    bool
	loadSeq uint64
}

func NewCartStore(requester Requester, tokens api.TokenSource, products *ProductCache, opts CartOptions) *CartStore {
	if opts.HydrateConcurrency < 1 {
		opts.HydrateConcurrency = 1
	}
	if opts.MaxQuantity < 1 {
		opts.MaxQuantity = 99
	}
	return &CartStore{
		api:      requester,
		tokens:   tokens,
		products: products,
		opts:     opts,
		log:      logger.WithStore("cart"),
		updating: newInflight(),
	}
}

// Load replaces local state with the server cart. Without a session it resets.
func (s *CartStore) Load(ctx context.Context) error {
	if !hasToken(s.tokens) {
		s.Reset()
		return nil
	}

	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	s.loading = true
	s.mu.Unlock()

	items, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.loadSeq {
		// Superseded by a newer load or a reset.
		return err
	}
	s.loading = false
	if err != nil {
		s.errMsg = domain.UserMessage(err)
		if errors.Is(err, domain.ErrUnauthenticated) {
			s.items = nil
		}
		return err
	}
	s.items = items
	s.errMsg = ""
	return nil
}

func (s *CartStore) fetch(ctx context.Context) ([]domain.LineItem, error) {
	resp, err := s.api.Get(ctx, "/cart")
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var body domain.CartResponse
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	domain.SortLineItems(body.Details)
	items, herr := s.hydrate(ctx, body.Details, false)
	if herr != nil {
		s.log.Warn().Err(herr).Msg("cart hydration incomplete")
	}
	return items, nil
}

// hydrate attaches product detail through the product cache. Lines whose
// product cannot be fetched keep their previous detail, or none.
func (s *CartStore) hydrate(ctx context.Context, items []domain.LineItem, force bool) ([]domain.LineItem, error) {
	out := make([]domain.LineItem, len(items))
	copy(out, items)

	var g errgroup.Group
	g.SetLimit(s.opts.HydrateConcurrency)
	for i := range out {
		g.Go(func() error {
			product, err := s.products.Fetch(ctx, out[i].ProductID, force)
			if err != nil {
				return err
			}
			out[i].Product = product
			return nil
		})
	}
	return out, g.Wait()
}

// Reset clears the local view. The server cart is untouched.
func (s *CartStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.errMsg = ""
	s.loading = false
	// Loads still in flight must not resurrect the cleared state.
	s.loadSeq++
}

// AddToCart adds qty units of a product, merging into an existing line.
func (s *CartStore) AddToCart(ctx context.Context, productID int64, qty int) error {
	if !hasToken(s.tokens) {
		s.setErr(domain.ErrUnauthenticated)
		return domain.ErrUnauthenticated
	}
	if qty < 1 || qty > s.opts.MaxQuantity {
		return s.invalidQuantity(qty)
	}
	if existing, ok := s.line(productID); ok && existing.Quantity+qty > s.opts.MaxQuantity {
		return s.invalidQuantity(existing.Quantity + qty)
	}

	product, err := s.products.Fetch(ctx, productID, false)
	if err != nil {
		s.setErr(err)
		return err
	}

	err = optimistic(ctx,
		func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i := range s.items {
				if s.items[i].ProductID == productID {
					s.items[i].Quantity += qty
					return
				}
			}
			s.items = append(s.items, domain.LineItem{
				ProductID: productID,
				Quantity:  qty,
				UnitPrice: product.Price,
				Product:   product,
			})
		},
		func(ctx context.Context) error {
			_, err := s.api.Post(ctx, "/cart/add", domain.CartMutation{ProductID: productID, Quantity: qty})
			return err
		},
		s.Load,
	)
	if err != nil {
		s.setErr(err)
		return err
	}

	// New lines only learn their server id from a reload.
	if lerr := s.Load(ctx); lerr != nil {
		s.log.Warn().Err(lerr).Int64("product_id", productID).Msg("reload after add failed")
	}
	return nil
}

// UpdateQuantity sets the quantity of a line. Quantity <= 0 removes it.
// Only one update per product may be in flight.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return s.RemoveFromCart(ctx, productID)
	}
	if qty > s.opts.MaxQuantity {
		return s.invalidQuantity(qty)
	}
	if _, ok := s.line(productID); !ok {
		return fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
	}
	if !s.updating.begin(productID) {
		return domain.ErrUpdateInProgress
	}
	defer s.updating.end(productID)

	err := mutate(ctx, s,
		func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i := range s.items {
				if s.items[i].ProductID == productID {
					s.items[i].Quantity = qty
				}
			}
		},
		func(ctx context.Context) error {
			_, err := s.api.Patch(ctx, "/cart/update", domain.CartMutation{ProductID: productID, Quantity: qty})
			return err
		},
	)
	if err != nil {
		s.setErr(err)
	}
	return err
}

func (s *CartStore) RemoveFromCart(ctx context.Context, productID int64) error {
	if !s.updating.begin(productID) {
		return domain.ErrUpdateInProgress
	}
	defer s.updating.end(productID)

	err := mutate(ctx, s,
		func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			kept := s.items[:0:0]
			for _, item := range s.items {
				if item.ProductID != productID {
					kept = append(kept, item)
				}
			}
			s.items = kept
		},
		func(ctx context.Context) error {
			_, err := s.api.Delete(ctx, fmt.Sprintf("/cart/remove/%d", productID), nil)
			return err
		},
	)
	if err != nil {
		s.setErr(err)
	}
	return err
}

// CheckStock re-fetches live stock for every line, bypassing the cache.
// Server state is not touched; the local lines pick up the fresh detail.
func (s *CartStore) CheckStock(ctx context.Context) ([]domain.LineItem, error) {
	checked, err := s.hydrate(ctx, s.Items(), true)
	if err != nil {
		s.setErr(err)
		return nil, fmt.Errorf("check stock: %w", err)
	}

	fresh := make(map[int64]*domain.Product, len(checked))
	for _, item := range checked {
		fresh[item.ProductID] = item.Product
	}
	s.mu.Lock()
	for i := range s.items {
		if p, ok := fresh[s.items[i].ProductID]; ok && p != nil {
			s.items[i].Product = p
		}
	}
	s.mu.Unlock()
	return checked, nil
}

// AdjustCartQuantities clamps every stock issue down to the available stock
// through the regular update path. Different products adjust concurrently.
func (s *CartStore) AdjustCartQuantities(ctx context.Context, items []domain.LineItem) error {
	var g errgroup.Group
	for _, item := range domain.StockIssues(items) {
		g.Go(func() error {
			return s.UpdateQuantity(ctx, item.ProductID, item.Product.Stock)
		})
	}
	return g.Wait()
}

func (s *CartStore) line(productID int64) (domain.LineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return domain.LineItem{}, false
}

func (s *CartStore) invalidQuantity(qty int) error {
	err := fmt.Errorf("%w: %d (allowed 1-%d)", domain.ErrInvalidQuantity, qty, s.opts.MaxQuantity)
	s.setErr(err)
	return err
}

func (s *CartStore) mark() loadMark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadMark{seq: s.loadSeq, pending: s.loading}
}

func (s *CartStore) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = domain.UserMessage(err)
}

// Items returns a copy of the line items.
func (s *CartStore) Items() []domain.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Count is the number of lines, not the sum of quantities.
func (s *CartStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Total is the payable amount; out-of-stock lines are excluded.
func (s *CartStore) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CartTotal(s.items)
}

func (s *CartStore) IsUpdating(productID int64) bool {
	return s.updating.has(productID)
}

func (s *CartStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *CartStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *CartStore) Open() {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
}

func (s *CartStore) Close() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

func (s *CartStore) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

func (s *CartStore) Snapshot() CartSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]domain.LineItem, len(s.items))
	copy(items, s.items)
	return CartSnapshot{
		Items:    items,
		Count:    len(items),
		Total:    domain.CartTotal(items),
		Updating: s.updating.list(),
		Open:     s.open,
		Loading:  s.loading,
		Error:    s.errMsg,
	}
}
