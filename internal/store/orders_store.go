package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"skincare-client/internal/domain"
	"skincare-client/internal/infrastructure/api"
	"skincare-client/pkg/logger"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// OrdersStore lists past orders and drives checkout across the cart and address stores.
type OrdersStore struct {
	api       Requester
	tokens    api.TokenSource
	products  *ProductCache
	cart      *CartStore
	addresses *AddressStore
	limit     int
	log       zerolog.Logger

	mu         sync.RWMutex
	orders     []domain.Order
	loading    bool
	submitting bool
	errMsg     string
	loadSeq    uint64
}

func NewOrdersStore(requester Requester, tokens api.TokenSource, products *ProductCache, cart *CartStore, addresses *AddressStore, hydrateConcurrency int) *OrdersStore {
	if hydrateConcurrency < 1 {
		hydrateConcurrency = 1
	}
	return &OrdersStore{
		api:       requester,
		tokens:    tokens,
		products:  products,
		cart:      cart,
		addresses: addresses,
		limit:     hydrateConcurrency,
		log:       logger.WithStore("orders"),
	}
}

// Load fetches the order history, newest first.
func (s *OrdersStore) Load(ctx context.Context) error {
	if !hasToken(s.tokens) {
		s.Reset()
		return nil
	}

	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	s.loading = true
	s.mu.Unlock()

	orders, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.loadSeq {
		return err
	}
	s.loading = false
	if err != nil {
		s.errMsg = domain.UserMessage(err)
		if errors.Is(err, domain.ErrUnauthenticated) {
			s.orders = nil
		}
		return err
	}
	s.orders = orders
	s.errMsg = ""
	return nil
}

func (s *OrdersStore) fetch(ctx context.Context) ([]domain.Order, error) {
	resp, err := s.api.Get(ctx, "/orders")
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	var env domain.Envelope[[]domain.Order]
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	orders := env.Body
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *OrdersStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = nil
	s.errMsg = ""
	s.loading = false
	s.loadSeq++
}

// Order fetches one order with product detail attached to its lines.
func (s *OrdersStore) Order(ctx context.Context, id int64) (*domain.Order, error) {
	if !hasToken(s.tokens) {
		return nil, domain.ErrUnauthenticated
	}
	resp, err := s.api.Get(ctx, fmt.Sprintf("/orders/%d", id))
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	var env domain.Envelope[domain.Order]
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	order := env.Body

	var g errgroup.Group
	g.SetLimit(s.limit)
	for i := range order.Items {
		if order.Items[i].Product != nil {
			continue
		}
		g.Go(func() error {
			product, err := s.products.Fetch(ctx, order.Items[i].ProductID, false)
			if err != nil {
				return err
			}
			order.Items[i].Product = product
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Int64("order_id", id).Msg("order hydration incomplete")
	}
	return &order, nil
}

// Checkout places an order for the current cart to the selected address.
// It refuses while any line exceeds live stock, and requotes shipping when
// the held quote no longer matches the cart or the address.
func (s *OrdersStore) Checkout(ctx context.Context) (*domain.CheckoutResult, error) {
	if !hasToken(s.tokens) {
		s.setErr(domain.ErrUnauthenticated)
		return nil, domain.ErrUnauthenticated
	}
	if s.cart.Count() == 0 {
		s.setErr(domain.ErrEmptyCart)
		return nil, domain.ErrEmptyCart
	}
	addr, ok := s.addresses.Selected()
	if !ok {
		s.setErr(domain.ErrNoAddressSelected)
		return nil, domain.ErrNoAddressSelected
	}

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return nil, domain.ErrUpdateInProgress
	}
	s.submitting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	// The order is built from the server cart, never from pending local edits.
	if err := s.cart.Load(ctx); err != nil {
		s.setErr(err)
		return nil, fmt.Errorf("checkout: %w", err)
	}
	if s.cart.Count() == 0 {
		s.setErr(domain.ErrEmptyCart)
		return nil, domain.ErrEmptyCart
	}

	items, err := s.cart.CheckStock(ctx)
	if err != nil {
		s.setErr(err)
		return nil, err
	}
	if issues := domain.StockIssues(items); len(issues) > 0 {
		err := fmt.Errorf("%w: %d line(s)", domain.ErrStockIssues, len(issues))
		s.setErr(err)
		return nil, err
	}

	if s.addresses.IsShippingStale(items) {
		if _, err := s.addresses.CalculateShipping(ctx, items); err != nil {
			s.setErr(err)
			return nil, err
		}
	}
	quote, _ := s.addresses.ShippingQuote()

	req := domain.CheckoutRequest{
		AddressID:    addr.ID,
		ShippingCost: quote.Cost,
		Items:        make([]domain.CartMutation, 0, len(items)),
	}
	for _, item := range items {
		req.Items = append(req.Items, domain.CartMutation{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	resp, err := s.api.Post(ctx, "/orders", req)
	if err != nil {
		s.setErr(err)
		return nil, fmt.Errorf("checkout: %w", err)
	}
	var env domain.Envelope[domain.CheckoutResult]
	if err := resp.Decode(&env); err != nil {
		s.setErr(err)
		return nil, fmt.Errorf("checkout: %w", err)
	}

	// The server empties the cart when the order is created.
	bg := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.Go(func() error { return s.cart.Load(bg) })
	g.Go(func() error { return s.Load(bg) })
	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Int64("order_id", env.Body.OrderID).Msg("refresh after checkout failed")
	}

	s.log.Info().Int64("order_id", env.Body.OrderID).Msg("order placed")
	result := env.Body
	return &result, nil
}

func (s *OrdersStore) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

func (s *OrdersStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *OrdersStore) Submitting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submitting
}

func (s *OrdersStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *OrdersStore) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = domain.UserMessage(err)
}
