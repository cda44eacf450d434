package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"skincare-client/internal/domain"
	"skincare-client/internal/infrastructure/api"
	"skincare-client/pkg/cache"

	"github.com/shopspring/decimal"
)

const (
	provincesKey      = "location:provinces"
	localitiesKeyTmpl = "location:localities:%d"
)

type AddressSnapshot struct {
	Addresses   []domain.Address      `json:"addresses"`
	SelectedID  int64                 `json:"selectedId,omitempty"`
	Quote       *domain.ShippingQuote `json:"quote,omitempty"`
	FieldErrors map[string]string     `json:"fieldErrors,omitempty"`
	Loading     bool                  `json:"loading"`
	Error       string                `json:"error,omitempty"`
}

// AddressStore holds saved addresses, the checkout selection and the last shipping quote.
// The selection is local to this session; the server does not persist it.
type AddressStore struct {
	api         Requester
	tokens      api.TokenSource
	locations   cache.CacheService
	locationTTL time.Duration

	mu          sync.RWMutex
	addresses   []domain.Address
	selectedID  int64
	quote       *domain.ShippingQuote
	fieldErrors map[string]string
	loading     bool
	errMsg      string
	loadSeq     uint64
}

func NewAddressStore(requester Requester, tokens api.TokenSource, locations cache.CacheService, locationTTL time.Duration) *AddressStore {
	return &AddressStore{
		api:         requester,
		tokens:      tokens,
		locations:   locations,
		locationTTL: locationTTL,
	}
}

func (s *AddressStore) Load(ctx context.Context) error {
	if !hasToken(s.tokens) {
		s.Reset()
		return nil
	}

	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	s.loading = true
	s.mu.Unlock()

	addresses, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.loadSeq {
		return err
	}
	s.loading = false
	if err != nil {
		s.errMsg = domain.UserMessage(err)
		if errors.Is(err, domain.ErrUnauthenticated) {
			s.clear()
		}
		return err
	}
	s.addresses = addresses
	s.errMsg = ""
	if _, ok := s.find(s.selectedID); !ok {
		s.selectedID = 0
		s.quote = nil
	}
	return nil
}

func (s *AddressStore) fetch(ctx context.Context) ([]domain.Address, error) {
	resp, err := s.api.Get(ctx, "/addresses")
	if err != nil {
		return nil, fmt.Errorf("load addresses: %w", err)
	}
	var env domain.Envelope[[]domain.Address]
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("load addresses: %w", err)
	}
	return env.Body, nil
}

func (s *AddressStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	s.errMsg = ""
	s.loading = false
	s.loadSeq++
}

// clear drops addresses, selection and quote. Caller holds s.mu.
func (s *AddressStore) clear() {
	s.addresses = nil
	s.selectedID = 0
	s.quote = nil
	s.fieldErrors = nil
}

// Create validates the input locally, then saves it and reloads the list.
func (s *AddressStore) Create(ctx context.Context, in domain.AddressInput) error {
	if err := in.Validate(); err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			s.mu.Lock()
			s.fieldErrors = vErr.Fields
			s.mu.Unlock()
		}
		return err
	}
	if !hasToken(s.tokens) {
		s.setErr(domain.ErrUnauthenticated)
		return domain.ErrUnauthenticated
	}

	s.mu.Lock()
	s.fieldErrors = nil
	s.mu.Unlock()

	if _, err := s.api.Post(ctx, "/addresses", in); err != nil {
		s.setErr(err)
		return err
	}
	return s.Load(ctx)
}

func (s *AddressStore) Delete(ctx context.Context, id int64) error {
	err := mutate(ctx, s,
		func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			kept := s.addresses[:0:0]
			for _, a := range s.addresses {
				if a.ID != id {
					kept = append(kept, a)
				}
			}
			s.addresses = kept
			if s.selectedID == id {
				s.selectedID = 0
				s.quote = nil
			}
		},
		func(ctx context.Context) error {
			_, err := s.api.Delete(ctx, fmt.Sprintf("/addresses/%d", id), nil)
			return err
		},
	)
	if err != nil {
		s.setErr(err)
	}
	return err
}

// Select makes a saved address the checkout address. A quote for another address is dropped.
func (s *AddressStore) Select(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.find(id); !ok {
		return fmt.Errorf("address %d: %w", id, domain.ErrNotFound)
	}
	s.selectedID = id
	if s.quote != nil && s.quote.AddressID != id {
		s.quote = nil
	}
	return nil
}

func (s *AddressStore) Selected() (domain.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(s.selectedID)
}

// find looks up an address by id. Caller holds s.mu.
func (s *AddressStore) find(id int64) (domain.Address, bool) {
	if id == 0 {
		return domain.Address{}, false
	}
	for _, a := range s.addresses {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Address{}, false
}

// CalculateShipping quotes the given cart lines to the selected address.
// Without a selection it records the failure and sends nothing.
// The quote stays until the next call; cart changes do not recalculate it.
func (s *AddressStore) CalculateShipping(ctx context.Context, items []domain.LineItem) (decimal.Decimal, error) {
	addr, ok := s.Selected()
	if !ok {
		s.setErr(domain.ErrNoAddressSelected)
		return decimal.Zero, domain.ErrNoAddressSelected
	}
	shippable := domain.ShippingItemsFrom(items)
	if len(shippable) == 0 {
		s.setErr(domain.ErrEmptyCart)
		return decimal.Zero, domain.ErrEmptyCart
	}

	req := domain.ShippingRequest{
		Items: shippable,
		Direction: domain.ShippingDirection{
			Locality:   addr.Locality.Name,
			Province:   addr.ProvinceName(),
			PostalCode: addr.PostalCode,
		},
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	resp, err := s.api.Post(ctx, "/shipping", req)
	var env domain.Envelope[decimal.Decimal]
	if err == nil {
		err = resp.Decode(&env)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.errMsg = domain.UserMessage(err)
		return decimal.Zero, fmt.Errorf("calculate shipping: %w", err)
	}
	s.errMsg = ""
	s.quote = &domain.ShippingQuote{
		Cost:         env.Body,
		AddressID:    addr.ID,
		Signature:    domain.CartSignature(items),
		CalculatedAt: time.Now(),
	}
	return env.Body, nil
}

func (s *AddressStore) ShippingQuote() (domain.ShippingQuote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.quote == nil {
		return domain.ShippingQuote{}, false
	}
	return *s.quote, true
}

// IsShippingStale reports whether the held quote no longer matches the
// selected address or the given cart lines.
func (s *AddressStore) IsShippingStale(items []domain.LineItem) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.quote == nil {
		return true
	}
	return s.quote.AddressID != s.selectedID || s.quote.Signature != domain.CartSignature(items)
}

// Provinces lists provinces for the address form, memoized in the shared cache.
func (s *AddressStore) Provinces(ctx context.Context) ([]domain.Province, error) {
	if val, found := s.locations.Get(provincesKey); found {
		return slices.Clone(val.([]domain.Province)), nil
	}
	resp, err := s.api.Get(ctx, "/provinces")
	if err != nil {
		return nil, fmt.Errorf("load provinces: %w", err)
	}
	var env domain.Envelope[[]domain.Province]
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("load provinces: %w", err)
	}
	s.locations.Set(provincesKey, env.Body, s.locationTTL)
	return slices.Clone(env.Body), nil
}

func (s *AddressStore) Localities(ctx context.Context, provinceID int64) ([]domain.Locality, error) {
	key := fmt.Sprintf(localitiesKeyTmpl, provinceID)
	if val, found := s.locations.Get(key); found {
		return slices.Clone(val.([]domain.Locality)), nil
	}
	resp, err := s.api.Get(ctx, fmt.Sprintf("/provinces/%d/localities", provinceID))
	if err != nil {
		return nil, fmt.Errorf("load localities: %w", err)
	}
	var env domain.Envelope[[]domain.Locality]
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("load localities: %w", err)
	}
	s.locations.Set(key, env.Body, s.locationTTL)
	return slices.Clone(env.Body), nil
}

func (s *AddressStore) Addresses() []domain.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Address, len(s.addresses))
	copy(out, s.addresses)
	return out
}

func (s *AddressStore) FieldErrors() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fieldErrors
}

func (s *AddressStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *AddressStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *AddressStore) Snapshot() AddressSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addresses := make([]domain.Address, len(s.addresses))
	copy(addresses, s.addresses)
	var quote *domain.ShippingQuote
	if s.quote != nil {
		q := *s.quote
		quote = &q
	}
	return AddressSnapshot{
		Addresses:   addresses,
		SelectedID:  s.selectedID,
		Quote:       quote,
		FieldErrors: s.fieldErrors,
		Loading:     s.loading,
		Error:       s.errMsg,
	}
}

func (s *AddressStore) mark() loadMark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadMark{seq: s.loadSeq, pending: s.loading}
}

func (s *AddressStore) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = domain.UserMessage(err)
}
