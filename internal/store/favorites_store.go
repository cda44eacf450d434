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
	"golang.org/x/sync/errgroup"
)

// FavoritesStore mirrors the user's favorite products as a set.
type FavoritesStore struct {
	api      Requester
	tokens   api.TokenSource
	products *ProductCache
	limit    int
	log      zerolog.Logger
	updating *inflight

	mu      sync.RWMutex
	items   []domain.Favorite
	members map[int64]struct{}
	loading bool
	errMsg  string
	loadSeq uint64
}

func NewFavoritesStore(requester Requester, tokens api.TokenSource, products *ProductCache, hydrateConcurrency int) *FavoritesStore {
	if hydrateConcurrency < 1 {
		hydrateConcurrency = 1
	}
	return &FavoritesStore{
		api:      requester,
		tokens:   tokens,
		products: products,
		limit:    hydrateConcurrency,
		log:      logger.WithStore("favorites"),
		updating: newInflight(),
		members:  make(map[int64]struct{}),
	}
}

func (s *FavoritesStore) Load(ctx context.Context) error {
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
		return err
	}
	s.loading = false
	if err != nil {
		s.errMsg = domain.UserMessage(err)
		if errors.Is(err, domain.ErrUnauthenticated) {
			s.replace(nil)
		}
		return err
	}
	s.replace(items)
	s.errMsg = ""
	return nil
}

func (s *FavoritesStore) fetch(ctx context.Context) ([]domain.Favorite, error) {
	resp, err := s.api.Get(ctx, "/favorites")
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	var env domain.Envelope[[]domain.Favorite]
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}

	items := dedupeFavorites(env.Body)
	var g errgroup.Group
	g.SetLimit(s.limit)
	for i := range items {
		g.Go(func() error {
			product, err := s.products.Fetch(ctx, items[i].ProductID, false)
			if err != nil {
				return err
			}
			items[i].Product = product
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Msg("favorites hydration incomplete")
	}
	return items, nil
}

func dedupeFavorites(in []domain.Favorite) []domain.Favorite {
	seen := make(map[int64]struct{}, len(in))
	out := make([]domain.Favorite, 0, len(in))
	for _, f := range in {
		if _, dup := seen[f.ProductID]; dup {
			continue
		}
		seen[f.ProductID] = struct{}{}
		out = append(out, f)
	}
	return out
}

// replace swaps the item list and rebuilds the membership set wholesale.
// Caller holds s.mu.
func (s *FavoritesStore) replace(items []domain.Favorite) {
	s.items = items
	s.members = make(map[int64]struct{}, len(items))
	for _, f := range items {
		s.members[f.ProductID] = struct{}{}
	}
}

func (s *FavoritesStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(nil)
	s.errMsg = ""
	s.loading = false
	s.loadSeq++
}

// Add favorites a product. The given summary renders until hydration replaces it.
func (s *FavoritesStore) Add(ctx context.Context, summary domain.Product) error {
	if !hasToken(s.tokens) {
		s.setErr(domain.ErrUnauthenticated)
		return domain.ErrUnauthenticated
	}
	id := summary.ID
	if s.IsProductFavorite(id) {
		return nil
	}
	if !s.updating.begin(id) {
		return domain.ErrUpdateInProgress
	}
	defer s.updating.end(id)

	err := mutate(ctx, s,
		func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.members[id]; ok {
				return
			}
			p := summary
			s.items = append(s.items, domain.Favorite{ProductID: id, Product: &p})
			s.members[id] = struct{}{}
		},
		func(ctx context.Context) error {
			_, err := s.api.Post(ctx, "/favorites", domain.FavoriteMutation{ProductID: id})
			return err
		},
	)
	if err != nil {
		s.setErr(err)
		return err
	}

	if product, herr := s.products.Fetch(ctx, id, false); herr == nil {
		s.mu.Lock()
		for i := range s.items {
			if s.items[i].ProductID == id {
				s.items[i].Product = product
			}
		}
		s.mu.Unlock()
	}
	return nil
}

func (s *FavoritesStore) Remove(ctx context.Context, productID int64) error {
	if !s.IsProductFavorite(productID) {
		return nil
	}
	if !s.updating.begin(productID) {
		return domain.ErrUpdateInProgress
	}
	defer s.updating.end(productID)

	err := mutate(ctx, s,
		func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			kept := s.items[:0:0]
			for _, f := range s.items {
				if f.ProductID != productID {
					kept = append(kept, f)
				}
			}
			s.items = kept
			delete(s.members, productID)
		},
		func(ctx context.Context) error {
			_, err := s.api.Delete(ctx, "/favorites", domain.FavoriteMutation{ProductID: productID})
			return err
		},
	)
	if err != nil {
		s.setErr(err)
	}
	return err
}

// Toggle flips membership and reports whether the product is now a favorite.
func (s *FavoritesStore) Toggle(ctx context.Context, summary domain.Product) (bool, error) {
	if s.IsProductFavorite(summary.ID) {
		err := s.Remove(ctx, summary.ID)
		return s.IsProductFavorite(summary.ID), err
	}
	err := s.Add(ctx, summary)
	return s.IsProductFavorite(summary.ID), err
}

func (s *FavoritesStore) IsProductFavorite(productID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[productID]
	return ok
}

func (s *FavoritesStore) IsUpdating(productID int64) bool {
	return s.updating.has(productID)
}

func (s *FavoritesStore) Items() []domain.Favorite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Favorite, len(s.items))
	copy(out, s.items)
	return out
}

func (s *FavoritesStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *FavoritesStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *FavoritesStore) mark() loadMark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadMark{seq: s.loadSeq, pending: s.loading}
}

func (s *FavoritesStore) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = domain.UserMessage(err)
}
