package store

import (
	"context"
	"fmt"
	"time"

	"skincare-client/internal/domain"
	"skincare-client/pkg/cache"
)

// ProductCache memoizes product detail by id for cart and favorites hydration.
// With a zero TTL entries never expire; callers that need live stock force a fetch.
type ProductCache struct {
	cache cache.CacheService
	api   Requester
	ttl   time.Duration
}

func NewProductCache(c cache.CacheService, api Requester, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &ProductCache{cache: c, api: api, ttl: ttl}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

// Get returns a copy of the cached product.
func (p *ProductCache) Get(id int64) (*domain.Product, bool) {
	val, found := p.cache.Get(productKey(id))
	if !found {
		return nil, false
	}
	product := *val.(*domain.Product)
	return &product, true
}

func (p *ProductCache) Set(product *domain.Product) {
	if product == nil {
		return
	}
	stored := *product
	p.cache.Set(productKey(product.ID), &stored, p.ttl)
}

func (p *ProductCache) Invalidate(id int64) {
	p.cache.Delete(productKey(id))
}

// Purge drops every cached product.
func (p *ProductCache) Purge() {
	p.cache.DeletePrefix("product:")
}

// Fetch serves from cache unless force is set; misses go to GET /products/{id}.
func (p *ProductCache) Fetch(ctx context.Context, id int64, force bool) (*domain.Product, error) {
	if !force {
		if product, ok := p.Get(id); ok {
			return product, nil
		}
	}

	resp, err := p.api.Get(ctx, fmt.Sprintf("/products/%d", id))
	if err != nil {
		return nil, fmt.Errorf("fetch product %d: %w", id, err)
	}
	var env domain.Envelope[domain.Product]
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("fetch product %d: %w", id, err)
	}
	if env.Body.ID == 0 {
		env.Body.ID = id
	}

	p.Set(&env.Body)
	product := env.Body
	return &product, nil
}
