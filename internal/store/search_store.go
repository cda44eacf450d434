package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"skincare-client/internal/domain"
	"skincare-client/internal/infrastructure/api"
)

// SearchStore runs product searches where the last issued query wins.
// Issuing a query cancels the one in flight; a reply that still arrives
// for a superseded query is dropped.
type SearchStore struct {
	api Requester

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	query   string
	results []domain.Product
	loading bool
	errMsg  string
}

func NewSearchStore(requester Requester) *SearchStore {
	return &SearchStore{api: requester}
}

// Search returns ErrSuperseded when a newer query replaced this one before it committed.
func (s *SearchStore) Search(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	seq := s.seq
	s.query = query
	if query == "" {
		s.results = nil
		s.loading = false
		s.errMsg = ""
		s.mu.Unlock()
		return nil, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.loading = true
	s.mu.Unlock()
	defer cancel()

	results, err := s.fetch(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return nil, domain.ErrSuperseded
	}
	s.cancel = nil
	s.loading = false
	if err != nil {
		if api.IsCanceled(err) {
			// Cancelled by the caller, not by a newer query; keep what we had.
			return nil, err
		}
		s.errMsg = domain.UserMessage(err)
		return nil, err
	}
	s.results = results
	s.errMsg = ""
	out := make([]domain.Product, len(results))
	copy(out, results)
	return out, nil
}

func (s *SearchStore) fetch(ctx context.Context, query string) ([]domain.Product, error) {
	resp, err := s.api.Get(ctx, "/products/search?query="+url.QueryEscape(query))
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	var env domain.Envelope[[]domain.Product]
	if err := resp.Decode(&env); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return env.Body, nil
}

// Cancel aborts the in-flight query, if any. Its reply will not be committed.
func (s *SearchStore) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	s.loading = false
}

func (s *SearchStore) Results() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, len(s.results))
	copy(out, s.results)
	return out
}

func (s *SearchStore) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

func (s *SearchStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *SearchStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}
