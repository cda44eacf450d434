// Package store holds the client-side domain stores. Each store mirrors a
// piece of server-owned state, applies mutations optimistically and falls
// back to an authoritative reload when the backend rejects them.
package store

import (
	"context"
	"sort"
	"sync"

	"skincare-client/internal/infrastructure/api"
	"skincare-client/pkg/logger"
)

// Requester is the subset of the REST client the stores depend on.
type Requester interface {
	Get(ctx context.Context, path string) (*api.Response, error)
	Post(ctx context.Context, path string, body interface{}) (*api.Response, error)
	Patch(ctx context.Context, path string, body interface{}) (*api.Response, error)
	Delete(ctx context.Context, path string, body interface{}) (*api.Response, error)
}

// Syncer is a store the auth orchestration reloads on session changes.
type Syncer interface {
	Load(ctx context.Context) error
	Reset()
}

// optimistic applies a local mutation, issues the remote call and, when the
// call fails, replaces local state with a single authoritative reload.
// The remote error is returned after reconciliation.
func optimistic(ctx context.Context, apply func(), remote, reload func(context.Context) error) error {
	if apply != nil {
		apply()
	}
	err := remote(ctx)
	if err == nil {
		return nil
	}

	// Reconcile even when the caller has gone away.
	if rerr := reload(context.WithoutCancel(ctx)); rerr != nil {
		logger.Warn().Err(rerr).AnErr("cause", err).Msg("reconciling reload failed")
	}
	return err
}

// loadMark is a store's load state at one instant.
type loadMark struct {
	seq     uint64
	pending bool
}

// overtaken reports whether a load that was running at m, or started since,
// may have committed server state older than a change applied after m.
func (m loadMark) overtaken(now loadMark) bool {
	return m.pending || now.seq != m.seq
}

// mirror is a store whose local state is replaced wholesale by Load.
type mirror interface {
	Load(ctx context.Context) error
	mark() loadMark
}

// mutate runs an optimistic change against a mirror. When a load could
// have overwritten the change while the remote call was outstanding, a
// successful call is followed by one more reload so the mirror picks the
// change back up from the server.
func mutate(ctx context.Context, m mirror, apply func(), remote func(context.Context) error) error {
	before := m.mark()
	if err := optimistic(ctx, apply, remote, m.Load); err != nil {
		return err
	}
	if before.overtaken(m.mark()) {
		if err := m.Load(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("reload after overtaken mutation failed")
		}
	}
	return nil
}

// inflight tracks product ids with an outstanding mutation.
type inflight struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

func newInflight() *inflight {
	return &inflight{ids: make(map[int64]struct{})}
}

// begin marks id busy. It returns false when id already is.
func (f *inflight) begin(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.ids[id]; busy {
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

func (f *inflight) end(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, id)
}

func (f *inflight) has(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, busy := f.ids[id]
	return busy
}

func (f *inflight) list() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, 0, len(f.ids))
	for id := range f.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func hasToken(tokens api.TokenSource) bool {
	return tokens != nil && tokens.Token() != ""
}
