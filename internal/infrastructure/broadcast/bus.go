// Package broadcast carries auth-change notifications between the stores of
// one process (MemoryBus) or between processes (RedisBus).
package broadcast

import (
	"context"
	"sync"

	"skincare-client/internal/domain"
	"skincare-client/pkg/logger"
)

type Bus interface {
	Publish(ctx context.Context, event domain.AuthEvent) error
	// Subscribe delivers events until ctx is done, then closes the channel.
	Subscribe(ctx context.Context) (<-chan domain.AuthEvent, error)
}

const subscriberBuffer = 16

// MemoryBus fans events out to in-process subscribers.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[chan domain.AuthEvent]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[chan domain.AuthEvent]struct{})}
}

func (b *MemoryBus) Publish(_ context.Context, event domain.AuthEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			logger.Warn().Str("kind", event.Kind).Msg("auth bus subscriber full, dropping event")
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan domain.AuthEvent, error) {
	ch := make(chan domain.AuthEvent, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
