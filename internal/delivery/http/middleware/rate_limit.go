package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"skincare-client/pkg/utils"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles gateway calls per client IP. Stale visitors are
// dropped by a background sweep that stops on Shutdown.
type RateLimiter struct {
	visitors  map[string]*visitor
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	sweep     time.Duration
	idleAfter time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewRateLimiter(ctx context.Context, limit rate.Limit, burst int, sweep, idleAfter time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     limit,
		burst:     burst,
		sweep:     sweep,
		idleAfter: idleAfter,
	}
	rl.ctx, rl.cancel = context.WithCancel(ctx)
	go rl.sweepLoop()
	return rl
}

// Middleware rejects over-budget calls with 429 and a Retry-After hint
// so the UI can back off instead of hammering the stores.
func (rl *RateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := rl.limiterFor(getClientIP(r)).Reserve()
			if !res.OK() {
				utils.WriteError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				utils.WriteError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.dropIdle()
		case <-rl.ctx.Done():
			return
		}
	}
}

func (rl *RateLimiter) dropIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, v := range rl.visitors {
		if time.Since(v.lastSeen) > rl.idleAfter {
			delete(rl.visitors, ip)
		}
	}
}

// Shutdown stops the sweep goroutine.
func (rl *RateLimiter) Shutdown() {
	rl.cancel()
}
