package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"
)

// maxTrackedClients caps the visitor map so an address-rotating client
// cannot grow it without bound. New addresses beyond the cap are
// rejected until cleanup frees slots.
const maxTrackedClients = 100000

// RateLimiter throttles requests per client IP with a token bucket.
// Registration and login are the expensive endpoints behind it: both
// hit the registry and bcrypt, so a burst of abuse is costly.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     float64
	burst    int
}

// visitor is one client's bucket. lastSeen drives idle cleanup and is
// tracked separately from the refill timestamp.
type visitor struct {
	tokens   float64
	refilled time.Time
	lastSeen time.Time
}

// NewRateLimiter allows rate requests per second sustained, with bursts
// up to burst.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		burst:    burst,
	}
}

// Handler enforces the limit and reports it through X-RateLimit-* and
// Retry-After headers. Throttled requests get 429 with a JSON body.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, wait, allowed := rl.take(clientAddr(r))

		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Second).Unix()))
		if !allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Ceil(wait)))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// take spends one token for addr. It returns the tokens left, and when
// the request is denied, the seconds until a token becomes available.
func (rl *RateLimiter) take(addr string) (remaining int, wait float64, allowed bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[addr]
	if !ok {
		if len(rl.visitors) >= maxTrackedClients {
			return 0, 1 / rl.rate, false
		}
		v = &visitor{tokens: float64(rl.burst) - 1, refilled: now, lastSeen: now}
		rl.visitors[addr] = v
		return int(v.tokens), 0, true
	}

	v.tokens += now.Sub(v.refilled).Seconds() * rl.rate
	if v.tokens > float64(rl.burst) {
		v.tokens = float64(rl.burst)
	}
	v.refilled = now
	v.lastSeen = now

	if v.tokens < 1 {
		return 0, (1 - v.tokens) / rl.rate, false
	}
	v.tokens--
	return int(v.tokens), 0, true
}

// StartCleanup evicts visitors idle longer than maxIdle, checking every
// interval. The returned function stops the sweep goroutine.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.sweep(maxIdle)
			}
		}
	}()
	return cancel
}

func (rl *RateLimiter) sweep(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	for addr, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, addr)
		}
	}
}

// Len reports how many client addresses are currently tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// clientAddr keys the bucket off the TCP peer address only. Forwarding
// headers are attacker-controlled and would make the limit trivial to
// sidestep.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
