package middlewares

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"spendly/internal/utils"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per authenticated user, or per client IP for
// anonymous requests.
type RateLimiter struct {
	mu           sync.Mutex
	ipVisitors   map[string]*visitor
	userVisitors map[string]*visitor
	limit        rate.Limit
	burst        int
	idle         time.Duration
}

func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		ipVisitors:   make(map[string]*visitor),
		userVisitors: make(map[string]*visitor),
		limit:        limit,
		burst:        burst,
		idle:         3 * time.Minute,
	}
}

func (rl *RateLimiter) getLimiter(key string, isUser bool) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	visitors := rl.ipVisitors
	if isUser {
		visitors = rl.userVisitors
	}

	v, exists := visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.ipVisitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.ipVisitors, ip)
		}
	}
	for userID, v := range rl.userVisitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.userVisitors, userID)
		}
	}
}

// CleanupVisitors forgets idle visitors every interval until ctx is done.
func (rl *RateLimiter) CleanupVisitors(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.sweep(now)
		}
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var limiter *rate.Limiter
		kind := "ip"

		if userID, ok := utils.UserIDFromContext(r.Context()); ok {
			limiter = rl.getLimiter(userID, true)
			kind = "user"
		} else {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			limiter = rl.getLimiter(ip, false)
		}

		if !limiter.Allow() {
			utils.RateLimitedTotal.WithLabelValues(kind).Inc()
			utils.SendJSONError(w, "Too many requests, slow down", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
