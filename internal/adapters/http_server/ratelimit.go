package httpserver

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	RPS   float64 // sustained requests per second per client; <= 0 disables
	Burst int
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// clientLimiter keeps one token bucket per client IP.
type clientLimiter struct {
	mu        sync.Mutex
	cfg       RateLimitConfig
	clients   map[string]*visitor
	idle      time.Duration
	lastSweep time.Time
}

func (c *clientLimiter) get(key string, now time.Time) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastSweep) > c.idle {
		for k, v := range c.clients {
			if now.Sub(v.seen) > c.idle {
				delete(c.clients, k)
			}
		}
		c.lastSweep = now
	}

	v, ok := c.clients[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(rate.Limit(c.cfg.RPS), c.cfg.Burst)}
		c.clients[key] = v
	}
	v.seen = now
	return v.lim
}

// clientIP is the host part of RemoteAddr, which RealIP rewrites only when
// the server sits behind a trusted proxy.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// RateLimit throttles each client IP independently.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	cl := &clientLimiter{cfg: cfg, clients: make(map[string]*visitor), idle: 10 * time.Minute}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			lim := cl.get(clientIP(r), now)
			res := lim.ReserveN(now, 1)
			if delay := res.DelayFrom(now); delay > 0 {
				res.CancelAt(now)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "write rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
