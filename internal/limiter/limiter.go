package limiter

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"gitlab.com/coderunner.net/internal/metrics"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a global token bucket and one bucket per client IP.
type RateLimiter struct {
	globalLimiter *rate.Limiter
	ipRate        rate.Limit
	ipBurst       int

	mu      sync.Mutex
	perIP   map[string]*ipLimiter
	onLimit func(w http.ResponseWriter, r *http.Request)
}

func NewRateLimiter(globalRPS float64, perIPRPS float64, perIPBurst int) *RateLimiter {
	burst := int(globalRPS) * 2
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		globalLimiter: rate.NewLimiter(rate.Limit(globalRPS), burst),
		ipRate:        rate.Limit(perIPRPS),
		ipBurst:       perIPBurst,
		perIP:         make(map[string]*ipLimiter),
		onLimit: func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
		},
	}
}

// OnLimit replaces the response written for a rejected request.
func (rl *RateLimiter) OnLimit(fn func(w http.ResponseWriter, r *http.Request)) {
	if fn != nil {
		rl.onLimit = fn
	}
}

func (rl *RateLimiter) getIPLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	entry, ok := rl.perIP[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(rl.ipRate, rl.ipBurst)}
		rl.perIP[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (rl *RateLimiter) Allow(ip string) bool {
	if !rl.getIPLimiter(ip).Allow() || !rl.globalLimiter.Allow() {
		metrics.RejectedTotal.WithLabelValues("rate_limit").Inc()
		return false
	}
	return true
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			rl.onLimit(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP prefers the first X-Forwarded-For hop and falls back to the peer address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// StartCleanup drops per-IP buckets idle for longer than maxIdle until ctx ends.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.sweep(now.Add(-maxIdle))
			}
		}
	}()
}

func (rl *RateLimiter) sweep(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for ip, entry := range rl.perIP {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.perIP, ip)
			removed++
		}
	}
	return removed
}
