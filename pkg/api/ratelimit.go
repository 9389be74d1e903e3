package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ethpandaops/perfstore/pkg/config"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterEntryTTL        = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet tracks one token bucket per client IP and evicts entries
// that have been idle for longer than limiterEntryTTL.
type limiterSet struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
}

func newLimiterSet(requestsPerMinute int) *limiterSet {
	ls := &limiterSet{
		clients: make(map[string]*clientLimiter, 64),
		rps:     rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   requestsPerMinute, // Allow burst up to the per-minute limit.
	}

	go ls.evictIdle()

	return ls
}

func (ls *limiterSet) get(ip string) *rate.Limiter {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	entry, ok := ls.clients[ip]
	if !ok {
		entry = &clientLimiter{
			limiter: rate.NewLimiter(ls.rps, ls.burst),
		}
		ls.clients[ip] = entry
	}

	entry.lastSeen = time.Now()

	return entry.limiter
}

func (ls *limiterSet) evictIdle() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		ls.mu.Lock()

		for ip, entry := range ls.clients {
			if time.Since(entry.lastSeen) > limiterEntryTTL {
				delete(ls.clients, ip)
			}
		}

		ls.mu.Unlock()
	}
}

// rateLimitMiddleware returns a per-IP rate limiting middleware.
func (s *server) rateLimitMiddleware(
	cfg config.RateLimitConfig,
) func(http.Handler) http.Handler {
	limiters := newLimiterSet(cfg.RequestsPerMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.get(extractIP(r)).Allow() {
				writeJSON(w, http.StatusTooManyRequests,
					errorResponse{"rate limit exceeded"})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractIP returns the client's IP address from the request.
func extractIP(r *http.Request) string {
	// Prefer X-Forwarded-For when a reverse proxy set it; the first
	// entry in the chain is the originating client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}
