package server

import (
	"container/list"
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// editorCSP applies to the editor and help pages. Previews get their own
// sandboxing policy in handlePreview.
const editorCSP = "default-src 'self'; " +
	"script-src 'self'; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data: blob:; " +
	"connect-src 'self'; " +
	"frame-src 'self'; " +
	"frame-ancestors 'self'"

// previewCSP turns every preview response into a sandboxed document with a
// unique opaque origin, even when opened outside the editor frame.
const previewCSP = "sandbox allow-scripts"

// SecurityHeadersMiddleware adds security headers to all responses.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			// SAMEORIGIN so the editor can frame /preview.
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", editorCSP)

			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware allows the configured origins to call the session API.
// With no origins configured it is a no-op.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         86400,
	})
}

const (
	// evictionLogInterval is the minimum time between eviction log messages.
	evictionLogInterval = 30 * time.Second

	rateLimitCleanupInterval = 5 * time.Minute
	rateLimitIdleTimeout     = 10 * time.Minute
)

// ipLimiter tracks a per-IP token bucket and its position in the LRU list.
type ipLimiter struct {
	ip       string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter holds one token bucket per client IP, evicting the least
// recently used IP when maxIPs is reached.
type rateLimiter struct {
	rps    rate.Limit
	burst  int
	maxIPs int

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = most recent, back = oldest

	lastEvictLog time.Time
	evictCount   int
}

func newRateLimiter(rps float64, burst, maxIPs int) *rateLimiter {
	if maxIPs <= 0 {
		maxIPs = 10000
	}
	return &rateLimiter{
		rps:    rate.Limit(rps),
		burst:  burst,
		maxIPs: maxIPs,
		items:  make(map[string]*list.Element),
		order:  list.New(),
	}
}

// allow takes a token from the bucket for ip.
func (rl *rateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if elem, ok := rl.items[ip]; ok {
		rl.order.MoveToFront(elem)
		lim := elem.Value.(*ipLimiter)
		lim.lastSeen = now
		return lim.limiter.AllowN(now, 1)
	}

	if rl.order.Len() >= rl.maxIPs {
		rl.evictOldestLocked(now)
	}

	lim := &ipLimiter{
		ip:       ip,
		limiter:  rate.NewLimiter(rl.rps, rl.burst),
		lastSeen: now,
	}
	rl.items[ip] = rl.order.PushFront(lim)
	return lim.limiter.AllowN(now, 1)
}

func (rl *rateLimiter) evictOldestLocked(now time.Time) {
	back := rl.order.Back()
	if back == nil {
		return
	}
	evicted := back.Value.(*ipLimiter)
	rl.order.Remove(back)
	delete(rl.items, evicted.ip)

	rl.evictCount++
	if now.Sub(rl.lastEvictLog) >= evictionLogInterval {
		log.Printf("[RateLimit] Evicted %d least-recent IP(s) (at capacity: %d IPs)", rl.evictCount, rl.maxIPs)
		rl.lastEvictLog = now
		rl.evictCount = 0
	}
}

// cleanup drops IPs idle for longer than rateLimitIdleTimeout. LRU order
// tracks access recency, so the whole list is scanned.
func (rl *rateLimiter) cleanup(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for e := rl.order.Back(); e != nil; {
		lim := e.Value.(*ipLimiter)
		prev := e.Prev()
		if now.Sub(lim.lastSeen) > rateLimitIdleTimeout {
			rl.order.Remove(e)
			delete(rl.items, lim.ip)
			removed++
		}
		e = prev
	}
	return removed
}

func (rl *rateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.order.Len()
}

// RateLimitMiddleware limits requests with a per-IP token bucket.
// rps is the rate limit in requests per second, burst is the maximum burst
// size, and maxIPs is the maximum number of unique IPs to track.
//
// The cleanup goroutine starts immediately and exits when ctx is cancelled;
// the returned channel is closed when it has exited.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, maxIPs int) (func(http.Handler) http.Handler, <-chan struct{}) {
	rl := newRateLimiter(rps, burst, maxIPs)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(rateLimitCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				rl.cleanup(now)
			case <-ctx.Done():
				return
			}
		}
	}()

	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(getClientIP(r), time.Now()) {
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	return middleware, done
}

// getClientIP extracts the client IP from the request.
// It only trusts X-Forwarded-For / X-Real-IP when the immediate peer is a
// loopback or private address (i.e., behind a reverse proxy).
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	peerIP := net.ParseIP(host)
	trustedProxy := peerIP != nil && (peerIP.IsLoopback() || peerIP.IsPrivate())

	if trustedProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	if peerIP != nil {
		return peerIP.String()
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Failed to write JSON response: %v", err)
	}
}
