package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/basket/internal/auth"
)

// RealIP extracts the client's address, preferring CF-Connecting-IP, then
// the first hop of X-Forwarded-For, then RemoteAddr.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// CallerKey keys a request by the signed-in user, falling back to the
// client address for anonymous requests.
func CallerKey(r *http.Request) string {
	if id := auth.UserID(r.Context()); id != "" {
		return "user:" + id
	}
	return "ip:" + RealIP(r)
}

// Rule is a fixed-window quota.
type Rule struct {
	Limit  int
	Window time.Duration
}

type window struct {
	count int
	until time.Time
}

// Limiter counts requests per key against a single Rule.
type Limiter struct {
	rule Rule
	now  func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func NewLimiter(rule Rule) *Limiter {
	return &Limiter{
		rule:    rule,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow records a request for key. When the quota is spent it reports
// false and how long until the window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.until) {
		l.windows[key] = &window{count: 1, until: now.Add(l.rule.Window)}
		return true, 0
	}
	w.count++
	if w.count > l.rule.Limit {
		return false, w.until.Sub(now)
	}
	return true, 0
}

// Sweep drops windows that have already closed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for key, w := range l.windows {
		if !now.Before(w.until) {
			delete(l.windows, key)
			n++
		}
	}
	return n
}

// Run sweeps on every tick until ctx is done.
func (l *Limiter) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Limit rejects requests over the limiter's quota with 429 and a
// Retry-After header.
func Limit(l *Limiter, key func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.Allow(key(r))
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
