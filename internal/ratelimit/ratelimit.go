package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gaissmai/bart"
	"golang.org/x/time/rate"

	"github.com/pobradovic08/netdash/internal/model"
)

// Limiter implements per-client rate limiting with periodic removal of
// clients that have gone quiet.
type Limiter struct {
	mu              sync.Mutex
	clients         map[string]*clientEntry
	rate            rate.Limit
	burst           int
	cleanupInterval time.Duration
	staleAfter      time.Duration
	done            chan struct{}
	closeOnce       sync.Once
	trusted         *bart.Table[struct{}]
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a per-client limiter that allows requestsPerInterval requests
// per interval with a burst of the same size.
func New(requestsPerInterval int, interval, cleanupInterval, staleAfter time.Duration) (*Limiter, error) {
	if requestsPerInterval <= 0 {
		return nil, errors.New("ratelimit: requests_per_interval must be positive")
	}
	if interval <= 0 {
		return nil, errors.New("ratelimit: interval must be positive")
	}
	if cleanupInterval <= 0 {
		return nil, errors.New("ratelimit: cleanup_interval must be positive")
	}
	if staleAfter <= 0 {
		return nil, errors.New("ratelimit: stale_after must be positive")
	}

	l := &Limiter{
		clients:         make(map[string]*clientEntry),
		rate:            rate.Limit(float64(requestsPerInterval) / interval.Seconds()),
		burst:           requestsPerInterval,
		cleanupInterval: cleanupInterval,
		staleAfter:      staleAfter,
		done:            make(chan struct{}),
		trusted:         new(bart.Table[struct{}]),
	}

	go l.cleanupLoop()
	return l, nil
}

// SetTrustedProxies replaces the set of proxies whose forwarding headers are
// honoured. Entries may be single addresses or CIDR prefixes.
func (l *Limiter) SetTrustedProxies(proxies []string) error {
	trusted := new(bart.Table[struct{}])
	for _, p := range proxies {
		pfx, err := parseProxy(p)
		if err != nil {
			return err
		}
		trusted.Insert(pfx, struct{}{})
	}
	l.mu.Lock()
	l.trusted = trusted
	l.mu.Unlock()
	return nil
}

func parseProxy(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		pfx, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("ratelimit: trusted proxy %q: %w", s, err)
		}
		return pfx.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("ratelimit: trusted proxy %q: %w", s, err)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func (l *Limiter) isTrusted(remote string) bool {
	addr, err := netip.ParseAddr(remote)
	if err != nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.trusted.Lookup(addr.Unmap())
	return ok
}

func (l *Limiter) getClient(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.clients[ip]
	if !exists {
		entry = &clientEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Allow reports whether a request from ip may proceed now.
func (l *Limiter) Allow(ip string) bool {
	return l.getClient(ip).Allow()
}

// RetryAfter returns the number of whole seconds until ip may send again.
func (l *Limiter) RetryAfter(ip string) int {
	reservation := l.getClient(ip).Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return int(math.Ceil(delay.Seconds()))
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.done:
			return
		}
	}
}

func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, entry := range l.clients {
		if now.Sub(entry.lastSeen) > l.staleAfter {
			delete(l.clients, ip)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// ClientIP returns the address a request is attributed to. Forwarding
// headers are only consulted when the direct peer is a trusted proxy.
func (l *Limiter) ClientIP(r *http.Request) string {
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	if !l.isTrusted(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// leftmost entry is the originating client
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if _, err := netip.ParseAddr(first); err == nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}
	return remote
}

// Middleware rejects requests over the limit with a 429 problem response
// carrying a Retry-After header.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := l.ClientIP(r)
		if !l.Allow(clientIP) {
			retryAfter := l.RetryAfter(clientIP)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			model.WriteProblem(w, http.StatusTooManyRequests,
				fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retryAfter))
			return
		}
		next.ServeHTTP(w, r)
	})
}
