package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newLimiter(t *testing.T, n int) *Limiter {
	t.Helper()
	l, err := New(n, time.Minute, time.Minute, 5*time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name                         string
		n                            int
		interval, cleanup, staleness time.Duration
	}{
		{"zero requests", 0, time.Second, time.Second, time.Second},
		{"zero interval", 1, 0, time.Second, time.Second},
		{"zero cleanup", 1, time.Second, 0, time.Second},
		{"zero stale", 1, time.Second, time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.n, tt.interval, tt.cleanup, tt.staleness); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestAllowBurstPerClient(t *testing.T) {
	l := newLimiter(t, 2)
	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatal("burst requests should be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("other clients have their own budget")
	}
	if got := l.RetryAfter("10.0.0.1"); got <= 0 {
		t.Errorf("RetryAfter = %d, want > 0", got)
	}
}

func TestCleanupRemovesStaleClients(t *testing.T) {
	l := newLimiter(t, 1)
	l.Allow("10.0.0.1")
	l.cleanup(time.Now().Add(10 * time.Minute))

	l.mu.Lock()
	n := len(l.clients)
	l.mu.Unlock()
	if n != 0 {
		t.Fatalf("got %d clients after cleanup, want 0", n)
	}
}

func TestClientIP(t *testing.T) {
	l := newLimiter(t, 1)
	if err := l.SetTrustedProxies([]string{"192.0.2.1", "198.51.100.0/24"}); err != nil {
		t.Fatalf("SetTrustedProxies: %v", err)
	}

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.5:4000", "", "", "203.0.113.5"},
		{"untrusted forwarder", "203.0.113.5:4000", "10.1.1.1", "", "203.0.113.5"},
		{"trusted address", "192.0.2.1:4000", "10.1.1.1, 192.0.2.1", "", "10.1.1.1"},
		{"trusted prefix", "198.51.100.77:4000", "10.2.2.2", "", "10.2.2.2"},
		{"real ip", "192.0.2.1:4000", "", "10.3.3.3", "10.3.3.3"},
		{"garbage header", "192.0.2.1:4000", "not-an-ip", "", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/devices", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := l.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetTrustedProxiesInvalid(t *testing.T) {
	l := newLimiter(t, 1)
	if err := l.SetTrustedProxies([]string{"proxy.local"}); err == nil {
		t.Fatal("expected error for hostname")
	}
}

func TestMiddleware(t *testing.T) {
	l := newLimiter(t, 1)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	do := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/devices", nil)
		r.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	if rec := do(); rec.Code != http.StatusCreated {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %q", ct)
	}
}
