package api

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pobradovic08/netdash/internal/ratelimit"
	"github.com/pobradovic08/netdash/internal/schema"
	"github.com/pobradovic08/netdash/internal/store"
)

func TestPanicRecovery(t *testing.T) {
	mw := &middleware{}
	h := mw.wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/devices", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Error("panic value leaked into the response")
	}
}

func TestCORS(t *testing.T) {
	mw := &middleware{corsOrigin: "https://dash.example.com"}
	called := false
	h := mw.wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/devices", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if called {
		t.Error("preflight reached the handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example.com" {
		t.Errorf("unexpected allow-origin %q", got)
	}
}

func TestRateLimitAppliesToMutationsOnly(t *testing.T) {
	limiter, err := ratelimit.New(1, time.Minute, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}
	t.Cleanup(limiter.Close)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, reg)
	mw := &middleware{limiter: limiter, metrics: metrics}
	h := mw.wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/alerts/a1", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(http.MethodDelete); rec.Code != http.StatusNoContent {
		t.Fatalf("first mutation: expected 204, got %d", rec.Code)
	}
	rec := send(http.MethodDelete)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second mutation: expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	for i := 0; i < 3; i++ {
		if rec := send(http.MethodGet); rec.Code != http.StatusNoContent {
			t.Fatalf("read %d: expected 204, got %d", i, rec.Code)
		}
	}
	if got := testutil.ToFloat64(metrics.RateLimitRejectionsTotal); got != 1 {
		t.Errorf("expected 1 rejection, got %v", got)
	}
}

func TestMetricsUseRoutePattern(t *testing.T) {
	v, err := schema.New(context.Background())
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, reg)
	h := NewHandler(Deps{Store: store.NewMemStore(), Validator: v, Metrics: metrics})

	for _, path := range []string{"/api/devices/a", "/api/devices/b"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("GET", "GET /api/devices/{id}", "404"))
	if got != 2 {
		t.Errorf("expected 2 requests on the route pattern, got %v", got)
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "netdash_http_requests_total") {
		t.Error("expected request counter in exposition")
	}
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := schema.New(context.Background())
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	h := NewHandler(Deps{Store: store.NewMemStore(), Validator: v, StaticDir: dir})

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/app.js", http.StatusOK, "console.log"},
		{"/devices/42", http.StatusOK, "<html>app</html>"},
		{"/api/missing", http.StatusNotFound, "No API endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("expected body to contain %q, got %q", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestServerServeAndShutdown(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewServer(ServerDeps{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  5 * time.Second,
	})
	done := make(chan error, 1)
	go func() { done <- srv.Serve(lis) }()

	resp, err := http.Get("http://" + lis.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("expected 418, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve returned %v", err)
	}
}
