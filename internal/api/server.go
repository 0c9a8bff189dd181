package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pobradovic08/netdash/internal/model"
	"github.com/pobradovic08/netdash/internal/ratelimit"
)

// Server is the REST API server.
type Server struct {
	httpServer *http.Server
}

// ServerDeps holds the dependencies injected into the API server.
type ServerDeps struct {
	Handler      http.Handler
	ListenAddr   string
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	// TLSConfig enables HTTPS when set.
	TLSConfig *tls.Config
}

// NewServer creates an API server around an already wrapped handler.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         deps.ListenAddr,
			Handler:      deps.Handler,
			WriteTimeout: deps.WriteTimeout,
			ReadTimeout:  deps.ReadTimeout,
			TLSConfig:    deps.TLSConfig,
		},
	}
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("API listen: %w", err)
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	var err error
	if s.httpServer.TLSConfig != nil {
		slog.Info("starting API server", "addr", lis.Addr().String(), "tls", true)
		err = s.httpServer.ServeTLS(lis, "", "")
	} else {
		slog.Info("starting API server", "addr", lis.Addr().String(), "tls", false)
		err = s.httpServer.Serve(lis)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// middleware wraps the mux in the request pipeline: logging, CORS, rate
// limiting of mutations, then panic recovery.
type middleware struct {
	limiter    *ratelimit.Limiter
	metrics    *Metrics
	corsOrigin string
}

func (m *middleware) wrap(h http.Handler) http.Handler {
	h = m.withPanicRecovery(h)
	h = m.withRateLimit(h)
	h = m.withCORS(h)
	h = m.withLogging(h)
	return h
}

func (m *middleware) clientIP(r *http.Request) string {
	if m.limiter != nil {
		return m.limiter.ClientIP(r)
	}
	return remoteIP(r)
}

// Middleware: structured logging, metrics and audit
func (m *middleware) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		elapsed := time.Since(start)

		m.metrics.observe(r.Method, r.Pattern, sw.status, elapsed.Seconds())
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", elapsed,
			"remote_addr", r.RemoteAddr,
		)
		if isMutation(r.Method) {
			auditLog(r, m.clientIP(r), sw.status)
		}
	})
}

// Middleware: CORS headers
func (m *middleware) withCORS(next http.Handler) http.Handler {
	origin := m.corsOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Middleware: rate limiting. Only mutating requests share the per-client
// budget; reads are never limited.
func (m *middleware) withRateLimit(next http.Handler) http.Handler {
	if m.limiter == nil {
		return next
	}
	limited := m.limiter.Middleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isMutation(r.Method) {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Middleware: panic recovery
func (m *middleware) withPanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered in HTTP handler",
					"error", err,
					"path", r.URL.Path,
				)
				model.WriteProblem(w, http.StatusInternalServerError,
					"An unexpected error occurred. Please try again later.")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
