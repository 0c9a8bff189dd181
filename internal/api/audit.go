package api

import (
	"log/slog"
	"net"
	"net/http"
)

// auditLog writes a structured audit entry for a mutating request.
func auditLog(r *http.Request, clientIP string, status int) {
	slog.Info("audit: mutation",
		"method", r.Method,
		"path", r.URL.Path,
		"route", r.Pattern,
		"status", status,
		"client_ip", clientIP,
	)
}

// remoteIP returns the host part of RemoteAddr. Forwarding headers are only
// honoured through the rate limiter's trusted-proxy list.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
