package httputil

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client address from request headers.
// It handles proxy scenarios by checking headers in this order:
//  1. X-Forwarded-For (extracts first/client IP from comma-separated list)
//  2. X-Real-IP (single IP from reverse proxy)
//  3. RemoteAddr (direct connection)
//
// Example X-Forwarded-For: "203.0.113.195, 70.41.3.18, 150.172.238.178"
// Returns: "203.0.113.195" (the original client)
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// ClientKey is GetClientIP without the port, suitable as a per-client
// rate limiting key.
func ClientKey(r *http.Request) string {
	ip := GetClientIP(r)
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
