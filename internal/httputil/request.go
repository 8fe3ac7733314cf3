package httputil

import (
	"net/http"
	"strconv"
	"strings"
)

// GetClientIP extracts the real client IP address from request headers.
// It handles proxy scenarios by checking headers in this order:
//  1. X-Forwarded-For (first IP in the comma-separated list)
//  2. X-Real-IP
//  3. RemoteAddr
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	// RemoteAddr is "ip:port"
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx > 0 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}

// ParseIntParam parses an integer query parameter with a default value.
// Returns defaultVal if the parameter is empty or invalid.
func ParseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return defaultVal
}

// ParseLimitOffset extracts limit/offset pagination from query parameters,
// enforcing a maximum limit to prevent excessive queries.
func ParseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (limit, offset int) {
	limit = ParseIntParam(r.URL.Query().Get("limit"), defaultLimit)
	offset = ParseIntParam(r.URL.Query().Get("offset"), 0)

	if limit > maxLimit {
		limit = maxLimit
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
