package httputil

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// GetClientIP extracts the client address, honouring X-Forwarded-For (first
// hop) and X-Real-IP before falling back to RemoteAddr without its port.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ParseUnixParam parses a Unix-seconds query parameter. An empty value yields
// (nil, nil); a malformed or negative one is an error so callers can answer 400.
func ParseUnixParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid unix timestamp %q", s)
	}
	if secs < 0 {
		return nil, fmt.Errorf("unix timestamp must not be negative: %d", secs)
	}
	t := time.Unix(secs, 0).UTC()
	return &t, nil
}
