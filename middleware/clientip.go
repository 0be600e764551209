package middleware

import (
	"net"
	"net/http"
	"strings"

	goGate "github.com/MrEthical07/goGate"
)

// forwardedHeaders are consulted in order when forwarded headers are trusted.
var forwardedHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"Proxy-Client-IP",
	"WL-Proxy-Client-IP",
}

// ClientIP returns middleware that resolves the caller's address once and
// stores it with goGate.WithClientIP.
//
// Only set trustForwarded when every request passes through a proxy that
// overwrites these headers; otherwise any caller can pick its own address.
func ClientIP(trustForwarded bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := goGate.WithClientIP(r.Context(), ResolveClientIP(r, trustForwarded))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResolveClientIP returns the request's client address.
//
// With trustForwarded, the first non-empty, non-"unknown" value among
// X-Forwarded-For, X-Real-IP, Proxy-Client-IP and WL-Proxy-Client-IP wins,
// taking only the first comma-separated entry. Otherwise, or when none is
// usable, RemoteAddr is used with its port stripped.
func ResolveClientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		for _, h := range forwardedHeaders {
			v := r.Header.Get(h)
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
			v = strings.TrimSpace(v)
			if v == "" || strings.EqualFold(v, "unknown") {
				continue
			}
			return v
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
