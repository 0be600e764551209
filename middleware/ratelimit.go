package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	goGate "github.com/MrEthical07/goGate"
)

// RateLimit returns middleware that charges each request against the named
// gate policy. Rejected requests get 429 with Retry-After set to the policy
// window in seconds; fail-closed backend errors get 503.
//
// The client address comes from the ClientIP middleware when it ran earlier
// in the chain, and from the connection otherwise.
func RateLimit(gate *goGate.Gate, policy string) func(http.Handler) http.Handler {
	retryAfter := "60"
	if window, ok := gate.LimitWindow(policy); ok {
		retryAfter = strconv.Itoa(int(math.Ceil(window.Seconds())))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := goGate.ClientIPFromContext(r.Context())
			if ip == "" {
				ip = ResolveClientIP(r, false)
			}

			if err := gate.Allow(r.Context(), policy, ip, r.Method, r.URL.Path); err != nil {
				if errors.Is(err, goGate.ErrRateLimited) {
					w.Header().Set("Retry-After", retryAfter)
				}
				goGate.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
