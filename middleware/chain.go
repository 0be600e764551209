package middleware

import "net/http"

// Chain wraps h with mw so that mw[0] runs first.
func Chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
