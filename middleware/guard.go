package middleware

import (
	"net/http"

	goGate "github.com/MrEthical07/goGate"
)

// Authorize returns middleware that runs gate.Authorize for every request.
//
// A fresh RequestContext is attached to each request and cleared when the
// handler returns, panics included. On AllowAuthenticated the identity is set
// before the handler runs; on Deny the handler is not called and the error
// envelope is written instead.
func Authorize(gate *goGate.Gate) func(http.Handler) http.Handler {
	cfg := gate.Config()
	header := cfg.Token.Header
	if header == "" {
		header = "Authorization"
	}
	soonHeader := cfg.Token.ExpiringSoonHeader

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil {
				goGate.WriteError(w, goGate.ErrGateNotReady)
				return
			}

			ctx, rc := goGate.WithRequestContext(r.Context())
			defer rc.Clear()

			decision := gate.Authorize(ctx, goGate.AuthorizeRequest{
				Method: r.Method,
				Path:   r.URL.Path,
				Token:  r.Header.Get(header),
			})
			if !decision.Allowed() {
				goGate.WriteError(w, decision.Err)
				return
			}

			if decision.Outcome == goGate.AllowAuthenticated {
				rc.Set(decision.Identity)
				if decision.ExpiringSoon && soonHeader != "" {
					w.Header().Set(soonHeader, "true")
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity rejects requests that reach it without an identity. It
// guards handlers mounted on read-fallback routes that must not run
// anonymously.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := goGate.IdentityFromContext(r.Context()); !ok {
			goGate.WriteError(w, goGate.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
