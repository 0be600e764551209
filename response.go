package goGate

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Envelope is the JSON body of every gate-originated response.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Response codes. 401x means log in again, 429x means back off, 3xxx and 5xx
// mean the service is degraded.
const (
	CodeSuccess            = 200
	CodeUnauthorized       = 401
	CodeTokenMissing       = 4011
	CodeTokenMalformed     = 4012
	CodeTokenInvalid       = 4013
	CodeTokenExpired       = 4014
	CodeTokenRevoked       = 4015
	CodeRateLimited        = 4290
	CodeInternal           = 500
	CodeServiceUnavailable = 503
	CodeStoreError         = 3001
	CodeStoreConnection    = 3002
)

// ErrorResponse maps err to an HTTP status and envelope.
// Unknown errors map to 500 without leaking err's text.
func ErrorResponse(err error) (int, Envelope) {
	switch {
	case err == nil:
		return http.StatusOK, Envelope{Code: CodeSuccess, Message: "success"}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, Envelope{Code: CodeRateLimited, Message: "too many requests, please retry later"}
	case errors.Is(err, ErrLimiterUnavailable):
		return http.StatusServiceUnavailable, Envelope{Code: CodeServiceUnavailable, Message: "service temporarily unavailable"}
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable, Envelope{Code: CodeStoreConnection, Message: "session store unavailable"}
	case errors.Is(err, ErrTokenMissing):
		return http.StatusUnauthorized, Envelope{Code: CodeTokenMissing, Message: "token missing"}
	case errors.Is(err, ErrTokenMalformed):
		return http.StatusUnauthorized, Envelope{Code: CodeTokenMalformed, Message: "token malformed"}
	case errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized, Envelope{Code: CodeTokenExpired, Message: "token expired"}
	case errors.Is(err, ErrTokenNotInStore):
		return http.StatusUnauthorized, Envelope{Code: CodeTokenRevoked, Message: "token revoked or expired, please log in again"}
	case errors.Is(err, ErrTokenSignatureInvalid), errors.Is(err, ErrTokenInvalid):
		return http.StatusUnauthorized, Envelope{Code: CodeTokenInvalid, Message: "token invalid"}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, Envelope{Code: CodeUnauthorized, Message: "unauthorized"}
	default:
		return http.StatusInternalServerError, Envelope{Code: CodeInternal, Message: "internal error"}
	}
}

// WriteJSON writes env with status.
func WriteJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// WriteError writes the envelope ErrorResponse derives from err.
func WriteError(w http.ResponseWriter, err error) {
	status, env := ErrorResponse(err)
	WriteJSON(w, status, env)
}
