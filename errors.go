package goGate

import (
	"errors"

	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/jwt"
	"github.com/MrEthical07/goGate/session"
)

var (
	// ErrConfig is returned by Build for a missing or weak secret and any invalid setting.
	ErrConfig = errors.New("invalid gate configuration")
	// ErrUnauthorized is an exported constant or variable used by the gate.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenMissing reports a protected request without a token.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenMalformed reports a token that is not three non-empty dot-separated segments.
	ErrTokenMalformed = jwt.ErrTokenMalformed
	// ErrTokenSignatureInvalid reports a token whose signature or encoding does not verify.
	ErrTokenSignatureInvalid = jwt.ErrTokenSignatureInvalid
	// ErrTokenExpired reports a correctly signed token past its expiry.
	ErrTokenExpired = jwt.ErrTokenExpired
	// ErrTokenInvalid is returned by Refresh when the presented token does not verify.
	ErrTokenInvalid = jwt.ErrTokenInvalid
	// ErrTokenNotInStore reports a token that was revoked or expired server-side.
	ErrTokenNotInStore = errors.New("token not in store")
	// ErrStoreUnavailable reports that the token store could not be reached.
	// It is never used for an absent token.
	ErrStoreUnavailable = session.ErrStoreUnavailable
	// ErrRateLimited is returned when a limiter rejects a request.
	ErrRateLimited = rate.ErrRateLimited
	// ErrLimiterUnavailable is returned by fail-closed limiters whose backend could not decide.
	ErrLimiterUnavailable = rate.ErrStoreUnavailable
	// ErrUnknownLimiter is returned for a policy name not present in Config.Limits.
	ErrUnknownLimiter = errors.New("unknown rate limit policy")
	// ErrGateNotReady is returned by methods on a nil or unbuilt Gate.
	ErrGateNotReady = errors.New("gate not initialized")
)
