package goGate

import (
	"io"
	"time"

	internalaudit "github.com/MrEthical07/goGate/internal/audit"
	"github.com/rs/zerolog"
)

// Outcome is the terminal state of an authorization decision.
type Outcome int

const (
	// Deny rejects the request before the handler runs.
	Deny Outcome = iota
	// AllowAnonymous runs the handler without an identity.
	AllowAnonymous
	// AllowAuthenticated runs the handler with the resolved identity.
	AllowAuthenticated
)

func (o Outcome) String() string {
	switch o {
	case AllowAnonymous:
		return "allow_anonymous"
	case AllowAuthenticated:
		return "allow_authenticated"
	default:
		return "deny"
	}
}

// AuthorizeRequest is the input to Gate.Authorize.
type AuthorizeRequest struct {
	Method string
	Path   string
	// Token is the raw header value; Authorize cleans it.
	Token string
}

// Decision is the result of Gate.Authorize.
//
// Err is set for Deny. On AllowAnonymous it records why a presented token was
// ignored, if one was. Degraded is true when the store could not be consulted
// and a read route fell back to anonymous.
type Decision struct {
	Outcome      Outcome
	Class        RouteClass
	Identity     Identity
	Err          error
	Degraded     bool
	ExpiringSoon bool
}

// Allowed reports whether the handler may run.
func (d Decision) Allowed() bool {
	return d.Outcome != Deny
}

// SessionToken is a token recorded in the store by IssueSession or Refresh.
type SessionToken struct {
	Token      string    `json:"token"`
	RememberMe bool      `json:"rememberMe"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// AuditEvent is a structured audit record emitted by the gate.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the gate's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// LogSink is an [AuditSink] that writes each event as a zerolog line.
type LogSink = internalaudit.LogSink

// NewLogSink creates a [LogSink] writing to l.
func NewLogSink(l zerolog.Logger) *LogSink {
	return internalaudit.NewLogSink(l)
}

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
