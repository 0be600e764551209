package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSink writes each event as one structured log line.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink returns a sink that logs to l at info level, or warn for
// unsuccessful events.
func NewLogSink(l zerolog.Logger) *LogSink {
	return &LogSink{log: l.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Emit(_ context.Context, event Event) {
	if s == nil {
		return
	}

	e := s.log.Info()
	if !event.Success {
		e = s.log.Warn()
	}
	e = e.Time("at", event.Timestamp).
		Str("event", event.EventType).
		Bool("success", event.Success)

	if event.UserID != "" {
		e = e.Str("user_id", event.UserID)
	}
	if event.TokenID != "" {
		e = e.Str("token_id", event.TokenID)
	}
	if event.IP != "" {
		e = e.Str("ip", event.IP)
	}
	if event.Method != "" {
		e = e.Str("method", event.Method).Str("path", event.Path)
	}
	if event.Error != "" {
		e = e.Str("error", event.Error)
	}
	if len(event.Metadata) > 0 {
		dict := zerolog.Dict()
		for k, v := range event.Metadata {
			dict = dict.Str(k, v)
		}
		e = e.Dict("metadata", dict)
	}
	e.Msg("audit")
}
