package goGate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

func buildAuditTestGate(t *testing.T, enabled bool, sink AuditSink) *Gate {
	t.Helper()

	cfg := testConfig()
	cfg.Audit.Enabled = enabled
	cfg.Audit.BufferSize = 16
	cfg.Audit.DropIfFull = true

	_, rdb := newTestRedis(t)
	gate, err := New().WithConfig(cfg).WithRedis(rdb).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return gate
}

func waitEvent(t *testing.T, events <-chan AuditEvent) AuditEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("expected audit event to be received")
	}
	return AuditEvent{}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	gate := buildAuditTestGate(t, false, sink)

	_, _ = gate.IssueSession(context.Background(), alice(), false)
	_ = gate.Authorize(context.Background(), AuthorizeRequest{Method: http.MethodPost, Path: "/article/add"})
	gate.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditSessionLifecycleEvents(t *testing.T) {
	sink := NewChannelSink(16)
	gate := buildAuditTestGate(t, true, sink)
	defer gate.Close()

	ctx := WithClientIP(context.Background(), "198.51.100.33")
	tok, err := gate.IssueSession(ctx, alice(), true)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	ev := waitEvent(t, sink.Events())
	if ev.EventType != auditEventSessionIssued || !ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.UserID != "u-1" || ev.TokenID == "" {
		t.Fatalf("expected user and token id, got %+v", ev)
	}
	if ev.IP != "198.51.100.33" {
		t.Fatalf("expected IP 198.51.100.33, got %q", ev.IP)
	}
	if ev.Metadata["remember_me"] != "true" {
		t.Fatalf("expected remember_me metadata, got %v", ev.Metadata)
	}

	if err := gate.Revoke(ctx, tok.Token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	ev = waitEvent(t, sink.Events())
	if ev.EventType != auditEventSessionRevoked || !ev.Success {
		t.Fatalf("expected revoke event, got %+v", ev)
	}
}

func TestAuditDenyCarriesRouteButNotToken(t *testing.T) {
	sink := NewChannelSink(16)
	gate := buildAuditTestGate(t, true, sink)
	defer gate.Close()

	const secretish = "aaa.bbb.ccc"
	_ = gate.Authorize(context.Background(), AuthorizeRequest{Method: http.MethodPost, Path: "/article/add", Token: secretish})

	ev := waitEvent(t, sink.Events())
	if ev.EventType != auditEventAuthorizeDenied || ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Method != http.MethodPost || ev.Path != "/article/add" {
		t.Fatalf("expected method and path, got %q %q", ev.Method, ev.Path)
	}
	if ev.Error != string(auditErrTokenNotInStore) {
		t.Fatalf("expected %q, got %q", auditErrTokenNotInStore, ev.Error)
	}

	raw, _ := json.Marshal(ev)
	if strings.Contains(string(raw), secretish) {
		t.Fatal("token leaked into audit event")
	}
}

func TestAuditRateLimitedEvent(t *testing.T) {
	sink := NewChannelSink(16)
	gate := buildAuditTestGate(t, true, sink)
	defer gate.Close()

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		_ = gate.Allow(ctx, LimitAuthLocal, "203.0.113.5", http.MethodPost, "/user/login")
	}

	ev := waitEvent(t, sink.Events())
	if ev.EventType != auditEventRateLimited {
		t.Fatalf("expected rate_limited event, got %+v", ev)
	}
	if ev.Metadata["policy"] != LimitAuthLocal || ev.Error != string(auditErrRateLimited) {
		t.Fatalf("unexpected rate limit event %+v", ev)
	}
}

func TestJSONWriterSinkOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{EventType: "a"})
	sink.Emit(context.Background(), AuditEvent{EventType: "b"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev AuditEvent
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil || ev.EventType != "b" {
		t.Fatalf("unexpected second line %q: %v", lines[1], err)
	}
}

func TestAuditErrorCodeClassification(t *testing.T) {
	tests := map[error]AuditErrorCode{
		nil:                      "",
		ErrTokenExpired:          auditErrTokenExpired,
		ErrTokenSignatureInvalid: auditErrTokenInvalid,
		ErrStoreUnavailable:      auditErrStoreUnavailable,
		ErrLimiterUnavailable:    auditErrLimiterBackend,
		ErrUnauthorized:          auditErrUnauthorized,
	}
	for err, want := range tests {
		if got := auditErrorCode(err); got != want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
}
