package tglink

import (
	"context"
	"testing"
	"time"
)

func buildAuditTestEngine(t *testing.T, cfg Config, sink AuditSink) *Engine {
	t.Helper()

	_, rdb := newTestRedis(t)
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	cfg.Audit.DropIfFull = false
	return newTestEngine(t, cfg, rdb, func(b *Builder) { b.WithAuditSink(sink) })
}

func nextAuditEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func TestAuditLinkLifecycle(t *testing.T) {
	sink := NewChannelSink(16)
	cfg := testConfig()
	engine := buildAuditTestEngine(t, cfg, sink)

	ctx := WithRequestID(WithClientIP(context.Background(), "198.51.100.7"), "req-1")
	payload := signedInitData(t, cfg.Bot.Token, 42)

	code, err := engine.IssueLinkCode(ctx, testBackendUserID)
	if err != nil {
		t.Fatalf("issue link code: %v", err)
	}
	ev := nextAuditEvent(t, sink)
	if ev.EventType != auditEventLinkCodeIssued || ev.BackendUserID != testBackendUserID || !ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Metadata["expires_at"] == "" || ev.Metadata["request_id"] != "req-1" {
		t.Fatalf("unexpected metadata %v", ev.Metadata)
	}

	if _, err := engine.RedeemLinkCode(ctx, payload, code.Code); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	ev = nextAuditEvent(t, sink)
	if ev.EventType != auditEventLinkRedeemed || ev.ExternalUserID != "42" || ev.IP != "198.51.100.7" {
		t.Fatalf("unexpected event %+v", ev)
	}

	if _, err := engine.RedeemLinkCode(ctx, payload, code.Code); err == nil {
		t.Fatal("expected second redeem to fail")
	}
	ev = nextAuditEvent(t, sink)
	if ev.EventType != auditEventLinkRejected || ev.Success || ev.Error != string(auditErrLinkCodeUsed) {
		t.Fatalf("unexpected event %+v", ev)
	}

	if _, err := engine.IssueSession(ctx, payload); err != nil {
		t.Fatalf("issue session: %v", err)
	}
	ev = nextAuditEvent(t, sink)
	if ev.EventType != auditEventSessionIssued || ev.BackendUserID != testBackendUserID {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestAuditVerifyFailureAndNotLinked(t *testing.T) {
	sink := NewChannelSink(16)
	cfg := testConfig()
	engine := buildAuditTestEngine(t, cfg, sink)
	ctx := context.Background()

	if _, err := engine.IssueSession(ctx, "user=x&hash=00"); err == nil {
		t.Fatal("expected verification failure")
	}
	ev := nextAuditEvent(t, sink)
	if ev.EventType != auditEventVerifyFailed || ev.Error != string(auditErrNotAuthenticated) {
		t.Fatalf("unexpected event %+v", ev)
	}

	res, err := engine.IssueSession(ctx, signedInitData(t, cfg.Bot.Token, 5))
	if err != nil || res.Linked {
		t.Fatalf("expected not linked, got %+v %v", res, err)
	}
	ev = nextAuditEvent(t, sink)
	if ev.EventType != auditEventSessionNotLinked || ev.ExternalUserID != "5" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestAuditRateLimitEvent(t *testing.T) {
	sink := NewChannelSink(16)
	cfg := testConfig()
	cfg.Security.EnableVerifyThrottle = true
	cfg.Security.MaxVerifyFailures = 1
	engine := buildAuditTestEngine(t, cfg, sink)
	ctx := WithClientIP(context.Background(), "198.51.100.7")

	_, _ = engine.VerifyInitData(ctx, "hash=00")
	_ = nextAuditEvent(t, sink)

	if _, err := engine.VerifyInitData(ctx, "hash=00"); err != ErrVerifyRateLimited {
		t.Fatalf("expected ErrVerifyRateLimited, got %v", err)
	}
	ev := nextAuditEvent(t, sink)
	if ev.EventType != auditEventRateLimitTriggered || ev.Metadata["scope"] != "verify" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	sink := NewChannelSink(4)
	_, rdb := newTestRedis(t)
	engine := newTestEngine(t, testConfig(), rdb, func(b *Builder) { b.WithAuditSink(sink) })

	if _, err := engine.IssueLinkCode(context.Background(), testBackendUserID); err != nil {
		t.Fatalf("issue link code: %v", err)
	}

	select {
	case ev := <-sink.Events():
		t.Fatalf("unexpected event with audit disabled: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
	if engine.AuditDropped() != 0 {
		t.Fatal("expected no drops")
	}
}
