package security

import (
	"testing"
	"time"
)

func TestBuildReportThrottleNeedsBackend(t *testing.T) {
	r := BuildReport(ReportInput{
		SigningAlgorithm:     "hs256",
		SessionTTL:           30 * 24 * time.Hour,
		LinkCodeTTL:          10 * time.Minute,
		LinkCodeLength:       8,
		EnableVerifyThrottle: true,
		MaxVerifyFailures:    20,
	})
	if r.VerifyThrottleActive {
		t.Fatal("throttle cannot be active without a backend")
	}
	if len(r.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", r.Warnings)
	}
	if !r.ConstantTimeCompare || !r.DuplicateKeysRejected {
		t.Fatal("verifier posture flags must always be set")
	}
}

func TestBuildReportWarnings(t *testing.T) {
	r := BuildReport(ReportInput{
		SessionTTL:     60 * 24 * time.Hour,
		LinkCodeTTL:    2 * time.Hour,
		LinkCodeLength: 6,
	})
	if len(r.Warnings) != 3 {
		t.Fatalf("expected three warnings, got %v", r.Warnings)
	}

	quiet := BuildReport(ReportInput{
		SessionTTL:           30 * 24 * time.Hour,
		LinkCodeTTL:          10 * time.Minute,
		LinkCodeLength:       6,
		EnableRedeemThrottle: true,
		MaxRedeemFailures:    5,
		ThrottleBackend:      true,
	})
	if len(quiet.Warnings) != 0 || !quiet.RedeemThrottleActive || !quiet.SessionsEnabled {
		t.Fatalf("unexpected report: %+v", quiet)
	}
}

func TestBuildReportSessionsDisabled(t *testing.T) {
	r := BuildReport(ReportInput{
		SessionTTL:       30 * 24 * time.Hour,
		LinkCodeTTL:      10 * time.Minute,
		LinkCodeLength:   8,
		SessionsDisabled: true,
	})
	if r.SessionsEnabled {
		t.Fatal("sessions must be reported disabled")
	}
	if len(r.Warnings) != 1 || r.Warnings[0] != "no session signing secret, session issuing disabled" {
		t.Fatalf("unexpected warnings %v", r.Warnings)
	}
}
