package security

import "time"

// Report summarizes the security-relevant posture of a configured engine.
type Report struct {
	SigningAlgorithm      string
	SessionTTL            time.Duration
	SessionAudience       string
	SessionRole           string
	ConstantTimeCompare   bool
	DuplicateKeysRejected bool
	StorageBackend        string
	LinkCodeTTL           time.Duration
	LinkCodeLength        int
	VerifyThrottleActive  bool
	RedeemThrottleActive  bool
	AuditEnabled          bool
	SessionsEnabled       bool
	Warnings              []string
}

type ReportInput struct {
	SigningAlgorithm     string
	SessionTTL           time.Duration
	SessionAudience      string
	SessionRole          string
	StorageBackend       string
	LinkCodeTTL          time.Duration
	LinkCodeLength       int
	EnableVerifyThrottle bool
	MaxVerifyFailures    int
	EnableRedeemThrottle bool
	MaxRedeemFailures    int
	ThrottleBackend      bool
	AuditEnabled         bool
	SessionsDisabled     bool
}

const (
	longSessionTTL     = 30 * 24 * time.Hour
	longLinkCodeTTL    = time.Hour
	shortLinkCodeBound = 8
)

func BuildReport(input ReportInput) Report {
	verifyThrottle := input.EnableVerifyThrottle && input.ThrottleBackend && input.MaxVerifyFailures > 0
	redeemThrottle := input.EnableRedeemThrottle && input.ThrottleBackend && input.MaxRedeemFailures > 0

	var warnings []string
	if input.SessionTTL > longSessionTTL {
		warnings = append(warnings, "session ttl exceeds 30 days")
	}
	if input.LinkCodeTTL > longLinkCodeTTL {
		warnings = append(warnings, "link codes stay redeemable for more than an hour")
	}
	if input.LinkCodeLength < shortLinkCodeBound && !redeemThrottle {
		warnings = append(warnings, "short link codes without redeem throttling")
	}
	if input.SessionsDisabled {
		warnings = append(warnings, "no session signing secret, session issuing disabled")
	}
	if (input.EnableVerifyThrottle || input.EnableRedeemThrottle) && !input.ThrottleBackend {
		warnings = append(warnings, "throttling enabled without a redis client")
	}

	return Report{
		SigningAlgorithm:      input.SigningAlgorithm,
		SessionTTL:            input.SessionTTL,
		SessionAudience:       input.SessionAudience,
		SessionRole:           input.SessionRole,
		ConstantTimeCompare:   true,
		DuplicateKeysRejected: true,
		StorageBackend:        input.StorageBackend,
		LinkCodeTTL:           input.LinkCodeTTL,
		LinkCodeLength:        input.LinkCodeLength,
		VerifyThrottleActive:  verifyThrottle,
		RedeemThrottleActive:  redeemThrottle,
		AuditEnabled:          input.AuditEnabled,
		SessionsEnabled:       !input.SessionsDisabled,
		Warnings:              warnings,
	}
}
