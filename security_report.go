package tglink

import "github.com/MrEthical07/tglink/internal/security"

// SecurityReport is the configuration posture returned by [Engine.SecurityReport].
type SecurityReport = security.Report

func buildSecurityReport(cfg Config, throttleBackend, sessionSigner bool) SecurityReport {
	return security.BuildReport(security.ReportInput{
		SigningAlgorithm:     cfg.Session.SigningMethod,
		SessionTTL:           cfg.Session.TTL,
		SessionAudience:      cfg.Session.Audience,
		SessionRole:          cfg.Session.Role,
		StorageBackend:       cfg.Storage.Backend,
		LinkCodeTTL:          cfg.LinkCode.TTL,
		LinkCodeLength:       cfg.LinkCode.Length,
		EnableVerifyThrottle: cfg.Security.EnableVerifyThrottle,
		MaxVerifyFailures:    cfg.Security.MaxVerifyFailures,
		EnableRedeemThrottle: cfg.Security.EnableRedeemThrottle,
		MaxRedeemFailures:    cfg.Security.MaxRedeemFailures,
		ThrottleBackend:      throttleBackend,
		AuditEnabled:         cfg.Audit.Enabled,
		SessionsDisabled:     !sessionSigner,
	})
}
