package tglink

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tglink/internal/stores"
)

const (
	auditEventVerifyFailed         = "verify_failed"
	auditEventLinkRedeemed         = "link_redeemed"
	auditEventLinkRejected         = "link_rejected"
	auditEventLinkBackendFailure   = "link_backend_failure"
	auditEventLinkCodeIssued       = "link_code_issued"
	auditEventSessionIssued        = "session_issued"
	auditEventSessionNotLinked     = "session_not_linked"
	auditEventSessionFailure       = "session_failure"
	auditEventRateLimitTriggered   = "rate_limit_triggered"
	auditEventThrottleBackendError = "throttle_backend_error"
)

// AuditErrorCode is the stable error label carried in [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrNotAuthenticated     AuditErrorCode = "not_authenticated"
	auditErrRateLimited          AuditErrorCode = "rate_limited"
	auditErrLinkCodeNotFound     AuditErrorCode = "link_code_not_found"
	auditErrLinkCodeUsed         AuditErrorCode = "link_code_used"
	auditErrLinkCodeExpired      AuditErrorCode = "link_code_expired"
	auditErrLinkCodeInvalid      AuditErrorCode = "link_code_invalid"
	auditErrBackendUserInvalid   AuditErrorCode = "backend_user_invalid"
	auditErrNotLinked            AuditErrorCode = "not_linked"
	auditErrSessionSigningFailed AuditErrorCode = "session_signing_failed"
	auditErrUnavailable          AuditErrorCode = "backend_unavailable"
	auditErrInternal             AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	externalUserID string,
	backendUserID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["request_id"] = requestID
	}

	event := AuditEvent{
		Timestamp:      time.Now().UTC(),
		EventType:      eventType,
		ExternalUserID: externalUserID,
		BackendUserID:  backendUserID,
		IP:             ClientIPFromContext(ctx),
		Success:        success,
		Metadata:       metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, externalUserID string, err error) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, externalUserID, "", err, func() map[string]string {
		return map[string]string{"scope": scope}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return auditErrNotAuthenticated
	case errors.Is(err, ErrVerifyRateLimited),
		errors.Is(err, ErrLinkRateLimited):
		return auditErrRateLimited
	case errors.Is(err, stores.ErrLinkCodeUsed):
		return auditErrLinkCodeUsed
	case errors.Is(err, stores.ErrLinkCodeExpired):
		return auditErrLinkCodeExpired
	case errors.Is(err, stores.ErrLinkCodeNotFound):
		return auditErrLinkCodeNotFound
	case errors.Is(err, ErrLinkCodeInvalid):
		return auditErrLinkCodeInvalid
	case errors.Is(err, ErrBackendUserInvalid):
		return auditErrBackendUserInvalid
	case errors.Is(err, stores.ErrIdentityLinkMissing):
		return auditErrNotLinked
	case errors.Is(err, ErrSessionSigningFailed):
		return auditErrSessionSigningFailed
	case errors.Is(err, ErrLinkBackendUnavailable),
		errors.Is(err, stores.ErrLinkStoreBackend):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
