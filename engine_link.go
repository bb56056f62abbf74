package tglink

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/tglink/internal/flows"
)

// RedeemLinkCode verifies initData and exchanges code for a durable link
// between the payload's identity and the backend user that issued the code.
//
// Errors: ErrNotAuthenticated or ErrVerifyRateLimited from verification,
// ErrLinkCodeInvalid for an empty, unknown, used or expired code,
// ErrLinkRateLimited, and ErrLinkBackendUnavailable. Storage is not touched
// when verification fails or code is empty.
func (e *Engine) RedeemLinkCode(ctx context.Context, initData, code string) (*LinkResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claim, err := e.VerifyInitData(ctx, initData)
	if err != nil {
		return nil, err
	}
	externalUserID := ExternalUserID(claim)

	res := flows.RunRedeemLink(ctx, externalUserID, code, e.flows.RedeemLink)
	switch res.Failure {
	case flows.RedeemLinkFailureEmptyCode, flows.RedeemLinkFailureRejected:
		e.metricInc(MetricLinkRejected)
		err := fmt.Errorf("%w: %w", ErrLinkCodeInvalid, res.Err)
		e.emitAudit(ctx, auditEventLinkRejected, false, externalUserID, "", err, nil)
		return nil, err
	case flows.RedeemLinkFailureRateLimited:
		e.metricInc(MetricLinkRateLimited)
		e.emitRateLimit(ctx, "redeem", externalUserID, ErrLinkRateLimited)
		return nil, ErrLinkRateLimited
	case flows.RedeemLinkFailureBackend:
		e.metricInc(MetricLinkBackendError)
		e.logger.Error("link redemption failed", "error", res.Err)
		err := fmt.Errorf("%w: %v", ErrLinkBackendUnavailable, res.Err)
		e.emitAudit(ctx, auditEventLinkBackendFailure, false, externalUserID, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricLinkRedeemed)
	e.emitAudit(ctx, auditEventLinkRedeemed, true, externalUserID, res.BackendUserID, nil, nil)

	return &LinkResult{
		ExternalUserID: externalUserID,
		BackendUserID:  res.BackendUserID,
	}, nil
}

// IssueLinkCode generates a single-use code that links whichever mini-app
// identity redeems it first to backendUserID. backendUserID must be a UUID.
func (e *Engine) IssueLinkCode(ctx context.Context, backendUserID string) (*LinkCode, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunIssueLinkCode(ctx, backendUserID, e.flows.IssueLinkCode)
	switch res.Failure {
	case flows.IssueLinkCodeFailureInvalidUser:
		return nil, res.Err
	case flows.IssueLinkCodeFailureGenerate:
		return nil, fmt.Errorf("generating link code: %w", res.Err)
	case flows.IssueLinkCodeFailureStore:
		e.logger.Error("storing link code failed", "error", res.Err)
		return nil, fmt.Errorf("%w: %v", ErrLinkBackendUnavailable, res.Err)
	}

	e.metricInc(MetricLinkCodeIssued)
	e.emitAudit(ctx, auditEventLinkCodeIssued, true, "", backendUserID, nil, func() map[string]string {
		return map[string]string{"expires_at": res.ExpiresAt.UTC().Format(time.RFC3339)}
	})

	return &LinkCode{
		Code:          res.Code,
		BackendUserID: backendUserID,
		ExpiresAt:     res.ExpiresAt,
	}, nil
}
