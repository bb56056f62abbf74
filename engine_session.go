package tglink

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/tglink/internal/flows"
	"github.com/MrEthical07/tglink/internal/stores"
)

// IssueSession verifies initData and, when the identity is linked, signs a
// session credential for the linked backend user.
//
// An unlinked identity is not an error: the result has Linked false. A failed
// identity lookup is answered the same way and logged. Without a signing
// secret every call fails with ErrSessionsDisabled.
func (e *Engine) IssueSession(ctx context.Context, initData string) (*SessionResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.jwtManager == nil {
		e.metricInc(MetricSessionSignFailure)
		return nil, ErrSessionsDisabled
	}

	claim, err := e.VerifyInitData(ctx, initData)
	if err != nil {
		return nil, err
	}
	externalUserID := ExternalUserID(claim)

	res := flows.RunIssueSession(ctx, externalUserID, e.flows.IssueSession)
	switch res.Failure {
	case flows.IssueSessionFailureNotLinked:
		e.metricInc(MetricSessionNotLinked)
		e.emitAudit(ctx, auditEventSessionNotLinked, false, externalUserID, "", nil, nil)
		return &SessionResult{Linked: false}, nil
	case flows.IssueSessionFailureLookup:
		e.metricInc(MetricSessionLookupError)
		e.logger.Warn("identity lookup failed, answering not linked", "error", res.Err)
		e.emitAudit(ctx, auditEventSessionNotLinked, false, externalUserID, "", res.Err, nil)
		return &SessionResult{Linked: false}, nil
	case flows.IssueSessionFailureSign:
		e.metricInc(MetricSessionSignFailure)
		e.logger.Error("signing session credential failed", "error", res.Err)
		err := fmt.Errorf("%w: %v", ErrSessionSigningFailed, res.Err)
		e.emitAudit(ctx, auditEventSessionFailure, false, externalUserID, res.BackendUserID, err, nil)
		return nil, err
	}

	e.metricInc(MetricSessionIssued)
	e.emitAudit(ctx, auditEventSessionIssued, true, externalUserID, res.BackendUserID, nil, nil)

	return &SessionResult{
		Linked:        true,
		BackendUserID: res.BackendUserID,
		AccessToken:   res.AccessToken,
		RefreshToken:  "",
		ExpiresAt:     res.ExpiresAt,
	}, nil
}

// LinkedBackendUser returns the backend user linked to claim. ok is false
// when no link exists.
func (e *Engine) LinkedBackendUser(ctx context.Context, claim *Claim) (backendUserID string, ok bool, err error) {
	if e == nil {
		return "", false, ErrEngineNotReady
	}

	backendUserID, err = e.store.LookupIdentityLink(ctx, ExternalUserID(claim))
	if err != nil {
		if errors.Is(err, stores.ErrIdentityLinkMissing) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrLinkBackendUnavailable, err)
	}
	return backendUserID, backendUserID != "", nil
}
