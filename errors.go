package tglink

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports a missing or invalid setting. Requests served
	// while the configuration is invalid fail with this error.
	ErrConfiguration = errors.New("missing configuration")
	// ErrEngineNotReady is returned by a nil Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrNotAuthenticated reports a payload that failed verification.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrVerifyRateLimited reports a client over its failed-verification budget.
	ErrVerifyRateLimited = errors.New("verify rate limited")
	// ErrLinkCodeInvalid reports an empty, unknown, used or expired link code.
	ErrLinkCodeInvalid = errors.New("link code invalid")
	// ErrLinkRateLimited reports an identity over its rejected-code budget.
	ErrLinkRateLimited = errors.New("link rate limited")
	// ErrLinkBackendUnavailable reports a link store failure.
	ErrLinkBackendUnavailable = errors.New("link backend unavailable")
	// ErrBackendUserInvalid reports a backend user id that is not a UUID.
	ErrBackendUserInvalid = errors.New("backend user id invalid")
	// ErrSessionsDisabled is returned by IssueSession when no signing secret is
	// configured. It wraps ErrConfiguration.
	ErrSessionsDisabled = fmt.Errorf("%w: session signing secret not set", ErrConfiguration)
	// ErrSessionSigningFailed reports a credential that could not be signed.
	ErrSessionSigningFailed = errors.New("session signing failed")
)
