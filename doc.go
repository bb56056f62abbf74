// Package tglink bridges chat-platform mini-app users to a backend identity
// system. It verifies the host-signed launch payload (initData), redeems
// single-use link codes into durable identity links, and issues backend
// session credentials for linked identities.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// tglink is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (LinkResult, SessionResult, MetricsSnapshot, etc.). Payload verification lives in
// the initdata package, credential signing in jwt. Flow orchestration, storage,
// throttling and audit dispatch live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Log or audit raw payloads, link codes or credentials.
//   - Touch storage before a payload has been verified.
//   - Import any sub-package that re-imports tglink (no import cycles).
//
// # Failure classes
//
// Every Engine error matches exactly one sentinel with errors.Is:
// ErrConfiguration, ErrNotAuthenticated, ErrVerifyRateLimited,
// ErrLinkCodeInvalid, ErrLinkRateLimited, ErrLinkBackendUnavailable,
// ErrBackendUserInvalid or ErrSessionSigningFailed. An identity without a link
// is a result (SessionResult.Linked == false), not an error.
package tglink
