// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunVerify, RunRedeemLink, RunIssueSession,
// RunIssueLinkCode) accepts a typed dependency struct and returns a result with
// a failure kind instead of a root error. The Engine maps failure kinds onto
// its public sentinel errors, metrics and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the link store, JWT manager and rate
// limiters. They do NOT own any of these resources; ownership stays with the
// Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tglink (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
package flows
