// Package internal contains helper utilities that are intentionally private to tglink,
// such as link code generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function flow orchestrators for every Engine operation
//   - limiters: domain-specific rate limiters (verify, redeem)
//   - rate: core Redis-backed rate limit primitives
//   - stores: link code and identity link persistence (Redis, SQL)
//
// # What this package must NOT do
//
//   - Export types that appear in the public tglink API.
//   - Be imported by any package outside the tglink module.
package internal
