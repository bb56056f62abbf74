// Package rate provides the Redis fixed-window counter that the domain limiters
// in internal/limiters are built on.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. The key prefix
// is supplied by the caller, so every limiter owns its own namespace.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in internal/limiters).
//   - Be imported outside the tglink module.
package rate
