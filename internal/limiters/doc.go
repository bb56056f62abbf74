// Package limiters holds the two throttles the engine applies around payload
// verification and link code redemption.
//
//   - [VerifyLimiter]: per-IP budget of failed payload verifications.
//   - [RedeemLimiter]: per-identity budget of rejected link codes.
//
// Both are nil-safe and only count; the flows decide what a limit means.
package limiters
