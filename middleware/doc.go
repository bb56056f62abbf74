// Package middleware adapts tglink.Engine to echo.
//
// # Middleware
//
//   - [RequestContext] puts the client IP and request id on the request context.
//   - [RequireInitData] verifies "Authorization: tma <initData>" and exposes the
//     claim through [ClaimFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Verification,
// throttling and auditing all happen inside the Engine.
//
// # What this package must NOT do
//
//   - Parse or check payload signatures directly.
//   - Access Redis or the database.
//   - Render response bodies. Failures are returned as *echo.HTTPError.
package middleware
