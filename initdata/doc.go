// Package initdata authenticates the signed launch payload ("init data") that a
// mini-app host hands to the embedded web app.
//
// # Protocol
//
// The payload is a URL-encoded list of key/value pairs. The "hash" pair carries a
// lowercase hex HMAC-SHA-256 tag; the "user" pair carries the JSON identity
// record. Every other pair is opaque but signed.
//
// The tag is computed over the data-check string: all non-"hash" pairs sorted by
// key in byte order, rendered as key=value and joined with "\n". The HMAC key is
// SHA-256 of the bot token, not the token itself.
//
// # What this package must NOT do
//
//   - Perform I/O or read configuration.
//   - Interpret auxiliary fields such as auth_date or query_id.
//   - Accept payloads whose canonical form is ambiguous (duplicate keys).
package initdata
