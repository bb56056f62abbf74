// Package stores provides the persistence backends for link codes and identity
// links: a Redis store and a relational store built on gorm.
//
// # Design
//
// A link code is redeemable once. Both backends make the check, the identity
// link write and the mark-used write one atomic unit: Redis uses a WATCH/MULTI
// optimistic transaction on the code key with bounded retry, the SQL store uses a
// transaction whose UPDATE only matches rows with used_at still NULL. Concurrent
// redeemers of one code therefore produce exactly one winner.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control. It does NOT verify
// payloads, generate codes, or issue credentials; those belong to the root
// package and internal/flows.
//
// # What this package must NOT do
//
//   - Import tglink or any sibling internal package.
//   - Log identities or codes.
package stores
