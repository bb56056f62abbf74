// Package jwt mints and verifies the bootstrap session credential handed to a
// mini-app user once their external identity is linked to a backend account.
//
// Credentials carry sub (backend user id), role, aud and exp. No refresh token is
// produced; callers obtain a fresh credential by presenting a new payload.
package jwt
