// Package authkit provides an authentication and session-token engine with
// JWT access tokens, single-use rotating refresh tokens, Redis-backed
// revocation, and a hashed single-use password-reset flow.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// value types, and the sentinel errors of the public taxonomy. Credential
// persistence and mail delivery are collaborator interfaces ([UserStore],
// [Mailer]) implemented under store/ and mail/; Redis is injected as a
// constructed client and never accessed through package-level state.
//
// # Consistency contract
//
// Refresh rotation is atomic per (userID, jti): the read-compare-delete-write
// sequence runs as a single Redis script, so of any number of concurrent
// Refresh calls presenting the same token exactly one succeeds. All other
// expiry is enforced by store-native TTLs plus token signature expiry; the
// engine runs no background sweeps.
package authkit
