// Package session persists the ephemeral, TTL-bound half of the token
// lifecycle in Redis: the stored copy of each live refresh token and the
// blacklist entries that revoke otherwise-valid access tokens.
//
// Key layout:
//
//	refresh:{jti}:{userID}          -> refresh token string
//	blacklist:access:{jti}:{userID} -> "revoked"
//
// Rotation is a single Lua script so that the read-compare-delete-write
// sequence is atomic per key; two concurrent rotations of the same token
// cannot both win.
package session
